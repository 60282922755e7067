// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-vibe-effects/internal/cloud"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/cor"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/model"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/services"
)

// SpecObjectReader loads the spec of a request that points at an uploaded
// object. Requests without SpecObject skip this step.
type SpecObjectReader struct {
	cor.BaseCommand
	store   cloud.ObjectStore
	maxSize int64
}

// NewSpecObjectReader creates the step that loads uploaded specs.
//
// Inputs:
//   - name: A string name for this command instance.
//   - store: Where uploaded objects are read from.
//   - maxSize: Largest object accepted, in bytes.
//
// Outputs:
//   - *SpecObjectReader: Reads and re-publishes ParamRequest.
func NewSpecObjectReader(name string, store cloud.ObjectStore, maxSize int64) *SpecObjectReader {
	out := &SpecObjectReader{BaseCommand: *cor.NewBaseCommand(name), store: store, maxSize: maxSize}
	out.InputParamName = ParamRequest
	out.OutputParamName = ParamRequest
	return out
}

// IsExecutable is true only for requests that name a spec object.
func (s *SpecObjectReader) IsExecutable(context cor.Context) bool {
	req, ok := cor.Value[*model.EffectRequest](context, s.GetInputParam())
	return ok && req.SpecObject != "" && context.GetContext() != nil
}

// Execute reads the object and rejects binary payloads before setting the
// request's spec.
func (s *SpecObjectReader) Execute(context cor.Context) {
	req, _ := cor.Value[*model.EffectRequest](context, s.GetInputParam())
	bucket, name, err := services.ParseGCSURI(req.SpecObject)
	if err != nil {
		s.Fail(context, err)
		return
	}

	data, err := s.store.ReadObject(context.GetContext(), cloud.GCSObject{Bucket: bucket, Name: name}, s.maxSize)
	if err != nil {
		s.Fail(context, fmt.Errorf("failed to read spec object: %w", err))
		return
	}
	if err := services.SniffPayload(data); err != nil {
		s.Fail(context, err)
		return
	}

	req.Spec = string(data)
	slog.InfoContext(context.GetContext(), "loaded spec object", "object", req.SpecObject, "bytes", len(data))
	s.Succeed(context, req)
}
