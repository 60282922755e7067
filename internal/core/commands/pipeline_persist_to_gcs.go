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
)

// PipelinePersistToGCS archives the raw spec as <pipeline-id>.json and
// records its location on the pipeline record.
type PipelinePersistToGCS struct {
	cor.BaseCommand
	store  cloud.ObjectStore
	bucket string
}

// NewPipelinePersistToGCS creates the step that archives the raw spec as
// gs://<bucket>/<pipeline-id>.json.
//
// Inputs:
//   - name: A string name for this command instance.
//   - store: Where the object is written.
//   - bucket: The archive bucket.
//
// Outputs:
//   - *PipelinePersistToGCS: Reads ParamRecord and sets its SpecUrl.
func NewPipelinePersistToGCS(name string, store cloud.ObjectStore, bucket string) *PipelinePersistToGCS {
	out := &PipelinePersistToGCS{BaseCommand: *cor.NewBaseCommand(name), store: store, bucket: bucket}
	out.InputParamName = ParamRecord
	out.OutputParamName = ParamRecord
	return out
}

// Execute writes the spec and records its URI on the pipeline record.
func (c *PipelinePersistToGCS) Execute(context cor.Context) {
	record, ok := cor.Value[*model.EffectPipelineRecord](context, c.GetInputParam())
	raw, hasRaw := cor.Value[string](context, ParamRawSpec)
	if !ok || !hasRaw {
		c.Fail(context, fmt.Errorf("missing pipeline record or raw spec"))
		return
	}

	obj := cloud.GCSObject{Bucket: c.bucket, Name: record.Id + ".json", MIMEType: "application/json"}
	if err := c.store.WriteObject(context.GetContext(), obj, []byte(raw)); err != nil {
		c.Fail(context, err)
		return
	}
	record.SpecUrl = obj.URI()
	slog.InfoContext(context.GetContext(), "archived effect spec", "id", record.Id, "object", record.SpecUrl)
	c.Succeed(context, record)
}
