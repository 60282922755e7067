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

	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/cor"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/effects"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/model"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/services"
)

// PipelineActivate makes the translated pipeline the session's active one,
// releasing whatever was active before.
type PipelineActivate struct {
	cor.BaseCommand
	registry *services.PipelineRegistry
}

// NewPipelineActivate creates the final step, which makes the translated
// pipeline the session's active one.
//
// Inputs:
//   - name: A string name for this command instance.
//   - registry: The registry holding one active pipeline per session.
//
// Outputs:
//   - *PipelineActivate: Reads ParamPipeline and ParamRecord, writes
//     ParamActive.
func NewPipelineActivate(name string, registry *services.PipelineRegistry) *PipelineActivate {
	out := &PipelineActivate{BaseCommand: *cor.NewBaseCommand(name), registry: registry}
	out.InputParamName = ParamPipeline
	out.OutputParamName = ParamActive
	return out
}

// Execute replaces the session's pipeline; the previous one is released.
func (a *PipelineActivate) Execute(context cor.Context) {
	pipeline, ok := cor.Value[*effects.Pipeline](context, a.GetInputParam())
	record, hasRecord := cor.Value[*model.EffectPipelineRecord](context, ParamRecord)
	if !ok || !hasRecord {
		a.Fail(context, fmt.Errorf("missing pipeline or record"))
		return
	}
	a.Succeed(context, a.registry.Activate(record.Session, record.Id, pipeline))
}
