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

	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/cor"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/effects"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/model"
	"go.opentelemetry.io/otel/metric"
)

// EffectSpecTranslator turns the raw spec into a pipeline and starts the
// record that describes it. A payload that cannot be read at all fails the
// workflow; dropped entries only show up in the record's diagnostics.
type EffectSpecTranslator struct {
	cor.BaseCommand
	translator     *effects.Translator
	droppedCounter metric.Int64Counter
}

// NewEffectSpecTranslator creates the step that turns raw model output into
// a pipeline and its record.
//
// Inputs:
//   - name: A string name for this command instance.
//   - translator: The translator; its limits come from configuration.
//
// Outputs:
//   - *EffectSpecTranslator: Reads ParamRawSpec, writes ParamPipeline and
//     ParamRecord.
func NewEffectSpecTranslator(name string, translator *effects.Translator) *EffectSpecTranslator {
	out := &EffectSpecTranslator{BaseCommand: *cor.NewBaseCommand(name), translator: translator}
	out.InputParamName = ParamRawSpec
	out.OutputParamName = ParamPipeline
	out.droppedCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.counter.dropped", out.GetName()))
	return out
}

// Execute fails the step only when Translate returns an error; dropped
// entries are kept as diagnostics on the record.
func (t *EffectSpecTranslator) Execute(context cor.Context) {
	raw, ok := cor.Value[string](context, t.GetInputParam())
	if !ok {
		t.Fail(context, fmt.Errorf("missing raw spec"))
		return
	}
	pipeline, err := t.translator.Translate(raw)
	if err != nil {
		t.Fail(context, err)
		return
	}

	session := DefaultSession
	req, hasRequest := cor.Value[*model.EffectRequest](context, ParamRequest)
	if hasRequest {
		session = req.Session
	}
	record := model.NewEffectPipelineRecord(session, raw)
	if hasRequest {
		record.RequestId = req.RequestId
		record.Prompt = req.Prompt
	}
	record.Name = pipeline.Name
	record.Requested = pipeline.Requested
	record.Resolved = len(pipeline.Effects)
	for _, d := range pipeline.Effects {
		if d.Kind() == effects.EffectTypeCustom {
			record.Custom++
		}
	}
	for _, d := range pipeline.Diagnostics {
		record.Diagnostics = append(record.Diagnostics, fmt.Sprintf("effect %d %s: %s", d.EffectIndex, d.Parameter, d.Reason))
	}

	if n := pipeline.Requested - len(pipeline.Effects); n > 0 && t.droppedCounter != nil {
		t.droppedCounter.Add(context.GetContext(), int64(n))
	}
	slog.InfoContext(context.GetContext(), "translated effect spec",
		"id", record.Id, "name", record.Name, "requested", record.Requested, "resolved", record.Resolved)

	context.Add(ParamRecord, record)
	t.Succeed(context, pipeline)
}
