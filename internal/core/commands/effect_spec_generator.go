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
	"bytes"
	"fmt"
	"text/template"

	"github.com/jaycherian/gcp-go-vibe-effects/internal/cloud"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/cor"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/effects"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// EffectSpecGenerator asks the generative model for an effect description.
//
// The prompt template receives .Prompt (the user's request) and .Example (a
// well-formed description). A request that already carries a spec is passed
// through untouched, which is how an edited response is re-applied.
type EffectSpecGenerator struct {
	cor.BaseCommand
	generativeAIModel        cloud.ContentGenerator
	template                 *template.Template
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
}

// NewEffectSpecGenerator creates the step that asks the model for an effect
// description.
//
// Inputs:
//   - name: A string name for this command instance.
//   - generator: The quota-aware model, constrained to the response schema.
//   - tmpl: The prompt template, rendered with the prompt and the example.
//
// Outputs:
//   - *EffectSpecGenerator: Reads ParamRequest, writes ParamRawSpec, and
//     counts prompt and response tokens.
func NewEffectSpecGenerator(
	name string,
	generativeAIModel cloud.ContentGenerator,
	template *template.Template) *EffectSpecGenerator {

	out := &EffectSpecGenerator{
		BaseCommand:       *cor.NewBaseCommand(name),
		generativeAIModel: generativeAIModel,
		template:          template,
	}
	out.InputParamName = ParamRequest
	out.OutputParamName = ParamRawSpec

	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.retry", out.GetName()))
	return out
}

// PromptParams are the values the prompt template is rendered with.
type PromptParams struct {
	Prompt  string
	Example string
}

// RenderPrompt renders the template for prompt.
func (g *EffectSpecGenerator) RenderPrompt(prompt string) (string, error) {
	var buffer bytes.Buffer
	if err := g.template.Execute(&buffer, PromptParams{Prompt: prompt, Example: effects.ExampleDescription()}); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

// Execute passes a request's own spec straight through; otherwise it
// renders the prompt and calls the model.
func (g *EffectSpecGenerator) Execute(context cor.Context) {
	req, ok := cor.Value[*model.EffectRequest](context, g.GetInputParam())
	if !ok {
		g.Fail(context, fmt.Errorf("missing effect request"))
		return
	}
	span := trace.SpanFromContext(context.GetContext())

	if req.IsReapply() {
		span.SetAttributes(attribute.Bool("reapply", true))
		g.Succeed(context, req.Spec)
		return
	}

	prompt, err := g.RenderPrompt(req.Prompt)
	if err != nil {
		g.Fail(context, fmt.Errorf("failed to execute prompt template: %w", err))
		return
	}

	out, err := cloud.GenerateResponse(context.GetContext(), g.geminiInputTokenCounter, g.geminiOutputTokenCounter, g.geminiRetryCounter, g.generativeAIModel, cloud.NewTextPart(prompt))
	if err != nil {
		g.Fail(context, fmt.Errorf("gemini request failed: %w", err))
		return
	}
	span.SetAttributes(attribute.Int("response.length", len(out)))
	g.Succeed(context, out)
}
