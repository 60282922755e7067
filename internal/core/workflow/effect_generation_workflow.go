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

// Package workflow assembles the effect commands into the chains the server
// and the Pub/Sub listeners run.
package workflow

import (
	"fmt"
	"log/slog"
	"text/template"

	"github.com/jaycherian/gcp-go-vibe-effects/internal/cloud"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/commands"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/cor"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/effects"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/services"
)

// EffectGenerationWorkflow turns an effect request into the session's active
// pipeline. Requests carrying a spec, inline or as an uploaded object, skip
// the model and are translated as they are.
type EffectGenerationWorkflow struct {
	cor.BaseCommand
	Dependencies
	chain *cor.BaseChain
}

// Dependencies are the collaborators of the workflow. The interfaces are
// satisfied by the Cloud clients in production and by fakes in tests.
type Dependencies struct {
	Generator   cloud.ContentGenerator
	Store       cloud.ObjectStore
	Inserter    commands.RecordInserter
	Registry    *services.PipelineRegistry
	Translator  *effects.Translator
	Template    *template.Template
	SpecBucket  string
	MaxSpecSize int64

	// IncomingPrefix limits which storage notifications are re-applied.
	IncomingPrefix string
}

func (w *EffectGenerationWorkflow) IsExecutable(context cor.Context) bool {
	return w.chain.IsExecutable(context)
}

// Execute runs the chain. The message or request is read from cor.CtxIn;
// the activated pipeline is left under commands.ParamActive.
func (w *EffectGenerationWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Steps lists the command names in execution order.
func (w *EffectGenerationWorkflow) Steps() []string {
	return w.chain.Commands()
}

func (w *EffectGenerationWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	// Message or request struct to *model.EffectRequest.
	out.AddCommand(commands.NewEffectRequestReader("effect-request-reader", w.IncomingPrefix))
	// Uploaded specs are loaded and sniffed; other requests skip this.
	out.AddCommand(commands.NewSpecObjectReader("spec-object-reader", w.Store, w.MaxSpecSize))
	out.AddCommand(commands.NewEffectSpecGenerator("effect-spec-generator", w.Generator, w.Template))
	out.AddCommand(commands.NewEffectSpecTranslator("effect-spec-translator", w.Translator))
	out.AddCommand(commands.NewPipelinePersistToGCS("write-spec-to-gcs", w.Store, w.SpecBucket))
	out.AddCommand(commands.NewPipelinePersistToBigQuery("write-to-bigquery", w.Inserter))
	out.AddCommand(commands.NewPipelineActivate("activate-pipeline", w.Registry))

	w.chain = out
}

// NewEffectGenerationWorkflowWith builds the workflow from explicit
// dependencies.
func NewEffectGenerationWorkflowWith(deps Dependencies) *EffectGenerationWorkflow {
	if deps.Translator == nil {
		deps.Translator = effects.NewTranslator(slog.Default())
	}
	w := &EffectGenerationWorkflow{
		BaseCommand:  *cor.NewBaseCommand("effect-generation-workflow"),
		Dependencies: deps,
	}
	w.initializeChain()
	return w
}

// NewEffectGenerationWorkflow wires the workflow to the configured generation
// model, the spec bucket and the pipeline table.
func NewEffectGenerationWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	registry *services.PipelineRegistry) (*EffectGenerationWorkflow, error) {

	tmpl, err := template.New("effects-template").Parse(config.PromptTemplates.EffectsPrompt)
	if err != nil {
		return nil, fmt.Errorf("invalid effects prompt template: %w", err)
	}
	model, ok := serviceClients.AgentModels[config.Application.GenerationModel]
	if !ok {
		return nil, fmt.Errorf("no agent model named %q", config.Application.GenerationModel)
	}

	translator := effects.NewTranslator(slog.Default())
	translator.MaxEffects = config.Translator.MaxEffects
	translator.KeepFences = config.Translator.KeepFences

	inserter := serviceClients.BiqQueryClient.
		Dataset(config.BigQueryDataSource.DatasetName).
		Table(config.BigQueryDataSource.PipelineTable).
		Inserter()

	return NewEffectGenerationWorkflowWith(Dependencies{
		Generator:   model.WithResponseSchema(effects.ResponseSchema()),
		Store:       &cloud.GCSObjectStore{Client: serviceClients.StorageClient},
		Inserter:    inserter,
		Registry:    registry,
		Translator:  translator,
		Template:    tmpl,
		SpecBucket:  config.Storage.EffectSpecBucket,
		MaxSpecSize: int64(config.Translator.MaxSpecSize),

		IncomingPrefix: config.Storage.IncomingPrefix,
	}), nil
}
