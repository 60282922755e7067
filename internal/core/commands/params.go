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

// Package commands contains the steps of the effect generation workflow.
// Each step embeds cor.BaseCommand and exchanges data through the context
// keys below.
package commands

// Context keys shared by the effect commands.
const (
	ParamRequest  = "__REQUEST__"  // *model.EffectRequest
	ParamRawSpec  = "__RAW_SPEC__" // string, the model's response or the user's edited spec
	ParamPipeline = "__PIPELINE__" // *effects.Pipeline
	ParamRecord   = "__RECORD__"   // *model.EffectPipelineRecord
	ParamActive   = "__ACTIVE__"   // *services.ActivePipeline
)

// DefaultSession receives requests that name no session.
const DefaultSession = "default"
