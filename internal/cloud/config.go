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

// Package cloud holds the configuration model and the Google Cloud plumbing
// shared by the server, the workflows and their tests.
//
// Configuration is read from TOML. The sections are:
//   - application: project, location and the signer account for URLs.
//   - storage: where generated effect specs are archived.
//   - big_query_data_source: where pipeline records are written.
//   - prompt_templates: the generation prompt.
//   - topic_subscriptions: Pub/Sub subscriptions keyed by logical name.
//   - agent_models: generative models keyed by logical name.
//   - translator: limits applied when turning model output into pipelines.
//   - registry: idle session eviction.
//   - server: HTTP listener, cookie sessions and uniform watches.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings lets every harm category through. Effect prompts are
// short creative descriptions and blocked responses only surface as empty
// pipelines.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// BigQueryDataSource names the dataset and table holding pipeline records.
type BigQueryDataSource struct {
	DatasetName   string `toml:"dataset"`        // The BigQuery dataset.
	PipelineTable string `toml:"pipeline_table"` // One row per translated pipeline.
}

// PromptTemplates are Go text/template sources rendered before generation.
type PromptTemplates struct {
	EffectsPrompt string `toml:"effects"` // Receives .Prompt and .Example.
}

// VertexAiLLMModel configures one generative model.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // Model id, e.g. gemini-2.5-pro.
	SystemInstructions string  `toml:"system_instructions"` // System instruction sent with every request.
	Temperature        float32 `toml:"temperature"`         // Sampling temperature.
	TopP               float32 `toml:"top_p"`               // Nucleus sampling.
	TopK               float32 `toml:"top_k"`               // Top-k sampling.
	MaxTokens          int32   `toml:"max_tokens"`          // Maximum output tokens.
	OutputFormat       string  `toml:"output_format"`       // Response MIME type, e.g. application/json.
	RateLimit          int     `toml:"rate_limit"`          // Burst size of the per-second limiter.
}

// TopicSubscription configures one Pub/Sub subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // Subscription id.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // Dead-letter topic, informational.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // Per-message processing budget.
}

// Storage names the bucket effect specs are archived to.
type Storage struct {
	EffectSpecBucket string `toml:"effect_spec_bucket"` // Bucket holding <pipeline-id>.json objects.
	IncomingPrefix   string `toml:"incoming_prefix"`    // Objects under this prefix are re-applied when uploaded.
}

// Translator bounds what a single model response may produce.
type Translator struct {
	MaxEffects  int  `toml:"max_effects"`   // Entries past this index are ignored. Zero disables the limit.
	KeepFences  bool `toml:"keep_fences"`   // Skip removal of Markdown code fences.
	MaxSpecSize int  `toml:"max_spec_size"` // Largest accepted upload, in bytes.
}

// Registry controls how long an unused session keeps its pipeline.
type Registry struct {
	IdleMinutes      int    `toml:"idle_minutes"`      // Sessions idle this long are evicted.
	EvictionSchedule string `toml:"eviction_schedule"` // Cron spec for the eviction sweep.
}

// Server configures the HTTP API.
type Server struct {
	Port          int    `toml:"port"`
	SessionSecret string `toml:"session_secret"` // Key for the session cookie.
	WatchBuffer   int    `toml:"watch_buffer"`   // Pending uniform changes per websocket.
}

// Config is the root of the TOML configuration.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`                         // Application name.
		GoogleProjectId           string `toml:"google_project_id"`            // Google Cloud project.
		GoogleLocation            string `toml:"location"`                     // Vertex AI location.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // Account used to sign spec URLs.
		GenerationModel           string `toml:"generation_model"`             // Key into AgentModels used for effects.
		RequestTopic              string `toml:"request_topic"`                // Key into TopicSubscriptions for effect requests.
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`
	Translator         Translator                   `toml:"translator"`
	Registry           Registry                     `toml:"registry"`
	Server             Server                       `toml:"server"`
}

// NewConfig returns a Config with its maps allocated so TOML decoding can
// merge several files into it.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
}
