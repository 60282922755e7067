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

package cloud

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// QuotaAwareGenerativeAIModel rate limits calls to one generative model so a
// burst of effect requests stays inside the project's Vertex AI quota.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             *genai.Models
	RateLimit               *rate.Limiter
}

// NewQuotaAwareModel wraps one model behind a token bucket.
//
// Inputs:
//   - config: Generation settings shared by every call.
//   - name: The model id, e.g. "gemini-2.5-pro".
//   - models: The genai client's model service.
//   - requestsPerSecond: Burst size, refilled at one call per second; values
//     below one are raised to one.
//
// Outputs:
//   - *QuotaAwareGenerativeAIModel: Makes a single call per GenerateContent.
func NewQuotaAwareModel(config *genai.GenerateContentConfig, name string, models *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: config,
		ModelName:               name,
		ModelHandle:             models,
		RateLimit:               rate.NewLimiter(rate.Every(time.Second), requestsPerSecond),
	}
}

// WithResponseSchema returns a model sharing the limiter whose responses are
// constrained to JSON matching schema.
func (q *QuotaAwareGenerativeAIModel) WithResponseSchema(schema *genai.Schema) *QuotaAwareGenerativeAIModel {
	config := &genai.GenerateContentConfig{}
	if q.GenerativeContentConfig != nil {
		copied := *q.GenerativeContentConfig
		config = &copied
	}
	config.ResponseMIMEType = "application/json"
	config.ResponseSchema = schema
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: config,
		ModelName:               q.ModelName,
		ModelHandle:             q.ModelHandle,
		RateLimit:               q.RateLimit,
	}
}

// GenerateContent waits for the limiter and calls the model once. Retries
// belong to the caller, see GenerateResponse, so every attempt passes the
// limiter and is counted.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
}
