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

package cloud_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/cloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"google.golang.org/genai"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoadConfigOverlaysRuntime(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env.toml", `
[application]
name = "vibe-effects"
google_project_id = "base-project"

[storage]
effect_spec_bucket = "specs"

[translator]
max_effects = 16

[agent_models.creative]
model = "gemini-2.5-pro"
temperature = 0.0
rate_limit = 2
`)
	writeFile(t, dir, ".env.local.toml", `
[application]
google_project_id = "local-project"

[translator]
max_effects = 4
`)
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "local")

	config := cloud.NewConfig()
	require.NoError(t, cloud.LoadConfig(config))

	assert.Equal(t, "vibe-effects", config.Application.Name)
	assert.Equal(t, "local-project", config.Application.GoogleProjectId)
	assert.Equal(t, "specs", config.Storage.EffectSpecBucket)
	assert.Equal(t, 4, config.Translator.MaxEffects)
	assert.Equal(t, "gemini-2.5-pro", config.AgentModels["creative"].Model)
}

func TestLoadConfigReportsDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env.toml", "[application\nname = ")
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "")

	err := cloud.LoadConfig(cloud.NewConfig())
	assert.ErrorContains(t, err, ".env.toml")
}

func TestLoadConfigWithoutFiles(t *testing.T) {
	t.Setenv(cloud.EnvConfigFilePrefix, t.TempDir())
	assert.NoError(t, cloud.LoadConfig(cloud.NewConfig()))

	_, overlay := cloud.ConfigFiles()
	assert.Equal(t, ".env.test.toml", filepath.Base(overlay))
}

func TestParseGCSNotification(t *testing.T) {
	obj, ok := cloud.ParseGCSNotification([]byte(`{"kind":"storage#object","bucket":"specs","name":"incoming/a.json","contentType":"application/json"}`))
	require.True(t, ok)
	assert.Equal(t, "gs://specs/incoming/a.json", obj.URI())
	assert.Equal(t, "application/json", obj.MIMEType)

	_, ok = cloud.ParseGCSNotification([]byte(`{"prompt":"sepia"}`))
	assert.False(t, ok)
	_, ok = cloud.ParseGCSNotification([]byte(`not json`))
	assert.False(t, ok)
}

type fakeGenerator struct {
	failures int
	calls    int
	resp     *genai.GenerateContentResponse
}

func (f *fakeGenerator) GenerateContent(context.Context, []*genai.Content) (*genai.GenerateContentResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("unavailable")
	}
	return f.resp, nil
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates:    []*genai.Candidate{{Content: content}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 5},
	}
}

func TestShippedConfigProcessesEveryEffect(t *testing.T) {
	config := cloud.NewConfig()
	_, err := toml.DecodeFile(filepath.Join("..", "..", "configs", ".env.toml"), config)
	require.NoError(t, err)
	assert.Zero(t, config.Translator.MaxEffects)
	assert.Equal(t, "incoming/", config.Storage.IncomingPrefix)
}

func TestGenerateResponseRetries(t *testing.T) {
	gen := &fakeGenerator{failures: 2, resp: textResponse(`{"name":`, `"x"}`)}
	out, err := cloud.GenerateResponse(context.Background(), nil, nil, nil, gen, cloud.NewTextPart("hi"))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"x"}`, out)
	assert.Equal(t, 3, gen.calls)
}

func TestGenerateResponseGivesUp(t *testing.T) {
	gen := &fakeGenerator{failures: 100}
	_, err := cloud.GenerateResponse(context.Background(), nil, nil, nil, gen, cloud.NewTextPart("hi"))
	assert.Error(t, err)
	assert.Equal(t, cloud.MaxRetries+1, gen.calls)
}

func TestGenerateResponseCountsRetries(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	retries, err := provider.Meter("cloud-test").Int64Counter("retries")
	require.NoError(t, err)

	gen := &fakeGenerator{failures: 2, resp: textResponse("ok")}
	_, err = cloud.GenerateResponse(context.Background(), nil, nil, retries, gen, cloud.NewTextPart("hi"))
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(gen.calls-1), sum.DataPoints[0].Value)
}

func TestQuotaAwareModelCallsOncePerAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"unavailable","status":"UNAVAILABLE"}}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	require.NoError(t, err)

	model := cloud.NewQuotaAwareModel(&genai.GenerateContentConfig{}, "effect-model", client.Models, 10)
	_, err = cloud.GenerateResponse(ctx, nil, nil, nil, model, cloud.NewTextPart("hi"))
	assert.Error(t, err)
	assert.Equal(t, int32(cloud.MaxRetries+1), hits.Load())
}

func TestGenerateResponseEmpty(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{}}
	_, err := cloud.GenerateResponse(context.Background(), nil, nil, nil, gen, cloud.NewTextPart("hi"))
	assert.ErrorIs(t, err, cloud.ErrEmptyResponse)
}

func TestModelConfig(t *testing.T) {
	config := cloud.NewModelConfig(cloud.VertexAiLLMModel{Model: "m", Temperature: 0, OutputFormat: "application/json", SystemInstructions: "be terse"})
	assert.Equal(t, float32(0), *config.Temperature)
	assert.Equal(t, "be terse", config.SystemInstruction.Parts[0].Text)

	base := cloud.NewQuotaAwareModel(config, "m", nil, 0)
	schema := &genai.Schema{Type: genai.TypeObject}
	constrained := base.WithResponseSchema(schema)
	assert.Same(t, schema, constrained.GenerativeContentConfig.ResponseSchema)
	assert.Nil(t, base.GenerativeContentConfig.ResponseSchema)
	assert.Same(t, base.RateLimit, constrained.RateLimit)
}
