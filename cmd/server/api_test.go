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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"text/template"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/effects"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/model"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/services"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-vibe-effects/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	records map[string]*model.EffectPipelineRecord
}

func (f *fakeHistory) List(_ context.Context, session string, limit int) ([]*model.EffectPipelineRecord, error) {
	out := make([]*model.EffectPipelineRecord, 0)
	for _, r := range f.records {
		if (session == "" || r.Session == session) && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeHistory) Get(_ context.Context, id string) (*model.EffectPipelineRecord, error) {
	r, ok := f.records[id]
	if !ok {
		return nil, services.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeHistory) GenerateSignedURL(_ context.Context, gcsURI string, _ time.Duration) (string, error) {
	return "https://signed.example/" + strings.TrimPrefix(gcsURI, "gs://"), nil
}

type harness struct {
	router    *gin.Engine
	api       *API
	generator *test.FakeGenerator
	inserter  *test.RecordingInserter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := &harness{
		generator: &test.FakeGenerator{Response: test.GetTestSpec()},
		inserter:  &test.RecordingInserter{},
	}
	registry := services.NewPipelineRegistry(nil)
	h.api = &API{
		Workflow: workflow.NewEffectGenerationWorkflowWith(workflow.Dependencies{
			Generator:  h.generator,
			Store:      test.NewMemoryStore(),
			Inserter:   h.inserter,
			Registry:   registry,
			Template:   template.Must(template.New("effects").Parse("{{.Prompt}}")),
			SpecBucket: "specs",
		}),
		Registry: registry,
		History: &fakeHistory{records: map[string]*model.EffectPipelineRecord{
			"p1": {Id: "p1", Session: "s1", SpecUrl: "gs://specs/p1.json"},
		}},
		MaxSpecSize: 4096,
		WatchBuffer: 4,
	}
	h.router = NewRouter(h.api, "test", "secret")
	return h
}

func (h *harness) do(method, path string, body string, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestGenerate(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodPost, "/api/v1/effects/generate", `{"session": "s1", "prompt": "soft glow"}`, "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "s1", body["session"])
	pipeline := body["pipeline"].(map[string]any)
	assert.Len(t, pipeline["effects"], 2)
	assert.Equal(t, []string{"soft glow"}, h.generator.Prompts)
	assert.NotEmpty(t, w.Header().Get("Set-Cookie"))

	w = h.do(http.MethodPost, "/api/v1/effects/generate", `{"session": "s1"}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateMalformedResponse(t *testing.T) {
	h := newHarness(t)
	h.generator.Response = "sorry"
	w := h.do(http.MethodPost, "/api/v1/effects/generate", `{"session": "s1", "prompt": "x"}`, "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTranslate(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/v1/effects/translate?session=s2", effects.ExampleDescription(), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Zero(t, h.generator.Calls())
	active, err := h.api.Registry.Get("s2")
	require.NoError(t, err)
	assert.Equal(t, "Warm Vignette", active.Pipeline.Name)

	w = h.do(http.MethodPost, "/api/v1/effects/translate?session=s2", `["not", "an", "object"]`, "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	after, _ := h.api.Registry.Get("s2")
	assert.Same(t, active, after, "a malformed spec keeps the active pipeline")

	w = h.do(http.MethodPost, "/api/v1/effects/translate?session=s2", "", "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/v1/effects/translate?session=s2", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR", "application/octet-stream")
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = h.do(http.MethodPost, "/api/v1/effects/translate?session=s2", strings.Repeat(" ", 5000), "text/plain")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTranslateMultipart(t *testing.T) {
	h := newHarness(t)
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("spec", "glow.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(test.GetTestSpec()))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	w := h.do(http.MethodPost, "/api/v1/effects/translate?session=up", buf.String(), form.FormDataContentType())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, err = h.api.Registry.Get("up")
	assert.NoError(t, err)
}

func TestSessionEndpoints(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/v1/effects/translate?session=s1", effects.ExampleDescription(), "application/json").Code)

	w := h.do(http.MethodGet, "/api/v1/sessions", "", "")
	assert.JSONEq(t, `["s1"]`, w.Body.String())

	w = h.do(http.MethodGet, "/api/v1/sessions/s1/pipeline", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/sessions/nope/pipeline", "", "").Code)

	w = h.do(http.MethodPut, "/api/v1/sessions/s1/effects/2/uniforms/uStrength", `{"value": 0.8}`, "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, 0.8, body["uniform"].(map[string]any)["value"])

	cases := map[string]struct {
		path string
		body string
		want int
	}{
		"wrong arity":     {"/api/v1/sessions/s1/effects/2/uniforms/uTint", `{"value": [1, 2]}`, http.StatusUnprocessableEntity},
		"missing value":   {"/api/v1/sessions/s1/effects/2/uniforms/uTint", `{}`, http.StatusUnprocessableEntity},
		"standard effect": {"/api/v1/sessions/s1/effects/0/uniforms/uTint", `{"value": 1}`, http.StatusNotFound},
		"bad index":       {"/api/v1/sessions/s1/effects/x/uniforms/uTint", `{"value": 1}`, http.StatusNotFound},
		"unknown session": {"/api/v1/sessions/s9/effects/2/uniforms/uTint", `{"value": 1}`, http.StatusNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, h.do(http.MethodPut, tc.path, tc.body, "application/json").Code)
		})
	}

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/v1/sessions/s1/pipeline", "", "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/api/v1/sessions/s1/pipeline", "", "").Code)
}

func TestWatchUniforms(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/v1/effects/translate?session=live", effects.ExampleDescription(), "application/json").Code)

	srv := httptest.NewServer(h.router)
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/sessions/live/uniforms/watch", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.api.Registry.WatcherCount("live") == 1 }, time.Second, 10*time.Millisecond)
	_, err = h.api.Registry.SetUniform("live", 2, "uTint", []byte("[0.5, 0.5, 0.5]"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var change map[string]any
	require.NoError(t, conn.ReadJSON(&change))
	assert.Equal(t, "uTint", change["uniform"])
	assert.Equal(t, []any{0.5, 0.5, 0.5}, change["value"])

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.api.Registry.WatcherCount("live") == 0 }, time.Second, 10*time.Millisecond)
}

func TestSchemaAndExample(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/v1/effects/schema", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "effects")

	w = h.do(http.MethodGet, "/api/v1/effects/example", "", "")
	assert.Equal(t, effects.ExampleDescription(), w.Body.String())
}

func TestHistory(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/v1/history?session=s1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"p1"`)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/history/missing", "", "").Code)

	w = h.do(http.MethodGet, "/api/v1/history/p1/spec", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://signed.example/specs/p1.json", decode(t, w)["url"])
}
