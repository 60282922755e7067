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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/commands"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/cor"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/effects"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/model"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/services"
)

const (
	sessionCookieKey = "effect_session"
	signedURLExpiry  = 15 * time.Minute
	writeWait        = 10 * time.Second
)

// HistoryReader is the part of services.HistoryService the API uses.
type HistoryReader interface {
	List(ctx context.Context, session string, limit int) ([]*model.EffectPipelineRecord, error)
	Get(ctx context.Context, id string) (*model.EffectPipelineRecord, error)
	GenerateSignedURL(ctx context.Context, gcsURI string, expires time.Duration) (string, error)
}

// API serves the effect endpoints.
type API struct {
	Workflow    cor.Command
	Registry    *services.PipelineRegistry
	History     HistoryReader
	MaxSpecSize int64
	WatchBuffer int
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type generateRequest struct {
	Session string `json:"session"`
	Prompt  string `json:"prompt" binding:"required"`
}

// statusFor maps workflow and registry errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, effects.ErrMalformedSpec), errors.Is(err, services.ErrInvalidValue):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrBinaryPayload):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, model.ErrEmptyRequest):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnknownSession),
		errors.Is(err, services.ErrEffectNotFound),
		errors.Is(err, services.ErrUniformNotFound),
		errors.Is(err, services.ErrRecordNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// abort writes {"error": ...} with the status statusFor picks.
func abort(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// sessionFor returns the explicit session and remembers it in the cookie
// session. Without one the cookie's session is used, and first time clients
// get a new id.
func sessionFor(c *gin.Context, explicit string) string {
	store := sessions.Default(c)
	session := strings.TrimSpace(explicit)
	if session == "" {
		if s, ok := store.Get(sessionCookieKey).(string); ok && s != "" {
			return s
		}
		session = uuid.NewString()
	}
	store.Set(sessionCookieKey, session)
	if err := store.Save(); err != nil {
		slog.WarnContext(c.Request.Context(), "cannot save cookie session", "error", err)
	}
	return session
}

// run executes the workflow for req and returns the session's new active
// pipeline.
func (a *API) run(ctx context.Context, req *model.EffectRequest) (*services.ActivePipeline, error) {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, req)
	a.Workflow.Execute(chainCtx)
	if err := chainCtx.Err(); err != nil {
		return nil, err
	}
	active, ok := cor.Value[*services.ActivePipeline](chainCtx, commands.ParamActive)
	if !ok {
		return nil, fmt.Errorf("workflow finished without an active pipeline")
	}
	return active, nil
}

// generate handles POST /effects/generate.
//
// The body is {"prompt": ..., "session": ...}; session is optional and
// falls back to the cookie session. The model's answer is translated and
// activated, and the active pipeline is returned. A response the translator
// cannot read gives 422 and leaves the previous pipeline in place.
func (a *API) generate(c *gin.Context) {
	var body generateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	active, err := a.run(c.Request.Context(), &model.EffectRequest{
		Session: sessionFor(c, body.Session),
		Prompt:  body.Prompt,
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, active)
}

// readSpec returns the spec from the multipart field "spec" or, for any
// other content type, the request body.
func (a *API) readSpec(c *gin.Context) ([]byte, error) {
	var r io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("spec")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrEmptyRequest, err)
		}
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		defer file.Close()
		r = file
	}
	if a.MaxSpecSize > 0 {
		r = io.LimitReader(r, a.MaxSpecSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if a.MaxSpecSize > 0 && int64(len(data)) > a.MaxSpecSize {
		return nil, fmt.Errorf("%w: spec exceeds %d bytes", effects.ErrMalformedSpec, a.MaxSpecSize)
	}
	if err := services.SniffPayload(data); err != nil {
		return nil, err
	}
	return data, nil
}

// translate handles POST /effects/translate, re-applying a spec the client
// edited or uploaded. The model is not called.
func (a *API) translate(c *gin.Context) {
	data, err := a.readSpec(c)
	if err != nil {
		abort(c, err)
		return
	}
	active, err := a.run(c.Request.Context(), &model.EffectRequest{
		Session: sessionFor(c, c.Query("session")),
		Spec:    string(data),
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, active)
}

// activePipeline handles GET /sessions/:session/pipeline.
func (a *API) activePipeline(c *gin.Context) {
	active, err := a.Registry.Get(c.Param("session"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, active)
}

// deactivate handles DELETE /sessions/:session/pipeline. The pipeline's
// uniforms are released.
func (a *API) deactivate(c *gin.Context) {
	if !a.Registry.Deactivate(c.Param("session")) {
		abort(c, fmt.Errorf("%w: %s", services.ErrUnknownSession, c.Param("session")))
		return
	}
	c.Status(http.StatusNoContent)
}

// setUniform handles PUT /sessions/:session/effects/:index/uniforms/:name.
//
// The body is {"value": v} where v is read like a defaultValue of the
// uniform's type. The response reports whether the value changed and the
// uniform's new state.
func (a *API) setUniform(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		abort(c, fmt.Errorf("%w: index %q", services.ErrEffectNotFound, c.Param("index")))
		return
	}
	var body struct {
		Value json.RawMessage `json:"value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || len(body.Value) == 0 {
		abort(c, fmt.Errorf("%w: body must be {\"value\": ...}", services.ErrInvalidValue))
		return
	}
	changed, err := a.Registry.SetUniform(c.Param("session"), index, c.Param("name"), body.Value)
	if err != nil {
		abort(c, err)
		return
	}
	u, _ := a.Registry.Uniform(c.Param("session"), index, c.Param("name"))
	c.JSON(http.StatusOK, gin.H{"changed": changed, "uniform": u})
}

// watchUniforms streams the session's uniform changes over a websocket
// until either side closes it.
func (a *API) watchUniforms(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	changes, stop := a.Registry.Watch(c.Param("session"), a.WatchBuffer)
	defer stop()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(change); err != nil {
				slog.DebugContext(c.Request.Context(), "uniform watch closed", "session", change.Session, "error", err)
				return
			}
		}
	}
}

// history handles GET /history?session=&limit=, newest first.
func (a *API) history(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultListLimit)))
	if err != nil {
		limit = services.DefaultListLimit
	}
	out, err := a.History.List(c.Request.Context(), c.Query("session"), limit)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// historyRecord handles GET /history/:id.
func (a *API) historyRecord(c *gin.Context) {
	out, err := a.History.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// historySpec handles GET /history/:id/spec with a short-lived signed URL
// for the archived spec.
func (a *API) historySpec(c *gin.Context) {
	record, err := a.History.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	url, err := a.History.GenerateSignedURL(c.Request.Context(), record.SpecUrl, signedURLExpiry)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
