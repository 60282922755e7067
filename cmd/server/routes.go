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
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/effects"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// NewRouter registers every route under /api/v1.
func NewRouter(api *API, serviceName string, sessionSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(cors.Default())
	r.Use(sessions.Sessions("vibe-effects", cookie.NewStore([]byte(sessionSecret))))

	apiV1 := r.Group("/api/v1")
	{
		EffectsRouter(apiV1, api)
		SessionsRouter(apiV1, api)
		HistoryRouter(apiV1, api)
	}
	return r
}

// EffectsRouter sets up generation, translation and the model contract.
func EffectsRouter(r *gin.RouterGroup, api *API) {
	fx := r.Group("/effects")
	{
		fx.POST("/generate", api.generate)
		fx.POST("/translate", api.translate)
		fx.GET("/schema", func(c *gin.Context) {
			c.JSON(http.StatusOK, effects.ResponseSchema())
		})
		fx.GET("/example", func(c *gin.Context) {
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(effects.ExampleDescription()))
		})
	}
}

// SessionsRouter exposes the active pipelines and their uniforms.
func SessionsRouter(r *gin.RouterGroup, api *API) {
	s := r.Group("/sessions")
	{
		s.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, api.Registry.Sessions())
		})
		s.GET("/:session/pipeline", api.activePipeline)
		s.DELETE("/:session/pipeline", api.deactivate)
		s.PUT("/:session/effects/:index/uniforms/:name", api.setUniform)
		s.GET("/:session/uniforms/watch", api.watchUniforms)
	}
}

// HistoryRouter serves stored pipeline records and their specs.
func HistoryRouter(r *gin.RouterGroup, api *API) {
	h := r.Group("/history")
	{
		h.GET("", api.history)
		h.GET("/:id", api.historyRecord)
		h.GET("/:id/spec", api.historySpec)
	}
}
