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

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/effects"
	"github.com/ohler55/ojg/oj"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ActivePipeline is the pipeline currently applied for one session.
type ActivePipeline struct {
	Id          string            `json:"id"`
	Session     string            `json:"session"`
	ActivatedAt time.Time         `json:"activated_at"`
	Pipeline    *effects.Pipeline `json:"pipeline"`
	lastUsed    atomic.Int64
}

// LastUsed is the activation time or the time of the last uniform change,
// whichever is later.
func (a *ActivePipeline) LastUsed() time.Time {
	return time.Unix(0, a.lastUsed.Load())
}

func (a *ActivePipeline) touch(now time.Time) {
	a.lastUsed.Store(now.UnixNano())
}

// PipelineRegistry keeps one active pipeline per session. Activating a new
// pipeline releases the old one, ending every subscription on its uniforms.
type PipelineRegistry struct {
	mu       sync.RWMutex
	active   map[string]*ActivePipeline
	watchers map[string]map[uint64]chan UniformChange
	lastID   uint64
	changes  metric.Int64Counter
	logger   *slog.Logger
}

// NewPipelineRegistry creates an empty registry.
//
// Inputs:
//   - logger: Receives activation, eviction and dropped-notification events.
//
// Outputs:
//   - *PipelineRegistry: A registry holding no sessions; safe for concurrent
//     use by the workflow, the HTTP handlers and the eviction job.
func NewPipelineRegistry(logger *slog.Logger) *PipelineRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	changes, err := otel.Meter("github.com/jaycherian/gcp-go-vibe-effects").Int64Counter("uniform.counter.change")
	if err != nil {
		logger.Warn("cannot create uniform change counter", "error", err)
	}
	return &PipelineRegistry{
		active:   make(map[string]*ActivePipeline),
		watchers: make(map[string]map[uint64]chan UniformChange),
		changes:  changes,
		logger:   logger,
	}
}

// Activate makes p the session's pipeline and returns the entry. Every uniform
// of p is observed so value changes are counted, logged and sent to watchers.
//
// Inputs:
//   - session: The session to update; created when absent.
//   - id: The pipeline record id, kept for history lookups.
//   - p: The translated pipeline. The registry owns it from here on.
//
// Outputs:
//   - *ActivePipeline: The new entry. The session's previous pipeline, if
//     any, has been released and its listeners removed.
func (r *PipelineRegistry) Activate(session string, id string, p *effects.Pipeline) *ActivePipeline {
	entry := &ActivePipeline{Id: id, Session: session, ActivatedAt: time.Now(), Pipeline: p}
	entry.touch(entry.ActivatedAt)
	for i, d := range p.Effects {
		if c, ok := d.(*effects.CustomShaderEffect); ok {
			for _, u := range c.Uniforms {
				r.observe(entry, i, u)
			}
		}
	}

	r.mu.Lock()
	previous := r.active[session]
	r.active[session] = entry
	r.mu.Unlock()

	if previous != nil && previous.Pipeline != p {
		previous.Pipeline.Release()
	}
	r.logger.Info("activated pipeline", "session", session, "id", id, "effects", len(p.Effects))
	return entry
}

func (r *PipelineRegistry) observe(entry *ActivePipeline, index int, u *effects.Uniform) {
	name := u.Name
	u.Subscribe(func(v effects.Value) {
		entry.touch(time.Now())
		if r.changes != nil {
			r.changes.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(v.Kind()))))
		}
		r.logger.Debug("uniform changed", "session", entry.Session, "uniform", name, "value", v.String())
		r.notify(UniformChange{Session: entry.Session, PipelineId: entry.Id, EffectIndex: index, Uniform: name, Value: v})
	})
}

// Get returns the session's active pipeline.
func (r *PipelineRegistry) Get(session string) (*ActivePipeline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.active[session]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, session)
	}
	return entry, nil
}

// Deactivate removes and releases the session's pipeline.
func (r *PipelineRegistry) Deactivate(session string) bool {
	r.mu.Lock()
	entry, ok := r.active[session]
	delete(r.active, session)
	r.mu.Unlock()
	if ok {
		entry.Pipeline.Release()
	}
	return ok
}

// Sessions lists sessions with an active pipeline, sorted.
func (r *PipelineRegistry) Sessions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.active))
	for s := range r.active {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Uniform finds a uniform of the custom effect at position index.
func (r *PipelineRegistry) Uniform(session string, index int, name string) (*effects.Uniform, error) {
	entry, err := r.Get(session)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(entry.Pipeline.Effects) {
		return nil, fmt.Errorf("%w: index %d", ErrEffectNotFound, index)
	}
	c, ok := entry.Pipeline.Effects[index].(*effects.CustomShaderEffect)
	if !ok {
		return nil, fmt.Errorf("%w: effect %d has no uniforms", ErrEffectNotFound, index)
	}
	u, ok := c.Uniform(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUniformNotFound, name)
	}
	return u, nil
}

// SetUniform decodes raw JSON as a value of the uniform's kind and assigns it.
//
// Inputs:
//   - session: The session owning the active pipeline.
//   - index: Position of a custom effect in the pipeline.
//   - name: The uniform's parameterName.
//   - raw: A JSON number, numeric string or array, read as for defaultValue.
//
// Outputs:
//   - bool: Whether the value changed; listeners and watchers only hear of
//     changes.
//   - error: ErrUnknownSession, ErrEffectNotFound, ErrUniformNotFound or
//     ErrInvalidValue.
func (r *PipelineRegistry) SetUniform(session string, index int, name string, raw []byte) (bool, error) {
	u, err := r.Uniform(session, index, name)
	if err != nil {
		return false, err
	}
	decoded, err := oj.Parse(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	v, err := effects.ParseValue(u.Kind, decoded)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return u.SetValue(v)
}

// EvictIdle deactivates every session whose pipeline has not been used since
// now minus maxIdle and returns the evicted sessions, sorted.
func (r *PipelineRegistry) EvictIdle(maxIdle time.Duration, now time.Time) []string {
	cutoff := now.Add(-maxIdle)
	var idle []*ActivePipeline

	r.mu.Lock()
	for session, entry := range r.active {
		if entry.LastUsed().Before(cutoff) {
			idle = append(idle, entry)
			delete(r.active, session)
		}
	}
	r.mu.Unlock()

	out := make([]string, 0, len(idle))
	for _, entry := range idle {
		entry.Pipeline.Release()
		out = append(out, entry.Session)
	}
	sort.Strings(out)
	if len(out) > 0 {
		r.logger.Info("evicted idle pipelines", "sessions", out, "max_idle", maxIdle.String())
	}
	return out
}
