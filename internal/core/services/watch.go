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

import "github.com/jaycherian/gcp-go-vibe-effects/internal/core/effects"

// UniformChange is published to session watchers after a uniform of the
// active pipeline takes a new value.
type UniformChange struct {
	Session     string        `json:"session"`
	PipelineId  string        `json:"pipeline_id"`
	EffectIndex int           `json:"effect_index"`
	Uniform     string        `json:"uniform"`
	Value       effects.Value `json:"value"`
}

// Watch returns a channel receiving the session's uniform changes, across
// pipeline activations, and a function that stops the watch and closes the
// channel. Changes are dropped for a watcher whose buffer is full.
//
// Inputs:
//   - session: The session to follow. It need not be active yet.
//   - buffer: Changes held for a slow reader before new ones are dropped.
//
// Outputs:
//   - <-chan UniformChange: Closed by stop, never by the registry.
//   - func(): Stops the watch; safe to call more than once.
func (r *PipelineRegistry) Watch(session string, buffer int) (<-chan UniformChange, func()) {
	ch := make(chan UniformChange, buffer)

	r.mu.Lock()
	r.lastID++
	id := r.lastID
	if r.watchers[session] == nil {
		r.watchers[session] = make(map[uint64]chan UniformChange)
	}
	r.watchers[session][id] = ch
	r.mu.Unlock()

	stop := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if w, ok := r.watchers[session][id]; ok {
			delete(r.watchers[session], id)
			if len(r.watchers[session]) == 0 {
				delete(r.watchers, session)
			}
			close(w)
		}
	}
	return ch, stop
}

// WatcherCount is the number of open watches on session.
func (r *PipelineRegistry) WatcherCount(session string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.watchers[session])
}

func (r *PipelineRegistry) notify(change UniformChange) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.watchers[change.Session] {
		select {
		case ch <- change:
		default:
			r.logger.Warn("uniform watcher is behind, dropping change", "session", change.Session, "uniform", change.Uniform)
		}
	}
}
