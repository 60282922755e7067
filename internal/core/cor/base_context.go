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

package cor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// BaseContext is a Context safe for use by commands that fan out work to
// goroutines.
type BaseContext struct {
	mu     sync.RWMutex
	data   map[string]any
	errors map[string]error
	ctx    context.Context
}

// NewBaseContext creates an empty context. SetContext must be called
// before the context is passed to a chain.
func NewBaseContext() Context {
	return &BaseContext{
		data:   make(map[string]any),
		errors: make(map[string]error),
	}
}

func (c *BaseContext) SetContext(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = ctx
}

func (c *BaseContext) GetContext() context.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ctx
}

// Add stores value under key, replacing any previous value.
func (c *BaseContext) Add(key string, value any) Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return c
}

// Get returns the value under key, or nil.
func (c *BaseContext) Get(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data[key]
}

func (c *BaseContext) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// AddError records err for the command named key.
func (c *BaseContext) AddError(key string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors[key] = err
}

// GetErrors returns a copy of the recorded errors.
func (c *BaseContext) GetErrors() map[string]error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]error, len(c.errors))
	for k, v := range c.errors {
		out[k] = v
	}
	return out
}

func (c *BaseContext) HasErrors() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.errors) > 0
}

// Err joins recorded errors ordered by command name so the message is stable.
func (c *BaseContext) Err() error {
	errs := c.GetErrors()
	if len(errs) == 0 {
		return nil
	}
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	joined := make([]error, 0, len(names))
	for _, name := range names {
		joined = append(joined, fmt.Errorf("%s: %w", name, errs[name]))
	}
	return errors.Join(joined...)
}

// Value returns the value stored under key when it has type T.
func Value[T any](c Context, key string) (T, bool) {
	v, ok := c.Get(key).(T)
	return v, ok
}
