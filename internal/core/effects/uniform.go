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

package effects

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Listener receives the new value of a uniform after it changes.
type Listener func(Value)

// Subscription identifies one registered listener. The zero Subscription never
// matches a listener.
type Subscription struct {
	id uint64
}

type subscriber struct {
	id uint64
	fn Listener
}

// Uniform is a named, typed shader input whose current value can be observed.
// The descriptive fields are fixed at construction.
type Uniform struct {
	Name        string
	DisplayName string
	Description string
	Kind        Kind
	Default     Value
	Range       *Range

	mu          sync.Mutex
	value       Value
	lastID      uint64
	subscribers []subscriber
}

// NewUniform creates a uniform whose current value starts at def. The kind of
// the uniform is the kind of def.
func NewUniform(name, displayName, description string, def Value, rng *Range) *Uniform {
	return &Uniform{
		Name:        name,
		DisplayName: displayName,
		Description: description,
		Kind:        def.Kind(),
		Default:     def,
		Range:       rng,
		value:       def,
	}
}

// Value returns the current value.
func (u *Uniform) Value() Value {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.value
}

// SetValue replaces the current value and notifies listeners in the order
// they subscribed. Assigning the current value again does nothing and returns
// false. Listeners are invoked on the caller's goroutine after the lock is
// released, so a listener may read the uniform.
func (u *Uniform) SetValue(v Value) (bool, error) {
	if v.Kind() != u.Kind {
		return false, fmt.Errorf("%w: %q is %s, got %s", ErrKindMismatch, u.Name, u.Kind, v.Kind())
	}

	u.mu.Lock()
	if u.value == v {
		u.mu.Unlock()
		return false, nil
	}
	u.value = v
	listeners := make([]Listener, len(u.subscribers))
	for i, s := range u.subscribers {
		listeners[i] = s.fn
	}
	u.mu.Unlock()

	for _, fn := range listeners {
		fn(v)
	}
	return true, nil
}

// Reset restores the default value, notifying listeners if it differs.
func (u *Uniform) Reset() bool {
	changed, _ := u.SetValue(u.Default)
	return changed
}

// Subscribe registers fn and returns the token that removes it again.
func (u *Uniform) Subscribe(fn Listener) Subscription {
	if fn == nil {
		return Subscription{}
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lastID++
	u.subscribers = append(u.subscribers, subscriber{id: u.lastID, fn: fn})
	return Subscription{id: u.lastID}
}

// Unsubscribe removes the listener behind s. It reports false when s was
// already removed or never belonged to this uniform.
func (u *Uniform) Unsubscribe(s Subscription) bool {
	if s.id == 0 {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, sub := range u.subscribers {
		if sub.id == s.id {
			u.subscribers = append(u.subscribers[:i], u.subscribers[i+1:]...)
			return true
		}
	}
	return false
}

// ListenerCount returns the number of active subscriptions.
func (u *Uniform) ListenerCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.subscribers)
}

func (u *Uniform) unsubscribeAll() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.subscribers = nil
}

// MarshalJSON writes the uniform declaration with its current value.
func (u *Uniform) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name        string `json:"parameterName"`
		DisplayName string `json:"displayName,omitempty"`
		Description string `json:"description,omitempty"`
		Kind        Kind   `json:"type"`
		Range       *Range `json:"valueRange,omitempty"`
		Default     Value  `json:"defaultValue"`
		Value       Value  `json:"value"`
	}{
		Name:        u.Name,
		DisplayName: u.DisplayName,
		Description: u.Description,
		Kind:        u.Kind,
		Range:       u.Range,
		Default:     u.Default,
		Value:       u.Value(),
	})
}
