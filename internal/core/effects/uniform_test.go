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

package effects_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/effects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStrength() *effects.Uniform {
	return effects.NewUniform("uStrength", "Strength", "", effects.FloatValue(0.5),
		&effects.Range{Min: effects.FloatValue(0), Max: effects.FloatValue(1)})
}

func TestUniformStartsAtDefault(t *testing.T) {
	u := newStrength()
	assert.Equal(t, effects.KindFloat, u.Kind)
	assert.Equal(t, effects.FloatValue(0.5), u.Value())
	assert.Equal(t, u.Default, u.Value())
}

// Listeners run once per distinct change, in subscription order.
func TestUniformNotifiesInOrder(t *testing.T) {
	u := newStrength()
	var calls []string
	u.Subscribe(func(v effects.Value) { calls = append(calls, "a") })
	u.Subscribe(func(v effects.Value) { calls = append(calls, "b") })

	changed, err := u.SetValue(effects.FloatValue(0.8))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Equal(t, effects.FloatValue(0.8), u.Value())
}

func TestUniformEqualValueIsNoop(t *testing.T) {
	u := newStrength()
	count := 0
	u.Subscribe(func(effects.Value) { count++ })

	changed, err := u.SetValue(effects.FloatValue(0.5))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, count)

	_, _ = u.SetValue(effects.FloatValue(0.9))
	_, _ = u.SetValue(effects.FloatValue(0.9))
	assert.Equal(t, 1, count)
}

func TestUniformRejectsOtherKind(t *testing.T) {
	u := newStrength()
	count := 0
	u.Subscribe(func(effects.Value) { count++ })

	changed, err := u.SetValue(effects.IntValue(1))
	assert.True(t, errors.Is(err, effects.ErrKindMismatch))
	assert.False(t, changed)
	assert.Equal(t, 0, count)
	assert.Equal(t, effects.FloatValue(0.5), u.Value())
}

func TestUniformUnsubscribe(t *testing.T) {
	u := newStrength()
	var got []effects.Value
	sub := u.Subscribe(func(v effects.Value) { got = append(got, v) })
	assert.Equal(t, 1, u.ListenerCount())

	assert.True(t, u.Unsubscribe(sub))
	assert.False(t, u.Unsubscribe(sub), "a token is consumed by its first use")
	assert.False(t, u.Unsubscribe(effects.Subscription{}))

	_, _ = u.SetValue(effects.FloatValue(0.1))
	assert.Empty(t, got)
	assert.Equal(t, 0, u.ListenerCount())
}

func TestUniformReset(t *testing.T) {
	u := newStrength()
	_, _ = u.SetValue(effects.FloatValue(0.2))
	assert.True(t, u.Reset())
	assert.Equal(t, u.Default, u.Value())
	assert.False(t, u.Reset())
}

func TestUniformListenerMayReadValue(t *testing.T) {
	u := newStrength()
	var seen effects.Value
	u.Subscribe(func(effects.Value) { seen = u.Value() })
	_, _ = u.SetValue(effects.FloatValue(0.3))
	assert.Equal(t, effects.FloatValue(0.3), seen)
}

func TestUniformConcurrentSetters(t *testing.T) {
	u := effects.NewUniform("uCount", "", "", effects.IntValue(0), nil)
	var mu sync.Mutex
	notified := 0
	u.Subscribe(func(effects.Value) {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	changes := make([]bool, 64)
	for i := range changes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			changes[i], _ = u.SetValue(effects.IntValue(int64(i + 1)))
		}(i)
	}
	wg.Wait()

	want := 0
	for _, c := range changes {
		if c {
			want++
		}
	}
	assert.Equal(t, want, notified)
}

func TestUniformJSON(t *testing.T) {
	u := newStrength()
	_, _ = u.SetValue(effects.FloatValue(0.75))
	b, err := u.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"parameterName": "uStrength",
		"displayName": "Strength",
		"type": "float",
		"valueRange": [0, 1],
		"defaultValue": 0.5,
		"value": 0.75
	}`, string(b))
}
