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

package cor_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/cor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upper turns its string input into upper case, or fails on "boom".
type upper struct {
	cor.BaseCommand
	ran int
}

func newUpper(name string) *upper {
	return &upper{BaseCommand: *cor.NewBaseCommand(name)}
}

func (u *upper) Execute(context cor.Context) {
	u.ran++
	in, _ := cor.Value[string](context, u.GetInputParam())
	if in == "boom" {
		u.Fail(context, errors.New("exploded"))
		return
	}
	u.Succeed(context, strings.ToUpper(in)+"!")
}

func newContext(in any) cor.Context {
	c := cor.NewBaseContext()
	c.SetContext(context.Background())
	c.Add(cor.CtxIn, in)
	return c
}

func TestChainPipesOutputToInput(t *testing.T) {
	first, second := newUpper("first"), newUpper("second")
	second.OutputParamName = "result"
	chain := cor.NewBaseChain("test")
	chain.AddCommand(first).AddCommand(second)

	c := newContext("hi")
	chain.Execute(c)

	require.False(t, c.HasErrors())
	assert.Equal(t, "HI!!", c.Get("result"))
	assert.Equal(t, "HI!!", c.Get(cor.CtxIn))
	assert.Nil(t, c.Get(cor.CtxOut))
	assert.Equal(t, []string{"first", "second"}, chain.Commands())
	assert.Equal(t, context.Background(), c.GetContext())
}

func TestChainStopsOnFailure(t *testing.T) {
	first, second := newUpper("first"), newUpper("second")
	chain := cor.NewBaseChain("test")
	chain.AddCommand(first).AddCommand(second)

	c := newContext("boom")
	chain.Execute(c)

	assert.True(t, c.HasErrors())
	assert.Equal(t, 1, first.ran)
	assert.Equal(t, 0, second.ran)
	assert.ErrorContains(t, c.Err(), "first: exploded")
}

func TestChainContinueOnFailure(t *testing.T) {
	first, second := newUpper("first"), newUpper("second")
	second.InputParamName = "fallback"
	chain := cor.NewBaseChain("test").ContinueOnFailure(true)
	chain.AddCommand(first).AddCommand(second)

	c := newContext("boom")
	c.Add("fallback", "ok")
	chain.Execute(c)

	assert.Equal(t, 1, second.ran)
	assert.Len(t, c.GetErrors(), 1)
	assert.Equal(t, "OK!", c.Get(cor.CtxIn))
}

func TestChainSkipsCommandWithoutInput(t *testing.T) {
	first := newUpper("first")
	chain := cor.NewBaseChain("test")
	chain.AddCommand(first)

	c := newContext(nil)
	chain.Execute(c)
	assert.Equal(t, 0, first.ran)
	assert.False(t, c.HasErrors())
	assert.NoError(t, c.Err())
}

func TestContextValue(t *testing.T) {
	c := cor.NewBaseContext()
	c.Add("n", 3).Add("s", "x")

	n, ok := cor.Value[int](c, "n")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = cor.Value[string](c, "n")
	assert.False(t, ok)

	c.Remove("s")
	_, ok = cor.Value[string](c, "s")
	assert.False(t, ok)
}
