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
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/effects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTranslateStdin(t *testing.T) {
	out, err := execute(t, "```json\n"+effects.ExampleDescription()+"\n```", "translate", "-")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Warm Vignette", got["name"])
	assert.Len(t, got["effects"], 3)
}

func TestTranslateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.json")
	require.NoError(t, os.WriteFile(path, []byte(effects.ExampleDescription()), 0o600))

	out, err := execute(t, "", "translate", "--compact", "--max-effects", "1", path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, `"requested":3`)

	_, err = execute(t, "", "translate", "--max-effects", "1", "--strict", path)
	assert.ErrorIs(t, err, ErrDiagnostics)

	_, err = execute(t, "", "translate", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestTranslateStrictReportsDroppedUniforms(t *testing.T) {
	payload := `{"effects":[{"effectType":"custom","name":"c","shaderSource":"s","uniforms":[
		{"parameterName":"uNoRange","type":"float","defaultValue":0.5},
		{"parameterName":"uKept","type":"float","valueRange":[0,1],"defaultValue":0.1}
	]}]}`
	_, err := execute(t, payload, "translate", "--strict")
	require.ErrorIs(t, err, ErrDiagnostics)
	assert.Contains(t, err.Error(), "0 of 1 effects dropped, 1 uniforms dropped")
	assert.Contains(t, err.Error(), "effect 0 uniform uNoRange")
}

func TestTranslateMalformed(t *testing.T) {
	_, err := execute(t, "the model refused", "translate")
	assert.ErrorIs(t, err, effects.ErrMalformedSpec)
}

func TestSchemaAndExample(t *testing.T) {
	out, err := execute(t, "", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"effects"`)

	out, err = execute(t, "", "example")
	require.NoError(t, err)
	assert.Equal(t, effects.ExampleDescription()+"\n", out)
}
