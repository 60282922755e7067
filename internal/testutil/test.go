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

// Package test provides helpers and in-memory fakes for the test suite: a
// cached test configuration, sample messages and stand-ins for the model,
// Cloud Storage and BigQuery.
package test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-vibe-effects/internal/cloud"
)

// StateManager caches the test configuration so the TOML files are decoded
// once per test binary.
type StateManager struct {
	once   sync.Once
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is set.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// ConfigDir returns the repository's configs directory, independent of the
// package the test runs in.
func ConfigDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "configs"
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "configs")
}

// SetupOS points the configuration loader at the test overlay
// (configs/.env.test.toml).
func SetupOS() (err error) {
	if err = os.Setenv(cloud.EnvConfigFilePrefix, ConfigDir()); err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig returns the cached test configuration.
func GetConfig() *cloud.Config {
	state.once.Do(func() {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load test configuration: %v\n", err)
		}
		state.config = config
	})
	return state.config
}

// GetTestSpecNotification is a storage notification for a spec uploaded to
// the incoming folder of session "studio-a".
func GetTestSpecNotification() string {
	return `{
  "kind": "storage#object",
  "id": "vibe_effect_specs/incoming/studio-a/warm.json/1728615848664286",
  "selfLink": "https://www.googleapis.com/storage/v1/b/vibe_effect_specs/o/incoming%2Fstudio-a%2Fwarm.json",
  "name": "incoming/studio-a/warm.json",
  "bucket": "vibe_effect_specs",
  "generation": "1728615848664286",
  "metageneration": "1",
  "contentType": "application/json",
  "timeCreated": "2024-10-11T03:04:08.672Z",
  "updated": "2024-10-11T03:04:08.672Z",
  "storageClass": "STANDARD",
  "size": "812",
  "crc32c": "IYeSTw==",
  "etag": "CN658+yrhYkDEAE="
}`
}

// GetTestObjectNotification is a storage notification for any object, as
// sent when the workflow itself writes to a watched bucket.
func GetTestObjectNotification(bucket, name string) string {
	return fmt.Sprintf(`{"kind":"storage#object","bucket":%q,"name":%q,"contentType":"application/json"}`, bucket, name)
}

// GetTestPromptMessage is a request message as published by the front end.
func GetTestPromptMessage() string {
	return `{"request_id": "req-001", "session": "studio-a", "prompt": "a warm faded film look"}`
}

// GetTestSpec is a small two effect description: one standard effect and a
// custom shader with a single uniform.
func GetTestSpec() string {
	return `{
  "name": "Soft Glow",
  "effects": [
    {"effectType": "well_known", "name": "Brightness", "description": "lift", "parameters": {"brightness": 0.1}},
    {"effectType": "custom", "name": "Glow", "description": "bloom",
     "shaderSource": "uniform float uGlow; void main() { gl_FragColor = vec4(uGlow); }",
     "uniforms": [{"parameterName": "uGlow", "displayName": "Glow", "description": "amount", "type": "float", "valueRange": [0, 1], "defaultValue": [0.4]}]}
  ]
}`
}
