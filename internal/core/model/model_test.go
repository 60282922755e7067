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

package model_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewEffectPipelineRecord checks the derived id, the timestamp and the
// allocated diagnostics slice.
func TestNewEffectPipelineRecord(t *testing.T) {
	record := model.NewEffectPipelineRecord("session-1", `{"effects":[]}`)

	want := uuid.NewSHA1(uuid.NameSpaceURL, []byte("session-1\n"+`{"effects":[]}`))
	assert.Equal(t, want.String(), record.Id)
	assert.Equal(t, "session-1", record.Session)
	assert.WithinDuration(t, time.Now(), record.CreateDate, time.Second)
	assert.NotNil(t, record.Diagnostics)

	assert.Equal(t, record.Id, model.PipelineId("session-1", `{"effects":[]}`))
	assert.NotEqual(t, record.Id, model.PipelineId("session-2", `{"effects":[]}`))
}

func TestParseEffectRequest(t *testing.T) {
	req, err := model.ParseEffectRequest(`{"session":"s","prompt":"film noir"}`)
	require.NoError(t, err)
	assert.Equal(t, "film noir", req.Prompt)
	assert.False(t, req.IsReapply())

	req, err = model.ParseEffectRequest("  make it look like an old VHS tape ")
	require.NoError(t, err)
	assert.Equal(t, "make it look like an old VHS tape", req.Prompt)

	req, err = model.ParseEffectRequest(`{"session":"s","spec":"{\"effects\":[]}"}`)
	require.NoError(t, err)
	assert.True(t, req.IsReapply())

	_, err = model.ParseEffectRequest(`{"session":"s"}`)
	assert.ErrorIs(t, err, model.ErrEmptyRequest)

	_, err = model.ParseEffectRequest(`{"session":`)
	assert.Error(t, err)
}
