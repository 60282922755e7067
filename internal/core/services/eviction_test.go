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

package services_test

import (
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/services"
	"github.com/zeebo/assert"
)

func TestNewEvictionScheduler(t *testing.T) {
	r := services.NewPipelineRegistry(nil)

	c, err := services.NewEvictionScheduler(r, time.Hour, "*/5 * * * *", nil)
	assert.Nil(t, err)
	assert.Equal(t, len(c.Entries()), 1)

	_, err = services.NewEvictionScheduler(r, time.Hour, "every tuesday", nil)
	assert.NotNil(t, err)
}
