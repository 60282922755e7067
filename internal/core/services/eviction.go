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
	"fmt"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-vibe-effects/internal/telemetry"
	"github.com/robfig/cron/v3"
)

// NewEvictionScheduler returns a stopped cron scheduler that evicts idle
// sessions. Overlapping runs are skipped.
//
// Inputs:
//   - registry: The registry to sweep.
//   - maxIdle: Sessions unused for this long are deactivated.
//   - spec: A five field cron expression, e.g. "*/5 * * * *".
//   - logger: Receives the scheduler's own events; nil means slog.Default().
//
// Outputs:
//   - *cron.Cron: Call Start to begin and Stop on shutdown.
//   - error: spec could not be parsed.
func NewEvictionScheduler(registry *PipelineRegistry, maxIdle time.Duration, spec string, logger *slog.Logger) (*cron.Cron, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cronLogger := &telemetry.CronLogger{Logger: logger}
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc(spec, func() {
		registry.EvictIdle(maxIdle, time.Now())
	}); err != nil {
		return nil, fmt.Errorf("invalid eviction schedule %q: %w", spec, err)
	}
	return c, nil
}
