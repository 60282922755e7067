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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jaycherian/gcp-go-vibe-effects/internal/cloud"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/services"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/workflow"
	"github.com/robfig/cron/v3"
)

// StateManager holds what the handlers and listeners share.
type StateManager struct {
	config    *cloud.Config
	cloud     *cloud.ServiceClients
	registry  *services.PipelineRegistry
	history   *services.HistoryService
	workflow  *workflow.EffectGenerationWorkflow
	scheduler *cron.Cron
}

var state = &StateManager{}

// SetupOS selects the configuration directory and runtime overlay unless the
// environment already names them.
func SetupOS() (err error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig returns the configuration loaded by InitState, loading it on
// first use when called earlier.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup os: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}

// InitState connects to Google Cloud, builds the workflow and starts the
// listeners and the eviction schedule.
func InitState(ctx context.Context) error {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	state.cloud = cloudClients
	state.registry = services.NewPipelineRegistry(slog.Default())

	state.history = &services.HistoryService{
		BigqueryClient: cloudClients.BiqQueryClient,
		StorageClient:  cloudClients.StorageClient,
		IAMClient:      cloudClients.IAMClient,
		SignerEmail:    config.Application.SignerServiceAccountEmail,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		PipelineTable:  config.BigQueryDataSource.PipelineTable,
	}

	state.workflow, err = workflow.NewEffectGenerationWorkflow(config, cloudClients, state.registry)
	if err != nil {
		return fmt.Errorf("cannot build effect workflow: %w", err)
	}

	maxIdle := time.Duration(config.Registry.IdleMinutes) * time.Minute
	if maxIdle > 0 && config.Registry.EvictionSchedule != "" {
		state.scheduler, err = services.NewEvictionScheduler(state.registry, maxIdle, config.Registry.EvictionSchedule, slog.Default())
		if err != nil {
			return err
		}
		state.scheduler.Start()
	}

	SetupListeners(config, cloudClients, state.workflow, ctx)
	return nil
}

// API returns the handlers bound to the initialized state.
func (s *StateManager) API() *API {
	return &API{
		Workflow:    s.workflow,
		Registry:    s.registry,
		History:     s.history,
		MaxSpecSize: int64(s.config.Translator.MaxSpecSize),
		WatchBuffer: s.config.Server.WatchBuffer,
	}
}

// Close stops the schedule and releases the cloud clients.
func (s *StateManager) Close() {
	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
	}
	if s.cloud != nil {
		s.cloud.Close()
	}
}
