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
	"log/slog"

	"github.com/jaycherian/gcp-go-vibe-effects/internal/cloud"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/cor"
)

// SetupListeners runs the effect workflow for every message on the request
// subscription. Storage notifications for uploaded specs may be routed to the
// same subscription.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, command cor.Command, ctx context.Context) {
	listener, ok := cloudClients.PubSubListeners[config.Application.RequestTopic]
	if !ok {
		slog.Warn("no subscription configured for effect requests", "topic", config.Application.RequestTopic)
		return
	}
	listener.SetCommand(command)
	listener.Listen(ctx)
}
