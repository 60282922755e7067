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

package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PubSubListener feeds every message of one subscription into a command.
// A message is acknowledged only when the command records no error; failed
// messages are left for redelivery under the subscription's retry policy.
type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	command      cor.Command
}

// NewPubSubListener binds a subscription to the command that handles its
// messages.
//
// Inputs:
//   - pubsubClient: An initialized *pubsub.Client.
//   - subscriptionID: The id of the subscription to receive from.
//   - command: The command run for every message; may be nil and attached
//     later with SetCommand.
//
// Outputs:
//   - *PubSubListener: The listener, not yet receiving. Call Listen to start.
//   - error: Always nil; kept so callers treat construction as fallible.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (*PubSubListener, error) {
	return &PubSubListener{
		client:       pubsubClient,
		subscription: pubsubClient.Subscription(subscriptionID),
		command:      command,
	}, nil
}

// SetCommand attaches command unless one is already set.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Handle runs the command over one message body and reports whether the
// message should be acknowledged.
func (m *PubSubListener) Handle(ctx context.Context, data []byte) bool {
	if m.command == nil {
		slog.ErrorContext(ctx, "no command attached to listener", "subscription", m.subscription.ID())
		return false
	}
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, string(data))
	m.command.Execute(chainCtx)

	if err := chainCtx.Err(); err != nil {
		slog.ErrorContext(ctx, "effect request failed", "subscription", m.subscription.ID(), "error", err)
		return false
	}
	return true
}

// Listen receives messages on a background goroutine until ctx is cancelled.
func (m *PubSubListener) Listen(ctx context.Context) {
	slog.Info("listening", "subscription", m.subscription.ID())
	tracer := otel.Tracer("message-listener")

	go func() {
		err := m.subscription.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
			spanCtx, span := tracer.Start(msgCtx, "receive-message")
			defer span.End()
			span.SetAttributes(
				attribute.String("messaging.message.id", msg.ID),
				attribute.Int("messaging.message.body.size", len(msg.Data)),
			)

			if m.Handle(spanCtx, msg.Data) {
				span.SetStatus(codes.Ok, "")
				msg.Ack()
				return
			}
			span.SetStatus(codes.Error, "failed")
		})
		if err != nil {
			slog.Error("error receiving messages", "subscription", m.subscription.ID(), "error", err)
		}
	}()
}
