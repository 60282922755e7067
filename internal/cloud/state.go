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
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

// ServiceClients holds every connection to Google Cloud the application
// uses. It is built once at startup and shared by handlers and workflows.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	GenAIClient     *genai.Client
	BiqQueryClient  *bigquery.Client
	IAMClient       *credentials.IamCredentialsClient // Signs spec download URLs.
	PubSubListeners map[string]*PubSubListener        // Keyed like Config.TopicSubscriptions.
	AgentModels     map[string]*QuotaAwareGenerativeAIModel
}

// Close releases the clients that hold connections.
func (c *ServiceClients) Close() {
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
	if c.BiqQueryClient != nil {
		_ = c.BiqQueryClient.Close()
	}
	if c.IAMClient != nil {
		_ = c.IAMClient.Close()
	}
}

// NewModelConfig maps a model section of the configuration onto a request
// configuration.
func NewModelConfig(values VertexAiLLMModel) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](values.Temperature),
		TopP:             genai.Ptr[float32](values.TopP),
		TopK:             genai.Ptr[float32](values.TopK),
		MaxOutputTokens:  values.MaxTokens,
		SafetySettings:   DefaultSafetySettings,
		ResponseMIMEType: values.OutputFormat,
	}
	if values.SystemInstructions != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}}
	}
	return config
}

// NewCloudServiceClients connects to every service named in config.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	clients := &ServiceClients{StorageClient: sc}

	clients.PubsubClient, err = pubsub.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		clients.Close()
		return nil, fmt.Errorf("pubsub client: %w", err)
	}

	slog.Info("creating genai client", "project", config.Application.GoogleProjectId, "location", config.Application.GoogleLocation)
	clients.GenAIClient, err = genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		clients.Close()
		return nil, fmt.Errorf("genai client: %w", err)
	}

	clients.BiqQueryClient, err = bigquery.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		clients.Close()
		return nil, fmt.Errorf("bigquery client: %w", err)
	}

	clients.IAMClient, err = credentials.NewIamCredentialsClient(ctx)
	if err != nil {
		clients.Close()
		return nil, fmt.Errorf("iam credentials client: %w", err)
	}

	clients.PubSubListeners = make(map[string]*PubSubListener)
	for key, values := range config.TopicSubscriptions {
		listener, err := NewPubSubListener(clients.PubsubClient, values.Name, nil)
		if err != nil {
			clients.Close()
			return nil, err
		}
		clients.PubSubListeners[key] = listener
	}

	clients.AgentModels = make(map[string]*QuotaAwareGenerativeAIModel)
	for key, values := range config.AgentModels {
		clients.AgentModels[key] = NewQuotaAwareModel(NewModelConfig(values), values.Model, clients.GenAIClient.Models, values.RateLimit)
		slog.Debug("configured agent model", "key", key, "model", values.Model)
	}
	return clients, nil
}
