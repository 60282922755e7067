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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

const (
	ConfigFileBaseName  = ".env"
	ConfigFileExtension = ".toml"
	ConfigSeparator     = "."
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // Directory holding the config files.
	EnvConfigRuntime    = "GCP_RUNTIME"       // Runtime overlay to apply, e.g. "local" or "test".
	DefaultRuntime      = "test"
	MaxRetries          = 3
)

var ErrEmptyResponse = errors.New("model returned no text")

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// ConfigFiles returns the base and runtime overlay paths LoadConfig reads.
func ConfigFiles() (base string, overlay string) {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix = prefix + string(os.PathSeparator)
	}
	runtime := os.Getenv(EnvConfigRuntime)
	if runtime == "" {
		runtime = DefaultRuntime
	}
	base = prefix + ConfigFileBaseName + ConfigFileExtension
	overlay = prefix + ConfigFileBaseName + ConfigSeparator + runtime + ConfigFileExtension
	return base, overlay
}

// LoadConfig decodes the base configuration file and then the runtime
// overlay into baseConfig. Missing files are skipped; values in the overlay
// replace values from the base file.
func LoadConfig(baseConfig any) error {
	base, overlay := ConfigFiles()
	for _, name := range []string{base, overlay} {
		if !fileExists(name) {
			slog.Debug("configuration file not found", "file", name)
			continue
		}
		if _, err := toml.DecodeFile(name, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
		slog.Info("loaded configuration", "file", name)
	}
	return nil
}

// ContentGenerator is the part of a generative model the workflows call.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error)
}

// GenerateResponse asks model for content and returns the concatenated text
// of every candidate part. This is the only place model calls are retried.
//
// Inputs:
//   - ctx: Cancelling it stops further attempts.
//   - inputTokenCounter, outputTokenCounter: Token usage; may be nil.
//   - retryCounter: Incremented once per retry; may be nil.
//   - model: The model, usually a *QuotaAwareGenerativeAIModel.
//   - content: The prompt.
//
// Outputs:
//   - string: The response text.
//   - error: The last call's error after MaxRetries+1 attempts, or
//     ErrEmptyResponse when the model answered with no text.
func GenerateResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	retryCounter metric.Int64Counter,
	model ContentGenerator,
	content []*genai.Content) (string, error) {

	var (
		resp *genai.GenerateContentResponse
		err  error
	)
	for try := 0; try <= MaxRetries; try++ {
		if try > 0 && retryCounter != nil {
			retryCounter.Add(ctx, 1)
		}
		resp, err = model.GenerateContent(ctx, content)
		if err == nil || ctx.Err() != nil {
			break
		}
		slog.WarnContext(ctx, "generation failed", "attempt", try+1, "error", err)
	}
	if err != nil {
		return "", err
	}

	if resp.UsageMetadata != nil {
		if inputTokenCounter != nil {
			inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		}
		if outputTokenCounter != nil {
			outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
		}
	}

	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

// NewTextPart wraps in as a single user content.
func NewTextPart(in string) []*genai.Content {
	return genai.Text(in)
}
