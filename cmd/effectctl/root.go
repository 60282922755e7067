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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/effects"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/services"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/telemetry"
	"github.com/spf13/cobra"
)

// ErrDiagnostics is returned by translate --strict when entries were dropped.
var ErrDiagnostics = errors.New("payload has unresolved entries")

type translateOptions struct {
	maxEffects int
	keepFences bool
	strict     bool
	compact    bool
}

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           "effectctl",
		Short:         "Translate and inspect video effect descriptions",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(slog.New(telemetry.NewHandler(cmd.ErrOrStderr(), telemetry.ParseLevel(logLevel))))
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	root.AddCommand(newTranslateCmd(), newSchemaCmd(), newExampleCmd())
	return root
}

func newTranslateCmd() *cobra.Command {
	opts := translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate [file|-]",
		Short: "Translate a payload and print the resulting pipeline as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if err := services.SniffPayload(data); err != nil {
				return err
			}

			t := effects.NewTranslator(slog.Default())
			t.MaxEffects = opts.maxEffects
			t.KeepFences = opts.keepFences
			pipeline, err := t.Translate(string(data))
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), pipeline, opts.compact); err != nil {
				return err
			}
			if opts.strict && len(pipeline.Diagnostics) > 0 {
				return strictError(pipeline)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.maxEffects, "max-effects", 0, "Ignore entries past this many (0 for no limit)")
	cmd.Flags().BoolVar(&opts.keepFences, "keep-fences", false, "Do not strip Markdown code fences")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail when any entry was dropped")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "Print JSON on one line")
	return cmd
}

// strictError reports dropped effects and dropped uniforms separately, naming
// the first diagnostic so the cause is visible without the JSON output.
func strictError(p *effects.Pipeline) error {
	uniforms := 0
	for _, d := range p.Diagnostics {
		if d.Parameter != "" {
			uniforms++
		}
	}
	first := p.Diagnostics[0]
	where := fmt.Sprintf("effect %d", first.EffectIndex)
	if first.Parameter != "" {
		where += " uniform " + first.Parameter
	}
	return fmt.Errorf("%w: %d of %d effects dropped, %d uniforms dropped (%s: %s)",
		ErrDiagnostics, p.Requested-len(p.Effects), p.Requested, uniforms, where, first.Reason)
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the response schema given to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd.OutOrStdout(), effects.ResponseSchema(), false)
		},
	}
}

func newExampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "example",
		Short: "Print the example payload used in generation prompts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), effects.ExampleDescription())
			return err
		},
	}
}

// readInput reads the named file, or stdin for "-" or no argument.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return data, nil
}

func writeJSON(w io.Writer, v any, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
