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

// Package cor implements the chain of responsibility used to run effect
// workflows. A Chain runs Commands in order against a shared Context. Each
// command reads its input from the context, records its output (or an error
// keyed by its name) and the chain pipes the output into the next command.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Keys the chain uses to pipe one command's output into the next command.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the state shared by the commands of one workflow run.
type Context interface {
	// SetContext replaces the Go context. The chain swaps in a span context
	// for every command it runs.
	SetContext(ctx context.Context)
	GetContext() context.Context

	// Add stores value under key and returns the receiver for chaining.
	Add(key string, value any) Context
	Get(key string) any
	Remove(key string)

	// AddError records err against the name of the command that failed.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool
	// Err joins every recorded error, or returns nil.
	Err() error
}

// Executable is the part of a command the chain drives: a readiness check
// and the work itself.
type Executable interface {
	Execute(context Context)
}

// Command is one step of a workflow.
type Command interface {
	Executable

	GetName() string
	GetInputParam() string
	GetOutputParam() string

	// IsExecutable reports whether the context holds what Execute needs.
	// Commands that are not executable are skipped by the chain.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command made of other commands, so chains nest.
type Chain interface {
	Command

	// ContinueOnFailure keeps the chain running after a command records an error.
	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain
}
