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

package cor

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// meterName scopes every command counter.
const meterName = "github.com/jaycherian/gcp-go-vibe-effects"

// BaseCommand carries the name, parameter keys and instrumentation every
// command shares. Concrete commands embed it and implement Execute.
type BaseCommand struct {
	Name            string
	InputParamName  string // defaults to CtxIn
	OutputParamName string // defaults to CtxOut
	Tracer          trace.Tracer
	Meter           metric.Meter
	SuccessCounter  metric.Int64Counter // "<name>.counter.success"
	ErrorCounter    metric.Int64Counter // "<name>.counter.error"
}

// NewBaseCommand wires the tracer, meter and counters for a command called name.
func NewBaseCommand(name string) *BaseCommand {
	meter := otel.Meter(meterName)

	successCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.success", name))
	if err != nil {
		slog.Warn("cannot create success counter", "command", name, "error", err)
	}
	errorCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.error", name))
	if err != nil {
		slog.Warn("cannot create error counter", "command", name, "error", err)
	}

	return &BaseCommand{
		Name:           name,
		Tracer:         otel.Tracer(name),
		Meter:          meter,
		SuccessCounter: successCounter,
		ErrorCounter:   errorCounter,
	}
}

// GetName returns the name used for spans, counters and error keys.
func (c *BaseCommand) GetName() string {
	return c.Name
}

// IsExecutable requires a Go context and a non-nil input value.
func (c *BaseCommand) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil && context.Get(c.GetInputParam()) != nil
}

// GetInputParam returns the context key the command reads.
func (c *BaseCommand) GetInputParam() string {
	if c.InputParamName == "" {
		return CtxIn
	}
	return c.InputParamName
}

// GetOutputParam returns the context key the command writes.
func (c *BaseCommand) GetOutputParam() string {
	if c.OutputParamName == "" {
		return CtxOut
	}
	return c.OutputParamName
}

func (c *BaseCommand) GetTracer() trace.Tracer {
	return c.Tracer
}

func (c *BaseCommand) GetMeter() metric.Meter {
	return c.Meter
}

func (c *BaseCommand) GetSuccessCounter() metric.Int64Counter {
	return c.SuccessCounter
}

func (c *BaseCommand) GetErrorCounter() metric.Int64Counter {
	return c.ErrorCounter
}

// Fail counts an error for the command and records err in the context.
func (c *BaseCommand) Fail(context Context, err error) {
	if c.ErrorCounter != nil {
		c.ErrorCounter.Add(context.GetContext(), 1)
	}
	context.AddError(c.GetName(), err)
}

// Succeed counts a success and publishes out under the command's output key
// and under CtxOut so the chain hands it to the next command.
func (c *BaseCommand) Succeed(context Context, out any) {
	if c.SuccessCounter != nil {
		c.SuccessCounter.Add(context.GetContext(), 1)
	}
	context.Add(c.GetOutputParam(), out)
	context.Add(CtxOut, out)
}
