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

// A BaseChain runs its commands one after another:
//
//  1. A span named "<chain>_execute" wraps the whole run.
//  2. Each command gets a child span. Its Go context is swapped in while
//     the command executes and swapped back afterwards so sibling spans
//     stay siblings.
//  3. Once any command has recorded an error the remaining commands are
//     skipped, unless ContinueOnFailure(true) was set.
//  4. After each command the value it left in CtxOut moves to CtxIn.

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BaseChain is a Command made of other commands.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool
	commands          []Command
}

// NewBaseChain creates an empty chain with its own tracer and counters.
func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

// ContinueOnFailure keeps running later commands after one has failed.
func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

// AddCommand appends command to the chain.
func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// Commands returns the names of the chain's commands in execution order.
func (c *BaseChain) Commands() []string {
	names := make([]string, len(c.commands))
	for i, cmd := range c.commands {
		names[i] = cmd.GetName()
	}
	return names
}

// IsExecutable only needs a Go context; the first command checks its own input.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil
}

// Execute runs the commands in order over chCtx. Errors stay in chCtx;
// read them with Err or GetErrors.
func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()
	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()
	defer chCtx.SetContext(parentCtx)
	chCtx.SetContext(outerCtx)

	for _, command := range c.commands {
		if chCtx.HasErrors() && !c.continueOnFailure {
			chainSpan.AddEvent("chain stopped", traceAttrs(command.GetName())...)
			break
		}

		commandCtx, commandSpan := c.Tracer.Start(outerCtx, command.GetName())
		if command.IsExecutable(chCtx) {
			chCtx.SetContext(commandCtx)
			command.Execute(chCtx)
			chCtx.SetContext(outerCtx)
		} else {
			slog.DebugContext(commandCtx, "skipping command", "chain", c.GetName(), "command", command.GetName())
			commandSpan.SetAttributes(attribute.Bool("skipped", true))
		}

		if err, failed := chCtx.GetErrors()[command.GetName()]; failed {
			commandSpan.RecordError(err)
			commandSpan.SetStatus(codes.Error, err.Error())
		} else {
			commandSpan.SetStatus(codes.Ok, "")
		}
		commandSpan.End()

		out := chCtx.Get(CtxOut)
		chCtx.Remove(CtxIn)
		if out != nil {
			chCtx.Add(CtxIn, out)
		}
		chCtx.Remove(CtxOut)
	}

	if chCtx.HasErrors() {
		if c.ErrorCounter != nil {
			c.ErrorCounter.Add(outerCtx, 1)
		}
		chainSpan.SetStatus(codes.Error, "chain failed")
		return
	}
	if c.SuccessCounter != nil {
		c.SuccessCounter.Add(outerCtx, 1)
	}
	chainSpan.SetStatus(codes.Ok, "")
}

func traceAttrs(next string) []trace.EventOption {
	return []trace.EventOption{trace.WithAttributes(attribute.String("next_command", next))}
}
