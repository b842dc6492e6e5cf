// Copyright 2025 TikVault, Inc.
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

// Package cor (Chain of Responsibility) provides the building blocks for
// composing the analysis pipeline as a sequence of commands. The interfaces
// in this file govern how commands, chains, and the shared workflow context
// interact; concrete pipelines live in core/commands and core/workflow.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the reserved keys used to pipe the primary value
// between consecutive commands in a chain.
const (
	// CtxIn is the default key for a command's primary input. The chain
	// populates it with the previous command's output.
	CtxIn = "__IN__"
	// CtxOut is the default key where a command stores its primary output.
	CtxOut = "__OUT__"
)

// Context is the shared state for one workflow execution. It carries data,
// errors, and temp-file bookkeeping between commands.
type Context interface {
	// SetContext sets the Go context.Context used for cancellation and
	// trace propagation.
	SetContext(context context.Context)

	// GetContext retrieves the Go context.Context.
	GetContext() context.Context

	// Add stores a key-value pair. Returns the Context for chaining.
	Add(key string, value interface{}) Context

	// AddError records an error under the name of the command that
	// produced it.
	AddError(key string, err error)

	// GetErrors returns all errors collected during the workflow.
	GetErrors() map[string]error

	// Get retrieves a value by key, or nil.
	Get(key string) interface{}

	// Remove deletes a key-value pair.
	Remove(key string)

	// HasErrors reports whether any command has recorded an error.
	HasErrors() bool

	// AddTempFile tracks a temporary file for removal at Close.
	AddTempFile(file string)

	// GetTempFiles returns all tracked temporary file paths.
	GetTempFiles() []string

	// Close removes tracked temporary files. Defer it at workflow start.
	Close()
}

// Executable is anything with a single execution entry point.
type Executable interface {
	// Execute runs the business logic, reading inputs from and writing
	// outputs to the given Context.
	Execute(context Context)
}

// Command is an atomic, individually testable unit of pipeline work.
type Command interface {
	Executable

	// GetName returns the command name used in logs and telemetry.
	GetName() string

	// GetInputParam returns the context key holding this command's
	// primary input.
	GetInputParam() string

	// GetOutputParam returns the context key this command writes its
	// primary output to.
	GetOutputParam() string

	// IsExecutable reports whether the command can run against the
	// current context state.
	IsExecutable(context Context) bool

	// GetTracer returns the command's tracer.
	GetTracer() trace.Tracer

	// GetMeter returns the command's meter.
	GetMeter() metric.Meter

	// GetSuccessCounter returns the counter incremented on success.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter returns the counter incremented on failure.
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered sequence of commands. A Chain is itself a Command,
// so chains can nest.
type Chain interface {
	Command

	// ContinueOnFailure controls whether the chain keeps executing after
	// a command records an error. Default is to stop.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
