// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package trace defines the tracing contract: hierarchical spans
// rooted at a top-level call, with typed results and timestamped events.
// The core (agent turn-loop, DAG scheduler) depends on this contract and
// this contract alone; concrete writers (console, markdown, OTLP) are
// replaceable implementations.
package trace

import "context"

// Status is the terminal classification of a span.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Kind distinguishes the span kinds the core produces: model calls, tool
// calls, DAG nodes and whole runs.
type Kind string

const (
	KindLLM  Kind = "llm"
	KindTool Kind = "tool"
	KindNode Kind = "node"
	KindRun  Kind = "run"
)

// Span is one node in the trace tree. Start returns a child; End is
// idempotent. Events attached to an in-flight span are delivered to writers
// immediately; the tracer itself does not buffer them.
type Span interface {
	// Start opens a child span under this one.
	Start(ctx context.Context, name string, kind Kind) (context.Context, Span)

	// Event records a timestamped, attributed occurrence on this span.
	Event(name string, attrs map[string]any)

	// SetAttr attaches a key/value to this span.
	SetAttr(key string, value any)

	// End closes the span with status. Calling End more than once is a
	// no-op after the first call.
	End(status Status)
}

// Tracer is the entry point for starting the root span of a trace tree. The
// core never constructs a Tracer; one is injected, and may be a Noop().
type Tracer interface {
	Start(ctx context.Context, name string, kind Kind) (context.Context, Span)
}

type noopTracer struct{}
type noopSpan struct{}

// Noop returns a Tracer whose spans do nothing; this is the default used
// when no tracer is configured. The core never requires tracing to function.
func Noop() Tracer { return noopTracer{} }

func (noopTracer) Start(ctx context.Context, _ string, _ Kind) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (noopSpan) Start(ctx context.Context, _ string, _ Kind) (context.Context, Span) {
	return ctx, noopSpan{}
}
func (noopSpan) Event(string, map[string]any) {}
func (noopSpan) SetAttr(string, any)           {}
func (noopSpan) End(Status)                    {}
