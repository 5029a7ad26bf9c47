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

// Package agent implements the tool-calling turn-loop: the state
// machine that alternates model generation with tool execution until a
// terminal stop condition, driving the stream reducer to fold each
// provider call into a canonical assistant message and the tool registry
// to satisfy function_call turns.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/axle-run/axle/axerr"
	"github.com/axle-run/axle/llm"
	"github.com/axle-run/axle/message"
	"github.com/axle-run/axle/stream"
	"github.com/axle-run/axle/telemetry"
	"github.com/axle-run/axle/tool"
	"github.com/axle-run/axle/trace"
	"github.com/axle-run/axle/usage"
)

// Agent binds a conversation history to a provider, a model, a toolset, and
// an optional tracing context. An Agent is not safe for concurrent Run
// calls; the DAG scheduler gives each node its own Agent instance.
type Agent struct {
	Provider llm.Provider
	Model    string
	System   string
	Tools    *tool.Registry
	Tracer   trace.Tracer

	// Metrics records turn/tool counters and durations; nil disables
	// instrumentation entirely (every method on *telemetry.Metrics is
	// nil-safe).
	Metrics *telemetry.Metrics

	// MaxIterations bounds the turn-loop; zero means unbounded.
	MaxIterations int

	history message.Conversation
}

// New creates an Agent. A nil Tracer is replaced with trace.Noop().
func New(provider llm.Provider, model string, tools *tool.Registry, system string) *Agent {
	return &Agent{
		Provider: provider,
		Model:    model,
		System:   system,
		Tools:    tools,
	}
}

// History returns the agent's conversation so far.
func (a *Agent) History() message.Conversation { return a.history }

// SeedHistory replaces the agent's conversation, e.g. to resume a prior run.
func (a *Agent) SeedHistory(conv message.Conversation) { a.history = conv }

// Result is the outcome of driving the turn-loop to completion.
type Result struct {
	// Status is succeeded, failed, or cancelled (stream.Status reused: the
	// turn-loop's terminal classification is the same three-way split as a
	// single reducer run's).
	Status stream.Status

	// Final is the last assistant message produced (partial, if Status is
	// cancelled).
	Final message.Message

	// NewMessages are every message appended to history during this Run
	// call, in order: the seed user message, each turn's assistant message,
	// and each batch of tool results.
	NewMessages message.Conversation

	Usage llm.Usage
	Err   error
}

func (a *Agent) tracer() trace.Tracer {
	if a.Tracer != nil {
		return a.Tracer
	}
	return trace.Noop()
}

// Run appends userMsg to history and drives the turn-loop: generate, and
// while the turn ends in function_call, execute the requested tools and
// generate again, until a terminal finish reason or cancellation.
func (a *Agent) Run(ctx context.Context, userMsg message.Message) Result {
	ctx, span := a.tracer().Start(ctx, "agent.run", trace.KindRun)
	defer span.End(trace.StatusOK)

	var newMsgs message.Conversation
	a.history = a.history.Append(userMsg)
	newMsgs = newMsgs.Append(userMsg)

	var total llm.Usage

	for iteration := 1; a.MaxIterations == 0 || iteration <= a.MaxIterations; iteration++ {
		select {
		case <-ctx.Done():
			return a.finish(stream.StatusCancelled, message.Message{FinishReason: message.FinishCancelled}, newMsgs, total, axerr.Wrap(axerr.KindCancelled, ctx.Err()), span)
		default:
		}

		turnCtx, turnSpan := a.tracer().Start(ctx, "agent.turn", trace.KindLLM)
		asst, usage, err := a.generate(turnCtx)
		total = total.Add(usage)
		if err != nil {
			turnSpan.End(trace.StatusError)
			// The partial assistant message captured before the failure is
			// still appended, so history stays intelligible.
			if len(asst.Parts) > 0 {
				a.history = a.history.Append(asst)
				newMsgs = newMsgs.Append(asst)
			}
			// Preserve a kind the provider adapter already classified (e.g.
			// provider_semantic for an API-reported error body); an
			// unclassified transport error defaults to provider_transport.
			kind := axerr.KindProviderTransport
			if k, ok := axerr.KindOf(err); ok {
				kind = k
			}
			status := stream.StatusFailed
			if kind == axerr.KindCancelled {
				status = stream.StatusCancelled
			}
			return a.finish(status, asst, newMsgs, total, axerr.Wrap(kind, err), span)
		}
		turnSpan.SetAttr("finish_reason", string(asst.FinishReason))
		turnSpan.End(trace.StatusOK)

		a.history = a.history.Append(asst)
		newMsgs = newMsgs.Append(asst)

		calls := asst.ToolCalls()
		// A function_call reason with zero tool-call parts is treated as
		// stop.
		if asst.FinishReason != message.FinishFunctionCall || len(calls) == 0 {
			return a.finish(stream.StatusSucceeded, asst, newMsgs, total, nil, span)
		}

		results, toolErr := a.executeTools(ctx, calls)
		toolMsg := message.NewToolMessage(results...)
		a.history = a.history.Append(toolMsg)
		newMsgs = newMsgs.Append(toolMsg)

		if toolErr != nil {
			return a.finish(stream.StatusFailed, asst, newMsgs, total, toolErr, span)
		}
		// Cancellation observed mid tool-batch: stop issuing new turns.
		select {
		case <-ctx.Done():
			return a.finish(stream.StatusCancelled, asst, newMsgs, total, axerr.Wrap(axerr.KindCancelled, ctx.Err()), span)
		default:
		}
	}

	return a.finish(stream.StatusFailed, message.Message{}, newMsgs, total, axerr.New(axerr.KindBudget, "max iterations exceeded"), span)
}

func (a *Agent) finish(status stream.Status, final message.Message, newMsgs message.Conversation, usage llm.Usage, err error, span trace.Span) Result {
	if err != nil && status != stream.StatusCancelled {
		span.End(trace.StatusError)
	}
	return Result{Status: status, Final: final, NewMessages: newMsgs, Usage: usage, Err: err}
}

// generate drives one model turn via Provider.Stream and the stream reducer,
// returning the folded assistant message.
func (a *Agent) generate(ctx context.Context) (message.Message, llm.Usage, error) {
	start := time.Now()
	req := llm.Request{Messages: a.history, System: a.System}
	if a.Tools != nil {
		req.Tools = a.Tools.Definitions()
	}

	chunks, err := a.Provider.Stream(ctx, a.Model, req)
	if err != nil {
		return message.Message{}, llm.Usage{}, err
	}

	reducer := stream.NewReducer()
	res := reducer.Run(ctx, chunks)
	defer a.Metrics.RecordTurn(a.Model, string(res.Message.FinishReason), time.Since(start), res.InputTokens, res.OutputTokens)

	turnUsage := llm.Usage{InputTokens: res.InputTokens, OutputTokens: res.OutputTokens}
	if turnUsage.OutputTokens == 0 && res.Status != stream.StatusCancelled {
		// Provider didn't report usage on this turn (common on simulated
		// streaming backends), so fall back to a local estimate. A cancelled
		// turn reports zero usage rather than estimating from a partial.
		estimated := usage.Estimate(res.Message.TextContent(), a.Model)
		slog.Debug("agent: falling back to local token estimate", "model", a.Model, "estimated_output_tokens", estimated)
		turnUsage.OutputTokens = estimated
	}

	switch res.Status {
	case stream.StatusSucceeded:
		return res.Message, turnUsage, nil
	case stream.StatusCancelled:
		return res.Message, turnUsage, axerr.Wrap(axerr.KindCancelled, ctx.Err())
	default:
		if res.Err != nil {
			return res.Message, turnUsage, res.Err
		}
		return res.Message, turnUsage, fmt.Errorf("agent: model turn ended in error")
	}
}

// executeTools runs every call sequentially in part-index order. Tool
// execution is never parallelized: tools may mutate shared resources (the
// filesystem, external services), and nothing in the contract lets a tool
// declare itself side-effect-free.
func (a *Agent) executeTools(ctx context.Context, calls []message.ToolCall) ([]message.ToolResult, error) {
	results := make([]message.ToolResult, 0, len(calls))

	for _, call := range calls {
		select {
		case <-ctx.Done():
			return results, nil
		default:
		}

		toolCtx, span := a.tracer().Start(ctx, "agent.tool."+call.Name, trace.KindTool)
		span.SetAttr("tool_name", call.Name)

		t, ok := a.lookupTool(call.Name)
		if !ok {
			span.End(trace.StatusError)
			notFoundErr := axerr.New(axerr.KindToolNotFound, "unknown tool "+call.Name).WithTool(call.Name)
			a.Metrics.RecordToolCall(call.Name, notFoundErr)
			results = append(results, message.ToolResult{
				CallID:   call.ID,
				ToolName: call.Name,
				Body:     []message.ToolResultPart{{Text: fmt.Sprintf("tool %q is not registered", call.Name)}},
				IsError:  true,
			})
			return results, notFoundErr
		}

		out, err := t.Execute(toolCtx, call.Parameters)
		a.Metrics.RecordToolCall(call.Name, err)
		if err != nil {
			span.End(trace.StatusError)
			results = append(results, message.ToolResult{
				CallID:   call.ID,
				ToolName: call.Name,
				Body:     []message.ToolResultPart{{Text: err.Error()}},
				IsError:  true,
			})
			// ToolExecution errors don't abort the loop: the model may
			// recover on the next turn.
			continue
		}

		span.End(trace.StatusOK)
		results = append(results, message.ToolResult{
			CallID:   call.ID,
			ToolName: call.Name,
			Body:     out.ToToolResultParts(),
		})
	}

	return results, nil
}

func (a *Agent) lookupTool(name string) (tool.Tool, bool) {
	if a.Tools == nil {
		return nil, false
	}
	return a.Tools.Get(name)
}
