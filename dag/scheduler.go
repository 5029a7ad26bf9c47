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

package dag

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/axle-run/axle/agent"
	"github.com/axle-run/axle/axerr"
	"github.com/axle-run/axle/instruction"
	"github.com/axle-run/axle/llm"
	"github.com/axle-run/axle/message"
	"github.com/axle-run/axle/parser"
	"github.com/axle-run/axle/telemetry"
	"github.com/axle-run/axle/tool"
	"github.com/axle-run/axle/trace"
)

// Scheduler executes a Plan: bounded-parallel stage execution, per-node
// variable scoping, result propagation, and the failure/cancellation policy.
type Scheduler struct {
	Provider llm.Provider
	Model    string
	System   string
	Tools    *tool.Registry
	Tracer   trace.Tracer

	// Metrics records per-node and per-stage counters and durations; nil
	// disables instrumentation entirely (every method on *telemetry.Metrics
	// is nil-safe).
	Metrics *telemetry.Metrics

	// MaxConcurrency bounds concurrent node executions within one stage;
	// zero defaults to 3.
	MaxConcurrency int

	// ContinueOnError: false (default) cancels all outstanding work on the
	// first node error and surfaces it as Result.Error. true stores a null
	// slot for the failed node (and every node depending on it, transitively)
	// and keeps scheduling everything else.
	ContinueOnError bool

	// AgentMaxIterations bounds each instruction step's underlying agent
	// turn-loop; zero means unbounded.
	AgentMaxIterations int
}

// Result is the outcome of one DAG execution: per-node responses, the first
// error encountered (if any), and cumulative token usage.
type Result struct {
	Success  bool
	Response map[string]any
	Error    *axerr.Error
	Usage    llm.Usage
}

func (s *Scheduler) maxConcurrency() int {
	if s.MaxConcurrency > 0 {
		return s.MaxConcurrency
	}
	return 3
}

func (s *Scheduler) tracer() trace.Tracer {
	if s.Tracer != nil {
		return s.Tracer
	}
	return trace.Noop()
}

type usageAccumulator struct {
	mu    sync.Mutex
	total llm.Usage
}

func (u *usageAccumulator) add(v llm.Usage) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.total = u.total.Add(v)
}

func (u *usageAccumulator) value() llm.Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.total
}

// Execute runs plan to completion against seed variables, stage by stage
// with bounded concurrency within each stage.
func (s *Scheduler) Execute(ctx context.Context, plan *Plan, seed map[string]any) Result {
	ctx, rootSpan := s.tracer().Start(ctx, "dag.execute", trace.KindRun)
	defer rootSpan.End(trace.StatusOK)

	vars := NewVariables(seed)
	usage := &usageAccumulator{}

	var mu sync.Mutex
	failed := make(map[string]bool)
	var firstErr *axerr.Error

	for _, stage := range plan.Stages {
		mu.Lock()
		stop := firstErr != nil && !s.ContinueOnError
		mu.Unlock()
		if stop {
			break
		}

		eg, egCtx := errgroup.WithContext(ctx)
		sem := semaphore.NewWeighted(int64(s.maxConcurrency()))

		for _, nodeID := range stage {
			nodeID := nodeID
			node := plan.Nodes[nodeID]

			mu.Lock()
			skip := dependsOnFailed(node.Dependencies, failed)
			if skip {
				failed[nodeID] = true
			}
			mu.Unlock()
			if skip {
				vars.Set(nodeID, nil)
				continue
			}

			eg.Go(func() error {
				if err := sem.Acquire(egCtx, 1); err != nil {
					return err
				}
				defer sem.Release(1)

				result, nodeUsage, err := s.runNode(egCtx, node, vars)
				usage.add(nodeUsage)
				if err != nil {
					ae := toAxErr(err).WithNode(nodeID)
					mu.Lock()
					if firstErr == nil {
						firstErr = ae
					}
					failed[nodeID] = true
					mu.Unlock()
					vars.Set(nodeID, nil)
					if s.ContinueOnError {
						return nil
					}
					return ae
				}
				vars.Set(nodeID, result)
				return nil
			})
		}

		if err := eg.Wait(); err != nil && !s.ContinueOnError {
			mu.Lock()
			if firstErr == nil {
				firstErr = toAxErr(err)
			}
			mu.Unlock()
			break
		}
		s.Metrics.StageCompleted()
	}

	if firstErr != nil && !s.ContinueOnError {
		rootSpan.End(trace.StatusError)
		return Result{Success: false, Error: firstErr, Usage: usage.value()}
	}

	response := make(map[string]any, len(plan.Nodes))
	for id := range plan.Nodes {
		v, _ := vars.Get(id)
		response[id] = v
	}

	return Result{Success: true, Response: response, Error: firstErr, Usage: usage.value()}
}

func toAxErr(err error) *axerr.Error {
	if ae, ok := err.(*axerr.Error); ok {
		return ae
	}
	return axerr.Wrap(axerr.KindProviderTransport, err)
}

func dependsOnFailed(deps []string, failed map[string]bool) bool {
	for _, d := range deps {
		if failed[d] {
			return true
		}
	}
	return false
}

// runNode runs every step of node serially against a snapshot of vars taken
// at node start, returning the final step's output as the node's result.
func (s *Scheduler) runNode(ctx context.Context, node ParsedNode, vars *Variables) (any, llm.Usage, error) {
	ctx, span := s.tracer().Start(ctx, "dag.node."+node.ID, trace.KindNode)
	done := s.Metrics.NodeStarted(node.ID)
	var nodeErr error
	defer func() { done(nodeErr) }()

	snapshot := vars.Snapshot()
	var response any
	hasResp := false
	var total llm.Usage

	for _, step := range node.Steps {
		scope := &nodeScope{snapshot: snapshot, response: response, hasResp: hasResp}

		switch step.Kind {
		case StepInstruction:
			out, usage, err := s.runInstruction(ctx, node.ID, step.Instruction, scope)
			total = total.Add(usage)
			if err != nil {
				span.End(trace.StatusError)
				nodeErr = err
				return nil, total, err
			}
			response, hasResp = out, true

		case StepAction:
			out, err := step.Action(ctx, scope)
			if err != nil {
				span.End(trace.StatusError)
				nodeErr = axerr.Wrap(axerr.KindToolExecution, err).WithNode(node.ID)
				return nil, total, nodeErr
			}
			if out != nil {
				response, hasResp = out, true
			}
		}
	}

	span.End(trace.StatusOK)
	return response, total, nil
}

// runInstruction compiles the step's prompt against scope, runs a fresh
// agent turn-loop seeded by the node's system prompt, and parses the
// terminal text against the step's schema.
func (s *Scheduler) runInstruction(ctx context.Context, nodeID string, instr *Instruction, scope instruction.Scope) (any, llm.Usage, error) {
	opts := instruction.Options{StrictVariables: instr.StrictVariables}
	text, err := instr.Template.Render(scope, opts)
	if err != nil {
		return nil, llm.Usage{}, axerr.Wrap(axerr.KindProviderSemantic, err).WithNode(nodeID)
	}

	system := s.System
	if instr.System != "" {
		system = instr.System
	}

	a := agent.New(s.Provider, s.Model, s.Tools, system)
	a.Tracer = s.Tracer
	a.Metrics = s.Metrics
	a.MaxIterations = s.AgentMaxIterations

	parts := []message.Part{message.TextPart(text)}
	for _, f := range instr.Files {
		f := f
		parts = append(parts, message.Part{Type: message.PartFile, File: &f})
	}

	res := a.Run(ctx, message.NewUserParts(parts...))
	if res.Err != nil {
		return nil, llm.Usage{InputTokens: res.Usage.InputTokens, OutputTokens: res.Usage.OutputTokens}, res.Err
	}

	parsed, err := parser.Parse(res.Final.TextContent(), instr.Schema)
	if err != nil {
		return nil, res.Usage, axerr.Wrap(axerr.KindParseSchemaMismatch, err).WithNode(nodeID)
	}

	if len(instr.Schema) == 0 {
		return parsed[""], res.Usage, nil
	}
	return parsed, res.Usage, nil
}

// sortedStageNodes returns a lexically sorted copy of a stage's node ids. It
// is unexported and has no callers in this module.
func sortedStageNodes(stage []string) []string {
	out := append([]string(nil), stage...)
	sort.Strings(out)
	return out
}
