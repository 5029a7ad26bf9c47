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

// Package dag implements the DAG scheduler: parsing node definitions,
// validating dependencies, detecting cycles, computing a topological stage
// plan, executing stages with bounded concurrency, and propagating each
// node's typed result into a shared variable map downstream nodes' prompts
// can reference.
package dag

import (
	"context"

	"github.com/axle-run/axle/instruction"
	"github.com/axle-run/axle/message"
	"github.com/axle-run/axle/parser"
)

// StepKind tags the two concrete shapes a Step can take. A tagged variant
// keeps the set of step shapes closed, unlike an open interface.
type StepKind int

const (
	StepInstruction StepKind = iota
	StepAction
)

// Instruction is an LLM-call step: a prompt template, an optional output
// schema, and optional file attachments. An empty Schema means "return the
// raw terminal text verbatim".
type Instruction struct {
	// Name labels the step for tracing; purely cosmetic.
	Name string

	Template *instruction.Template
	Schema   parser.Schema

	// System overrides the node's default system prompt for this step's
	// agent call, if non-empty.
	System string

	// Files attaches file-reference content parts to the compiled user
	// message, in order, after the rendered prompt text.
	Files []message.File

	// StrictVariables fails template rendering on any unresolved {{var}}
	// placeholder instead of leaving it intact.
	StrictVariables bool
}

// Action is a pure side-effect step (e.g. write-to-disk) run with the
// node's accumulated scope. Its return value, if non-nil, overwrites the
// node's "response" value for subsequent steps.
type Action func(ctx context.Context, scope instruction.Scope) (any, error)

// Step is one element of a node's step list: exactly one of Instruction or
// Action is set according to Kind.
type Step struct {
	Kind        StepKind
	Instruction *Instruction
	Action      Action
}

// InstructionStep wraps instr as a Step.
func InstructionStep(instr Instruction) Step {
	return Step{Kind: StepInstruction, Instruction: &instr}
}

// ActionStep wraps fn as a Step.
func ActionStep(fn Action) Step {
	return Step{Kind: StepAction, Action: fn}
}

// NodeInput is the caller-facing shape of one DAG node before parsing: a
// step list and the set of node-ids it depends on. A node with a single
// instruction and no dependencies is just Node(instr).
type NodeInput struct {
	Steps     []Step
	DependsOn []string
}

// Node builds a NodeInput with no dependencies from a single instruction,
// the common case.
func Node(instr Instruction) NodeInput {
	return NodeInput{Steps: []Step{InstructionStep(instr)}}
}

// NodeSteps builds a NodeInput with no dependencies from an ordered step
// list.
func NodeSteps(steps ...Step) NodeInput {
	return NodeInput{Steps: steps}
}

// WithDeps returns a copy of n depending on the given node-ids.
func (n NodeInput) WithDeps(deps ...string) NodeInput {
	n.DependsOn = deps
	return n
}

// Definition is the full DAG as the caller declares it: node-id to
// NodeInput.
type Definition map[string]NodeInput

// ParsedNode is a normalized, validated node ready for scheduling.
type ParsedNode struct {
	ID           string
	Steps        []Step
	Dependencies []string
}

// Plan is the validated, staged execution plan: a topological layering
// where stage k is the set of nodes whose dependencies are all in stages
// <k.
type Plan struct {
	Nodes  map[string]ParsedNode
	Stages [][]string
}
