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

// Package tool defines the tool contract consumed by the agent
// turn-loop, and a name-keyed registry of tool instances.
package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/axle-run/axle/message"
)

// Definition is the shape of a tool the model is told about: name,
// description, and an input schema. Validation of arguments against the
// schema is the tool's own responsibility; the core does not validate
// inputs before calling Execute.
type Definition struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema, provider-agnostic
}

// Tool is a named, side-effecting capability the model can invoke by
// emitting a tool-call part. Execute returns either a plain string body or
// an ordered list of text/image result parts.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, args map[string]any) (Result, error)
}

// Result is what a tool hands back to the agent loop: a string body, or an
// ordered list of mixed text/image parts (e.g. a screenshot tool returning
// commentary plus an image).
type Result struct {
	Text  string
	Parts []message.ToolResultPart
}

// TextResult wraps a plain string tool result.
func TextResult(text string) Result { return Result{Text: text} }

// PartsResult wraps a mixed text/image tool result.
func PartsResult(parts ...message.ToolResultPart) Result { return Result{Parts: parts} }

// ToToolResultParts normalizes a Result into the ordered part list the
// message model expects.
func (r Result) ToToolResultParts() []message.ToolResultPart {
	if len(r.Parts) > 0 {
		return r.Parts
	}
	return []message.ToolResultPart{{Text: r.Text}}
}

// Registry is a read-only-during-execution name→Tool map. It is safe to read
// concurrently once populated; Register is expected to happen during setup,
// before any agent turn-loop begins executing.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool under its own declared name.
func (r *Registry) Register(t Tool) error {
	name := t.Definition().Name
	if name == "" {
		return fmt.Errorf("tool: empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = t
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the declared Definition of every registered tool, in
// no particular order; callers that need determinism should sort by Name.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	return defs
}
