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

// Package llm defines the provider contract that the agent turn-loop
// drives. Concrete wire-format adapters live under llmprovider/ and are not
// part of the core contract.
package llm

import (
	"context"

	"github.com/axle-run/axle/message"
	"github.com/axle-run/axle/stream"
	"github.com/axle-run/axle/tool"
)

// Usage is the token accounting for one model call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Add returns the element-wise sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{InputTokens: u.InputTokens + o.InputTokens, OutputTokens: u.OutputTokens + o.OutputTokens}
}

// Options carries the optional generation knobs a caller may set; a zero
// value means "use the provider's default."
type Options struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
	Stop        []string
}

// Request is the provider-neutral shape of one model call.
type Request struct {
	Messages message.Conversation
	System   string
	Tools    []tool.Definition
	Options  Options
}

// ModelResponse is the non-streaming result of Provider.Generate.
type ModelResponse struct {
	ID           string
	Model        string
	Content      []message.Part
	FinishReason message.FinishReason
	Usage        Usage
	Raw          any
}

// Provider is the abstract contract every LLM backend must satisfy. The core
// (agent turn-loop, stream reducer) depends only on this interface; concrete
// adapters (chat-completions style, responses/events style, native multipart
// style) are replaceable implementations and live outside the core.
type Provider interface {
	// Name identifies the provider for tracing and error messages.
	Name() string

	// Generate performs a single non-streaming model call.
	Generate(ctx context.Context, model string, req Request) (*ModelResponse, error)

	// Stream performs a single model call and returns the provider-neutral
	// chunk sequence (the canonical chunk alphabet) on the returned channel.
	// Providers without native streaming support MAY simulate it by emitting
	// a single text-delta for the entire response. The channel is closed
	// once a complete or error chunk has been sent, or ctx is cancelled.
	Stream(ctx context.Context, model string, req Request) (<-chan stream.Chunk, error)
}
