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

// Package stream implements the provider-neutral chunk alphabet and the
// reducer that folds a chunk sequence into an ordered assistant message.
// Every provider adapter emits this alphabet regardless of its native
// wire format; the reducer itself never sees a wire format.
package stream

import "github.com/axle-run/axle/message"

// ChunkType is one element of the canonical streaming alphabet.
type ChunkType string

const (
	ChunkStart            ChunkType = "start"
	ChunkTextStart        ChunkType = "text-start"
	ChunkTextDelta        ChunkType = "text-delta"
	ChunkTextComplete     ChunkType = "text-complete"
	ChunkThinkingStart    ChunkType = "thinking-start"
	ChunkThinkingDelta    ChunkType = "thinking-delta"
	ChunkThinkingComplete ChunkType = "thinking-complete"
	ChunkToolCallStart    ChunkType = "tool-call-start"
	ChunkToolCallComplete ChunkType = "tool-call-complete"
	ChunkComplete         ChunkType = "complete"
	ChunkError            ChunkType = "error"
)

// Chunk is one event in the canonical streaming alphabet. Only the fields
// relevant to Type are meaningful; the zero value of the others is ignored.
type Chunk struct {
	Type ChunkType

	// ChunkStart
	MessageID string
	Model     string

	// part-addressed chunks: PartIndex is a monotonic integer assigned by
	// the adapter, defining insertion order into the assistant message.
	PartIndex int

	// ChunkTextDelta / ChunkThinkingDelta
	Text string

	// ChunkThinkingStart
	ThinkingID       string
	ThinkingRedacted bool

	// ChunkToolCallStart / ChunkToolCallComplete
	CallID   string
	ToolName string
	// Arguments is set by the adapter only on ChunkToolCallComplete. The
	// adapter itself is responsible for accumulating the provider's raw
	// argument fragments byte-by-byte across its native streaming events
	// and JSON-decoding the buffer exactly once, here, at completion; a
	// decode failure at this point is a fatal error for the turn (see
	// ArgsJSON for adapters that want the reducer to decode).
	Arguments map[string]any
	// ArgsJSON carries the fully-accumulated (but not yet decoded) argument
	// buffer for adapters that prefer to let the reducer perform the final
	// JSON decode rather than decoding it themselves. Exactly one of
	// Arguments or ArgsJSON is set on ChunkToolCallComplete.
	ArgsJSON string

	// ChunkComplete
	FinishReason message.FinishReason
	InputTokens  int
	OutputTokens int

	// ChunkError
	ErrorType    string
	ErrorMessage string
}
