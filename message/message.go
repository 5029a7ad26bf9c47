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

// Package message defines the canonical conversation representation shared
// by every provider adapter, the stream reducer, and the agent turn-loop.
package message

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// FinishReason classifies how an assistant turn ended.
type FinishReason string

const (
	FinishStop         FinishReason = "stop"
	FinishLength       FinishReason = "length"
	FinishFunctionCall FinishReason = "function_call"
	FinishError        FinishReason = "error"
	FinishCancelled    FinishReason = "cancelled"
	FinishCustom       FinishReason = "custom"
)

// FileCategory classifies a user-supplied file reference.
type FileCategory string

const (
	FileImage    FileCategory = "image"
	FileDocument FileCategory = "document"
	FileText     FileCategory = "text"
)

// PartType tags the kind of content a Part carries.
type PartType string

const (
	PartText       PartType = "text"
	PartThinking   PartType = "thinking"
	PartToolCall   PartType = "tool_call"
	PartFile       PartType = "file"
	PartToolResult PartType = "tool_result"
)

// File is a reference to file content attached to a user message.
type File struct {
	Path     string
	MimeType string
	Bytes    []byte
	Category FileCategory
}

// ToolCall is a model-issued invocation of a named tool with decoded
// arguments. ID is unique within a conversation; a ToolResult references it
// by exact ID.
type ToolCall struct {
	ID               string
	Name             string
	Parameters       map[string]any
	ProviderMetadata map[string]any
}

// ToolResultPart is one element of a tool result's ordered content, either
// text or an inline image.
type ToolResultPart struct {
	Text      string
	ImageData []byte
	ImageMime string
}

// ToolResult carries the outcome of one tool invocation, referenced back to
// its originating call by CallID.
type ToolResult struct {
	CallID   string
	ToolName string
	Body     []ToolResultPart
	IsError  bool
}

// Part is one element of an assistant message's ordered content list. Exactly
// one of the typed fields is populated according to Type.
type Part struct {
	Type PartType

	// PartText
	Text string

	// PartThinking
	ThinkingID        string
	ThinkingRedacted  bool
	ThinkingSignature string

	// PartToolCall
	ToolCall *ToolCall

	// PartFile (user messages only)
	File *File
}

// TextPart constructs a text content part.
func TextPart(text string) Part { return Part{Type: PartText, Text: text} }

// ThinkingPart constructs a thinking content part.
func ThinkingPart(text string) Part { return Part{Type: PartThinking, Text: text} }

// ToolCallPart constructs a tool-call content part.
func ToolCallPart(tc ToolCall) Part { return Part{Type: PartToolCall, ToolCall: &tc} }

// Message is one turn in a conversation. Content is an ordered list of Parts
// for User and Assistant roles; Tool messages instead carry ToolResults.
//
// Invariants (enforced by the stream reducer and the agent turn-loop, not by
// this type itself):
//   - An assistant message with one or more tool-call parts always has
//     FinishReason == FinishFunctionCall.
//   - Part ordering is insertion-significant and must survive round-trips
//     through any provider adapter.
type Message struct {
	Role         Role
	ID           string
	Model        string
	Parts        []Part
	ToolResults  []ToolResult
	FinishReason FinishReason
}

// NewUserText builds a plain-text user message.
func NewUserText(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart(text)}}
}

// NewUserParts builds a user message from arbitrary content parts (text and
// file references).
func NewUserParts(parts ...Part) Message {
	return Message{Role: RoleUser, Parts: parts}
}

// NewToolMessage builds a tool-role message from the results of one batch of
// tool calls, preserving call order.
func NewToolMessage(results ...ToolResult) Message {
	return Message{Role: RoleTool, ToolResults: results}
}

// TextContent concatenates all text parts, in order, ignoring thinking and
// tool-call parts. This is the canonical "terminal text" the response parser
// operates on.
func (m Message) TextContent() string {
	var out []byte
	for _, p := range m.Parts {
		if p.Type == PartText {
			out = append(out, p.Text...)
		}
	}
	return string(out)
}

// ToolCalls returns the tool-call parts of the message, in part-index order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, p := range m.Parts {
		if p.Type == PartToolCall && p.ToolCall != nil {
			calls = append(calls, *p.ToolCall)
		}
	}
	return calls
}

// HasToolCalls reports whether the message carries any tool-call parts.
func (m Message) HasToolCalls() bool {
	for _, p := range m.Parts {
		if p.Type == PartToolCall {
			return true
		}
	}
	return false
}

// Clone returns a deep-enough copy of m safe to hand to another goroutine;
// slices are copied, but ToolCall.Parameters (a map[string]any) is shared
// since it is treated as immutable once decoded.
func (m Message) Clone() Message {
	clone := m
	if m.Parts != nil {
		clone.Parts = make([]Part, len(m.Parts))
		copy(clone.Parts, m.Parts)
	}
	if m.ToolResults != nil {
		clone.ToolResults = make([]ToolResult, len(m.ToolResults))
		copy(clone.ToolResults, m.ToolResults)
	}
	return clone
}

// Conversation is an ordered list of messages.
type Conversation []Message

// Append returns a new conversation with msgs appended; the receiver is left
// untouched so callers can safely snapshot a conversation before mutating it.
func (c Conversation) Append(msgs ...Message) Conversation {
	out := make(Conversation, 0, len(c)+len(msgs))
	out = append(out, c...)
	out = append(out, msgs...)
	return out
}
