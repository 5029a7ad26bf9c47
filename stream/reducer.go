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

package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/axle-run/axle/axerr"
	"github.com/axle-run/axle/message"
)

// Status is the terminal (or in-flight) classification of a Reducer.
type Status string

const (
	StatusStreaming Status = "streaming"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Result is the outcome of driving a Reducer to completion.
type Result struct {
	Status       Status
	Message      message.Message
	InputTokens  int
	OutputTokens int
	Err          error
}

// partState is a part under construction, keyed by PartIndex.
type partState struct {
	typ              message.PartType
	text             string
	toolCall         *message.ToolCall
	thinkingID       string
	thinkingRedacted bool
}

// Reducer is the per-call state machine that ingests a provider-neutral
// chunk sequence and folds it into a partial-then-final assistant message.
// A Reducer is used exactly once, for one model turn.
type Reducer struct {
	mu sync.Mutex

	id, model    string
	parts        map[int]*partState
	activeIndex  int // index of the part currently open for deltas, -1 if none
	finishReason message.FinishReason
	inputTokens  int
	outputTokens int
	status       Status
	err          error

	subs []chan Chunk

	cancelOnce sync.Once
	cancelCh   chan struct{}
	cancelled  bool
}

// NewReducer creates a fresh reducer for one model turn.
func NewReducer() *Reducer {
	return &Reducer{
		parts:       make(map[int]*partState),
		activeIndex: -1,
		status:      StatusStreaming,
		cancelCh:    make(chan struct{}),
	}
}

// Subscribe registers a fanout subscriber that receives every chunk applied
// from the point of subscription onward, in the exact order produced by the
// adapter. The returned channel is closed once the reducer reaches a
// terminal state. Subscriber callers MUST drain promptly: the reducer's
// dispatch is synchronous and a slow subscriber blocks the whole turn.
func (r *Reducer) Subscribe() <-chan Chunk {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan Chunk, 16)
	r.subs = append(r.subs, ch)
	return ch
}

// Cancel requests cooperative cancellation. It is idempotent and safe to
// call after the reducer has already completed (a no-op in that case). It
// does not itself abort the provider's transport; callers are expected to
// cancel the context passed to Provider.Stream, which Run also observes.
func (r *Reducer) Cancel() {
	r.cancelOnce.Do(func() { close(r.cancelCh) })
}

// Snapshot returns a deep-enough copy of the partial assistant message built
// so far, safe to read from any goroutine concurrently with Run.
func (r *Reducer) Snapshot() message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buildMessageLocked()
}

// Run drains chunks, applying each to the reducer's state and fanning it out
// to subscribers, until the channel yields a terminal chunk (complete or
// error), is closed, or cancellation is observed. It returns the final
// Result. Run must be called exactly once per Reducer.
func (r *Reducer) Run(ctx context.Context, chunks <-chan Chunk) Result {
	defer r.closeSubs()

	var pendingFinish *Chunk // set when a provider defers usage to a trailing chunk

	for {
		select {
		case <-ctx.Done():
			return r.finishCancelled()
		case <-r.cancelCh:
			r.drainBuffered(chunks)
			return r.finishCancelled()
		case chunk, ok := <-chunks:
			if !ok {
				// A provider may close its channel because ctx was
				// cancelled; that is a cancellation, not a transport fault.
				if ctx.Err() != nil {
					return r.finishCancelled()
				}
				// Channel closed without an explicit complete/error: treat
				// as an abrupt transport failure rather than silent success.
				if pendingFinish != nil {
					return r.apply(*pendingFinish)
				}
				return r.finishFailed(fmt.Errorf("stream: channel closed before completion"))
			}
			if chunk.Type == ChunkComplete && needsTrailingUsage(chunk) {
				pendingFinish = &chunk
				continue
			}
			if pendingFinish != nil && chunk.Type != ChunkComplete {
				// A trailing chunk arrived carrying the deferred usage;
				// merge it into the buffered finish marker.
				pendingFinish.InputTokens = chunk.InputTokens
				pendingFinish.OutputTokens = chunk.OutputTokens
				res := r.apply(*pendingFinish)
				return res
			}
			res, terminal := r.applyChunk(chunk)
			if terminal {
				return res
			}
		}
	}
}

// needsTrailingUsage reports whether a complete chunk arrived with no usage
// yet recorded, signalling the provider sends usage on a later chunk.
func needsTrailingUsage(c Chunk) bool {
	return c.InputTokens == 0 && c.OutputTokens == 0 && c.FinishReason != message.FinishError
}

// drainBuffered performs a non-blocking drain of chunks already buffered in
// the channel at the moment cancellation was observed, applying each; it
// does not wait for new chunks to arrive. A cancelled run discards any
// buffered finish marker, so the final result reports zero usage.
func (r *Reducer) drainBuffered(chunks <-chan Chunk) {
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			r.mu.Lock()
			r.applyChunkLocked(chunk)
			r.mu.Unlock()
		default:
			return
		}
	}
}

// apply is a convenience wrapper for the single-chunk-then-terminate path.
func (r *Reducer) apply(c Chunk) Result {
	res, _ := r.applyChunk(c)
	return res
}

// applyChunk applies one chunk to state, fans it out to subscribers, and
// reports whether the reducer has now reached a terminal state.
func (r *Reducer) applyChunk(c Chunk) (Result, bool) {
	r.mu.Lock()
	terminal := r.applyChunkLocked(c)
	var res Result
	if terminal {
		res = r.resultLocked()
	}
	r.mu.Unlock()

	r.fanout(c)
	return res, terminal
}

func (r *Reducer) applyChunkLocked(c Chunk) bool {
	switch c.Type {
	case ChunkStart:
		r.id, r.model = c.MessageID, c.Model
	case ChunkTextStart:
		r.closeActiveIfDifferent(c.PartIndex, message.PartText)
		r.parts[c.PartIndex] = &partState{typ: message.PartText}
		r.activeIndex = c.PartIndex
	case ChunkTextDelta:
		if p, ok := r.parts[c.PartIndex]; ok {
			p.text += c.Text
		}
	case ChunkTextComplete:
		if r.activeIndex == c.PartIndex {
			r.activeIndex = -1
		}
	case ChunkThinkingStart:
		r.closeActiveIfDifferent(c.PartIndex, message.PartThinking)
		r.parts[c.PartIndex] = &partState{typ: message.PartThinking, thinkingID: c.ThinkingID, thinkingRedacted: c.ThinkingRedacted}
		r.activeIndex = c.PartIndex
	case ChunkThinkingDelta:
		if p, ok := r.parts[c.PartIndex]; ok {
			p.text += c.Text
		}
	case ChunkThinkingComplete:
		if r.activeIndex == c.PartIndex {
			r.activeIndex = -1
		}
	case ChunkToolCallStart:
		r.closeActiveIfDifferent(c.PartIndex, message.PartToolCall)
		r.parts[c.PartIndex] = &partState{
			typ:      message.PartToolCall,
			toolCall: &message.ToolCall{ID: c.CallID, Name: c.ToolName},
		}
	case ChunkToolCallComplete:
		p, ok := r.parts[c.PartIndex]
		if !ok || p.toolCall == nil {
			p = &partState{typ: message.PartToolCall, toolCall: &message.ToolCall{ID: c.CallID, Name: c.ToolName}}
			r.parts[c.PartIndex] = p
		}
		args := c.Arguments
		if args == nil {
			decoded, err := decodeArguments(c.ArgsJSON)
			if err != nil {
				r.status = StatusFailed
				r.finishReason = message.FinishError
				r.err = axerr.Wrap(axerr.KindParseMalformedToolArgs, err).WithTool(c.ToolName)
				return true
			}
			args = decoded
		}
		p.toolCall.Parameters = args
	case ChunkComplete:
		r.status = StatusSucceeded
		r.finishReason = c.FinishReason
		r.inputTokens = c.InputTokens
		r.outputTokens = c.OutputTokens
		return true
	case ChunkError:
		r.status = StatusFailed
		r.finishReason = message.FinishError
		kind := axerr.KindProviderSemantic
		if c.ErrorType != "" {
			kind = axerr.Kind(c.ErrorType)
		}
		r.err = axerr.New(kind, c.ErrorMessage)
		return true
	}
	return false
}

// decodeArguments JSON-decodes a tool call's accumulated argument buffer and
// validates it is a JSON object (non-null, non-array), per the tool-call
// interleaving contract.
func decodeArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("stream: malformed tool-call arguments: %w", err)
	}
	if v == nil {
		return nil, fmt.Errorf("stream: tool-call arguments must be a JSON object, got null")
	}
	return v, nil
}

// closeActiveIfDifferent applies the implicit close of the previously active
// part when a new part opens at a different index. Adapters are required to
// emit the outgoing part's *-complete before the new part's *-start; this
// keeps the reducer's own bookkeeping consistent even if one omits it.
func (r *Reducer) closeActiveIfDifferent(newIndex int, _ message.PartType) {
	if r.activeIndex == -1 || r.activeIndex == newIndex {
		return
	}
	r.activeIndex = -1
}

func (r *Reducer) finishCancelled() Result {
	r.mu.Lock()
	r.status = StatusCancelled
	r.finishReason = message.FinishCancelled
	r.cancelled = true
	res := r.resultLocked()
	res.InputTokens, res.OutputTokens = 0, 0
	r.mu.Unlock()
	return res
}

func (r *Reducer) finishFailed(err error) Result {
	r.mu.Lock()
	r.status = StatusFailed
	r.finishReason = message.FinishError
	res := r.resultLocked()
	res.Err = err
	r.mu.Unlock()
	return res
}

func (r *Reducer) resultLocked() Result {
	msg := r.buildMessageLocked()
	return Result{
		Status:       r.status,
		Message:      msg,
		InputTokens:  r.inputTokens,
		OutputTokens: r.outputTokens,
		Err:          r.err,
	}
}

func (r *Reducer) buildMessageLocked() message.Message {
	indices := make([]int, 0, len(r.parts))
	for i := range r.parts {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	parts := make([]message.Part, 0, len(indices))
	for _, i := range indices {
		p := r.parts[i]
		switch p.typ {
		case message.PartText:
			parts = append(parts, message.TextPart(p.text))
		case message.PartThinking:
			parts = append(parts, message.Part{
				Type:             message.PartThinking,
				Text:             p.text,
				ThinkingID:       p.thinkingID,
				ThinkingRedacted: p.thinkingRedacted,
			})
		case message.PartToolCall:
			if p.toolCall != nil {
				parts = append(parts, message.ToolCallPart(*p.toolCall))
			}
		}
	}

	finishReason := r.finishReason
	hasToolCalls := false
	for _, p := range parts {
		if p.Type == message.PartToolCall {
			hasToolCalls = true
			break
		}
	}
	if hasToolCalls {
		finishReason = message.FinishFunctionCall
	}

	return message.Message{
		Role:         message.RoleAssistant,
		ID:           r.id,
		Model:        r.model,
		Parts:        parts,
		FinishReason: finishReason,
	}
}

func (r *Reducer) fanout(c Chunk) {
	r.mu.Lock()
	subs := make([]chan Chunk, len(r.subs))
	copy(subs, r.subs)
	r.mu.Unlock()
	for _, ch := range subs {
		ch <- c
	}
}

func (r *Reducer) closeSubs() {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()
	for _, ch := range subs {
		close(ch)
	}
}
