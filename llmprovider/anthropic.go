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

package llmprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/axle-run/axle/axerr"
	"github.com/axle-run/axle/internal/sse"
	"github.com/axle-run/axle/llm"
	"github.com/axle-run/axle/message"
	"github.com/axle-run/axle/pkg/httpclient"
	"github.com/axle-run/axle/stream"
	"github.com/axle-run/axle/tool"
)

// AnthropicConfig configures the native messages-API adapter.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Version    string
	MaxTokens  int
	Client     *httpclient.Client
}

// AnthropicProvider implements llm.Provider against Anthropic's native
// multipart content-block wire format, including tool use.
type AnthropicProvider struct {
	cfg  AnthropicConfig
	http *httpclient.Client
}

// NewAnthropic constructs an AnthropicProvider.
func NewAnthropic(cfg AnthropicConfig) *AnthropicProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Version == "" {
		cfg.Version = "2023-06-01"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Client == nil {
		cfg.Client = httpclient.New()
	}
	return &AnthropicProvider{cfg: cfg, http: cfg.Client}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicContent struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Stream      bool               `json:"stream"`
	System      string             `json:"system,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
	StopSeqs    []string           `json:"stop_sequences,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      anthropicUsage     `json:"usage"`
	Error      *anthropicError    `json:"error,omitempty"`
}

type anthropicStreamEvent struct {
	Type         string            `json:"type"`
	Index        int               `json:"index"`
	Delta        *anthropicDelta   `json:"delta,omitempty"`
	ContentBlock *anthropicContent `json:"content_block,omitempty"`
	Message      *anthropicResponse `json:"message,omitempty"`
	Usage        *anthropicUsage   `json:"usage,omitempty"`
	Error        *anthropicError   `json:"error,omitempty"`
}

type anthropicDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

func toAnthropicMessages(conv message.Conversation) []anthropicMessage {
	out := make([]anthropicMessage, 0, len(conv))
	for _, m := range conv {
		switch m.Role {
		case message.RoleUser:
			var blocks []anthropicContent
			for _, p := range m.Parts {
				switch p.Type {
				case message.PartText:
					blocks = append(blocks, anthropicContent{Type: "text", Text: p.Text})
				case message.PartFile:
					if p.File != nil {
						blocks = append(blocks, anthropicContent{Type: "text", Text: fmt.Sprintf("[file: %s]", p.File.Path)})
					}
				}
			}
			out = append(out, anthropicMessage{Role: "user", Content: blocks})
		case message.RoleAssistant:
			var blocks []anthropicContent
			if text := m.TextContent(); text != "" {
				blocks = append(blocks, anthropicContent{Type: "text", Text: text})
			}
			for _, tc := range m.ToolCalls() {
				blocks = append(blocks, anthropicContent{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: tc.Parameters})
			}
			out = append(out, anthropicMessage{Role: "assistant", Content: blocks})
		case message.RoleTool:
			var blocks []anthropicContent
			for _, r := range m.ToolResults {
				var text string
				for _, part := range r.Body {
					text += part.Text
				}
				blocks = append(blocks, anthropicContent{Type: "tool_result", ToolUseID: r.CallID, Content: text})
			}
			out = append(out, anthropicMessage{Role: "user", Content: blocks})
		}
	}
	return out
}

func toAnthropicTools(defs []tool.Definition) []anthropicTool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]anthropicTool, len(defs))
	for i, d := range defs {
		out[i] = anthropicTool{Name: d.Name, Description: d.Description, InputSchema: d.Schema}
	}
	return out
}

func (p *AnthropicProvider) buildRequest(model string, req llm.Request, streamMode bool) anthropicRequest {
	maxTokens := p.cfg.MaxTokens
	if req.Options.MaxTokens != nil {
		maxTokens = *req.Options.MaxTokens
	}
	out := anthropicRequest{
		Model:       model,
		Messages:    toAnthropicMessages(req.Messages),
		MaxTokens:   maxTokens,
		Temperature: req.Options.Temperature,
		Stream:      streamMode,
		System:      req.System,
		Tools:       toAnthropicTools(req.Tools),
		StopSeqs:    req.Options.Stop,
	}
	return out
}

func (p *AnthropicProvider) newHTTPRequest(ctx context.Context, body anthropicRequest) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", p.cfg.Version)
	return httpReq, nil
}

func anthropicFinishReason(reason string) message.FinishReason {
	switch reason {
	case "tool_use":
		return message.FinishFunctionCall
	case "max_tokens":
		return message.FinishLength
	case "stop_sequence", "end_turn":
		return message.FinishStop
	default:
		return message.FinishStop
	}
}

// Generate performs a single non-streaming messages-API call.
func (p *AnthropicProvider) Generate(ctx context.Context, model string, req llm.Request) (*llm.ModelResponse, error) {
	httpReq, err := p.newHTTPRequest(ctx, p.buildRequest(model, req, false))
	if err != nil {
		return nil, err
	}

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, axerr.Wrap(axerr.KindProviderTransport, fmt.Errorf("anthropic: request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, axerr.Wrap(axerr.KindProviderTransport, fmt.Errorf("anthropic: read response: %w", err))
	}

	var out anthropicResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, axerr.Wrap(axerr.KindProviderTransport, fmt.Errorf("anthropic: decode response: %w (status %d)", err, resp.StatusCode))
	}
	if out.Error != nil {
		return nil, axerr.New(axerr.KindProviderSemantic, fmt.Sprintf("anthropic: %s", out.Error.Message))
	}

	var parts []message.Part
	for _, c := range out.Content {
		switch c.Type {
		case "text":
			parts = append(parts, message.TextPart(c.Text))
		case "tool_use":
			parts = append(parts, message.ToolCallPart(message.ToolCall{ID: c.ID, Name: c.Name, Parameters: c.Input}))
		}
	}

	return &llm.ModelResponse{
		ID:           out.ID,
		Model:        model,
		Content:      parts,
		FinishReason: anthropicFinishReason(out.StopReason),
		Usage:        llm.Usage{InputTokens: out.Usage.InputTokens, OutputTokens: out.Usage.OutputTokens},
		Raw:          out,
	}, nil
}

type anthropicBlockState struct {
	kind    string
	callID  string
	name    string
	argsBuf bytes.Buffer
}

// Stream performs a streaming messages-API call and translates Anthropic's
// named SSE events (message_start/content_block_start/_delta/_stop/
// message_delta/message_stop) into the canonical chunk alphabet.
func (p *AnthropicProvider) Stream(ctx context.Context, model string, req llm.Request) (<-chan stream.Chunk, error) {
	httpReq, err := p.newHTTPRequest(ctx, p.buildRequest(model, req, true))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, axerr.Wrap(axerr.KindProviderTransport, fmt.Errorf("anthropic: request failed: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, axerr.Wrap(axerr.KindProviderTransport, fmt.Errorf("anthropic: status %d: %s", resp.StatusCode, string(body)))
	}

	out := make(chan stream.Chunk, 16)
	messageID := uuid.NewString()

	go func() {
		defer resp.Body.Close()
		defer close(out)

		out <- stream.Chunk{Type: stream.ChunkStart, MessageID: messageID, Model: model}

		scanner := sse.NewScanner(resp.Body)
		blocks := make(map[int]*anthropicBlockState)
		var finish message.FinishReason = message.FinishStop
		var usage anthropicUsage

		for {
			ev, err := scanner.Next()
			if err != nil {
				break
			}
			var evt anthropicStreamEvent
			if err := json.Unmarshal(ev.Data, &evt); err != nil {
				continue
			}

			switch evt.Type {
			case "error":
				msg := ""
				if evt.Error != nil {
					msg = evt.Error.Message
				}
				out <- stream.Chunk{Type: stream.ChunkError, ErrorType: "provider_semantic", ErrorMessage: msg}
				return

			case "message_start":
				if evt.Message != nil {
					usage = evt.Message.Usage
				}

			case "content_block_start":
				if evt.ContentBlock == nil {
					continue
				}
				st := &anthropicBlockState{kind: evt.ContentBlock.Type}
				blocks[evt.Index] = st
				switch st.kind {
				case "text":
					out <- stream.Chunk{Type: stream.ChunkTextStart, PartIndex: evt.Index}
				case "tool_use":
					st.callID = evt.ContentBlock.ID
					st.name = evt.ContentBlock.Name
					out <- stream.Chunk{Type: stream.ChunkToolCallStart, PartIndex: evt.Index, CallID: st.callID, ToolName: st.name}
				}

			case "content_block_delta":
				st := blocks[evt.Index]
				if st == nil || evt.Delta == nil {
					continue
				}
				switch evt.Delta.Type {
				case "text_delta":
					out <- stream.Chunk{Type: stream.ChunkTextDelta, PartIndex: evt.Index, Text: evt.Delta.Text}
				case "input_json_delta":
					st.argsBuf.WriteString(evt.Delta.PartialJSON)
				}

			case "content_block_stop":
				st := blocks[evt.Index]
				if st == nil {
					continue
				}
				switch st.kind {
				case "text":
					out <- stream.Chunk{Type: stream.ChunkTextComplete, PartIndex: evt.Index}
				case "tool_use":
					argsJSON := st.argsBuf.String()
					if argsJSON == "" {
						argsJSON = "{}"
					}
					out <- stream.Chunk{Type: stream.ChunkToolCallComplete, PartIndex: evt.Index, CallID: st.callID, ToolName: st.name, ArgsJSON: argsJSON}
				}

			case "message_delta":
				if evt.Delta != nil && evt.Delta.StopReason != "" {
					finish = anthropicFinishReason(evt.Delta.StopReason)
				}
				if evt.Usage != nil {
					usage.OutputTokens = evt.Usage.OutputTokens
				}

			case "message_stop":
				// terminal event; completion chunk sent after the loop exits
			}
		}

		out <- stream.Chunk{
			Type:         stream.ChunkComplete,
			FinishReason: finish,
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
		}
	}()

	return out, nil
}

var _ llm.Provider = (*AnthropicProvider)(nil)
