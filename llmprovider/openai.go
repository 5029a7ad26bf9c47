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

// OpenAIConfig configures an OpenAI-compatible chat-completions adapter.
// BaseURL defaults to OpenAI itself but is overridable to target any
// OpenAI-wire-compatible gateway (Azure OpenAI, local vLLM, etc).
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Client  *httpclient.Client
}

// OpenAIProvider implements llm.Provider against the OpenAI chat-completions
// wire format, including native function calling.
type OpenAIProvider struct {
	cfg  OpenAIConfig
	http *httpclient.Client
}

// NewOpenAI constructs an OpenAIProvider.
func NewOpenAI(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Client == nil {
		cfg.Client = httpclient.New()
	}
	return &OpenAIProvider{cfg: cfg, http: cfg.Client}
}

func (p *OpenAIProvider) Name() string { return "openai" }

type openaiMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openaiTool struct {
	Type     string             `json:"type"`
	Function openaiToolFunction `json:"function"`
}

type openaiToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type openaiToolCall struct {
	Index    int                `json:"index"`
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openaiFunctionCall `json:"function"`
}

type openaiFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openaiRequest struct {
	Model       string           `json:"model"`
	Messages    []openaiMessage  `json:"messages"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
	Stop        []string         `json:"stop,omitempty"`
	Stream      bool             `json:"stream"`
	Tools       []openaiTool     `json:"tools,omitempty"`
	ToolChoice  string           `json:"tool_choice,omitempty"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type openaiAPIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type openaiResponse struct {
	Choices []struct {
		Message      openaiMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage openaiUsage     `json:"usage"`
	Error *openaiAPIError `json:"error,omitempty"`
}

type openaiStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string           `json:"content,omitempty"`
			ToolCalls []openaiToolCall `json:"tool_calls,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *openaiUsage    `json:"usage,omitempty"`
	Error *openaiAPIError `json:"error,omitempty"`
}

func toOpenAIMessages(req llm.Request) []openaiMessage {
	out := make([]openaiMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		out = append(out, openaiMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		switch m.Role {
		case message.RoleUser:
			out = append(out, openaiMessage{Role: "user", Content: m.TextContent()})
		case message.RoleAssistant:
			om := openaiMessage{Role: "assistant", Content: m.TextContent()}
			for _, tc := range m.ToolCalls() {
				args, _ := json.Marshal(tc.Parameters)
				om.ToolCalls = append(om.ToolCalls, openaiToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: openaiFunctionCall{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, om)
		case message.RoleTool:
			for _, r := range m.ToolResults {
				var text string
				for _, part := range r.Body {
					text += part.Text
				}
				out = append(out, openaiMessage{Role: "tool", Content: text, ToolCallID: r.CallID})
			}
		}
	}
	return out
}

func toOpenAITools(defs []tool.Definition) []openaiTool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]openaiTool, len(defs))
	for i, d := range defs {
		out[i] = openaiTool{
			Type: "function",
			Function: openaiToolFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Schema,
			},
		}
	}
	return out
}

func (p *OpenAIProvider) buildRequest(model string, req llm.Request, streamMode bool) openaiRequest {
	out := openaiRequest{
		Model:       model,
		Messages:    toOpenAIMessages(req),
		Temperature: req.Options.Temperature,
		MaxTokens:   req.Options.MaxTokens,
		Stop:        req.Options.Stop,
		Stream:      streamMode,
	}
	if tools := toOpenAITools(req.Tools); tools != nil {
		out.Tools = tools
		out.ToolChoice = "auto"
	}
	return out
}

func (p *OpenAIProvider) newHTTPRequest(ctx context.Context, body openaiRequest) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	return httpReq, nil
}

// Generate performs a single non-streaming chat-completions call.
func (p *OpenAIProvider) Generate(ctx context.Context, model string, req llm.Request) (*llm.ModelResponse, error) {
	httpReq, err := p.newHTTPRequest(ctx, p.buildRequest(model, req, false))
	if err != nil {
		return nil, err
	}

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, axerr.Wrap(axerr.KindProviderTransport, fmt.Errorf("openai: request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, axerr.Wrap(axerr.KindProviderTransport, fmt.Errorf("openai: read response: %w", err))
	}

	var out openaiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, axerr.Wrap(axerr.KindProviderTransport, fmt.Errorf("openai: decode response: %w (status %d)", err, resp.StatusCode))
	}
	if out.Error != nil {
		return nil, axerr.New(axerr.KindProviderSemantic, fmt.Sprintf("openai: %s", out.Error.Message))
	}
	if len(out.Choices) == 0 {
		return nil, axerr.New(axerr.KindProviderSemantic, "openai: empty choices")
	}

	choice := out.Choices[0]
	var parts []message.Part
	if choice.Message.Content != "" {
		parts = append(parts, message.TextPart(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, axerr.Wrap(axerr.KindParseMalformedToolArgs, fmt.Errorf("openai: decode tool arguments: %w", err))
		}
		parts = append(parts, message.ToolCallPart(message.ToolCall{ID: tc.ID, Name: tc.Function.Name, Parameters: args}))
	}

	return &llm.ModelResponse{
		ID:           uuid.NewString(),
		Model:        model,
		Content:      parts,
		FinishReason: openAIFinishReason(choice.FinishReason),
		Usage:        llm.Usage{InputTokens: out.Usage.PromptTokens, OutputTokens: out.Usage.CompletionTokens},
		Raw:          out,
	}, nil
}

func openAIFinishReason(reason string) message.FinishReason {
	switch reason {
	case "tool_calls":
		return message.FinishFunctionCall
	case "length":
		return message.FinishLength
	case "content_filter":
		return message.FinishError
	default:
		return message.FinishStop
	}
}

type openaiToolAccum struct {
	callID    string
	name      string
	args      bytes.Buffer
	started   bool
	partIndex int
}

// Stream performs a streaming chat-completions call and translates OpenAI's
// SSE frames into the canonical chunk alphabet.
func (p *OpenAIProvider) Stream(ctx context.Context, model string, req llm.Request) (<-chan stream.Chunk, error) {
	httpReq, err := p.newHTTPRequest(ctx, p.buildRequest(model, req, true))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, axerr.Wrap(axerr.KindProviderTransport, fmt.Errorf("openai: request failed: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, axerr.Wrap(axerr.KindProviderTransport, fmt.Errorf("openai: status %d: %s", resp.StatusCode, string(body)))
	}

	out := make(chan stream.Chunk, 16)
	messageID := uuid.NewString()

	go func() {
		defer resp.Body.Close()
		defer close(out)

		out <- stream.Chunk{Type: stream.ChunkStart, MessageID: messageID, Model: model}

		scanner := sse.NewScanner(resp.Body)
		nextIndex := 0
		textOpen := false
		textIndex := 0
		tools := make(map[int]*openaiToolAccum)
		toolIndices := make([]int, 0, 2)
		var finish message.FinishReason = message.FinishStop
		var usage openaiUsage

		closeTools := func() {
			for _, idx := range toolIndices {
				t := tools[idx]
				out <- stream.Chunk{Type: stream.ChunkToolCallComplete, PartIndex: t.partIndex, CallID: t.callID, ToolName: t.name, ArgsJSON: t.args.String()}
			}
		}

		for {
			ev, err := scanner.Next()
			if err != nil {
				break
			}
			var chunk openaiStreamChunk
			if err := json.Unmarshal(ev.Data, &chunk); err != nil {
				continue
			}
			if chunk.Error != nil {
				out <- stream.Chunk{Type: stream.ChunkError, ErrorType: "provider_semantic", ErrorMessage: chunk.Error.Message}
				return
			}
			if chunk.Usage != nil {
				usage = *chunk.Usage
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]

			if choice.Delta.Content != "" {
				if !textOpen {
					textIndex = nextIndex
					nextIndex++
					out <- stream.Chunk{Type: stream.ChunkTextStart, PartIndex: textIndex}
					textOpen = true
				}
				out <- stream.Chunk{Type: stream.ChunkTextDelta, PartIndex: textIndex, Text: choice.Delta.Content}
			}

			for _, d := range choice.Delta.ToolCalls {
				t, ok := tools[d.Index]
				if !ok {
					t = &openaiToolAccum{}
					tools[d.Index] = t
					toolIndices = append(toolIndices, d.Index)
				}
				if d.ID != "" {
					t.callID = d.ID
				}
				if d.Function.Name != "" {
					t.name = d.Function.Name
				}
				if !t.started && t.callID != "" && t.name != "" {
					t.started = true
					t.partIndex = nextIndex
					out <- stream.Chunk{Type: stream.ChunkToolCallStart, PartIndex: nextIndex, CallID: t.callID, ToolName: t.name}
					nextIndex++
				}
				t.args.WriteString(d.Function.Arguments)
			}

			if choice.FinishReason != "" {
				finish = openAIFinishReason(choice.FinishReason)
			}
		}

		if textOpen {
			out <- stream.Chunk{Type: stream.ChunkTextComplete, PartIndex: textIndex}
		}
		closeTools()

		out <- stream.Chunk{
			Type:         stream.ChunkComplete,
			FinishReason: finish,
			InputTokens:  usage.PromptTokens,
			OutputTokens: usage.CompletionTokens,
		}
	}()

	return out, nil
}

var _ llm.Provider = (*OpenAIProvider)(nil)
