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
	"github.com/axle-run/axle/llm"
	"github.com/axle-run/axle/message"
	"github.com/axle-run/axle/pkg/httpclient"
	"github.com/axle-run/axle/stream"
	"github.com/axle-run/axle/tool"
)

// OllamaConfig configures the adapter for a local (or remote) Ollama
// daemon's /api/chat endpoint.
type OllamaConfig struct {
	BaseURL string
	Client  *httpclient.Client
}

// OllamaProvider implements llm.Provider against Ollama's chat endpoint.
// Ollama streams newline-delimited JSON objects rather than SSE frames, so
// unlike the other adapters this one decodes directly with json.Decoder
// instead of going through internal/sse.
type OllamaProvider struct {
	cfg  OllamaConfig
	http *httpclient.Client
}

// NewOllama constructs an OllamaProvider.
func NewOllama(cfg OllamaConfig) *OllamaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Client == nil {
		cfg.Client = httpclient.New()
	}
	return &OllamaProvider{cfg: cfg, http: cfg.Client}
}

func (p *OllamaProvider) Name() string { return "ollama" }

type ollamaTool struct {
	Type     string             `json:"type"`
	Function ollamaToolFunction `json:"function"`
}

type ollamaToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ollamaToolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content,omitempty"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool           `json:"stream"`
	Tools    []ollamaTool   `json:"tools,omitempty"`
	Options  ollamaOptions  `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message   ollamaMessage `json:"message"`
	Done      bool          `json:"done"`
	DoneReason string       `json:"done_reason,omitempty"`

	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

func toOllamaMessages(req llm.Request) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		out = append(out, ollamaMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		switch m.Role {
		case message.RoleUser:
			out = append(out, ollamaMessage{Role: "user", Content: m.TextContent()})
		case message.RoleAssistant:
			om := ollamaMessage{Role: "assistant", Content: m.TextContent()}
			for _, tc := range m.ToolCalls() {
				var call ollamaToolCall
				call.Function.Name = tc.Name
				call.Function.Arguments = tc.Parameters
				om.ToolCalls = append(om.ToolCalls, call)
			}
			out = append(out, om)
		case message.RoleTool:
			for _, r := range m.ToolResults {
				var text string
				for _, part := range r.Body {
					text += part.Text
				}
				out = append(out, ollamaMessage{Role: "tool", Content: text})
			}
		}
	}
	return out
}

func toOllamaTools(defs []tool.Definition) []ollamaTool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]ollamaTool, len(defs))
	for i, d := range defs {
		out[i] = ollamaTool{Type: "function", Function: ollamaToolFunction{Name: d.Name, Description: d.Description, Parameters: d.Schema}}
	}
	return out
}

func (p *OllamaProvider) buildRequest(model string, req llm.Request, streamMode bool) ollamaRequest {
	return ollamaRequest{
		Model:    model,
		Messages: toOllamaMessages(req),
		Stream:   streamMode,
		Tools:    toOllamaTools(req.Tools),
		Options: ollamaOptions{
			Temperature: req.Options.Temperature,
			NumPredict:  req.Options.MaxTokens,
			Stop:        req.Options.Stop,
		},
	}
}

func (p *OllamaProvider) newHTTPRequest(ctx context.Context, body ollamaRequest) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}
	return http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/api/chat", bytes.NewReader(payload))
}

func ollamaPartsAndFinish(msg ollamaMessage, done bool) ([]message.Part, message.FinishReason) {
	var parts []message.Part
	if msg.Content != "" {
		parts = append(parts, message.TextPart(msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		parts = append(parts, message.ToolCallPart(message.ToolCall{ID: uuid.NewString(), Name: tc.Function.Name, Parameters: tc.Function.Arguments}))
	}
	finish := message.FinishStop
	if len(msg.ToolCalls) > 0 {
		finish = message.FinishFunctionCall
	}
	return parts, finish
}

// Generate performs a single non-streaming /api/chat call.
func (p *OllamaProvider) Generate(ctx context.Context, model string, req llm.Request) (*llm.ModelResponse, error) {
	httpReq, err := p.newHTTPRequest(ctx, p.buildRequest(model, req, false))
	if err != nil {
		return nil, err
	}

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, axerr.Wrap(axerr.KindProviderTransport, fmt.Errorf("ollama: request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, axerr.Wrap(axerr.KindProviderTransport, fmt.Errorf("ollama: read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, axerr.Wrap(axerr.KindProviderTransport, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, string(body)))
	}

	var out ollamaResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, axerr.Wrap(axerr.KindProviderTransport, fmt.Errorf("ollama: decode response: %w", err))
	}

	parts, finish := ollamaPartsAndFinish(out.Message, out.Done)
	return &llm.ModelResponse{
		ID:           uuid.NewString(),
		Model:        model,
		Content:      parts,
		FinishReason: finish,
		Usage:        llm.Usage{InputTokens: out.PromptEvalCount, OutputTokens: out.EvalCount},
		Raw:          out,
	}, nil
}

// Stream performs a streaming /api/chat call. Ollama does not emit
// incremental tool-call argument fragments the way OpenAI/Anthropic do (a
// tool_calls-bearing chunk arrives whole), so each NDJSON object maps
// directly onto one text-delta or one complete tool-call-start+complete
// pair, the simulated-streaming shape the provider contract allows.
func (p *OllamaProvider) Stream(ctx context.Context, model string, req llm.Request) (<-chan stream.Chunk, error) {
	httpReq, err := p.newHTTPRequest(ctx, p.buildRequest(model, req, true))
	if err != nil {
		return nil, err
	}

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, axerr.Wrap(axerr.KindProviderTransport, fmt.Errorf("ollama: request failed: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, axerr.Wrap(axerr.KindProviderTransport, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, string(body)))
	}

	out := make(chan stream.Chunk, 16)
	messageID := uuid.NewString()

	go func() {
		defer resp.Body.Close()
		defer close(out)

		out <- stream.Chunk{Type: stream.ChunkStart, MessageID: messageID, Model: model}

		decoder := json.NewDecoder(resp.Body)
		nextIndex := 0
		textOpen := false
		textIndex := 0
		var finish message.FinishReason = message.FinishStop
		var usage ollamaResponse

		for {
			var chunk ollamaResponse
			if err := decoder.Decode(&chunk); err != nil {
				break
			}

			if chunk.Message.Content != "" {
				if !textOpen {
					textIndex = nextIndex
					nextIndex++
					out <- stream.Chunk{Type: stream.ChunkTextStart, PartIndex: textIndex}
					textOpen = true
				}
				out <- stream.Chunk{Type: stream.ChunkTextDelta, PartIndex: textIndex, Text: chunk.Message.Content}
			}

			for _, tc := range chunk.Message.ToolCalls {
				idx := nextIndex
				nextIndex++
				callID := uuid.NewString()
				argsJSON, _ := json.Marshal(tc.Function.Arguments)
				out <- stream.Chunk{Type: stream.ChunkToolCallStart, PartIndex: idx, CallID: callID, ToolName: tc.Function.Name}
				out <- stream.Chunk{Type: stream.ChunkToolCallComplete, PartIndex: idx, CallID: callID, ToolName: tc.Function.Name, ArgsJSON: string(argsJSON)}
				finish = message.FinishFunctionCall
			}

			usage = chunk
			if chunk.Done {
				if finish == message.FinishStop && chunk.DoneReason == "length" {
					finish = message.FinishLength
				}
				break
			}
		}

		if textOpen {
			out <- stream.Chunk{Type: stream.ChunkTextComplete, PartIndex: textIndex}
		}

		out <- stream.Chunk{
			Type:         stream.ChunkComplete,
			FinishReason: finish,
			InputTokens:  usage.PromptEvalCount,
			OutputTokens: usage.EvalCount,
		}
	}()

	return out, nil
}

var _ llm.Provider = (*OllamaProvider)(nil)
