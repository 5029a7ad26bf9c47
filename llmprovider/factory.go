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

// Package llmprovider implements the concrete llm.Provider adapters: OpenAI
// chat-completions, Anthropic's native messages API, and Ollama's local
// chat endpoint. The core never imports this package directly; callers
// (the CLI, tests) wire a concrete Provider into an agent.Agent or
// dag.Scheduler via the llm.Provider interface.
package llmprovider

import (
	"fmt"

	"github.com/axle-run/axle/llm"
	"github.com/axle-run/axle/pkg/httpclient"
)

// Settings is the minimal set of fields every adapter's constructor needs;
// the CLI's config loader populates one of these per configured
// provider block.
type Settings struct {
	Type    string
	APIKey  string
	BaseURL string
}

// New builds the llm.Provider named by settings.Type ("openai", "anthropic",
// or "ollama"), using client as its transport. Adapters built with the same
// client share it; a nil client gives this adapter its own httpclient.New().
func New(settings Settings, client *httpclient.Client) (llm.Provider, error) {
	if client == nil {
		client = httpclient.New()
	}
	switch settings.Type {
	case "openai":
		return NewOpenAI(OpenAIConfig{APIKey: settings.APIKey, BaseURL: settings.BaseURL, Client: client}), nil
	case "anthropic":
		return NewAnthropic(AnthropicConfig{APIKey: settings.APIKey, BaseURL: settings.BaseURL, Client: client}), nil
	case "ollama":
		return NewOllama(OllamaConfig{BaseURL: settings.BaseURL, Client: client}), nil
	default:
		return nil, fmt.Errorf("llmprovider: unsupported provider type %q", settings.Type)
	}
}
