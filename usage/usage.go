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

// Package usage estimates token counts locally via tiktoken-go, for use as
// a fallback when a provider response carries no usage block.
package usage

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.RWMutex
)

func encodingFor(model string) (*tiktoken.Tiktoken, error) {
	cacheMu.RLock()
	cached, ok := encodingCache[model]
	cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	cacheMu.Lock()
	encodingCache[model] = enc
	cacheMu.Unlock()
	return enc, nil
}

// Estimate returns the token count of text under model's encoding. A model
// tiktoken does not know is counted with cl100k_base; the 4-characters-per-
// token approximation is used only when no encoding can be loaded at all.
func Estimate(text, model string) int {
	enc, err := encodingFor(model)
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// EncodingNameForModel maps a model name to the tiktoken encoding it likely
// uses, for callers that want to report which encoding backed an estimate.
func EncodingNameForModel(model string) string {
	known := map[string]string{
		"gpt-4":         "cl100k_base",
		"gpt-4-turbo":   "cl100k_base",
		"gpt-4o":        "o200k_base",
		"gpt-4o-mini":   "o200k_base",
		"gpt-3.5-turbo": "cl100k_base",
	}
	if enc, ok := known[model]; ok {
		return enc
	}
	// Longest matching prefix wins, so "gpt-4o-2024-05-13" resolves through
	// "gpt-4o" rather than "gpt-4".
	best := ""
	for prefix := range known {
		if len(model) >= len(prefix) && model[:len(prefix)] == prefix && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return known[best]
	}
	return "cl100k_base"
}
