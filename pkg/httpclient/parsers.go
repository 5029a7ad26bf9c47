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

package httpclient

import (
	"net/http"
	"strconv"
	"time"
)

// Each provider family reports rate limits in its own header dialect; the
// parsers below normalize the three dialects the adapters in this repo (or a
// gateway in front of them) can encounter into one RateLimitInfo.

func retryAfterSeconds(headers http.Header) time.Duration {
	v := headers.Get("Retry-After")
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func headerInt(headers http.Header, name string) int {
	n, err := strconv.Atoi(headers.Get(name))
	if err != nil {
		return 0
	}
	return n
}

// ParseOpenAIHeaders reads OpenAI's x-ratelimit-* dialect: unix-timestamp
// reset headers and remaining-count headers, with token resets taking
// priority over request resets.
func ParseOpenAIHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{RetryAfter: retryAfterSeconds(headers)}

	for _, name := range []string{"x-ratelimit-reset-tokens", "x-ratelimit-reset-requests"} {
		if v := headers.Get(name); v != "" {
			if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
				info.ResetTime = ts
				break
			}
		}
	}

	info.RequestsRemaining = headerInt(headers, "x-ratelimit-remaining-requests")
	info.TokensRemaining = headerInt(headers, "x-ratelimit-remaining-tokens")
	return info
}

// ParseAnthropicHeaders reads Anthropic's anthropic-ratelimit-* dialect:
// RFC3339 reset timestamps and separate input/output token budgets.
func ParseAnthropicHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{RetryAfter: retryAfterSeconds(headers)}

	for _, name := range []string{
		"anthropic-ratelimit-input-tokens-reset",
		"anthropic-ratelimit-output-tokens-reset",
		"anthropic-ratelimit-requests-reset",
	} {
		if v := headers.Get(name); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				info.ResetTime = t.Unix()
				break
			}
		}
	}

	info.RequestsRemaining = headerInt(headers, "anthropic-ratelimit-requests-remaining")
	info.InputTokensRemaining = headerInt(headers, "anthropic-ratelimit-input-tokens-remaining")
	info.OutputTokensRemaining = headerInt(headers, "anthropic-ratelimit-output-tokens-remaining")
	return info
}

// ParseGeminiHeaders reads the Gemini dialect, which exposes only a bare
// Retry-After: no reset-time or remaining-count headers.
func ParseGeminiHeaders(headers http.Header) RateLimitInfo {
	return RateLimitInfo{RetryAfter: retryAfterSeconds(headers)}
}
