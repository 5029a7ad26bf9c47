package httpclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseOpenAIHeaders(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected RateLimitInfo
	}{
		{name: "empty_headers", headers: map[string]string{}, expected: RateLimitInfo{}},
		{
			name:     "retry_after_seconds",
			headers:  map[string]string{"Retry-After": "30"},
			expected: RateLimitInfo{RetryAfter: 30 * time.Second},
		},
		{
			name:     "retry_after_invalid_is_ignored",
			headers:  map[string]string{"Retry-After": "not-a-number"},
			expected: RateLimitInfo{},
		},
		{
			name:     "token_reset_takes_priority_over_request_reset",
			headers:  map[string]string{"x-ratelimit-reset-tokens": "1640995200", "x-ratelimit-reset-requests": "1640995300"},
			expected: RateLimitInfo{ResetTime: 1640995200},
		},
		{
			name: "complete_headers",
			headers: map[string]string{
				"Retry-After":                    "60",
				"x-ratelimit-reset-tokens":       "1640995200",
				"x-ratelimit-remaining-requests": "50",
				"x-ratelimit-remaining-tokens":   "25000",
			},
			expected: RateLimitInfo{RetryAfter: 60 * time.Second, ResetTime: 1640995200, RequestsRemaining: 50, TokensRemaining: 25000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}
			assert.Equal(t, tt.expected, ParseOpenAIHeaders(headers))
		})
	}
}

func TestParseAnthropicHeaders(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected RateLimitInfo
	}{
		{name: "empty_headers", headers: map[string]string{}, expected: RateLimitInfo{}},
		{
			name:     "retry_after_seconds",
			headers:  map[string]string{"retry-after": "45"},
			expected: RateLimitInfo{RetryAfter: 45 * time.Second},
		},
		{
			name:     "input_tokens_reset_rfc3339",
			headers:  map[string]string{"anthropic-ratelimit-input-tokens-reset": "2021-12-31T23:59:59Z"},
			expected: RateLimitInfo{ResetTime: 1640995199},
		},
		{
			name:     "reset_time_invalid_rfc3339_is_ignored",
			headers:  map[string]string{"anthropic-ratelimit-input-tokens-reset": "not-a-date"},
			expected: RateLimitInfo{},
		},
		{
			name: "complete_headers",
			headers: map[string]string{
				"retry-after":                                 "30",
				"anthropic-ratelimit-input-tokens-reset":      "2021-12-31T23:59:59Z",
				"anthropic-ratelimit-requests-remaining":      "25",
				"anthropic-ratelimit-input-tokens-remaining":  "75000",
				"anthropic-ratelimit-output-tokens-remaining": "25000",
			},
			expected: RateLimitInfo{
				RetryAfter: 30 * time.Second, ResetTime: 1640995199,
				RequestsRemaining: 25, InputTokensRemaining: 75000, OutputTokensRemaining: 25000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}
			assert.Equal(t, tt.expected, ParseAnthropicHeaders(headers))
		})
	}
}

// TestParseGeminiHeaders covers the Gemini dialect, which only exposes a
// bare Retry-After, no reset-time or remaining-count headers.
func TestParseGeminiHeaders(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected RateLimitInfo
	}{
		{name: "empty_headers", headers: map[string]string{}, expected: RateLimitInfo{}},
		{
			name:     "retry_after_seconds",
			headers:  map[string]string{"Retry-After": "20"},
			expected: RateLimitInfo{RetryAfter: 20 * time.Second},
		},
		{
			name:     "retry_after_invalid_is_ignored",
			headers:  map[string]string{"Retry-After": "soon"},
			expected: RateLimitInfo{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}
			assert.Equal(t, tt.expected, ParseGeminiHeaders(headers))
		})
	}
}
