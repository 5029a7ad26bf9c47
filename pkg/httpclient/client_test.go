package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		options  []Option
		validate func(t *testing.T, client *Client)
	}{
		{
			name: "default_configuration",
			validate: func(t *testing.T, client *Client) {
				assert.Equal(t, 5, client.maxRetries)
				assert.Equal(t, 2*time.Second, client.baseDelay)
				assert.Equal(t, 120*time.Second, client.client.Timeout)
				assert.NotNil(t, client.strategyFunc)
			},
		},
		{
			name:    "custom_max_retries",
			options: []Option{WithMaxRetries(3)},
			validate: func(t *testing.T, client *Client) {
				assert.Equal(t, 3, client.maxRetries)
			},
		},
		{
			name:    "custom_header_parser",
			options: []Option{WithHeaderParser(func(h http.Header) RateLimitInfo { return RateLimitInfo{RetryAfter: 10 * time.Second} })},
			validate: func(t *testing.T, client *Client) {
				info := client.headerParser(http.Header{})
				assert.Equal(t, 10*time.Second, info.RetryAfter)
			},
		},
		{
			name: "multiple_options",
			options: []Option{
				WithMaxRetries(2),
				WithBaseDelay(1 * time.Second),
				WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
			},
			validate: func(t *testing.T, client *Client) {
				assert.Equal(t, 2, client.maxRetries)
				assert.Equal(t, 1*time.Second, client.baseDelay)
				assert.Equal(t, 10*time.Second, client.client.Timeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, New(tt.options...))
		})
	}
}

func TestDefaultStrategy(t *testing.T) {
	tests := []struct {
		statusCode int
		expected   RetryStrategy
	}{
		{http.StatusTooManyRequests, SmartRetry},
		{http.StatusServiceUnavailable, SmartRetry},
		{http.StatusRequestTimeout, ConservativeRetry},
		{http.StatusInternalServerError, ConservativeRetry},
		{http.StatusBadGateway, ConservativeRetry},
		{http.StatusGatewayTimeout, ConservativeRetry},
		{http.StatusOK, NoRetry},
		{http.StatusNotFound, NoRetry},
		{http.StatusUnauthorized, NoRetry},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DefaultStrategy(tt.statusCode), "status %d", tt.statusCode)
	}
}

func TestClient_Do_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	}))
	defer server.Close()

	client := New(WithHTTPClient(server.Client()))
	req, _ := http.NewRequest("GET", server.URL, nil)

	resp, err := client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClient_Do_RetriesThenSucceeds(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(WithHTTPClient(server.Client()), WithMaxRetries(3), WithBaseDelay(5*time.Millisecond))
	req, _ := http.NewRequest("GET", server.URL, nil)

	resp, err := client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, attempts)
}

func TestClient_Do_MaxRetriesExceeded(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(WithHTTPClient(server.Client()), WithMaxRetries(2), WithBaseDelay(5*time.Millisecond))
	req, _ := http.NewRequest("GET", server.URL, nil)

	_, err := client.Do(req)
	require.Error(t, err)
	var retryErr *RetryableError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, http.StatusInternalServerError, retryErr.StatusCode)
	assert.Equal(t, 3, attempts, "1 initial attempt + 2 retries")
}

func TestClient_Do_HonorsRetryAfterHeader(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(WithHTTPClient(server.Client()), WithMaxRetries(3), WithHeaderParser(ParseOpenAIHeaders))
	req, _ := http.NewRequest("GET", server.URL, nil)

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.GreaterOrEqual(t, elapsed, 1*time.Second, "Retry-After should be honored")
}

func TestClient_calculateDelay(t *testing.T) {
	client := New(WithBaseDelay(1 * time.Second))

	tests := []struct {
		name      string
		strategy  RetryStrategy
		attempt   int
		retryInfo RateLimitInfo
		expected  time.Duration
	}{
		{name: "no_retry", strategy: NoRetry, expected: 0},
		{name: "smart_retry_with_retry_after", strategy: SmartRetry, retryInfo: RateLimitInfo{RetryAfter: 5 * time.Second}, expected: 5 * time.Second},
		{name: "conservative_attempt_0", strategy: ConservativeRetry, attempt: 0, expected: 2 * time.Second},
		{name: "conservative_attempt_1", strategy: ConservativeRetry, attempt: 1, expected: 3 * time.Second},
		{name: "conservative_exhausted", strategy: ConservativeRetry, attempt: 2, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, client.calculateDelay(tt.strategy, tt.attempt, tt.retryInfo))
		})
	}
}
