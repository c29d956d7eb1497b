package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-nuggeteval/internal/ports"
)

func TestAnthropicProvider_DoRequest(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20241022",
			"content": [{"type": "text", "text": "NO"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 30, "output_tokens": 1}
		}`))
	}))
	defer server.Close()

	provider, err := newAnthropicProvider(ClientConfig{APIKey: "test-key", BaseURL: server.URL + "/"})
	require.NoError(t, err)

	response, tokensIn, tokensOut, err := provider.DoRequest(context.Background(), "Does the sentence agree?", map[string]any{
		"system":      "Respond with ONLY 'YES' or 'NO'.",
		"temperature": 0.0,
		"max_tokens":  10,
	})

	require.NoError(t, err)
	assert.Equal(t, "NO", response)
	assert.Equal(t, 30, tokensIn)
	assert.Equal(t, 1, tokensOut)

	assert.Equal(t, AnthropicDefaultModel, got["model"])
	assert.InDelta(t, 10.0, got["max_tokens"], 0)
	assert.InDelta(t, 0.0, got["temperature"], 0)
	system, ok := got["system"].([]any)
	require.True(t, ok, "system prompt is sent as text blocks")
	require.Len(t, system, 1)
	assert.Equal(t, "Respond with ONLY 'YES' or 'NO'.", system[0].(map[string]any)["text"])
}

func TestAnthropicProvider_ErrorHandling(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantType   ErrorType
		wantIs     error
	}{
		{"authentication", http.StatusUnauthorized, ErrorTypeAuthentication, ports.ErrAuthenticationFailed},
		{"rate limit", http.StatusTooManyRequests, ErrorTypeRateLimit, ports.ErrRateLimited},
		{"overloaded", 529, ErrorTypeServerError, ports.ErrTransport},
		{"invalid request", http.StatusBadRequest, ErrorTypeBadRequest, ports.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "api_error", "message": "failed"}}`))
			}))
			defer server.Close()

			provider, err := newAnthropicProvider(ClientConfig{APIKey: "k", BaseURL: server.URL + "/"})
			require.NoError(t, err)

			_, _, _, err = provider.DoRequest(context.Background(), "q", nil)

			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantType, pe.Type)
			assert.ErrorIs(t, err, tt.wantIs)
			assert.Equal(t, 1, calls, "SDK retries are disabled")
		})
	}
}

func TestAnthropicProvider_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "m", "type": "message", "role": "assistant", "content": [], "usage": {"input_tokens": 1, "output_tokens": 0}}`))
	}))
	defer server.Close()

	provider, err := newAnthropicProvider(ClientConfig{APIKey: "k", BaseURL: server.URL + "/"})
	require.NoError(t, err)

	_, _, _, err = provider.DoRequest(context.Background(), "q", nil)

	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestAnthropicProvider_RequiresKey(t *testing.T) {
	_, err := newAnthropicProvider(ClientConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)
}
