package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func completionBody(content string) string {
	resp := map[string]any{
		"model": "test-model",
		"choices": []map[string]any{
			{
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
	}
	raw, _ := json.Marshal(resp)
	return string(raw)
}

func TestCompleteSendsExpectedRequest(t *testing.T) {
	var captured chatRequest
	var authHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("{\"ok\": true}")))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk-test", "test-model", 5*time.Second)

	content, err := client.Complete(context.Background(), "generate a plan", 0.4, 900)
	require.NoError(t, err)
	require.Equal(t, `{"ok": true}`, content)

	require.Equal(t, "Bearer sk-test", authHeader)
	require.Equal(t, "test-model", captured.Model)
	require.Len(t, captured.Messages, 1)
	require.Equal(t, "user", captured.Messages[0].Role)
	require.Equal(t, "generate a plan", captured.Messages[0].Content)
	require.NotNil(t, captured.Temperature)
	require.InDelta(t, 0.4, *captured.Temperature, 1e-9)
	require.NotNil(t, captured.MaxTokens)
	require.Equal(t, 900, *captured.MaxTokens)
}

func TestCompleteFailsOnProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk-test", "test-model", 5*time.Second)

	_, err := client.Complete(context.Background(), "prompt", 0.4, 100)
	require.ErrorIs(t, err, ErrProviderFailure)
}

func TestCompleteFailsOnMissingCompletionText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"test-model","choices":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk-test", "test-model", 5*time.Second)

	_, err := client.Complete(context.Background(), "prompt", 0.4, 100)
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestCompleteFailsOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Connection refused from here on.

	client := NewClient(srv.URL, "sk-test", "test-model", time.Second)

	_, err := client.Complete(context.Background(), "prompt", 0.4, 100)
	require.ErrorIs(t, err, ErrProviderFailure)
}

func TestEndpointURLHandlesExistingSuffix(t *testing.T) {
	client := NewClient("https://api.example.com/v1/chat/completions", "", "m", time.Second)
	require.Equal(t, "https://api.example.com/v1/chat/completions", client.endpointURL())

	client = NewClient("https://api.example.com/v1/", "", "m", time.Second)
	require.Equal(t, "https://api.example.com/v1/chat/completions", client.endpointURL())
}
