package llmprovider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

func TestChatCompletionReturnsTextAndUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"hello there"}}],"usage":{"prompt_tokens":5,"completion_tokens":2}}`)
	}))
	defer server.Close()

	client := New(Config{ProviderType: "openai-compatible", BaseURL: server.URL, APIKey: "test-key"})
	completion, err := client.ChatCompletion(context.Background(), []ports.Message{{Role: ports.RoleUser, Content: "hi"}}, "test-model", 0.2, 100)

	require.NoError(t, err)
	assert.Equal(t, "hello there", completion.Text)
	assert.Equal(t, 5, completion.Usage.PromptTokens)
	assert.Equal(t, 2, completion.Usage.CompletionTokens)
}

func TestChatCompletionMapsRateLimitStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	_, err := client.ChatCompletion(context.Background(), []ports.Message{{Role: ports.RoleUser, Content: "hi"}}, "test-model", 0.2, 100)

	require.Error(t, err)
	var providerErr *ports.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, ports.ErrRateLimited, providerErr.Code)
	assert.True(t, providerErr.Retriable())
}

func TestChatCompletionMapsAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	_, err := client.ChatCompletion(context.Background(), nil, "test-model", 0.2, 100)

	require.Error(t, err)
	var providerErr *ports.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, ports.ErrAuthFailed, providerErr.Code)
	assert.False(t, providerErr.Retriable())
}

func TestChatCompletionRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	_, err := client.ChatCompletion(context.Background(), nil, "test-model", 0.2, 100)

	require.Error(t, err)
	var providerErr *ports.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, ports.ErrBadResponse, providerErr.Code)
}

func TestChatCompletionStreamYieldsDeltasThenDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	stream, err := client.ChatCompletionStream(context.Background(), []ports.Message{{Role: ports.RoleUser, Content: "hi"}}, "test-model", 0.2, 100)
	require.NoError(t, err)
	defer stream.Close()

	var collected string
	for {
		chunk, err := stream.Next(context.Background())
		require.NoError(t, err)
		collected += chunk.Content
		if chunk.Done {
			break
		}
	}
	assert.Equal(t, "hello", collected)
}

func TestChatCompletionStreamPropagatesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom"}}`)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	_, err := client.ChatCompletionStream(context.Background(), nil, "test-model", 0.2, 100)

	require.Error(t, err)
	var providerErr *ports.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, ports.ErrTransport, providerErr.Code)
}

func TestProviderTypeReturnsConfiguredValue(t *testing.T) {
	client := New(Config{ProviderType: "openrouter"})
	assert.Equal(t, "openrouter", client.ProviderType())
}
