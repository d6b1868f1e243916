// Package llmprovider implements Component E, the Provider Adapter: a
// uniform chat_completion/chat_completion_stream surface over OpenAI-
// compatible vendor endpoints, grounded on the teacher's
// internal/infra/llm.openaiClient (request shape, status-code branching,
// response decoding) with its HTTP transport rebuilt on net/http directly —
// no third-party HTTP client library appears anywhere in the retrieval
// pack, so stdlib is the only grounded choice here (see DESIGN.md).
package llmprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/logging"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// Config configures one OpenAI-compatible endpoint.
type Config struct {
	ProviderType string
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
}

const defaultTimeout = 60 * time.Second

// Client is a ports.Provider over an OpenAI-compatible chat/completions
// endpoint (OpenAI itself, OpenRouter, or any vendor proxy speaking the
// same wire format).
type Client struct {
	providerType string
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	logger       logging.Logger
}

var _ ports.Provider = (*Client)(nil)

// New builds a Client. An empty BaseURL defaults to OpenAI's own endpoint.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		providerType: cfg.ProviderType,
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logging.NewComponentLogger("llmprovider.Client"),
	}
}

func (c *Client) ProviderType() string { return c.providerType }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toChatMessages(messages []ports.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ChatCompletion implements spec.md §4.E's synchronous path.
func (c *Client) ChatCompletion(ctx context.Context, messages []ports.Message, model string, temperature float64, maxTokens int) (ports.Completion, error) {
	body, err := json.Marshal(map[string]any{
		"model":       model,
		"messages":    toChatMessages(messages),
		"temperature": temperature,
		"max_tokens":  maxTokens,
		"stream":      false,
	})
	if err != nil {
		return ports.Completion{}, &ports.ProviderError{Code: ports.ErrBadResponse, Message: "marshal request: " + err.Error()}
	}

	resp, err := c.doPost(ctx, "/chat/completions", body)
	if err != nil {
		return ports.Completion{}, wrapTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.Completion{}, &ports.ProviderError{Code: ports.ErrTransport, Message: "read response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ports.Completion{}, mapHTTPError(resp.StatusCode, respBody)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return ports.Completion{}, &ports.ProviderError{Code: ports.ErrBadResponse, Message: "decode response: " + err.Error()}
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return ports.Completion{}, mapHTTPError(resp.StatusCode, []byte(parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return ports.Completion{}, &ports.ProviderError{Code: ports.ErrBadResponse, Message: "no choices in response"}
	}

	return ports.Completion{
		Text: parsed.Choices[0].Message.Content,
		Usage: ports.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
		},
	}, nil
}

func (c *Client) doPost(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.httpClient.Do(req)
}

func wrapTransportError(err error) error {
	return &ports.ProviderError{Code: ports.ErrTransport, Message: err.Error()}
}

// mapHTTPError translates an OpenAI-compatible error response into
// spec.md §4.E's closed error set.
func mapHTTPError(status int, body []byte) error {
	msg := string(body)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ports.ProviderError{Code: ports.ErrAuthFailed, Message: msg}
	case http.StatusTooManyRequests:
		return &ports.ProviderError{Code: ports.ErrRateLimited, Message: msg}
	case http.StatusBadRequest, http.StatusNotFound:
		return &ports.ProviderError{Code: ports.ErrInvalidModel, Message: msg}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &ports.ProviderError{Code: ports.ErrTransport, Message: msg}
	default:
		return &ports.ProviderError{Code: ports.ErrBadResponse, Message: fmt.Sprintf("status %d: %s", status, msg)}
	}
}
