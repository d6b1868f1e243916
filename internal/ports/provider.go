package ports

import "context"

// Role is a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat_completion request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Completion is the synchronous chat_completion result.
type Completion struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

// StreamChunk is one text delta of chat_completion_stream.
type StreamChunk struct {
	Content string
	Done    bool
}

// ProviderErrorCode is the closed error set of spec.md §4.E.
type ProviderErrorCode string

const (
	ErrInvalidModel ProviderErrorCode = "InvalidModel"
	ErrAuthFailed   ProviderErrorCode = "AuthFailed"
	ErrRateLimited  ProviderErrorCode = "RateLimited"
	ErrTransport    ProviderErrorCode = "Transport"
	ErrBadResponse  ProviderErrorCode = "BadResponse"
)

// ProviderError is the translated, vendor-agnostic error shape.
type ProviderError struct {
	Code    ProviderErrorCode
	Message string
}

func (e *ProviderError) Error() string { return string(e.Code) + ": " + e.Message }

// Retriable reports whether the caller may retry with backoff.
func (e *ProviderError) Retriable() bool {
	return e.Code == ErrRateLimited || e.Code == ErrTransport
}

// StreamReader is a finite, non-restartable lazy sequence of text deltas.
// Next blocks until a chunk is available, the stream ends (io.EOF-like via
// Done=true), or ctx is cancelled. Cancelling ctx stops further reads
// promptly (spec.md §4.E).
type StreamReader interface {
	Next(ctx context.Context) (StreamChunk, error)
	Close() error
}

// Provider is the uniform capability surface over multiple LLM vendors
// (Component E). Callers must never branch on concrete provider type; the
// duck-typed capability set is {chat_completion, chat_completion_stream,
// provider_type} per Design Note "Duck-typed provider adapter".
type Provider interface {
	ProviderType() string
	ChatCompletion(ctx context.Context, messages []Message, model string, temperature float64, maxTokens int) (Completion, error)
	ChatCompletionStream(ctx context.Context, messages []Message, model string, temperature float64, maxTokens int) (StreamReader, error)
}

// StreamingCapable is implemented by providers that support the streaming
// path; a Provider lacking it falls back to ChatCompletion + fixed-size
// chunking in the Streaming Executor (spec.md §4.I "Provider dispatch").
type StreamingCapable interface {
	SupportsStreaming() bool
}
