package llmprovider

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

const (
	streamScannerInitialBuffer = 64 * 1024
	streamScannerMaxBuffer     = 512 * 1024
)

func newStreamScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, streamScannerInitialBuffer), streamScannerMaxBuffer)
	return scanner
}

type streamDeltaChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// sseStream is the ports.StreamReader returned by ChatCompletionStream. It
// scans "data: " lines off an OpenAI-compatible SSE body, stopping at the
// "[DONE]" sentinel, io.EOF, or ctx cancellation.
type sseStream struct {
	ctx     context.Context
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

var _ ports.StreamReader = (*sseStream)(nil)

func (s *sseStream) Next(ctx context.Context) (ports.StreamChunk, error) {
	if s.done {
		return ports.StreamChunk{Done: true}, nil
	}

	for {
		select {
		case <-ctx.Done():
			return ports.StreamChunk{}, ctx.Err()
		case <-s.ctx.Done():
			return ports.StreamChunk{}, s.ctx.Err()
		default:
		}

		if !s.scanner.Scan() {
			s.done = true
			if err := s.scanner.Err(); err != nil {
				return ports.StreamChunk{}, &ports.ProviderError{Code: ports.ErrTransport, Message: err.Error()}
			}
			return ports.StreamChunk{Done: true}, nil
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			s.done = true
			return ports.StreamChunk{Done: true}, nil
		}

		var chunk streamDeltaChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		finished := chunk.Choices[0].FinishReason != nil
		if delta == "" && !finished {
			continue
		}
		return ports.StreamChunk{Content: delta, Done: finished}, nil
	}
}

func (s *sseStream) Close() error {
	if s.body == nil {
		return nil
	}
	return s.body.Close()
}

// ChatCompletionStream implements spec.md §4.E's lazy streaming path.
func (c *Client) ChatCompletionStream(ctx context.Context, messages []ports.Message, model string, temperature float64, maxTokens int) (ports.StreamReader, error) {
	body, err := json.Marshal(map[string]any{
		"model":       model,
		"messages":    toChatMessages(messages),
		"temperature": temperature,
		"max_tokens":  maxTokens,
		"stream":      true,
	})
	if err != nil {
		return nil, &ports.ProviderError{Code: ports.ErrBadResponse, Message: "marshal request: " + err.Error()}
	}

	resp, err := c.doPost(ctx, "/chat/completions", body)
	if err != nil {
		return nil, wrapTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, &ports.ProviderError{Code: ports.ErrTransport, Message: "read error response: " + readErr.Error()}
		}
		return nil, mapHTTPError(resp.StatusCode, respBody)
	}

	return &sseStream{ctx: ctx, body: resp.Body, scanner: newStreamScanner(resp.Body)}, nil
}
