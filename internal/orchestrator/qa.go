package orchestrator

import (
	"context"
	"fmt"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// answerQA is the synchronous QA Response Generator (spec.md §4.H step 11),
// used when Route() has no Streamer attached (the direct, non-Stream call
// path). When a Streamer is attached, Route() instead drives
// streaming.Executor.RunQuickResponse, which performs the equivalent
// provider call behind the chunk/quick_response_complete SSE sequence and
// returns the same final text for the durable assistant event.
func (r *Router) answerQA(ctx context.Context, message string) (string, error) {
	if r.provider == nil {
		return "", fmt.Errorf("qa fallback: no provider configured")
	}
	completion, err := r.provider.ChatCompletion(ctx, []ports.Message{
		{Role: ports.RoleSystem, Content: "You are a helpful assistant. Answer directly and concisely."},
		{Role: ports.RoleUser, Content: message},
	}, r.model, 0.7, 1024)
	if err != nil {
		return "", fmt.Errorf("qa fallback provider call failed: %w", err)
	}
	return completion.Text, nil
}
