package sampling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/timeline"
)

func TestRedactReplacesEmailsAndPhoneNumbers(t *testing.T) {
	out := Redact("contact jane.doe@example.com or call +1 415-555-0100 for details")
	assert.Contains(t, out, "[REDACTED_EMAIL]")
	assert.Contains(t, out, "[REDACTED_PHONE]")
	assert.NotContains(t, out, "jane.doe@example.com")
	assert.NotContains(t, out, "415-555-0100")
}

func TestRateLimiterAllowsUpToLimitThenBlocksWithinWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	assert.True(t, rl.Allow("ws-1"))
	assert.True(t, rl.Allow("ws-1"))
	assert.False(t, rl.Allow("ws-1"), "third call within the window must be blocked")
	assert.True(t, rl.Allow("ws-2"), "a different workspace has an independent bucket")
}

func TestGateUsesSamplingTierOnSuccess(t *testing.T) {
	gate := NewGate(Config{})
	result := gate.WithFallback(context.Background(),
		func(ctx context.Context, prompt string) (string, error) { return "sampled answer", nil },
		nil, "ws-1", TemplateIntentExtract, "hello", nil)

	assert.Equal(t, SourceSampling, result.Source)
	assert.Equal(t, "sampled answer", result.Data)
}

func TestGateRejectsDisallowedTemplate(t *testing.T) {
	gate := NewGate(Config{})
	called := false
	result := gate.WithFallback(context.Background(), nil,
		func(ctx context.Context, prompt string) (string, error) { called = true; return "fallback", nil },
		"ws-1", Template("not_a_real_template"), "hello", nil)

	assert.Equal(t, ReasonTemplateNotAllowed, result.Reason)
	assert.True(t, called)
	assert.Equal(t, SourceWSLLM, result.Source)
}

func TestGateFallsThroughToPendingCardWhenBothTiersFail(t *testing.T) {
	gate := NewGate(Config{})
	result := gate.WithFallback(context.Background(),
		func(ctx context.Context, prompt string) (string, error) { return "", errors.New("boom") },
		func(ctx context.Context, prompt string) (string, error) { return "", errors.New("ws llm down too") },
		"ws-1", TemplateIntentExtract, "hello",
		func(ctx context.Context, prompt string, reason FallbackReason) (timeline.Item, error) {
			return timeline.Item{ID: "card-1"}, nil
		})

	assert.Equal(t, SourcePendingCard, result.Source)
	assert.Equal(t, "card-1", result.Data)
}

func TestGateEnforcesRateLimitBeforeCallingSampling(t *testing.T) {
	gate := NewGate(Config{RateLimit: 1, RateWindow: time.Minute})
	calls := 0
	samplingFn := func(ctx context.Context, prompt string) (string, error) { calls++; return "ok", nil }

	first := gate.WithFallback(context.Background(), samplingFn, nil, "ws-1", TemplateIntentExtract, "a", nil)
	second := gate.WithFallback(context.Background(), samplingFn, nil, "ws-1", TemplateIntentExtract, "b", nil)

	require.Equal(t, SourceSampling, first.Source)
	assert.Equal(t, ReasonRateLimitExceeded, second.Reason)
	assert.Equal(t, 1, calls)
}
