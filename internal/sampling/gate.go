// Package sampling implements the Sampling Gate (Component K): a safety
// wrapper around server-initiated LLM calls with a template allowlist,
// per-workspace rate limiting, prompt redaction, and a three-tier
// fallback. Grounded on the teacher's layered-degradation style
// (internal/agent/app/planning_policy.go's "rich path, then simple path")
// generalized into an explicit three-tier chain with typed fallback
// reasons.
package sampling

import (
	"context"
	"time"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/timeline"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/logging"
)

// FallbackReason records why sampling_fn's result was not used.
type FallbackReason string

const (
	ReasonTemplateNotAllowed FallbackReason = "template_not_allowed"
	ReasonRateLimitExceeded  FallbackReason = "rate_limit_exceeded"
	ReasonNotSupported       FallbackReason = "sampling_not_supported"
	ReasonTimeout            FallbackReason = "timeout"
	ReasonError              FallbackReason = "error"
)

// Source identifies which tier ultimately produced a SamplingResult.
type Source string

const (
	SourceSampling    Source = "sampling"
	SourceWSLLM       Source = "ws_llm"
	SourcePendingCard Source = "pending_card"
)

// SamplingFn is a server-initiated LLM call, typically "ask the client's
// IDE LLM via MCP sampling".
type SamplingFn func(ctx context.Context, prompt string) (string, error)

// FallbackFn is the tier-2 path (the workspace's own configured LLM).
type FallbackFn func(ctx context.Context, prompt string) (string, error)

// PendingCardFn creates a tier-3 placeholder timeline item for human
// review when both tiers above it fail.
type PendingCardFn func(ctx context.Context, prompt string, reason FallbackReason) (timeline.Item, error)

// Result is with_fallback's return value.
type Result struct {
	Source    Source
	Data      string
	Error     string
	LatencyMs int64
	Reason    FallbackReason
}

// Config parameterizes a Gate.
type Config struct {
	AllowedTemplates map[Template]bool // nil uses the package default AllowedTemplates
	RateLimit        int
	RateWindow       time.Duration
	CallTimeout      time.Duration // default 30s
}

// Gate wraps server-initiated LLM calls per spec.md §4.K.
type Gate struct {
	allowed     map[Template]bool
	limiter     *RateLimiter
	callTimeout time.Duration
	logger      logging.Logger
}

// NewGate constructs a Gate.
func NewGate(cfg Config) *Gate {
	allowed := cfg.AllowedTemplates
	if allowed == nil {
		allowed = AllowedTemplates
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gate{
		allowed:     allowed,
		limiter:     NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		callTimeout: timeout,
		logger:      logging.NewComponentLogger("sampling.Gate"),
	}
}

// WithFallback is the gate's single public entrypoint (spec.md §4.K).
func (g *Gate) WithFallback(ctx context.Context, samplingFn SamplingFn, fallbackFn FallbackFn, workspaceID string, template Template, prompt string, pendingCardFn PendingCardFn) Result {
	start := time.Now()
	elapsed := func() int64 { return time.Since(start).Milliseconds() }

	if !g.allowed[template] {
		return g.degrade(ctx, fallbackFn, prompt, ReasonTemplateNotAllowed, elapsed(), pendingCardFn)
	}
	if !g.limiter.Allow(workspaceID) {
		return g.degrade(ctx, fallbackFn, prompt, ReasonRateLimitExceeded, elapsed(), pendingCardFn)
	}

	redacted := Redact(prompt)
	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	data, err := g.attempt(callCtx, samplingFn, redacted)
	if err == nil {
		return Result{Source: SourceSampling, Data: data, LatencyMs: elapsed()}
	}

	reason := ReasonError
	if callCtx.Err() == context.DeadlineExceeded {
		reason = ReasonTimeout
	} else if err == ErrSamplingNotSupported {
		reason = ReasonNotSupported
	}
	g.logger.Warn("sampling tier-1 call failed (%s): %v", reason, err)
	return g.degrade(ctx, fallbackFn, redacted, reason, elapsed(), pendingCardFn)
}

func (g *Gate) attempt(ctx context.Context, samplingFn SamplingFn, prompt string) (string, error) {
	if samplingFn == nil {
		return "", ErrSamplingNotSupported
	}
	return samplingFn(ctx, prompt)
}

// degrade runs tier-2 (WS LLM), and on its failure tier-3 (pending card).
func (g *Gate) degrade(ctx context.Context, fallbackFn FallbackFn, prompt string, reason FallbackReason, latencyMs int64, pendingCardFn PendingCardFn) Result {
	if fallbackFn != nil {
		data, err := fallbackFn(ctx, prompt)
		if err == nil {
			return Result{Source: SourceWSLLM, Data: data, Reason: reason, LatencyMs: latencyMs}
		}
		g.logger.Warn("sampling tier-2 fallback failed: %v", err)
	}

	if pendingCardFn != nil {
		item, err := pendingCardFn(ctx, prompt, reason)
		if err == nil {
			return Result{Source: SourcePendingCard, Data: item.ID, Reason: reason, LatencyMs: latencyMs}
		}
		g.logger.Warn("sampling tier-3 pending-card creation failed: %v", err)
		return Result{Source: SourcePendingCard, Error: err.Error(), Reason: reason, LatencyMs: latencyMs}
	}

	return Result{Source: SourceWSLLM, Error: "no fallback available", Reason: reason, LatencyMs: latencyMs}
}

// ErrSamplingNotSupported is returned by attempt when samplingFn is nil —
// the MCP client declared no sampling capability.
var ErrSamplingNotSupported = samplingNotSupportedErr{}

type samplingNotSupportedErr struct{}

func (samplingNotSupportedErr) Error() string { return "sampling not supported" }
