// Package idgen generates the opaque identifiers the spec requires (event
// ids, task ids, run/execution ids) and carries run-scoped ids through a
// context.Context, grounded on the teacher's internal/utils/id helpers
// (id.NewRunID, id.WithRunID, id.ParentRunIDFromContext).
package idgen

import (
	"context"

	"github.com/google/uuid"
)

// New returns a fresh opaque identifier.
func New() string {
	return uuid.NewString()
}

// NewRunID returns a fresh execution/run correlator.
func NewRunID() string {
	return "run_" + uuid.NewString()
}

type runIDKey struct{}
type parentRunIDKey struct{}

// WithRunID attaches a run id to ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run id attached to ctx, or "".
func RunIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(runIDKey{}).(string)
	return v
}

// WithParentRunID attaches the parent run id (for nested task dispatch).
func WithParentRunID(ctx context.Context, parentRunID string) context.Context {
	return context.WithValue(ctx, parentRunIDKey{}, parentRunID)
}

// ParentRunIDFromContext returns the parent run id attached to ctx, or "".
func ParentRunIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(parentRunIDKey{}).(string)
	return v
}
