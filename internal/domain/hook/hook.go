// Package hook models the idempotency ledger and receipt evaluation shared
// by the Event-Hook Runner (Component J).
package hook

import "time"

// RunStatus is the closed HookRun status.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is the idempotency ledger row. idempotency_key is unique; a second
// call with the same key returns the stored summary without re-executing
// (spec.md §3, §8).
type Run struct {
	IdempotencyKey string         `json:"idempotency_key"`
	HookType       string         `json:"hook_type"`
	WorkspaceID    string         `json:"workspace_id"`
	Status         RunStatus      `json:"status"`
	ResultSummary  map[string]any `json:"result_summary,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ReceiptReason is the closed reason code for a ReceiptDecision.
type ReceiptReason string

const (
	ReasonNoReceipt           ReceiptReason = "no_receipt"
	ReasonMissingTraceID      ReceiptReason = "missing_trace_id"
	ReasonInvalidOutputHash   ReceiptReason = "invalid_output_hash"
	ReasonFutureCompletedAt   ReceiptReason = "future_completed_at"
	ReasonReceiptAccepted     ReceiptReason = "receipt_accepted"
)

// Receipt is a caller-supplied IDE-side attestation that a step already ran.
type Receipt struct {
	Step        string `json:"step"`
	TraceID     string `json:"trace_id,omitempty"`
	OutputHash  string `json:"output_hash,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// Decision is the ephemeral structured result of receipt validation.
type Decision struct {
	Step               string        `json:"step"`
	ShouldRun          bool          `json:"should_run"`
	Reason             ReceiptReason `json:"reason"`
	ReceiptTraceID     string        `json:"receipt_trace_id,omitempty"`
	ReceiptOutputHash  string        `json:"receipt_output_hash,omitempty"`
}
