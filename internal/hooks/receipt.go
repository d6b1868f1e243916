// Package hooks implements the Event-Hook Runner (Component J): receipt
// evaluation, a policy gate, and idempotent at-most-once execution via a
// SHA-256-keyed ledger. Hook bodies are supplied by the caller; this
// package does not call the Sampling Gate itself.
package hooks

import (
	"regexp"
	"time"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/hook"
)

var outputHashPattern = regexp.MustCompile(`^[0-9a-f]{16,64}$`)

// findReceipt returns the caller-supplied receipt whose Step matches hookStep,
// or nil if none was supplied.
func findReceipt(receipts []hook.Receipt, hookStep string) *hook.Receipt {
	for i := range receipts {
		if receipts[i].Step == hookStep {
			return &receipts[i]
		}
	}
	return nil
}

// EvaluateReceipt applies the four ordered rules of spec.md §4.J step 1.
func EvaluateReceipt(hookStep string, receipts []hook.Receipt) hook.Decision {
	receipt := findReceipt(receipts, hookStep)
	if receipt == nil {
		return hook.Decision{Step: hookStep, ShouldRun: true, Reason: hook.ReasonNoReceipt}
	}

	if receipt.TraceID == "" {
		return hook.Decision{Step: hookStep, ShouldRun: true, Reason: hook.ReasonMissingTraceID}
	}

	if !outputHashPattern.MatchString(receipt.OutputHash) {
		return hook.Decision{
			Step: hookStep, ShouldRun: true, Reason: hook.ReasonInvalidOutputHash,
			ReceiptTraceID: receipt.TraceID,
		}
	}

	if completedAt, err := time.Parse(time.RFC3339, receipt.CompletedAt); err == nil {
		if completedAt.After(time.Now()) {
			return hook.Decision{
				Step: hookStep, ShouldRun: true, Reason: hook.ReasonFutureCompletedAt,
				ReceiptTraceID: receipt.TraceID, ReceiptOutputHash: receipt.OutputHash,
			}
		}
	}

	return hook.Decision{
		Step: hookStep, ShouldRun: false, Reason: hook.ReasonReceiptAccepted,
		ReceiptTraceID: receipt.TraceID, ReceiptOutputHash: receipt.OutputHash,
	}
}
