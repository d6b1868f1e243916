package hooks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/hook"
)

func TestEvaluateReceiptNoReceiptAlwaysRuns(t *testing.T) {
	d := EvaluateReceipt("intent_extract", nil)
	assert.True(t, d.ShouldRun)
	assert.Equal(t, hook.ReasonNoReceipt, d.Reason)
}

func TestEvaluateReceiptMissingTraceIDRuns(t *testing.T) {
	d := EvaluateReceipt("intent_extract", []hook.Receipt{{Step: "intent_extract"}})
	assert.True(t, d.ShouldRun)
	assert.Equal(t, hook.ReasonMissingTraceID, d.Reason)
}

func TestEvaluateReceiptInvalidOutputHashRuns(t *testing.T) {
	d := EvaluateReceipt("intent_extract", []hook.Receipt{
		{Step: "intent_extract", TraceID: "t1", OutputHash: "not-hex"},
	})
	assert.True(t, d.ShouldRun)
	assert.Equal(t, hook.ReasonInvalidOutputHash, d.Reason)
}

func TestEvaluateReceiptFutureCompletedAtRuns(t *testing.T) {
	future := time.Now().Add(time.Hour).Format(time.RFC3339)
	d := EvaluateReceipt("intent_extract", []hook.Receipt{
		{Step: "intent_extract", TraceID: "t1", OutputHash: "0123456789abcdef", CompletedAt: future},
	})
	assert.True(t, d.ShouldRun)
	assert.Equal(t, hook.ReasonFutureCompletedAt, d.Reason)
}

func TestEvaluateReceiptValidReceiptSkips(t *testing.T) {
	past := time.Now().Add(-time.Hour).Format(time.RFC3339)
	d := EvaluateReceipt("intent_extract", []hook.Receipt{
		{Step: "intent_extract", TraceID: "t1", OutputHash: "0123456789abcdef", CompletedAt: past},
	})
	assert.False(t, d.ShouldRun)
	assert.Equal(t, hook.ReasonReceiptAccepted, d.Reason)
}
