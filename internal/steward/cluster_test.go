package steward

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/intent"
)

func TestClusterSignalsGroupsByFirstTwentyCharsPrefix(t *testing.T) {
	signals := []intent.Signal{
		sig("s1", "plan a trip to japan", 0.9),
		sig("s2", "plan a trip to japanese food", 0.8),
	}
	groups := clusterSignals(context.Background(), signals)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].signals, 2)
}

func TestClusterSignalsKeepsUnrelatedLabelsApart(t *testing.T) {
	signals := []intent.Signal{
		sig("s1", "plan a trip to japan", 0.9),
		sig("s2", "renew the car insurance policy", 0.8),
	}
	groups := clusterSignals(context.Background(), signals)
	assert.Len(t, groups, 2, "tokens share nothing, so the hash-embedding pass must not merge them")
}

func TestHashEmbedIsDeterministicAndNormalized(t *testing.T) {
	v1, err := hashEmbed(context.Background(), "plan a trip to japan")
	require.NoError(t, err)
	v2, err := hashEmbed(context.Background(), "plan a trip to japan")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	var sumSquares float64
	for _, f := range v1 {
		sumSquares += float64(f) * float64(f)
	}
	assert.InDelta(t, 1.0, sumSquares, 0.01)
}
