package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

func TestResolveIntentMatchesKeywords(t *testing.T) {
	resolved, err := Local{}.ResolveIntent(context.Background(), "help me draft a proposal for the trip", ports.ExecutionContext{}, nil, "en")
	require.NoError(t, err)
	assert.Contains(t, resolved.Intents, "writing_assistance")
	assert.Contains(t, resolved.Intents, "travel_planning")
	assert.Greater(t, resolved.Confidence, 0.0)
}

func TestResolveIntentNoMatchYieldsZeroConfidence(t *testing.T) {
	resolved, err := Local{}.ResolveIntent(context.Background(), "xyz abc qqq", ports.ExecutionContext{}, nil, "en")
	require.NoError(t, err)
	assert.Empty(t, resolved.Intents)
	assert.Equal(t, 0.0, resolved.Confidence)
}

func TestListAvailableIntentsReturnsClosedCatalogue(t *testing.T) {
	defs, err := Local{}.ListAvailableIntents(context.Background(), ports.ExecutionContext{})
	require.NoError(t, err)
	assert.Len(t, defs, len(definitions))
}
