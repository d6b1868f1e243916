package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalReturnsFixedActorTaggedWithProfile(t *testing.T) {
	ctx, err := Local{}.GetCurrentContext(context.Background(), "ws-1", "p1")
	require.NoError(t, err)
	assert.Equal(t, LocalActorID, ctx.ActorID)
	assert.Equal(t, "ws-1", ctx.WorkspaceID)
	assert.Contains(t, ctx.Tags, "profile:p1")
}
