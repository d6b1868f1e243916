// Package identity provides the local single-user IdentityPort
// implementation (spec.md §6.2): pluggable in principle, but this process
// ships only the fixed-context local adapter.
package identity

import (
	"context"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// LocalActorID is the fixed actor every turn executes as in the local
// single-user deployment.
const LocalActorID = "local-user"

// Local is the fixed single-user IdentityPort.
type Local struct{}

var _ ports.IdentityPort = Local{}

// GetCurrentContext always returns the same actor, tagged with the
// profile id so downstream consumers can still distinguish profiles
// within a shared workspace.
func (Local) GetCurrentContext(ctx context.Context, workspaceID, profileID string) (ports.ExecutionContext, error) {
	tags := []string{}
	if profileID != "" {
		tags = append(tags, "profile:"+profileID)
	}
	return ports.ExecutionContext{
		ActorID:     LocalActorID,
		WorkspaceID: workspaceID,
		Tags:        tags,
	}, nil
}
