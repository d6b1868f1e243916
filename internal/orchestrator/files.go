package orchestrator

import (
	"context"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/event"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// FileInput is one file reference submitted with a turn, before it has
// been resolved to a durable file_document_id.
type FileInput struct {
	FileID   string
	MimeType string
}

// normalizeFiles resolves each submitted file id to a file_document_id by
// scanning the workspace's recent events for a matching artifact_created
// record. Missing ids are reported in the second return value but never
// fail the turn (spec.md §4.H step 1).
func (r *Router) normalizeFiles(ctx context.Context, workspaceID string, files []FileInput) ([]ResolvedFile, []string) {
	if len(files) == 0 {
		return nil, nil
	}

	recent, err := r.events.List(ctx, workspaceID, ports.EventLogListOptions{
		Types: []event.Type{event.TypeArtifactCreated},
		Limit: recentFileScanLimit,
	})
	if err != nil {
		r.logger.Warn("file normalisation: recent event scan failed: %v", err)
		recent = nil
	}

	byFileID := make(map[string]string, len(recent))
	for _, e := range recent {
		fileID, _ := e.Payload["file_id"].(string)
		docID, _ := e.Payload["file_document_id"].(string)
		if fileID != "" && docID != "" {
			byFileID[fileID] = docID
		}
	}

	var resolved []ResolvedFile
	var missing []string
	for _, f := range files {
		docID, ok := byFileID[f.FileID]
		if !ok {
			missing = append(missing, f.FileID)
			continue
		}
		resolved = append(resolved, ResolvedFile{FileDocumentID: docID, MimeType: f.MimeType})
	}
	return resolved, missing
}

// ResolvedFile is a file submission after normalisation.
type ResolvedFile struct {
	FileDocumentID string
	MimeType       string
}

const recentFileScanLimit = 200
