package services

import (
	"context"
	"time"
)

// IndexEvent is the payload emitted to the search-index collaborator when
// a version is created or the document's restore pointer moves.
type IndexEvent struct {
	DocumentID    string    `json:"document_id"`
	VersionID     string    `json:"version_id"`
	VersionNumber int       `json:"version_number"`
	BranchName    string    `json:"branch_name"`
	IsCurrent     bool      `json:"is_current"`
	Comment       string    `json:"comment"`
	ActorID       string    `json:"actor_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// IndexNotifier delivers best-effort index notifications. Implementations
// own their failure handling; they are invoked strictly after the version
// transaction has committed and must never surface an error back into a
// version operation.
type IndexNotifier interface {
	VersionChanged(ctx context.Context, event *IndexEvent)
}
