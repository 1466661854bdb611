package repositories

import (
	"context"

	"docvault/internal/domain/models"
)

// DocumentRepository handles document persistence.
type DocumentRepository interface {
	// Create inserts a new document and fills in its generated fields.
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a document by id. Soft-deleted documents resolve
	// to domain.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Document, error)

	// List returns all live documents, most recently updated first.
	List(ctx context.Context) ([]models.Document, error)

	// Update persists title, description and status changes.
	Update(ctx context.Context, doc *models.Document) error

	// SoftDelete marks a document deleted without touching its versions.
	SoftDelete(ctx context.Context, id string) error

	// SetCurrentVersion flips the document's denormalized restore pointer.
	// It does not touch the per-branch is_current flags.
	SetCurrentVersion(ctx context.Context, documentID, versionID string) error

	// Lock takes a row lock on the document so concurrent writers to its
	// version set serialize even when the branch being written is empty.
	Lock(ctx context.Context, id string) error
}
