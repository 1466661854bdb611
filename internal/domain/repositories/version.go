package repositories

import (
	"context"

	"docvault/internal/domain/models"
)

// VersionRepository is the version store: durable CRUD for version rows
// plus the branch-scoped queries the lifecycle operations are built on.
//
// Mutating methods are expected to run inside a transaction (see
// TransactionManager); LockBranch must be called first by any writer that
// goes on to compute a next version number or flip is_current.
type VersionRepository interface {
	// Insert persists a new version row and fills in generated fields.
	// Parent and merge references naming a version of another document are
	// rejected with domain.ErrInvalidReference.
	Insert(ctx context.Context, v *models.DocumentVersion) error

	// GetByID retrieves a version by id.
	GetByID(ctx context.Context, id string) (*models.DocumentVersion, error)

	// LockBranch takes row locks on the branch's version set so concurrent
	// writers serialize before reading next numbers or current flags.
	// Locking an empty branch is a no-op that still succeeds.
	LockBranch(ctx context.Context, documentID, branch string) error

	// NextVersionNumber returns 1 for an empty branch, max+1 otherwise.
	// Only meaningful inside the same transaction as the insert it serves.
	NextVersionNumber(ctx context.Context, documentID, branch string) (int, error)

	// BranchExists reports whether any version exists on (document, branch).
	BranchExists(ctx context.Context, documentID, branch string) (bool, error)

	// SetCurrent enforces the single-current invariant for the version's
	// branch: one statement clears is_current on every sibling, a second
	// sets it on v. Together with ClearCurrent this is the only code path
	// that writes is_current.
	SetCurrent(ctx context.Context, v *models.DocumentVersion) error

	// ClearCurrent removes the current flag from a single version. Branch
	// creation uses it to retire the source version when a branch is cut
	// from the branch tip.
	ClearCurrent(ctx context.Context, v *models.DocumentVersion) error

	// GetCurrent returns the version flagged current on (document, branch),
	// or domain.ErrNotFound when the branch is empty or has no current.
	GetCurrent(ctx context.Context, documentID, branch string) (*models.DocumentVersion, error)

	// SetMergedTo records merge provenance on the source version. A second
	// merge of the same version overwrites the pointer.
	SetMergedTo(ctx context.Context, versionID, mergedToID string) error

	// ListBranchHistory returns the branch's versions ascending by number.
	ListBranchHistory(ctx context.Context, documentID, branch string) ([]models.DocumentVersion, error)

	// ListBranches summarizes every branch of a document with its tip.
	ListBranches(ctx context.Context, documentID string) ([]models.Branch, error)
}
