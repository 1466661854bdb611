package services

import (
	"context"

	"docvault/internal/domain/models"
)

// VersionService handles the document version lifecycle: ordinary commits,
// branch creation, merging, restoration, and history/comparison queries.
type VersionService interface {
	// CreateVersion commits a new version on a branch of a document. The
	// branch defaults to "main"; committing to a branch that does not exist
	// yet is only valid for "main" on a fresh document.
	CreateVersion(ctx context.Context, req *CreateVersionRequest) (*models.DocumentVersion, error)

	// CreateBranch cuts a new branch from a point in history. The new
	// branch starts at version 1 with a copy of the source version's file
	// handle; the source version stops being current for its own branch.
	CreateBranch(ctx context.Context, req *CreateBranchRequest) (*models.DocumentVersion, error)

	// MergeTo appends the source version's file state to the target
	// version's branch as a new version and records merge provenance on
	// the source.
	MergeTo(ctx context.Context, req *MergeRequest) (*models.DocumentVersion, error)

	// RestoreVersion points the document's current-version metadata at an
	// historical version without altering branch history. Idempotent.
	RestoreVersion(ctx context.Context, req *RestoreRequest) error

	// GetVersion retrieves a single version by id.
	GetVersion(ctx context.Context, versionID string) (*models.DocumentVersion, error)

	// GetBranchHistory lists a branch's versions ascending by number.
	GetBranchHistory(ctx context.Context, documentID, branch string) ([]models.DocumentVersion, error)

	// ListBranches summarizes the document's branches and their tips.
	ListBranches(ctx context.Context, documentID string) ([]models.Branch, error)

	// CompareVersions returns a metadata diff between two versions of the
	// same document.
	CompareVersions(ctx context.Context, versionID, otherVersionID string) (*models.VersionComparison, error)
}

// CreateVersionRequest commits new file content as a version on a branch.
type CreateVersionRequest struct {
	DocumentID string         `json:"document_id"`
	ActorID    string         `json:"-"` // Set by handler from auth context
	Branch     string         `json:"branch,omitempty"`
	Comment    string         `json:"comment,omitempty"`
	File       models.FileRef `json:"file"`
}

// CreateBranchRequest cuts a named branch from an existing version.
type CreateBranchRequest struct {
	SourceVersionID string `json:"source_version_id"`
	BranchName      string `json:"branch_name"`
	ActorID         string `json:"-"`
	Comment         string `json:"comment,omitempty"`
}

// MergeRequest merges a source version into the branch of a target version.
type MergeRequest struct {
	SourceVersionID string `json:"source_version_id"`
	TargetVersionID string `json:"target_version_id"`
	ActorID         string `json:"-"`
	Comment         string `json:"comment,omitempty"`
}

// RestoreRequest points a document at an historical version.
// SkipSideEffects suppresses the search-index notification; restore itself
// never fails on indexing errors either way.
type RestoreRequest struct {
	DocumentID      string `json:"document_id"`
	VersionID       string `json:"version_id"`
	ActorID         string `json:"-"`
	SkipSideEffects bool   `json:"skip_side_effects,omitempty"`
}
