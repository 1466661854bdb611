package models

import (
	"time"
)

// DefaultBranch is the branch ordinary commits land on when the caller
// does not name one.
const DefaultBranch = "main"

// FileRef is an opaque handle to stored file content. Versions reference
// blobs by handle; content is never copied inside a version transaction.
type FileRef struct {
	Handle string `json:"handle" db:"file_handle"`
	Size   int64  `json:"size" db:"file_size"`
	Mime   string `json:"mime" db:"file_mime"`
}

// DocumentVersion is one node in a document's branch history.
//
// ParentVersionID points at the version this one branched or derived from.
// MergedToID is set when this version has been merged into another branch
// and points at the resulting version. Both always reference a version of
// the same document. Rows are immutable after insert except for is_current
// and merged_to_id.
type DocumentVersion struct {
	ID              string    `json:"id" db:"id"`
	DocumentID      string    `json:"document_id" db:"document_id"`
	VersionNumber   int       `json:"version_number" db:"version_number"`
	BranchName      string    `json:"branch_name" db:"branch_name"`
	IsCurrent       bool      `json:"is_current" db:"is_current"`
	File            FileRef   `json:"file"`
	Comment         string    `json:"comment" db:"comment"`
	CreatedBy       string    `json:"created_by" db:"created_by"`
	ParentVersionID *string   `json:"parent_version_id" db:"parent_version_id"`
	MergedToID      *string   `json:"merged_to_id" db:"merged_to_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Branch summarizes one named branch of a document: its tip (the version
// flagged current) and how many versions it holds.
type Branch struct {
	Name          string    `json:"name"`
	VersionCount  int       `json:"version_count"`
	TipVersionID  string    `json:"tip_version_id"`
	TipNumber     int       `json:"tip_number"`
	LastCommitted time.Time `json:"last_committed"`
}
