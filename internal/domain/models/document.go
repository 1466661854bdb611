package models

import (
	"time"
)

// DocumentStatus is the review lifecycle state of a document.
type DocumentStatus string

const (
	StatusDraft    DocumentStatus = "draft"
	StatusReview   DocumentStatus = "review"
	StatusApproved DocumentStatus = "approved"
	StatusArchived DocumentStatus = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusReview, StatusApproved, StatusArchived:
		return true
	}
	return false
}

// Document is the owning record for a set of version branches.
// CurrentVersionID is a denormalized convenience pointer set by restore;
// it is independent of the per-branch is_current flags on versions.
type Document struct {
	ID               string         `json:"id" db:"id"`
	Title            string         `json:"title" db:"title"`
	Description      string         `json:"description" db:"description"`
	Status           DocumentStatus `json:"status" db:"status"`
	CurrentVersionID *string        `json:"current_version_id" db:"current_version_id"`
	CreatedBy        string         `json:"created_by" db:"created_by"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}
