package models

import (
	"time"
)

// VersionSummary is the metadata slice of a version used in comparisons.
type VersionSummary struct {
	VersionID     string    `json:"version_id"`
	VersionNumber int       `json:"version_number"`
	BranchName    string    `json:"branch_name"`
	CreatedAt     time.Time `json:"created_at"`
	FileSize      int64     `json:"file_size"`
	Comment       string    `json:"comment"`
	CreatedBy     string    `json:"created_by"`
}

// VersionComparison is a metadata diff between two versions of the same
// document. It is not a content diff; byte-level comparison is out of
// scope for the version store.
type VersionComparison struct {
	DocumentID string         `json:"document_id"`
	Left       VersionSummary `json:"left"`
	Right      VersionSummary `json:"right"`
	SizeDelta  int64          `json:"size_delta"`
	SameBranch bool           `json:"same_branch"`
	SameFile   bool           `json:"same_file"`
}

// SummarizeVersion extracts the comparable metadata from a version.
func SummarizeVersion(v *DocumentVersion) VersionSummary {
	return VersionSummary{
		VersionID:     v.ID,
		VersionNumber: v.VersionNumber,
		BranchName:    v.BranchName,
		CreatedAt:     v.CreatedAt,
		FileSize:      v.File.Size,
		Comment:       v.Comment,
		CreatedBy:     v.CreatedBy,
	}
}
