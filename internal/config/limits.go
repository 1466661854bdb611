package config

const (
	// MaxTitleLength is the maximum length for document titles.
	MaxTitleLength = 255

	// MaxBranchNameLength is the maximum length for branch names.
	MaxBranchNameLength = 100

	// MaxCommentLength is the maximum length for version comments.
	MaxCommentLength = 2000

	// MaxDescriptionLength is the maximum length for document descriptions.
	MaxDescriptionLength = 4000
)
