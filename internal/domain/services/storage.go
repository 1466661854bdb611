package services

import (
	"context"
	"io"

	"docvault/internal/domain/models"
)

// FileStore is the file-storage collaborator. Version rows store only the
// returned handle, size, and mime type; the store owns the bytes.
type FileStore interface {
	// Store persists the content and returns an opaque handle to it.
	Store(ctx context.Context, filename, mime string, content io.Reader) (*models.FileRef, error)

	// Open returns a reader over a previously stored blob.
	Open(ctx context.Context, handle string) (io.ReadCloser, error)
}
