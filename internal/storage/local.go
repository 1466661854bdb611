package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/domain/models"
	"docvault/internal/domain/services"
)

// LocalFileStore stores blobs on the local filesystem under a uuid-keyed
// layout. Handles are opaque to callers; version rows persist only the
// handle, size, and mime type.
type LocalFileStore struct {
	root   string
	policy *UploadPolicy
	logger *slog.Logger
}

// NewLocalFileStore creates a filesystem-backed blob store rooted at dir.
func NewLocalFileStore(dir string, policy *UploadPolicy, logger *slog.Logger) (services.FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalFileStore{
		root:   dir,
		policy: policy,
		logger: logger,
	}, nil
}

// Store persists content and returns its handle. The handle embeds a uuid
// plus the original extension, which keeps keys collision-free without a
// rename loop.
func (s *LocalFileStore) Store(ctx context.Context, filename, mime string, content io.Reader) (*models.FileRef, error) {
	if !s.policy.AllowsMime(mime) {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("mime type '%s' is not allowed", mime),
		}
	}

	handle := uuid.NewString()
	if ext := sanitizeExt(filepath.Ext(filename)); ext != "" {
		handle += ext
	}

	path := filepath.Join(s.root, handle)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create blob file: %w", err)
	}
	defer f.Close()

	// Enforce the size cap while streaming; one extra byte past the limit
	// means the upload is too large.
	limited := io.LimitReader(content, s.policy.MaxSizeBytes+1)
	size, err := io.Copy(f, limited)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write blob: %w", err)
	}
	if size > s.policy.MaxSizeBytes {
		os.Remove(path)
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("file exceeds maximum size of %d bytes", s.policy.MaxSizeBytes),
		}
	}

	s.logger.Debug("blob stored", "handle", handle, "size", size, "mime", mime)

	return &models.FileRef{
		Handle: handle,
		Size:   size,
		Mime:   mime,
	}, nil
}

// Open returns a reader over a stored blob
func (s *LocalFileStore) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	if handle == "" || strings.Contains(handle, "/") || strings.Contains(handle, "..") {
		return nil, &domain.ValidationError{Message: "invalid blob handle"}
	}

	f, err := os.Open(filepath.Join(s.root, handle))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob %s: %w", handle, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// sanitizeExt keeps only simple alphanumeric extensions
func sanitizeExt(ext string) string {
	if ext == "" || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if !isAlnum(r) {
			return ""
		}
	}
	return strings.ToLower(ext)
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
