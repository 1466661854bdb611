package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling in the
// handler layer without a type switch per error.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrBranchExists     = errors.New("branch already exists")
	ErrInvalidReference = errors.New("invalid version reference")
	ErrTransient        = errors.New("transient database error")
	ErrUnauthorized     = errors.New("unauthorized")
)

// Domain error types implementing the HTTPError interface
type (
	// NotFoundError indicates a document or version id did not resolve
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// BranchExistsError is returned when branch creation collides with an
// existing branch name on the same document.
type BranchExistsError struct {
	DocumentID string
	Branch     string
}

func (e *BranchExistsError) Error() string {
	return fmt.Sprintf("branch '%s' already exists for document %s", e.Branch, e.DocumentID)
}

func (e *BranchExistsError) StatusCode() int { return http.StatusConflict }

// Is allows errors.Is() to match against ErrBranchExists
func (e *BranchExistsError) Is(target error) bool { return target == ErrBranchExists }

// InvalidReferenceError is returned when a parent or merge pointer names a
// version that belongs to a different document.
type InvalidReferenceError struct {
	Message string
}

func (e *InvalidReferenceError) Error() string        { return e.Message }
func (e *InvalidReferenceError) StatusCode() int      { return http.StatusBadRequest }
func (e *InvalidReferenceError) Is(target error) bool { return target == ErrInvalidReference }

// CrossDocumentMergeError is returned by merge when source and target
// versions belong to different documents.
type CrossDocumentMergeError struct {
	SourceDocumentID string
	TargetDocumentID string
}

func (e *CrossDocumentMergeError) Error() string {
	return fmt.Sprintf("cannot merge across documents (%s -> %s)", e.SourceDocumentID, e.TargetDocumentID)
}

func (e *CrossDocumentMergeError) StatusCode() int      { return http.StatusBadRequest }
func (e *CrossDocumentMergeError) Is(target error) bool { return target == ErrInvalidReference }

// ForeignVersionError is returned by restore when the version does not
// belong to the document being restored.
type ForeignVersionError struct {
	DocumentID string
	VersionID  string
}

func (e *ForeignVersionError) Error() string {
	return fmt.Sprintf("version %s does not belong to document %s", e.VersionID, e.DocumentID)
}

func (e *ForeignVersionError) StatusCode() int      { return http.StatusBadRequest }
func (e *ForeignVersionError) Is(target error) bool { return target == ErrInvalidReference }

// TransientError wraps lock-wait timeouts and serialization failures.
// Callers may retry the whole operation after a clean rollback; operations
// are idempotent with respect to final state once rolled back.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient database error: %v", e.Err)
}

func (e *TransientError) Unwrap() error        { return e.Err }
func (e *TransientError) StatusCode() int      { return http.StatusServiceUnavailable }
func (e *TransientError) Is(target error) bool { return target == ErrTransient }
