package services

import (
	"context"

	"docvault/internal/domain/models"
)

// DocumentService handles document metadata: thin attribute storage around
// the version store.
type DocumentService interface {
	CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*models.Document, error)
	GetDocument(ctx context.Context, documentID string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	UpdateDocument(ctx context.Context, documentID string, req *UpdateDocumentRequest) (*models.Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

// CreateDocumentRequest creates a document shell; versions are committed
// separately through the VersionService.
type CreateDocumentRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ActorID     string `json:"-"` // Set by handler from auth context
}

// UpdateDocumentRequest updates document attributes. Nil fields are left
// unchanged.
type UpdateDocumentRequest struct {
	Title       *string                `json:"title,omitempty"`
	Description *string                `json:"description,omitempty"`
	Status      *models.DocumentStatus `json:"status,omitempty"`
}
