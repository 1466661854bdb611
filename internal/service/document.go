package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docvault/internal/config"
	"docvault/internal/domain"
	"docvault/internal/domain/models"
	"docvault/internal/domain/repositories"
	"docvault/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// documentService implements the DocumentService interface. Thin attribute
// storage: all version semantics live in the version service.
type documentService struct {
	docRepo repositories.DocumentRepository
	logger  *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(docRepo repositories.DocumentRepository, logger *slog.Logger) services.DocumentService {
	return &documentService{
		docRepo: docRepo,
		logger:  logger,
	}
}

// CreateDocument creates a document shell with no versions
func (s *documentService) CreateDocument(ctx context.Context, req *services.CreateDocumentRequest) (*models.Document, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	doc := &models.Document{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Status:      models.StatusDraft,
		CreatedBy:   req.ActorID,
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document created", "document_id", doc.ID, "actor_id", req.ActorID)
	return doc, nil
}

// GetDocument retrieves a document by id
func (s *documentService) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	if documentID == "" {
		return nil, &domain.ValidationError{Message: "document id is required"}
	}
	return s.docRepo.GetByID(ctx, documentID)
}

// ListDocuments returns all live documents
func (s *documentService) ListDocuments(ctx context.Context) ([]models.Document, error) {
	return s.docRepo.List(ctx)
}

// UpdateDocument applies partial attribute updates
func (s *documentService) UpdateDocument(ctx context.Context, documentID string, req *services.UpdateDocumentRequest) (*models.Document, error) {
	if documentID == "" {
		return nil, &domain.ValidationError{Message: "document id is required"}
	}
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		doc.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		doc.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		doc.Status = *req.Status
	}

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// DeleteDocument soft-deletes a document. Versions stay in place until the
// document row itself is removed.
func (s *documentService) DeleteDocument(ctx context.Context, documentID string) error {
	if documentID == "" {
		return &domain.ValidationError{Message: "document id is required"}
	}
	return s.docRepo.SoftDelete(ctx, documentID)
}

func (s *documentService) validateCreateRequest(req *services.CreateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.ActorID, validation.Required),
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxTitleLength),
		),
		validation.Field(&req.Description, validation.Length(0, config.MaxDescriptionLength)),
	)
}

func (s *documentService) validateUpdateRequest(req *services.UpdateDocumentRequest) error {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if req.Title != nil && len(*req.Title) > config.MaxTitleLength {
		return fmt.Errorf("title too long")
	}
	if req.Description != nil && len(*req.Description) > config.MaxDescriptionLength {
		return fmt.Errorf("description too long")
	}
	if req.Status != nil && !req.Status.Valid() {
		return fmt.Errorf("unknown status '%s'", *req.Status)
	}
	return nil
}
