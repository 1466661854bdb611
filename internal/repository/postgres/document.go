package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"docvault/internal/domain"
	"docvault/internal/domain/models"
	"docvault/internal/domain/repositories"
)

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (title, description, status, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.Title,
		doc.Description,
		doc.Status,
		doc.CreatedBy,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// GetByID retrieves a live document by id
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, title, description, status, current_version_id, created_by, created_at, updated_at
		FROM %s
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Documents)

	var doc models.Document
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.Title,
		&doc.Description,
		&doc.Status,
		&doc.CurrentVersionID,
		&doc.CreatedBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return &doc, nil
}

// List returns all live documents, most recently updated first
func (r *PostgresDocumentRepository) List(ctx context.Context) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, title, description, status, current_version_id, created_by, created_at, updated_at
		FROM %s
		WHERE deleted_at IS NULL
		ORDER BY updated_at DESC
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var documents []models.Document
	for rows.Next() {
		var doc models.Document
		err := rows.Scan(
			&doc.ID,
			&doc.Title,
			&doc.Description,
			&doc.Status,
			&doc.CurrentVersionID,
			&doc.CreatedBy,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	// Return empty slice instead of nil
	if documents == nil {
		documents = []models.Document{}
	}

	return documents, nil
}

// Update persists attribute changes on a live document
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, description = $2, status = $3, updated_at = NOW()
		WHERE id = $4 AND deleted_at IS NULL
		RETURNING updated_at
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.Title,
		doc.Description,
		doc.Status,
		doc.ID,
	).Scan(&doc.UpdatedAt)

	if err != nil {
		if IsPgNoRowsError(err) {
			return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("update document: %w", err)
	}

	return nil
}

// SoftDelete marks a document deleted. Version rows stay; they only go
// away when the document row is physically removed (cascade).
func (r *PostgresDocumentRepository) SoftDelete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Lock takes a row lock on the document. Branch creation and first
// commits lock here because an empty branch has no version rows to lock.
func (r *PostgresDocumentRepository) Lock(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		SELECT id FROM %s WHERE id = $1 AND deleted_at IS NULL FOR UPDATE
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	var locked string
	if err := executor.QueryRow(ctx, query, id).Scan(&locked); err != nil {
		if IsPgNoRowsError(err) {
			return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("lock document: %w", err)
	}

	return nil
}

// SetCurrentVersion flips the document's denormalized restore pointer
func (r *PostgresDocumentRepository) SetCurrentVersion(ctx context.Context, documentID, versionID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET current_version_id = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, versionID, documentID)
	if err != nil {
		return fmt.Errorf("set current version: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}

	return nil
}
