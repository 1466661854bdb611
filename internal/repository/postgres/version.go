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

// PostgresVersionRepository implements the VersionRepository interface
type PostgresVersionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(config *RepositoryConfig) repositories.VersionRepository {
	return &PostgresVersionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Insert persists a new version row. Rows are always inserted not-current;
// SetCurrent is the only path that writes is_current. Lineage pointers are
// checked against the owning document before the insert.
func (r *PostgresVersionRepository) Insert(ctx context.Context, v *models.DocumentVersion) error {
	if v.ParentVersionID != nil {
		if err := r.checkSameDocument(ctx, *v.ParentVersionID, v.DocumentID, "parent_version"); err != nil {
			return err
		}
	}
	if v.MergedToID != nil {
		if err := r.checkSameDocument(ctx, *v.MergedToID, v.DocumentID, "merged_to"); err != nil {
			return err
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, version_number, branch_name, file_handle, file_size, file_mime, comment, created_by, parent_version_id, merged_to_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		v.DocumentID,
		v.VersionNumber,
		v.BranchName,
		v.File.Handle,
		v.File.Size,
		v.File.Mime,
		v.Comment,
		v.CreatedBy,
		v.ParentVersionID,
		v.MergedToID,
	).Scan(&v.ID, &v.CreatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			// A concurrent writer claimed this (document, branch, number)
			// between our number computation and the insert. The caller
			// rolls back and retries with a fresh number.
			return &domain.TransientError{Err: err}
		}
		if IsPgForeignKeyError(err) {
			return &domain.InvalidReferenceError{
				Message: "version references an unknown document or version",
			}
		}
		return fmt.Errorf("insert version: %w", err)
	}

	v.IsCurrent = false
	return nil
}

// GetByID retrieves a version by id
func (r *PostgresVersionRepository) GetByID(ctx context.Context, id string) (*models.DocumentVersion, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, version_number, branch_name, is_current, file_handle, file_size, file_mime, comment, created_by, parent_version_id, merged_to_id, created_at
		FROM %s
		WHERE id = $1
	`, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	v, err := scanVersion(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("version %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get version: %w", err)
	}

	return v, nil
}

// LockBranch takes row locks on the branch's version set. Writers call
// this before NextVersionNumber or SetCurrent so two concurrent commits
// on one branch serialize instead of computing the same next number or
// leaving two versions current.
func (r *PostgresVersionRepository) LockBranch(ctx context.Context, documentID, branch string) error {
	query := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE document_id = $1 AND branch_name = $2
		FOR UPDATE
	`, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID, branch)
	if err != nil {
		return fmt.Errorf("lock branch: %w", err)
	}
	defer rows.Close()

	// Drain so every row in the branch is actually locked
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock branch: %w", err)
	}

	return nil
}

// NextVersionNumber returns 1 for an empty branch, max+1 otherwise
func (r *PostgresVersionRepository) NextVersionNumber(ctx context.Context, documentID, branch string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(version_number), 0) + 1
		FROM %s
		WHERE document_id = $1 AND branch_name = $2
	`, r.tables.Versions)

	var next int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, documentID, branch).Scan(&next); err != nil {
		return 0, fmt.Errorf("next version number: %w", err)
	}

	return next, nil
}

// BranchExists reports whether any version exists on (document, branch)
func (r *PostgresVersionRepository) BranchExists(ctx context.Context, documentID, branch string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s WHERE document_id = $1 AND branch_name = $2
		)
	`, r.tables.Versions)

	var exists bool
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, documentID, branch).Scan(&exists); err != nil {
		return false, fmt.Errorf("branch exists: %w", err)
	}

	return exists, nil
}

// SetCurrent maintains the single-current invariant for the version's
// branch. Two bulk statements, clear then set, back-to-back inside the
// caller's transaction - never a read-modify-write loop, so concurrent
// callers cannot interleave a lost update between them.
func (r *PostgresVersionRepository) SetCurrent(ctx context.Context, v *models.DocumentVersion) error {
	executor := GetExecutor(ctx, r.pool)

	clear := fmt.Sprintf(`
		UPDATE %s
		SET is_current = FALSE
		WHERE document_id = $1 AND branch_name = $2 AND id <> $3 AND is_current
	`, r.tables.Versions)

	if _, err := executor.Exec(ctx, clear, v.DocumentID, v.BranchName, v.ID); err != nil {
		return fmt.Errorf("clear current flags: %w", err)
	}

	set := fmt.Sprintf(`
		UPDATE %s
		SET is_current = TRUE
		WHERE id = $1
	`, r.tables.Versions)

	result, err := executor.Exec(ctx, set, v.ID)
	if err != nil {
		return fmt.Errorf("set current flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("version %s: %w", v.ID, domain.ErrNotFound)
	}

	v.IsCurrent = true
	return nil
}

// ClearCurrent retires a single version's current flag without promoting
// a replacement. Used when a branch is cut from a branch tip: the source
// version stays a historical node of its own branch.
func (r *PostgresVersionRepository) ClearCurrent(ctx context.Context, v *models.DocumentVersion) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_current = FALSE
		WHERE id = $1 AND is_current
	`, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, v.ID); err != nil {
		return fmt.Errorf("clear current flag: %w", err)
	}

	v.IsCurrent = false
	return nil
}

// GetCurrent returns the branch's current version
func (r *PostgresVersionRepository) GetCurrent(ctx context.Context, documentID, branch string) (*models.DocumentVersion, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, version_number, branch_name, is_current, file_handle, file_size, file_mime, comment, created_by, parent_version_id, merged_to_id, created_at
		FROM %s
		WHERE document_id = $1 AND branch_name = $2 AND is_current
	`, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	v, err := scanVersion(executor.QueryRow(ctx, query, documentID, branch))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("current version of %s/%s: %w", documentID, branch, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get current version: %w", err)
	}

	return v, nil
}

// SetMergedTo records merge provenance on the source version. Overwrites
// any pointer left by an earlier merge.
func (r *PostgresVersionRepository) SetMergedTo(ctx context.Context, versionID, mergedToID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET merged_to_id = $1
		WHERE id = $2
	`, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, mergedToID, versionID)
	if err != nil {
		return fmt.Errorf("set merged_to: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("version %s: %w", versionID, domain.ErrNotFound)
	}

	return nil
}

// ListBranchHistory returns the branch's versions ascending by number
func (r *PostgresVersionRepository) ListBranchHistory(ctx context.Context, documentID, branch string) ([]models.DocumentVersion, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, version_number, branch_name, is_current, file_handle, file_size, file_mime, comment, created_by, parent_version_id, merged_to_id, created_at
		FROM %s
		WHERE document_id = $1 AND branch_name = $2
		ORDER BY version_number ASC
	`, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID, branch)
	if err != nil {
		return nil, fmt.Errorf("list branch history: %w", err)
	}
	defer rows.Close()

	var versions []models.DocumentVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}

	// Return empty slice instead of nil
	if versions == nil {
		versions = []models.DocumentVersion{}
	}

	return versions, nil
}

// ListBranches summarizes every branch of a document by its current tip
func (r *PostgresVersionRepository) ListBranches(ctx context.Context, documentID string) ([]models.Branch, error) {
	query := fmt.Sprintf(`
		SELECT v.branch_name, c.version_count, v.id, v.version_number, v.created_at
		FROM %s v
		JOIN (
			SELECT branch_name, COUNT(*) AS version_count
			FROM %s
			WHERE document_id = $1
			GROUP BY branch_name
		) c ON c.branch_name = v.branch_name
		WHERE v.document_id = $1 AND v.is_current
		ORDER BY v.branch_name ASC
	`, r.tables.Versions, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	var branches []models.Branch
	for rows.Next() {
		var b models.Branch
		err := rows.Scan(
			&b.Name,
			&b.VersionCount,
			&b.TipVersionID,
			&b.TipNumber,
			&b.LastCommitted,
		)
		if err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		branches = append(branches, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate branches: %w", err)
	}

	if branches == nil {
		branches = []models.Branch{}
	}

	return branches, nil
}

// checkSameDocument rejects lineage pointers that cross documents
func (r *PostgresVersionRepository) checkSameDocument(ctx context.Context, refID, documentID, field string) error {
	query := fmt.Sprintf(`
		SELECT document_id FROM %s WHERE id = $1
	`, r.tables.Versions)

	var refDocID string
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, refID).Scan(&refDocID); err != nil {
		if IsPgNoRowsError(err) {
			return fmt.Errorf("%s %s: %w", field, refID, domain.ErrNotFound)
		}
		return fmt.Errorf("check %s reference: %w", field, err)
	}

	if refDocID != documentID {
		return &domain.InvalidReferenceError{
			Message: fmt.Sprintf("%s %s belongs to document %s, not %s", field, refID, refDocID, documentID),
		}
	}

	return nil
}

// rowScanner covers pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVersion(row rowScanner) (*models.DocumentVersion, error) {
	var v models.DocumentVersion
	err := row.Scan(
		&v.ID,
		&v.DocumentID,
		&v.VersionNumber,
		&v.BranchName,
		&v.IsCurrent,
		&v.File.Handle,
		&v.File.Size,
		&v.File.Mime,
		&v.Comment,
		&v.CreatedBy,
		&v.ParentVersionID,
		&v.MergedToID,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
