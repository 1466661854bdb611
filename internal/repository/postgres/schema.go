package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the document and version tables and the indexes
// that back the version-store invariants:
//
//   - (document_id, branch_name, version_number) is unique
//   - at most one current version per (document_id, branch_name),
//     via a partial unique index on is_current
//
// Version rows cascade-delete with their document; lineage pointers do
// not cascade so history survives individual merges.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				title TEXT NOT NULL CHECK (title <> ''),
				description TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'draft',
				current_version_id UUID,
				created_by TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				deleted_at TIMESTAMPTZ
			)
		`, tables.Documents),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				document_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				version_number INTEGER NOT NULL CHECK (version_number > 0),
				branch_name TEXT NOT NULL DEFAULT 'main',
				is_current BOOLEAN NOT NULL DEFAULT FALSE,
				file_handle TEXT NOT NULL,
				file_size BIGINT NOT NULL DEFAULT 0,
				file_mime TEXT NOT NULL DEFAULT '',
				comment TEXT NOT NULL DEFAULT '',
				created_by TEXT NOT NULL,
				parent_version_id UUID REFERENCES %s(id),
				merged_to_id UUID REFERENCES %s(id),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, tables.Versions, tables.Documents, tables.Versions, tables.Versions),
		fmt.Sprintf(`
			CREATE UNIQUE INDEX IF NOT EXISTS %s_branch_number_uq
			ON %s (document_id, branch_name, version_number)
		`, tables.Versions, tables.Versions),
		fmt.Sprintf(`
			CREATE UNIQUE INDEX IF NOT EXISTS %s_branch_current_uq
			ON %s (document_id, branch_name) WHERE is_current
		`, tables.Versions, tables.Versions),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_document_idx
			ON %s (document_id, branch_name)
		`, tables.Versions, tables.Versions),
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}
