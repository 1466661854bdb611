package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"docvault/internal/domain"
	"docvault/internal/domain/repositories"
)

// TxManager implements repositories.TransactionManager on a pgx pool.
type TxManager struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewTxManager creates a new transaction manager.
func NewTxManager(pool *pgxpool.Pool, logger *slog.Logger) repositories.TransactionManager {
	return &TxManager{pool: pool, logger: logger}
}

// ExecTx executes fn within a transaction. The transaction is stored in
// the context so repositories join it through GetExecutor. Lock-wait and
// serialization failures come back as domain.TransientError so callers
// can retry after the rollback.
func (tm *TxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	tx, err := tm.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	// Defer rollback - safe even after a successful commit
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			tm.logger.Error("transaction rollback failed", "error", err)
		}
	}()

	txCtx := repositories.SetTx(ctx, tx)

	if err := fn(txCtx); err != nil {
		if IsPgLockError(err) {
			return &domain.TransientError{Err: err}
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if IsPgLockError(err) {
			return &domain.TransientError{Err: err}
		}
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
