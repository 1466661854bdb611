package repositories

import "context"

// TxFn is a function that runs within a transaction.
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions. Every operation that
// can touch is_current or assign a version number runs through ExecTx so
// the clear-then-set flip and the insert it serves commit together or not
// at all.
type TransactionManager interface {
	// ExecTx executes fn inside a transaction, committing when fn returns
	// nil and rolling back otherwise.
	ExecTx(ctx context.Context, fn TxFn) error
}
