package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type beginner interface {
	Begin(context.Context) (pgx.Tx, error)
}

// TxManager runs functions inside a database transaction.
type TxManager struct {
	pool beginner
}

func newTxManagerWithPool(pool beginner) *TxManager {
	return &TxManager{pool: pool}
}

// WithTx commits when fn succeeds and rolls back otherwise.
func (m *TxManager) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
