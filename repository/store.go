package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkout-svc/checkout"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Postgres error codes that abort a transaction but are safe to retry.
const (
	pqUniqueViolation      = "23505"
	pqLockNotAvailable     = "55P03"
	pqQueryCanceled        = "57014"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// Store runs checkout transactions against Postgres.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// InTx runs fn in a read-committed transaction. fn's error, if any, is
// returned after the rollback completes.
func (s *Store) InTx(ctx context.Context, fn func(tx checkout.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", classifyPQError(err))
	}

	if err := fn(&sqlTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		return classifyPQError(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", classifyPQError(err))
	}
	return nil
}

// classifyPQError marks transient Postgres failures as retryable checkout
// errors and leaves everything else untouched.
func classifyPQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqLockNotAvailable, pqQueryCanceled:
		return fmt.Errorf("%w: %w", checkout.ErrTxTimeout, err)
	case pqSerializationFailure, pqDeadlockDetected, pqUniqueViolation:
		return fmt.Errorf("%w: %w", checkout.ErrTxConflict, err)
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
