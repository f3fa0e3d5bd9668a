package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tendant/simple-board/pkg/board"
)

// TxBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// SequenceStore implements board.SequenceStore on the counters table.
type SequenceStore struct {
	db TxBeginner
}

// NewSequenceStore creates a counter store over db
func NewSequenceStore(db TxBeginner) *SequenceStore {
	return &SequenceStore{db: db}
}

// Increment reads the counter row under FOR UPDATE inside a serializable
// transaction, creating it at zero when absent.
func (s *SequenceStore) Increment(ctx context.Context, name string) (next int64, err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return 0, classifySequenceError("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	var current int64
	err = tx.QueryRow(ctx, `SELECT count FROM counters WHERE name = $1 FOR UPDATE`, name).Scan(&current)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		next = 1
		_, err = tx.Exec(ctx, `INSERT INTO counters (name, count, updated_at) VALUES ($1, $2, NOW())`, name, next)
	case err != nil:
		return 0, classifySequenceError("read", err)
	default:
		next = current + 1
		_, err = tx.Exec(ctx, `UPDATE counters SET count = $2, updated_at = NOW() WHERE name = $1`, name, next)
	}
	if err != nil {
		return 0, classifySequenceError("write", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, classifySequenceError("commit", err)
	}
	return next, nil
}

// Current returns the stored counter value, zero if the sequence is unused.
func (s *SequenceStore) Current(ctx context.Context, name string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var count int64
	err = tx.QueryRow(ctx, `SELECT count FROM counters WHERE name = $1`, name).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

// classifySequenceError maps driver failures onto the allocator's retry classes
func classifySequenceError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"23505", // unique_violation, two first increments raced
			"55P03": // lock_not_available
			return fmt.Errorf("counter %s: %w: %s", op, board.ErrSequenceConflict, pgErr.Message)
		}
		return fmt.Errorf("counter %s: %w", op, err)
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return fmt.Errorf("counter %s: %w: %w", op, board.ErrTransient, err)
	}
	return fmt.Errorf("counter %s: %w", op, err)
}

var _ board.SequenceStore = (*SequenceStore)(nil)
