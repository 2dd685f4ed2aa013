package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acaraku/acaraku/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store implements repository.Store on top of a pgx pool. A Store obtained
// inside RunTx routes every query through the open transaction.
type Store struct {
	pool *pgxpool.Pool
	db   DB
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) handle() DB {
	if s.db != nil {
		return s.db
	}
	return s.pool
}

func (s *Store) Events() repository.EventRepository             { return &EventRepo{db: s.handle()} }
func (s *Store) Vouchers() repository.VoucherRepository         { return &VoucherRepo{db: s.handle()} }
func (s *Store) Transactions() repository.TransactionRepository { return &TransactionRepo{db: s.handle()} }
func (s *Store) Reviews() repository.ReviewRepository           { return &ReviewRepo{db: s.handle()} }
func (s *Store) Users() repository.UserRepository               { return &UserRepo{db: s.handle()} }

// maxTxAttempts bounds retries of serialization failures (40001/40P01);
// concurrent bookings against the same event provoke them routinely.
const maxTxAttempts = 3

// RunTx runs fn inside a serializable read-write transaction, retrying the
// whole transaction when postgres reports a serialization failure or
// deadlock. fn must therefore be safe to run more than once.
func (s *Store) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Store) error,
) error {
	if s.db != nil {
		// already inside a transaction, reuse it
		return fn(ctx, s)
	}

	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = s.runTxOnce(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return err
}

func (s *Store) runTxOnce(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Store) error,
) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, &Store{pool: s.pool, db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}
