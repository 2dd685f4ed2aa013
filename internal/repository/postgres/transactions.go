package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/acaraku/acaraku/internal/domain"
)

type TransactionRepo struct {
	db DB
}

const transactionColumns = `id, user_id, event_id, quantity, total_price,
	points_used, voucher_id, coupon_id, status, payment_proof,
	payment_deadline, created_at`

func (r *TransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	const op = "postgres.TransactionRepo.Create"

	_, err := r.db.Exec(ctx,
		`INSERT INTO transactions(id, user_id, event_id, quantity, total_price,
			points_used, voucher_id, coupon_id, status, payment_proof,
			payment_deadline, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.UserID, t.EventID, t.Quantity, t.TotalPrice, t.PointsUsed,
		t.VoucherID, t.CouponID, t.Status, t.PaymentProof, t.PaymentDeadline,
		t.CreatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Get retrieves a transaction by its ID.
//
// Returns:
//   - *domain.Transaction: the transaction when found.
//   - error: repository.ErrNotFound if the transaction is not found.
func (r *TransactionRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	const op = "postgres.TransactionRepo.Get"

	row := r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`,
		id,
	)

	t, err := scanTransaction(row)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return t, nil
}

// Update persists status and payment proof changes. totalPrice is immutable
// once computed at creation and is deliberately not written here.
func (r *TransactionRepo) Update(ctx context.Context, t *domain.Transaction) error {
	const op = "postgres.TransactionRepo.Update"

	tag, err := r.db.Exec(ctx,
		`UPDATE transactions SET status = $2, payment_proof = $3 WHERE id = $1`,
		t.ID, t.Status, t.PaymentProof,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}

func (r *TransactionRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	const op = "postgres.TransactionRepo.ListByUser"

	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return scanTransactions(rows, op)
}

// ListByOrganizer returns every transaction for events owned by the organizer.
func (r *TransactionRepo) ListByOrganizer(ctx context.Context, organizerID int64) ([]domain.Transaction, error) {
	const op = "postgres.TransactionRepo.ListByOrganizer"

	rows, err := r.db.Query(ctx,
		`SELECT t.id, t.user_id, t.event_id, t.quantity, t.total_price,
			t.points_used, t.voucher_id, t.coupon_id, t.status, t.payment_proof,
			t.payment_deadline, t.created_at
		 FROM transactions t
		 JOIN events e ON e.id = t.event_id
		 WHERE e.organizer_id = $1
		 ORDER BY t.created_at`,
		organizerID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return scanTransactions(rows, op)
}

func (r *TransactionRepo) ListOverdue(ctx context.Context, now time.Time) ([]domain.Transaction, error) {
	const op = "postgres.TransactionRepo.ListOverdue"

	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE status = $1 AND payment_deadline < $2
		 ORDER BY payment_deadline`,
		domain.StatusWaitingForPayment, now,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return scanTransactions(rows, op)
}

func (r *TransactionRepo) HasCompleted(ctx context.Context, userID, eventID int64) (bool, error) {
	const op = "postgres.TransactionRepo.HasCompleted"

	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM transactions
			WHERE user_id = $1 AND event_id = $2 AND status = $3)`,
		userID, eventID, domain.StatusDone,
	).Scan(&exists)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return exists, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.ID, &t.UserID, &t.EventID, &t.Quantity, &t.TotalPrice,
		&t.PointsUsed, &t.VoucherID, &t.CouponID, &t.Status, &t.PaymentProof,
		&t.PaymentDeadline, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTransactions(rows pgx.Rows, op string) ([]domain.Transaction, error) {
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
