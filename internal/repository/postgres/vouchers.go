package postgres

import (
	"context"
	"fmt"

	"github.com/acaraku/acaraku/internal/domain"
)

type VoucherRepo struct {
	db DB
}

func (r *VoucherRepo) Create(ctx context.Context, v *domain.Voucher) (int64, error) {
	const op = "postgres.VoucherRepo.Create"

	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO vouchers(code, organizer_id, event_id, discount_amount,
			discount_percentage, start_date, end_date, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		v.Code, v.OrganizerID, v.EventID, v.DiscountAmount,
		v.DiscountPercentage, v.StartDate, v.EndDate, v.IsActive,
	).Scan(&id)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *VoucherRepo) Get(ctx context.Context, id int64) (*domain.Voucher, error) {
	const op = "postgres.VoucherRepo.Get"

	var v domain.Voucher
	err := r.db.QueryRow(ctx,
		`SELECT id, code, organizer_id, event_id, discount_amount,
			discount_percentage, start_date, end_date, is_active
		 FROM vouchers WHERE id = $1`,
		id,
	).Scan(
		&v.ID, &v.Code, &v.OrganizerID, &v.EventID, &v.DiscountAmount,
		&v.DiscountPercentage, &v.StartDate, &v.EndDate, &v.IsActive,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &v, nil
}

func (r *VoucherRepo) ListActiveByEvent(ctx context.Context, eventID int64) ([]domain.Voucher, error) {
	const op = "postgres.VoucherRepo.ListActiveByEvent"

	rows, err := r.db.Query(ctx,
		`SELECT id, code, organizer_id, event_id, discount_amount,
			discount_percentage, start_date, end_date, is_active
		 FROM vouchers
		 WHERE event_id = $1 AND is_active
		 ORDER BY id`,
		eventID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Voucher
	for rows.Next() {
		var v domain.Voucher
		if err := rows.Scan(
			&v.ID, &v.Code, &v.OrganizerID, &v.EventID, &v.DiscountAmount,
			&v.DiscountPercentage, &v.StartDate, &v.EndDate, &v.IsActive,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
