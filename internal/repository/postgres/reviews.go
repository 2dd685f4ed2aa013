package postgres

import (
	"context"
	"fmt"

	"github.com/acaraku/acaraku/internal/domain"
)

type ReviewRepo struct {
	db DB
}

func (r *ReviewRepo) Create(ctx context.Context, rv *domain.Review) (int64, error) {
	const op = "postgres.ReviewRepo.Create"

	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO reviews(user_id, user_name, event_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		rv.UserID, rv.UserName, rv.EventID, rv.Rating, rv.Comment, rv.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *ReviewRepo) ListByEvent(ctx context.Context, eventID int64) ([]domain.Review, error) {
	const op = "postgres.ReviewRepo.ListByEvent"

	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, user_name, event_id, rating, comment, created_at
		 FROM reviews WHERE event_id = $1 ORDER BY created_at`,
		eventID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID, &rv.UserID, &rv.UserName, &rv.EventID, &rv.Rating,
			&rv.Comment, &rv.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
