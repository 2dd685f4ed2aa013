package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/acaraku/acaraku/internal/domain"
)

type UserRepo struct {
	db DB
}

const userColumns = `id, name, email, role, referral_code, points, points_expiry, created_at`

// Create stores the user.
//
// Returns:
//   - int64: the assigned user ID.
//   - error: repository.ErrConflict if the email or referral code is taken.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) (int64, error) {
	const op = "postgres.UserRepo.Create"

	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO users(name, email, role, referral_code, points, points_expiry, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		u.Name, u.Email, u.Role, u.ReferralCode, u.Points, u.PointsExpiry, u.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *UserRepo) Get(ctx context.Context, id int64) (*domain.User, error) {
	const op = "postgres.UserRepo.Get"

	return r.getBy(ctx, op, `id = $1`, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const op = "postgres.UserRepo.GetByEmail"

	return r.getBy(ctx, op, `email = $1`, email)
}

func (r *UserRepo) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	const op = "postgres.UserRepo.GetByReferralCode"

	return r.getBy(ctx, op, `referral_code = $1`, code)
}

func (r *UserRepo) AddPoints(ctx context.Context, id int64, points int64, expiry *time.Time) error {
	const op = "postgres.UserRepo.AddPoints"

	tag, err := r.db.Exec(ctx,
		`UPDATE users
		 SET points = points + $2,
		     points_expiry = COALESCE($3, points_expiry)
		 WHERE id = $1`,
		id, points, expiry,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}

func (r *UserRepo) getBy(ctx context.Context, op, where string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where,
		arg,
	).Scan(
		&u.ID, &u.Name, &u.Email, &u.Role, &u.ReferralCode, &u.Points,
		&u.PointsExpiry, &u.CreatedAt,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &u, nil
}
