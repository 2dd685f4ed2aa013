package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/acaraku/acaraku/internal/domain"
)

// Store is the collection owner injected into the services. RunTx executes fn
// against a transactional view of the same store; mutations made through tx
// become visible only after fn returns nil.
type Store interface {
	Events() EventRepository
	Vouchers() VoucherRepository
	Transactions() TransactionRepository
	Reviews() ReviewRepository
	Users() UserRepository

	RunTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type EventRepository interface {
	// Create assigns an ID and stores the event.
	Create(ctx context.Context, e *domain.Event) (int64, error)

	// Get returns ErrNotFound when the event does not exist.
	Get(ctx context.Context, id int64) (*domain.Event, error)

	// ListByOrganizer returns the organizer's events in insertion order.
	ListByOrganizer(ctx context.Context, organizerID int64) ([]domain.Event, error)

	// Search filters by case-insensitive substring on name or description
	// (query), exact category and substring location. Empty arguments match
	// everything.
	Search(ctx context.Context, query, category, location string) ([]domain.Event, error)

	// ReserveSeats atomically decrements available seats, failing with
	// ErrSeatsUnavailable when fewer than qty seats remain. The counter is
	// never driven below zero.
	ReserveSeats(ctx context.Context, eventID int64, qty int) error

	// ReleaseSeats returns qty seats to the pool, capped at total seats.
	ReleaseSeats(ctx context.Context, eventID int64, qty int) error
}

type VoucherRepository interface {
	Create(ctx context.Context, v *domain.Voucher) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Voucher, error)

	// ListActiveByEvent returns active vouchers scoped to the event.
	ListActiveByEvent(ctx context.Context, eventID int64) ([]domain.Voucher, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, t *domain.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)

	// Update persists status and payment proof changes.
	Update(ctx context.Context, t *domain.Transaction) error

	ListByUser(ctx context.Context, userID int64) ([]domain.Transaction, error)

	// ListByOrganizer joins through event ownership.
	ListByOrganizer(ctx context.Context, organizerID int64) ([]domain.Transaction, error)

	// ListOverdue returns transactions still waiting for payment whose
	// deadline passed before now.
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Transaction, error)

	// HasCompleted reports whether the user holds a done transaction for the
	// event.
	HasCompleted(ctx context.Context, userID, eventID int64) (bool, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, r *domain.Review) (int64, error)
	ListByEvent(ctx context.Context, eventID int64) ([]domain.Review, error)
}

type UserRepository interface {
	// Create fails with ErrConflict when the email is already registered.
	Create(ctx context.Context, u *domain.User) (int64, error)

	Get(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByReferralCode(ctx context.Context, code string) (*domain.User, error)

	// AddPoints credits points to the user and, when expiry is non-nil,
	// refreshes the points expiry.
	AddPoints(ctx context.Context, id int64, points int64, expiry *time.Time) error
}
