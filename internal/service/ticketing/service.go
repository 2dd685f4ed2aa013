package ticketing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/acaraku/acaraku/internal/authz"
	"github.com/acaraku/acaraku/internal/coupon"
	"github.com/acaraku/acaraku/internal/domain"
	redisx "github.com/acaraku/acaraku/internal/redis"
	"github.com/acaraku/acaraku/internal/repository"
	redisrepo "github.com/acaraku/acaraku/internal/repository/redis"
	"github.com/acaraku/acaraku/internal/uow"
)

type Config struct {
	// PaymentWindow is how long a buyer has to upload payment proof before
	// the transaction expires and its seats are released.
	PaymentWindow time.Duration
}

type Service struct {
	store   repository.Store
	coupons coupon.Resolver
	cache   *redisrepo.Cache
	pubsub  *redisx.PubSub
	limiter *redisrepo.SlidingWindowLimiter
	uow     *uow.UoW
	cfg     Config

	now func() time.Time
}

func New(
	store repository.Store,
	coupons coupon.Resolver,
	cache *redisrepo.Cache,
	pubsub *redisx.PubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	cfg Config,
) *Service {
	if cfg.PaymentWindow <= 0 {
		cfg.PaymentWindow = 2 * time.Hour
	}

	return &Service{
		store:   store,
		coupons: coupons,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		uow:     uow.New(store),
		cfg:     cfg,
		now:     time.Now,
	}
}

type CreateTransactionInput struct {
	EventID    int64
	Quantity   int
	PointsUsed int64
	VoucherID  *int64
	CouponID   *string
}

// CreateTransaction reserves seats and records a transaction waiting for
// payment. Seats are reserved optimistically at creation so concurrent buyers
// cannot oversell the event; abandoned transactions give them back on expiry.
//
// Parameters:
//   - ctx: request-scoped context.
//   - actor: the authenticated buyer.
//   - in: event, quantity and the discounts to apply.
//   - rlKey: rate-limit bucket key; empty disables limiting.
//
// Returns:
//   - *domain.Transaction: the created transaction.
//   - error: authz.ErrUnauthenticated without an actor.
//   - error: ticketing.ErrEventNotFound if the event is unknown.
//   - error: ticketing.ErrSeatsUnavailable if fewer seats remain than requested.
//   - error: ticketing.ErrRateLimited when the caller is over the window limit.
func (s *Service) CreateTransaction(
	ctx context.Context,
	actor *domain.User,
	in CreateTransactionInput,
	rlKey string,
) (*domain.Transaction, error) {
	const op = "service.ticketing.CreateTransaction"

	if err := authz.RequireUser(actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if in.Quantity < 1 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

	if in.PointsUsed < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPoints)
	}

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w, retry in %s", op, ErrRateLimited, retry)
		}
	}

	var created *domain.Transaction

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Store,
		after func(uow.AfterCommit),
	) error {
		event, err := tx.Events().Get(ctx, in.EventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrEventNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := tx.Events().ReserveSeats(ctx, in.EventID, in.Quantity); err != nil {
			if errors.Is(err, repository.ErrSeatsUnavailable) {
				return fmt.Errorf("%s: %w", op, ErrSeatsUnavailable)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		// An unknown voucher simply applies no discount.
		var v *domain.Voucher
		if in.VoucherID != nil {
			v, err = tx.Vouchers().Get(ctx, *in.VoucherID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		var couponDiscount int64
		if in.CouponID != nil {
			couponDiscount, err = s.coupons.ResolveDiscount(ctx, *in.CouponID)
			if err != nil {
				if errors.Is(err, coupon.ErrCouponNotFound) {
					return fmt.Errorf("%s: %w", op, ErrCouponNotFound)
				}
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		now := s.now()

		t := &domain.Transaction{
			ID:              uuid.New(),
			UserID:          actor.ID,
			EventID:         in.EventID,
			Quantity:        in.Quantity,
			TotalPrice:      Quote(event.Price, in.Quantity, in.PointsUsed, v, couponDiscount),
			PointsUsed:      in.PointsUsed,
			VoucherID:       in.VoucherID,
			CouponID:        in.CouponID,
			Status:          domain.StatusWaitingForPayment,
			PaymentDeadline: now.Add(s.cfg.PaymentWindow),
			CreatedAt:       now,
		}

		if err := tx.Transactions().Create(ctx, t); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		created = t

		after(func(ctx context.Context) {
			s.notifySeatsChanged(ctx, in.EventID)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// UploadPaymentProof attaches proof of payment and moves the transaction to
// waiting_for_confirmation. A proof arriving after the payment deadline
// expires the transaction and releases its seats before the call fails: the
// expiry is applied lazily on access instead of waiting for the sweeper.
//
// Returns:
//   - error: ticketing.ErrTransactionNotFound if the transaction is unknown.
//   - error: authz.ErrForbidden if the actor is not the buyer.
//   - error: ticketing.ErrInvalidStatus unless the transaction waits for payment.
//   - error: ticketing.ErrDeadlineExceeded after the payment window; the
//     expiry side effect is committed even though the call fails.
func (s *Service) UploadPaymentProof(
	ctx context.Context,
	actor *domain.User,
	transactionID uuid.UUID,
	proofURL string,
) error {
	const op = "service.ticketing.UploadPaymentProof"

	if err := authz.RequireUser(actor); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var expired bool

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Store,
		after func(uow.AfterCommit),
	) error {
		t, err := tx.Transactions().Get(ctx, transactionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrTransactionNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		if t.UserID != actor.ID {
			return fmt.Errorf("%s: %w", op, authz.ErrForbidden)
		}

		if t.Status != domain.StatusWaitingForPayment {
			return fmt.Errorf("%s: %w", op, ErrInvalidStatus)
		}

		if s.now().After(t.PaymentDeadline) {
			// The expiry must commit; the error is reported afterwards.
			expired = true
			return s.reverse(ctx, tx, t, domain.StatusExpired, after)
		}

		t.PaymentProof = &proofURL
		t.Status = domain.StatusWaitingForConfirmation

		if err := tx.Transactions().Update(ctx, t); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if expired {
		return fmt.Errorf("%s: %w", op, ErrDeadlineExceeded)
	}

	return nil
}

// UpdateTransactionStatus applies an organizer decision (done, rejected) or a
// cancellation. Transitions outside the lifecycle table are rejected, which
// also guarantees that seats for a reversed transaction are released exactly
// once.
//
// Returns:
//   - error: ticketing.ErrTransactionNotFound if the transaction is unknown.
//   - error: authz.ErrForbidden when the actor may not set this status.
//   - error: ticketing.ErrInvalidTransition for a move the table forbids.
func (s *Service) UpdateTransactionStatus(
	ctx context.Context,
	actor *domain.User,
	transactionID uuid.UUID,
	newStatus domain.TransactionStatus,
) error {
	const op = "service.ticketing.UpdateTransactionStatus"

	if err := authz.RequireUser(actor); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Store,
		after func(uow.AfterCommit),
	) error {
		t, err := tx.Transactions().Get(ctx, transactionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrTransactionNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		event, err := tx.Events().Get(ctx, t.EventID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		switch newStatus {
		case domain.StatusDone, domain.StatusRejected:
			if actor.ID != event.OrganizerID {
				return fmt.Errorf("%s: %w", op, authz.ErrForbidden)
			}
		case domain.StatusCanceled:
			if actor.ID != t.UserID && actor.ID != event.OrganizerID {
				return fmt.Errorf("%s: %w", op, authz.ErrForbidden)
			}
		default:
			// waiting_* and expired are only ever set by the engine itself
			return fmt.Errorf("%s: %w", op, ErrInvalidTransition)
		}

		if !canTransition(t.Status, newStatus) {
			return fmt.Errorf("%s: %w", op, ErrInvalidTransition)
		}

		if newStatus.Reversing() {
			return s.reverse(ctx, tx, t, newStatus, after)
		}

		t.Status = newStatus
		if err := tx.Transactions().Update(ctx, t); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
}

// UserTransactions returns the actor's own transactions in creation order.
func (s *Service) UserTransactions(ctx context.Context, actor *domain.User) ([]domain.Transaction, error) {
	const op = "service.ticketing.UserTransactions"

	if err := authz.RequireUser(actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := s.store.Transactions().ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// OrganizerTransactions returns transactions for every event the actor
// organizes.
func (s *Service) OrganizerTransactions(ctx context.Context, actor *domain.User) ([]domain.Transaction, error) {
	const op = "service.ticketing.OrganizerTransactions"

	if err := authz.RequireRole(actor, domain.RoleOrganizer); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := s.store.Transactions().ListByOrganizer(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ExpireOverdue expires every transaction still waiting for payment past its
// deadline, releasing the reserved seats. It backs the periodic sweep; the
// lazy expiry in UploadPaymentProof covers transactions touched between
// sweeps.
//
// Returns:
//   - int: the number of transactions expired.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	const op = "service.ticketing.ExpireOverdue"

	overdue, err := s.store.Transactions().ListOverdue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var expired int
	for _, t := range overdue {
		var done bool

		err := s.uow.Do(ctx, func(
			ctx context.Context,
			tx repository.Store,
			after func(uow.AfterCommit),
		) error {
			// re-read inside the transaction; the buyer may have raced us
			cur, err := tx.Transactions().Get(ctx, t.ID)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			if cur.Status != domain.StatusWaitingForPayment {
				return nil
			}

			done = true

			return s.reverse(ctx, tx, cur, domain.StatusExpired, after)
		})
		if err != nil {
			return expired, err
		}

		if done {
			expired++
		}
	}

	return expired, nil
}

// reverse moves t into a reversing status and gives its seats back. Callers
// must hold the transaction open; the pub/sub notification lets the identity
// service return the spent points to the buyer.
func (s *Service) reverse(
	ctx context.Context,
	tx repository.Store,
	t *domain.Transaction,
	status domain.TransactionStatus,
	after func(uow.AfterCommit),
) error {
	const op = "service.ticketing.reverse"

	t.Status = status
	if err := tx.Transactions().Update(ctx, t); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Events().ReleaseSeats(ctx, t.EventID, t.Quantity); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rev := redisx.Reversal{
		TransactionID: t.ID,
		UserID:        t.UserID,
		EventID:       t.EventID,
		PointsUsed:    t.PointsUsed,
		VoucherID:     t.VoucherID,
		CouponID:      t.CouponID,
	}

	after(func(ctx context.Context) {
		s.notifySeatsChanged(ctx, t.EventID)
		if s.pubsub != nil {
			_ = s.pubsub.PublishReversal(ctx, rev)
		}
	})

	return nil
}

func (s *Service) notifySeatsChanged(ctx context.Context, eventID int64) {
	if s.cache != nil {
		_ = s.cache.InvalidateEvent(ctx, eventID)
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishEventChanged(ctx, eventID)
	}
}

func canTransition(from, to domain.TransactionStatus) bool {
	switch from {
	case domain.StatusWaitingForPayment:
		return to == domain.StatusCanceled || to == domain.StatusExpired
	case domain.StatusWaitingForConfirmation:
		return to == domain.StatusDone ||
			to == domain.StatusRejected ||
			to == domain.StatusCanceled
	default:
		return false
	}
}
