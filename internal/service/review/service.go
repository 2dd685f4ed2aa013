package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acaraku/acaraku/internal/authz"
	"github.com/acaraku/acaraku/internal/domain"
	redisx "github.com/acaraku/acaraku/internal/redis"
	"github.com/acaraku/acaraku/internal/repository"
	redisrepo "github.com/acaraku/acaraku/internal/repository/redis"
)

type Service struct {
	store repository.Store
	cache *redisrepo.Cache

	now func() time.Time
}

func New(store repository.Store, cache *redisrepo.Cache) *Service {
	return &Service{
		store: store,
		cache: cache,
		now:   time.Now,
	}
}

const reviewsTTL = 30 * time.Second

// AddReview records the actor's review of an event they attended. Eligibility
// means holding at least one done transaction for the event; a user may
// review the same event more than once.
//
// Returns:
//   - *domain.Review: the stored review.
//   - error: authz.ErrUnauthenticated without an actor.
//   - error: review.ErrInvalidRating outside 1..5.
//   - error: review.ErrEventNotFound if the event is unknown.
//   - error: review.ErrNotAttended without a completed transaction.
func (s *Service) AddReview(
	ctx context.Context,
	actor *domain.User,
	eventID int64,
	rating int,
	comment string,
) (*domain.Review, error) {
	const op = "service.review.AddReview"

	if err := authz.RequireUser(actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRating)
	}

	if _, err := s.store.Events().Get(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	attended, err := s.store.Transactions().HasCompleted(ctx, actor.ID, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !attended {
		return nil, fmt.Errorf("%s: %w", op, ErrNotAttended)
	}

	r := &domain.Review{
		UserID:    actor.ID,
		UserName:  actor.Name,
		EventID:   eventID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.now(),
	}

	id, err := s.store.Reviews().Create(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.ID = id

	if s.cache != nil {
		_ = s.cache.Del(ctx, redisx.KeyEventReviews(eventID))
	}

	return r, nil
}

// EventReviews returns all reviews for the event in submission order.
func (s *Service) EventReviews(ctx context.Context, eventID int64) ([]domain.Review, error) {
	const op = "service.review.EventReviews"

	load := func(ctx context.Context) ([]domain.Review, error) {
		return s.store.Reviews().ListByEvent(ctx, eventID)
	}

	if s.cache == nil {
		out, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return out, nil
	}

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyEventReviews(eventID), reviewsTTL, load)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
