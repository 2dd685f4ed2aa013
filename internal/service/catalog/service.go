package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/acaraku/acaraku/internal/authz"
	"github.com/acaraku/acaraku/internal/domain"
	redisx "github.com/acaraku/acaraku/internal/redis"
	"github.com/acaraku/acaraku/internal/repository"
	redisrepo "github.com/acaraku/acaraku/internal/repository/redis"
)

type Config struct {
	EventSummaryTTL time.Duration
}

type Service struct {
	store repository.Store
	cache *redisrepo.Cache
	cfg   Config

	now func() time.Time
}

func New(store repository.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.EventSummaryTTL <= 0 {
		cfg.EventSummaryTTL = 60 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
		now:   time.Now,
	}
}

type CreateEventInput struct {
	Name        string
	Description string
	Location    string
	Category    string
	Image       string
	StartDate   time.Time
	EndDate     time.Time
	Price       int64
	IsFree      bool
	TotalSeats  int
}

// CreateEvent stores a new event owned by the acting organizer. Available
// seats start at total seats; a free event always carries a zero price, no
// matter what the input says.
//
// Returns:
//   - *domain.Event: the stored event.
//   - error: authz.ErrForbidden unless the actor is an organizer.
//   - error: catalog.ErrInvalidEvent for missing fields, non-positive
//     capacity or an end date before the start date.
func (s *Service) CreateEvent(ctx context.Context, actor *domain.User, in CreateEventInput) (*domain.Event, error) {
	const op = "service.catalog.CreateEvent"

	if err := authz.RequireRole(actor, domain.RoleOrganizer); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.Category == "" || in.Location == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEvent)
	}

	if in.TotalSeats < 1 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEvent)
	}

	if in.EndDate.Before(in.StartDate) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEvent)
	}

	if in.Price < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEvent)
	}

	if in.IsFree {
		in.Price = 0
	}

	e := &domain.Event{
		OrganizerID:    actor.ID,
		OrganizerName:  actor.Name,
		Name:           in.Name,
		Description:    in.Description,
		Location:       in.Location,
		Category:       in.Category,
		Image:          in.Image,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		Price:          in.Price,
		IsFree:         in.IsFree,
		TotalSeats:     in.TotalSeats,
		AvailableSeats: in.TotalSeats,
		CreatedAt:      s.now(),
	}

	id, err := s.store.Events().Create(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e.ID = id

	return e, nil
}

// GetEvent retrieves an event by its ID through the summary cache.
//
// Returns:
//   - *domain.Event: the retrieved event.
//   - error: catalog.ErrEventNotFound if the event is not found.
func (s *Service) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	const op = "service.catalog.GetEvent"

	load := func(ctx context.Context) (domain.Event, error) {
		e, err := s.store.Events().Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Event{}, ErrEventNotFound
			}
			return domain.Event{}, err
		}
		return *e, nil
	}

	if s.cache == nil {
		e, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &e, nil
	}

	e, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyEventSummary(id),
		s.cfg.EventSummaryTTL,
		load,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &e, nil
}

// EventsByOrganizer returns the actor's events in insertion order.
func (s *Service) EventsByOrganizer(ctx context.Context, actor *domain.User) ([]domain.Event, error) {
	const op = "service.catalog.EventsByOrganizer"

	if err := authz.RequireRole(actor, domain.RoleOrganizer); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := s.store.Events().ListByOrganizer(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// SearchEvents filters the catalog. The query matches name or description
// case-insensitively, category matches exactly, location as a substring.
// Empty filters match everything.
func (s *Service) SearchEvents(ctx context.Context, query, category, location string) ([]domain.Event, error) {
	const op = "service.catalog.SearchEvents"

	out, err := s.store.Events().Search(ctx, query, category, location)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

type CreateVoucherInput struct {
	Code               string
	EventID            *int64
	DiscountAmount     int64
	DiscountPercentage int64
	StartDate          time.Time
	EndDate            time.Time
}

// CreateVoucher issues a discount voucher. Exactly one of the amount and
// percentage forms must be set; an event-scoped voucher must target one of
// the actor's own events.
//
// Returns:
//   - *domain.Voucher: the stored voucher.
//   - error: catalog.ErrInvalidVoucher when both or neither discount form is set.
//   - error: catalog.ErrNotEventOwner for someone else's event.
func (s *Service) CreateVoucher(ctx context.Context, actor *domain.User, in CreateVoucherInput) (*domain.Voucher, error) {
	const op = "service.catalog.CreateVoucher"

	if err := authz.RequireRole(actor, domain.RoleOrganizer); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if in.Code == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidVoucher)
	}

	hasAmount := in.DiscountAmount > 0
	hasPercentage := in.DiscountPercentage > 0
	if hasAmount == hasPercentage {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidVoucher)
	}

	if in.DiscountPercentage > 100 || in.DiscountAmount < 0 || in.DiscountPercentage < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidVoucher)
	}

	if in.EndDate.Before(in.StartDate) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidVoucher)
	}

	if in.EventID != nil {
		event, err := s.store.Events().Get(ctx, *in.EventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%s: %w", op, ErrEventNotFound)
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if event.OrganizerID != actor.ID {
			return nil, fmt.Errorf("%s: %w", op, ErrNotEventOwner)
		}
	}

	v := &domain.Voucher{
		Code:               in.Code,
		OrganizerID:        actor.ID,
		EventID:            in.EventID,
		DiscountAmount:     in.DiscountAmount,
		DiscountPercentage: in.DiscountPercentage,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		IsActive:           true,
	}

	id, err := s.store.Vouchers().Create(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	v.ID = id

	return v, nil
}

// VouchersForEvent returns the event's active vouchers.
func (s *Service) VouchersForEvent(ctx context.Context, eventID int64) ([]domain.Voucher, error) {
	const op = "service.catalog.VouchersForEvent"

	out, err := s.store.Vouchers().ListActiveByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
