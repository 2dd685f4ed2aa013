package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acaraku/acaraku/internal/authz"
	"github.com/acaraku/acaraku/internal/domain"
	"github.com/acaraku/acaraku/internal/repository/memory"
)

var (
	organizer = &domain.User{ID: 10, Name: "Tirta", Role: domain.RoleOrganizer}
	customer  = &domain.User{ID: 1, Name: "Sari", Role: domain.RoleCustomer}
)

func newTestService(store *memory.Store) *Service {
	return New(store, nil, Config{})
}

func validEventInput() CreateEventInput {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	return CreateEventInput{
		Name:       "Go Conference",
		Location:   "Jakarta",
		Category:   "Technology",
		StartDate:  start,
		EndDate:    start.Add(8 * time.Hour),
		Price:      150_000,
		TotalSeats: 100,
	}
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the event with full availability", func(t *testing.T) {
		svc := newTestService(memory.NewStore())

		e, err := svc.CreateEvent(ctx, organizer, validEventInput())
		require.NoError(t, err)
		require.NotZero(t, e.ID)
		require.Equal(t, organizer.ID, e.OrganizerID)
		require.Equal(t, 100, e.TotalSeats)
		require.Equal(t, 100, e.AvailableSeats)
	})

	t.Run("customers may not create events", func(t *testing.T) {
		svc := newTestService(memory.NewStore())

		_, err := svc.CreateEvent(ctx, customer, validEventInput())
		require.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("free event always carries a zero price", func(t *testing.T) {
		svc := newTestService(memory.NewStore())

		in := validEventInput()
		in.IsFree = true
		in.Price = 150_000

		e, err := svc.CreateEvent(ctx, organizer, in)
		require.NoError(t, err)
		require.Zero(t, e.Price)
	})

	t.Run("rejects an end date before the start date", func(t *testing.T) {
		svc := newTestService(memory.NewStore())

		in := validEventInput()
		in.EndDate = in.StartDate.Add(-time.Hour)

		_, err := svc.CreateEvent(ctx, organizer, in)
		require.ErrorIs(t, err, ErrInvalidEvent)
	})

	t.Run("rejects missing fields and bad capacity", func(t *testing.T) {
		svc := newTestService(memory.NewStore())

		in := validEventInput()
		in.Name = "   "
		_, err := svc.CreateEvent(ctx, organizer, in)
		require.ErrorIs(t, err, ErrInvalidEvent)

		in = validEventInput()
		in.TotalSeats = 0
		_, err = svc.CreateEvent(ctx, organizer, in)
		require.ErrorIs(t, err, ErrInvalidEvent)
	})
}

func TestSearchEvents(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewStore())

	seed := []CreateEventInput{
		{Name: "Go Conference", Location: "Jakarta", Category: "Technology"},
		{Name: "Jazz Night", Location: "Bandung", Category: "Music"},
		{Name: "Cloud Summit", Description: "a conference about infrastructure", Location: "Jakarta", Category: "Technology"},
	}
	for _, in := range seed {
		in.StartDate = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		in.EndDate = in.StartDate.Add(6 * time.Hour)
		in.TotalSeats = 50
		_, err := svc.CreateEvent(ctx, organizer, in)
		require.NoError(t, err)
	}

	t.Run("query matches name or description", func(t *testing.T) {
		out, err := svc.SearchEvents(ctx, "conf", "Technology", "")
		require.NoError(t, err)
		require.Len(t, out, 2)
		require.Equal(t, "Go Conference", out[0].Name)
		require.Equal(t, "Cloud Summit", out[1].Name)
	})

	t.Run("category matches exactly", func(t *testing.T) {
		out, err := svc.SearchEvents(ctx, "", "Music", "")
		require.NoError(t, err)
		require.Len(t, out, 1)
		require.Equal(t, "Jazz Night", out[0].Name)
	})

	t.Run("empty filters match everything", func(t *testing.T) {
		out, err := svc.SearchEvents(ctx, "", "", "")
		require.NoError(t, err)
		require.Len(t, out, 3)
	})
}

func TestGetEvent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewStore())

	e, err := svc.CreateEvent(ctx, organizer, validEventInput())
	require.NoError(t, err)

	got, err := svc.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, e.ID, got.ID)

	_, err = svc.GetEvent(ctx, 999)
	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestCreateVoucher(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Service, *domain.Event) {
		svc := newTestService(memory.NewStore())
		e, err := svc.CreateEvent(ctx, organizer, validEventInput())
		require.NoError(t, err)
		return svc, e
	}

	validVoucher := func(eventID int64) CreateVoucherInput {
		start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		return CreateVoucherInput{
			Code:           "EARLYBIRD",
			EventID:        &eventID,
			DiscountAmount: 25_000,
			StartDate:      start,
			EndDate:        start.AddDate(0, 1, 0),
		}
	}

	t.Run("issues an active voucher", func(t *testing.T) {
		svc, e := setup(t)

		v, err := svc.CreateVoucher(ctx, organizer, validVoucher(e.ID))
		require.NoError(t, err)
		require.True(t, v.IsActive)

		out, err := svc.VouchersForEvent(ctx, e.ID)
		require.NoError(t, err)
		require.Len(t, out, 1)
	})

	t.Run("exactly one discount form must be set", func(t *testing.T) {
		svc, e := setup(t)

		in := validVoucher(e.ID)
		in.DiscountPercentage = 10
		_, err := svc.CreateVoucher(ctx, organizer, in)
		require.ErrorIs(t, err, ErrInvalidVoucher)

		in = validVoucher(e.ID)
		in.DiscountAmount = 0
		_, err = svc.CreateVoucher(ctx, organizer, in)
		require.ErrorIs(t, err, ErrInvalidVoucher)
	})

	t.Run("only the event owner may scope a voucher to it", func(t *testing.T) {
		svc, e := setup(t)

		other := &domain.User{ID: 11, Role: domain.RoleOrganizer}
		_, err := svc.CreateVoucher(ctx, other, validVoucher(e.ID))
		require.ErrorIs(t, err, ErrNotEventOwner)
	})

	t.Run("customers may not issue vouchers", func(t *testing.T) {
		svc, e := setup(t)

		_, err := svc.CreateVoucher(ctx, customer, validVoucher(e.ID))
		require.ErrorIs(t, err, authz.ErrForbidden)
	})
}

func TestEventsByOrganizer(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewStore())

	_, err := svc.CreateEvent(ctx, organizer, validEventInput())
	require.NoError(t, err)

	out, err := svc.EventsByOrganizer(ctx, organizer)
	require.NoError(t, err)
	require.Len(t, out, 1)

	other := &domain.User{ID: 11, Role: domain.RoleOrganizer}
	out, err = svc.EventsByOrganizer(ctx, other)
	require.NoError(t, err)
	require.Empty(t, out)
}
