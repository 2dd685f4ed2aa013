package ticketing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acaraku/acaraku/internal/authz"
	"github.com/acaraku/acaraku/internal/coupon"
	"github.com/acaraku/acaraku/internal/domain"
	"github.com/acaraku/acaraku/internal/repository/memory"
)

var testTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, store *memory.Store) *Service {
	t.Helper()

	s := New(store, coupon.StaticResolver{Amount: 50_000}, nil, nil, nil, Config{})
	s.now = func() time.Time { return testTime }

	return s
}

func seedEvent(t *testing.T, store *memory.Store, organizerID int64, price int64, seats int) *domain.Event {
	t.Helper()

	e := &domain.Event{
		OrganizerID:    organizerID,
		Name:           "Go Conference",
		Location:       "Jakarta",
		Category:       "Technology",
		Price:          price,
		TotalSeats:     seats,
		AvailableSeats: seats,
	}

	id, err := store.Events().Create(context.Background(), e)
	require.NoError(t, err)
	e.ID = id

	return e
}

func availableSeats(t *testing.T, store *memory.Store, eventID int64) int {
	t.Helper()

	e, err := store.Events().Get(context.Background(), eventID)
	require.NoError(t, err)

	return e.AvailableSeats
}

func TestCreateTransaction(t *testing.T) {
	ctx := context.Background()
	buyer := &domain.User{ID: 1, Role: domain.RoleCustomer}

	t.Run("reserves seats and prices the order", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)
		event := seedEvent(t, store, 10, 500_000, 5)

		tx, err := svc.CreateTransaction(ctx, buyer, CreateTransactionInput{
			EventID:    event.ID,
			Quantity:   2,
			PointsUsed: 200_000,
		}, "")
		require.NoError(t, err)

		require.Equal(t, int64(800_000), tx.TotalPrice)
		require.Equal(t, domain.StatusWaitingForPayment, tx.Status)
		require.Equal(t, testTime.Add(2*time.Hour), tx.PaymentDeadline)
		require.Equal(t, 3, availableSeats(t, store, event.ID))
	})

	t.Run("requires an authenticated actor", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)
		event := seedEvent(t, store, 10, 100_000, 5)

		_, err := svc.CreateTransaction(ctx, nil, CreateTransactionInput{
			EventID:  event.ID,
			Quantity: 1,
		}, "")
		require.ErrorIs(t, err, authz.ErrUnauthenticated)
	})

	t.Run("unknown event", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)

		_, err := svc.CreateTransaction(ctx, buyer, CreateTransactionInput{
			EventID:  42,
			Quantity: 1,
		}, "")
		require.ErrorIs(t, err, ErrEventNotFound)
	})

	t.Run("insufficient seats leaves inventory untouched", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)
		event := seedEvent(t, store, 10, 100_000, 2)

		_, err := svc.CreateTransaction(ctx, buyer, CreateTransactionInput{
			EventID:  event.ID,
			Quantity: 3,
		}, "")
		require.ErrorIs(t, err, ErrSeatsUnavailable)
		require.Equal(t, 2, availableSeats(t, store, event.ID))
	})

	t.Run("invalid quantity and points", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)
		event := seedEvent(t, store, 10, 100_000, 5)

		_, err := svc.CreateTransaction(ctx, buyer, CreateTransactionInput{
			EventID:  event.ID,
			Quantity: 0,
		}, "")
		require.ErrorIs(t, err, ErrInvalidQuantity)

		_, err = svc.CreateTransaction(ctx, buyer, CreateTransactionInput{
			EventID:    event.ID,
			Quantity:   1,
			PointsUsed: -1,
		}, "")
		require.ErrorIs(t, err, ErrInvalidPoints)
	})

	t.Run("unknown voucher applies no discount", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)
		event := seedEvent(t, store, 10, 100_000, 5)

		missing := int64(99)
		tx, err := svc.CreateTransaction(ctx, buyer, CreateTransactionInput{
			EventID:   event.ID,
			Quantity:  1,
			VoucherID: &missing,
		}, "")
		require.NoError(t, err)
		require.Equal(t, int64(100_000), tx.TotalPrice)
	})

	t.Run("coupon discount applies", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)
		event := seedEvent(t, store, 10, 100_000, 5)

		code := "REF50"
		tx, err := svc.CreateTransaction(ctx, buyer, CreateTransactionInput{
			EventID:  event.ID,
			Quantity: 1,
			CouponID: &code,
		}, "")
		require.NoError(t, err)
		require.Equal(t, int64(50_000), tx.TotalPrice)
	})
}

func TestUploadPaymentProof(t *testing.T) {
	ctx := context.Background()
	buyer := &domain.User{ID: 1, Role: domain.RoleCustomer}

	t.Run("moves to waiting for confirmation", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)
		event := seedEvent(t, store, 10, 100_000, 5)

		tx, err := svc.CreateTransaction(ctx, buyer, CreateTransactionInput{
			EventID:  event.ID,
			Quantity: 1,
		}, "")
		require.NoError(t, err)

		err = svc.UploadPaymentProof(ctx, buyer, tx.ID, "https://img.example/proof.png")
		require.NoError(t, err)

		got, err := store.Transactions().Get(ctx, tx.ID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusWaitingForConfirmation, got.Status)
		require.NotNil(t, got.PaymentProof)
	})

	t.Run("only the buyer may upload", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)
		event := seedEvent(t, store, 10, 100_000, 5)

		tx, err := svc.CreateTransaction(ctx, buyer, CreateTransactionInput{
			EventID:  event.ID,
			Quantity: 1,
		}, "")
		require.NoError(t, err)

		other := &domain.User{ID: 2, Role: domain.RoleCustomer}
		err = svc.UploadPaymentProof(ctx, other, tx.ID, "proof")
		require.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("late proof expires the transaction and frees the seats", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)
		event := seedEvent(t, store, 10, 100_000, 5)

		tx, err := svc.CreateTransaction(ctx, buyer, CreateTransactionInput{
			EventID:  event.ID,
			Quantity: 2,
		}, "")
		require.NoError(t, err)
		require.Equal(t, 3, availableSeats(t, store, event.ID))

		svc.now = func() time.Time { return testTime.Add(3 * time.Hour) }

		err = svc.UploadPaymentProof(ctx, buyer, tx.ID, "proof")
		require.ErrorIs(t, err, ErrDeadlineExceeded)

		// the expiry side effect is committed even though the call failed
		got, err := store.Transactions().Get(ctx, tx.ID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusExpired, got.Status)
		require.Equal(t, 5, availableSeats(t, store, event.ID))
	})

	t.Run("rejects a second upload", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)
		event := seedEvent(t, store, 10, 100_000, 5)

		tx, err := svc.CreateTransaction(ctx, buyer, CreateTransactionInput{
			EventID:  event.ID,
			Quantity: 1,
		}, "")
		require.NoError(t, err)

		require.NoError(t, svc.UploadPaymentProof(ctx, buyer, tx.ID, "proof"))
		err = svc.UploadPaymentProof(ctx, buyer, tx.ID, "proof")
		require.ErrorIs(t, err, ErrInvalidStatus)
	})
}

func TestUpdateTransactionStatus(t *testing.T) {
	ctx := context.Background()
	buyer := &domain.User{ID: 1, Role: domain.RoleCustomer}
	organizer := &domain.User{ID: 10, Role: domain.RoleOrganizer}

	setup := func(t *testing.T) (*memory.Store, *Service, *domain.Event, *domain.Transaction) {
		store := memory.NewStore()
		svc := newTestService(t, store)
		event := seedEvent(t, store, organizer.ID, 100_000, 5)

		tx, err := svc.CreateTransaction(ctx, buyer, CreateTransactionInput{
			EventID:  event.ID,
			Quantity: 2,
		}, "")
		require.NoError(t, err)

		return store, svc, event, tx
	}

	t.Run("organizer confirms after proof", func(t *testing.T) {
		store, svc, _, tx := setup(t)

		require.NoError(t, svc.UploadPaymentProof(ctx, buyer, tx.ID, "proof"))
		require.NoError(t, svc.UpdateTransactionStatus(ctx, organizer, tx.ID, domain.StatusDone))

		got, err := store.Transactions().Get(ctx, tx.ID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusDone, got.Status)
	})

	t.Run("done requires the organizer", func(t *testing.T) {
		_, svc, _, tx := setup(t)

		require.NoError(t, svc.UploadPaymentProof(ctx, buyer, tx.ID, "proof"))
		err := svc.UpdateTransactionStatus(ctx, buyer, tx.ID, domain.StatusDone)
		require.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("rejection releases seats exactly once", func(t *testing.T) {
		store, svc, event, tx := setup(t)

		require.NoError(t, svc.UploadPaymentProof(ctx, buyer, tx.ID, "proof"))
		require.Equal(t, 3, availableSeats(t, store, event.ID))

		require.NoError(t, svc.UpdateTransactionStatus(ctx, organizer, tx.ID, domain.StatusRejected))
		require.Equal(t, 5, availableSeats(t, store, event.ID))

		// a terminal transaction cannot be reversed again
		err := svc.UpdateTransactionStatus(ctx, organizer, tx.ID, domain.StatusCanceled)
		require.ErrorIs(t, err, ErrInvalidTransition)
		require.Equal(t, 5, availableSeats(t, store, event.ID))
	})

	t.Run("buyer cancels while waiting for payment", func(t *testing.T) {
		store, svc, event, tx := setup(t)

		require.NoError(t, svc.UpdateTransactionStatus(ctx, buyer, tx.ID, domain.StatusCanceled))
		require.Equal(t, 5, availableSeats(t, store, event.ID))
	})

	t.Run("done straight from waiting for payment is rejected", func(t *testing.T) {
		_, svc, _, tx := setup(t)

		err := svc.UpdateTransactionStatus(ctx, organizer, tx.ID, domain.StatusDone)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("expired cannot be set through the API", func(t *testing.T) {
		_, svc, _, tx := setup(t)

		err := svc.UpdateTransactionStatus(ctx, organizer, tx.ID, domain.StatusExpired)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestExpireOverdue(t *testing.T) {
	ctx := context.Background()
	buyer := &domain.User{ID: 1, Role: domain.RoleCustomer}

	store := memory.NewStore()
	svc := newTestService(t, store)
	event := seedEvent(t, store, 10, 100_000, 10)

	first, err := svc.CreateTransaction(ctx, buyer, CreateTransactionInput{
		EventID:  event.ID,
		Quantity: 2,
	}, "")
	require.NoError(t, err)

	// the second transaction pays in time and must survive the sweep
	second, err := svc.CreateTransaction(ctx, buyer, CreateTransactionInput{
		EventID:  event.ID,
		Quantity: 3,
	}, "")
	require.NoError(t, err)
	require.NoError(t, svc.UploadPaymentProof(ctx, buyer, second.ID, "proof"))

	svc.now = func() time.Time { return testTime.Add(3 * time.Hour) }

	n, err := svc.ExpireOverdue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := store.Transactions().Get(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusExpired, got.Status)

	kept, err := store.Transactions().Get(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusWaitingForConfirmation, kept.Status)

	// only the expired transaction's seats come back
	require.Equal(t, 7, availableSeats(t, store, event.ID))

	// a second sweep finds nothing
	n, err = svc.ExpireOverdue(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestTransactionListings(t *testing.T) {
	ctx := context.Background()
	buyer := &domain.User{ID: 1, Role: domain.RoleCustomer}
	organizer := &domain.User{ID: 10, Role: domain.RoleOrganizer}

	store := memory.NewStore()
	svc := newTestService(t, store)
	event := seedEvent(t, store, organizer.ID, 100_000, 10)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateTransaction(ctx, buyer, CreateTransactionInput{
			EventID:  event.ID,
			Quantity: 1,
		}, "")
		require.NoError(t, err)
	}

	own, err := svc.UserTransactions(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, own, 3)

	forOrganizer, err := svc.OrganizerTransactions(ctx, organizer)
	require.NoError(t, err)
	require.Len(t, forOrganizer, 3)

	_, err = svc.OrganizerTransactions(ctx, buyer)
	require.ErrorIs(t, err, authz.ErrForbidden)
}
