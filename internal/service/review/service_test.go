package review

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/acaraku/acaraku/internal/authz"
	"github.com/acaraku/acaraku/internal/domain"
	"github.com/acaraku/acaraku/internal/repository/memory"
)

func setup(t *testing.T) (*Service, *memory.Store, *domain.Event) {
	t.Helper()

	store := memory.NewStore()

	e := &domain.Event{
		OrganizerID:    10,
		Name:           "Go Conference",
		Location:       "Jakarta",
		Category:       "Technology",
		TotalSeats:     50,
		AvailableSeats: 50,
	}
	id, err := store.Events().Create(context.Background(), e)
	require.NoError(t, err)
	e.ID = id

	return New(store, nil), store, e
}

func completeTransaction(t *testing.T, store *memory.Store, userID, eventID int64) {
	t.Helper()

	err := store.Transactions().Create(context.Background(), &domain.Transaction{
		ID:      uuid.New(),
		UserID:  userID,
		EventID: eventID,
		Status:  domain.StatusDone,
	})
	require.NoError(t, err)
}

func TestAddReview(t *testing.T) {
	ctx := context.Background()
	attendee := &domain.User{ID: 1, Name: "Sari", Role: domain.RoleCustomer}

	t.Run("attendee reviews the event", func(t *testing.T) {
		svc, store, event := setup(t)
		completeTransaction(t, store, attendee.ID, event.ID)

		r, err := svc.AddReview(ctx, attendee, event.ID, 5, "great lineup")
		require.NoError(t, err)
		require.NotZero(t, r.ID)
		require.Equal(t, attendee.Name, r.UserName)

		out, err := svc.EventReviews(ctx, event.ID)
		require.NoError(t, err)
		require.Len(t, out, 1)
	})

	t.Run("requires a completed transaction", func(t *testing.T) {
		svc, store, event := setup(t)

		// a pending transaction is not attendance
		err := store.Transactions().Create(ctx, &domain.Transaction{
			ID:      uuid.New(),
			UserID:  attendee.ID,
			EventID: event.ID,
			Status:  domain.StatusWaitingForConfirmation,
		})
		require.NoError(t, err)

		_, err = svc.AddReview(ctx, attendee, event.ID, 4, "")
		require.ErrorIs(t, err, ErrNotAttended)
	})

	t.Run("rating must be between 1 and 5", func(t *testing.T) {
		svc, store, event := setup(t)
		completeTransaction(t, store, attendee.ID, event.ID)

		_, err := svc.AddReview(ctx, attendee, event.ID, 0, "")
		require.ErrorIs(t, err, ErrInvalidRating)

		_, err = svc.AddReview(ctx, attendee, event.ID, 6, "")
		require.ErrorIs(t, err, ErrInvalidRating)
	})

	t.Run("unknown event", func(t *testing.T) {
		svc, _, _ := setup(t)

		_, err := svc.AddReview(ctx, attendee, 999, 4, "")
		require.ErrorIs(t, err, ErrEventNotFound)
	})

	t.Run("requires an authenticated actor", func(t *testing.T) {
		svc, _, event := setup(t)

		_, err := svc.AddReview(ctx, nil, event.ID, 4, "")
		require.ErrorIs(t, err, authz.ErrUnauthenticated)
	})

	t.Run("the same event may be reviewed more than once", func(t *testing.T) {
		svc, store, event := setup(t)
		completeTransaction(t, store, attendee.ID, event.ID)

		_, err := svc.AddReview(ctx, attendee, event.ID, 4, "first visit")
		require.NoError(t, err)
		_, err = svc.AddReview(ctx, attendee, event.ID, 5, "second visit")
		require.NoError(t, err)

		out, err := svc.EventReviews(ctx, event.ID)
		require.NoError(t, err)
		require.Len(t, out, 2)
	})
}
