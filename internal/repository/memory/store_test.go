package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/acaraku/acaraku/internal/domain"
	"github.com/acaraku/acaraku/internal/repository"
)

func seedEvent(t *testing.T, store *Store, seats int) int64 {
	t.Helper()

	id, err := store.Events().Create(context.Background(), &domain.Event{
		Name:           "Go Conference",
		Location:       "Jakarta",
		Category:       "Technology",
		TotalSeats:     seats,
		AvailableSeats: seats,
	})
	require.NoError(t, err)

	return id
}

func TestReserveSeats(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	eventID := seedEvent(t, store, 3)

	require.NoError(t, store.Events().ReserveSeats(ctx, eventID, 2))

	err := store.Events().ReserveSeats(ctx, eventID, 2)
	require.ErrorIs(t, err, repository.ErrSeatsUnavailable)

	e, err := store.Events().Get(ctx, eventID)
	require.NoError(t, err)
	require.Equal(t, 1, e.AvailableSeats)

	err = store.Events().ReserveSeats(ctx, 999, 1)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReleaseSeatsClampsAtCapacity(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	eventID := seedEvent(t, store, 5)

	require.NoError(t, store.Events().ReserveSeats(ctx, eventID, 2))
	require.NoError(t, store.Events().ReleaseSeats(ctx, eventID, 4))

	e, err := store.Events().Get(ctx, eventID)
	require.NoError(t, err)
	require.Equal(t, 5, e.AvailableSeats)
}

func TestRunTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	eventID := seedEvent(t, store, 5)

	boom := errors.New("boom")

	err := store.RunTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Events().ReserveSeats(ctx, eventID, 3); err != nil {
			return err
		}
		if err := tx.Transactions().Create(ctx, &domain.Transaction{
			ID:      uuid.New(),
			UserID:  1,
			EventID: eventID,
			Status:  domain.StatusWaitingForPayment,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	e, err := store.Events().Get(ctx, eventID)
	require.NoError(t, err)
	require.Equal(t, 5, e.AvailableSeats)

	out, err := store.Transactions().ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestRunTxCommits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	eventID := seedEvent(t, store, 5)

	err := store.RunTx(ctx, func(ctx context.Context, tx repository.Store) error {
		return tx.Events().ReserveSeats(ctx, eventID, 3)
	})
	require.NoError(t, err)

	e, err := store.Events().Get(ctx, eventID)
	require.NoError(t, err)
	require.Equal(t, 2, e.AvailableSeats)
}

// Concurrent reservations must never push availability below zero, and the
// successful ones must account for every seat taken.
func TestConcurrentReservations(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	const seats = 10
	eventID := seedEvent(t, store, seats)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := store.RunTx(ctx, func(ctx context.Context, tx repository.Store) error {
				return tx.Events().ReserveSeats(ctx, eventID, 1)
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, seats, succeeded)

	e, err := store.Events().Get(ctx, eventID)
	require.NoError(t, err)
	require.Zero(t, e.AvailableSeats)
}

func TestUserUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_, err := store.Users().Create(ctx, &domain.User{
		Name:         "Sari",
		Email:        "sari@example.com",
		ReferralCode: "AAAAAA",
	})
	require.NoError(t, err)

	_, err = store.Users().Create(ctx, &domain.User{
		Name:         "Impostor",
		Email:        "sari@example.com",
		ReferralCode: "BBBBBB",
	})
	require.ErrorIs(t, err, repository.ErrConflict)
}
