package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acaraku/acaraku/internal/domain"
	"github.com/acaraku/acaraku/internal/repository/memory"
)

var testTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, store *memory.Store) *Service {
	t.Helper()

	s := New(store, nil, Config{JWTSecret: "test-secret"})
	s.now = func() time.Time { return testTime }

	return s
}

func registerInput() RegisterInput {
	return RegisterInput{
		Name:  "Sari",
		Email: "sari@example.com",
		Role:  domain.RoleCustomer,
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the user and opens a session", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)

		u, token, err := svc.Register(ctx, registerInput())
		require.NoError(t, err)
		require.NotZero(t, u.ID)
		require.Len(t, u.ReferralCode, 6)
		require.Zero(t, u.Points)

		got, err := svc.Authenticate(ctx, token)
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
	})

	t.Run("rejects a taken email", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)

		_, _, err := svc.Register(ctx, registerInput())
		require.NoError(t, err)

		in := registerInput()
		in.Name = "Impostor"
		_, _, err = svc.Register(ctx, in)
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("rejects an unknown role", func(t *testing.T) {
		svc := newTestService(t, memory.NewStore())

		in := registerInput()
		in.Role = "admin"
		_, _, err := svc.Register(ctx, in)
		require.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("referral code credits the referrer", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)

		referrer, _, err := svc.Register(ctx, registerInput())
		require.NoError(t, err)

		in := RegisterInput{
			Name:         "Budi",
			Email:        "budi@example.com",
			Role:         domain.RoleCustomer,
			ReferralCode: referrer.ReferralCode,
		}
		_, _, err = svc.Register(ctx, in)
		require.NoError(t, err)

		got, err := store.Users().Get(ctx, referrer.ID)
		require.NoError(t, err)
		require.Equal(t, int64(10_000), got.Points)
		require.NotNil(t, got.PointsExpiry)
		require.Equal(t, testTime.Add(90*24*time.Hour), *got.PointsExpiry)
	})

	t.Run("unknown referral code is silently ignored", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)

		in := registerInput()
		in.ReferralCode = "NOSUCH"
		u, _, err := svc.Register(ctx, in)
		require.NoError(t, err)
		require.NotZero(t, u.ID)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestService(t, store)

	registered, _, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	u, token, err := svc.Login(ctx, registered.Email, "whatever")
	require.NoError(t, err)
	require.Equal(t, registered.ID, u.ID)
	require.NotEmpty(t, token)

	_, _, err = svc.Login(ctx, "nobody@example.com", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects garbage tokens", func(t *testing.T) {
		svc := newTestService(t, memory.NewStore())

		_, err := svc.Authenticate(ctx, "not-a-token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)

		_, token, err := svc.Register(ctx, registerInput())
		require.NoError(t, err)

		svc.now = func() time.Time { return testTime.Add(25 * time.Hour) }

		_, err = svc.Authenticate(ctx, token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects tokens signed with another secret", func(t *testing.T) {
		store := memory.NewStore()
		svc := newTestService(t, store)

		_, token, err := svc.Register(ctx, registerInput())
		require.NoError(t, err)

		other := New(store, nil, Config{JWTSecret: "other-secret"})
		other.now = svc.now

		_, err = other.Authenticate(ctx, token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRestorePoints(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestService(t, store)

	u, _, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	require.NoError(t, svc.RestorePoints(ctx, u.ID, 5_000))

	got, err := store.Users().Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5_000), got.Points)

	// zero and negative restores are no-ops
	require.NoError(t, svc.RestorePoints(ctx, u.ID, 0))
	require.NoError(t, svc.RestorePoints(ctx, u.ID, -10))

	err = svc.RestorePoints(ctx, 999, 1_000)
	require.ErrorIs(t, err, ErrUserNotFound)
}
