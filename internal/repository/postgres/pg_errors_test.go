package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/acaraku/acaraku/internal/repository"
)

func TestWrapDBErr(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		require.NoError(t, wrapDBErr("op", nil))
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		err := wrapDBErr("op", pgx.ErrNoRows)
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("unique violation maps to conflict", func(t *testing.T) {
		err := wrapDBErr("op", &pgconn.PgError{Code: "23505"})
		require.ErrorIs(t, err, repository.ErrConflict)
	})

	t.Run("wrapped unique violation still maps", func(t *testing.T) {
		inner := fmt.Errorf("insert user: %w", &pgconn.PgError{Code: "23505"})
		err := wrapDBErr("op", inner)
		require.ErrorIs(t, err, repository.ErrConflict)
	})

	t.Run("other pg errors pass through", func(t *testing.T) {
		cause := &pgconn.PgError{Code: "23503"}
		err := wrapDBErr("op", cause)
		require.NotErrorIs(t, err, repository.ErrConflict)
		require.ErrorAs(t, err, new(*pgconn.PgError))
	})
}

func TestIsRetryable(t *testing.T) {
	require.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	require.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	require.True(t, IsRetryable(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})))

	require.False(t, IsRetryable(nil))
	require.False(t, IsRetryable(errors.New("connection reset")))
	require.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	require.False(t, IsRetryable(pgx.ErrNoRows))
}
