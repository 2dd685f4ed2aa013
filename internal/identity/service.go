// Package identity is the identity service the ticketing engine collaborates
// with: it owns user records, sessions and referral point crediting. The
// engine itself never touches users beyond the authenticated actor it is
// handed.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/acaraku/acaraku/internal/domain"
	"github.com/acaraku/acaraku/internal/repository"
	redisrepo "github.com/acaraku/acaraku/internal/repository/redis"
)

type Config struct {
	JWTSecret string
	TokenTTL  time.Duration

	// ReferralBonusPoints is credited to a referrer on every successful
	// referral registration; ReferralPointsTTL refreshes the referrer's
	// points expiry.
	ReferralBonusPoints int64
	ReferralPointsTTL   time.Duration
}

type Service struct {
	store    repository.Store
	denylist *redisrepo.TokenDenylist
	cfg      Config

	now func() time.Time
}

func New(store repository.Store, denylist *redisrepo.TokenDenylist, cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}

	if cfg.ReferralBonusPoints <= 0 {
		cfg.ReferralBonusPoints = 10_000
	}

	if cfg.ReferralPointsTTL <= 0 {
		cfg.ReferralPointsTTL = 90 * 24 * time.Hour
	}

	return &Service{
		store:    store,
		denylist: denylist,
		cfg:      cfg,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Name         string
	Email        string
	Role         domain.Role
	ReferralCode string
}

// Register creates a user and opens a session. A valid referral code credits
// the referrer with the configured bonus and a refreshed expiry; an unknown
// code is silently ignored.
//
// Returns:
//   - *domain.User: the created user.
//   - string: a signed session token.
//   - error: identity.ErrEmailTaken if the email is registered already.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, string, error) {
	const op = "identity.Register"

	if in.Name == "" || in.Email == "" {
		return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if in.Role != domain.RoleCustomer && in.Role != domain.RoleOrganizer {
		return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidRole)
	}

	u := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		Role:         in.Role,
		ReferralCode: newReferralCode(),
		Points:       0,
		CreatedAt:    s.now(),
	}

	err := s.store.RunTx(ctx, func(ctx context.Context, tx repository.Store) error {
		id, err := tx.Users().Create(ctx, u)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s: %w", op, ErrEmailTaken)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		u.ID = id

		if in.ReferralCode != "" {
			if err := s.creditReferrer(ctx, tx, in.ReferralCode); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(u)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	return u, token, nil
}

// Login opens a session for an existing user. Credential verification is a
// lookup by email; real password handling lives outside this service.
//
// Returns:
//   - *domain.User: the user.
//   - string: a signed session token.
//   - error: identity.ErrInvalidCredentials for an unknown email.
func (s *Service) Login(ctx context.Context, email, _ string) (*domain.User, string, error) {
	const op = "identity.Login"

	u, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.issueToken(u)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	return u, token, nil
}

// Logout revokes the session token for the remainder of its lifetime.
func (s *Service) Logout(ctx context.Context, token string) error {
	const op = "identity.Logout"

	c, err := s.parseToken(token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if s.denylist == nil {
		return nil
	}

	ttl := c.ExpiresAt.Time.Sub(s.now())
	if err := s.denylist.Deny(ctx, c.ID, ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Authenticate resolves a session token to its user.
//
// Returns:
//   - *domain.User: the authenticated user.
//   - error: identity.ErrInvalidToken for a bad, expired or revoked token.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	const op = "identity.Authenticate"

	c, err := s.parseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if s.denylist != nil {
		denied, err := s.denylist.IsDenied(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if denied {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}
	}

	id, err := c.userID()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	u, err := s.store.Users().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// CreditReferralPoints credits the configured referral bonus to the holder of
// the referral code and refreshes their points expiry.
func (s *Service) CreditReferralPoints(ctx context.Context, referralCode string) error {
	const op = "identity.CreditReferralPoints"

	err := s.store.RunTx(ctx, func(ctx context.Context, tx repository.Store) error {
		return s.creditReferrer(ctx, tx, referralCode)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RestorePoints returns points spent on a reversed transaction to the buyer.
// The ticketing engine publishes reversals; the consumer in the app calls
// this for each one.
func (s *Service) RestorePoints(ctx context.Context, userID int64, points int64) error {
	const op = "identity.RestorePoints"

	if points <= 0 {
		return nil
	}

	if err := s.store.Users().AddPoints(ctx, userID, points, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) creditReferrer(ctx context.Context, tx repository.Store, code string) error {
	referrer, err := tx.Users().GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// unknown referral codes are ignored, registration still succeeds
			return nil
		}
		return err
	}

	expiry := s.now().Add(s.cfg.ReferralPointsTTL)

	return tx.Users().AddPoints(ctx, referrer.ID, s.cfg.ReferralBonusPoints, &expiry)
}

const referralAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newReferralCode() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = referralAlphabet[int(b[i])%len(referralAlphabet)]
	}
	return string(b)
}
