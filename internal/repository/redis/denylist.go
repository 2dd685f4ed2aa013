package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	redisx "github.com/acaraku/acaraku/internal/redis"
)

// TokenDenylist records revoked session token IDs until their natural expiry.
// Logout is otherwise a client-side operation; the denylist is what makes it
// stick server-side.
type TokenDenylist struct {
	rdb *redis.Client
}

func NewTokenDenylist(rdb *redis.Client) *TokenDenylist {
	return &TokenDenylist{rdb: rdb}
}

func (d *TokenDenylist) Deny(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return d.rdb.Set(ctx, redisx.KeyTokenDenied(jti), "1", ttl).Err()
}

func (d *TokenDenylist) IsDenied(ctx context.Context, jti string) (bool, error) {
	_, err := d.rdb.Get(ctx, redisx.KeyTokenDenied(jti)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
