package service

import (
	"github.com/acaraku/acaraku/internal/coupon"
	redisx "github.com/acaraku/acaraku/internal/redis"
	"github.com/acaraku/acaraku/internal/repository"
	redisrepo "github.com/acaraku/acaraku/internal/repository/redis"
	"github.com/acaraku/acaraku/internal/service/catalog"
	"github.com/acaraku/acaraku/internal/service/review"
	"github.com/acaraku/acaraku/internal/service/ticketing"
)

type Services struct {
	Catalog   *catalog.Service
	Ticketing *ticketing.Service
	Review    *review.Service
}

type Config struct {
	Catalog   catalog.Config
	Ticketing ticketing.Config
}

func NewServices(
	store repository.Store,
	coupons coupon.Resolver,
	cache *redisrepo.Cache,
	pubsub *redisx.PubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	cfg Config,
) *Services {
	return &Services{
		Catalog:   catalog.New(store, cache, cfg.Catalog),
		Ticketing: ticketing.New(store, coupons, cache, pubsub, limiter, cfg.Ticketing),
		Review:    review.New(store, cache),
	}
}
