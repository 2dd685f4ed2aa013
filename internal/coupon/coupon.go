// Package coupon defines the collaborator interface to the coupon service.
// Coupons are user-held discount grants issued by referral rewards; the
// service owning them is external, the ticketing engine only asks for the
// discount a coupon is worth.
package coupon

import (
	"context"
	"errors"
)

var ErrCouponNotFound = errors.New("coupon not found")

type Resolver interface {
	// ResolveDiscount returns the discount amount for the coupon, or
	// ErrCouponNotFound.
	ResolveDiscount(ctx context.Context, couponID string) (int64, error)
}

// StaticResolver values every coupon at a fixed amount. It stands in for the
// real coupon service until one exists.
type StaticResolver struct {
	Amount int64
}

func (r StaticResolver) ResolveDiscount(_ context.Context, _ string) (int64, error) {
	return r.Amount, nil
}
