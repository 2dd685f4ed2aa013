package ticketing

import "errors"

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrSeatsUnavailable    = errors.New("not enough available seats")
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrInvalidPoints       = errors.New("points used must not be negative")
	ErrInvalidStatus       = errors.New("transaction is not in payment waiting status")
	ErrInvalidTransition   = errors.New("status transition not allowed")
	ErrDeadlineExceeded    = errors.New("payment deadline has passed")
	ErrRateLimited         = errors.New("rate limited")
)
