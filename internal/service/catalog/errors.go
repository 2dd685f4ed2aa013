package catalog

import "errors"

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrInvalidEvent   = errors.New("invalid event data")
	ErrInvalidVoucher = errors.New("invalid voucher data")
	ErrNotEventOwner  = errors.New("event belongs to another organizer")
)
