package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer  Role = "customer"
	RoleOrganizer Role = "organizer"
)

type TransactionStatus string

const (
	StatusWaitingForPayment      TransactionStatus = "waiting_for_payment"
	StatusWaitingForConfirmation TransactionStatus = "waiting_for_confirmation"
	StatusDone                   TransactionStatus = "done"
	StatusRejected               TransactionStatus = "rejected"
	StatusExpired                TransactionStatus = "expired"
	StatusCanceled               TransactionStatus = "canceled"
)

// Terminal reports whether no further transition is allowed out of s.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case StatusDone, StatusRejected, StatusExpired, StatusCanceled:
		return true
	}
	return false
}

// Reversing reports whether entering s releases the reserved seats.
func (s TransactionStatus) Reversing() bool {
	switch s {
	case StatusRejected, StatusExpired, StatusCanceled:
		return true
	}
	return false
}

type User struct {
	ID           int64
	Name         string
	Email        string
	Role         Role
	ReferralCode string
	Points       int64
	PointsExpiry *time.Time
	CreatedAt    time.Time
}

type Event struct {
	ID             int64
	OrganizerID    int64
	OrganizerName  string
	Name           string
	Description    string
	Location       string
	Category       string
	Image          string
	StartDate      time.Time
	EndDate        time.Time
	Price          int64 // IDR, whole rupiah
	IsFree         bool
	TotalSeats     int
	AvailableSeats int
	CreatedAt      time.Time
}

type Voucher struct {
	ID                 int64
	Code               string
	OrganizerID        int64
	EventID            *int64 // nil means usable for any of the organizer's events
	DiscountAmount     int64
	DiscountPercentage int64
	StartDate          time.Time
	EndDate            time.Time
	IsActive           bool
}

type Transaction struct {
	ID              uuid.UUID
	UserID          int64
	EventID         int64
	Quantity        int
	TotalPrice      int64
	PointsUsed      int64
	VoucherID       *int64
	CouponID        *string
	Status          TransactionStatus
	PaymentProof    *string
	PaymentDeadline time.Time
	CreatedAt       time.Time
}

type Review struct {
	ID        int64
	UserID    int64
	UserName  string
	EventID   int64
	Rating    int
	Comment   string
	CreatedAt time.Time
}
