package httpgin

import (
	"time"

	"github.com/acaraku/acaraku/internal/domain"
)

type RegisterRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required"`
	Role         string `json:"role" binding:"required,oneof=customer organizer"`
	ReferralCode string `json:"referral_code"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type CreateEventRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Location    string `json:"location" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Image       string `json:"image"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
	Price       int64  `json:"price"`
	IsFree      bool   `json:"is_free"`
	TotalSeats  int    `json:"total_seats" binding:"required,gt=0"`
}

type CreateVoucherRequest struct {
	Code               string `json:"code" binding:"required"`
	DiscountAmount     int64  `json:"discount_amount"`
	DiscountPercentage int64  `json:"discount_percentage"`
	StartDate          string `json:"start_date" binding:"required"`
	EndDate            string `json:"end_date" binding:"required"`
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

type CreateTransactionRequest struct {
	EventID    int64   `json:"event_id" binding:"required"`
	Quantity   int     `json:"quantity" binding:"required,gt=0"`
	PointsUsed int64   `json:"points_used"`
	VoucherID  *int64  `json:"voucher_id"`
	CouponID   *string `json:"coupon_id"`
}

type UploadPaymentProofRequest struct {
	PaymentProof string `json:"payment_proof" binding:"required"`
}

type UpdateTransactionStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=done rejected canceled"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
