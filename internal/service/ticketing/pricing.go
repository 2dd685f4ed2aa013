package ticketing

import "github.com/acaraku/acaraku/internal/domain"

// Quote computes the total price of a transaction. The discount order is
// fixed: points first (1 point = 1 rupiah), then the voucher, then the
// coupon. A voucher's fixed amount wins over its percentage; the percentage
// applies to the post-points base, not the original base. The result never
// goes below zero.
func Quote(price int64, quantity int, pointsUsed int64, voucher *domain.Voucher, couponDiscount int64) int64 {
	total := price * int64(quantity)

	total -= pointsUsed

	if voucher != nil {
		if voucher.DiscountAmount > 0 {
			total -= voucher.DiscountAmount
		} else if voucher.DiscountPercentage > 0 {
			total -= total * voucher.DiscountPercentage / 100
		}
	}

	total -= couponDiscount

	if total < 0 {
		total = 0
	}

	return total
}
