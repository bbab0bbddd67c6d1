package service

import (
	"homestay-promo/internal/model"

	"github.com/shopspring/decimal"
)

// currencyPlaces is the number of minor-unit digits amounts are rounded to.
const currencyPlaces = 2

// Discount computes the amount a voucher takes off subtotal. Percentage
// discounts are clamped to the voucher cap, fixed amounts to the subtotal.
// The result is rounded half away from zero to currency minor units and
// never exceeds subtotal.
func Discount(v *model.Voucher, subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch v.DiscountType {
	case model.DiscountPercentage:
		amount = subtotal.Mul(v.DiscountValue).Div(hundred)
		if v.MaxDiscountCap != nil && amount.GreaterThan(*v.MaxDiscountCap) {
			amount = *v.MaxDiscountCap
		}
	case model.DiscountFixedAmount:
		amount = decimal.Min(v.DiscountValue, subtotal)
	default:
		return decimal.Zero
	}

	amount = amount.Round(currencyPlaces)
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	return amount
}
