package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingContext carries the facts about a booking a voucher is applied to.
type BookingContext struct {
	PropertyID string          `json:"propertyId" validate:"required"`
	RoomID     string          `json:"roomId,omitempty"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// RedemptionResult is the outcome of applying a voucher to a booking.
type RedemptionResult struct {
	VoucherID      uuid.UUID       `json:"voucherId"`
	Code           string          `json:"code"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalTotal     decimal.Decimal `json:"finalTotal"`
}
