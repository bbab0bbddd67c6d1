package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LivePromotionID is the fixed key of the flash promotion singleton record.
const LivePromotionID = "live_promo"

// LivePromotion is the single time-boxed flash offer. Once claimed, the
// record remains as a tombstone carrying ClaimedBy until the next launch or
// end, and is reported to readers as no active promotion.
type LivePromotion struct {
	ID              string           `json:"-" db:"id"`
	Code            string           `json:"code" db:"code"`
	Description     string           `json:"description" db:"description"`
	DiscountPercent decimal.Decimal  `json:"discountPercent" db:"discount_percent"`
	MaxDiscountCap  *decimal.Decimal `json:"maxDiscountCap,omitempty" db:"max_discount_cap"`
	LaunchedAt      time.Time        `json:"launchedAt" db:"launched_at"`
	DurationMinutes int              `json:"durationMinutes" db:"duration_minutes"`
	ExpiryDate      time.Time        `json:"expiryDate" db:"expiry_date"`
	ClaimedBy       *string          `json:"-" db:"claimed_by"`
	ClaimedAt       *time.Time       `json:"-" db:"claimed_at"`
}

// Claimed reports whether a user has already won the promotion.
func (p *LivePromotion) Claimed() bool {
	return p.ClaimedBy != nil
}

// Clone returns a deep copy of the promotion.
func (p *LivePromotion) Clone() *LivePromotion {
	c := *p
	if p.MaxDiscountCap != nil {
		capValue := *p.MaxDiscountCap
		c.MaxDiscountCap = &capValue
	}
	if p.ClaimedBy != nil {
		claimedBy := *p.ClaimedBy
		c.ClaimedBy = &claimedBy
	}
	if p.ClaimedAt != nil {
		claimedAt := *p.ClaimedAt
		c.ClaimedAt = &claimedAt
	}
	return &c
}

// LaunchRequest is the operator input for starting a flash promotion.
type LaunchRequest struct {
	DiscountPercent decimal.Decimal  `json:"discountPercent"`
	DurationMinutes int              `json:"durationMinutes" validate:"required,gt=0"`
	Description     string           `json:"description,omitempty" validate:"max=500"`
	MaxDiscountCap  *decimal.Decimal `json:"maxDiscountCap,omitempty"`
}

// PromotionView is the public projection of the live promotion. The
// remaining seconds are computed on the server and are for display only.
type PromotionView struct {
	LivePromotion
	RemainingSeconds int64 `json:"remainingSeconds"`
}
