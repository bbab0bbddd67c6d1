package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType selects how a voucher's discount value is interpreted.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixedAmount
}

// ScopeKind names the set of bookings a voucher applies to.
type ScopeKind string

const (
	ScopeAllProperties    ScopeKind = "all_properties"
	ScopeSpecificProperty ScopeKind = "specific_property"
	ScopeSpecificRoom     ScopeKind = "specific_room"
)

// Scope restricts a voucher to all properties, one property or one room.
// TargetID is empty for ScopeAllProperties.
type Scope struct {
	Kind     ScopeKind `json:"kind" validate:"required,oneof=all_properties specific_property specific_room"`
	TargetID string    `json:"targetId,omitempty"`
}

// AllProperties returns the unrestricted scope.
func AllProperties() Scope {
	return Scope{Kind: ScopeAllProperties}
}

// Matches reports whether a booking falls inside the scope.
func (s Scope) Matches(booking BookingContext) bool {
	switch s.Kind {
	case ScopeAllProperties:
		return true
	case ScopeSpecificProperty:
		return s.TargetID != "" && s.TargetID == booking.PropertyID
	case ScopeSpecificRoom:
		return s.TargetID != "" && s.TargetID == booking.RoomID
	default:
		return false
	}
}

// DefaultPerUserLimit is the number of times one user may redeem a voucher
// unless the voucher says otherwise.
const DefaultPerUserLimit = 1

// Voucher is a persistent discount offer.
type Voucher struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	Code           string           `json:"code" db:"code"`
	Description    string           `json:"description" db:"description"`
	DiscountType   DiscountType     `json:"discountType" db:"discount_type"`
	DiscountValue  decimal.Decimal  `json:"discountValue" db:"discount_value"`
	Scope          Scope            `json:"scope"`
	ValidFrom      time.Time        `json:"validFrom" db:"valid_from"`
	ExpiryDate     time.Time        `json:"expiryDate" db:"expiry_date"`
	UsageLimit     int              `json:"usageLimit" db:"usage_limit"`
	RedeemedCount  int              `json:"redeemedCount" db:"redeemed_count"`
	PerUserLimit   int              `json:"perUserLimit" db:"per_user_limit"`
	IsActive       bool             `json:"isActive" db:"is_active"`
	ClaimedBy      *string          `json:"claimedBy,omitempty" db:"claimed_by"`
	MaxDiscountCap *decimal.Decimal `json:"maxDiscountCap,omitempty" db:"max_discount_cap"`
	CreatedAt      time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time        `json:"updatedAt" db:"updated_at"`
}

// Exhausted reports whether the global usage limit has been reached.
func (v *Voucher) Exhausted() bool {
	return v.UsageLimit > 0 && v.RedeemedCount >= v.UsageLimit
}

// EffectivePerUserLimit returns PerUserLimit, falling back to the default.
func (v *Voucher) EffectivePerUserLimit() int {
	if v.PerUserLimit <= 0 {
		return DefaultPerUserLimit
	}
	return v.PerUserLimit
}

// Clone returns a deep copy of the voucher.
func (v *Voucher) Clone() *Voucher {
	c := *v
	if v.ClaimedBy != nil {
		claimedBy := *v.ClaimedBy
		c.ClaimedBy = &claimedBy
	}
	if v.MaxDiscountCap != nil {
		capValue := *v.MaxDiscountCap
		c.MaxDiscountCap = &capValue
	}
	return &c
}

// NormaliseCode canonicalises a user-typed voucher code.
func NormaliseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// VoucherDefinition is the operator input for creating a voucher.
type VoucherDefinition struct {
	Code           string           `json:"code,omitempty" validate:"omitempty,alphanum,min=4,max=32"`
	Description    string           `json:"description" validate:"max=500"`
	DiscountType   DiscountType     `json:"discountType" validate:"required,oneof=percentage fixed_amount"`
	DiscountValue  decimal.Decimal  `json:"discountValue"`
	Scope          Scope            `json:"scope"`
	ValidFrom      time.Time        `json:"validFrom" validate:"required"`
	ExpiryDate     time.Time        `json:"expiryDate" validate:"required"`
	UsageLimit     int              `json:"usageLimit" validate:"gte=0"`
	PerUserLimit   int              `json:"perUserLimit,omitempty" validate:"gte=0"`
	MaxDiscountCap *decimal.Decimal `json:"maxDiscountCap,omitempty"`
	ClaimedBy      *string          `json:"-"`
}

// VoucherList is a page of vouchers.
type VoucherList struct {
	Vouchers []Voucher `json:"vouchers"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}
