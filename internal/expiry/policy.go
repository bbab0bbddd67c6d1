// Package expiry decides whether a voucher or promotion is usable at a given
// instant. Callers always pass the server clock.
package expiry

import (
	"time"

	"homestay-promo/internal/model"
)

// Clock returns the current server time.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// IsExpired reports whether now lies past the end of the validity window.
// The expiry instant itself is still valid.
func IsExpired(validFrom, expiryDate, now time.Time) bool {
	return now.After(expiryDate)
}

// NotYetValid reports whether the window has not opened.
func NotYetValid(validFrom, now time.Time) bool {
	return now.Before(validFrom)
}

// IsActive reports whether the voucher may be used at now.
func IsActive(v *model.Voucher, now time.Time) bool {
	return v.IsActive && !NotYetValid(v.ValidFrom, now) && !IsExpired(v.ValidFrom, v.ExpiryDate, now)
}

// Check returns the domain error explaining why a voucher is unusable, or
// nil when IsActive holds. A switched-off voucher is reported as inactive
// even when it is also expired.
func Check(v *model.Voucher, now time.Time) error {
	switch {
	case !v.IsActive:
		return model.ErrVoucherInactive
	case IsExpired(v.ValidFrom, v.ExpiryDate, now):
		return model.ErrVoucherExpired
	case NotYetValid(v.ValidFrom, now):
		return model.ErrVoucherInactive.WithDetail("not valid until " + v.ValidFrom.UTC().Format(time.RFC3339))
	}
	return nil
}

// PromotionLive reports whether an unclaimed promotion can still be claimed.
func PromotionLive(p *model.LivePromotion, now time.Time) bool {
	return !p.Claimed() && !IsExpired(p.LaunchedAt, p.ExpiryDate, now)
}

// Remaining returns the time left before the promotion expires, never negative.
func Remaining(p *model.LivePromotion, now time.Time) time.Duration {
	left := p.ExpiryDate.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
