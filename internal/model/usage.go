package model

import (
	"time"

	"github.com/google/uuid"
)

// UserVoucherUsage records how often one user has redeemed one voucher.
type UserVoucherUsage struct {
	UserID     string     `json:"userId" db:"user_id"`
	VoucherID  uuid.UUID  `json:"voucherId" db:"voucher_id"`
	UsageCount int        `json:"usageCount" db:"usage_count"`
	IsUsed     bool       `json:"isUsed" db:"is_used"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty" db:"last_used_at"`
}

// Record increments the usage at the given instant.
func (u *UserVoucherUsage) Record(at time.Time) {
	u.UsageCount++
	u.IsUsed = u.UsageCount > 0
	usedAt := at
	u.LastUsedAt = &usedAt
}
