package service

import (
	"context"
	"time"

	"homestay-promo/internal/codegen"
	"homestay-promo/internal/model"

	"github.com/google/uuid"
)

// CatalogService manages the voucher catalogue.
type CatalogService interface {
	// Create validates a definition and stores a voucher with a unique code.
	Create(ctx context.Context, def *model.VoucherDefinition) (*model.Voucher, error)

	// GetByCode retrieves a voucher by its case-insensitive code.
	GetByCode(ctx context.Context, code string) (*model.Voucher, error)

	// GetByID retrieves a voucher by id.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error)

	// List retrieves vouchers newest first with pagination.
	List(ctx context.Context, limit, offset int) ([]model.Voucher, error)

	// ListClaimedBy retrieves the personal vouchers a user won.
	ListClaimedBy(ctx context.Context, userID string) ([]model.Voucher, error)

	// Deactivate switches a voucher off. Deactivating twice is not an error.
	Deactivate(ctx context.Context, id uuid.UUID) (*model.Voucher, error)
}

// PromotionService runs the single live flash promotion.
type PromotionService interface {
	// Launch starts a flash promotion unless an unclaimed one is still live.
	Launch(ctx context.Context, req *model.LaunchRequest) (*model.LivePromotion, error)

	// Claim converts the live promotion into a personal voucher for the
	// first user to call it.
	Claim(ctx context.Context, userID string) (*model.Voucher, error)

	// End removes the live promotion whatever its state.
	End(ctx context.Context) error

	// Current returns the claimable promotion with its remaining time.
	Current(ctx context.Context) (*model.PromotionView, error)
}

// RedemptionService applies vouchers to bookings.
type RedemptionService interface {
	// Redeem validates the voucher for the booking and consumes one use.
	Redeem(ctx context.Context, code, userID string, booking *model.BookingContext) (*model.RedemptionResult, error)

	// Quote computes the discount Redeem would grant without consuming it.
	Quote(ctx context.Context, code, userID string, booking *model.BookingContext) (*model.RedemptionResult, error)

	// Usage reports how often a user has redeemed a voucher.
	Usage(ctx context.Context, code, userID string) (*model.UserVoucherUsage, error)
}

// Options tunes the voucher engine.
type Options struct {
	CodeLength             int
	CodePrefix             string
	CodeAttempts           int
	MaxDurationMinutes     int
	ClaimedVoucherValidity time.Duration
	MaxRetries             int
	OperationTimeout       time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		CodeLength:             codegen.DefaultLength,
		CodeAttempts:           5,
		MaxDurationMinutes:     60,
		ClaimedVoucherValidity: 30 * 24 * time.Hour,
		MaxRetries:             3,
		OperationTimeout:       10 * time.Second,
	}
}
