package service

import (
	"context"
	"time"

	"homestay-promo/internal/expiry"
	"homestay-promo/internal/model"
	"homestay-promo/internal/notify"
	"homestay-promo/internal/repository"
	"homestay-promo/internal/validate"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// redemptionService implements RedemptionService.
type redemptionService struct {
	store  repository.VoucherStore
	runner *runner
	clock  expiry.Clock
	events notify.Publisher
	logger zerolog.Logger
}

// NewRedemptionService creates a new redemption engine.
func NewRedemptionService(
	store repository.VoucherStore,
	clock expiry.Clock,
	events notify.Publisher,
	opts Options,
	logger zerolog.Logger,
) RedemptionService {
	logger = logger.With().Str("service", "redemption").Logger()
	return &redemptionService{
		store:  store,
		runner: newRunner(opts, logger),
		clock:  clock,
		events: events,
		logger: logger,
	}
}

// Redeem validates the voucher for the booking and consumes one use. The
// voucher row lock serialises redemptions of the same code; the conditional
// increment keeps the global count within its limit.
func (s *redemptionService) Redeem(ctx context.Context, code, userID string, booking *model.BookingContext) (*model.RedemptionResult, error) {
	if err := requireUserID(userID); err != nil {
		return nil, err
	}
	if err := validateBooking(booking); err != nil {
		return nil, err
	}
	code = model.NormaliseCode(code)

	var result *model.RedemptionResult
	err := s.runner.run(ctx, "redeem_voucher", func(ctx context.Context) error {
		return s.store.Transact(ctx, func(tx repository.VoucherTx) error {
			now := s.clock()

			v, err := tx.LockVoucherByCode(ctx, code)
			if err != nil {
				return err
			}
			if v == nil {
				return model.ErrVoucherNotFound
			}

			usage, err := tx.LockUsage(ctx, userID, v.ID)
			if err != nil {
				return err
			}

			discount, err := evaluate(v, userID, booking, usage, now)
			if err != nil {
				return err
			}

			incremented, err := tx.IncrementRedeemed(ctx, v.ID, now)
			if err != nil {
				return err
			}
			if !incremented {
				return model.ErrUsageLimitReached
			}

			if usage == nil {
				usage = &model.UserVoucherUsage{UserID: userID, VoucherID: v.ID}
				usage.Record(now)
				err = tx.InsertUsage(ctx, usage)
			} else {
				usage.Record(now)
				err = tx.UpdateUsage(ctx, usage)
			}
			if err != nil {
				return err
			}

			result = newResult(v, booking.Subtotal, discount)
			return nil
		})
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("code", code).Str("user_id", userID).Msg("redemption refused")
		return nil, err
	}

	s.logger.Info().
		Str("code", code).
		Str("user_id", userID).
		Str("discount", result.DiscountAmount.StringFixed(currencyPlaces)).
		Msg("voucher redeemed")

	s.events.Publish(notify.Event{
		Type:      notify.EventVoucherRedeemed,
		Code:      result.Code,
		UserID:    userID,
		VoucherID: result.VoucherID.String(),
		Discount:  result.DiscountAmount.StringFixed(currencyPlaces),
	})

	return result, nil
}

// Quote runs the redemption checks against committed state without
// consuming anything.
func (s *redemptionService) Quote(ctx context.Context, code, userID string, booking *model.BookingContext) (*model.RedemptionResult, error) {
	if err := requireUserID(userID); err != nil {
		return nil, err
	}
	if err := validateBooking(booking); err != nil {
		return nil, err
	}
	code = model.NormaliseCode(code)

	var result *model.RedemptionResult
	err := s.runner.run(ctx, "quote_voucher", func(ctx context.Context) error {
		v, err := s.store.GetVoucherByCode(ctx, code)
		if err != nil {
			return err
		}
		if v == nil {
			return model.ErrVoucherNotFound
		}

		usage, err := s.store.GetUsage(ctx, userID, v.ID)
		if err != nil {
			return err
		}

		discount, err := evaluate(v, userID, booking, usage, s.clock())
		if err != nil {
			return err
		}
		result = newResult(v, booking.Subtotal, discount)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Usage reports how often a user has redeemed a voucher. A user who never
// redeemed it gets a zero record.
func (s *redemptionService) Usage(ctx context.Context, code, userID string) (*model.UserVoucherUsage, error) {
	if err := requireUserID(userID); err != nil {
		return nil, err
	}
	code = model.NormaliseCode(code)

	var usage *model.UserVoucherUsage
	err := s.runner.run(ctx, "voucher_usage", func(ctx context.Context) error {
		v, err := s.store.GetVoucherByCode(ctx, code)
		if err != nil {
			return err
		}
		if v == nil {
			return model.ErrVoucherNotFound
		}

		usage, err = s.store.GetUsage(ctx, userID, v.ID)
		if err != nil {
			return err
		}
		if usage == nil {
			usage = &model.UserVoucherUsage{UserID: userID, VoucherID: v.ID}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

// evaluate applies the redemption rules in order and returns the discount.
func evaluate(
	v *model.Voucher,
	userID string,
	booking *model.BookingContext,
	usage *model.UserVoucherUsage,
	now time.Time,
) (decimal.Decimal, error) {
	if err := expiry.Check(v, now); err != nil {
		return decimal.Zero, err
	}

	if v.ClaimedBy != nil && *v.ClaimedBy != userID {
		return decimal.Zero, model.ErrScopeMismatch.WithDetail("voucher belongs to another guest")
	}
	if !v.Scope.Matches(*booking) {
		return decimal.Zero, model.ErrScopeMismatch
	}

	if v.Exhausted() {
		return decimal.Zero, model.ErrUsageLimitReached
	}
	if usage != nil && usage.UsageCount >= v.EffectivePerUserLimit() {
		return decimal.Zero, model.ErrAlreadyRedeemedByUser
	}

	return Discount(v, booking.Subtotal), nil
}

func validateBooking(booking *model.BookingContext) error {
	if booking == nil {
		return model.ErrInvalidBooking.WithDetail("booking is required")
	}
	if err := validate.Struct(booking); err != nil {
		return model.ErrInvalidBooking.WithDetail(err.Error())
	}
	if !booking.Subtotal.IsPositive() {
		return model.ErrInvalidBooking.WithDetail("subtotal must be positive")
	}
	return nil
}

func newResult(v *model.Voucher, subtotal, discount decimal.Decimal) *model.RedemptionResult {
	return &model.RedemptionResult{
		VoucherID:      v.ID,
		Code:           v.Code,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		FinalTotal:     subtotal.Sub(discount),
	}
}
