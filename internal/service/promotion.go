package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homestay-promo/internal/codegen"
	"homestay-promo/internal/codeset"
	"homestay-promo/internal/expiry"
	"homestay-promo/internal/model"
	"homestay-promo/internal/notify"
	"homestay-promo/internal/repository"
	"homestay-promo/internal/validate"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var onePercent = decimal.NewFromInt(1)

// promotionService implements PromotionService. The live record is a
// singleton row; every transition happens inside one store transaction
// holding its lock.
type promotionService struct {
	store  repository.VoucherStore
	codes  *codeAllocator
	runner *runner
	clock  expiry.Clock
	events notify.Publisher
	opts   Options
	logger zerolog.Logger
}

// NewPromotionService creates a new flash promotion coordinator.
func NewPromotionService(
	store repository.VoucherStore,
	generator codegen.Generator,
	reserved codeset.Reserved,
	clock expiry.Clock,
	events notify.Publisher,
	opts Options,
	logger zerolog.Logger,
) PromotionService {
	logger = logger.With().Str("service", "promotion").Logger()
	return &promotionService{
		store:  store,
		codes:  newCodeAllocator(generator, reserved, opts),
		runner: newRunner(opts, logger),
		clock:  clock,
		events: events,
		opts:   opts,
		logger: logger,
	}
}

// Launch starts a flash promotion unless an unclaimed one is still live.
// Claimed or expired records are replaced.
func (s *promotionService) Launch(ctx context.Context, req *model.LaunchRequest) (*model.LivePromotion, error) {
	if err := s.validateLaunch(req); err != nil {
		return nil, err
	}

	var launched *model.LivePromotion
	err := s.runner.run(ctx, "launch_promotion", func(ctx context.Context) error {
		return s.store.Transact(ctx, func(tx repository.VoucherTx) error {
			now := s.clock()

			existing, err := tx.LockLivePromotion(ctx)
			if err != nil {
				return err
			}
			if existing != nil && expiry.PromotionLive(existing, now) {
				return model.ErrPromotionAlreadyLive
			}

			code, err := s.codes.allocate(ctx, tx)
			if err != nil {
				return err
			}

			p := &model.LivePromotion{
				ID:              model.LivePromotionID,
				Code:            code,
				Description:     req.Description,
				DiscountPercent: req.DiscountPercent,
				MaxDiscountCap:  req.MaxDiscountCap,
				LaunchedAt:      now,
				DurationMinutes: req.DurationMinutes,
				ExpiryDate:      now.Add(time.Duration(req.DurationMinutes) * time.Minute),
			}

			if existing == nil {
				err = tx.InsertLivePromotion(ctx, p)
			} else {
				err = tx.UpdateLivePromotion(ctx, p)
			}
			if err != nil {
				return err
			}
			launched = p
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, model.ErrPromotionAlreadyLive) {
			s.logger.Info().Msg("launch rejected, promotion already live")
		}
		return nil, err
	}

	s.logger.Info().
		Str("code", launched.Code).
		Str("discount_percent", launched.DiscountPercent.String()).
		Time("expires_at", launched.ExpiryDate).
		Msg("flash promotion launched")

	expiresAt := launched.ExpiryDate
	s.events.Publish(notify.Event{
		Type:       notify.EventPromotionLaunched,
		Code:       launched.Code,
		Discount:   launched.DiscountPercent.String(),
		ExpiresAt:  &expiresAt,
		OccurredAt: launched.LaunchedAt,
	})

	return launched, nil
}

func (s *promotionService) validateLaunch(req *model.LaunchRequest) error {
	if req == nil {
		return model.ErrInvalidVoucherDefinition.WithDetail("launch request is required")
	}
	if err := validate.Struct(req); err != nil {
		return model.ErrInvalidVoucherDefinition.WithDetail(err.Error())
	}
	if req.DurationMinutes > s.opts.MaxDurationMinutes {
		return model.ErrInvalidVoucherDefinition.WithDetail(
			fmt.Sprintf("durationMinutes must be at most %d", s.opts.MaxDurationMinutes))
	}
	if req.DiscountPercent.LessThan(onePercent) || req.DiscountPercent.GreaterThan(hundred) {
		return model.ErrInvalidVoucherDefinition.WithDetail("discountPercent must be between 1 and 100")
	}
	if err := checkAmount("discountPercent", req.DiscountPercent); err != nil {
		return err
	}
	if req.MaxDiscountCap != nil {
		if !req.MaxDiscountCap.IsPositive() {
			return model.ErrInvalidVoucherDefinition.WithDetail("maxDiscountCap must be positive")
		}
		if err := checkAmount("maxDiscountCap", *req.MaxDiscountCap); err != nil {
			return err
		}
	}
	return nil
}

// Claim converts the live promotion into a personal voucher for the first
// user to call it. The lock on the live record makes every other claimant
// wait and then observe the winner.
//
// A claimed promotion is not deleted. It stays as a tombstone recording
// claimedBy, so later claimants get ErrAlreadyClaimed rather than
// ErrNoActivePromotion, until an operator ends it or launches the next one.
func (s *promotionService) Claim(ctx context.Context, userID string) (*model.Voucher, error) {
	if err := requireUserID(userID); err != nil {
		return nil, err
	}

	var won *model.Voucher
	err := s.runner.run(ctx, "claim_promotion", func(ctx context.Context) error {
		return s.store.Transact(ctx, func(tx repository.VoucherTx) error {
			now := s.clock()

			p, err := tx.LockLivePromotion(ctx)
			if err != nil {
				return err
			}
			switch {
			case p == nil:
				return model.ErrNoActivePromotion
			case p.Claimed():
				return model.ErrAlreadyClaimed
			case expiry.IsExpired(p.LaunchedAt, p.ExpiryDate, now):
				return model.ErrPromotionExpired
			}

			code := p.Code
			clash, err := tx.LockVoucherByCode(ctx, code)
			if err != nil {
				return err
			}
			if clash != nil {
				if code, err = s.codes.allocate(ctx, tx); err != nil {
					return err
				}
			}

			v := s.claimedVoucher(p, code, userID, now)
			if err := tx.InsertVoucher(ctx, v); err != nil {
				return err
			}

			claimedAt := now
			p.ClaimedBy = &userID
			p.ClaimedAt = &claimedAt
			if err := tx.UpdateLivePromotion(ctx, p); err != nil {
				return err
			}

			won = v
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, model.ErrAlreadyClaimed) {
			s.logger.Debug().Str("user_id", userID).Msg("claim lost")
		}
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("code", won.Code).
		Str("voucher_id", won.ID.String()).
		Msg("flash promotion claimed")

	s.events.Publish(notify.Event{
		Type:       notify.EventPromotionClaimed,
		Code:       won.Code,
		UserID:     userID,
		VoucherID:  won.ID.String(),
		Discount:   won.DiscountValue.String(),
		OccurredAt: won.CreatedAt,
	})

	return won, nil
}

func (s *promotionService) claimedVoucher(p *model.LivePromotion, code, userID string, now time.Time) *model.Voucher {
	owner := userID
	v := &model.Voucher{
		ID:            uuid.New(),
		Code:          code,
		Description:   p.Description,
		DiscountType:  model.DiscountPercentage,
		DiscountValue: p.DiscountPercent,
		Scope:         model.AllProperties(),
		ValidFrom:     now,
		ExpiryDate:    now.Add(s.opts.ClaimedVoucherValidity),
		UsageLimit:    1,
		PerUserLimit:  1,
		IsActive:      true,
		ClaimedBy:     &owner,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.MaxDiscountCap != nil {
		capValue := *p.MaxDiscountCap
		v.MaxDiscountCap = &capValue
	}
	return v
}

// End removes the live promotion whatever its state.
func (s *promotionService) End(ctx context.Context) error {
	var existed bool
	err := s.runner.run(ctx, "end_promotion", func(ctx context.Context) error {
		return s.store.Transact(ctx, func(tx repository.VoucherTx) error {
			var err error
			existed, err = tx.DeleteLivePromotion(ctx)
			return err
		})
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to end promotion")
		return err
	}

	if existed {
		s.logger.Info().Msg("flash promotion ended")
		s.events.Publish(notify.Event{Type: notify.EventPromotionEnded, OccurredAt: s.clock()})
	}
	return nil
}

// Current returns the claimable promotion with its remaining time. Claimed
// and expired records read as no active promotion.
func (s *promotionService) Current(ctx context.Context) (*model.PromotionView, error) {
	var p *model.LivePromotion
	err := s.runner.run(ctx, "current_promotion", func(ctx context.Context) error {
		var err error
		p, err = s.store.GetLivePromotion(ctx)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read live promotion")
		return nil, err
	}

	now := s.clock()
	if p == nil || !expiry.PromotionLive(p, now) {
		return nil, model.ErrNoActivePromotion
	}

	return &model.PromotionView{
		LivePromotion:    *p,
		RemainingSeconds: int64(expiry.Remaining(p, now).Seconds()),
	}, nil
}
