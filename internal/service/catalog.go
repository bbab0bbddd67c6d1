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
	"homestay-promo/internal/repository"
	"homestay-promo/internal/validate"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	// maxAmount is the first value NUMERIC(12,2) cannot hold.
	maxAmount = decimal.New(1, 10)
)

// checkAmount rejects values the store would round or overflow.
func checkAmount(field string, d decimal.Decimal) error {
	if !d.Equal(d.Round(currencyPlaces)) {
		return model.ErrInvalidVoucherDefinition.WithDetail(
			fmt.Sprintf("%s must have at most %d decimal places", field, currencyPlaces))
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return model.ErrInvalidVoucherDefinition.WithDetail(
			fmt.Sprintf("%s must be less than %s", field, maxAmount.String()))
	}
	return nil
}

// requireUserID rejects calls made without a caller identity.
func requireUserID(userID string) error {
	if userID == "" {
		return model.ErrMissingUser
	}
	return nil
}

// catalogService implements CatalogService.
type catalogService struct {
	store  repository.VoucherStore
	codes  *codeAllocator
	runner *runner
	clock  expiry.Clock
	logger zerolog.Logger
}

// NewCatalogService creates a new voucher catalogue.
func NewCatalogService(
	store repository.VoucherStore,
	generator codegen.Generator,
	reserved codeset.Reserved,
	clock expiry.Clock,
	opts Options,
	logger zerolog.Logger,
) CatalogService {
	logger = logger.With().Str("service", "catalog").Logger()
	return &catalogService{
		store:  store,
		codes:  newCodeAllocator(generator, reserved, opts),
		runner: newRunner(opts, logger),
		clock:  clock,
		logger: logger,
	}
}

// Create validates a definition and stores a voucher with a unique code.
func (s *catalogService) Create(ctx context.Context, def *model.VoucherDefinition) (*model.Voucher, error) {
	if err := validateDefinition(def); err != nil {
		s.logger.Debug().Err(err).Msg("rejected voucher definition")
		return nil, err
	}

	explicit := model.NormaliseCode(def.Code)

	var created *model.Voucher
	err := s.runner.run(ctx, "create_voucher", func(ctx context.Context) error {
		return s.store.Transact(ctx, func(tx repository.VoucherTx) error {
			code := explicit
			if code != "" {
				if err := s.codes.claimExplicit(ctx, tx, code); err != nil {
					return err
				}
			} else {
				var err error
				if code, err = s.codes.allocate(ctx, tx); err != nil {
					return err
				}
			}

			v := newVoucher(def, code, s.clock())
			if err := tx.InsertVoucher(ctx, v); err != nil {
				return err
			}
			created = v
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, model.ErrCodeGenerationExhausted) {
			s.logger.Error().Msg("voucher code space exhausted")
		}
		return nil, err
	}

	s.logger.Info().
		Str("voucher_id", created.ID.String()).
		Str("code", created.Code).
		Str("discount_type", string(created.DiscountType)).
		Msg("voucher created")

	return created, nil
}

func newVoucher(def *model.VoucherDefinition, code string, now time.Time) *model.Voucher {
	perUser := def.PerUserLimit
	if perUser == 0 {
		perUser = model.DefaultPerUserLimit
	}

	scope := def.Scope
	if scope.Kind == model.ScopeAllProperties {
		scope.TargetID = ""
	}

	v := &model.Voucher{
		ID:            uuid.New(),
		Code:          code,
		Description:   def.Description,
		DiscountType:  def.DiscountType,
		DiscountValue: def.DiscountValue,
		Scope:         scope,
		ValidFrom:     def.ValidFrom.UTC(),
		ExpiryDate:    def.ExpiryDate.UTC(),
		UsageLimit:    def.UsageLimit,
		PerUserLimit:  perUser,
		IsActive:      true,
		ClaimedBy:     def.ClaimedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if def.MaxDiscountCap != nil {
		capValue := *def.MaxDiscountCap
		v.MaxDiscountCap = &capValue
	}
	return v
}

// validateDefinition enforces the rules struct tags cannot express.
func validateDefinition(def *model.VoucherDefinition) error {
	if def == nil {
		return model.ErrInvalidVoucherDefinition.WithDetail("definition is required")
	}
	if err := validate.Struct(def); err != nil {
		return model.ErrInvalidVoucherDefinition.WithDetail(err.Error())
	}

	if def.Code != "" && !codegen.Typable(model.NormaliseCode(def.Code)) {
		return model.ErrInvalidVoucherDefinition.WithDetail("code must contain only letters and digits")
	}

	if !def.DiscountValue.IsPositive() {
		return model.ErrInvalidVoucherDefinition.WithDetail("discountValue must be positive")
	}
	if err := checkAmount("discountValue", def.DiscountValue); err != nil {
		return err
	}
	if def.DiscountType == model.DiscountPercentage && def.DiscountValue.GreaterThan(hundred) {
		return model.ErrInvalidVoucherDefinition.WithDetail("discountValue must be at most 100 for percentage vouchers")
	}

	if def.MaxDiscountCap != nil {
		if def.DiscountType != model.DiscountPercentage {
			return model.ErrInvalidVoucherDefinition.WithDetail("maxDiscountCap only applies to percentage vouchers")
		}
		if !def.MaxDiscountCap.IsPositive() {
			return model.ErrInvalidVoucherDefinition.WithDetail("maxDiscountCap must be positive")
		}
		if err := checkAmount("maxDiscountCap", *def.MaxDiscountCap); err != nil {
			return err
		}
	}

	switch def.Scope.Kind {
	case model.ScopeSpecificProperty, model.ScopeSpecificRoom:
		if def.Scope.TargetID == "" {
			return model.ErrInvalidVoucherDefinition.WithDetail(fmt.Sprintf("scope.targetId is required for %s", def.Scope.Kind))
		}
	}

	if !def.ValidFrom.Before(def.ExpiryDate) {
		return model.ErrInvalidVoucherDefinition.WithDetail("validFrom must be before expiryDate")
	}

	return nil
}

// GetByCode retrieves a voucher by its case-insensitive code.
func (s *catalogService) GetByCode(ctx context.Context, code string) (*model.Voucher, error) {
	code = model.NormaliseCode(code)

	var v *model.Voucher
	err := s.runner.run(ctx, "get_voucher", func(ctx context.Context) error {
		var err error
		v, err = s.store.GetVoucherByCode(ctx, code)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Str("code", code).Msg("failed to get voucher")
		return nil, err
	}
	if v == nil {
		return nil, model.ErrVoucherNotFound
	}
	return v, nil
}

// GetByID retrieves a voucher by id.
func (s *catalogService) GetByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error) {
	var v *model.Voucher
	err := s.runner.run(ctx, "get_voucher", func(ctx context.Context) error {
		var err error
		v, err = s.store.GetVoucherByID(ctx, id)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Str("voucher_id", id.String()).Msg("failed to get voucher")
		return nil, err
	}
	if v == nil {
		return nil, model.ErrVoucherNotFound
	}
	return v, nil
}

// List retrieves vouchers newest first with pagination.
func (s *catalogService) List(ctx context.Context, limit, offset int) ([]model.Voucher, error) {
	var vouchers []model.Voucher
	err := s.runner.run(ctx, "list_vouchers", func(ctx context.Context) error {
		var err error
		vouchers, err = s.store.ListVouchers(ctx, limit, offset)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Int("limit", limit).Int("offset", offset).Msg("failed to list vouchers")
		return nil, err
	}
	return vouchers, nil
}

// ListClaimedBy retrieves the personal vouchers a user won.
func (s *catalogService) ListClaimedBy(ctx context.Context, userID string) ([]model.Voucher, error) {
	var vouchers []model.Voucher
	err := s.runner.run(ctx, "list_claimed", func(ctx context.Context) error {
		var err error
		vouchers, err = s.store.ListVouchersClaimedBy(ctx, userID)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list claimed vouchers")
		return nil, err
	}
	return vouchers, nil
}

// Deactivate switches a voucher off.
func (s *catalogService) Deactivate(ctx context.Context, id uuid.UUID) (*model.Voucher, error) {
	err := s.runner.run(ctx, "deactivate_voucher", func(ctx context.Context) error {
		return s.store.Transact(ctx, func(tx repository.VoucherTx) error {
			found, err := tx.SetVoucherActive(ctx, id, false, s.clock())
			if err != nil {
				return err
			}
			if !found {
				return model.ErrVoucherNotFound
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("voucher_id", id.String()).Msg("voucher deactivated")

	return s.GetByID(ctx, id)
}
