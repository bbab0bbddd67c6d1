package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homestay-promo/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PostgreSQL error codes treated as transaction conflicts.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

const voucherColumns = `
	id, code, description, discount_type, discount_value, scope_kind, scope_target,
	valid_from, expiry_date, usage_limit, redeemed_count, per_user_limit, is_active,
	claimed_by, max_discount_cap, created_at, updated_at`

const promotionColumns = `
	id, code, description, discount_percent, max_discount_cap, launched_at,
	duration_minutes, expiry_date, claimed_by, claimed_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// postgresStore implements VoucherStore on PostgreSQL. Invariants are held
// by row locks (SELECT ... FOR UPDATE) and conditional updates inside a
// READ COMMITTED transaction.
type postgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore creates a new PostgreSQL-backed voucher store.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) VoucherStore {
	return &postgresStore{
		pool:   pool,
		logger: logger.With().Str("repository", "voucher").Logger(),
	}
}

// Transact runs fn inside a database transaction.
func (s *postgresStore) Transact(ctx context.Context, fn func(tx VoucherTx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = fn(&postgresTx{tx: tx, logger: s.logger}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// GetVoucherByCode returns nil when no voucher has the code.
func (s *postgresStore) GetVoucherByCode(ctx context.Context, code string) (*model.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE code = $1`
	return s.getVoucher(ctx, query, code)
}

// GetVoucherByID returns nil when the voucher does not exist.
func (s *postgresStore) GetVoucherByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1`
	return s.getVoucher(ctx, query, id)
}

func (s *postgresStore) getVoucher(ctx context.Context, query string, arg any) (*model.Voucher, error) {
	v, err := scanVoucher(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		s.logger.Error().Err(err).Interface("key", arg).Msg("failed to query voucher")
		return nil, fmt.Errorf("failed to query voucher: %w", err)
	}
	return v, nil
}

// ListVouchers returns vouchers newest first.
func (s *postgresStore) ListVouchers(ctx context.Context, limit, offset int) ([]model.Voucher, error) {
	query := `SELECT ` + voucherColumns + `
		FROM vouchers
		ORDER BY created_at DESC, code
		LIMIT $1 OFFSET $2`
	return s.listVouchers(ctx, query, limit, offset)
}

// ListVouchersClaimedBy returns the personal vouchers owned by a user.
func (s *postgresStore) ListVouchersClaimedBy(ctx context.Context, userID string) ([]model.Voucher, error) {
	query := `SELECT ` + voucherColumns + `
		FROM vouchers
		WHERE claimed_by = $1
		ORDER BY created_at DESC, code`
	return s.listVouchers(ctx, query, userID)
}

func (s *postgresStore) listVouchers(ctx context.Context, query string, args ...any) ([]model.Voucher, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to query vouchers")
		return nil, fmt.Errorf("failed to query vouchers: %w", err)
	}
	defer rows.Close()

	vouchers := make([]model.Voucher, 0)
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to scan voucher row")
			return nil, fmt.Errorf("failed to scan voucher: %w", err)
		}
		vouchers = append(vouchers, *v)
	}

	if err := rows.Err(); err != nil {
		s.logger.Error().Err(err).Msg("error iterating voucher rows")
		return nil, fmt.Errorf("error iterating vouchers: %w", err)
	}

	return vouchers, nil
}

// GetUsage returns nil when the user never redeemed the voucher.
func (s *postgresStore) GetUsage(ctx context.Context, userID string, voucherID uuid.UUID) (*model.UserVoucherUsage, error) {
	return getUsage(ctx, s.pool, userID, voucherID, false)
}

// GetLivePromotion returns the singleton record or nil.
func (s *postgresStore) GetLivePromotion(ctx context.Context) (*model.LivePromotion, error) {
	return getLivePromotion(ctx, s.pool, false)
}

// postgresTx implements VoucherTx on a pgx transaction.
type postgresTx struct {
	tx     pgx.Tx
	logger zerolog.Logger
}

// CodeExists checks vouchers and the live promotion for a code.
func (t *postgresTx) CodeExists(ctx context.Context, code string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM vouchers WHERE code = $1)
		    OR EXISTS (SELECT 1 FROM live_promotions WHERE code = $1)
	`

	var exists bool
	if err := t.tx.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, classify(fmt.Errorf("failed to check code: %w", err))
	}
	return exists, nil
}

// LockVoucherByCode returns nil when no voucher has the code.
func (t *postgresTx) LockVoucherByCode(ctx context.Context, code string) (*model.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE code = $1 FOR UPDATE`

	v, err := scanVoucher(t.tx.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(fmt.Errorf("failed to lock voucher: %w", err))
	}
	return v, nil
}

// InsertVoucher stores a new voucher.
func (t *postgresTx) InsertVoucher(ctx context.Context, v *model.Voucher) error {
	query := `
		INSERT INTO vouchers (` + voucherColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := t.tx.Exec(ctx, query,
		v.ID, v.Code, v.Description, string(v.DiscountType), v.DiscountValue,
		string(v.Scope.Kind), v.Scope.TargetID, v.ValidFrom, v.ExpiryDate,
		v.UsageLimit, v.RedeemedCount, v.PerUserLimit, v.IsActive,
		v.ClaimedBy, nullDecimal(v.MaxDiscountCap), v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		t.logger.Error().Err(err).Str("code", v.Code).Msg("failed to insert voucher")
		return classify(fmt.Errorf("failed to insert voucher: %w", err))
	}

	t.logger.Debug().Str("voucher_id", v.ID.String()).Str("code", v.Code).Msg("voucher inserted")
	return nil
}

// SetVoucherActive flips the kill-switch.
func (t *postgresTx) SetVoucherActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE vouchers SET is_active = $2, updated_at = $3 WHERE id = $1`,
		id, active, at,
	)
	if err != nil {
		return false, classify(fmt.Errorf("failed to update voucher state: %w", err))
	}
	return tag.RowsAffected() == 1, nil
}

// IncrementRedeemed adds one redemption only while the usage limit allows it.
func (t *postgresTx) IncrementRedeemed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE vouchers
		SET redeemed_count = redeemed_count + 1, updated_at = $2
		WHERE id = $1 AND (usage_limit = 0 OR redeemed_count < usage_limit)
	`

	tag, err := t.tx.Exec(ctx, query, id, at)
	if err != nil {
		return false, classify(fmt.Errorf("failed to increment redemptions: %w", err))
	}
	return tag.RowsAffected() == 1, nil
}

// LockUsage returns nil when the user never redeemed the voucher.
func (t *postgresTx) LockUsage(ctx context.Context, userID string, voucherID uuid.UUID) (*model.UserVoucherUsage, error) {
	return getUsage(ctx, t.tx, userID, voucherID, true)
}

// InsertUsage creates a usage record.
func (t *postgresTx) InsertUsage(ctx context.Context, u *model.UserVoucherUsage) error {
	query := `
		INSERT INTO user_voucher_usage (user_id, voucher_id, usage_count, last_used_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := t.tx.Exec(ctx, query, u.UserID, u.VoucherID, u.UsageCount, u.LastUsedAt); err != nil {
		return classify(fmt.Errorf("failed to insert usage: %w", err))
	}
	return nil
}

// UpdateUsage overwrites the counters of an existing usage record.
func (t *postgresTx) UpdateUsage(ctx context.Context, u *model.UserVoucherUsage) error {
	query := `
		UPDATE user_voucher_usage
		SET usage_count = $3, last_used_at = $4
		WHERE user_id = $1 AND voucher_id = $2
	`

	if _, err := t.tx.Exec(ctx, query, u.UserID, u.VoucherID, u.UsageCount, u.LastUsedAt); err != nil {
		return classify(fmt.Errorf("failed to update usage: %w", err))
	}
	return nil
}

// LockLivePromotion returns the singleton or nil.
func (t *postgresTx) LockLivePromotion(ctx context.Context) (*model.LivePromotion, error) {
	return getLivePromotion(ctx, t.tx, true)
}

// InsertLivePromotion creates the singleton.
func (t *postgresTx) InsertLivePromotion(ctx context.Context, p *model.LivePromotion) error {
	query := `
		INSERT INTO live_promotions (` + promotionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := t.tx.Exec(ctx, query,
		model.LivePromotionID, p.Code, p.Description, p.DiscountPercent, nullDecimal(p.MaxDiscountCap),
		p.LaunchedAt, p.DurationMinutes, p.ExpiryDate, p.ClaimedBy, p.ClaimedAt,
	)
	if err != nil {
		return classify(fmt.Errorf("failed to insert live promotion: %w", err))
	}
	return nil
}

// UpdateLivePromotion overwrites the locked singleton.
func (t *postgresTx) UpdateLivePromotion(ctx context.Context, p *model.LivePromotion) error {
	query := `
		UPDATE live_promotions
		SET code = $2, description = $3, discount_percent = $4, max_discount_cap = $5,
		    launched_at = $6, duration_minutes = $7, expiry_date = $8, claimed_by = $9, claimed_at = $10
		WHERE id = $1
	`

	_, err := t.tx.Exec(ctx, query,
		model.LivePromotionID, p.Code, p.Description, p.DiscountPercent, nullDecimal(p.MaxDiscountCap),
		p.LaunchedAt, p.DurationMinutes, p.ExpiryDate, p.ClaimedBy, p.ClaimedAt,
	)
	if err != nil {
		return classify(fmt.Errorf("failed to update live promotion: %w", err))
	}
	return nil
}

// DeleteLivePromotion removes the singleton.
func (t *postgresTx) DeleteLivePromotion(ctx context.Context) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM live_promotions WHERE id = $1`, model.LivePromotionID)
	if err != nil {
		return false, classify(fmt.Errorf("failed to delete live promotion: %w", err))
	}
	return tag.RowsAffected() > 0, nil
}

func getUsage(ctx context.Context, q querier, userID string, voucherID uuid.UUID, lock bool) (*model.UserVoucherUsage, error) {
	query := `
		SELECT user_id, voucher_id, usage_count, last_used_at
		FROM user_voucher_usage
		WHERE user_id = $1 AND voucher_id = $2
	`
	if lock {
		query += ` FOR UPDATE`
	}

	var u model.UserVoucherUsage
	err := q.QueryRow(ctx, query, userID, voucherID).Scan(&u.UserID, &u.VoucherID, &u.UsageCount, &u.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(fmt.Errorf("failed to query usage: %w", err))
	}
	u.IsUsed = u.UsageCount > 0
	return &u, nil
}

func getLivePromotion(ctx context.Context, q querier, lock bool) (*model.LivePromotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM live_promotions WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var (
		p       model.LivePromotion
		capping decimal.NullDecimal
	)
	err := q.QueryRow(ctx, query, model.LivePromotionID).Scan(
		&p.ID,
		&p.Code,
		&p.Description,
		&p.DiscountPercent,
		&capping,
		&p.LaunchedAt,
		&p.DurationMinutes,
		&p.ExpiryDate,
		&p.ClaimedBy,
		&p.ClaimedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(fmt.Errorf("failed to query live promotion: %w", err))
	}
	p.MaxDiscountCap = fromNullDecimal(capping)
	return &p, nil
}

func scanVoucher(row pgx.Row) (*model.Voucher, error) {
	var (
		v            model.Voucher
		discountType string
		scopeKind    string
		capping      decimal.NullDecimal
	)
	err := row.Scan(
		&v.ID,
		&v.Code,
		&v.Description,
		&discountType,
		&v.DiscountValue,
		&scopeKind,
		&v.Scope.TargetID,
		&v.ValidFrom,
		&v.ExpiryDate,
		&v.UsageLimit,
		&v.RedeemedCount,
		&v.PerUserLimit,
		&v.IsActive,
		&v.ClaimedBy,
		&capping,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.DiscountType = model.DiscountType(discountType)
	v.Scope.Kind = model.ScopeKind(scopeKind)
	v.MaxDiscountCap = fromNullDecimal(capping)
	return &v, nil
}

// classify maps PostgreSQL conflict errors onto ErrConflict.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, err.Error())
		}
	}
	return err
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func fromNullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	value := d.Decimal
	return &value
}
