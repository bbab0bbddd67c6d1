package repository

import (
	"context"
	"errors"
	"time"

	"homestay-promo/internal/model"

	"github.com/google/uuid"
)

// ErrConflict reports that a transaction was aborted because of a concurrent
// conflicting write. The whole transaction may be retried.
var ErrConflict = errors.New("transaction conflict")

// VoucherStore is the transactional persistence for vouchers, per-user usage
// and the live flash promotion. Reads outside Transact observe committed
// state only; all writes happen inside Transact.
type VoucherStore interface {
	// Transact runs fn atomically. If fn returns an error nothing it wrote is
	// kept and the error is returned unchanged. Commit-time conflicts are
	// reported as ErrConflict.
	Transact(ctx context.Context, fn func(tx VoucherTx) error) error

	// GetVoucherByCode returns nil when no voucher has the code.
	GetVoucherByCode(ctx context.Context, code string) (*model.Voucher, error)

	// GetVoucherByID returns nil when the voucher does not exist.
	GetVoucherByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error)

	// ListVouchers returns vouchers newest first.
	ListVouchers(ctx context.Context, limit, offset int) ([]model.Voucher, error)

	// ListVouchersClaimedBy returns the personal vouchers owned by a user.
	ListVouchersClaimedBy(ctx context.Context, userID string) ([]model.Voucher, error)

	// GetUsage returns nil when the user never redeemed the voucher.
	GetUsage(ctx context.Context, userID string, voucherID uuid.UUID) (*model.UserVoucherUsage, error)

	// GetLivePromotion returns the singleton record, claimed or not, or nil.
	GetLivePromotion(ctx context.Context) (*model.LivePromotion, error)
}

// VoucherTx is the view of the store inside a transaction. Lock* reads hold
// the record until the transaction ends.
type VoucherTx interface {
	// CodeExists checks vouchers and the live promotion for a code.
	CodeExists(ctx context.Context, code string) (bool, error)

	// LockVoucherByCode returns nil when no voucher has the code.
	LockVoucherByCode(ctx context.Context, code string) (*model.Voucher, error)

	// InsertVoucher stores a new voucher. A duplicate code is ErrConflict.
	InsertVoucher(ctx context.Context, v *model.Voucher) error

	// SetVoucherActive flips the kill-switch. It reports false when the
	// voucher does not exist.
	SetVoucherActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) (bool, error)

	// IncrementRedeemed adds one redemption only while the usage limit
	// allows it. It reports false when the limit was already reached.
	IncrementRedeemed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// LockUsage returns nil when the user never redeemed the voucher.
	LockUsage(ctx context.Context, userID string, voucherID uuid.UUID) (*model.UserVoucherUsage, error)

	// InsertUsage creates a usage record. A concurrent insert for the same
	// pair is ErrConflict.
	InsertUsage(ctx context.Context, u *model.UserVoucherUsage) error

	// UpdateUsage overwrites the counters of an existing usage record.
	UpdateUsage(ctx context.Context, u *model.UserVoucherUsage) error

	// LockLivePromotion returns the singleton or nil.
	LockLivePromotion(ctx context.Context) (*model.LivePromotion, error)

	// InsertLivePromotion creates the singleton. If another transaction
	// created it concurrently the result is ErrConflict.
	InsertLivePromotion(ctx context.Context, p *model.LivePromotion) error

	// UpdateLivePromotion overwrites the locked singleton.
	UpdateLivePromotion(ctx context.Context, p *model.LivePromotion) error

	// DeleteLivePromotion removes the singleton, reporting whether it existed.
	DeleteLivePromotion(ctx context.Context) (bool, error)
}
