package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"homestay-promo/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type usageKey struct {
	userID    string
	voucherID uuid.UUID
}

type memoryState struct {
	vouchers map[uuid.UUID]*model.Voucher
	codes    map[string]uuid.UUID
	usage    map[usageKey]*model.UserVoucherUsage
	promo    *model.LivePromotion
}

// memoryStore implements VoucherStore in process memory. Transactions are
// serialised by a single mutex and their writes are staged until fn
// returns nil, so a failed transaction leaves no trace.
type memoryStore struct {
	mu     sync.Mutex
	state  memoryState
	logger zerolog.Logger
}

// NewMemoryStore creates an empty in-memory voucher store.
func NewMemoryStore(logger zerolog.Logger) VoucherStore {
	return &memoryStore{
		state: memoryState{
			vouchers: make(map[uuid.UUID]*model.Voucher),
			codes:    make(map[string]uuid.UUID),
			usage:    make(map[usageKey]*model.UserVoucherUsage),
		},
		logger: logger.With().Str("repository", "memory").Logger(),
	}
}

// Transact runs fn while holding the store lock.
func (s *memoryStore) Transact(ctx context.Context, fn func(tx VoucherTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		base:     &s.state,
		vouchers: make(map[uuid.UUID]*model.Voucher),
		codes:    make(map[string]uuid.UUID),
		usage:    make(map[usageKey]*model.UserVoucherUsage),
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	tx.apply()
	return nil
}

// GetVoucherByCode returns nil when no voucher has the code.
func (s *memoryStore) GetVoucherByCode(ctx context.Context, code string) (*model.Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.state.codes[code]
	if !ok {
		return nil, nil
	}
	return s.state.vouchers[id].Clone(), nil
}

// GetVoucherByID returns nil when the voucher does not exist.
func (s *memoryStore) GetVoucherByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.state.vouchers[id]
	if !ok {
		return nil, nil
	}
	return v.Clone(), nil
}

// ListVouchers returns vouchers newest first.
func (s *memoryStore) ListVouchers(ctx context.Context, limit, offset int) ([]model.Voucher, error) {
	s.mu.Lock()
	all := s.sortedLocked(func(*model.Voucher) bool { return true })
	s.mu.Unlock()

	if offset >= len(all) {
		return []model.Voucher{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// ListVouchersClaimedBy returns the personal vouchers owned by a user.
func (s *memoryStore) ListVouchersClaimedBy(ctx context.Context, userID string) ([]model.Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sortedLocked(func(v *model.Voucher) bool {
		return v.ClaimedBy != nil && *v.ClaimedBy == userID
	}), nil
}

func (s *memoryStore) sortedLocked(keep func(*model.Voucher) bool) []model.Voucher {
	vouchers := make([]model.Voucher, 0, len(s.state.vouchers))
	for _, v := range s.state.vouchers {
		if keep(v) {
			vouchers = append(vouchers, *v.Clone())
		}
	}
	sort.Slice(vouchers, func(i, j int) bool {
		if !vouchers[i].CreatedAt.Equal(vouchers[j].CreatedAt) {
			return vouchers[i].CreatedAt.After(vouchers[j].CreatedAt)
		}
		return vouchers[i].Code < vouchers[j].Code
	})
	return vouchers
}

// GetUsage returns nil when the user never redeemed the voucher.
func (s *memoryStore) GetUsage(ctx context.Context, userID string, voucherID uuid.UUID) (*model.UserVoucherUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.state.usage[usageKey{userID: userID, voucherID: voucherID}]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

// GetLivePromotion returns the singleton record or nil.
func (s *memoryStore) GetLivePromotion(ctx context.Context) (*model.LivePromotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.promo == nil {
		return nil, nil
	}
	return s.state.promo.Clone(), nil
}

// memoryTx stages writes on top of the committed state.
type memoryTx struct {
	base *memoryState

	vouchers map[uuid.UUID]*model.Voucher
	codes    map[string]uuid.UUID
	usage    map[usageKey]*model.UserVoucherUsage

	promo        *model.LivePromotion
	promoTouched bool
}

func (t *memoryTx) voucher(id uuid.UUID) *model.Voucher {
	if v, ok := t.vouchers[id]; ok {
		return v
	}
	if v, ok := t.base.vouchers[id]; ok {
		staged := v.Clone()
		t.vouchers[id] = staged
		return staged
	}
	return nil
}

func (t *memoryTx) livePromotion() *model.LivePromotion {
	if t.promoTouched {
		return t.promo
	}
	return t.base.promo
}

func (t *memoryTx) CodeExists(ctx context.Context, code string) (bool, error) {
	if _, ok := t.codes[code]; ok {
		return true, nil
	}
	if _, ok := t.base.codes[code]; ok {
		return true, nil
	}
	if p := t.livePromotion(); p != nil && p.Code == code {
		return true, nil
	}
	return false, nil
}

func (t *memoryTx) LockVoucherByCode(ctx context.Context, code string) (*model.Voucher, error) {
	id, ok := t.codes[code]
	if !ok {
		id, ok = t.base.codes[code]
	}
	if !ok {
		return nil, nil
	}
	return t.voucher(id).Clone(), nil
}

func (t *memoryTx) InsertVoucher(ctx context.Context, v *model.Voucher) error {
	if _, ok := t.codes[v.Code]; ok {
		return fmt.Errorf("%w: duplicate voucher code %s", ErrConflict, v.Code)
	}
	if _, ok := t.base.codes[v.Code]; ok {
		return fmt.Errorf("%w: duplicate voucher code %s", ErrConflict, v.Code)
	}
	t.vouchers[v.ID] = v.Clone()
	t.codes[v.Code] = v.ID
	return nil
}

func (t *memoryTx) SetVoucherActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) (bool, error) {
	v := t.voucher(id)
	if v == nil {
		return false, nil
	}
	v.IsActive = active
	v.UpdatedAt = at
	return true, nil
}

func (t *memoryTx) IncrementRedeemed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	v := t.voucher(id)
	if v == nil || v.Exhausted() {
		return false, nil
	}
	v.RedeemedCount++
	v.UpdatedAt = at
	return true, nil
}

func (t *memoryTx) LockUsage(ctx context.Context, userID string, voucherID uuid.UUID) (*model.UserVoucherUsage, error) {
	key := usageKey{userID: userID, voucherID: voucherID}
	u, ok := t.usage[key]
	if !ok {
		u, ok = t.base.usage[key]
	}
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (t *memoryTx) InsertUsage(ctx context.Context, u *model.UserVoucherUsage) error {
	key := usageKey{userID: u.UserID, voucherID: u.VoucherID}
	_, staged := t.usage[key]
	_, committed := t.base.usage[key]
	if staged || committed {
		return fmt.Errorf("%w: duplicate usage for %s", ErrConflict, u.UserID)
	}
	copied := *u
	t.usage[key] = &copied
	return nil
}

func (t *memoryTx) UpdateUsage(ctx context.Context, u *model.UserVoucherUsage) error {
	copied := *u
	t.usage[usageKey{userID: u.UserID, voucherID: u.VoucherID}] = &copied
	return nil
}

func (t *memoryTx) LockLivePromotion(ctx context.Context) (*model.LivePromotion, error) {
	p := t.livePromotion()
	if p == nil {
		return nil, nil
	}
	return p.Clone(), nil
}

func (t *memoryTx) InsertLivePromotion(ctx context.Context, p *model.LivePromotion) error {
	if t.livePromotion() != nil {
		return fmt.Errorf("%w: live promotion already exists", ErrConflict)
	}
	t.promo = p.Clone()
	t.promo.ID = model.LivePromotionID
	t.promoTouched = true
	return nil
}

func (t *memoryTx) UpdateLivePromotion(ctx context.Context, p *model.LivePromotion) error {
	t.promo = p.Clone()
	t.promo.ID = model.LivePromotionID
	t.promoTouched = true
	return nil
}

func (t *memoryTx) DeleteLivePromotion(ctx context.Context) (bool, error) {
	existed := t.livePromotion() != nil
	t.promo = nil
	t.promoTouched = true
	return existed, nil
}

func (t *memoryTx) apply() {
	for id, v := range t.vouchers {
		t.base.vouchers[id] = v
	}
	for code, id := range t.codes {
		t.base.codes[code] = id
	}
	for key, u := range t.usage {
		t.base.usage[key] = u
	}
	if t.promoTouched {
		t.base.promo = t.promo
	}
}
