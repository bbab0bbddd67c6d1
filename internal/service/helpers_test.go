package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"homestay-promo/internal/model"
	"homestay-promo/internal/notify"
	"homestay-promo/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

var errStoreDown = errors.New("store unavailable")

// fakeClock is a settable service clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequenceGenerator hands out predetermined codes, then repeats the last one.
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	calls int
}

func (g *sequenceGenerator) Generate(length int, prefix string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	if i >= len(g.codes) {
		i = len(g.codes) - 1
	}
	g.calls++
	return prefix + g.codes[i], nil
}

// counterGenerator yields distinct codes forever.
type counterGenerator struct {
	mu sync.Mutex
	n  int
}

func (g *counterGenerator) Generate(length int, prefix string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%sCODE%04d", prefix, g.n), nil
}

// eventLog is a Publisher keeping every event.
type eventLog struct {
	mu     sync.Mutex
	events []notify.Event
}

func (l *eventLog) Publish(event notify.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) types() []notify.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	types := make([]notify.EventType, 0, len(l.events))
	for _, e := range l.events {
		types = append(types, e.Type)
	}
	return types
}

// conflictStore fails the first n transactions with ErrConflict.
type conflictStore struct {
	repository.VoucherStore
	mu        sync.Mutex
	remaining int
	calls     int
}

func (s *conflictStore) Transact(ctx context.Context, fn func(tx repository.VoucherTx) error) error {
	s.mu.Lock()
	s.calls++
	fail := s.remaining > 0
	if fail {
		s.remaining--
	}
	s.mu.Unlock()

	if fail {
		return repository.ErrConflict
	}
	return s.VoucherStore.Transact(ctx, fn)
}

// MockVoucherStore is a mock implementation of repository.VoucherStore.
type MockVoucherStore struct {
	mock.Mock
}

func (m *MockVoucherStore) Transact(ctx context.Context, fn func(tx repository.VoucherTx) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

func (m *MockVoucherStore) GetVoucherByCode(ctx context.Context, code string) (*model.Voucher, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Voucher), args.Error(1)
}

func (m *MockVoucherStore) GetVoucherByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Voucher), args.Error(1)
}

func (m *MockVoucherStore) ListVouchers(ctx context.Context, limit, offset int) ([]model.Voucher, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Voucher), args.Error(1)
}

func (m *MockVoucherStore) ListVouchersClaimedBy(ctx context.Context, userID string) ([]model.Voucher, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Voucher), args.Error(1)
}

func (m *MockVoucherStore) GetUsage(ctx context.Context, userID string, voucherID uuid.UUID) (*model.UserVoucherUsage, error) {
	args := m.Called(ctx, userID, voucherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserVoucherUsage), args.Error(1)
}

func (m *MockVoucherStore) GetLivePromotion(ctx context.Context) (*model.LivePromotion, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LivePromotion), args.Error(1)
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.OperationTimeout = 5 * time.Second
	return opts
}

func newTestStore() repository.VoucherStore {
	return repository.NewMemoryStore(zerolog.Nop())
}
