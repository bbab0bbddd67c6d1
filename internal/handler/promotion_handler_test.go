package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"homestay-promo/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPromotionService is a mock implementation of PromotionService.
type MockPromotionService struct {
	mock.Mock
}

func (m *MockPromotionService) Launch(ctx context.Context, req *model.LaunchRequest) (*model.LivePromotion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LivePromotion), args.Error(1)
}

func (m *MockPromotionService) Claim(ctx context.Context, userID string) (*model.Voucher, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Voucher), args.Error(1)
}

func (m *MockPromotionService) End(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPromotionService) Current(ctx context.Context) (*model.PromotionView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PromotionView), args.Error(1)
}

func samplePromotion() *model.LivePromotion {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.LivePromotion{
		ID:              model.LivePromotionID,
		Code:            "FLASH234",
		Description:     "midnight deal",
		DiscountPercent: decimal.NewFromInt(40),
		LaunchedAt:      now,
		DurationMinutes: 15,
		ExpiryDate:      now.Add(15 * time.Minute),
	}
}

func TestPromotionHandler_Launch(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockReturn     *model.LivePromotion
		mockError      error
		expectService  bool
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Launched",
			body:           `{"discountPercent":"40","durationMinutes":15,"description":"midnight deal"}`,
			mockReturn:     samplePromotion(),
			expectService:  true,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Already live",
			body:           `{"discountPercent":"40","durationMinutes":15}`,
			mockError:      model.ErrPromotionAlreadyLive,
			expectService:  true,
			expectedStatus: http.StatusConflict,
			expectedCode:   model.ErrCodePromotionAlreadyLive,
		},
		{
			name:           "Malformed JSON",
			body:           `not json`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeInvalidJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockPromotionService)
			if tt.expectService {
				mockService.On("Launch", mock.Anything, mock.AnythingOfType("*model.LaunchRequest")).
					Return(tt.mockReturn, tt.mockError)
			}
			h := NewPromotionHandler(mockService, zerolog.Nop())

			req := httptest.NewRequest(http.MethodPost, "/api/admin/promotions/live", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.Launch(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Error)
			} else {
				var got model.LivePromotion
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, "FLASH234", got.Code)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestPromotionHandler_End(t *testing.T) {
	mockService := new(MockPromotionService)
	mockService.On("End", mock.Anything).Return(nil)
	h := NewPromotionHandler(mockService, zerolog.Nop())

	w := httptest.NewRecorder()
	h.End(w, httptest.NewRequest(http.MethodDelete, "/api/admin/promotions/live", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	mockService.AssertExpectations(t)
}

func TestPromotionHandler_Current(t *testing.T) {
	t.Run("live", func(t *testing.T) {
		view := &model.PromotionView{LivePromotion: *samplePromotion(), RemainingSeconds: 600}
		mockService := new(MockPromotionService)
		mockService.On("Current", mock.Anything).Return(view, nil)
		h := NewPromotionHandler(mockService, zerolog.Nop())

		w := httptest.NewRecorder()
		h.Current(w, httptest.NewRequest(http.MethodGet, "/api/promotions/live", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "FLASH234", body["code"])
		assert.Equal(t, float64(600), body["remainingSeconds"])
		assert.NotContains(t, body, "claimedBy")
	})

	t.Run("none", func(t *testing.T) {
		mockService := new(MockPromotionService)
		mockService.On("Current", mock.Anything).Return(nil, model.ErrNoActivePromotion)
		h := NewPromotionHandler(mockService, zerolog.Nop())

		w := httptest.NewRecorder()
		h.Current(w, httptest.NewRequest(http.MethodGet, "/api/promotions/live", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, model.ErrCodeNoActivePromotion, decodeError(t, w).Error)
	})
}

func TestPromotionHandler_Claim(t *testing.T) {
	tests := []struct {
		name           string
		userID         string
		mockReturn     *model.Voucher
		mockError      error
		expectService  bool
		expectedStatus int
		expectedCode   string
	}{
		{name: "winner", userID: "guest-1", mockReturn: sampleVoucher("FLASH234"), expectService: true, expectedStatus: http.StatusCreated},
		{name: "loser", userID: "guest-2", mockError: model.ErrAlreadyClaimed, expectService: true, expectedStatus: http.StatusConflict, expectedCode: model.ErrCodeAlreadyClaimed},
		{name: "expired", userID: "guest-3", mockError: model.ErrPromotionExpired, expectService: true, expectedStatus: http.StatusGone, expectedCode: model.ErrCodePromotionExpired},
		{name: "contention", userID: "guest-4", mockError: model.ErrConflictAborted, expectService: true, expectedStatus: http.StatusServiceUnavailable, expectedCode: model.ErrCodeConflictAborted},
		{name: "anonymous", userID: "", expectedStatus: http.StatusUnauthorized, expectedCode: model.ErrCodeMissingUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockPromotionService)
			if tt.expectService {
				mockService.On("Claim", mock.Anything, tt.userID).Return(tt.mockReturn, tt.mockError)
			}
			h := NewPromotionHandler(mockService, zerolog.Nop())

			req := httptest.NewRequest(http.MethodPost, "/api/promotions/live/claim", nil)
			if tt.userID != "" {
				req = withUser(req, tt.userID)
			}
			w := httptest.NewRecorder()

			h.Claim(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Error)
			}
			mockService.AssertExpectations(t)
		})
	}
}
