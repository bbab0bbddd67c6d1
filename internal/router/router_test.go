package router

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"homestay-promo/internal/codegen"
	"homestay-promo/internal/expiry"
	"homestay-promo/internal/handler"
	"homestay-promo/internal/middleware"
	"homestay-promo/internal/model"
	"homestay-promo/internal/notify"
	"homestay-promo/internal/repository"
	"homestay-promo/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "operator-key"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return newRouterWithStore(repository.NewMemoryStore(zerolog.Nop()))
}

func newRouterWithStore(store repository.VoucherStore) http.Handler {
	logger := zerolog.Nop()
	generator := codegen.New()
	opts := service.DefaultOptions()

	catalog := service.NewCatalogService(store, generator, nil, expiry.SystemClock, opts, logger)
	promotions := service.NewPromotionService(store, generator, nil, expiry.SystemClock, notify.Discard, opts, logger)
	redemptions := service.NewRedemptionService(store, expiry.SystemClock, notify.Discard, opts, logger)

	return New(Handlers{
		Vouchers:    handler.NewVoucherHandler(catalog, logger),
		Promotions:  handler.NewPromotionHandler(promotions, logger),
		Redemptions: handler.NewRedemptionHandler(redemptions, logger),
	}, testAPIKey, logger)
}

type call struct {
	method string
	path   string
	body   string
	userID string
	admin  bool
}

func do(r http.Handler, c call) *httptest.ResponseRecorder {
	var body io.Reader
	if c.body != "" {
		body = strings.NewReader(c.body)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set("Content-Type", "application/json")
	if c.userID != "" {
		req.Header.Set(middleware.UserIDHeader, c.userID)
	}
	if c.admin {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func voucherBody(code string, usageLimit int) string {
	now := time.Now().UTC()
	return fmt.Sprintf(
		`{"code":%q,"description":"spring sale","discountType":"percentage","discountValue":"15","scope":{"kind":"specific_property","targetId":"villa-3"},"validFrom":%q,"expiryDate":%q,"usageLimit":%d}`,
		code,
		now.Add(-time.Hour).Format(time.RFC3339),
		now.Add(24*time.Hour).Format(time.RFC3339),
		usageLimit,
	)
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, call{method: http.MethodGet, path: "/health"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_AdminRoutesRequireAPIKey(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "create voucher", method: http.MethodPost, path: "/api/admin/vouchers"},
		{name: "list vouchers", method: http.MethodGet, path: "/api/admin/vouchers"},
		{name: "launch promotion", method: http.MethodPost, path: "/api/admin/promotions/live"},
		{name: "end promotion", method: http.MethodDelete, path: "/api/admin/promotions/live"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, call{method: tt.method, path: tt.path, body: `{}`, userID: "guest-1"})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, model.ErrCodeUnauthorised, errorCode(t, w))
		})
	}
}

func TestRouter_VoucherRedemptionFlow(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, call{method: http.MethodPost, path: "/api/admin/vouchers", body: voucherBody("spring24", 2), admin: true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created model.Voucher
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "SPRING24", created.Code)

	w = do(r, call{method: http.MethodPost, path: "/api/admin/vouchers", body: voucherBody("SPRING24", 2), admin: true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, model.ErrCodeInvalidVoucherDefinition, errorCode(t, w))

	w = do(r, call{method: http.MethodGet, path: "/api/vouchers/spring24"})
	assert.Equal(t, http.StatusOK, w.Code)

	booking := `{"propertyId":"villa-3","roomId":"room-1","subtotal":"200.00"}`

	w = do(r, call{method: http.MethodPost, path: "/api/vouchers/SPRING24/quote", body: booking, userID: "guest-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, call{method: http.MethodPost, path: "/api/vouchers/SPRING24/redeem", body: booking, userID: "guest-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result model.RedemptionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, decimal.RequireFromString("30").Equal(result.DiscountAmount))
	assert.True(t, decimal.RequireFromString("170").Equal(result.FinalTotal))

	w = do(r, call{method: http.MethodPost, path: "/api/vouchers/SPRING24/redeem", body: booking, userID: "guest-1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, model.ErrCodeAlreadyRedeemedByUser, errorCode(t, w))

	w = do(r, call{method: http.MethodPost, path: "/api/vouchers/SPRING24/redeem",
		body: `{"propertyId":"villa-9","subtotal":"200.00"}`, userID: "guest-2"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, model.ErrCodeScopeMismatch, errorCode(t, w))

	w = do(r, call{method: http.MethodPost, path: "/api/vouchers/SPRING24/redeem", body: booking, userID: "guest-2"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, call{method: http.MethodPost, path: "/api/vouchers/SPRING24/redeem", body: booking, userID: "guest-3"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, model.ErrCodeUsageLimitReached, errorCode(t, w))

	w = do(r, call{method: http.MethodGet, path: "/api/vouchers/SPRING24/usage", userID: "guest-1"})
	require.Equal(t, http.StatusOK, w.Code)
	var usage model.UserVoucherUsage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &usage))
	assert.Equal(t, 1, usage.UsageCount)

	w = do(r, call{method: http.MethodPost, path: "/api/admin/vouchers/" + created.ID.String() + "/deactivate", admin: true})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, call{method: http.MethodPost, path: "/api/vouchers/SPRING24/quote", body: booking, userID: "guest-4"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, model.ErrCodeVoucherInactive, errorCode(t, w))

	w = do(r, call{method: http.MethodGet, path: "/api/admin/vouchers?limit=10", admin: true})
	require.Equal(t, http.StatusOK, w.Code)
	var page model.VoucherList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Vouchers, 1)
}

func TestRouter_FlashPromotionSingleWinner(t *testing.T) {
	runFlashPromotion(t, newTestRouter(t), 30)
}

func runFlashPromotion(t *testing.T, r http.Handler, guests int) {
	t.Helper()

	w := do(r, call{method: http.MethodGet, path: "/api/promotions/live"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	launch := `{"discountPercent":"40","durationMinutes":15,"description":"midnight deal"}`
	w = do(r, call{method: http.MethodPost, path: "/api/admin/promotions/live", body: launch, admin: true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(r, call{method: http.MethodPost, path: "/api/admin/promotions/live", body: launch, admin: true})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, model.ErrCodePromotionAlreadyLive, errorCode(t, w))

	w = do(r, call{method: http.MethodGet, path: "/api/promotions/live"})
	require.Equal(t, http.StatusOK, w.Code)
	var view model.PromotionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Greater(t, view.RemainingSeconds, int64(0))

	w = do(r, call{method: http.MethodPost, path: "/api/promotions/live/claim"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = map[int]int{}
		winner   string
	)
	for i := 0; i < guests; i++ {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			w := do(r, call{method: http.MethodPost, path: "/api/promotions/live/claim", userID: userID})
			mu.Lock()
			defer mu.Unlock()
			statuses[w.Code]++
			if w.Code == http.StatusCreated {
				winner = userID
			}
		}(fmt.Sprintf("guest-%d", i))
	}
	wg.Wait()

	assert.Equal(t, 1, statuses[http.StatusCreated])
	assert.Equal(t, guests-1, statuses[http.StatusConflict])

	w = do(r, call{method: http.MethodGet, path: "/api/promotions/live"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, call{method: http.MethodGet, path: "/api/vouchers/mine", userID: winner})
	require.Equal(t, http.StatusOK, w.Code)
	var mine []model.Voucher
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].ClaimedBy)
	assert.Equal(t, winner, *mine[0].ClaimedBy)

	w = do(r, call{method: http.MethodPost, path: "/api/admin/promotions/live", body: launch, admin: true})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(r, call{method: http.MethodDelete, path: "/api/admin/promotions/live", admin: true})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, call{method: http.MethodPost, path: "/api/promotions/live/claim", userID: "guest-late"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, model.ErrCodeNoActivePromotion, errorCode(t, w))
}
