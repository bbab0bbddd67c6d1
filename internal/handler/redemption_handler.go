package handler

import (
	"context"
	"net/http"

	"homestay-promo/internal/model"
	"homestay-promo/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RedemptionHandler handles checkout-time voucher requests.
type RedemptionHandler struct {
	service service.RedemptionService
	logger  zerolog.Logger
}

// NewRedemptionHandler creates a new redemption handler.
func NewRedemptionHandler(service service.RedemptionService, logger zerolog.Logger) *RedemptionHandler {
	return &RedemptionHandler{
		service: service,
		logger:  logger.With().Str("handler", "redemption").Logger(),
	}
}

// Redeem handles POST /api/vouchers/{code}/redeem.
func (h *RedemptionHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.service.Redeem)
}

// Quote handles POST /api/vouchers/{code}/quote.
func (h *RedemptionHandler) Quote(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.service.Quote)
}

type applyFunc func(ctx context.Context, code, userID string, booking *model.BookingContext) (*model.RedemptionResult, error)

func (h *RedemptionHandler) apply(w http.ResponseWriter, r *http.Request, fn applyFunc) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var booking model.BookingContext
	if !decodeJSON(w, r, &booking) {
		return
	}

	result, err := fn(r.Context(), chi.URLParam(r, "code"), userID, &booking)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// Usage handles GET /api/vouchers/{code}/usage.
func (h *RedemptionHandler) Usage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	usage, err := h.service.Usage(r.Context(), chi.URLParam(r, "code"), userID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, r, http.StatusOK, usage)
}
