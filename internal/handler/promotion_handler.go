package handler

import (
	"net/http"

	"homestay-promo/internal/model"
	"homestay-promo/internal/service"

	"github.com/rs/zerolog"
)

// PromotionHandler handles flash promotion requests.
type PromotionHandler struct {
	service service.PromotionService
	logger  zerolog.Logger
}

// NewPromotionHandler creates a new promotion handler.
func NewPromotionHandler(service service.PromotionService, logger zerolog.Logger) *PromotionHandler {
	return &PromotionHandler{
		service: service,
		logger:  logger.With().Str("handler", "promotion").Logger(),
	}
}

// Launch handles POST /api/admin/promotions/live.
func (h *PromotionHandler) Launch(w http.ResponseWriter, r *http.Request) {
	var req model.LaunchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.Launch(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, r, http.StatusCreated, p)
}

// End handles DELETE /api/admin/promotions/live.
func (h *PromotionHandler) End(w http.ResponseWriter, r *http.Request) {
	if err := h.service.End(r.Context()); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Current handles GET /api/promotions/live.
func (h *PromotionHandler) Current(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Current(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, r, http.StatusOK, view)
}

// Claim handles POST /api/promotions/live/claim.
func (h *PromotionHandler) Claim(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	v, err := h.service.Claim(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, r, http.StatusCreated, v)
}
