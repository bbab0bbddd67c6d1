package handler

import (
	"net/http"

	"homestay-promo/internal/model"
	"homestay-promo/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// VoucherHandler handles voucher catalogue requests.
type VoucherHandler struct {
	service service.CatalogService
	logger  zerolog.Logger
}

// NewVoucherHandler creates a new voucher handler.
func NewVoucherHandler(service service.CatalogService, logger zerolog.Logger) *VoucherHandler {
	return &VoucherHandler{
		service: service,
		logger:  logger.With().Str("handler", "voucher").Logger(),
	}
}

// Create handles POST /api/admin/vouchers.
func (h *VoucherHandler) Create(w http.ResponseWriter, r *http.Request) {
	var def model.VoucherDefinition
	if !decodeJSON(w, r, &def) {
		return
	}

	v, err := h.service.Create(r.Context(), &def)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, r, http.StatusCreated, v)
}

// List handles GET /api/admin/vouchers.
func (h *VoucherHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, err.Error())
		return
	}

	vouchers, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, r, http.StatusOK, model.VoucherList{Vouchers: vouchers, Limit: limit, Offset: offset})
}

// GetByID handles GET /api/admin/vouchers/{id}.
func (h *VoucherHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.voucherID(w, r)
	if !ok {
		return
	}

	v, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, r, http.StatusOK, v)
}

// Deactivate handles POST /api/admin/vouchers/{id}/deactivate.
func (h *VoucherHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.voucherID(w, r)
	if !ok {
		return
	}

	v, err := h.service.Deactivate(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, r, http.StatusOK, v)
}

// GetByCode handles GET /api/vouchers/{code}.
func (h *VoucherHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, r, http.StatusOK, v)
}

// ListMine handles GET /api/vouchers/mine.
func (h *VoucherHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	vouchers, err := h.service.ListClaimedBy(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, r, http.StatusOK, vouchers)
}

func (h *VoucherHandler) voucherID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "invalid voucher ID format")
		return uuid.Nil, false
	}
	return id, true
}
