package handler

import (
	"errors"
	"net/http"
	"strconv"

	"homestay-promo/internal/middleware"
	"homestay-promo/internal/model"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// statusByCode maps domain error codes to HTTP statuses.
var statusByCode = map[string]int{
	model.ErrCodeMissingUser:              http.StatusUnauthorized,
	model.ErrCodeInvalidVoucherDefinition: http.StatusBadRequest,
	model.ErrCodeInvalidBooking:           http.StatusBadRequest,
	model.ErrCodeVoucherInactive:          http.StatusForbidden,
	model.ErrCodeVoucherNotFound:          http.StatusNotFound,
	model.ErrCodeNoActivePromotion:        http.StatusNotFound,
	model.ErrCodePromotionAlreadyLive:     http.StatusConflict,
	model.ErrCodeAlreadyClaimed:           http.StatusConflict,
	model.ErrCodeUsageLimitReached:        http.StatusConflict,
	model.ErrCodeAlreadyRedeemedByUser:    http.StatusConflict,
	model.ErrCodeVoucherExpired:           http.StatusGone,
	model.ErrCodePromotionExpired:         http.StatusGone,
	model.ErrCodeScopeMismatch:            http.StatusUnprocessableEntity,
	model.ErrCodeConflictAborted:          http.StatusServiceUnavailable,
	model.ErrCodeCodeGenerationExhausted:  http.StatusServiceUnavailable,
	model.ErrCodeTimeout:                  http.StatusGatewayTimeout,
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

// writeError writes a standardised error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, r, status, model.ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: chimw.GetReqID(r.Context()),
	})
}

// writeServiceError maps a service error onto its HTTP status. Anything that
// is not a domain error is logged and reported as an internal error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		status, ok := statusByCode[domainErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		if status >= http.StatusInternalServerError {
			logger.Warn().Str("code", domainErr.Code).Str("path", r.URL.Path).Msg("request failed")
		}
		writeError(w, r, status, domainErr.Code, domainErr.Message)
		return
	}

	logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("handler error")
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error")
}

// decodeJSON decodes the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body")
		return false
	}
	return true
}

// requireUser returns the caller identity, answering 401 when absent.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeMissingUser, "missing user identity")
		return "", false
	}
	return userID, true
}

// pagination parses limit and offset query parameters.
func pagination(r *http.Request) (limit, offset int, err error) {
	limit = defaultPageSize
	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 1 {
			return 0, 0, errors.New("invalid limit parameter")
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if s := r.URL.Query().Get("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil || offset < 0 {
			return 0, 0, errors.New("invalid offset parameter")
		}
	}
	return limit, offset, nil
}
