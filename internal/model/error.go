package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON              = "INVALID_JSON"
	ErrCodeMissingField             = "MISSING_FIELD"
	ErrCodeMissingUser              = "MISSING_USER"
	ErrCodeUnauthorised             = "UNAUTHORIZED"
	ErrCodeForbidden                = "FORBIDDEN"
	ErrCodeInternalError            = "INTERNAL_ERROR"
	ErrCodeInvalidVoucherDefinition = "INVALID_VOUCHER_DEFINITION"
	ErrCodeCodeGenerationExhausted  = "CODE_GENERATION_EXHAUSTED"
	ErrCodePromotionAlreadyLive     = "PROMOTION_ALREADY_LIVE"
	ErrCodeNoActivePromotion        = "NO_ACTIVE_PROMOTION"
	ErrCodeAlreadyClaimed           = "ALREADY_CLAIMED"
	ErrCodePromotionExpired         = "PROMOTION_EXPIRED"
	ErrCodeVoucherNotFound          = "VOUCHER_NOT_FOUND"
	ErrCodeVoucherInactive          = "VOUCHER_INACTIVE"
	ErrCodeVoucherExpired           = "VOUCHER_EXPIRED"
	ErrCodeScopeMismatch            = "SCOPE_MISMATCH"
	ErrCodeUsageLimitReached        = "USAGE_LIMIT_REACHED"
	ErrCodeAlreadyRedeemedByUser    = "ALREADY_REDEEMED_BY_USER"
	ErrCodeInvalidBooking           = "INVALID_BOOKING"
	ErrCodeConflictAborted          = "CONFLICT_ABORTED"
	ErrCodeTimeout                  = "TIMEOUT"
)

// DomainError is a business rule failure with a stable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so that detailed variants created with
// WithDetail still satisfy errors.Is against the base sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of the error with a more specific message.
func (e *DomainError) WithDetail(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message + ": " + message}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Retryable reports whether err is a transient failure the caller may retry
// without reconciling state first.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflictAborted)
}

// Common domain errors
var (
	ErrMissingUser              = NewDomainError(ErrCodeMissingUser, "User identity is required")
	ErrInvalidVoucherDefinition = NewDomainError(ErrCodeInvalidVoucherDefinition, "Invalid voucher definition")
	ErrCodeGenerationExhausted  = NewDomainError(ErrCodeCodeGenerationExhausted, "Could not generate a unique voucher code")
	ErrPromotionAlreadyLive     = NewDomainError(ErrCodePromotionAlreadyLive, "A flash promotion is already live")
	ErrNoActivePromotion        = NewDomainError(ErrCodeNoActivePromotion, "There is no live flash promotion right now")
	ErrAlreadyClaimed           = NewDomainError(ErrCodeAlreadyClaimed, "This offer was just claimed by someone else")
	ErrPromotionExpired         = NewDomainError(ErrCodePromotionExpired, "This flash promotion has expired")
	ErrVoucherNotFound          = NewDomainError(ErrCodeVoucherNotFound, "Voucher not found")
	ErrVoucherInactive          = NewDomainError(ErrCodeVoucherInactive, "This voucher is not active")
	ErrVoucherExpired           = NewDomainError(ErrCodeVoucherExpired, "This voucher has expired")
	ErrScopeMismatch            = NewDomainError(ErrCodeScopeMismatch, "This voucher does not apply to this booking")
	ErrUsageLimitReached        = NewDomainError(ErrCodeUsageLimitReached, "This voucher has been fully redeemed")
	ErrAlreadyRedeemedByUser    = NewDomainError(ErrCodeAlreadyRedeemedByUser, "You have already used this voucher")
	ErrInvalidBooking           = NewDomainError(ErrCodeInvalidBooking, "Invalid booking details")
	ErrConflictAborted          = NewDomainError(ErrCodeConflictAborted, "The request conflicted with another update, please try again")
	ErrTimeout                  = NewDomainError(ErrCodeTimeout, "The request timed out; check the voucher state before retrying")
)
