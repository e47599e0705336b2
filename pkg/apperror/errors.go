package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so callers can write
// errors.Is(err, apperror.ErrCollision()).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger (LED) ----

func ErrInvalidID(field string) *AppError {
	return New("LED_001", fmt.Sprintf("%s must be 1 to 64 bytes", field), http.StatusBadRequest)
}

func ErrRequestExpired() *AppError {
	return New("LED_002", "Payment request has expired", http.StatusUnprocessableEntity)
}

func ErrAmountMismatch() *AppError {
	return New("LED_003", "Amount does not match payment request", http.StatusUnprocessableEntity)
}

func ErrRequestMerchantMismatch() *AppError {
	return New("LED_004", "Payment request belongs to another merchant", http.StatusUnprocessableEntity)
}

func ErrRequestAssetMismatch() *AppError {
	return New("LED_005", "Asset does not match payment request", http.StatusUnprocessableEntity)
}

func ErrAssetMismatch(holding string) *AppError {
	return New("LED_006", fmt.Sprintf("%s holding carries a different asset", holding), http.StatusUnprocessableEntity)
}

func ErrOwnerMismatch(holding string) *AppError {
	return New("LED_007", fmt.Sprintf("%s holding has an unexpected owner", holding), http.StatusUnprocessableEntity)
}

func ErrInvalidFeeBps() *AppError {
	return New("LED_008", "Fee basis points must be between 0 and 10000", http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("LED_009", "Invalid amount", http.StatusBadRequest)
}

func ErrCollision(entity string) *AppError {
	return New("LED_010", fmt.Sprintf("%s already exists", entity), http.StatusConflict)
}

func ErrTransferFailure(err error) *AppError {
	msg := "Asset transfer failed"
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return Wrap("LED_011", msg, http.StatusUnprocessableEntity, err)
}

func ErrNotFound(entity string) *AppError {
	return New("LED_012", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Security & Authentication (SEC) ----

func ErrMissingSigner() *AppError {
	return New("SEC_001", "Missing or malformed signer headers", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_002", "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New("SEC_003", "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New("SEC_004", "Nonce has already been used", http.StatusForbidden)
}

func ErrUnauthorized(who string) *AppError {
	return New("SEC_005", fmt.Sprintf("Operation must be signed by the %s", who), http.StatusForbidden)
}

// ---- Operator authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbiddenRole() *AppError {
	return New("AUTH_002", "Token role is not allowed here", http.StatusForbidden)
}

func ErrInvalidCredentials() *AppError {
	return New("AUTH_003", "Invalid operator name or key", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- Request (REQ) ----

// Validation returns a REQ_001 error for malformed input.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}

func ErrPayloadTooLarge(limit int64) *AppError {
	return New("REQ_002", fmt.Sprintf("Request body exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
