package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeInvalidState     ErrorCode = "INVALID_STATE"
	ErrCodeAlreadyProcessed ErrorCode = "ALREADY_PROCESSED"
	ErrCodeExceedsBalance   ErrorCode = "EXCEEDS_BALANCE"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// codeToHTTPStatus maps the taxonomy onto HTTP. Malformed money and
// over-balance repayments are unprocessable entities; lifecycle violations
// are bad requests; idempotency violations are conflicts.
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidation, ErrCodeExceedsBalance:
		return http.StatusUnprocessableEntity
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeInvalidState:
		return http.StatusBadRequest
	case ErrCodeAlreadyProcessed:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool { return Is(err, ErrCodeNotFound) }

func IsValidation(err error) bool { return Is(err, ErrCodeValidation) }

func IsAlreadyProcessed(err error) bool { return Is(err, ErrCodeAlreadyProcessed) }

// AsAppError extracts the AppError from a chain, or wraps unknown errors as
// internal so handlers never leak raw database messages.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrCodeInternal, "internal server error")
}

var (
	ErrErrandNotFound      = New(ErrCodeNotFound, "errand not found")
	ErrPaymentNotFound     = New(ErrCodeNotFound, "payment transaction not found")
	ErrLedgerNotFound      = New(ErrCodeNotFound, "runner ledger not found")
	ErrRepaymentNotFound   = New(ErrCodeNotFound, "balance payment not found")
	ErrUserNotFound        = New(ErrCodeNotFound, "user not found")
	ErrUnauthorized        = New(ErrCodeUnauthorized, "authorization required")
	ErrForbidden           = New(ErrCodeForbidden, "insufficient permissions")
	ErrInvalidCredentials  = New(ErrCodeUnauthorized, "invalid credentials")
	ErrNotAssigned         = New(ErrCodeForbidden, "errand is not assigned to this runner")
	ErrAlreadyProcessed    = New(ErrCodeAlreadyProcessed, "transaction already processed")
	ErrExceedsBalance      = New(ErrCodeExceedsBalance, "payment amount exceeds outstanding balance")
	ErrRepaymentInFlight   = New(ErrCodeInvalidState, "a pending balance payment already exists")
	ErrNoOutstandingDebt   = New(ErrCodeInvalidState, "no outstanding balance to repay")
	ErrErrandNotAccepted   = New(ErrCodeInvalidState, "errand is not in an accepted state")
	ErrRepaymentNotPending = New(ErrCodeInvalidState, "balance payment is not pending")
)
