package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound          = errors.New("resource not found")
	ErrBadRequest        = errors.New("bad request")
	ErrConflict          = errors.New("resource conflict")
	ErrInternal          = errors.New("internal server error")
	ErrValidation        = errors.New("validation error")
	ErrInvalidCode       = errors.New("invalid identification code")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrExpiryOrder       = errors.New("expiry order violation")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// Duplicate reports an attempt to register a resource that already exists.
func Duplicate(resource string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "DUPLICATE",
		Message:    fmt.Sprintf("%s already registered", resource),
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// InvalidCode reports a scanned code that does not match any known grammar.
// Always recoverable: the caller decides whether to prompt for a re-scan.
func InvalidCode(message string) *AppError {
	return &AppError{
		Err:        ErrInvalidCode,
		Code:       "INVALID_CODE",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// InsufficientStock reports an outbound that exceeds the available lot stock.
// The mutation is rejected outright; no partial fulfilment.
func InsufficientStock(lotNumber string, available, requested int) *AppError {
	return &AppError{
		Err:        ErrInsufficientStock,
		Code:       "INSUFFICIENT_STOCK",
		Message:    fmt.Sprintf("lot %s has %d in stock, requested %d", lotNumber, available, requested),
		StatusCode: http.StatusConflict,
	}
}

// ExpiryOrderViolation reports an outbound against a lot that is not the
// nearest-expiry lot of its product. The caller must re-invoke with force
// to proceed anyway.
func ExpiryOrderViolation(lotNumber, nearestLotNumber string) *AppError {
	return &AppError{
		Err:        ErrExpiryOrder,
		Code:       "EXPIRY_ORDER_VIOLATION",
		Message:    fmt.Sprintf("lot %s is not the nearest-expiry lot (use %s first, or force)", lotNumber, nearestLotNumber),
		StatusCode: http.StatusConflict,
		Details: map[string]string{
			"nearest_lot": nearestLotNumber,
		},
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
