package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrBadRequest        = errors.New("bad request")
	ErrInternal          = errors.New("internal error")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrUnknownFeature    = errors.New("unknown feature")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrExtraction        = errors.New("extraction failed")
	ErrStorage           = errors.New("storage failed")
)

// AppError represents an application error with HTTP status and error code.
// The status code is advisory for the HTTP layer consuming the core.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code string, message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Common error constructors.

// NotFound creates a not found error.
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

// BadRequest creates a bad request error.
func BadRequest(message string) *AppError {
	return &AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        ErrBadRequest,
	}
}

// Internal creates an internal error.
func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// QuotaExceeded creates a quota exceeded error.
func QuotaExceeded(message string) *AppError {
	return &AppError{
		Code:       "QUOTA_EXCEEDED",
		Message:    message,
		StatusCode: http.StatusForbidden,
		Err:        ErrQuotaExceeded,
	}
}

// UnknownFeature creates an unknown feature error.
func UnknownFeature(feature string) *AppError {
	return &AppError{
		Code:       "UNKNOWN_FEATURE",
		Message:    fmt.Sprintf("unknown feature %q", feature),
		StatusCode: http.StatusBadRequest,
		Err:        ErrUnknownFeature,
	}
}

// StoreUnavailable creates a store unavailable error. Quota decisions fail
// closed on this condition; callers may retry.
func StoreUnavailable(message string, err error) *AppError {
	return &AppError{
		Code:       "STORE_UNAVAILABLE",
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Err:        errors.Join(ErrStoreUnavailable, err),
	}
}

// UnsupportedFormat creates an unsupported format error.
func UnsupportedFormat(message string) *AppError {
	return &AppError{
		Code:       "UNSUPPORTED_FORMAT",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        ErrUnsupportedFormat,
	}
}

// ExtractionError creates an extraction error.
func ExtractionError(message string, err error) *AppError {
	return &AppError{
		Code:       "EXTRACTION_ERROR",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Err:        errors.Join(ErrExtraction, err),
	}
}

// StorageError creates a blob storage error.
func StorageError(message string, err error) *AppError {
	return &AppError{
		Code:       "STORAGE_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        errors.Join(ErrStorage, err),
	}
}

// GetStatusCode returns the appropriate HTTP status code for an error.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrUnknownFeature), errors.Is(err, ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusForbidden
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
