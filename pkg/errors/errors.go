package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    "BAD_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func NotAuthenticated(err error) *AppError {
	return &AppError{
		Code:    "NOT_AUTHENTICATED",
		Message: "Authentication required",
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func PermissionDenied(message string, err error) *AppError {
	return &AppError{
		Code:    "PERMISSION_DENIED",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

// QuotaExceeded reports a failed upload admission. The remaining byte count is
// kept in the message so handlers can show the user how much space is left.
func QuotaExceeded(remainingBytes int64) *AppError {
	return &AppError{
		Code:    "QUOTA_EXCEEDED",
		Message: fmt.Sprintf("Storage quota exceeded. Remaining: %d MB", remainingBytes/(1024*1024)),
		Status:  http.StatusRequestEntityTooLarge,
	}
}

// TransientStore wraps a network or backend hiccup that is safe to retry.
func TransientStore(message string, err error) *AppError {
	return &AppError{
		Code:    "TRANSIENT_STORE_ERROR",
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// MetadataWriteFailed is raised after a blob was written but its record was
// not. The blob path is carried in the message for manual cleanup.
func MetadataWriteFailed(blobPath string, err error) *AppError {
	return &AppError{
		Code:    "METADATA_WRITE_FAILED",
		Message: fmt.Sprintf("File was stored but its record could not be written (orphaned blob: %s)", blobPath),
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
