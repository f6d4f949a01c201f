package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"boardchat/internal/core/domain"
)

// ErrorCode represents application error codes
type ErrorCode string

const (
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeValidation         ErrorCode = "VALIDATION_FAILED"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeNotAMember         ErrorCode = "NOT_A_MEMBER"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeRateLimit          ErrorCode = "RATE_LIMITED"
	ErrCodeUnknownEvent       ErrorCode = "UNKNOWN_EVENT"
	ErrCodeStorageFailed      ErrorCode = "STORAGE_FAILED"
	ErrCodeStorageTimeout     ErrorCode = "STORAGE_TIMEOUT"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// AppError represents an application error with code and context
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Context    map[string]interface{}
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

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Context:    make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with application error
func WrapError(err error, code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Cause:      err,
		Context:    make(map[string]interface{}),
	}
}

func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NewUnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message, http.StatusForbidden)
}

func NewRateLimitError() *AppError {
	return NewAppError(ErrCodeRateLimit, "rate limit exceeded", http.StatusTooManyRequests)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

// FromDomain maps the domain error taxonomy onto codes and statuses shared by
// the HTTP API and websocket error frames. Unknown errors become internal.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr
	}

	var (
		authErr       *domain.AuthError
		validationErr *domain.ValidationError
		storageErr    *domain.StorageError
	)
	switch {
	case stderrors.As(err, &validationErr):
		appErr := WrapError(err, ErrCodeValidation, validationErr.Error(), http.StatusBadRequest)
		if len(validationErr.Fields) > 0 {
			appErr.WithContext("fields", validationErr.Fields)
		}
		return appErr
	case stderrors.Is(err, domain.ErrNotAMember):
		return WrapError(err, ErrCodeNotAMember, "you are not a member of this board", http.StatusForbidden)
	case stderrors.As(err, &authErr):
		return WrapError(err, ErrCodeUnauthorized, fmt.Sprintf("authentication failed: %s", authErr.Kind), http.StatusUnauthorized)
	case stderrors.As(err, &storageErr):
		if storageErr.Kind == domain.StorageTimeout {
			return WrapError(err, ErrCodeStorageTimeout, "storage did not respond in time", http.StatusGatewayTimeout)
		}
		return WrapError(err, ErrCodeStorageFailed, "storage write failed", http.StatusServiceUnavailable)
	case stderrors.Is(err, domain.ErrChannelNotFound):
		return NewNotFoundError("channel")
	case stderrors.Is(err, domain.ErrBoardNotFound):
		return NewNotFoundError("board")
	case stderrors.Is(err, domain.ErrMessageNotFound):
		return NewNotFoundError("message")
	case stderrors.Is(err, domain.ErrChannelExists):
		return WrapError(err, ErrCodeConflict, "channel already exists", http.StatusConflict)
	default:
		return WrapError(err, ErrCodeInternal, "internal server error", http.StatusInternalServerError)
	}
}

// IsAppError checks if error is an AppError
func IsAppError(err error) bool {
	return GetAppError(err) != nil
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return nil
}
