package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/NomadCrew/climapro-backend/logger"
)

type ErrorType string

const (
	ValidationError         ErrorType = "VALIDATION_ERROR"
	NotFoundError           ErrorType = "NOT_FOUND"
	PermissionDeniedError   ErrorType = "PERMISSION_DENIED"
	LocationUnavailableErr  ErrorType = "LOCATION_UNAVAILABLE"
	PersistenceError        ErrorType = "PERSISTENCE_FAILURE"
	GenerationError         ErrorType = "GENERATION_FAILURE"
	RateLimitError          ErrorType = "RATE_LIMITED"
	ServerError             ErrorType = "SERVER_ERROR"
	ServiceUnavailableError ErrorType = "SERVICE_UNAVAILABLE"
)

// LocationErrorMessage is shown whenever the device position cannot be obtained.
const LocationErrorMessage = "Location permission denied or unavailable"

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Raw
}

// GetHTTPStatus returns the status recorded on the error, falling back to the
// default status for its type.
func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return getHTTPStatus(e.Type)
}

// New creates a new AppError
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

// As reports whether err is (or wraps) an *AppError and returns it.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == errType
}

// Helper functions for common errors
func NotFound(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func ValidationFailed(message string, details string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusBadRequest,
	}
}

func PermissionDenied(detail string) *AppError {
	return &AppError{
		Type:       PermissionDeniedError,
		Message:    LocationErrorMessage,
		Detail:     detail,
		HTTPStatus: http.StatusForbidden,
	}
}

func LocationUnavailable(err error) *AppError {
	appErr := &AppError{
		Type:       LocationUnavailableErr,
		Message:    LocationErrorMessage,
		HTTPStatus: http.StatusServiceUnavailable,
		Raw:        err,
	}
	if err != nil {
		appErr.Detail = err.Error()
	}
	return appErr
}

// PersistenceFailure describes a storage failure. Callers absorb it; it is
// only ever logged or published, never returned to clients.
func PersistenceFailure(operation, key string, err error) *AppError {
	return &AppError{
		Type:       PersistenceError,
		Code:       operation,
		Message:    fmt.Sprintf("storage %s failed", operation),
		Detail:     fmt.Sprintf("key %s: %v", key, err),
		HTTPStatus: http.StatusInternalServerError,
		Raw:        err,
	}
}

func GenerationFailed(source string, err error) *AppError {
	logger.GetLogger().Errorw("Generation failed", "source", source, "error", err)
	return &AppError{
		Type:       GenerationError,
		Message:    fmt.Sprintf("%s generation failed", source),
		Detail:     "Please try again later",
		HTTPStatus: http.StatusBadGateway,
		Raw:        err,
	}
}

func RateLimited(message string) *AppError {
	return &AppError{
		Type:       RateLimitError,
		Message:    message,
		HTTPStatus: http.StatusTooManyRequests,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

func ServiceUnavailable(message string) *AppError {
	return &AppError{
		Type:       ServiceUnavailableError,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case PermissionDeniedError:
		return http.StatusForbidden
	case LocationUnavailableErr, ServiceUnavailableError:
		return http.StatusServiceUnavailable
	case GenerationError:
		return http.StatusBadGateway
	case RateLimitError:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
