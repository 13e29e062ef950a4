package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidInput      = errors.New("invalid input")
	ErrWriteFailed       = errors.New("write failed")
	ErrInternal          = errors.New("internal server error")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// AppError is a caller-visible error. Status is the HTTP-style class of the
// failure, PropertyName is set for field-scoped validation errors.
type AppError struct {
	Status       int
	Title        string
	Detail       string
	PropertyName string
	Err          error
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Title
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(status int, title, detail string, err error) *AppError {
	return &AppError{
		Status: status,
		Title:  title,
		Detail: detail,
		Err:    err,
	}
}

// InvalidInput reports a missing or malformed request field.
func InvalidInput(propertyName, detail string) *AppError {
	return &AppError{
		Status:       http.StatusBadRequest,
		Title:        "Parameters not valid",
		Detail:       detail,
		PropertyName: propertyName,
		Err:          ErrInvalidInput,
	}
}

// Unauthorized covers both a failed token check and a denied authorization.
func Unauthorized() *AppError {
	return &AppError{
		Status: http.StatusForbidden,
		Title:  "Unauthorized",
		Detail: "You are not authorized to do this.",
		Err:    ErrUnauthorized,
	}
}

func NotFound(detail string) *AppError {
	return &AppError{
		Status: http.StatusNotFound,
		Title:  "Not found",
		Detail: detail,
		Err:    ErrNotFound,
	}
}

func WriteFailed(detail string) *AppError {
	return &AppError{
		Status: http.StatusInternalServerError,
		Title:  "Unknown error",
		Detail: detail,
		Err:    ErrWriteFailed,
	}
}

// Internal hides cause behind a generic error. The cause stays reachable
// through errors.Is / errors.As for logging.
func Internal(cause error) *AppError {
	return &AppError{
		Status: http.StatusInternalServerError,
		Title:  "Unknown error",
		Detail: "Something went wrong while processing the request.",
		Err:    errors.Join(ErrInternal, cause),
	}
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrRateLimitExceeded) {
		return http.StatusTooManyRequests
	}
	// Default to internal server error
	return http.StatusInternalServerError
}
