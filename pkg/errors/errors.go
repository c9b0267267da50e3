package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors. Entity specific sentinels wrap one of these so
// that errors.Is matches both the entity and the kind.
var (
	ErrNotFound             = errors.New("resource not found")
	ErrAlreadyExists        = errors.New("resource already exists")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrInternal             = errors.New("internal error")
	ErrGuard                = errors.New("business rule violation")
	ErrDuplicateAssociation = errors.New("duplicate association")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Kind derives an entity specific sentinel from one of the standard kinds:
//
//	var ErrInvoiceNotFound = apperrors.Kind("invoice not found", apperrors.ErrNotFound)
func Kind(message string, kind error) error {
	return fmt.Errorf("%s: %w", message, kind)
}

// NotFound creates a 404 error keyed by id.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// NotFoundOf creates a 404 error that wraps the given entity sentinel, so a
// caller probing for absence can match the entity precisely.
func NotFoundOf(sentinel error, resource, field, value string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with %s %q not found", resource, field, value),
		Status:  http.StatusNotFound,
		Err:     sentinel,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// Guard creates a 400 error for a business rule violation.
func Guard(sentinel error, message string) *AppError {
	if sentinel == nil {
		sentinel = ErrGuard
	}
	return &AppError{
		Code:    "VALIDATION_GUARD",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     sentinel,
	}
}

// DuplicateAssociation creates a 409 error for a link that already exists.
func DuplicateAssociation(left, right string) *AppError {
	return &AppError{
		Code:    "DUPLICATE_ASSOCIATION",
		Message: fmt.Sprintf("%s is already associated with %s", left, right),
		Status:  http.StatusConflict,
		Err:     ErrDuplicateAssociation,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrDuplicateAssociation):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrGuard):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
