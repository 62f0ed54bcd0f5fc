// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrDuplicate           = errors.New("duplicate entry")
	ErrValidation          = errors.New("validation failed")
	ErrForbidden           = errors.New("forbidden")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)

// FieldError reports a rejected input field. It matches ErrValidation.
type FieldError struct {
	Field  string
	Reason string
}

// NewFieldError builds a FieldError.
func NewFieldError(field, reason string) *FieldError {
	return &FieldError{Field: field, Reason: reason}
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

// Unwrap lets errors.Is match ErrValidation.
func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var fieldErr *FieldError
	switch {
	case errors.As(err, &fieldErr):
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: fieldErr.Error(),
			Field:  fieldErr.Field,
		})
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrUpstreamUnavailable):
		Problem(w, http.StatusBadGateway, "Upstream Unavailable", "payment provider is unavailable, try again later")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// IsServerError reports whether err maps to a 5xx response.
func IsServerError(err error) bool {
	for _, known := range []error{ErrValidation, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrDuplicate} {
		if errors.Is(err, known) {
			return false
		}
	}
	return err != nil
}
