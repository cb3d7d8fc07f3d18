package api

import (
	"errors"
	"net/http"

	"github.com/seagrid/asyncmedia/internal/domain"
	"github.com/seagrid/asyncmedia/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes based on the error type. This prevents leaking internal error
// types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrBatchNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrBatchClosed):
		return http.StatusConflict

	case errors.Is(err, domain.ErrInvalidSpec),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"

	case errors.Is(err, domain.ErrBatchNotFound):
		return "Media batch not found or expired"

	case errors.Is(err, domain.ErrBatchClosed):
		return "Media batch is closed"

	case errors.Is(err, domain.ErrInvalidSpec):
		return "Invalid media transform parameters"

	case errors.Is(err, domain.ErrValidation):
		return "Invalid entity data"

	case errors.Is(err, store.ErrImageNotFound):
		return "Image not found"

	case errors.Is(err, store.ErrNotFound):
		return "Not found"

	default:
		return "An unexpected error occurred"
	}
}
