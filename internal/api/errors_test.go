package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seagrid/asyncmedia/internal/domain"
	"github.com/seagrid/asyncmedia/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"batch not found", domain.ErrBatchNotFound, http.StatusNotFound},
		{"wrapped batch not found", fmt.Errorf("lookup: %w", domain.ErrBatchNotFound), http.StatusNotFound},
		{"store not found", store.ErrNotFound, http.StatusNotFound},
		{"batch closed", domain.ErrBatchClosed, http.StatusConflict},
		{"invalid spec", domain.ErrInvalidSpec, http.StatusBadRequest},
		{"validation", domain.ErrValidation, http.StatusBadRequest},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"unknown", errors.New("something broke"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	assert.Equal(t, "Media batch not found or expired",
		GetSafeErrorMessage(fmt.Errorf("get: %w", domain.ErrBatchNotFound)))
	assert.Equal(t, "Invalid media transform parameters",
		GetSafeErrorMessage(domain.ErrInvalidSpec))
	assert.Equal(t, "Image not found",
		GetSafeErrorMessage(store.ErrImageNotFound))

	// Internal error details must never leak through
	leaky := errors.New("pq: password authentication failed for user admin")
	msg := GetSafeErrorMessage(leaky)
	assert.Equal(t, "An unexpected error occurred", msg)
	assert.NotContains(t, msg, "password")

	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}
