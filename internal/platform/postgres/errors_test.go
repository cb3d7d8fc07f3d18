package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/seagrid/asyncmedia/internal/platform/postgres"
	"github.com/seagrid/asyncmedia/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "nil error",
			err:  nil,
			want: nil,
		},
		{
			name: "no rows",
			err:  sql.ErrNoRows,
			want: store.ErrNotFound,
		},
		{
			name: "unique violation",
			err:  &pgconn.PgError{Code: "23505"},
			want: store.ErrDuplicate,
		},
		{
			name: "foreign key violation",
			err:  &pgconn.PgError{Code: "23503", ConstraintName: "fk_test"},
			want: store.ErrInvalidEntity,
		},
		{
			name: "check violation",
			err:  &pgconn.PgError{Code: "23514", ConstraintName: "chk_status"},
			want: store.ErrInvalidEntity,
		},
		{
			name: "not null violation",
			err:  &pgconn.PgError{Code: "23502", ColumnName: "media_key"},
			want: store.ErrInvalidEntity,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := postgres.MapError(tc.err)
			if tc.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tc.want)
		})
	}
}

func TestMapError_PassesThroughUnknownErrors(t *testing.T) {
	original := fmt.Errorf("connection refused")
	got := postgres.MapError(original)
	assert.Equal(t, original, got)

	wrapped := postgres.MapError(&pgconn.PgError{Code: "23505", Message: "dup"})
	var pgErr *pgconn.PgError
	assert.True(t, errors.As(wrapped, &pgErr), "original pg error should stay unwrappable")
}
