package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/seagrid/asyncmedia/internal/domain"
)

// ImageStore defines the interface for the browsable image catalog.
type ImageStore interface {
	// Create saves a new catalog entry.
	// Returns validation errors from the domain Image if data is invalid.
	Create(ctx context.Context, image *domain.Image) error

	// GetByID retrieves an image by its unique ID.
	// Returns ErrImageNotFound if the image does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Image, error)

	// List retrieves catalog entries ordered by creation time
	// descending, paginated by limit and offset.
	List(ctx context.Context, limit, offset int) ([]*domain.Image, error)

	// Count returns the total number of catalog entries.
	Count(ctx context.Context) (int64, error)
}
