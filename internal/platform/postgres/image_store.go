package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/seagrid/asyncmedia/internal/domain"
	"github.com/seagrid/asyncmedia/internal/store"
)

// ImageStore implements the store.ImageStore interface using a
// PostgreSQL database as the storage backend for the image catalog.
type ImageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewImageStore creates a new PostgreSQL implementation of store.ImageStore.
func NewImageStore(db store.DBTX, logger *slog.Logger) *ImageStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageStore{
		db:     db,
		logger: logger.With(slog.String("component", "image_store")),
	}
}

// Ensure ImageStore implements store.ImageStore.
var _ store.ImageStore = (*ImageStore)(nil)

// Create implements store.ImageStore.Create.
func (s *ImageStore) Create(ctx context.Context, image *domain.Image) error {
	if err := image.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO media_images (id, filepath, name, width, height, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		image.ID,
		image.Filepath,
		image.Name,
		image.Width,
		image.Height,
		image.CreatedAt,
	)
	if err != nil {
		s.logger.Error("failed to create image",
			slog.String("error", err.Error()),
			slog.String("image_id", image.ID.String()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.ImageStore.GetByID.
func (s *ImageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Image, error) {
	query := `
		SELECT id, filepath, name, width, height, created_at
		FROM media_images
		WHERE id = $1
	`

	var img domain.Image
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&img.ID,
		&img.Filepath,
		&img.Name,
		&img.Width,
		&img.Height,
		&img.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrImageNotFound
		}
		return nil, MapError(err)
	}
	return &img, nil
}

// List implements store.ImageStore.List.
func (s *ImageStore) List(ctx context.Context, limit, offset int) ([]*domain.Image, error) {
	query := `
		SELECT id, filepath, name, width, height, created_at
		FROM media_images
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var images []*domain.Image
	for rows.Next() {
		var img domain.Image
		if err := rows.Scan(
			&img.ID,
			&img.Filepath,
			&img.Name,
			&img.Width,
			&img.Height,
			&img.CreatedAt,
		); err != nil {
			return nil, MapError(err)
		}
		images = append(images, &img)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return images, nil
}

// Count implements store.ImageStore.Count.
func (s *ImageStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media_images`).Scan(&count)
	if err != nil {
		return 0, MapError(err)
	}
	return count, nil
}
