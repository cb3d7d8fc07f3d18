package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Image is one row of the browsable image catalog. The catalog is the
// source of object references handed to the media layer; the image bytes
// themselves live in external object storage and are never read here.
type Image struct {
	ID        uuid.UUID
	Filepath  string
	Name      string
	Width     int
	Height    int
	CreatedAt time.Time
}

// NewImage creates a catalog entry for an uploaded original.
func NewImage(filepath, name string, width, height int) (*Image, error) {
	img := &Image{
		ID:        uuid.New(),
		Filepath:  filepath,
		Name:      name,
		Width:     width,
		Height:    height,
		CreatedAt: time.Now().UTC(),
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return img, nil
}

// Validate checks that the image entry is well-formed.
func (i *Image) Validate() error {
	if i.Filepath == "" {
		return fmt.Errorf("%w: filepath cannot be empty", ErrValidation)
	}
	if i.Width <= 0 || i.Height <= 0 {
		return fmt.Errorf("%w: dimensions must be positive, got %dx%d",
			ErrValidation, i.Width, i.Height)
	}
	return nil
}
