package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewImage(t *testing.T) {
	t.Parallel()

	img, err := NewImage("images/coral-001.jpg", "coral-001", 4000, 3000)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if img.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if img.Filepath != "images/coral-001.jpg" {
		t.Errorf("Expected filepath images/coral-001.jpg, got %s", img.Filepath)
	}
	if img.Name != "coral-001" {
		t.Errorf("Expected name coral-001, got %s", img.Name)
	}
	if img.Width != 4000 || img.Height != 3000 {
		t.Errorf("Expected dimensions 4000x3000, got %dx%d", img.Width, img.Height)
	}
	if img.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}
}

func TestNewImage_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := NewImage("", "coral-001", 4000, 3000); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for empty filepath, got %v", err)
	}
	if _, err := NewImage("images/coral-001.jpg", "coral-001", 0, 3000); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for zero width, got %v", err)
	}
	if _, err := NewImage("images/coral-001.jpg", "coral-001", 4000, -1); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for negative height, got %v", err)
	}
}

func TestImageValidate(t *testing.T) {
	t.Parallel()

	valid := Image{
		ID:       uuid.New(),
		Filepath: "images/coral-001.jpg",
		Width:    100,
		Height:   100,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid image to pass validation, got %v", err)
	}

	invalid := valid
	invalid.Filepath = ""
	if err := invalid.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}
