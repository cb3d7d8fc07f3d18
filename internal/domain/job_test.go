package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewMediaJob(t *testing.T) {
	t.Parallel()

	job := NewMediaJob("thumb:0123456789abcdef", "images/coral-001.jpg", "thumb", 150, 150)

	if job.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if job.MediaKey != "thumb:0123456789abcdef" {
		t.Errorf("Expected media key thumb:0123456789abcdef, got %s", job.MediaKey)
	}
	if job.ObjectRef != "images/coral-001.jpg" {
		t.Errorf("Expected object ref images/coral-001.jpg, got %s", job.ObjectRef)
	}
	if job.Kind != "thumb" {
		t.Errorf("Expected kind thumb, got %s", job.Kind)
	}
	if job.Width != 150 || job.Height != 150 {
		t.Errorf("Expected dimensions 150x150, got %dx%d", job.Width, job.Height)
	}
	if job.Status != JobStatusPending {
		t.Errorf("Expected status %s, got %s", JobStatusPending, job.Status)
	}
	if job.AttemptNumber != 0 {
		t.Errorf("Expected zero attempts, got %d", job.AttemptNumber)
	}
	if job.StartedAt != nil {
		t.Error("Expected nil StartedAt for a pending job")
	}
	if job.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}
	if job.ModifiedAt.IsZero() {
		t.Error("Expected non-zero ModifiedAt time")
	}
}
