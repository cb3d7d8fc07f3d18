package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/seagrid/asyncmedia/internal/domain"
)

// JobStore defines the interface for the durable media-job ledger.
//
// The ledger is write-behind observability: the resolver records every
// generation job and its outcome here, but status polling is served
// entirely from in-memory records, so a slow or unavailable ledger must
// never block resolution.
type JobStore interface {
	// Create persists a new media job in pending state.
	Create(ctx context.Context, job *domain.MediaJob) error

	// MarkInProgress transitions a job to in_progress and stamps its
	// start time and attempt number.
	// Returns ErrJobNotFound if the job does not exist.
	MarkInProgress(ctx context.Context, id uuid.UUID, attempt int) error

	// Finish transitions a job to a terminal status with a result
	// message: the resolved URL on success, an error summary otherwise.
	// Returns ErrJobNotFound if the job does not exist.
	Finish(ctx context.Context, id uuid.UUID, status domain.JobStatus, resultMessage string) error

	// GetByID retrieves a job by its unique ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.MediaJob, error)

	// DeleteOlderThan prunes ledger rows created before the cutoff and
	// returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
