package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus tracks a generation job through its lifecycle.
type JobStatus string

// Possible job status values.
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusSuccess    JobStatus = "success"
	JobStatusFailure    JobStatus = "failure"
)

// MediaJob is the durable ledger row for one media-generation job. The
// polling path never reads these rows; they exist for observability and
// post-mortem debugging, mirroring the in-memory resolution records.
type MediaJob struct {
	ID        uuid.UUID
	MediaKey  string
	ObjectRef string
	Kind      string
	Width     int
	Height    int

	Status JobStatus

	// ResultMessage carries the resolved URL on success or an error
	// summary on failure.
	ResultMessage string

	// AttemptNumber is the number of generation attempts made so far.
	AttemptNumber int

	CreatedAt  time.Time
	StartedAt  *time.Time
	ModifiedAt time.Time
}

// NewMediaJob creates a pending ledger entry for a generation job.
func NewMediaJob(mediaKey, objectRef, kind string, width, height int) *MediaJob {
	now := time.Now().UTC()
	return &MediaJob{
		ID:         uuid.New(),
		MediaKey:   mediaKey,
		ObjectRef:  objectRef,
		Kind:       kind,
		Width:      width,
		Height:     height,
		Status:     JobStatusPending,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}
