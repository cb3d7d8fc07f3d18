package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seagrid/asyncmedia/internal/domain"
	"github.com/seagrid/asyncmedia/internal/store"
)

// JobStore implements the store.JobStore interface using a PostgreSQL
// database as the storage backend for the media-job ledger.
type JobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewJobStore creates a new PostgreSQL implementation of store.JobStore.
// It accepts a database connection or transaction managed by the caller.
func NewJobStore(db store.DBTX, logger *slog.Logger) *JobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Ensure JobStore implements store.JobStore.
var _ store.JobStore = (*JobStore)(nil)

// Create implements store.JobStore.Create.
func (s *JobStore) Create(ctx context.Context, job *domain.MediaJob) error {
	query := `
		INSERT INTO media_jobs
			(id, media_key, object_ref, kind, width, height,
			 status, result_message, attempt_number, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.MediaKey,
		job.ObjectRef,
		job.Kind,
		job.Width,
		job.Height,
		job.Status,
		job.ResultMessage,
		job.AttemptNumber,
		job.CreatedAt,
		job.ModifiedAt,
	)
	if err != nil {
		s.logger.Error("failed to create media job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()),
			slog.String("media_key", job.MediaKey))
		return MapError(err)
	}

	s.logger.Debug("media job created",
		slog.String("job_id", job.ID.String()),
		slog.String("media_key", job.MediaKey))
	return nil
}

// MarkInProgress implements store.JobStore.MarkInProgress.
func (s *JobStore) MarkInProgress(ctx context.Context, id uuid.UUID, attempt int) error {
	now := time.Now().UTC()
	query := `
		UPDATE media_jobs
		SET status = $1,
		    attempt_number = $2,
		    started_at = COALESCE(started_at, $3),
		    modified_at = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusInProgress, attempt, now, id)
	if err != nil {
		return MapError(err)
	}
	return s.requireRow(result, id)
}

// Finish implements store.JobStore.Finish.
func (s *JobStore) Finish(ctx context.Context, id uuid.UUID, status domain.JobStatus, resultMessage string) error {
	if status != domain.JobStatusSuccess && status != domain.JobStatusFailure {
		return fmt.Errorf("%w: %q is not a terminal job status",
			store.ErrInvalidEntity, status)
	}

	query := `
		UPDATE media_jobs
		SET status = $1, result_message = $2, modified_at = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query,
		status, resultMessage, time.Now().UTC(), id)
	if err != nil {
		return MapError(err)
	}
	return s.requireRow(result, id)
}

// GetByID implements store.JobStore.GetByID.
func (s *JobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.MediaJob, error) {
	query := `
		SELECT id, media_key, object_ref, kind, width, height,
		       status, result_message, attempt_number,
		       created_at, started_at, modified_at
		FROM media_jobs
		WHERE id = $1
	`

	var job domain.MediaJob
	var startedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		&job.MediaKey,
		&job.ObjectRef,
		&job.Kind,
		&job.Width,
		&job.Height,
		&job.Status,
		&job.ResultMessage,
		&job.AttemptNumber,
		&job.CreatedAt,
		&startedAt,
		&job.ModifiedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		return nil, MapError(err)
	}

	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	return &job, nil
}

// DeleteOlderThan implements store.JobStore.DeleteOlderThan.
func (s *JobStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM media_jobs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, MapError(err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, MapError(err)
	}
	return removed, nil
}

// requireRow converts a zero-row update into ErrJobNotFound.
func (s *JobStore) requireRow(result sql.Result, id uuid.UUID) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %s", store.ErrJobNotFound, id)
	}
	return nil
}
