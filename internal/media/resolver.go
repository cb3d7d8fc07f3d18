package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seagrid/asyncmedia/internal/domain"
	"github.com/seagrid/asyncmedia/internal/generation"
	"github.com/seagrid/asyncmedia/internal/store"
	"github.com/seagrid/asyncmedia/internal/task"
)

// ResolverConfig holds tuning knobs for background resolution.
type ResolverConfig struct {
	// MaxAttempts bounds generation attempts per job; exhausting it is
	// terminal failure.
	MaxAttempts int

	// AttemptTimeout bounds a single generation attempt. Distinct from
	// any client-side polling timeout.
	AttemptTimeout time.Duration

	// RetryBaseDelay is the backoff before the second attempt; it
	// doubles per subsequent attempt.
	RetryBaseDelay time.Duration

	// SweepInterval is how often expired batches are evicted.
	SweepInterval time.Duration

	// LedgerRetention is how long finished job rows stay in the ledger
	// before the prune pass removes them.
	LedgerRetention time.Duration
}

// DefaultResolverConfig returns a ResolverConfig with reasonable defaults.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		MaxAttempts:     3,
		AttemptTimeout:  30 * time.Second,
		RetryBaseDelay:  time.Second,
		SweepInterval:   time.Minute,
		LedgerRetention: 30 * 24 * time.Hour,
	}
}

// Resolver owns all resolution-record state transitions. It hands out
// placeholders synchronously through the batch layer and resolves the
// real media on the worker pool, deduplicating in-flight generation by
// media key across all concurrent batches.
type Resolver struct {
	batches *Batches
	queue   task.QueueWriter
	gen     Generator
	jobs    store.JobStore
	urls    *URLCache
	cfg     ResolverConfig
	logger  *slog.Logger

	// mu guards records and every record's mutable fields. All enqueue
	// decisions happen under it, which is what makes "at most one
	// in-flight generation per media key" hold process-wide.
	mu      sync.Mutex
	records map[MediaKey]*record

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once
	lastPrune time.Time
}

// NewResolver wires the resolver. The queue must be drained by a running
// task.WorkerPool; jobs may be nil-like (use an in-memory store in tests)
// but never nil.
func NewResolver(
	batches *Batches,
	queue task.QueueWriter,
	gen Generator,
	jobs store.JobStore,
	urls *URLCache,
	cfg ResolverConfig,
	logger *slog.Logger,
) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultResolverConfig().MaxAttempts
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultResolverConfig().AttemptTimeout
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultResolverConfig().RetryBaseDelay
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultResolverConfig().SweepInterval
	}
	if cfg.LedgerRetention <= 0 {
		cfg.LedgerRetention = DefaultResolverConfig().LedgerRetention
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Resolver{
		batches: batches,
		queue:   queue,
		gen:     gen,
		jobs:    jobs,
		urls:    urls,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "media_resolver")),
		records: make(map[MediaKey]*record),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the background sweep loop.
func (r *Resolver) Start() {
	r.wg.Add(1)
	go r.sweepLoop()
}

// Stop cancels in-flight jobs and waits for the sweep loop to exit.
func (r *Resolver) Stop() {
	r.stopOnce.Do(func() {
		r.cancel()
		r.wg.Wait()
	})
}

// StartBatch kicks off background generation for every key registered in
// the batch. Keys already in flight for another batch are attached to
// the existing job instead of starting a duplicate; keys with a cached
// resolved URL go straight to ready. Calling StartBatch again for the
// same batch is a no-op.
//
// Returns domain.ErrBatchNotFound for expired or guessed batch IDs.
func (r *Resolver) StartBatch(batchID string) error {
	b, err := r.batches.Get(batchID)
	if err != nil {
		return err
	}

	reqs, alreadyStarted, err := b.snapshotRequests()
	if err != nil {
		return err
	}
	if alreadyStarted {
		return nil
	}

	// Only reference bookkeeping happens under the mutex. Ledger writes
	// and queue submission run after it is released so a degraded
	// database cannot stall Status polls or other batches' starts.
	type pendingJob struct {
		key MediaKey
		rec *record
	}
	var toEnqueue []pendingJob

	r.mu.Lock()
	for key, req := range reqs {
		if rec, ok := r.records[key]; ok {
			// Another live batch already wants this key: attach.
			rec.refs++
			continue
		}

		jobCtx, jobCancel := context.WithCancel(r.ctx)
		rec := &record{
			request: req,
			state:   StatePending,
			refs:    1,
			ctx:     jobCtx,
			cancel:  jobCancel,
		}
		r.records[key] = rec

		if url, ok := r.urls.Get(key); ok {
			rec.state = StateReady
			rec.src = url
			jobCancel()
			continue
		}

		toEnqueue = append(toEnqueue, pendingJob{key: key, rec: rec})
	}
	r.mu.Unlock()

	for _, p := range toEnqueue {
		r.enqueue(p.key, p.rec)
	}

	r.logger.Debug("batch generation started",
		slog.String("batch_id", batchID),
		slog.Int("key_count", len(reqs)))
	return nil
}

// enqueue creates the ledger row and schedules the generation task. It
// runs outside r.mu; the record is already registered, so a concurrent
// poll sees it pending while the ledger write is in flight.
func (r *Resolver) enqueue(key MediaKey, rec *record) {
	req := rec.request
	job := domain.NewMediaJob(
		string(key), req.ObjectRef, string(req.Spec.Kind),
		req.Spec.Width, req.Spec.Height)

	if err := r.recordJob(job); err != nil {
		// Ledger is observability only; resolution proceeds without it.
		r.logger.Error("failed to record media job",
			slog.String("media_key", string(key)),
			slog.String("error", err.Error()))
	}

	t := &generationTask{resolver: r, key: key, rec: rec, job: job}
	if err := r.queue.Enqueue(t); err != nil {
		r.fail(key, "generation queue unavailable")
		rec.cancel()
		r.logger.Error("failed to enqueue generation task",
			slog.String("media_key", string(key)),
			slog.String("error", err.Error()))
		r.finishJob(job.ID, domain.JobStatusFailure, "generation queue unavailable")
	}
}

// Status reports the resolution state of the given keys within a batch.
// Keys never registered in the batch, and every key of an expired or
// unknown batch, report StateExpired so clients stop polling them. An
// empty keys slice means all keys registered in the batch.
func (r *Resolver) Status(batchID string, keys []MediaKey) map[MediaKey]ResolutionRecord {
	results := make(map[MediaKey]ResolutionRecord, len(keys))

	b, err := r.batches.Get(batchID)
	if err != nil {
		for _, key := range keys {
			results[key] = ResolutionRecord{MediaKey: key, State: StateExpired}
		}
		return results
	}

	if len(keys) == 0 {
		keys = b.Keys()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range keys {
		if !b.contains(key) {
			results[key] = ResolutionRecord{MediaKey: key, State: StateExpired}
			continue
		}
		rec, ok := r.records[key]
		if !ok {
			// Registered but generation not started yet.
			results[key] = ResolutionRecord{MediaKey: key, State: StatePending}
			continue
		}
		results[key] = rec.snapshot(key)
	}
	return results
}

// complete transitions a record to ready and writes through to the URL
// cache. The record may already be evicted (all batches expired while
// the job ran); the cache write still happens so the work isn't wasted.
func (r *Resolver) complete(key MediaKey, url string) {
	r.urls.Set(key, url)

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[key]
	if !ok {
		return
	}
	rec.state = StateReady
	rec.src = url
}

// fail transitions a record to terminal failure.
func (r *Resolver) fail(key MediaKey, summary string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[key]
	if !ok {
		return
	}
	rec.state = StateFailed
	rec.errMsg = summary
}

// release drops one batch's reference to a key. The record is evicted
// when no live batch references it anymore; a still-pending job is then
// cancelled. A key another batch still awaits is never cancelled.
func (r *Resolver) release(key MediaKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[key]
	if !ok {
		return
	}
	rec.refs--
	if rec.refs > 0 {
		return
	}
	delete(r.records, key)
	rec.cancel()
}

// sweepLoop evicts expired batches and periodically prunes the ledger.
func (r *Resolver) sweepLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case now := <-ticker.C:
			r.sweep(now)
		}
	}
}

// sweep runs one eviction pass at the given time.
func (r *Resolver) sweep(now time.Time) {
	expired := r.batches.expire(now)
	for _, b := range expired {
		if !b.markExpired() {
			continue
		}
		for _, key := range b.Keys() {
			r.release(key)
		}
	}
	if len(expired) > 0 {
		r.logger.Info("expired media batches evicted",
			slog.Int("batch_count", len(expired)))
	}

	// Ledger pruning is cheap but pointless to run every sweep.
	if now.Sub(r.lastPrune) >= time.Hour {
		r.lastPrune = now
		r.pruneLedger(now.Add(-r.cfg.LedgerRetention))
	}
}

func (r *Resolver) pruneLedger(cutoff time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := r.jobs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		r.logger.Error("failed to prune job ledger", slog.String("error", err.Error()))
		return
	}
	if removed > 0 {
		r.logger.Info("pruned job ledger", slog.Int64("removed", removed))
	}
}

// recordJob writes the pending ledger row with a bounded context.
func (r *Resolver) recordJob(job *domain.MediaJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.jobs.Create(ctx, job)
}

// finishJob closes the ledger row, logging rather than surfacing errors.
func (r *Resolver) finishJob(id uuid.UUID, status domain.JobStatus, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.jobs.Finish(ctx, id, status, message); err != nil {
		r.logger.Error("failed to finish media job",
			slog.String("job_id", id.String()),
			slog.String("error", err.Error()))
	}
}

// generationTask runs one media generation job on the worker pool, with
// bounded retries and per-attempt timeouts.
type generationTask struct {
	resolver *Resolver
	key      MediaKey
	rec      *record
	job      *domain.MediaJob
}

var _ task.Task = (*generationTask)(nil)

// ID returns the ledger job ID.
func (t *generationTask) ID() uuid.UUID { return t.job.ID }

// Type identifies the generation method, e.g. "generate_thumb".
func (t *generationTask) Type() string { return "generate_" + t.job.Kind }

// Execute runs the generation attempts. It returns nil after terminal
// failure: the outcome lives in the resolution record and the ledger,
// not in the worker pool's error path.
func (t *generationTask) Execute(ctx context.Context) error {
	r := t.resolver
	logger := r.logger.With(
		slog.String("media_key", string(t.key)),
		slog.String("job_id", t.job.ID.String()))

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := t.rec.ctx.Err(); err != nil {
			// Every batch awaiting this key expired while we were
			// queued or between attempts.
			logger.Debug("generation cancelled", slog.Int("attempt", attempt))
			r.finishJob(t.job.ID, domain.JobStatusFailure, "cancelled: no batch awaiting this media")
			return nil
		}

		t.job.AttemptNumber = attempt
		if err := r.markJobInProgress(t.job.ID, attempt); err != nil {
			logger.Error("failed to mark job in progress", slog.String("error", err.Error()))
		}

		attemptCtx, cancel := context.WithTimeout(t.rec.ctx, r.cfg.AttemptTimeout)
		url, err := r.gen.Generate(attemptCtx, t.rec.request.ObjectRef, t.rec.request.Spec)
		cancel()

		if err == nil {
			r.complete(t.key, url)
			r.finishJob(t.job.ID, domain.JobStatusSuccess, url)
			logger.Debug("media resolved", slog.Int("attempts", attempt))
			return nil
		}
		lastErr = err

		if errors.Is(err, generation.ErrSourceNotFound) ||
			errors.Is(err, generation.ErrGenerationFailed) {
			// Permanent: retrying cannot help.
			break
		}

		logger.Warn("generation attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", r.cfg.MaxAttempts),
			slog.String("error", err.Error()))

		if attempt < r.cfg.MaxAttempts {
			if err := t.backoff(attempt); err != nil {
				continue // record ctx cancelled; next iteration notices
			}
		}
	}

	summary := fmt.Sprintf("generation failed after %d attempt(s): %v",
		t.job.AttemptNumber, lastErr)
	r.fail(t.key, summary)
	r.finishJob(t.job.ID, domain.JobStatusFailure, summary)
	logger.Error("media generation failed terminally", slog.String("error", lastErr.Error()))
	return nil
}

// backoff sleeps for the attempt's delay, doubling per attempt, unless
// the record's context is cancelled first.
func (t *generationTask) backoff(attempt int) error {
	delay := t.resolver.cfg.RetryBaseDelay << (attempt - 1)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-t.rec.ctx.Done():
		return t.rec.ctx.Err()
	case <-timer.C:
		return nil
	}
}

// markJobInProgress stamps the ledger row and mirrors the attempt count
// onto the in-memory job for the failure summary.
func (r *Resolver) markJobInProgress(id uuid.UUID, attempt int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.jobs.MarkInProgress(ctx, id, attempt)
}
