package media

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seagrid/asyncmedia/internal/domain"
)

// Request is everything needed to generate one derived media item. The
// media key is derived from it; the request itself travels alongside the
// key because nothing can be parsed back out of an opaque key.
type Request struct {
	ObjectRef string
	Spec      TransformSpec
}

// PlaceholderDescriptor is returned synchronously at registration time
// and rendered inline into the page while the real media resolves.
type PlaceholderDescriptor struct {
	MediaKey       MediaKey
	BatchID        string
	PlaceholderSrc string
}

// DefaultBatchTTL bounds how long a batch's records are kept. Long
// enough for any reasonable page of async media, short enough to bound
// the memory footprint of abandoned pages.
const DefaultBatchTTL = 10 * time.Minute

// Batch collects the deferred media requests of a single page render.
// It owns the set of keys registered under its ID but never mutates
// resolution state; that belongs to the Resolver alone.
type Batch struct {
	id       string
	openedAt time.Time

	mu       sync.Mutex
	closed   bool
	started  bool
	expired  bool
	requests map[MediaKey]Request
}

// ID returns the batch identifier issued at Open time.
func (b *Batch) ID() string { return b.id }

// Register adds one media request to the batch and returns its
// placeholder descriptor. It is idempotent per key: re-registering an
// already-present key returns the identical descriptor and does not
// grow the batch. Registration is O(1) per call, so a grid of hundreds
// of cells may call it in a tight loop.
//
// Returns domain.ErrBatchClosed after Close.
func (b *Batch) Register(objectRef string, spec TransformSpec) (PlaceholderDescriptor, error) {
	key, err := DeriveKey(objectRef, spec)
	if err != nil {
		return PlaceholderDescriptor{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return PlaceholderDescriptor{}, fmt.Errorf(
			"%w: cannot register %s under batch %s", domain.ErrBatchClosed, key, b.id)
	}

	if _, ok := b.requests[key]; !ok {
		b.requests[key] = Request{ObjectRef: objectRef, Spec: spec}
	}

	return PlaceholderDescriptor{
		MediaKey:       key,
		BatchID:        b.id,
		PlaceholderSrc: PlaceholderPath(spec),
	}, nil
}

// Close finalizes the batch. Registration attempts after Close fail with
// domain.ErrBatchClosed. Closing twice is harmless.
func (b *Batch) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Keys returns a snapshot of the registered media keys.
func (b *Batch) Keys() []MediaKey {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := make([]MediaKey, 0, len(b.requests))
	for key := range b.requests {
		keys = append(keys, key)
	}
	return keys
}

// isStarted reports whether generation was kicked off for this batch.
func (b *Batch) isStarted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}

// contains reports whether the key was registered in this batch.
func (b *Batch) contains(key MediaKey) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.requests[key]
	return ok
}

// snapshotRequests returns the registered requests and atomically marks
// the batch started. The second and later calls return started=true so
// the resolver never double-counts a batch's key references.
//
// An expired batch refuses the snapshot with domain.ErrBatchNotFound:
// the sweep releases key references only for started batches, so records
// created for a batch that expired first would never be evicted. A batch
// that is merely closed still snapshots; every batch is closed before
// the page response goes out.
func (b *Batch) snapshotRequests() (reqs map[MediaKey]Request, alreadyStarted bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.expired {
		return nil, false, fmt.Errorf("%w: %s", domain.ErrBatchNotFound, b.id)
	}
	if b.started {
		return nil, true, nil
	}
	b.started = true

	reqs = make(map[MediaKey]Request, len(b.requests))
	for key, req := range b.requests {
		reqs[key] = req
	}
	return reqs, false, nil
}

// markExpired finalizes the batch on the expiry path and reports whether
// generation had started. The decision is made under the same lock
// snapshotRequests takes: a concurrent start either sees the expiry and
// refuses, or won the lock first and is reported here so its key
// references get released.
func (b *Batch) markExpired() (started bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.expired = true
	return b.started
}

// Batches issues batch IDs and tracks live batches until their TTL
// elapses. Expiry is driven by the resolver's sweep loop, so that key
// references are released in the same place records are owned.
type Batches struct {
	ttl    time.Duration
	logger *slog.Logger

	mu    sync.Mutex
	open  map[string]*Batch
	clock func() time.Time
}

// NewBatches creates a batch registry with the given TTL. A zero ttl
// falls back to DefaultBatchTTL.
func NewBatches(ttl time.Duration, logger *slog.Logger) *Batches {
	if ttl <= 0 {
		ttl = DefaultBatchTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batches{
		ttl:    ttl,
		logger: logger.With(slog.String("component", "media_batches")),
		open:   make(map[string]*Batch),
		clock:  time.Now,
	}
}

// Open allocates a fresh batch scoped to one page render. The ID is
// never reused and never persisted beyond the client session polling it.
func (bs *Batches) Open() *Batch {
	b := &Batch{
		id:       uuid.New().String(),
		openedAt: bs.clock(),
		requests: make(map[MediaKey]Request),
	}

	bs.mu.Lock()
	bs.open[b.id] = b
	bs.mu.Unlock()

	bs.logger.Debug("batch opened", slog.String("batch_id", b.id))
	return b
}

// Get returns the live batch with the given ID, or
// domain.ErrBatchNotFound for expired or guessed IDs.
func (bs *Batches) Get(id string) (*Batch, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	b, ok := bs.open[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrBatchNotFound, id)
	}
	return b, nil
}

// expire removes and returns every batch whose TTL has elapsed at now.
func (bs *Batches) expire(now time.Time) []*Batch {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	var expired []*Batch
	for id, b := range bs.open {
		if now.Sub(b.openedAt) >= bs.ttl {
			delete(bs.open, id)
			expired = append(expired, b)
		}
	}
	return expired
}
