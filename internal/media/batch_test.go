package media

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seagrid/asyncmedia/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestBatch_Register(t *testing.T) {
	bs := NewBatches(DefaultBatchTTL, testLogger())
	b := bs.Open()

	spec := TransformSpec{Kind: KindThumbnail, Width: 150, Height: 150}
	ph, err := b.Register("images/coral-001.jpg", spec)
	require.NoError(t, err)

	assert.Equal(t, b.ID(), ph.BatchID)
	assert.NotEmpty(t, ph.MediaKey)
	assert.Equal(t, PlaceholderPath(spec), ph.PlaceholderSrc)
	assert.Len(t, b.Keys(), 1)
}

func TestBatch_Register_Idempotent(t *testing.T) {
	bs := NewBatches(DefaultBatchTTL, testLogger())
	b := bs.Open()

	spec := TransformSpec{Kind: KindThumbnail, Width: 150, Height: 150}
	ph1, err := b.Register("images/coral-001.jpg", spec)
	require.NoError(t, err)
	ph2, err := b.Register("images/coral-001.jpg", spec)
	require.NoError(t, err)

	assert.Equal(t, ph1, ph2)
	assert.Len(t, b.Keys(), 1)
}

func TestBatch_Register_InvalidSpec(t *testing.T) {
	bs := NewBatches(DefaultBatchTTL, testLogger())
	b := bs.Open()

	_, err := b.Register("", TransformSpec{Kind: KindThumbnail, Width: 150, Height: 150})
	assert.ErrorIs(t, err, domain.ErrInvalidSpec)

	_, err = b.Register("images/coral-001.jpg", TransformSpec{Kind: "mosaic", Width: 150, Height: 150})
	assert.ErrorIs(t, err, domain.ErrInvalidSpec)
	assert.Empty(t, b.Keys())
}

func TestBatch_Close(t *testing.T) {
	bs := NewBatches(DefaultBatchTTL, testLogger())
	b := bs.Open()

	spec := TransformSpec{Kind: KindThumbnail, Width: 150, Height: 150}
	_, err := b.Register("images/coral-001.jpg", spec)
	require.NoError(t, err)

	b.Close()
	b.Close() // closing twice is harmless

	_, err = b.Register("images/coral-002.jpg", spec)
	assert.ErrorIs(t, err, domain.ErrBatchClosed)

	// Already registered keys stay visible after Close
	assert.Len(t, b.Keys(), 1)
}

func TestBatch_SnapshotRequests(t *testing.T) {
	bs := NewBatches(DefaultBatchTTL, testLogger())
	b := bs.Open()

	spec := TransformSpec{Kind: KindThumbnail, Width: 150, Height: 150}
	ph, err := b.Register("images/coral-001.jpg", spec)
	require.NoError(t, err)

	reqs, alreadyStarted, err := b.snapshotRequests()
	require.NoError(t, err)
	assert.False(t, alreadyStarted)
	require.Len(t, reqs, 1)
	assert.Equal(t, Request{ObjectRef: "images/coral-001.jpg", Spec: spec}, reqs[ph.MediaKey])
	assert.True(t, b.isStarted())

	// A second snapshot must not double-count the batch
	reqs, alreadyStarted, err = b.snapshotRequests()
	require.NoError(t, err)
	assert.True(t, alreadyStarted)
	assert.Nil(t, reqs)
}

func TestBatch_SnapshotWorksOnClosedBatch(t *testing.T) {
	bs := NewBatches(DefaultBatchTTL, testLogger())
	b := bs.Open()

	spec := TransformSpec{Kind: KindThumbnail, Width: 150, Height: 150}
	_, err := b.Register("images/coral-001.jpg", spec)
	require.NoError(t, err)

	// Every batch is closed before the page response goes out; starting
	// generation afterwards must still work.
	b.Close()

	reqs, alreadyStarted, err := b.snapshotRequests()
	require.NoError(t, err)
	assert.False(t, alreadyStarted)
	assert.Len(t, reqs, 1)
}

func TestBatch_SnapshotRefusedAfterExpiry(t *testing.T) {
	bs := NewBatches(DefaultBatchTTL, testLogger())
	b := bs.Open()

	spec := TransformSpec{Kind: KindThumbnail, Width: 150, Height: 150}
	_, err := b.Register("images/coral-001.jpg", spec)
	require.NoError(t, err)

	started := b.markExpired()
	assert.False(t, started)

	// A start racing the sweep must not create key references nobody
	// will ever release.
	_, _, err = b.snapshotRequests()
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)
	assert.False(t, b.isStarted())
}

func TestBatch_ExpiryAfterSnapshotReportsStarted(t *testing.T) {
	bs := NewBatches(DefaultBatchTTL, testLogger())
	b := bs.Open()

	spec := TransformSpec{Kind: KindThumbnail, Width: 150, Height: 150}
	_, err := b.Register("images/coral-001.jpg", spec)
	require.NoError(t, err)

	_, alreadyStarted, err := b.snapshotRequests()
	require.NoError(t, err)
	require.False(t, alreadyStarted)

	// The sweep must learn the batch was started so it releases its keys.
	assert.True(t, b.markExpired())

	_, err = b.Register("images/coral-002.jpg", spec)
	assert.ErrorIs(t, err, domain.ErrBatchClosed)
}

func TestBatches_Get(t *testing.T) {
	bs := NewBatches(DefaultBatchTTL, testLogger())
	b := bs.Open()

	got, err := bs.Get(b.ID())
	require.NoError(t, err)
	assert.Same(t, b, got)

	_, err = bs.Get("no-such-batch")
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)
}

func TestBatches_Open_UniqueIDs(t *testing.T) {
	bs := NewBatches(DefaultBatchTTL, testLogger())

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		b := bs.Open()
		assert.False(t, seen[b.ID()])
		seen[b.ID()] = true
	}
}

func TestBatches_Expire(t *testing.T) {
	bs := NewBatches(10*time.Minute, testLogger())

	now := time.Now()
	bs.clock = func() time.Time { return now }

	old := bs.Open()

	bs.clock = func() time.Time { return now.Add(5 * time.Minute) }
	fresh := bs.Open()

	expired := bs.expire(now.Add(11 * time.Minute))
	require.Len(t, expired, 1)
	assert.Equal(t, old.ID(), expired[0].ID())

	_, err := bs.Get(old.ID())
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)

	_, err = bs.Get(fresh.ID())
	assert.NoError(t, err)
}
