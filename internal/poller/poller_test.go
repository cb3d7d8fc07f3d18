package poller

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// recordingSink collects per-key outcomes.
type recordingSink struct {
	mu          sync.Mutex
	ready       map[string]string
	unavailable map[string]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		ready:       make(map[string]string),
		unavailable: make(map[string]string),
	}
}

func (s *recordingSink) MediaReady(key, resolvedSrc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready[key] = resolvedSrc
}

func (s *recordingSink) MediaUnavailable(key, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable[key] = reason
}

// fakeServer serves the start and status endpoints, returning scripted
// status payloads in sequence and repeating the last one.
type fakeServer struct {
	t *testing.T

	mu        sync.Mutex
	started   int
	polls     int
	responses []map[string]mediaStatus
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /async_media/start", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(f.t, body["batch_id"])

		f.mu.Lock()
		f.started++
		f.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /async_media/status", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(f.t, r.URL.Query().Get("batch_id"))
		assert.NotEmpty(f.t, r.URL.Query().Get("keys"))

		f.mu.Lock()
		idx := f.polls
		if idx >= len(f.responses) {
			idx = len(f.responses) - 1
		}
		results := f.responses[idx]
		f.polls++
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		require.NoError(f.t, json.NewEncoder(w).Encode(map[string]any{"results": results}))
	})
	return mux
}

func (f *fakeServer) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func strPtr(s string) *string { return &s }

func quickConfig() Config {
	return Config{
		Interval:    time.Millisecond,
		MaxInterval: 5 * time.Millisecond,
		Timeout:     2 * time.Second,
	}
}

func TestPoller_ResolvesAllKeys(t *testing.T) {
	fake := &fakeServer{t: t, responses: []map[string]mediaStatus{
		{
			"k1": {State: "pending"},
			"k2": {State: "pending"},
		},
		{
			"k1": {State: "ready", ResolvedSrc: strPtr("https://media.example.com/k1.png")},
			"k2": {State: "pending"},
		},
		{
			"k2": {State: "ready", ResolvedSrc: strPtr("https://media.example.com/k2.png")},
		},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	sink := newRecordingSink()
	p := New(srv.URL, quickConfig(), testLogger())

	err := p.Run(context.Background(), "batch-1", []string{"k1", "k2"}, sink)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.startCount())
	assert.Equal(t, "https://media.example.com/k1.png", sink.ready["k1"])
	assert.Equal(t, "https://media.example.com/k2.png", sink.ready["k2"])
	assert.Empty(t, sink.unavailable)
}

func TestPoller_MixedTerminalStates(t *testing.T) {
	fake := &fakeServer{t: t, responses: []map[string]mediaStatus{
		{
			"ok":      {State: "ready", ResolvedSrc: strPtr("https://media.example.com/ok.png")},
			"broken":  {State: "failed", Error: strPtr("generation failed after 3 attempt(s)")},
			"unknown": {State: "expired"},
		},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	sink := newRecordingSink()
	p := New(srv.URL, quickConfig(), testLogger())

	err := p.Run(context.Background(), "batch-1", []string{"ok", "broken", "unknown"}, sink)
	require.NoError(t, err)

	assert.Equal(t, "https://media.example.com/ok.png", sink.ready["ok"])
	assert.Contains(t, sink.unavailable["broken"], "3 attempt(s)")
	assert.Equal(t, "media request expired", sink.unavailable["unknown"])
}

func TestPoller_Timeout(t *testing.T) {
	fake := &fakeServer{t: t, responses: []map[string]mediaStatus{
		{"k1": {State: "pending"}},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	cfg := quickConfig()
	cfg.Timeout = 50 * time.Millisecond

	sink := newRecordingSink()
	p := New(srv.URL, cfg, testLogger())

	err := p.Run(context.Background(), "batch-1", []string{"k1"}, sink)
	require.NoError(t, err)

	assert.Equal(t, "timed out waiting for media", sink.unavailable["k1"])
	assert.Empty(t, sink.ready)
}

func TestPoller_ContextCancellation(t *testing.T) {
	fake := &fakeServer{t: t, responses: []map[string]mediaStatus{
		{"k1": {State: "pending"}},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	sink := newRecordingSink()
	p := New(srv.URL, quickConfig(), testLogger())

	err := p.Run(ctx, "batch-1", []string{"k1"}, sink)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoller_StartRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"batch not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	sink := newRecordingSink()
	p := New(srv.URL, quickConfig(), testLogger())

	err := p.Run(context.Background(), "stale-batch", nil, sink)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "404"))
}

func TestPoller_TransientPollErrors(t *testing.T) {
	var mu sync.Mutex
	polls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("POST /async_media/start", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /async_media/status", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		polls++
		n := polls
		mu.Unlock()

		// First poll breaks; the loop must carry on and succeed later
		if n == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": map[string]mediaStatus{
			"k1": {State: "ready", ResolvedSrc: strPtr("https://media.example.com/k1.png")},
		}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sink := newRecordingSink()
	p := New(srv.URL, quickConfig(), testLogger())

	err := p.Run(context.Background(), "batch-1", []string{"k1"}, sink)
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/k1.png", sink.ready["k1"])
}
