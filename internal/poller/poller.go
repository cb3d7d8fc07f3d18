// Package poller implements the client side of the async media wire
// contract: a cooperative polling loop that watches a batch's media
// keys and hands resolved URLs (or failure fallbacks) to a sink as each
// key reaches a terminal state. It depends only on the HTTP wire
// format, never on the resolver's internals.
package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sink receives per-key outcomes as the poller observes them. In a
// browser this would swap image sources in the DOM; in tests and Go
// consumers it collects results.
type Sink interface {
	// MediaReady is called once when a key resolves.
	MediaReady(key, resolvedSrc string)

	// MediaUnavailable is called once when a key fails, expires, or the
	// poller gives up on it at the global timeout.
	MediaUnavailable(key, reason string)
}

// Config tunes the polling loop.
type Config struct {
	// Interval is the initial delay between polls; it doubles after
	// every poll up to MaxInterval.
	Interval    time.Duration
	MaxInterval time.Duration

	// Timeout bounds the whole loop. Keys still pending at the timeout
	// are reported unavailable. Distinct from the server's per-attempt
	// generation timeout.
	Timeout time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    500 * time.Millisecond,
		MaxInterval: 5 * time.Second,
		Timeout:     5 * time.Minute,
	}
}

// Poller polls the async media status endpoint for one batch.
type Poller struct {
	baseURL string
	http    *http.Client
	cfg     Config
	logger  *slog.Logger
}

// New creates a poller against the service at baseURL.
func New(baseURL string, cfg Config, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultConfig().MaxInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "media_poller")),
	}
}

// mediaStatus mirrors the wire form of one key's resolution record.
type mediaStatus struct {
	State       string  `json:"state"`
	ResolvedSrc *string `json:"resolved_src"`
	Error       *string `json:"error"`
}

type statusResponse struct {
	Results map[string]mediaStatus `json:"results"`
}

// Run starts generation for the batch and polls until every key reaches
// a terminal state, the global timeout elapses, or ctx is cancelled.
// Each key is handled independently: a single poll response may carry
// any mix of pending, ready, failed and expired entries.
func (p *Poller) Run(ctx context.Context, batchID string, keys []string, sink Sink) error {
	if err := p.startGeneration(ctx, batchID); err != nil {
		return err
	}

	pending := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		pending[key] = struct{}{}
	}

	deadline := time.Now().Add(p.cfg.Timeout)
	interval := p.cfg.Interval

	for len(pending) > 0 {
		if time.Now().After(deadline) {
			for key := range pending {
				sink.MediaUnavailable(key, "timed out waiting for media")
			}
			p.logger.Warn("polling timed out",
				slog.String("batch_id", batchID),
				slog.Int("unresolved", len(pending)))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		if interval *= 2; interval > p.cfg.MaxInterval {
			interval = p.cfg.MaxInterval
		}

		results, err := p.fetchStatus(ctx, batchID, pending)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Transient fetch problems just mean another round.
			p.logger.Debug("status poll failed", slog.String("error", err.Error()))
			continue
		}

		for key, status := range results {
			if _, ok := pending[key]; !ok {
				continue
			}
			switch status.State {
			case "ready":
				if status.ResolvedSrc != nil {
					sink.MediaReady(key, *status.ResolvedSrc)
				} else {
					sink.MediaUnavailable(key, "ready without resolved_src")
				}
			case "failed":
				reason := "generation failed"
				if status.Error != nil {
					reason = *status.Error
				}
				sink.MediaUnavailable(key, reason)
			case "expired":
				sink.MediaUnavailable(key, "media request expired")
			default:
				continue // still pending, keep polling this key
			}
			delete(pending, key)
		}
	}

	return nil
}

// startGeneration posts the batch to the start endpoint.
func (p *Poller) startGeneration(ctx context.Context, batchID string) error {
	body, err := json.Marshal(map[string]string{"batch_id": batchID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/async_media/start", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("start generation: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("start generation: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// fetchStatus performs one status poll for the still-pending keys.
func (p *Poller) fetchStatus(ctx context.Context, batchID string, pending map[string]struct{}) (map[string]mediaStatus, error) {
	keys := make([]string, 0, len(pending))
	for key := range pending {
		keys = append(keys, key)
	}

	query := url.Values{}
	query.Set("batch_id", batchID)
	query.Set("keys", strings.Join(keys, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/async_media/status?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status poll: unexpected status %d", resp.StatusCode)
	}

	var decoded statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	return decoded.Results, nil
}
