// Package thumbnailer implements media.Generator against a remote
// thumbnailing service over HTTP. The service owns object storage and
// the actual image transforms; this client only ferries requests.
package thumbnailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/seagrid/asyncmedia/internal/generation"
	"github.com/seagrid/asyncmedia/internal/media"
)

// Client calls the remote thumbnailer's /generate endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a thumbnailer client. The baseURL must point at the
// service root, e.g. "http://thumbnailer:9090".
func NewClient(baseURL string, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: thumbnailer base URL cannot be empty",
			generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		// No client-level timeout: the resolver bounds each attempt
		// through ctx, and a fixed timeout here would fight it.
		http:   &http.Client{},
		logger: logger.With(slog.String("component", "thumbnailer_client")),
	}, nil
}

var _ media.Generator = (*Client)(nil)

type generateRequest struct {
	ObjectRef string `json:"object_ref"`
	Kind      string `json:"kind"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type generateResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Generate implements media.Generator.
func (c *Client) Generate(ctx context.Context, objectRef string, spec media.TransformSpec) (string, error) {
	body, err := json.Marshal(generateRequest{
		ObjectRef: objectRef,
		Kind:      string(spec.Kind),
		Width:     spec.Width,
		Height:    spec.Height,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", generation.ErrGenerationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", generation.ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// Network errors and ctx timeouts are worth retrying.
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body",
				slog.String("error", closeErr.Error()))
		}
	}()

	c.logger.Debug("thumbnailer responded",
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("elapsed", time.Since(started)),
		slog.String("object_ref", objectRef))

	// The status code decides the outcome. On error statuses the body is
	// advisory only: a proxy in front of the service may answer with a
	// plain HTML page, and that must not turn a 404 into a retry.
	var decoded generateResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&decoded)

	switch {
	case resp.StatusCode == http.StatusOK:
		if decodeErr != nil {
			return "", fmt.Errorf("%w: decode response: %v", generation.ErrTransientFailure, decodeErr)
		}
		if decoded.URL == "" {
			return "", fmt.Errorf("%w: empty URL in response", generation.ErrGenerationFailed)
		}
		return decoded.URL, nil

	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", generation.ErrSourceNotFound, objectRef)

	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: thumbnailer returned %d: %s",
			generation.ErrTransientFailure, resp.StatusCode, decoded.Error)

	default:
		return "", fmt.Errorf("%w: thumbnailer returned %d: %s",
			generation.ErrGenerationFailed, resp.StatusCode, decoded.Error)
	}
}
