// Package api implements the HTTP surface of the async media service:
// the server-rendered browse page and the start/status endpoints its
// polling client talks to.
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/seagrid/asyncmedia/internal/api/shared"
	"github.com/seagrid/asyncmedia/internal/media"
)

// MediaHandler handles the async media wire protocol.
type MediaHandler struct {
	resolver *media.Resolver
	logger   *slog.Logger
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(resolver *media.Resolver, logger *slog.Logger) *MediaHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaHandler{
		resolver: resolver,
		logger:   logger.With(slog.String("component", "media_handler")),
	}
}

// StartGeneration handles POST /async_media/start requests.
//
// A batch ID must have been issued by a previous page render. Requiring
// it keeps arbitrary crafted requests from kicking off generation work,
// which is why this is a separate POST rather than part of the poll GET.
func (h *MediaHandler) StartGeneration(w http.ResponseWriter, r *http.Request) {
	var req StartGenerationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: batch_id is required")
		return
	}

	if err := h.resolver.StartBatch(req.BatchID); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	// 202: the work happens on the worker pool, not in this request.
	shared.RespondWithJSON(w, r, http.StatusAccepted, StartGenerationResponse{Success: true})
}

// Status handles GET /async_media/status requests.
//
// Query parameters: batch_id (required) and keys, a comma-separated list
// of media keys; omitting keys means all keys in the batch. The response
// maps each key to {state, resolved_src|null, error|null}. Keys unknown
// to the batch report state "expired" so the client stops polling them.
func (h *MediaHandler) Status(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batch_id")
	if batchID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "batch_id is required")
		return
	}

	var keys []media.MediaKey
	if raw := r.URL.Query().Get("keys"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, media.MediaKey(k))
			}
		}
	}

	records := h.resolver.Status(batchID, keys)

	resp := StatusResponse{Results: make(map[string]MediaStatus, len(records))}
	for key, rec := range records {
		resp.Results[string(key)] = toMediaStatus(rec)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
