package api

import "github.com/seagrid/asyncmedia/internal/media"

// StartGenerationRequest is the body of POST /async_media/start.
type StartGenerationRequest struct {
	BatchID string `json:"batch_id" validate:"required"`
}

// StartGenerationResponse acknowledges that generation was kicked off.
type StartGenerationResponse struct {
	Success bool `json:"success"`
}

// MediaStatus is the wire form of one key's resolution record:
// resolved_src is non-null iff ready, error is non-null iff failed.
type MediaStatus struct {
	State       string  `json:"state"`
	ResolvedSrc *string `json:"resolved_src"`
	Error       *string `json:"error"`
}

// StatusResponse maps media keys to their resolution status.
type StatusResponse struct {
	Results map[string]MediaStatus `json:"results"`
}

// toMediaStatus converts a resolution record to its wire form.
func toMediaStatus(rec media.ResolutionRecord) MediaStatus {
	status := MediaStatus{State: string(rec.State)}
	if rec.State == media.StateReady {
		src := rec.ResolvedSrc
		status.ResolvedSrc = &src
	}
	if rec.State == media.StateFailed {
		msg := rec.Err
		status.Error = &msg
	}
	return status
}
