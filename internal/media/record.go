package media

import "context"

// State is the resolution state of one media key as reported to clients.
type State string

const (
	// StatePending means generation is queued or running.
	StatePending State = "pending"

	// StateReady means the media exists and ResolvedSrc points at it.
	StateReady State = "ready"

	// StateFailed means generation failed terminally (retries exhausted).
	StateFailed State = "failed"

	// StateExpired means the key is unknown to the queried batch: either
	// the batch's TTL elapsed or the key was never registered in it.
	// Clients stop polling expired keys. It is terminal but not an error.
	StateExpired State = "expired"
)

// Terminal reports whether a client should stop polling a key in this state.
func (s State) Terminal() bool {
	return s != StatePending
}

// ResolutionRecord is the client-visible snapshot of one media key's
// resolution progress.
type ResolutionRecord struct {
	MediaKey    MediaKey `json:"-"`
	State       State    `json:"state"`
	ResolvedSrc string   `json:"resolved_src,omitempty"`
	Err         string   `json:"error,omitempty"`
}

// record is the resolver-owned mutable state behind a ResolutionRecord.
// All fields are guarded by the resolver's registry mutex except ctx,
// which is read-only after creation; cancel is invoked exactly once,
// under the mutex, when the last referencing batch goes away.
type record struct {
	request Request
	state   State
	src     string
	errMsg  string

	// refs counts live started batches awaiting this key. The record is
	// evicted, and its job cancelled if still pending, when refs drops
	// to zero.
	refs int

	ctx    context.Context
	cancel context.CancelFunc
}

func (r *record) snapshot(key MediaKey) ResolutionRecord {
	return ResolutionRecord{
		MediaKey:    key,
		State:       r.state,
		ResolvedSrc: r.src,
		Err:         r.errMsg,
	}
}
