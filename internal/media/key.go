// Package media implements the asynchronous batched media-resolution
// protocol: deterministic media keys, per-page batches of deferred media
// requests, and a resolver that generates derived media in the background
// while pages render with placeholders.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/seagrid/asyncmedia/internal/domain"
)

// Kind identifies the method of generation for a derived media item.
type Kind string

const (
	// KindThumbnail is a scaled-down rendition of an original image.
	KindThumbnail Kind = "thumb"

	// KindPatch is a fixed-size crop around an annotation point.
	KindPatch Kind = "patch"
)

// TransformSpec describes the derived media to produce from a source
// object: the kind of transform and the target dimensions in pixels.
type TransformSpec struct {
	Kind   Kind
	Width  int
	Height int
}

// Validate checks the spec for well-formedness. It never touches storage.
func (s TransformSpec) Validate() error {
	switch s.Kind {
	case KindThumbnail, KindPatch:
	default:
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidSpec, s.Kind)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: dimensions must be positive, got %dx%d",
			domain.ErrInvalidSpec, s.Width, s.Height)
	}
	return nil
}

// MediaKey is an opaque, deterministic identifier for one derived media
// item. Equal (object, spec) inputs always map to equal keys; distinct
// inputs collide only with sha256 probability.
type MediaKey string

// keyDigestLen is the number of digest bytes kept in the key. 16 bytes
// (32 hex chars) is plenty for uniqueness while keeping keys short
// enough for data attributes and query strings.
const keyDigestLen = 16

// DeriveKey computes the media key for a (source object, transform spec)
// pair. It is a pure function, safe for concurrent use, and fails only
// with domain.ErrInvalidSpec on malformed input.
//
// The key is prefixed with the transform kind for log readability, but
// nothing may be parsed back out of it: the full request travels
// alongside the key wherever generation needs it.
func DeriveKey(objectRef string, spec TransformSpec) (MediaKey, error) {
	if objectRef == "" {
		return "", fmt.Errorf("%w: empty object ref", domain.ErrInvalidSpec)
	}
	if err := spec.Validate(); err != nil {
		return "", err
	}

	h := sha256.New()
	// NUL separators keep ("ab","c") and ("a","bc") from colliding.
	fmt.Fprintf(h, "%s\x00%s\x00%dx%d", spec.Kind, objectRef, spec.Width, spec.Height)
	digest := h.Sum(nil)

	return MediaKey(fmt.Sprintf("%s:%s", spec.Kind, hex.EncodeToString(digest[:keyDigestLen]))), nil
}

// PlaceholderPath returns the static path of the sized "loading" asset
// shown while the real media resolves.
func PlaceholderPath(spec TransformSpec) string {
	return fmt.Sprintf("/static/img/placeholders/media-loading__%dx%d.png",
		spec.Width, spec.Height)
}

// NotFoundPath returns the static path of the sized "unavailable" asset
// shown when generation fails or the batch expires.
func NotFoundPath(spec TransformSpec) string {
	return fmt.Sprintf("/static/img/placeholders/media-image-not-found__%dx%d.png",
		spec.Width, spec.Height)
}
