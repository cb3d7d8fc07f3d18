// Package generation classifies the errors of the external media
// generation boundary. Implementations of media.Generator wrap these
// sentinels so the resolver can tell transient failures from permanent
// ones.
package generation

import "errors"

// Common errors returned by the generation package.
var (
	// ErrGenerationFailed is returned when media generation fails for a
	// general, permanent reason (corrupt source, unsupported format).
	ErrGenerationFailed = errors.New("failed to generate media")

	// ErrSourceNotFound is returned when the object reference does not
	// resolve to an existing original in storage.
	ErrSourceNotFound = errors.New("source object not found")

	// ErrTransientFailure is returned for temporary errors that might
	// resolve on retry (storage hiccups, service overload).
	ErrTransientFailure = errors.New("transient error during media generation")

	// ErrInvalidConfig is returned when the generator configuration is
	// invalid.
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
