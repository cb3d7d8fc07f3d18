package media

import "context"

// Generator is the boundary to the external media generation service.
// The resolver only knows this interface; the actual resizing, storage
// writes and URL signing happen on the other side.
type Generator interface {
	// Generate resolves the object reference, applies the transform and
	// stores the result, returning the URL of the generated media.
	//
	// Generate must honor ctx cancellation: the resolver applies a
	// per-attempt timeout and cancels jobs no batch awaits anymore.
	// Errors are classified with the generation package's sentinels so
	// the resolver can tell transient failures from permanent ones.
	Generate(ctx context.Context, objectRef string, spec TransformSpec) (string, error)
}
