package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in
	// the store. This is the generic version of the entity-specific not
	// found errors below.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a
	// duplicate of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation
	// before being stored. Check the wrapped error for details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails, for
	// example because the entity does not exist.
	ErrUpdateFailed = errors.New("update failed")

	// Entity-specific "not found" errors

	// ErrJobNotFound indicates that the requested media job does not
	// exist in the store.
	ErrJobNotFound = fmt.Errorf("%w: media job", ErrNotFound)

	// ErrImageNotFound indicates that the requested image does not
	// exist in the store.
	ErrImageNotFound = fmt.Errorf("%w: image", ErrNotFound)
)
