// Package task provides the bounded queue and worker pool that run
// media-generation jobs off the request path. Page rendering only ever
// enqueues; workers drain the queue with fixed concurrency so a large
// grid cannot fan out into hundreds of simultaneous generations.
package task

import (
	"context"

	"github.com/google/uuid"
)

// Task represents a unit of background work to be processed.
type Task interface {
	// ID returns the task's unique identifier.
	ID() uuid.UUID

	// Type returns the task type identifier, e.g. "generate_thumbnail".
	Type() string

	// Execute runs the task logic. The context is cancelled when the
	// worker pool shuts down.
	Execute(ctx context.Context) error
}

// QueueReader provides read-only access to the task channel, allowing
// workers to consume tasks without the ability to enqueue.
type QueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks.
	GetChannel() <-chan Task
}

// QueueWriter provides write access to the task queue.
type QueueWriter interface {
	// Enqueue adds a task to the queue for processing.
	// Returns an error if the queue is full or closed.
	Enqueue(task Task) error

	// Close closes the task queue, preventing further submission.
	Close()
}
