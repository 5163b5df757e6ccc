// Package backend defines the storage-agnostic interface for task persistence.
package backend

import (
	"context"

	"firetodo/internal/task"
)

// Backend performs durable load and save of a whole task collection.
// Everything above this interface is unaware of which store is active;
// only the session wiring imports a concrete implementation.
type Backend interface {
	// Name identifies the backend in logs and status output.
	Name() string

	// Load returns the stored collection in stored order.
	// An empty store yields an empty, non-nil slice.
	Load(ctx context.Context) ([]task.Task, error)

	// Save replaces the stored collection with tasks.
	Save(ctx context.Context, tasks []task.Task) error
}
