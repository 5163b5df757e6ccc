// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sync"

	"firetodo/internal/backend"
	"firetodo/internal/task"
)

// FakeBackend is an in-memory implementation of backend.Backend for testing.
// It records every Save attempt.
type FakeBackend struct {
	mu    sync.Mutex
	name  string
	tasks []task.Task
	saves [][]task.Task
	loads int

	// Error injection for testing
	LoadErr error
	SaveErr error

	// LoadGate, when non-nil, blocks Load until it is closed or the
	// context is done.
	LoadGate chan struct{}
}

var _ backend.Backend = (*FakeBackend)(nil)

// NewFakeBackend creates a FakeBackend holding tasks.
func NewFakeBackend(name string, tasks ...task.Task) *FakeBackend {
	return &FakeBackend{name: name, tasks: task.Clone(tasks)}
}

// Name implements backend.Backend.
func (f *FakeBackend) Name() string { return f.name }

// Load implements backend.Backend.
func (f *FakeBackend) Load(ctx context.Context) ([]task.Task, error) {
	if f.LoadGate != nil {
		select {
		case <-f.LoadGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.LoadErr != nil {
		return nil, f.LoadErr
	}
	return task.Clone(f.tasks), nil
}

// Save implements backend.Backend.
func (f *FakeBackend) Save(ctx context.Context, tasks []task.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, task.Clone(tasks))
	if f.SaveErr != nil {
		return f.SaveErr
	}
	f.tasks = task.Clone(tasks)
	return nil
}

// Stored returns the collection currently held.
func (f *FakeBackend) Stored() []task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return task.Clone(f.tasks)
}

// Saves returns every collection passed to Save, including failed attempts.
func (f *FakeBackend) Saves() [][]task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]task.Task, len(f.saves))
	for i, s := range f.saves {
		out[i] = task.Clone(s)
	}
	return out
}

// Loads returns how many times Load completed.
func (f *FakeBackend) Loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}
