// Package local implements backend.Backend on top of a key-value preference
// store. The whole collection is a JSON array under one key.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"firetodo/internal/backend"
	"firetodo/internal/task"
)

const (
	// Namespace is the preference namespace holding the active local copy.
	Namespace = "firetodo.tasks"

	// Key is the key of the active local copy.
	Key = "tasks"

	// LegacyNamespace is where schema version 1 kept its tasks.
	LegacyNamespace = "firetodo.legacy"

	// LegacyKey is the key schema version 1 used.
	LegacyKey = "savedTasks"
)

// KV is the subset of a preference store the backend needs.
type KV interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	PutString(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Backend stores tasks as JSON under a single key.
type Backend struct {
	kv   KV
	key  string
	name string
}

var _ backend.Backend = (*Backend)(nil)

// New creates the active local backend.
func New(kv KV) *Backend {
	return &Backend{kv: kv, key: Key, name: "local"}
}

// NewLegacy creates a backend over the schema version 1 record.
// It is only read by the migrator.
func NewLegacy(kv KV) *Backend {
	return &Backend{kv: kv, key: LegacyKey, name: "local-legacy"}
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return b.name }

// Load implements backend.Backend.
// A missing key or malformed JSON yields an empty collection.
func (b *Backend) Load(ctx context.Context) ([]task.Task, error) {
	data, ok, err := b.kv.GetString(ctx, b.key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []task.Task{}, nil
	}

	tasks, err := task.DecodeList([]byte(data))
	if errors.Is(err, task.ErrMalformed) {
		slog.Warn("ignoring malformed saved tasks", "backend", b.name, "error", err)
		return []task.Task{}, nil
	}
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Save implements backend.Backend.
func (b *Backend) Save(ctx context.Context, tasks []task.Task) error {
	data, err := task.EncodeList(tasks)
	if err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}
	return b.kv.PutString(ctx, b.key, string(data))
}

// Clear removes the stored record.
func (b *Backend) Clear(ctx context.Context) error {
	return b.kv.Remove(ctx, b.key)
}
