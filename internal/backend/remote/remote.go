// Package remote implements backend.Backend over a networked tree store.
// The collection lives under one node keyed by the installation ID; each
// child is one task record.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"firetodo/internal/backend"
	"firetodo/internal/task"
)

// CacheNamespace is the preference namespace holding offline snapshots.
const CacheNamespace = "firetodo.remote-cache"

// Node is one child of a tree node.
type Node struct {
	Key   string
	Value json.RawMessage
}

// Tree is a remote hierarchical store.
type Tree interface {
	// Children returns the children of path in stored order.
	// A path that does not exist has no children.
	Children(ctx context.Context, path string) ([]Node, error)

	// SetChildren replaces every child of path with values, in order.
	SetChildren(ctx context.Context, path string, values []json.RawMessage) error
}

// Cache is the local persistence layer kept next to the remote copy.
type Cache interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	PutString(ctx context.Context, key, value string) error
}

// Backend stores tasks as children of one remote node.
type Backend struct {
	tree  Tree
	path  string
	cache Cache
}

var _ backend.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithCache keeps a local snapshot of every successful fetch and save, and
// serves it when the remote cannot be reached.
func WithCache(c Cache) Option {
	return func(b *Backend) { b.cache = c }
}

// New creates a remote backend rooted at the node named installID.
func New(tree Tree, installID string, opts ...Option) (*Backend, error) {
	if installID == "" {
		return nil, errors.New("remote backend requires an installation ID")
	}
	b := &Backend{tree: tree, path: installID}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return "remote" }

// Path returns the remote node holding the collection.
func (b *Backend) Path() string { return b.path }

// Load implements backend.Backend. It reads the node once.
// Children that are not valid task records are skipped.
func (b *Backend) Load(ctx context.Context) ([]task.Task, error) {
	nodes, err := b.tree.Children(ctx, b.path)
	if err != nil {
		if cached, ok := b.cached(ctx); ok {
			slog.Warn("remote unreachable, using offline snapshot", "path", b.path, "error", err)
			return cached, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", b.path, err)
	}

	tasks := make([]task.Task, 0, len(nodes))
	for _, n := range nodes {
		t, ok := task.DecodeRecord(n.Value)
		if !ok {
			slog.Debug("skipping unparseable remote task", "path", b.path, "key", n.Key)
			continue
		}
		tasks = append(tasks, t)
	}

	b.remember(ctx, tasks)
	return tasks, nil
}

// Save implements backend.Backend. The offline snapshot is written before
// the remote so a later offline load sees the newest collection.
func (b *Backend) Save(ctx context.Context, tasks []task.Task) error {
	values := make([]json.RawMessage, 0, len(tasks))
	for _, t := range tasks {
		v, err := task.EncodeRecord(t)
		if err != nil {
			return fmt.Errorf("failed to encode task: %w", err)
		}
		values = append(values, v)
	}

	b.remember(ctx, tasks)

	if err := b.tree.SetChildren(ctx, b.path, values); err != nil {
		return fmt.Errorf("failed to save %s: %w", b.path, err)
	}
	return nil
}

func (b *Backend) cacheKey() string {
	return "snapshot:" + b.path
}

func (b *Backend) cached(ctx context.Context) ([]task.Task, bool) {
	if b.cache == nil {
		return nil, false
	}
	data, ok, err := b.cache.GetString(ctx, b.cacheKey())
	if err != nil || !ok {
		return nil, false
	}
	tasks, err := task.DecodeList([]byte(data))
	if err != nil {
		return nil, false
	}
	return tasks, true
}

func (b *Backend) remember(ctx context.Context, tasks []task.Task) {
	if b.cache == nil {
		return
	}
	data, err := task.EncodeList(tasks)
	if err != nil {
		return
	}
	if err := b.cache.PutString(ctx, b.cacheKey(), string(data)); err != nil {
		slog.Warn("failed to update offline snapshot", "path", b.path, "error", err)
	}
}
