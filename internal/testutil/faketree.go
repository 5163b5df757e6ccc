package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"firetodo/internal/backend/remote"
)

// FakeTree is an in-memory implementation of remote.Tree for testing.
type FakeTree struct {
	mu    sync.Mutex
	nodes map[string][]remote.Node
	seq   int
	sets  int

	// Error injection for testing
	ChildrenErr    error
	SetChildrenErr error
}

var _ remote.Tree = (*FakeTree)(nil)

// NewFakeTree creates an empty FakeTree.
func NewFakeTree() *FakeTree {
	return &FakeTree{nodes: make(map[string][]remote.Node)}
}

// Put appends raw child values under path.
func (f *FakeTree) Put(path string, values ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		f.nodes[path] = append(f.nodes[path], f.node(json.RawMessage(v)))
	}
}

// Children implements remote.Tree.
func (f *FakeTree) Children(ctx context.Context, path string) ([]remote.Node, error) {
	if f.ChildrenErr != nil {
		return nil, f.ChildrenErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]remote.Node, len(f.nodes[path]))
	copy(out, f.nodes[path])
	return out, nil
}

// SetChildren implements remote.Tree.
func (f *FakeTree) SetChildren(ctx context.Context, path string, values []json.RawMessage) error {
	if f.SetChildrenErr != nil {
		return f.SetChildrenErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	nodes := make([]remote.Node, 0, len(values))
	for _, v := range values {
		nodes = append(nodes, f.node(v))
	}
	f.nodes[path] = nodes
	return nil
}

// Sets returns how many times SetChildren succeeded.
func (f *FakeTree) Sets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

// Len returns the number of children under path.
func (f *FakeTree) Len(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.nodes[path])
}

func (f *FakeTree) node(v json.RawMessage) remote.Node {
	f.seq++
	return remote.Node{Key: fmt.Sprintf("n%d", f.seq), Value: v}
}
