// Package state is the backend-agnostic facade the orchestrator talks to.
//
// A Manager composes a backend.Backend with schema migration and default
// entry synthesis. Loads are asynchronous and deliver exactly one snapshot to
// the listener registered when the load was issued; registering another
// listener drops loads still in flight. Saves are fire-and-forget for the
// caller but report their outcome on a channel and can be awaited with
// Flush.
package state

import (
	"context"
	"log/slog"
	"sync"

	"firetodo/internal/backend"
	"firetodo/internal/migrate"
	"firetodo/internal/task"
)

// Listener receives a full snapshot of the task collection.
// The slice is owned by the listener.
type Listener func(tasks []task.Task)

// Manager mediates every read and write between the orchestrator and the
// active backend.
type Manager struct {
	backend backend.Backend
	log     *slog.Logger

	mu       sync.Mutex
	listener Listener
	// registration counts SetChangeListener calls.
	registration uint64
	upgraded     []task.Task
	// lastSave is closed when the most recently submitted save finishes.
	lastSave chan struct{}

	// inflight counts running loads and saves; idle is closed when it
	// drops back to zero and is nil while nothing runs.
	inflight int
	idle     chan struct{}
}

// NewManager creates a Manager over b without running migrations.
func NewManager(b backend.Backend) *Manager {
	return &Manager{
		backend: b,
		log:     slog.Default().With("backend", b.Name()),
	}
}

// Open runs the migration check for target and returns a Manager over b.
// Tasks recovered by the upgrade are delivered by the first LoadTasks call.
// A downgrade returns an error wrapping migrate.ErrDowngrade.
func Open(ctx context.Context, b backend.Backend, m *migrate.Migrator, target int) (*Manager, migrate.Result, error) {
	res, err := m.Run(ctx, target, b)
	if err != nil {
		return nil, res, err
	}
	sm := NewManager(b)
	if len(res.Upgraded) > 0 {
		sm.upgraded = task.Clone(res.Upgraded)
	}
	return sm, res, nil
}

// Backend returns the active backend.
func (m *Manager) Backend() backend.Backend {
	return m.backend
}

// SetChangeListener registers the single consumer of loaded snapshots.
// It replaces any previous listener; passing nil unregisters. Loads issued
// before the call are not delivered to anyone.
func (m *Manager) SetChangeListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
	m.registration++
}

// LoadTasks starts an asynchronous load and returns immediately.
//
// If a migration left recovered tasks behind, they are delivered instead of
// reading the backend, once. An empty result is replaced by the default
// entries. A failed load is logged and nothing is delivered.
func (m *Manager) LoadTasks(ctx context.Context) {
	m.mu.Lock()
	upgraded := m.upgraded
	m.upgraded = nil
	registration := m.registration
	m.begin()
	m.mu.Unlock()

	go func() {
		defer m.end()

		if len(upgraded) > 0 {
			m.log.Debug("delivering upgraded tasks", "count", len(upgraded))
			m.deliver(registration, upgraded)
			return
		}

		tasks, err := m.backend.Load(ctx)
		if err != nil {
			m.log.Error("failed to load tasks", "error", err)
			return
		}
		if len(tasks) == 0 {
			tasks = task.Defaults()
		}
		m.deliver(registration, tasks)
	}()
}

// SaveTasks persists a copy of tasks in the background. Saves reach the
// backend in submission order. The returned channel receives the outcome
// once and is then closed; callers may ignore it.
func (m *Manager) SaveTasks(ctx context.Context, tasks []task.Task) <-chan error {
	snapshot := task.Clone(tasks)
	done := make(chan error, 1)
	finished := make(chan struct{})

	m.mu.Lock()
	prev := m.lastSave
	m.lastSave = finished
	m.begin()
	m.mu.Unlock()

	go func() {
		defer m.end()
		defer close(done)
		defer close(finished)

		if prev != nil {
			<-prev
		}
		err := m.backend.Save(ctx, snapshot)
		if err != nil {
			m.log.Error("failed to save tasks", "count", len(snapshot), "error", err)
		}
		done <- err
	}()
	return done
}

// Flush waits until no load or save is running, or until ctx is done.
// Work submitted while Flush waits is waited for as well.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	idle := m.idle
	m.mu.Unlock()
	if idle == nil {
		return nil
	}

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// begin requires mu to be held; end acquires it.
func (m *Manager) begin() {
	m.inflight++
	if m.inflight == 1 {
		m.idle = make(chan struct{})
	}
}

func (m *Manager) end() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--
	if m.inflight == 0 {
		close(m.idle)
		m.idle = nil
	}
}

func (m *Manager) deliver(registration uint64, tasks []task.Task) {
	m.mu.Lock()
	l := m.listener
	current := registration == m.registration
	m.mu.Unlock()

	if !current || l == nil {
		m.log.Debug("listener changed or missing, dropping snapshot", "count", len(tasks))
		return
	}
	l(task.Clone(tasks))
}
