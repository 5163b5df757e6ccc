// Package taskmanager owns the authoritative in-memory task collection.
//
// A Manager is constructed once at process start and passed to whatever
// consumes task operations. Reads and writes go through it; durable storage
// is reached only through the StateManager it was initialized with.
package taskmanager

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"firetodo/internal/state"
	"firetodo/internal/task"
)

var (
	// ErrNotInitialized is returned by every operation called before Init.
	ErrNotInitialized = errors.New("call Init first")

	// ErrTaskNotFound is returned by updates whose task is not in the collection.
	ErrTaskNotFound = errors.New("task not found")
)

// StateManager is the persistence facade the Manager drives.
type StateManager interface {
	LoadTasks(ctx context.Context)
	SaveTasks(ctx context.Context, tasks []task.Task) <-chan error
	SetChangeListener(l state.Listener)
}

var _ StateManager = (*state.Manager)(nil)

// Observer is notified with a copy of the collection each time a load
// replaces it.
type Observer func(tasks []task.Task)

// Manager is the orchestrator. The zero value is not usable; call New.
type Manager struct {
	mu       sync.Mutex
	sm       StateManager
	gen      uint64
	tasks    []task.Task
	observer Observer
	loaded   chan struct{}
}

// New creates an uninitialized Manager.
func New() *Manager {
	return &Manager{tasks: []task.Task{}}
}

// Init points the Manager at sm, clears the in-memory collection and issues
// a load. Calling Init again re-points the Manager; deliveries still in
// flight from an earlier Init are discarded, whether or not sm changed.
func (m *Manager) Init(ctx context.Context, sm StateManager) error {
	if sm == nil {
		return errors.New("taskmanager: nil state manager")
	}

	m.mu.Lock()
	if m.sm != nil && m.sm != sm {
		// Stop the old facade from calling back into us.
		m.sm.SetChangeListener(nil)
	}
	m.gen++
	gen := m.gen
	m.sm = sm
	m.tasks = []task.Task{}
	m.loaded = make(chan struct{})
	m.mu.Unlock()

	sm.SetChangeListener(func(tasks []task.Task) {
		m.adopt(gen, tasks)
	})
	sm.LoadTasks(ctx)
	return nil
}

// adopt replaces the collection with a delivered snapshot and notifies the
// observer outside the lock.
func (m *Manager) adopt(gen uint64, tasks []task.Task) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		slog.Debug("dropping stale delivery", "generation", gen, "current", m.gen)
		return
	}
	task.AssignIDs(tasks)
	m.tasks = tasks
	select {
	case <-m.loaded:
	default:
		close(m.loaded)
	}
	obs := m.observer
	snapshot := task.Clone(m.tasks)
	m.mu.Unlock()

	if obs != nil {
		obs(snapshot)
	}
}

// Tasks returns a copy of the current collection. It is never nil and is
// empty until the first load is delivered.
func (m *Manager) Tasks() ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sm == nil {
		return nil, ErrNotInitialized
	}
	return task.Clone(m.tasks), nil
}

// AddTask appends t and persists the whole collection. It returns the task
// as stored, with its runtime ID set. No uniqueness check is made here.
func (m *Manager) AddTask(ctx context.Context, t task.Task) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sm == nil {
		return task.Task{}, ErrNotInitialized
	}
	if t.ID == "" {
		t.ID = task.New(t.Title).ID
	}
	m.tasks = append(m.tasks, t)
	m.sm.SaveTasks(ctx, m.tasks)
	return t, nil
}

// UpdateTask replaces the task with the same runtime ID as t and persists
// the collection. The collection is left untouched if no task matches.
func (m *Manager) UpdateTask(ctx context.Context, t task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sm == nil {
		return ErrNotInitialized
	}
	i := task.IndexByID(m.tasks, t.ID)
	if i < 0 {
		return ErrTaskNotFound
	}
	m.tasks[i] = t
	m.sm.SaveTasks(ctx, m.tasks)
	return nil
}

// SetCompleted sets the completion flag of the task with the given ID and
// persists the collection.
func (m *Manager) SetCompleted(ctx context.Context, id string, completed bool) (task.Task, error) {
	return m.modify(ctx, id, func(t *task.Task) { t.Completed = completed })
}

// ToggleTask flips the completion flag of the task with the given ID.
func (m *Manager) ToggleTask(ctx context.Context, id string) (task.Task, error) {
	return m.modify(ctx, id, func(t *task.Task) { t.Completed = !t.Completed })
}

func (m *Manager) modify(ctx context.Context, id string, fn func(*task.Task)) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sm == nil {
		return task.Task{}, ErrNotInitialized
	}
	i := task.IndexByID(m.tasks, id)
	if i < 0 {
		return task.Task{}, ErrTaskNotFound
	}
	fn(&m.tasks[i])
	m.sm.SaveTasks(ctx, m.tasks)
	return m.tasks[i], nil
}

// SetChangeListener registers the single observer, replacing any previous
// one. Passing nil unregisters.
func (m *Manager) SetChangeListener(o Observer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sm == nil {
		return ErrNotInitialized
	}
	m.observer = o
	return nil
}

// WaitLoaded blocks until the load issued by the latest Init has been
// delivered or ctx is done.
func (m *Manager) WaitLoaded(ctx context.Context) error {
	m.mu.Lock()
	if m.sm == nil {
		m.mu.Unlock()
		return ErrNotInitialized
	}
	loaded := m.loaded
	m.mu.Unlock()

	select {
	case <-loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
