// Package migrate moves stored task data forward between schema versions.
//
// The stored version lives in configuration storage, separate from the task
// data. It never decreases: asking for an older version than the stored one
// is a configuration error and leaves storage untouched.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"firetodo/internal/backend"
	"firetodo/internal/task"
)

// KeySchemaVersion is the configuration key holding the stored version.
const KeySchemaVersion = "data_schema_version"

// ErrDowngrade is returned when the requested version is older than the
// stored one.
var ErrDowngrade = errors.New("downgrade not supported")

// VersionStore is the configuration storage holding the schema version.
type VersionStore interface {
	GetInt(ctx context.Context, key string) (int, bool, error)
	PutInt(ctx context.Context, key string, n int) error
}

// StepFunc upgrades stored data to one version. Steps must not assume the
// previous step ran in the same process: an installation may skip versions.
// Returned tasks are handed to the orchestrator on its next load.
type StepFunc func(ctx context.Context, active backend.Backend) ([]task.Task, error)

// Result describes what a Run did.
type Result struct {
	// From is the stored version before Run; equal to To on first run.
	From int
	// To is the version now stored.
	To int
	// FirstRun is true when no version was stored.
	FirstRun bool
	// Ran lists the versions whose steps ran, in order.
	Ran []int
	// Resumed lists already-passed versions whose resumable steps ran again.
	Resumed []int
	// Upgraded holds tasks recovered by the steps.
	Upgraded []task.Task
}

// Migrator runs registered steps for the versions between the stored and
// the requested schema version.
type Migrator struct {
	store     VersionStore
	steps     map[int]StepFunc
	resumable map[int]bool
}

// New creates a Migrator with no steps.
func New(store VersionStore) *Migrator {
	return &Migrator{store: store, steps: make(map[int]StepFunc), resumable: make(map[int]bool)}
}

// Register adds the step that upgrades data to version.
// Registering the same version twice replaces the earlier step.
func (m *Migrator) Register(version int, step StepFunc) {
	m.steps[version] = step
	delete(m.resumable, version)
}

// RegisterResumable adds a step that also runs on every later Run once the
// stored version has passed version. Such a step must be a no-op when it has
// nothing left to do; it finishes work an earlier run could not complete.
func (m *Migrator) RegisterResumable(version int, step StepFunc) {
	m.steps[version] = step
	m.resumable[version] = true
}

// Versions returns the registered step versions in increasing order.
func (m *Migrator) Versions() []int {
	versions := make([]int, 0, len(m.steps))
	for v := range m.steps {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions
}

// Run brings stored data to target. Every step in (stored, target] runs in
// increasing order, then target is stored. Resumable steps at or below the
// stored version run first; their failures are logged and do not stop Run.
// A downgrade returns ErrDowngrade without writing anything. A failing step
// in range aborts Run before the version is stored, so the next start
// retries it.
func (m *Migrator) Run(ctx context.Context, target int, active backend.Backend) (Result, error) {
	if target < 1 {
		return Result{}, fmt.Errorf("invalid schema version: %d", target)
	}

	stored, ok, err := m.store.GetInt(ctx, KeySchemaVersion)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read schema version: %w", err)
	}

	res := Result{From: stored, To: target}
	if !ok {
		// Nothing stored: a fresh installation already has the current layout.
		res.From = target
		res.FirstRun = true
	}

	if target < res.From {
		return Result{}, fmt.Errorf("%w: stored version %d, requested %d", ErrDowngrade, res.From, target)
	}

	for _, v := range m.Versions() {
		if v <= res.From && m.resumable[v] {
			tasks, err := m.steps[v](ctx, active)
			if err != nil {
				slog.Warn("resumed schema step failed", "version", v, "backend", active.Name(), "error", err)
				continue
			}
			if len(tasks) > 0 {
				slog.Info("resumed schema step", "version", v, "backend", active.Name(), "count", len(tasks))
				res.Resumed = append(res.Resumed, v)
				res.Upgraded = append(res.Upgraded, tasks...)
			}
			continue
		}
		if v <= res.From || v > target {
			continue
		}
		slog.Info("running schema upgrade", "version", v, "from", res.From, "to", target, "backend", active.Name())
		tasks, err := m.steps[v](ctx, active)
		if err != nil {
			return Result{}, fmt.Errorf("upgrade to version %d failed: %w", v, err)
		}
		res.Ran = append(res.Ran, v)
		res.Upgraded = append(res.Upgraded, tasks...)
	}

	if err := m.store.PutInt(ctx, KeySchemaVersion, target); err != nil {
		return Result{}, fmt.Errorf("failed to store schema version: %w", err)
	}
	return res, nil
}
