package migrate

import (
	"context"
	"fmt"
	"log/slog"

	"firetodo/internal/backend"
	"firetodo/internal/task"
)

// CurrentVersion is the schema version this build expects.
const CurrentVersion = 2

// LegacyStore is the version 1 local copy.
type LegacyStore interface {
	backend.Backend
	Clear(ctx context.Context) error
}

// Default returns a Migrator with every known upgrade step registered.
func Default(store VersionStore, legacy LegacyStore) *Migrator {
	m := New(store)
	m.RegisterResumable(2, MoveLegacyTasks(legacy))
	return m
}

// MoveLegacyTasks returns the 1 -> 2 step. It merges the version 1 local
// tasks into the active backend and deletes the legacy copy only after the
// active backend accepted them. A legacy task is skipped when the active
// backend already holds a task with the same title, so running the step
// again after a partial transfer does not duplicate tasks.
//
// If the transfer fails the legacy copy stays and the step runs again on
// the next start. The returned collection is handed to the orchestrator
// either way.
func MoveLegacyTasks(legacy LegacyStore) StepFunc {
	return func(ctx context.Context, active backend.Backend) ([]task.Task, error) {
		tasks, err := legacy.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read legacy tasks: %w", err)
		}
		if len(tasks) == 0 {
			return nil, nil
		}

		existing, err := active.Load(ctx)
		if err != nil {
			slog.Warn("active backend unreadable, keeping legacy copy",
				"backend", active.Name(), "count", len(tasks), "error", err)
			return tasks, nil
		}
		merged := mergeByTitle(existing, tasks)

		if err := active.Save(ctx, merged); err != nil {
			slog.Warn("legacy tasks not transferred, keeping legacy copy",
				"backend", active.Name(), "count", len(tasks), "error", err)
			return merged, nil
		}

		if err := legacy.Clear(ctx); err != nil {
			slog.Warn("failed to delete legacy tasks", "error", err)
		}
		slog.Info("moved legacy tasks", "backend", active.Name(), "count", len(tasks))
		return merged, nil
	}
}

// mergeByTitle appends the tasks of extra whose title is not in base.
func mergeByTitle(base, extra []task.Task) []task.Task {
	seen := make(map[string]bool, len(base))
	for _, t := range base {
		seen[t.Title] = true
	}
	merged := task.Clone(base)
	for _, t := range extra {
		if !seen[t.Title] {
			merged = append(merged, t)
		}
	}
	return merged
}
