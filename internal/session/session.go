// Package session assembles the persistence stack for one process run:
// preference store, installation ID, active backend, migration, state
// manager and the task orchestrator.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"firetodo/internal/backend"
	"firetodo/internal/backend/googletasks"
	"firetodo/internal/backend/local"
	"firetodo/internal/backend/remote"
	"firetodo/internal/config"
	"firetodo/internal/install"
	"firetodo/internal/migrate"
	"firetodo/internal/prefs"
	"firetodo/internal/state"
	"firetodo/internal/taskmanager"
)

// ErrNotLoaded is returned when the first load did not arrive in time.
var ErrNotLoaded = errors.New("tasks did not load")

// TreeFactory creates the remote tree used by the remote backend.
type TreeFactory func(ctx context.Context, cfg *config.Config) (remote.Tree, error)

// Info describes the opened session.
type Info struct {
	Backend       string
	SchemaVersion int
	InstallID     string
	Migration     migrate.Result
}

// Session is an opened persistence stack. Close it before exit so pending
// saves reach storage.
type Session struct {
	Tasks *taskmanager.Manager
	State *state.Manager
	Info  Info

	store *prefs.Store
}

type options struct {
	tree TreeFactory
}

// Option configures Open.
type Option func(*options)

// WithTree replaces the Google Tasks tree used by the remote backend.
func WithTree(f TreeFactory) Option {
	return func(o *options) { o.tree = f }
}

func defaultTree(ctx context.Context, cfg *config.Config) (remote.Tree, error) {
	return googletasks.New(ctx, cfg)
}

// Open builds the stack described by cfg, runs the schema migration and
// waits up to cfg.Remote.Timeout for the first load.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Session, error) {
	o := options{tree: defaultTree}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.EnsureDir(); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	store, err := prefs.Open(ctx, cfg.PrefsPath())
	if err != nil {
		return nil, err
	}

	s, err := open(ctx, cfg, store, o)
	if err != nil {
		if cerr := store.Close(); cerr != nil {
			slog.Error("failed to close preferences", "error", cerr)
		}
		return nil, err
	}
	return s, nil
}

func open(ctx context.Context, cfg *config.Config, store *prefs.Store, o options) (*Session, error) {
	settings := store.Namespace(config.PrefsNamespace)

	installID, err := install.ID(ctx, settings)
	if err != nil {
		return nil, err
	}

	active, err := activeBackend(ctx, cfg, store, installID, o)
	if err != nil {
		return nil, err
	}

	legacy := local.NewLegacy(store.Namespace(local.LegacyNamespace))
	sm, res, err := state.Open(ctx, active, migrate.Default(settings, legacy), cfg.SchemaVersion)
	if err != nil {
		return nil, err
	}
	if len(res.Ran) > 0 {
		slog.Info("schema upgraded", "from", res.From, "to", res.To, "steps", res.Ran, "recovered", len(res.Upgraded))
	}
	if len(res.Resumed) > 0 {
		slog.Info("finished interrupted upgrade", "steps", res.Resumed, "recovered", len(res.Upgraded))
	}

	tm := taskmanager.New()
	if err := tm.Init(ctx, sm); err != nil {
		return nil, err
	}

	s := &Session{
		Tasks: tm,
		State: sm,
		Info: Info{
			Backend:       active.Name(),
			SchemaVersion: res.To,
			InstallID:     installID,
			Migration:     res,
		},
		store: store,
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.Remote.Timeout)
	defer cancel()
	if err := tm.WaitLoaded(waitCtx); err != nil {
		// Let whatever is still pending settle before the store is closed.
		s.flush(ctx)
		return nil, fmt.Errorf("%w from %s backend: %v", ErrNotLoaded, active.Name(), err)
	}
	return s, nil
}

func activeBackend(ctx context.Context, cfg *config.Config, store *prefs.Store, installID string, o options) (backend.Backend, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		return local.New(store.Namespace(local.Namespace)), nil
	case config.BackendRemote:
		tree, err := o.tree(ctx, cfg)
		if err != nil {
			return nil, err
		}
		var opts []remote.Option
		if cfg.OfflineCacheEnabled() {
			opts = append(opts, remote.WithCache(store.Namespace(remote.CacheNamespace)))
		}
		return remote.New(tree, installID, opts...)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// Flush waits for pending saves.
func (s *Session) Flush(ctx context.Context) error {
	return s.State.Flush(ctx)
}

func (s *Session) flush(ctx context.Context) {
	waitCtx, cancel := context.WithTimeout(ctx, googletasks.APITimeout)
	defer cancel()
	if err := s.State.Flush(waitCtx); err != nil {
		slog.Warn("pending operations did not finish", "error", err)
	}
}

// Close waits for pending saves until ctx is done and closes the
// preference store.
func (s *Session) Close(ctx context.Context) error {
	flushErr := s.State.Flush(ctx)
	if flushErr != nil {
		flushErr = fmt.Errorf("pending saves did not finish: %w", flushErr)
	}
	return errors.Join(flushErr, s.store.Close())
}
