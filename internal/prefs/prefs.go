// Package prefs provides a durable, namespaced key-value preference store
// backed by SQLite.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	_ "modernc.org/sqlite"
)

// Store owns the SQLite connection holding every namespace.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the preference database at path.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences: %w", err)
	}

	// Single connection: keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("preferences ping failed: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Namespace returns a view of the store scoped to one namespace,
// the equivalent of a named preference file.
func (s *Store) Namespace(name string) *Prefs {
	return &Prefs{db: s.db, ns: name}
}

// Prefs is a namespaced view over a Store.
type Prefs struct {
	db *sql.DB
	ns string
}

// Name returns the namespace name.
func (p *Prefs) Name() string { return p.ns }

// GetString returns the value stored under key.
// ok is false when the key is absent.
func (p *Prefs) GetString(ctx context.Context, key string) (value string, ok bool, err error) {
	err = p.db.QueryRowContext(ctx,
		"SELECT value FROM preferences WHERE namespace = ? AND key = ?",
		p.ns, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s/%s: %w", p.ns, key, err)
	}
	return value, true, nil
}

// PutString stores value under key, replacing any previous value.
func (p *Prefs) PutString(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO preferences (namespace, key, value) VALUES (?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, p.ns, key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", p.ns, key, err)
	}
	return nil
}

// GetInt returns the integer stored under key.
// ok is false when the key is absent.
func (p *Prefs) GetInt(ctx context.Context, key string) (int, bool, error) {
	s, ok, err := p.GetString(ctx, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("invalid integer in %s/%s: %w", p.ns, key, err)
	}
	return n, true, nil
}

// PutInt stores an integer under key.
func (p *Prefs) PutInt(ctx context.Context, key string, n int) error {
	return p.PutString(ctx, key, strconv.Itoa(n))
}

// Remove deletes key. Removing an absent key is not an error.
func (p *Prefs) Remove(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx,
		"DELETE FROM preferences WHERE namespace = ? AND key = ?",
		p.ns, key,
	)
	if err != nil {
		return fmt.Errorf("failed to remove %s/%s: %w", p.ns, key, err)
	}
	return nil
}

func closeQuietly(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Error("error closing preferences db", "error", err)
	}
}
