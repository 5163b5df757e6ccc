// Package logging installs the process-wide slog logger.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

// Init opens the log file at path in append mode and makes a text handler
// writing to it the default slog logger. Info and above are recorded; with
// debug set the level drops to Debug and records are mirrored to stderr.
// The returned Closer closes the log file.
func Init(path string, debug bool, stderr io.Writer) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}

	var w io.Writer = file
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
		if stderr != nil {
			w = io.MultiWriter(file, stderr)
		}
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))

	// Anything still using the standard log package ends up in the same file.
	log.SetOutput(w)
	log.SetFlags(log.LstdFlags)

	return file, nil
}

// Discard routes the default logger nowhere. Used when the log file cannot
// be opened and by tests.
func Discard() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
