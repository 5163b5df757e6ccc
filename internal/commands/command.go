// Package commands implements the firetodo subcommands.
//
// Each command registers itself with DefaultRegistry from an init function.
// Commands that touch tasks receive an open session and act through its
// task manager; saves they trigger are flushed when the dispatcher closes
// the session.
package commands

import (
	"context"
	"flag"
	"io"

	"firetodo/internal/config"
	"firetodo/internal/session"
)

// Command is a firetodo subcommand.
type Command interface {
	Name() string
	Aliases() []string

	// Synopsis and Usage feed the generated help text.
	Synopsis() string
	Usage() string

	// NeedsSession reports whether Run needs the task list loaded.
	// The dispatcher only opens the persistence stack when it does.
	NeedsSession() bool

	// RegisterFlags adds flags beyond the common ones.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command with positional args and returns an exit code.
	// s is nil unless NeedsSession returns true.
	Run(ctx context.Context, cfg *config.Config, s *session.Session, args []string, out, errOut io.Writer) int
}
