package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"firetodo/internal/config"
	"firetodo/internal/exitcode"
	"firetodo/internal/output"
	"firetodo/internal/session"
)

func init() {
	Register(&StatusCmd{})
}

// StatusCmd implements the status command.
type StatusCmd struct{}

func (c *StatusCmd) Name() string       { return "status" }
func (c *StatusCmd) Aliases() []string  { return nil }
func (c *StatusCmd) Synopsis() string   { return "Show backend, schema version and installation id" }
func (c *StatusCmd) Usage() string      { return "firetodo status [common flags]" }
func (c *StatusCmd) NeedsSession() bool { return true }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, s *session.Session, args []string, out, errOut io.Writer) int {
	tasks, err := s.Tasks.Tasks()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	output.FormatStatus(out, cfg.Dir, s.Info, tasks)
	return exitcode.Success
}
