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
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `firetodo` (no args) and `firetodo list`.
type ListCmd struct {
	open bool
}

// SetOpenOnly hides completed tasks (for testing).
func (c *ListCmd) SetOpenOnly(open bool) {
	c.open = open
}

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "List tasks" }
func (c *ListCmd) Usage() string      { return "firetodo list [common flags] [--open]" }
func (c *ListCmd) NeedsSession() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.open, "open", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, s *session.Session, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	tasks, err := s.Tasks.Tasks()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}

	// Numbers always refer to the full list so done/undo can use them.
	printed := 0
	for i, t := range tasks {
		if c.open && t.Completed {
			continue
		}
		output.FormatTask(out, i+1, t)
		printed++
	}

	if printed == 0 && !cfg.Quiet {
		fmt.Fprintln(out, "no tasks found")
	}
	return exitcode.Success
}
