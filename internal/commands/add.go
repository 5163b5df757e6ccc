package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"firetodo/internal/config"
	"firetodo/internal/exitcode"
	"firetodo/internal/session"
	"firetodo/internal/task"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct{}

func (c *AddCmd) Name() string       { return "add" }
func (c *AddCmd) Aliases() []string  { return []string{"create"} }
func (c *AddCmd) Synopsis() string   { return "Create a task" }
func (c *AddCmd) Usage() string      { return "firetodo add [common flags] <title...>" }
func (c *AddCmd) NeedsSession() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, s *session.Session, args []string, out, errOut io.Writer) int {
	// Join args to form title
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	tasks, err := s.Tasks.Tasks()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}

	// A new task is open, so only an identical open task counts as a duplicate.
	t := task.New(title)
	if task.IndexOf(tasks, t) >= 0 {
		fmt.Fprintf(errOut, "error: task already exists: %s\n", title)
		return exitcode.UserError
	}

	if _, err := s.Tasks.AddTask(ctx, t); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
