package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"firetodo/internal/config"
	"firetodo/internal/exitcode"
	"firetodo/internal/session"
	"firetodo/internal/taskmanager"
)

func init() {
	Register(&DoneCmd{})
	Register(&UndoCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string       { return "done" }
func (c *DoneCmd) Aliases() []string  { return []string{"complete"} }
func (c *DoneCmd) Synopsis() string   { return "Mark a task completed" }
func (c *DoneCmd) Usage() string      { return "firetodo done [common flags] <n>" }
func (c *DoneCmd) NeedsSession() bool { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, s *session.Session, args []string, out, errOut io.Writer) int {
	return runSetCompleted(ctx, cfg, s, args, true, out, errOut)
}

// UndoCmd implements the undo command.
type UndoCmd struct{}

func (c *UndoCmd) Name() string       { return "undo" }
func (c *UndoCmd) Aliases() []string  { return []string{"reopen"} }
func (c *UndoCmd) Synopsis() string   { return "Mark a task open again" }
func (c *UndoCmd) Usage() string      { return "firetodo undo [common flags] <n>" }
func (c *UndoCmd) NeedsSession() bool { return true }

func (c *UndoCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UndoCmd) Run(ctx context.Context, cfg *config.Config, s *session.Session, args []string, out, errOut io.Writer) int {
	return runSetCompleted(ctx, cfg, s, args, false, out, errOut)
}

// runSetCompleted is the shared implementation for done and undo.
func runSetCompleted(ctx context.Context, cfg *config.Config, s *session.Session, args []string, completed bool, out, errOut io.Writer) int {
	// Parse task number
	num, err := ParseTaskNum(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	tasks, err := s.Tasks.Tasks()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	if num > len(tasks) {
		fmt.Fprintf(errOut, "error: task number out of range: %d\n", num)
		return exitcode.UserError
	}

	if _, err := s.Tasks.SetCompleted(ctx, tasks[num-1].ID, completed); err != nil {
		if errors.Is(err, taskmanager.ErrTaskNotFound) {
			fmt.Fprintf(errOut, "error: task number out of range: %d\n", num)
			return exitcode.UserError
		}
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
