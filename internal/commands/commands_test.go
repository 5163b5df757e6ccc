package commands_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"firetodo/internal/backend/local"
	"firetodo/internal/commands"
	"firetodo/internal/config"
	"firetodo/internal/exitcode"
	"firetodo/internal/prefs"
	"firetodo/internal/session"
	"firetodo/internal/task"
	"firetodo/internal/testutil"
)

// newConfig returns a local-backend config in a fresh directory.
func newConfig(t *testing.T, quiet bool) *config.Config {
	t.Helper()
	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatalf("config.New: %v", err)
	}
	cfg.Quiet = quiet
	cfg.Remote.Timeout = 2 * time.Second
	return cfg
}

// seedTasks stores tasks in the local backend before any session opens.
func seedTasks(t *testing.T, cfg *config.Config, tasks ...task.Task) {
	t.Helper()
	ctx := context.Background()
	if err := cfg.EnsureDir(); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	store, err := prefs.Open(ctx, cfg.PrefsPath())
	if err != nil {
		t.Fatalf("prefs.Open: %v", err)
	}
	defer store.Close()
	if err := local.New(store.Namespace(local.Namespace)).Save(ctx, tasks); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

// runCommand opens a session on cfg, runs cmd and closes the session.
func runCommand(t *testing.T, cmd commands.Command, cfg *config.Config, args []string) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer
	ctx := context.Background()

	var s *session.Session
	if cmd.NeedsSession() {
		var err error
		s, err = session.Open(ctx, cfg)
		if err != nil {
			t.Fatalf("session.Open: %v", err)
		}
	}

	code = cmd.Run(ctx, cfg, s, args, &outBuf, &errBuf)

	if s != nil {
		closeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.Close(closeCtx); err != nil {
			t.Fatalf("session.Close: %v", err)
		}
	}
	return outBuf.String(), errBuf.String(), code
}

// listOutput runs the list command on cfg and returns its stdout.
func listOutput(t *testing.T, cfg *config.Config) string {
	t.Helper()
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, cfg, nil)
	if code != exitcode.Success || stderr != "" {
		t.Fatalf("list failed: code=%d stderr=%q", code, stderr)
	}
	return stdout
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	cmd := &commands.VersionCmd{}

	stdout, stderr, code := runCommand(t, cmd, newConfig(t, false), nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "firetodo 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	cmd := &commands.HelpCmd{}

	stdout, stderr, code := runCommand(t, cmd, newConfig(t, false), nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	for _, want := range []string{"Usage:", "firetodo add", "firetodo done", "firetodo status", "--backend"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

// Tests for list command
func TestListCommand_FirstRunShowsDefaults(t *testing.T) {
	stdout := listOutput(t, newConfig(t, false))

	expected := "   1  [x] Start Learning Go!\n   2  [ ] Keep Learning Go!\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestListCommand_StoredTasks(t *testing.T) {
	cfg := newConfig(t, false)
	seedTasks(t, cfg, task.Task{Title: "Buy milk"}, task.Task{Title: "Buy eggs", Completed: true})

	stdout := listOutput(t, cfg)

	expected := "   1  [ ] Buy milk\n   2  [x] Buy eggs\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestListCommand_OpenOnlyKeepsNumbers(t *testing.T) {
	cfg := newConfig(t, false)
	seedTasks(t, cfg, task.Task{Title: "A", Completed: true}, task.Task{Title: "B"})

	cmd := &commands.ListCmd{}
	cmd.SetOpenOnly(true)
	stdout, _, code := runCommand(t, cmd, cfg, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "   2  [ ] B\n" {
		t.Errorf("expected only the open task, got %q", stdout)
	}
}

func TestListCommand_OpenOnlyNothingOpen(t *testing.T) {
	cfg := newConfig(t, false)
	seedTasks(t, cfg, task.Task{Title: "A", Completed: true})

	cmd := &commands.ListCmd{}
	cmd.SetOpenOnly(true)
	stdout, _, _ := runCommand(t, cmd, cfg, nil)

	if stdout != "no tasks found\n" {
		t.Errorf("expected 'no tasks found', got %q", stdout)
	}
}

func TestListCommand_UnexpectedArgument(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.ListCmd{}, newConfig(t, false), []string{"Shopping"})

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: unexpected argument: Shopping\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for add command
func TestAddCommand(t *testing.T) {
	cfg := newConfig(t, false)
	seedTasks(t, cfg, task.Task{Title: "A"})

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, cfg, []string{"Buy", "milk"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}

	// The new task survives the session.
	expected := "   1  [ ] A\n   2  [ ] Buy milk\n"
	if got := listOutput(t, cfg); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	stdout, _, code := runCommand(t, &commands.AddCmd{}, newConfig(t, true), []string{"x"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout in quiet mode, got %q", stdout)
	}
}

func TestAddCommand_TitleRequired(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no args", nil},
		{"blank", []string{"   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runCommand(t, &commands.AddCmd{}, newConfig(t, false), tt.args)
			if code != exitcode.UserError {
				t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
			}
			if stderr != "error: title required\n" {
				t.Errorf("unexpected stderr %q", stderr)
			}
		})
	}
}

func TestAddCommand_RejectsDuplicate(t *testing.T) {
	cfg := newConfig(t, false)
	seedTasks(t, cfg, task.Task{Title: "Buy milk"})

	_, stderr, code := runCommand(t, &commands.AddCmd{}, cfg, []string{"Buy milk"})

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task already exists: Buy milk\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestAddCommand_CompletedTitleIsNotDuplicate(t *testing.T) {
	cfg := newConfig(t, false)
	seedTasks(t, cfg, task.Task{Title: "Buy milk", Completed: true})

	_, _, code := runCommand(t, &commands.AddCmd{}, cfg, []string{"Buy milk"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	expected := "   1  [x] Buy milk\n   2  [ ] Buy milk\n"
	if got := listOutput(t, cfg); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

// Tests for done and undo commands
func TestDoneCommand(t *testing.T) {
	cfg := newConfig(t, false)
	seedTasks(t, cfg, task.Task{Title: "A"}, task.Task{Title: "B"})

	stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, cfg, []string{"2"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}

	expected := "   1  [ ] A\n   2  [x] B\n"
	if got := listOutput(t, cfg); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestUndoCommand(t *testing.T) {
	cfg := newConfig(t, false)
	seedTasks(t, cfg, task.Task{Title: "A", Completed: true})

	_, _, code := runCommand(t, &commands.UndoCmd{}, cfg, []string{"1"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if got := listOutput(t, cfg); got != "   1  [ ] A\n" {
		t.Errorf("expected task reopened, got %q", got)
	}
}

func TestDoneCommand_Errors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		stderr string
	}{
		{"missing", nil, "error: task reference required\n"},
		{"invalid", []string{"a1"}, "error: invalid task reference: a1\n"},
		{"zero", []string{"0"}, "error: task number out of range: 0\n"},
		{"out of range", []string{"3"}, "error: task number out of range: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runCommand(t, &commands.DoneCmd{}, newConfig(t, false), tt.args)
			if code != exitcode.UserError {
				t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
			}
			if stderr != tt.stderr {
				t.Errorf("expected %q, got %q", tt.stderr, stderr)
			}
		})
	}
}

// Tests for status command
func TestStatusCommand(t *testing.T) {
	cfg := newConfig(t, false)

	stdout, stderr, code := runCommand(t, &commands.StatusCmd{}, cfg, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	for _, want := range []string{
		"backend:         local\n",
		"schema version:  2\n",
		"config dir:      " + cfg.Dir + "\n",
		"tasks:           2 (1 done, 1 open)\n",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("status output missing %q:\n%s", want, stdout)
		}
	}
}

func TestRegistry_Aliases(t *testing.T) {
	for alias, name := range map[string]string{
		"ls":       "list",
		"create":   "add",
		"complete": "done",
		"reopen":   "undo",
		"LIST":     "list",
	} {
		cmd, ok := commands.DefaultRegistry.Find(alias)
		if !ok {
			t.Errorf("alias %q not registered", alias)
			continue
		}
		if cmd.Name() != name {
			t.Errorf("alias %q resolves to %q, want %q", alias, cmd.Name(), name)
		}
	}
}

func TestHelpCommand_Golden(t *testing.T) {
	stdout, _, _ := runCommand(t, &commands.HelpCmd{}, newConfig(t, false), nil)
	testutil.GoldenString(t, "help", stdout)
}
