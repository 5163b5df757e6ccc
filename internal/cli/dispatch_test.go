package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"firetodo/internal/cli"
	"firetodo/internal/commands"
	"firetodo/internal/config"
	"firetodo/internal/exitcode"
	"firetodo/internal/migrate"
	"firetodo/internal/session"
)

// failingFactory creates a session factory that always returns err.
func failingFactory(err error) cli.SessionFactory {
	return func(ctx context.Context, cfg *config.Config) (*session.Session, error) {
		return nil, err
	}
}

// run dispatches args with a fresh config directory.
func run(t *testing.T, factory cli.SessionFactory, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	t.Setenv(config.EnvBackend, "")
	dir := t.TempDir()
	return runIn(t, dir, factory, args...)
}

func runIn(t *testing.T, dir string, factory cli.SessionFactory, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	// --config goes first: flag parsing stops at the first positional argument.
	full := append([]string{args[0], "--config", dir}, args[1:]...)

	var outBuf, errBuf bytes.Buffer
	code = dispatcher.Run(context.Background(), full, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	_, stderr, code := run(t, nil, "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"--quiet"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	stdout, stderr, code := run(t, nil, "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	stdout, stderr, code := run(t, nil, "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "firetodo 0.1.0\n" {
		t.Errorf("expected 'firetodo 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	_, stderr, code := run(t, nil, "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"help", "--config"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -config\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_UnknownBackend(t *testing.T) {
	_, stderr, code := run(t, nil, "list", "--backend", "firebase")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.Contains(stderr, `unknown backend "firebase"`) {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_BadConfigFile(t *testing.T) {
	t.Setenv(config.EnvBackend, "")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte("backend: [\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := runIn(t, dir, nil, "list")

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.HasPrefix(stderr, "error: config error:") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_DefaultsToList(t *testing.T) {
	t.Setenv(config.EnvBackend, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), nil, &stdout, &stderr)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr.String())
	}
	expected := "   1  [x] Start Learning Go!\n   2  [ ] Keep Learning Go!\n"
	if stdout.String() != expected {
		t.Errorf("expected %q, got %q", expected, stdout.String())
	}
}

func TestDispatcher_AddThenList(t *testing.T) {
	t.Setenv(config.EnvBackend, "")
	dir := t.TempDir()

	if _, stderr, code := runIn(t, dir, nil, "add", "Buy", "milk"); code != exitcode.Success {
		t.Fatalf("add failed: %d %q", code, stderr)
	}
	if _, stderr, code := runIn(t, dir, nil, "done", "3"); code != exitcode.Success {
		t.Fatalf("done failed: %d %q", code, stderr)
	}

	stdout, _, code := runIn(t, dir, nil, "ls")
	if code != exitcode.Success {
		t.Fatalf("list failed: %d", code)
	}
	if !strings.HasSuffix(stdout, "   3  [x] Buy milk\n") {
		t.Errorf("unexpected list output %q", stdout)
	}

	// Commands that touch tasks write a log file.
	if _, err := os.Stat(filepath.Join(dir, config.LogFile)); err != nil {
		t.Errorf("expected log file: %v", err)
	}
}

func TestDispatcher_RemoteWithoutCredentials(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(dir string)
		stderr string
	}{
		{
			name:   "no oauth client",
			setup:  func(dir string) {},
			stderr: "error: oauth_client.json not found in ",
		},
		{
			name: "no token",
			setup: func(dir string) {
				os.WriteFile(filepath.Join(dir, config.OAuthClientFile), []byte(`{}`), 0600)
			},
			stderr: "error: not logged in (run: firetodo login)\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(config.EnvBackend, "")
			dir := t.TempDir()
			tt.setup(dir)

			_, stderr, code := runIn(t, dir, nil, "list", "--backend", "remote")

			if code != exitcode.AuthError {
				t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
			}
			if !strings.HasPrefix(stderr, tt.stderr) {
				t.Errorf("expected stderr starting with %q, got %q", tt.stderr, stderr)
			}
		})
	}
}

func TestDispatcher_SessionErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		prefix string
	}{
		{"downgrade", migrate.ErrDowngrade, exitcode.AuthError, "error: config error:"},
		{"missing file", os.ErrNotExist, exitcode.AuthError, "error: auth error:"},
		{"not loaded", session.ErrNotLoaded, exitcode.BackendError, "error: backend error:"},
		{"other", errors.New("boom"), exitcode.BackendError, "error: backend error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := run(t, failingFactory(tt.err), "list")
			if code != tt.code {
				t.Errorf("expected exit code %d, got %d", tt.code, code)
			}
			if !strings.HasPrefix(stderr, tt.prefix) {
				t.Errorf("expected stderr starting with %q, got %q", tt.prefix, stderr)
			}
		})
	}
}
