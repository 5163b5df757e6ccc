package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"firetodo/internal/backend/googletasks"
	"firetodo/internal/commands"
	"firetodo/internal/config"
	"firetodo/internal/exitcode"
	"firetodo/internal/logging"
	"firetodo/internal/migrate"
	"firetodo/internal/session"
)

// closeTimeout bounds how long the dispatcher waits for pending saves.
const closeTimeout = 30 * time.Second

// SessionFactory opens a Session from config.
// Used to inject the persistence stack during dispatch.
type SessionFactory func(ctx context.Context, cfg *config.Config) (*session.Session, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  SessionFactory
}

// NewDispatcher creates a new dispatcher with the given registry and session factory.
// A nil factory opens the session described by the config and checks for
// Google credentials first when the remote backend is selected.
func NewDispatcher(registry *commands.Registry, factory SessionFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var backend string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.StringVar(&backend, "backend", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	// Register command-specific flags
	cmd.RegisterFlags(fs)

	// Parse flags
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", flagError(err))
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	// Load config
	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: config error: %s\n", err)
		return exitcode.AuthError
	}
	if backend != "" {
		cfg.Backend = strings.ToLower(strings.TrimSpace(backend))
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(errOut, "error: %s\n", err)
			return exitcode.UserError
		}
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	if !cmd.NeedsSession() {
		return cmd.Run(ctx, cfg, nil, positionalArgs, out, errOut)
	}

	// Commands that touch tasks get a log file next to their data.
	logFile, err := logging.Init(cfg.LogPath(), cfg.Debug, errOut)
	if err != nil {
		logging.Discard()
	} else {
		defer logFile.Close()
	}

	factory := d.factory
	if factory == nil {
		if code, ok := checkCredentials(cfg, errOut); !ok {
			return code
		}
		factory = func(ctx context.Context, cfg *config.Config) (*session.Session, error) {
			return session.Open(ctx, cfg)
		}
	}

	s, err := factory(ctx, cfg)
	if err != nil {
		slog.Error("failed to open session", "backend", cfg.Backend, "error", err)
		return reportSessionError(err, errOut)
	}

	// Run command
	code := cmd.Run(ctx, cfg, s, positionalArgs, out, errOut)
	slog.Debug("command finished", "command", cmd.Name(), "result", exitcode.Name(code))

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if err := s.Close(closeCtx); err != nil {
		slog.Error("failed to close session", "error", err)
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		if code == exitcode.Success {
			code = exitcode.BackendError
		}
	}
	return code
}

// checkCredentials reports missing Google credentials before a remote
// session is attempted.
func checkCredentials(cfg *config.Config, errOut io.Writer) (int, bool) {
	if cfg.Backend != config.BackendRemote {
		return exitcode.Success, true
	}
	if !cfg.HasOAuthClient() {
		fmt.Fprintf(errOut, "error: oauth_client.json not found in %s\n", cfg.Dir)
		return exitcode.AuthError, false
	}
	if !cfg.HasToken() {
		fmt.Fprintf(errOut, "error: not logged in (run: firetodo login)\n")
		return exitcode.AuthError, false
	}
	return exitcode.Success, true
}

// reportSessionError prints err and maps it to an exit code.
func reportSessionError(err error, errOut io.Writer) int {
	switch {
	case errors.Is(err, migrate.ErrDowngrade):
		fmt.Fprintf(errOut, "error: config error: %v\n", err)
		return exitcode.AuthError
	case errors.Is(err, googletasks.ErrAuth), errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}

// flagError rewrites flag package errors into the CLI's wording.
func flagError(err error) string {
	errStr := err.Error()

	// Check for missing flag value
	if strings.HasPrefix(errStr, "flag needs an argument:") {
		flagPart := strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
		return "flag needs an argument: " + flagPart
	}

	// Check for unknown flag
	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		return "unknown flag: " + strings.TrimPrefix(errStr, "flag provided but not defined: ")
	}

	return errStr
}
