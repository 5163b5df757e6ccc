// Package main is the entry point for the firetodo CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"firetodo/internal/cli"
	"firetodo/internal/commands"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// A nil factory opens the session selected by config and flags.
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	// Run and exit with code
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
