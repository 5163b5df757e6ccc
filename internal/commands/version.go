package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"firetodo/internal/config"
	"firetodo/internal/exitcode"
	"firetodo/internal/migrate"
	"firetodo/internal/session"
)

// Version is the application version. Set at build time.
var Version = "0.1.0"

func init() {
	Register(&VersionCmd{})
}

// VersionCmd implements the version command.
type VersionCmd struct {
	verbose bool
}

func (c *VersionCmd) Name() string       { return "version" }
func (c *VersionCmd) Aliases() []string  { return nil }
func (c *VersionCmd) Synopsis() string   { return "Print version" }
func (c *VersionCmd) Usage() string      { return "firetodo version [-v]" }
func (c *VersionCmd) NeedsSession() bool { return false }

func (c *VersionCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "v", false, "")
}

func (c *VersionCmd) Run(ctx context.Context, cfg *config.Config, s *session.Session, args []string, out, errOut io.Writer) int {
	fmt.Fprintf(out, "firetodo %s\n", Version)
	if c.verbose {
		fmt.Fprintf(out, "schema version %d\n", migrate.CurrentVersion)
	}
	return exitcode.Success
}
