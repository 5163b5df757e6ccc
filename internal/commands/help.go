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
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "firetodo help" }
func (c *HelpCmd) NeedsSession() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, s *session.Session, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, HelpText(DefaultRegistry))
	return exitcode.Success
}

// HelpText renders usage for every command in r.
func HelpText(r *Registry) string {
	var b strings.Builder
	b.WriteString("Usage:\n")
	fmt.Fprintf(&b, "  %-44s %s\n", "firetodo", "List all tasks")
	for _, cmd := range r.All() {
		fmt.Fprintf(&b, "  %-44s %s\n", cmd.Usage(), cmd.Synopsis())
	}
	b.WriteString(commonFlagsHelp)
	return b.String()
}

const commonFlagsHelp = `
Common flags:
  --config <dir>     Override config directory
  --backend <name>   Task store to use: local or remote
  --quiet            Suppress informational output
  --debug            Print debug logs to stderr

Settings are read from config.yaml in the config directory.
FIRETODO_BACKEND overrides the backend setting.
`
