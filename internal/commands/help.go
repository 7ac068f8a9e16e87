package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"taskflow/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command. It lists the commands of Registry,
// or of DefaultRegistry when nil.
type HelpCmd struct {
	base
	Registry *Registry
}

func (c *HelpCmd) Name() string     { return "help" }
func (c *HelpCmd) Synopsis() string { return "Print usage" }
func (c *HelpCmd) Usage() string    { return "taskflow help" }

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	reg := c.Registry
	if reg == nil {
		reg = DefaultRegistry
	}
	public, protected := reg.Groups()

	fmt.Fprintln(out, "Usage: taskflow <command> [common flags] [flags] [args]")
	fmt.Fprintf(out, "With no command, taskflow runs %s.\n", DefaultCommand)
	writeCommandGroup(out, "Commands:", public)
	writeCommandGroup(out, "Commands that need a login (run: taskflow login):", protected)
	fmt.Fprint(out, helpFooter)
	return exitcode.Success
}

func writeCommandGroup(w io.Writer, title string, cmds []Command) {
	if len(cmds) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	for _, cmd := range cmds {
		name := cmd.Name()
		if aliases := cmd.Aliases(); len(aliases) > 0 {
			name += " (" + strings.Join(aliases, ", ") + ")"
		}
		fmt.Fprintf(w, "  %-19s %s\n", name, cmd.Synopsis())
		fmt.Fprintf(w, "      %s\n", cmd.Usage())
	}
}

const helpFooter = `
Common flags:
  --config <dir>   Override config directory
  --api-url <url>  Override the backend URL
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Environment (also read from <config dir>/.env):
  TASKFLOW_API_URL   Backend URL
  TASKFLOW_TIMEOUT   Per-request timeout, e.g. 30s
`
