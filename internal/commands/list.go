package commands

import (
	"context"
	"fmt"
	"io"

	"taskflow/internal/exitcode"
	"taskflow/internal/output"
)

func init() {
	Register(&ListCmd{})
	Register(&StatsCmd{})
}

// ListCmd implements the list command, also run by `taskflow` with no args.
type ListCmd struct{ base }

func (c *ListCmd) Name() string     { return "list" }
func (c *ListCmd) Synopsis() string { return "List tasks and quick stats" }
func (c *ListCmd) Usage() string    { return "taskflow list" }
func (c *ListCmd) NeedsAuth() bool  { return true }

func (c *ListCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	d, code := loadDashboard(ctx, env, errOut)
	if d == nil {
		return code
	}
	defer d.Close()

	tasks, _ := d.Snapshot()
	if env.Config.Quiet {
		for i, t := range tasks {
			output.FormatTask(out, i+1, t)
		}
		return exitcode.Success
	}

	output.FormatTasks(out, tasks)
	fmt.Fprintln(out)
	output.FormatQuickStats(out, d.Quick())
	return exitcode.Success
}

// StatsCmd implements the stats command.
type StatsCmd struct{ base }

func (c *StatsCmd) Name() string     { return "stats" }
func (c *StatsCmd) Synopsis() string { return "Show task statistics" }
func (c *StatsCmd) Usage() string    { return "taskflow stats" }
func (c *StatsCmd) NeedsAuth() bool  { return true }

func (c *StatsCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	d, code := loadDashboard(ctx, env, errOut)
	if d == nil {
		return code
	}
	defer d.Close()

	stats, _ := d.Stats()
	output.FormatStats(out, stats)
	fmt.Fprintln(out)
	output.FormatQuickStats(out, d.Quick())
	return exitcode.Success
}
