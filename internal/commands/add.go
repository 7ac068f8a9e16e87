package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"taskflow/internal/dashboard"
	"taskflow/internal/exitcode"
	"taskflow/internal/service"
)

func init() {
	Register(&AddCmd{})
	Register(&CreateCmd{})
}

// taskFlags are the optional fields of the create form.
type taskFlags struct {
	description string
	category    string
	due         string
	priority    string
}

func (f *taskFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.description, "description", "", "")
	fs.StringVar(&f.description, "d", "", "")
	fs.StringVar(&f.category, "category", service.DefaultCategory, "")
	fs.StringVar(&f.category, "c", service.DefaultCategory, "")
	fs.StringVar(&f.due, "due", "", "")
	fs.StringVar(&f.priority, "priority", service.PriorityMedium, "")
	fs.StringVar(&f.priority, "p", service.PriorityMedium, "")
}

// AddCmd implements the add command.
type AddCmd struct {
	base
	flags taskFlags
}

func (c *AddCmd) Name() string     { return "add" }
func (c *AddCmd) Synopsis() string { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "taskflow add [--description <text>] [--category <name>] [--due YYYY-MM-DD] [--priority low|medium|high] <title...>"
}
func (c *AddCmd) NeedsAuth() bool                { return true }
func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) { c.flags.register(fs) }

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	return runAdd(ctx, env, c.flags, args, out, errOut)
}

// CreateCmd is an alias for AddCmd.
type CreateCmd struct {
	base
	flags taskFlags
}

func (c *CreateCmd) Name() string     { return "create" }
func (c *CreateCmd) Synopsis() string { return "Create a task (alias for add)" }
func (c *CreateCmd) Usage() string {
	return "taskflow create [--description <text>] [--category <name>] [--due YYYY-MM-DD] [--priority low|medium|high] <title...>"
}
func (c *CreateCmd) NeedsAuth() bool                { return true }
func (c *CreateCmd) RegisterFlags(fs *flag.FlagSet) { c.flags.register(fs) }

func (c *CreateCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	return runAdd(ctx, env, c.flags, args, out, errOut)
}

// runAdd is the shared implementation for add and create commands.
func runAdd(ctx context.Context, env *Env, flags taskFlags, args []string, out, errOut io.Writer) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	due := strings.TrimSpace(flags.due)
	if due != "" {
		if _, err := time.Parse("2006-01-02", due); err != nil {
			fmt.Fprintf(errOut, "error: invalid due date: %s (want YYYY-MM-DD)\n", due)
			return exitcode.UserError
		}
	}

	d := dashboard.New(env.Service, env.Token)
	defer d.Close()

	created, err := d.CreateTask(ctx, service.NewTask{
		Title:       title,
		Description: flags.description,
		Category:    strings.TrimSpace(flags.category),
		DueDate:     due,
		Priority:    strings.ToLower(strings.TrimSpace(flags.priority)),
	})
	switch {
	case errors.Is(err, dashboard.ErrTitleRequired):
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	case errors.Is(err, dashboard.ErrInvalidPriority):
		fmt.Fprintf(errOut, "error: invalid priority: %s (want low, medium or high)\n", flags.priority)
		return exitcode.UserError
	case errors.Is(err, dashboard.ErrRefreshFailed):
		env.Log.Printf("created task %q, %v", created.ID, err)
		fmt.Fprintf(errOut, "error: task created but %v\n", err)
		return exitcode.BackendError
	case err != nil:
		return reportBackendError(errOut, err)
	}

	env.Log.Printf("created task %s", created.ID)
	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
