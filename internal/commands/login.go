package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskflow/internal/auth"
	"taskflow/internal/exitcode"
	"taskflow/internal/service"
)

func init() {
	Register(&LoginCmd{})
	Register(&RegisterCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	base
	email         string
	password      string
	passwordStdin bool
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Synopsis() string  { return "Log in with email and password" }
func (c *LoginCmd) Usage() string     { return "taskflow login --email <email> [--password <p> | --password-stdin]" }
func (c *LoginCmd) UsesSession() bool { return true }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
	fs.BoolVar(&c.passwordStdin, "password-stdin", false, "")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	password := c.password
	if c.passwordStdin {
		if password != "" {
			fmt.Fprintln(errOut, "error: --password and --password-stdin are mutually exclusive")
			return exitcode.UserError
		}
		lines, err := readLines(env.In, 1)
		if err != nil {
			fmt.Fprintf(errOut, "error: reading password: %v\n", err)
			return exitcode.UserError
		}
		password = lines[0]
	}

	flow := auth.NewFlow(env.Service, env.Session)
	if err := flow.Login(ctx, c.email, password); err != nil {
		return reportFlowError(env, errOut, err)
	}

	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	base
	username      string
	email         string
	password      string
	confirm       string
	passwordStdin bool
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create an account and log in" }
func (c *RegisterCmd) Usage() string {
	return "taskflow register --username <name> --email <email> [--password <p> --confirm <p> | --password-stdin]"
}
func (c *RegisterCmd) UsesSession() bool { return true }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.username, "username", "", "")
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.confirm, "confirm", "", "")
	fs.BoolVar(&c.passwordStdin, "password-stdin", false, "")
}

func (c *RegisterCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	form := auth.RegisterForm{
		Username: c.username,
		Email:    c.email,
		Password: c.password,
		Confirm:  c.confirm,
	}
	if c.passwordStdin {
		if c.password != "" || c.confirm != "" {
			fmt.Fprintln(errOut, "error: --password and --password-stdin are mutually exclusive")
			return exitcode.UserError
		}
		// Password, then confirmation.
		lines, err := readLines(env.In, 2)
		if err != nil {
			fmt.Fprintf(errOut, "error: reading password: %v\n", err)
			return exitcode.UserError
		}
		form.Password, form.Confirm = lines[0], lines[1]
	}

	flow := auth.NewFlow(env.Service, env.Session)
	if err := flow.Register(ctx, form); err != nil {
		return reportFlowError(env, errOut, err)
	}

	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// reportFlowError prints a login or registration failure and returns its exit
// code.
func reportFlowError(env *Env, errOut io.Writer, err error) int {
	var fe *auth.FlowError
	if !errors.As(err, &fe) {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	if fe.Details != "" {
		env.Log.Printf("auth failure: %s", fe.Details)
	}
	fmt.Fprintf(errOut, "error: %s\n", fe.Message)
	switch {
	case fe.Validation:
		return exitcode.UserError
	case errors.Is(fe, service.ErrNetwork):
		return exitcode.BackendError
	}
	return exitcode.AuthError
}

// readLines reads n lines from r with trailing CR/LF removed.
func readLines(r io.Reader, n int) ([]string, error) {
	if r == nil {
		return nil, errors.New("no input")
	}
	sc := bufio.NewScanner(r)
	lines := make([]string, 0, n)
	for len(lines) < n && sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) < n {
		return nil, fmt.Errorf("expected %d line(s) on stdin, got %d", n, len(lines))
	}
	return lines, nil
}
