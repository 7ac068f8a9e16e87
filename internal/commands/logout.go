package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"taskflow/internal/auth"
	"taskflow/internal/exitcode"
)

func init() {
	Register(&LogoutCmd{})
	Register(&WhoamiCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{ base }

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Synopsis() string  { return "Remove the stored session" }
func (c *LogoutCmd) Usage() string     { return "taskflow logout" }
func (c *LogoutCmd) UsesSession() bool { return true }

func (c *LogoutCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if !env.Session.IsAuthenticated() {
		if !env.Config.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}

	if err := auth.NewFlow(env.Service, env.Session).Logout(); err != nil {
		fmt.Fprintf(errOut, "error: failed to remove session: %v\n", err)
		return exitcode.AuthError
	}

	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// WhoamiCmd prints the stored user and what the token says about itself.
type WhoamiCmd struct{ base }

func (c *WhoamiCmd) Name() string     { return "whoami" }
func (c *WhoamiCmd) Synopsis() string { return "Show the logged-in user" }
func (c *WhoamiCmd) Usage() string    { return "taskflow whoami" }
func (c *WhoamiCmd) NeedsAuth() bool  { return true }

func (c *WhoamiCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	user := env.Session.User()
	switch {
	case user.Username != "" && user.Email != "":
		fmt.Fprintf(out, "user: %s <%s>\n", user.Username, user.Email)
	case user.Email != "":
		fmt.Fprintf(out, "user: %s\n", user.Email)
	default:
		fmt.Fprintln(out, "user: unknown")
	}

	info := auth.Inspect(env.Token)
	if !info.JWT {
		fmt.Fprintln(out, "token: opaque")
		return exitcode.Success
	}
	fmt.Fprintf(out, "token: %s JWT", info.Algorithm)
	if info.Subject != "" {
		fmt.Fprintf(out, ", subject %s", info.Subject)
	}
	if !info.ExpiresAt.IsZero() {
		fmt.Fprintf(out, ", expires %s", info.ExpiresAt.UTC().Format(time.RFC3339))
		if info.Expired(time.Now()) {
			fmt.Fprint(out, " (expired)")
		}
	}
	fmt.Fprintln(out)
	return exitcode.Success
}
