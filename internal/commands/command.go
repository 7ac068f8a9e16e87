// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"
	"log"

	"taskflow/internal/config"
	"taskflow/internal/service"
	"taskflow/internal/session"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a logged-in session.
	// The dispatcher runs the route guard before every such command.
	NeedsAuth() bool

	// UsesSession returns true if the command reads or changes the session
	// without requiring one (login, logout, register).
	UsesSession() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}

// Env is what the dispatcher hands to a command.
type Env struct {
	// Config is always provided.
	Config *config.Config

	// Service and Session are nil unless NeedsAuth or UsesSession.
	Service service.Service
	Session *session.Session

	// Token is the session token that passed the route guard. Empty unless
	// NeedsAuth.
	Token string

	// Log receives debug output.
	Log *log.Logger

	// In is read by --password-stdin.
	In io.Reader
}

// base provides the defaults shared by most commands.
type base struct{}

func (base) Aliases() []string              { return nil }
func (base) NeedsAuth() bool                { return false }
func (base) UsesSession() bool              { return false }
func (base) RegisterFlags(fs *flag.FlagSet) {}
