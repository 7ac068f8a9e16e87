package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"taskflow/internal/auth"
	"taskflow/internal/commands"
	"taskflow/internal/config"
	"taskflow/internal/exitcode"
	"taskflow/internal/localstore"
	"taskflow/internal/service"
	"taskflow/internal/session"
)

// ServiceFactory creates a Service from config.
// Used to inject the backend during dispatch.
type ServiceFactory func(ctx context.Context, cfg *config.Config, lg *log.Logger) (service.Service, error)

// SessionOpener opens the persisted session. The returned closer releases the
// underlying storage.
type SessionOpener func(cfg *config.Config, lg *log.Logger) (*session.Session, io.Closer, error)

// OpenLocalSession opens the session stored in the SQLite file under the
// config directory.
func OpenLocalSession(cfg *config.Config, lg *log.Logger) (*session.Session, io.Closer, error) {
	store, err := localstore.Open(cfg.StoragePath(), lg, cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	sess, err := session.Open(store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return sess, store, nil
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
	opener   SessionOpener
	in       io.Reader
}

// NewDispatcher creates a new dispatcher with the given registry, service
// factory and session opener. A nil opener uses OpenLocalSession.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory, opener SessionOpener) *Dispatcher {
	if opener == nil {
		opener = OpenLocalSession
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
		opener:   opener,
		in:       os.Stdin,
	}
}

// SetInput replaces stdin for commands that read secrets from it.
func (d *Dispatcher) SetInput(in io.Reader) {
	d.in = in
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args runs the default command.
	if len(args) == 0 {
		return d.dispatch(ctx, commands.DefaultCommand, nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatchCommand(ctx, cmd, args[1:], out, errOut)
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
	var apiURL string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.StringVar(&apiURL, "api-url", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		return reportFlagError(errOut, err)
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	if apiURL != "" {
		cfg.SetAPIURL(apiURL)
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	lg := newLogger(debug, errOut)
	lg.Printf("command=%s config=%s api=%s", cmd.Name(), cfg.Dir, cfg.APIURL)

	env := &commands.Env{Config: cfg, Log: lg, In: d.in}

	if cmd.NeedsAuth() || cmd.UsesSession() {
		sess, closer, err := d.opener(cfg, lg)
		if err != nil {
			fmt.Fprintf(errOut, "error: failed to open session storage: %v\n", err)
			return exitcode.UserError
		}
		if closer != nil {
			defer closer.Close()
		}
		env.Session = sess

		// Route guard, evaluated on every protected dispatch.
		if cmd.NeedsAuth() {
			token, err := auth.RequireAuth(sess)
			if err != nil {
				if errors.Is(err, auth.ErrNotLoggedIn) {
					fmt.Fprintln(errOut, "error: not logged in (run: taskflow login)")
				} else {
					fmt.Fprintf(errOut, "error: auth error: %v\n", err)
				}
				return exitcode.AuthError
			}
			env.Token = token
		}

		if d.factory == nil {
			fmt.Fprintln(errOut, "error: no backend configured")
			return exitcode.BackendError
		}
		svc, err := d.factory(ctx, cfg, lg)
		if err != nil {
			fmt.Fprintf(errOut, "error: backend error: %s\n", err)
			return exitcode.BackendError
		}
		env.Service = svc
	}

	return cmd.Run(ctx, env, positionalArgs, out, errOut)
}

// reportFlagError prints a flag parsing error in the CLI's own wording.
func reportFlagError(errOut io.Writer, err error) int {
	errStr := err.Error()

	// Missing flag value
	if strings.Contains(errStr, "needs a value") || strings.Contains(errStr, "flag needs an argument") {
		parts := strings.Split(errStr, ":")
		flagPart := strings.TrimSpace(parts[len(parts)-1])
		fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagPart)
		return exitcode.UserError
	}

	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
		return exitcode.UserError
	}

	fmt.Fprintf(errOut, "error: %s\n", errStr)
	return exitcode.UserError
}

// newLogger returns a stderr logger when debug is set, otherwise one that
// discards everything.
func newLogger(debug bool, errOut io.Writer) *log.Logger {
	if !debug {
		return log.New(io.Discard, "", 0)
	}
	return log.New(errOut, "debug: ", log.Ltime|log.Lmicroseconds)
}
