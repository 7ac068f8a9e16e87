package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"taskflow/internal/dashboard"
	"taskflow/internal/exitcode"
	"taskflow/internal/service"
)

// reportBackendError prints a failed backend call and returns its exit code.
// A 401 means the stored session was rejected.
func reportBackendError(errOut io.Writer, err error) int {
	switch {
	case service.IsUnauthorized(err):
		fmt.Fprintln(errOut, "error: session rejected (run: taskflow login)")
		return exitcode.AuthError
	case errors.Is(err, service.ErrNetwork):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	return exitcode.BackendError
}

// loadDashboard loads tasks and stats for the guarded token. On failure the
// dashboard is nil and the exit code is set.
func loadDashboard(ctx context.Context, env *Env, errOut io.Writer) (*dashboard.Dashboard, int) {
	d := dashboard.New(env.Service, env.Token)
	if err := d.Load(ctx); err != nil {
		env.Log.Printf("dashboard load failed: %v", err)
		return nil, reportBackendError(errOut, err)
	}
	return d, exitcode.Success
}
