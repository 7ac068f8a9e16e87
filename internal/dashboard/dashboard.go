// Package dashboard holds the task list and stats snapshot shown to a
// logged-in user.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"taskflow/internal/service"
)

// Phase is the load state of a dashboard.
type Phase int

const (
	Loading Phase = iota
	Ready
	Failed
	Closed
)

// ErrTitleRequired is returned by CreateTask for a blank title.
var ErrTitleRequired = errors.New("title required")

// ErrInvalidPriority is returned by CreateTask for an unknown priority.
var ErrInvalidPriority = errors.New("invalid priority")

// ErrRefreshFailed wraps the error of the stats refresh that follows a
// successful CreateTask. The task exists when it is returned.
var ErrRefreshFailed = errors.New("stats refresh failed")

// ErrClosed is returned by operations on a closed dashboard.
var ErrClosed = errors.New("dashboard closed")

// QuickStats are the headline counters.
type QuickStats struct {
	DueToday  int
	Pending   int
	Completed int
}

// Dashboard is the session-scoped copy of the user's tasks and stats.
//
// Tasks and stats are only consistent with each other right after Load or
// after a CreateTask that refreshed the stats.
type Dashboard struct {
	svc   service.Service
	token string

	mu    sync.Mutex
	phase Phase
	err   error
	tasks []service.Task
	stats *service.Stats
	gen   uint64 // bumped by Close; fetches started under an older gen are dropped
}

// New creates an unloaded dashboard for the given session token.
func New(svc service.Service, token string) *Dashboard {
	return &Dashboard{svc: svc, token: token, phase: Loading}
}

// Load fetches tasks and stats concurrently. Either both are applied or, if
// either request fails, neither is and the dashboard is Failed.
func (d *Dashboard) Load(ctx context.Context) error {
	d.mu.Lock()
	if d.phase == Closed {
		d.mu.Unlock()
		return ErrClosed
	}
	gen := d.gen
	d.phase = Loading
	d.mu.Unlock()

	var (
		tasks []service.Task
		stats service.Stats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = d.svc.ListTasks(gctx, d.token)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = d.svc.Analytics(gctx, d.token)
		return err
	})
	err := g.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen != gen {
		return ErrClosed
	}
	if err != nil {
		d.phase = Failed
		d.err = err
		return err
	}
	if tasks == nil {
		tasks = []service.Task{}
	}
	d.tasks = tasks
	d.stats = &stats
	d.phase = Ready
	d.err = nil
	return nil
}

// CreateTask creates a task, appends it to the local list and then refreshes
// the stats. The append is not rolled back if the refresh fails.
func (d *Dashboard) CreateTask(ctx context.Context, nt service.NewTask) (service.Task, error) {
	nt = nt.WithDefaults()
	if strings.TrimSpace(nt.Title) == "" {
		return service.Task{}, ErrTitleRequired
	}
	if !service.ValidPriority(nt.Priority) {
		return service.Task{}, fmt.Errorf("%w: %s", ErrInvalidPriority, nt.Priority)
	}

	d.mu.Lock()
	if d.phase == Closed {
		d.mu.Unlock()
		return service.Task{}, ErrClosed
	}
	gen := d.gen
	d.mu.Unlock()

	created, err := d.svc.CreateTask(ctx, nt, d.token)
	if err != nil {
		return service.Task{}, d.surface(gen, err)
	}
	if !d.apply(gen, func() { d.tasks = append(d.tasks, created) }) {
		return created, ErrClosed
	}

	stats, err := d.svc.Analytics(ctx, d.token)
	if err != nil {
		return created, d.surface(gen, fmt.Errorf("%w: %w", ErrRefreshFailed, err))
	}
	d.apply(gen, func() { d.stats = &stats })
	return created, nil
}

// apply runs fn under the lock unless the dashboard was closed since gen.
func (d *Dashboard) apply(gen uint64, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen != gen {
		return false
	}
	fn()
	return true
}

// surface records err as the dashboard error, unless closed since gen.
func (d *Dashboard) surface(gen uint64, err error) error {
	d.apply(gen, func() { d.err = err })
	return err
}

// Close detaches the dashboard. In-flight results are discarded.
func (d *Dashboard) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.phase = Closed
	d.tasks = nil
	d.stats = nil
}

// Phase returns the load state.
func (d *Dashboard) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// Err returns the last surfaced error.
func (d *Dashboard) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Tasks returns a copy of the task list. Empty unless Ready.
func (d *Dashboard) Tasks() []service.Task {
	tasks, _ := d.Snapshot()
	return tasks
}

// Snapshot returns a copy of the task list. ok is false when the dashboard
// has nothing to show: not loaded yet, failed, or closed.
func (d *Dashboard) Snapshot() (tasks []service.Task, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase != Ready {
		return nil, false
	}
	out := make([]service.Task, len(d.tasks))
	copy(out, d.tasks)
	return out, true
}

// Stats returns the latest stats snapshot. ok is false when none was fetched
// or the last load failed.
func (d *Dashboard) Stats() (service.Stats, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase == Failed || d.stats == nil {
		return service.Stats{}, false
	}
	return *d.stats, true
}

// Quick returns the headline counters, zero when stats are unavailable.
func (d *Dashboard) Quick() QuickStats {
	s, _ := d.Stats()
	return QuickStats{
		DueToday:  s.DueToday,
		Pending:   s.Count(service.StatusPending),
		Completed: s.Count(service.StatusCompleted),
	}
}
