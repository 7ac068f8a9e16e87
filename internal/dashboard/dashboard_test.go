package dashboard_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"taskflow/internal/dashboard"
	"taskflow/internal/service"
	"taskflow/internal/testutil"
)

func seeded() *testutil.FakeService {
	svc := testutil.NewFakeService()
	svc.AddTask(service.Task{ID: "1", Title: "Buy milk", Status: service.StatusPending, Priority: service.PriorityLow})
	svc.AddTask(service.Task{ID: "2", Title: "File taxes", Status: service.StatusCompleted, Priority: service.PriorityHigh})
	svc.SetStats(service.Stats{
		Stats:    []service.StatusCount{{ID: service.StatusPending, Count: 1}, {ID: service.StatusCompleted, Count: 1}},
		DueToday: 1,
	})
	return svc
}

func TestLoad_Success(t *testing.T) {
	svc := seeded()
	d := dashboard.New(svc, "test-token")

	if err := d.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Phase() != dashboard.Ready {
		t.Errorf("expected Ready, got %v", d.Phase())
	}
	if len(d.Tasks()) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(d.Tasks()))
	}
	q := d.Quick()
	if q != (dashboard.QuickStats{DueToday: 1, Pending: 1, Completed: 1}) {
		t.Errorf("unexpected quick stats %+v", q)
	}
	if svc.ListTasksCalls != 1 || svc.AnalyticsCalls != 1 {
		t.Errorf("expected one call each, got tasks=%d analytics=%d", svc.ListTasksCalls, svc.AnalyticsCalls)
	}
}

func TestLoad_AnalyticsFailureShowsNoPartialList(t *testing.T) {
	svc := seeded()
	svc.AnalyticsErr = &service.APIError{Status: http.StatusInternalServerError, Message: "Something went wrong"}
	d := dashboard.New(svc, "test-token")

	err := d.Load(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if d.Phase() != dashboard.Failed {
		t.Errorf("expected Failed, got %v", d.Phase())
	}
	if _, ok := d.Snapshot(); ok {
		t.Error("tasks must not be shown when analytics failed")
	}
	if len(d.Tasks()) != 0 {
		t.Errorf("expected no tasks, got %d", len(d.Tasks()))
	}
	if d.Err() == nil || d.Err().Error() != "Something went wrong" {
		t.Errorf("expected surfaced error, got %v", d.Err())
	}
}

func TestLoad_TasksFailure(t *testing.T) {
	svc := seeded()
	svc.ListTasksErr = errors.New("boom")
	d := dashboard.New(svc, "test-token")

	if err := d.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := d.Stats(); ok {
		t.Error("stats must not be shown when tasks failed")
	}
}

func TestLoad_RequestsAreConcurrent(t *testing.T) {
	svc := seeded()
	svc.AnalyticsGate = make(chan struct{})
	d := dashboard.New(svc, "test-token")

	done := make(chan error, 1)
	go func() { done <- d.Load(context.Background()) }()

	// Tasks are fetched while analytics is still blocked.
	deadline := time.After(2 * time.Second)
	for svc.ListTasksCount() != 1 {
		select {
		case <-deadline:
			t.Fatal("tasks were not requested while analytics was pending")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if d.Phase() != dashboard.Loading {
		t.Errorf("expected Loading while analytics is pending, got %v", d.Phase())
	}

	close(svc.AnalyticsGate)
	if err := <-done; err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestClose_DiscardsInFlightLoad(t *testing.T) {
	svc := seeded()
	svc.AnalyticsGate = make(chan struct{})
	d := dashboard.New(svc, "test-token")

	done := make(chan error, 1)
	go func() { done <- d.Load(context.Background()) }()

	d.Close()
	close(svc.AnalyticsGate)

	if err := <-done; !errors.Is(err, dashboard.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, ok := d.Snapshot(); ok {
		t.Error("closed dashboard must not expose tasks")
	}
}

func TestCreateTask_AppendsOnceAndRefreshesOnce(t *testing.T) {
	svc := seeded()
	d := dashboard.New(svc, "test-token")
	if err := d.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	before := svc.AnalyticsCalls
	svc.SetStats(service.Stats{Stats: []service.StatusCount{{ID: service.StatusPending, Count: 2}}})

	created, err := d.CreateTask(context.Background(), service.NewTask{Title: "Call mom"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Category != service.DefaultCategory || created.Priority != service.PriorityMedium {
		t.Errorf("expected form defaults, got %+v", created)
	}

	tasks := d.Tasks()
	if len(tasks) != 3 || tasks[2].Title != "Call mom" {
		t.Fatalf("expected task appended at the end, got %+v", tasks)
	}
	if svc.ListTasksCalls != 1 {
		t.Errorf("create must not re-fetch the list, got %d list calls", svc.ListTasksCalls)
	}
	if svc.AnalyticsCalls-before != 1 {
		t.Errorf("expected exactly one analytics refresh, got %d", svc.AnalyticsCalls-before)
	}
	if d.Quick().Pending != 2 {
		t.Errorf("expected refreshed stats, got %+v", d.Quick())
	}
}

func TestCreateTask_RefreshFailureKeepsInsert(t *testing.T) {
	svc := seeded()
	d := dashboard.New(svc, "test-token")
	_ = d.Load(context.Background())
	svc.AnalyticsErr = errors.New("analytics down")

	_, err := d.CreateTask(context.Background(), service.NewTask{Title: "Call mom"})
	if !errors.Is(err, dashboard.ErrRefreshFailed) {
		t.Fatalf("expected ErrRefreshFailed, got %v", err)
	}
	if err.Error() != "stats refresh failed: analytics down" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if len(d.Tasks()) != 3 {
		t.Errorf("optimistic insert must survive a refresh failure, got %d tasks", len(d.Tasks()))
	}
	if d.Err() == nil {
		t.Error("expected error surfaced")
	}
}

func TestCreateTask_CreateFailureIsNotRefreshFailure(t *testing.T) {
	svc := seeded()
	d := dashboard.New(svc, "test-token")
	_ = d.Load(context.Background())
	svc.CreateTaskErr = errors.New("create down")

	_, err := d.CreateTask(context.Background(), service.NewTask{Title: "Call mom"})
	if err == nil || errors.Is(err, dashboard.ErrRefreshFailed) {
		t.Fatalf("expected a plain create failure, got %v", err)
	}
	if len(d.Tasks()) != 2 {
		t.Errorf("failed create must not insert, got %d tasks", len(d.Tasks()))
	}
}

func TestCreateTask_Validation(t *testing.T) {
	svc := seeded()
	d := dashboard.New(svc, "test-token")

	if _, err := d.CreateTask(context.Background(), service.NewTask{Title: "  "}); !errors.Is(err, dashboard.ErrTitleRequired) {
		t.Errorf("expected ErrTitleRequired, got %v", err)
	}
	if _, err := d.CreateTask(context.Background(), service.NewTask{Title: "x", Priority: "urgent"}); !errors.Is(err, dashboard.ErrInvalidPriority) {
		t.Errorf("expected ErrInvalidPriority, got %v", err)
	}
	if svc.CreateTaskCalls != 0 {
		t.Errorf("validation failures must not reach the backend, got %d calls", svc.CreateTaskCalls)
	}
}
