// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"taskflow/internal/service"
)

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu       sync.Mutex
	tasks    []service.Task
	stats    service.Stats
	accounts map[string]account // email -> account
	nextID   int

	// Token is the only credential protected operations accept.
	// Empty disables the check.
	Token string

	// Error injection for testing
	LoginErr      error
	RegisterErr   error
	ListTasksErr  error
	AnalyticsErr  error
	CreateTaskErr error

	// OmitCreatedID makes CreateTask answer without the task id.
	OmitCreatedID bool

	// AnalyticsGate, when set, blocks Analytics until it is closed or the
	// context ends.
	AnalyticsGate chan struct{}

	// Call counters
	ListTasksCalls  int
	AnalyticsCalls  int
	CreateTaskCalls int
	LoginCalls      int
	RegisterCalls   int
}

type account struct {
	user     service.User
	password string
}

// NewFakeService creates an empty FakeService that accepts token "test-token".
func NewFakeService() *FakeService {
	return &FakeService{
		Token:    "test-token",
		accounts: make(map[string]account),
	}
}

// AddAccount registers credentials that Login will accept.
func (f *FakeService) AddAccount(username, email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.accounts[email] = account{
		user:     service.User{ID: fmt.Sprintf("user-%d", f.nextID), Username: username, Email: email},
		password: password,
	}
}

// AddTask adds a task to the fake backend.
func (f *FakeService) AddTask(task service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
}

// SetStats replaces the analytics snapshot.
func (f *FakeService) SetStats(stats service.Stats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = stats
}

// Tasks returns a copy of the stored tasks.
func (f *FakeService) Tasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// ListTasksCount returns ListTasksCalls under the lock, for tests that poll
// while requests are in flight.
func (f *FakeService) ListTasksCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ListTasksCalls
}

func (f *FakeService) authorize(token string) error {
	if f.Token != "" && token != f.Token {
		return &service.APIError{Status: http.StatusUnauthorized, Message: "Not authorized"}
	}
	return nil
}

// Login implements service.Service.
func (f *FakeService) Login(ctx context.Context, email, password string) (service.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoginCalls++
	if f.LoginErr != nil {
		return service.AuthResult{}, f.LoginErr
	}
	acc, ok := f.accounts[email]
	if !ok || acc.password != password {
		return service.AuthResult{}, &service.APIError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	}
	return service.AuthResult{Token: f.Token, User: acc.user}, nil
}

// Register implements service.Service.
func (f *FakeService) Register(ctx context.Context, username, email, password string) (service.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RegisterCalls++
	if f.RegisterErr != nil {
		return service.AuthResult{}, f.RegisterErr
	}
	if _, exists := f.accounts[email]; exists {
		return service.AuthResult{}, &service.APIError{Status: http.StatusBadRequest, Message: "User already exists"}
	}
	f.nextID++
	acc := account{
		user:     service.User{ID: fmt.Sprintf("user-%d", f.nextID), Username: username, Email: email},
		password: password,
	}
	f.accounts[email] = acc
	return service.AuthResult{Token: f.Token, User: acc.user}, nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, token string) ([]service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListTasksCalls++
	if err := f.authorize(token); err != nil {
		return nil, err
	}
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out, nil
}

// Analytics implements service.Service.
func (f *FakeService) Analytics(ctx context.Context, token string) (service.Stats, error) {
	f.mu.Lock()
	f.AnalyticsCalls++
	gate := f.AnalyticsGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return service.Stats{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.authorize(token); err != nil {
		return service.Stats{}, err
	}
	if f.AnalyticsErr != nil {
		return service.Stats{}, f.AnalyticsErr
	}
	return f.stats, nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, task service.NewTask, token string) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateTaskCalls++
	if err := f.authorize(token); err != nil {
		return service.Task{}, err
	}
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	f.nextID++
	created := service.Task{
		ID:          fmt.Sprintf("task-%d", f.nextID),
		Title:       task.Title,
		Description: task.Description,
		Category:    task.Category,
		DueDate:     task.DueDate,
		Status:      service.StatusPending,
		Priority:    task.Priority,
	}
	f.tasks = append(f.tasks, created)
	if f.OmitCreatedID {
		created.ID = ""
	}
	return created, nil
}

// MemoryStorage is an in-memory session.Storage.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string

	// SetErr, when set, fails every Set of FailKey, or every Set when
	// FailKey is empty.
	SetErr  error
	FailKey string
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

// Get implements session.Storage.
func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements session.Storage.
func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil && (m.FailKey == "" || m.FailKey == key) {
		return m.SetErr
	}
	m.values[key] = value
	return nil
}

// Remove implements session.Storage.
func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Has reports whether key is stored.
func (m *MemoryStorage) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}
