// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"strings"
	"time"
)

// Task statuses reported by the backend. Other values pass through unchanged.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusOverdue   = "overdue"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// DefaultCategory is used when a new task has no category.
const DefaultCategory = "General"

// Task represents a single task item as returned by the backend.
type Task struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	DueDate     string `json:"dueDate,omitempty"` // ISO 8601 or empty
	Status      string `json:"status"`
	Priority    string `json:"priority"`
}

// Due parses DueDate. ok is false when the task has no due date or the value
// cannot be parsed.
func (t Task) Due() (due time.Time, ok bool) {
	raw := strings.TrimSpace(t.DueDate)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// NewTask is the payload for creating a task.
type NewTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	DueDate     string `json:"dueDate"` // YYYY-MM-DD or empty
	Priority    string `json:"priority"`
}

// WithDefaults fills in the category and priority the create form starts with.
func (n NewTask) WithDefaults() NewTask {
	if strings.TrimSpace(n.Category) == "" {
		n.Category = DefaultCategory
	}
	if strings.TrimSpace(n.Priority) == "" {
		n.Priority = PriorityMedium
	}
	return n
}

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// StatusCount is one aggregate bucket of the analytics endpoint.
type StatusCount struct {
	ID    string `json:"_id"`
	Count int    `json:"count"`
}

// Stats is the server-computed stats snapshot.
type Stats struct {
	Stats    []StatusCount `json:"stats"`
	DueToday int           `json:"dueToday"`
}

// Count returns the number of tasks with the given status, or 0.
func (s Stats) Count(status string) int {
	for _, c := range s.Stats {
		if c.ID == status {
			return c.Count
		}
	}
	return 0
}

// Total returns the sum over all status buckets.
func (s Stats) Total() int {
	n := 0
	for _, c := range s.Stats {
		n += c.Count
	}
	return n
}

// User is the account returned alongside a session token.
type User struct {
	ID       string `json:"_id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// AuthResult is returned by login and registration.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
