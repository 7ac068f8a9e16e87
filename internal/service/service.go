// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Service defines the interface for task backend operations.
// All HTTP calls go through this interface; commands never build requests
// themselves.
//
// Authenticated operations take the session token explicitly. An empty token
// sends the request without a credential.
type Service interface {
	// Login exchanges credentials for a session token.
	Login(ctx context.Context, email, password string) (AuthResult, error)

	// Register creates an account and returns a session token for it.
	Register(ctx context.Context, username, email, password string) (AuthResult, error)

	// ListTasks returns the user's tasks in API order.
	ListTasks(ctx context.Context, token string) ([]Task, error)

	// Analytics returns the stats snapshot.
	Analytics(ctx context.Context, token string) (Stats, error)

	// CreateTask creates a task and returns it as stored by the backend.
	CreateTask(ctx context.Context, task NewTask, token string) (Task, error)
}
