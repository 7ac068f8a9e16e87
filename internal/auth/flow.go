// Package auth drives login, registration and logout against the session,
// and guards commands that need an authenticated session.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"taskflow/internal/service"
	"taskflow/internal/session"
)

// State is the position of the auth flow.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	Failed
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "error"
	}
	return "unknown"
}

// MinPasswordLength is enforced at registration only.
const MinPasswordLength = 8

// User-facing messages.
const (
	MsgFillAllFields      = "Please fill in all fields"
	MsgPasswordTooShort   = "Password must be at least 8 characters"
	MsgPasswordsMismatch  = "Passwords do not match"
	MsgInvalidCredentials = "Invalid email or password"
	MsgDeactivated        = "Your account has been deactivated"
	MsgNetwork            = "Network error. Please check your connection."
	MsgUnexpected         = "Server returned unexpected response"
	MsgLoginFailed        = "Login failed. Please try again."
	MsgRegisterFailed     = "Registration failed"
)

// ErrNotLoggedIn is returned by RequireAuth when there is no session.
var ErrNotLoggedIn = errors.New("not logged in")

// FlowError is a failure surfaced to the user. Validation failures never
// reached the network.
type FlowError struct {
	Message    string
	Details    string
	Validation bool
	Err        error
}

func (e *FlowError) Error() string { return e.Message }

func (e *FlowError) Unwrap() error { return e.Err }

// RegisterForm is the registration input.
type RegisterForm struct {
	Username string
	Email    string
	Password string
	Confirm  string
}

// Flow moves a session between anonymous and authenticated.
type Flow struct {
	svc  service.Service
	sess *session.Session

	mu    sync.Mutex
	state State
	err   *FlowError
}

// NewFlow creates a flow whose initial state reflects the restored session.
func NewFlow(svc service.Service, sess *session.Session) *Flow {
	f := &Flow{svc: svc, sess: sess, state: Anonymous}
	if sess.IsAuthenticated() {
		f.state = Authenticated
	}
	return f
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the error surfaced by the last failed submit, if any.
func (f *Flow) Err() *FlowError {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Login submits credentials.
func (f *Flow) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return f.fail(&FlowError{Message: MsgFillAllFields, Validation: true})
	}

	f.begin()
	res, err := f.svc.Login(ctx, email, password)
	if err != nil {
		return f.fail(ClassifyLogin(err))
	}
	return f.succeed(res)
}

// Register submits the registration form.
func (f *Flow) Register(ctx context.Context, form RegisterForm) error {
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)
	switch {
	case form.Username == "" || form.Email == "" || form.Password == "" || form.Confirm == "":
		return f.fail(&FlowError{Message: MsgFillAllFields, Validation: true})
	case len(form.Password) < MinPasswordLength:
		return f.fail(&FlowError{Message: MsgPasswordTooShort, Validation: true})
	case form.Password != form.Confirm:
		return f.fail(&FlowError{Message: MsgPasswordsMismatch, Validation: true})
	}

	f.begin()
	res, err := f.svc.Register(ctx, form.Username, form.Email, form.Password)
	if err != nil {
		return f.fail(ClassifyRegister(err))
	}
	return f.succeed(res)
}

// Logout clears the session from storage and memory.
func (f *Flow) Logout() error {
	if err := f.sess.Clear(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Anonymous
	f.err = nil
	return nil
}

func (f *Flow) begin() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Authenticating
	f.err = nil
}

func (f *Flow) succeed(res service.AuthResult) error {
	if err := f.sess.Start(res); err != nil {
		return f.fail(&FlowError{Message: "Could not save session", Details: err.Error(), Err: err})
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Authenticated
	f.err = nil
	return nil
}

func (f *Flow) fail(e *FlowError) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Failed
	f.err = e
	return e
}

// ClassifyLogin maps a login failure to a user-facing message using the
// response status rather than the message text.
func ClassifyLogin(err error) *FlowError {
	fe := &FlowError{Message: MsgLoginFailed, Details: err.Error(), Err: err}
	switch {
	case errors.Is(err, service.ErrNetwork):
		fe.Message = MsgNetwork
	case errors.Is(err, service.ErrUnexpectedResponse):
		fe.Message = MsgUnexpected
	case service.StatusOf(err) == http.StatusUnauthorized:
		fe.Message = MsgInvalidCredentials
	case service.StatusOf(err) == http.StatusForbidden:
		fe.Message = MsgDeactivated
	}
	return fe
}

// ClassifyRegister maps a registration failure to a user-facing message.
// The server's message is shown as is.
func ClassifyRegister(err error) *FlowError {
	fe := &FlowError{Message: MsgRegisterFailed, Details: err.Error(), Err: err}
	var apiErr *service.APIError
	switch {
	case errors.Is(err, service.ErrNetwork):
		fe.Message = MsgNetwork
	case errors.As(err, &apiErr) && apiErr.Message != "":
		fe.Message = apiErr.Message
	}
	return fe
}

// RequireAuth is the route guard for protected commands. It is evaluated on
// every dispatch and returns the current token.
func RequireAuth(sess *session.Session) (string, error) {
	token, err := sess.Token()
	if errors.Is(err, session.ErrNoSession) {
		return "", ErrNotLoggedIn
	}
	return token, err
}
