package auth_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskflow/internal/auth"
	"taskflow/internal/service"
	"taskflow/internal/session"
	"taskflow/internal/testutil"
)

func newFlow(t *testing.T, svc *testutil.FakeService) (*auth.Flow, *session.Session, *testutil.MemoryStorage) {
	t.Helper()
	store := testutil.NewMemoryStorage()
	sess, err := session.Open(store)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return auth.NewFlow(svc, sess), sess, store
}

func TestLogin_Success(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddAccount("ada", "ada@example.com", "correct-horse")
	flow, sess, store := newFlow(t, svc)

	if err := flow.Login(context.Background(), "ada@example.com", "correct-horse"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flow.State() != auth.Authenticated {
		t.Errorf("expected authenticated, got %s", flow.State())
	}
	if flow.Err() != nil {
		t.Errorf("expected error cleared, got %v", flow.Err())
	}

	// Restart restores the session from storage.
	restored, _ := session.Open(store)
	if !restored.IsAuthenticated() {
		t.Error("expected session restored from storage")
	}
	if token, _ := sess.Token(); token != "test-token" {
		t.Errorf("expected token test-token, got %q", token)
	}
	if auth.NewFlow(svc, restored).State() != auth.Authenticated {
		t.Error("flow over restored session should start authenticated")
	}
}

func TestLogin_SessionWriteFailure(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddAccount("ada", "ada@example.com", "correct-horse")
	flow, sess, store := newFlow(t, svc)
	store.SetErr = errors.New("disk full")
	store.FailKey = session.UserKey

	err := flow.Login(context.Background(), "ada@example.com", "correct-horse")

	var fe *auth.FlowError
	if !errors.As(err, &fe) || fe.Message != "Could not save session" {
		t.Fatalf("expected save failure, got %v", err)
	}
	if flow.State() != auth.Failed {
		t.Errorf("expected error state, got %s", flow.State())
	}
	if _, err := auth.RequireAuth(sess); !errors.Is(err, auth.ErrNotLoggedIn) {
		t.Errorf("route guard must reject a half-saved login, got %v", err)
	}
	if store.Has(session.TokenKey) {
		t.Error("token must not be left on disk")
	}
}

func TestLogin_EmptyFieldsNeverReachNetwork(t *testing.T) {
	svc := testutil.NewFakeService()
	flow, _, _ := newFlow(t, svc)

	err := flow.Login(context.Background(), "  ", "secret")

	var fe *auth.FlowError
	if !errors.As(err, &fe) || !fe.Validation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fe.Message != auth.MsgFillAllFields {
		t.Errorf("unexpected message %q", fe.Message)
	}
	if svc.LoginCalls != 0 {
		t.Errorf("expected no login call, got %d", svc.LoginCalls)
	}
	if flow.State() != auth.Failed {
		t.Errorf("expected error state, got %s", flow.State())
	}
}

func TestLogin_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unauthorized", &service.APIError{Status: http.StatusUnauthorized, Message: "nope"}, auth.MsgInvalidCredentials},
		{"forbidden", &service.APIError{Status: http.StatusForbidden, Message: "nope"}, auth.MsgDeactivated},
		{"network", fmt.Errorf("%w: connection refused", service.ErrNetwork), auth.MsgNetwork},
		{"server", &service.APIError{Status: http.StatusInternalServerError, Message: "boom"}, auth.MsgLoginFailed},
		// A message mentioning 401 is not a 401.
		{"message text", &service.APIError{Status: http.StatusBadRequest, Message: "error 401 in upstream"}, auth.MsgLoginFailed},
		{"unexpected", service.ErrUnexpectedResponse, auth.MsgUnexpected},
		{"html error page", &service.APIError{Status: http.StatusBadGateway, Message: "server returned unexpected response", Err: service.ErrUnexpectedResponse}, auth.MsgUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.LoginErr = tt.err
			flow, sess, _ := newFlow(t, svc)

			err := flow.Login(context.Background(), "a@b.c", "password")

			var fe *auth.FlowError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FlowError, got %v", err)
			}
			if fe.Message != tt.want {
				t.Errorf("expected %q, got %q", tt.want, fe.Message)
			}
			if fe.Details != tt.err.Error() {
				t.Errorf("expected details %q, got %q", tt.err.Error(), fe.Details)
			}
			if sess.IsAuthenticated() {
				t.Error("failed login must not create a session")
			}
		})
	}
}

func TestLogin_RetryAfterFailure(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddAccount("ada", "ada@example.com", "correct-horse")
	flow, _, _ := newFlow(t, svc)

	if err := flow.Login(context.Background(), "ada@example.com", "wrong-horse"); err == nil {
		t.Fatal("expected failure")
	}
	if flow.State() != auth.Failed {
		t.Fatalf("expected error state, got %s", flow.State())
	}
	if err := flow.Login(context.Background(), "ada@example.com", "correct-horse"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if flow.State() != auth.Authenticated || flow.Err() != nil {
		t.Errorf("expected clean authenticated state, got %s %v", flow.State(), flow.Err())
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		form auth.RegisterForm
		want string
	}{
		{"missing username", auth.RegisterForm{Email: "a@b.c", Password: "longenough", Confirm: "longenough"}, auth.MsgFillAllFields},
		{"short password", auth.RegisterForm{Username: "a", Email: "a@b.c", Password: "short", Confirm: "short"}, auth.MsgPasswordTooShort},
		{"mismatch", auth.RegisterForm{Username: "a", Email: "a@b.c", Password: "longenough", Confirm: "longenougH"}, auth.MsgPasswordsMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			flow, _, _ := newFlow(t, svc)

			err := flow.Register(context.Background(), tt.form)
			var fe *auth.FlowError
			if !errors.As(err, &fe) || fe.Message != tt.want || !fe.Validation {
				t.Fatalf("expected validation %q, got %v", tt.want, err)
			}
			if svc.RegisterCalls != 0 {
				t.Error("validation failure must not call the backend")
			}
		})
	}
}

func TestRegister_SuccessAndServerMessage(t *testing.T) {
	svc := testutil.NewFakeService()
	flow, sess, _ := newFlow(t, svc)
	form := auth.RegisterForm{Username: "grace", Email: "grace@example.com", Password: "hopper1906", Confirm: "hopper1906"}

	if err := flow.Register(context.Background(), form); err != nil {
		t.Fatalf("register: %v", err)
	}
	if sess.User().Username != "grace" {
		t.Errorf("expected user stored, got %+v", sess.User())
	}

	other, _, _ := newFlow(t, svc)
	err := other.Register(context.Background(), form)
	if err == nil || err.Error() != "User already exists" {
		t.Errorf("expected server message, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddAccount("ada", "ada@example.com", "correct-horse")
	flow, sess, store := newFlow(t, svc)
	_ = flow.Login(context.Background(), "ada@example.com", "correct-horse")

	if err := flow.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if flow.State() != auth.Anonymous {
		t.Errorf("expected anonymous, got %s", flow.State())
	}
	if store.Has(session.TokenKey) {
		t.Error("expected token removed from storage")
	}
	if _, err := auth.RequireAuth(sess); !errors.Is(err, auth.ErrNotLoggedIn) {
		t.Errorf("expected guard to refuse after logout, got %v", err)
	}
}

func TestRequireAuth(t *testing.T) {
	sess, _ := session.Open(testutil.NewMemoryStorage())
	if _, err := auth.RequireAuth(sess); !errors.Is(err, auth.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}

	_ = sess.Set("abc")
	token, err := auth.RequireAuth(sess)
	if err != nil || token != "abc" {
		t.Fatalf("expected abc, got %q %v", token, err)
	}

	if _, err := auth.RequireAuth(nil); !errors.Is(err, session.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized for nil session, got %v", err)
	}
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(-time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "user-42",
		"exp": exp.Unix(),
	}).SignedString([]byte("unknown-to-client"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	info := auth.Inspect(signed)
	if !info.JWT || info.Subject != "user-42" || info.Algorithm != "HS256" {
		t.Errorf("unexpected info %+v", info)
	}
	if !info.ExpiresAt.Equal(exp) {
		t.Errorf("expected expiry %v, got %v", exp, info.ExpiresAt)
	}
	if !info.Expired(time.Now()) {
		t.Error("expected expired token to report Expired")
	}

	if auth.Inspect("opaque-session-token").JWT {
		t.Error("opaque token must not be reported as JWT")
	}
}
