package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"taskflow/internal/service"
)

// fakeJWTKey signs tokens issued by FakeBackend.
var fakeJWTKey = []byte("taskflow-test-signing-key")

// FakeBackend is an httptest server speaking the task manager API.
// Passwords are stored as bcrypt hashes and tokens are HS256 JWTs.
type FakeBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	users    map[string]backendUser // email -> user
	tasks    map[string][]service.Task
	requests []RecordedRequest

	// Deactivated emails are refused with 403 at login.
	Deactivated map[string]bool
}

// RecordedRequest is a request seen by FakeBackend.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	RequestID     string
}

type backendUser struct {
	service.User
	hash []byte
}

type fakeClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// NewFakeBackend starts a FakeBackend that is closed when the test ends.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	b := &FakeBackend{
		users:       make(map[string]backendUser),
		tasks:       make(map[string][]service.Task),
		Deactivated: make(map[string]bool),
	}

	r := chi.NewRouter()
	r.Use(b.record)
	r.Post("/api/auth/login", b.handleLogin)
	r.Post("/api/auth/register", b.handleRegister)
	r.Group(func(r chi.Router) {
		r.Use(b.authenticate)
		r.Get("/api/tasks", b.handleListTasks)
		r.Post("/api/tasks", b.handleCreateTask)
		r.Get("/api/tasks/analytics", b.handleAnalytics)
	})

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the API base URL.
func (b *FakeBackend) URL() string {
	return b.Server.URL + "/api"
}

// Requests returns the requests seen so far.
func (b *FakeBackend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

// IssueToken returns a valid token for a registered email, for tests that
// skip the login round trip.
func (b *FakeBackend) IssueToken(t *testing.T, email string) string {
	t.Helper()
	b.mu.Lock()
	u, ok := b.users[email]
	b.mu.Unlock()
	if !ok {
		t.Fatalf("no such user: %s", email)
	}
	token, err := b.sign(u.User)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

// AddUser registers an account directly.
func (b *FakeBackend) AddUser(t *testing.T, username, email, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[email] = backendUser{
		User: service.User{ID: uuid.NewString(), Username: username, Email: email},
		hash: hash,
	}
}

func (b *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			RequestID:     r.Header.Get("X-Request-Id"),
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

func (b *FakeBackend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.Header.Get("Authorization"), " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeErrorJSON(w, http.StatusUnauthorized, "Not authorized, no token")
			return
		}
		claims := &fakeClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			return fakeJWTKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			writeErrorJSON(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithUser(r, claims.UserID)))
	})
}

func (b *FakeBackend) sign(u service.User) (string, error) {
	claims := fakeClaims{
		UserID: u.ID,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(fakeJWTKey)
}

func (b *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	b.mu.Lock()
	u, ok := b.users[req.Email]
	deactivated := b.Deactivated[req.Email]
	b.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(u.hash, []byte(req.Password)) != nil {
		writeErrorJSON(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if deactivated {
		writeErrorJSON(w, http.StatusForbidden, "Account deactivated")
		return
	}
	b.writeAuth(w, http.StatusOK, u.User)
}

func (b *FakeBackend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeErrorJSON(w, http.StatusBadRequest, "All fields are required")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	b.mu.Lock()
	if _, exists := b.users[req.Email]; exists {
		b.mu.Unlock()
		writeErrorJSON(w, http.StatusBadRequest, "User already exists")
		return
	}
	u := backendUser{
		User: service.User{ID: uuid.NewString(), Username: req.Username, Email: req.Email},
		hash: hash,
	}
	b.users[req.Email] = u
	b.mu.Unlock()

	b.writeAuth(w, http.StatusCreated, u.User)
}

func (b *FakeBackend) writeAuth(w http.ResponseWriter, code int, u service.User) {
	token, err := b.sign(u)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "Failed to sign token")
		return
	}
	writeJSON(w, code, service.AuthResult{Token: token, User: u})
}

func (b *FakeBackend) handleListTasks(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r)
	b.mu.Lock()
	tasks := append([]service.Task{}, b.tasks[userID]...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"tasks": tasks}})
}

func (b *FakeBackend) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req service.NewTask
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "Invalid task data")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeErrorJSON(w, http.StatusBadRequest, "Title is required")
		return
	}
	task := service.Task{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		DueDate:     req.DueDate,
		Status:      service.StatusPending,
		Priority:    req.Priority,
	}

	userID := userFromContext(r)
	b.mu.Lock()
	b.tasks[userID] = append(b.tasks[userID], task)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"task": task}})
}

func (b *FakeBackend) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r)
	today := time.Now().Format("2006-01-02")

	b.mu.Lock()
	counts := map[string]int{}
	var order []string
	dueToday := 0
	for _, t := range b.tasks[userID] {
		if _, seen := counts[t.Status]; !seen {
			order = append(order, t.Status)
		}
		counts[t.Status]++
		if strings.HasPrefix(t.DueDate, today) {
			dueToday++
		}
	}
	b.mu.Unlock()

	stats := make([]service.StatusCount, 0, len(order))
	for _, s := range order {
		stats = append(stats, service.StatusCount{ID: s, Count: counts[s]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": service.Stats{Stats: stats, DueToday: dueToday}})
}

func contextWithUser(r *http.Request, userID string) context.Context {
	return context.WithValue(r.Context(), ctxKey{}, userID)
}

func userFromContext(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func writeErrorJSON(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"message": message})
}
