// Package taskapi implements the service.Service interface over the task
// manager's HTTP/JSON API.
package taskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"taskflow/internal/config"
	"taskflow/internal/service"
)

const (
	// APITimeout is the default timeout for API calls.
	APITimeout = config.DefaultTimeout

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 8 << 20

	// RequestIDHeader carries a per-request id for log correlation.
	RequestIDHeader = "X-Request-Id"
)

// errorText picks the message of a non-2xx response. fallback is used when
// the body carries no "message"; unparsed, when set, replaces it for bodies
// that are not JSON at all.
type errorText struct {
	fallback string
	unparsed string
}

var (
	loginFailed    = errorText{fallback: "Login failed", unparsed: service.ErrUnexpectedResponse.Error()}
	registerFailed = errorText{fallback: "Registration failed"}
	genericFailed  = errorText{fallback: "Something went wrong"}
)

// Client implements service.Service against the remote API.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	log     *log.Logger
}

// New creates a client for the API configured in cfg.
func New(cfg *config.Config, lg *log.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = APITimeout
	}
	return newClient(cfg.APIURL, http.DefaultClient, timeout, lg)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL string, httpClient *http.Client, lg *log.Logger) *Client {
	return newClient(baseURL, httpClient, APITimeout, lg)
}

func newClient(baseURL string, httpClient *http.Client, timeout time.Duration, lg *log.Logger) *Client {
	if lg == nil {
		lg = log.New(io.Discard, "", 0)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		timeout: timeout,
		log:     lg,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tasksEnvelope struct {
	Data *struct {
		Tasks []service.Task `json:"tasks"`
	} `json:"data"`
}

type statsEnvelope struct {
	Data *service.Stats `json:"data"`
}

type taskEnvelope struct {
	Data *struct {
		Task service.Task `json:"task"`
	} `json:"data"`
}

// Login implements service.Service.
func (c *Client) Login(ctx context.Context, email, password string) (service.AuthResult, error) {
	var res service.AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/login", "", loginRequest{Email: email, Password: password}, loginFailed, &res)
	if err != nil {
		return service.AuthResult{}, err
	}
	if res.Token == "" {
		return service.AuthResult{}, fmt.Errorf("%w: no token in login response", service.ErrUnexpectedResponse)
	}
	return res, nil
}

// Register implements service.Service.
func (c *Client) Register(ctx context.Context, username, email, password string) (service.AuthResult, error) {
	var res service.AuthResult
	body := registerRequest{Username: username, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", body, registerFailed, &res); err != nil {
		return service.AuthResult{}, err
	}
	if res.Token == "" {
		return service.AuthResult{}, fmt.Errorf("%w: no token in register response", service.ErrUnexpectedResponse)
	}
	return res, nil
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context, token string) ([]service.Task, error) {
	var env tasksEnvelope
	if err := c.do(ctx, http.MethodGet, "/tasks", token, nil, genericFailed, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: missing data", service.ErrUnexpectedResponse)
	}
	if env.Data.Tasks == nil {
		return []service.Task{}, nil
	}
	return env.Data.Tasks, nil
}

// Analytics implements service.Service.
func (c *Client) Analytics(ctx context.Context, token string) (service.Stats, error) {
	var env statsEnvelope
	if err := c.do(ctx, http.MethodGet, "/tasks/analytics", token, nil, genericFailed, &env); err != nil {
		return service.Stats{}, err
	}
	if env.Data == nil {
		return service.Stats{}, fmt.Errorf("%w: missing data", service.ErrUnexpectedResponse)
	}
	return *env.Data, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, task service.NewTask, token string) (service.Task, error) {
	var env taskEnvelope
	if err := c.do(ctx, http.MethodPost, "/tasks", token, task, genericFailed, &env); err != nil {
		return service.Task{}, err
	}
	if env.Data == nil {
		return service.Task{}, fmt.Errorf("%w: missing data", service.ErrUnexpectedResponse)
	}
	return env.Data.Task, nil
}

// httpClient returns the client to send a request with. A non-empty token is
// attached as a bearer credential by the oauth2 transport.
func (c *Client) httpClient(ctx context.Context, token string) *http.Client {
	if token == "" {
		return c.http
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.http), src)
}

// do sends one JSON request and decodes a 2xx body into out.
// Non-2xx responses become *service.APIError carrying the body's message or
// the operation's fallback.
func (c *Client) do(ctx context.Context, method, path, token string, body any, text errorText, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	resp, err := c.httpClient(ctx, token).Do(req)
	if err != nil {
		c.log.Printf("%s %s failed after %s id=%s: %v", method, path, time.Since(start).Round(time.Millisecond), reqID, err)
		return wrapError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return wrapError(err)
	}
	c.log.Printf("%s %s -> %d in %s id=%s", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond), reqID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data, text)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return service.ErrUnexpectedResponse
	}
	return nil
}

// decodeError builds the error for a non-2xx response.
func decodeError(status int, data []byte, text errorText) error {
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		msg := text.unparsed
		if msg == "" {
			msg = text.fallback
		}
		return &service.APIError{Status: status, Message: msg, Err: service.ErrUnexpectedResponse}
	}
	msg := strings.TrimSpace(envelope.Message)
	if msg == "" {
		msg = text.fallback
	}
	return &service.APIError{Status: status, Message: msg}
}

// wrapError maps transport failures onto service.ErrNetwork.
func wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out", service.ErrNetwork)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", service.ErrNetwork, err)
}
