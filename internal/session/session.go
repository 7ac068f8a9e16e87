// Package session holds the single client session: the bearer token and the
// account it belongs to, persisted in durable local storage.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"taskflow/internal/service"
)

// Storage keys.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// ErrNotInitialized is returned by a Session that was not created by Open.
var ErrNotInitialized = errors.New("session not initialized")

// ErrNoSession is returned by Token when nobody is logged in.
var ErrNoSession = errors.New("not logged in")

// Storage is durable key/value storage. Implemented by localstore.Store.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// Session is the current authentication state. Create with Open; the zero
// value is unusable and reports ErrNotInitialized.
type Session struct {
	mu    sync.RWMutex
	store Storage
	token string
	user  service.User
}

// Open restores the session persisted in store, if any.
func Open(store Storage) (*Session, error) {
	if store == nil {
		return nil, ErrNotInitialized
	}
	s := &Session{store: store}

	token, ok, err := store.Get(TokenKey)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if !ok {
		return s, nil
	}
	s.token = token

	if raw, ok, err := store.Get(UserKey); err == nil && ok {
		// A corrupt user record does not invalidate the token.
		_ = json.Unmarshal([]byte(raw), &s.user)
	}
	return s, nil
}

func (s *Session) ready() error {
	if s == nil || s.store == nil {
		return ErrNotInitialized
	}
	return nil
}

// Token returns the current token, ErrNoSession if there is none.
func (s *Session) Token() (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNoSession
	}
	return s.token, nil
}

// User returns the account stored with the token. It is the zero User when
// the backend sent none or nobody is logged in.
func (s *Session) User() service.User {
	if s.ready() != nil {
		return service.User{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IsAuthenticated reports whether a token is present.
func (s *Session) IsAuthenticated() bool {
	_, err := s.Token()
	return err == nil
}

// Set persists token. An empty token clears the session.
func (s *Session) Set(token string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if token == "" {
		return s.Clear()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(TokenKey, token); err != nil {
		return err
	}
	s.token = token
	return nil
}

// Start records a successful login or registration. The token is written
// after the user record; if either write fails the session is cleared, so a
// half-saved login never passes the route guard.
func (s *Session) Start(res service.AuthResult) error {
	if err := s.ready(); err != nil {
		return err
	}
	if res.Token == "" {
		return errors.New("backend returned no token")
	}
	data, err := json.Marshal(res.User)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(UserKey, string(data)); err != nil {
		return s.abort(err)
	}
	if err := s.store.Set(TokenKey, res.Token); err != nil {
		return s.abort(err)
	}
	s.token = res.Token
	s.user = res.User
	return nil
}

// abort drops whatever Start managed to write. Callers hold s.mu.
func (s *Session) abort(cause error) error {
	_ = s.store.Remove(TokenKey)
	_ = s.store.Remove(UserKey)
	s.token = ""
	s.user = service.User{}
	return cause
}

// Clear removes the session from storage and memory.
func (s *Session) Clear() error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Remove(TokenKey); err != nil {
		return err
	}
	if err := s.store.Remove(UserKey); err != nil {
		return err
	}
	s.token = ""
	s.user = service.User{}
	return nil
}
