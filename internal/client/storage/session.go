// Package storage persists the operator console session between runs.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNoSession is returned by Load when nothing is cached or the cached
// token has expired.
var ErrNoSession = errors.New("no active session")

// Session is the cached login of one operator.
type Session struct {
	BaseURL   string    `json:"base_url"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether s is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return s.Token == "" || !now.Before(s.ExpiresAt)
}

// SessionStore reads and writes the session file. The file holds a bearer
// token and is written with mode 0600.
type SessionStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewSessionStore returns a store backed by path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path, now: time.Now}
}

// DefaultSessionPath is ~/.field-inventory/session.json, or a file in the
// working directory when the home directory is unknown.
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".field-inventory-session.json"
	}
	return filepath.Join(home, ".field-inventory", "session.json")
}

// Load returns the cached session for baseURL.
func (st *SessionStore) Load(baseURL string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	data, err := os.ReadFile(st.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.BaseURL != baseURL || s.Expired(st.now()) {
		return nil, ErrNoSession
	}
	return &s, nil
}

// Save writes s atomically.
func (st *SessionStore) Save(s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(st.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(st.path), ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), st.path)
}

// Clear removes the cached session.
func (st *SessionStore) Clear() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := os.Remove(st.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
