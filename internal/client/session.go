package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrNoSession = errors.New("no session")

// Session is what a signed-in user interface holds: the token and the
// profile it was issued for.
type Session struct {
	Token   string  `json:"token"`
	Profile Profile `json:"profile"`
}

// SessionStore persists the current session between runs.
type SessionStore interface {
	Load() (*Session, error)
	Save(s *Session) error
	Clear() error
}

// FileSessionStore keeps the session as a JSON file readable only by its
// owner.
type FileSessionStore struct {
	Path string
}

// DefaultSessionPath is $XDG_CONFIG_HOME/member/session.json or the
// platform equivalent.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "member", "session.json"), nil
}

func (f FileSessionStore) Load() (*Session, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil || s.Token == "" {
		return nil, ErrNoSession
	}
	return &s, nil
}

func (f FileSessionStore) Save(s *Session) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (f FileSessionStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Restore loads the stored session and checks its token with the server.
// A rejected token clears the store. Server errors and network failures
// leave the stored session alone.
func Restore(ctx context.Context, c *Client, store SessionStore) (*Session, error) {
	s, err := store.Load()
	if err != nil {
		return nil, err
	}
	p, err := c.ValidateToken(ctx, s.Token)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			if cerr := store.Clear(); cerr != nil {
				return nil, cerr
			}
			return nil, ErrNoSession
		}
		return nil, err
	}
	s.Profile = *p
	return s, nil
}

// LoginAndStore signs in and replaces whatever session was stored.
func LoginAndStore(ctx context.Context, c *Client, store SessionStore, email, password string) (*Session, error) {
	s, err := c.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := store.Save(s); err != nil {
		return nil, err
	}
	return s, nil
}
