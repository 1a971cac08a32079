package engine

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// TokenFile is a Credentials implementation backed by a single file holding
// the bearer token. Clearing removes the file, which forces the next connect
// to fail with ErrNoCredentials until a new token is stored.
type TokenFile struct {
	mu   sync.Mutex
	path string
}

var _ Credentials = (*TokenFile)(nil)

func NewTokenFile(path string) *TokenFile {
	return &TokenFile{path: path}
}

func (t *TokenFile) Token() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	raw, err := os.ReadFile(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (t *TokenFile) Set(token string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := os.WriteFile(t.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

func (t *TokenFile) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := os.Remove(t.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// StaticCredentials holds a fixed token in memory. Used by tests and by
// deployments that inject the token through the environment.
type StaticCredentials struct {
	mu    sync.Mutex
	token string
}

var _ Credentials = (*StaticCredentials)(nil)

func NewStaticCredentials(token string) *StaticCredentials {
	return &StaticCredentials{token: token}
}

func (s *StaticCredentials) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *StaticCredentials) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
