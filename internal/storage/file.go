package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileCookieStore keeps the cookie jar as a JSON array in a single file.
// Writes are not atomic: a crash mid-write can leave a truncated file.
type FileCookieStore struct {
	path string
}

func NewFileCookieStore(path string) *FileCookieStore {
	return &FileCookieStore{path: path}
}

// Path returns the backing file
func (s *FileCookieStore) Path() string {
	return s.path
}

// Save overwrites the file with cookies
func (s *FileCookieStore) Save(_ context.Context, cookies []Cookie) error {
	if cookies == nil {
		cookies = []Cookie{}
	}

	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create cookie directory: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	return nil
}

// Load reads the file; a missing file yields ErrNoCookies
func (s *FileCookieStore) Load(_ context.Context) ([]Cookie, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoCookies
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}

	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to parse cookie file %s: %w", s.path, err)
	}
	return cookies, nil
}
