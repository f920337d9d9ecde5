// Package identity caches the student's user id and checks it against the
// collector.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// CacheFileName is created under the agent's storage directory.
const CacheFileName = ".usernameCache.json"

// ErrInvalidUser is returned when the collector does not know the user.
var ErrInvalidUser = errors.New("invalid user id")

type cacheFile struct {
	Username string `json:"username"`
}

// Cache remembers the last validated user id across restarts.
type Cache struct {
	path string
}

func NewCache(dir string) *Cache {
	return &Cache{path: filepath.Join(dir, CacheFileName)}
}

// Load returns the cached user id, or "" when none is cached.
func (c *Cache) Load() (string, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading username cache: %w", err)
	}

	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return "", fmt.Errorf("parsing username cache: %w", err)
	}
	return f.Username, nil
}

func (c *Cache) Save(username string) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}

	data, err := json.Marshal(cacheFile{Username: username})
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("writing username cache: %w", err)
	}
	return nil
}

// Validator asks the collector whether a user id is registered.
type Validator struct {
	httpClient *http.Client
	url        string
}

func NewValidator(url string) *Validator {
	return &Validator{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        url,
	}
}

// Validate returns nil for a known user and ErrInvalidUser when the collector
// rejects the id with a 4xx. Transport failures, 429 and 5xx responses are
// plain errors so callers can tell an unknown user from an unhealthy
// collector.
func (v *Validator) Validate(ctx context.Context, username string) error {
	body, err := json.Marshal(map[string]string{"username": username})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("validating user: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return fmt.Errorf("validating user: collector responded %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: collector responded %d", ErrInvalidUser, resp.StatusCode)
	default:
		return fmt.Errorf("validating user: unexpected status %d", resp.StatusCode)
	}
}
