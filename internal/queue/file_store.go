package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Priya8975/activity-logger/internal/domain"
	"github.com/google/uuid"
)

// CacheFileName is the queue file created under the storage directory.
const CacheFileName = ".actionLoggerCache.json"

// FileStore is the durable queue of unsent events. The whole sequence is
// stored as one JSON array and rewritten on every mutation.
//
// A FileStore must be the only writer of its file. The mutex serialises
// read-modify-write cycles inside the process; other processes are not
// coordinated with.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// Open returns a store backed by CacheFileName inside dir, creating the
// directory and an empty queue if needed.
func Open(dir string, logger *slog.Logger) (*FileStore, error) {
	s := NewFileStore(filepath.Join(dir, CacheFileName), logger)
	if err := s.EnsureInitialized(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFileStore returns a store for the given file path. Call
// EnsureInitialized before use.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Path returns the queue file location.
func (s *FileStore) Path() string {
	return s.path
}

// EnsureInitialized creates the containing directory and an empty queue
// file when either is missing. It is safe to call repeatedly.
func (s *FileStore) EnsureInitialized() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}

	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking queue file: %w", err)
	}

	return s.writeLocked([]domain.Event{})
}

// Load returns the pending events in append order. A missing, unreadable or
// corrupt file yields an empty slice; the problem is logged.
func (s *FileStore) Load() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Len returns the number of pending events.
func (s *FileStore) Len() int {
	return len(s.Load())
}

// Append adds event to the end of the queue and rewrites the file before
// returning.
func (s *FileStore) Append(event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.loadLocked()
	events = append(events, event)
	return s.writeLocked(events)
}

// Clear empties the queue.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked([]domain.Event{})
}

// Remove deletes the events whose IDs are listed and keeps everything else,
// including events appended after the caller took its snapshot. It returns
// the number of events removed.
func (s *FileStore) Remove(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.loadLocked()
	kept := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if _, ok := drop[e.ID]; ok {
			continue
		}
		kept = append(kept, e)
	}

	removed := len(events) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.writeLocked(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *FileStore) loadLocked() []domain.Event {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Error("failed to read queue file", "error", err, "path", s.path)
		return []domain.Event{}
	}

	var events []domain.Event
	if err := json.Unmarshal(data, &events); err != nil {
		s.logger.Error("queue file is corrupt, starting empty", "error", err, "path", s.path)
		return []domain.Event{}
	}
	if events == nil {
		events = []domain.Event{}
	}

	if backfillIDs(events) > 0 {
		if err := s.writeLocked(events); err != nil {
			s.logger.Error("failed to persist backfilled event ids", "error", err, "path", s.path)
		}
	}
	return events
}

// backfillIDs gives an id to every event written without one, such as
// queue files left by older agents. It returns how many were assigned.
func backfillIDs(events []domain.Event) int {
	n := 0
	for i := range events {
		if events[i].ID == "" {
			events[i].ID = uuid.NewString()
			n++
		}
	}
	return n
}

// writeLocked replaces the file atomically. The temp file is synced before
// the rename, so after a crash the file holds either the old or the new
// contents.
func (s *FileStore) writeLocked(events []domain.Event) error {
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("encoding queue: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp queue file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing queue file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing queue file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing queue file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing queue file: %w", err)
	}
	return nil
}
