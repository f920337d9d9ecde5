package queue

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/Priya8975/activity-logger/internal/domain"
)

// DeadLetterFileName holds events that exhausted their delivery attempts.
const DeadLetterFileName = ".actionLoggerDeadLetters.jsonl"

// DeadLetterLog is an append-only JSON-lines file of dead letters.
type DeadLetterLog struct {
	path string
	mu   sync.Mutex
}

func NewDeadLetterLog(dir string) *DeadLetterLog {
	return &DeadLetterLog{path: filepath.Join(dir, DeadLetterFileName)}
}

func (l *DeadLetterLog) Path() string {
	return l.path
}

// Append writes one line per letter and syncs the file.
func (l *DeadLetterLog) Append(letters []domain.DeadLetter) error {
	if len(letters) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening dead letter file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, letter := range letters {
		if err := enc.Encode(letter); err != nil {
			return fmt.Errorf("encoding dead letter: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing dead letters: %w", err)
	}
	return f.Sync()
}

// List reads every dead letter. Lines that fail to decode are skipped.
func (l *DeadLetterLog) List() ([]domain.DeadLetter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.DeadLetter{}, nil
		}
		return nil, fmt.Errorf("opening dead letter file: %w", err)
	}
	defer f.Close()

	letters := []domain.DeadLetter{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var letter domain.DeadLetter
		if err := json.Unmarshal(scanner.Bytes(), &letter); err != nil {
			continue
		}
		letters = append(letters, letter)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dead letters: %w", err)
	}
	return letters, nil
}
