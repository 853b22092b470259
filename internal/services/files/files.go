// Package files stores processing results on disk and serves them to the
// download endpoint. Every artifact has a bounded lifetime: a janitor
// goroutine deletes it a fixed delay after creation, best-effort; a failed
// delete is logged, never retried, and never affects a response that was
// already sent.
package files

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested result file is unknown or expired.
var ErrNotFound = errors.New("result file not found")

// sweepInterval is how often the janitor looks for expired artifacts.
const sweepInterval = time.Minute

// Store keeps result artifacts in a single directory.
type Store struct {
	dir string
	ttl time.Duration

	mu      sync.Mutex
	expires map[string]time.Time // filename -> deletion deadline
}

// NewStore creates the results directory if needed. ttl is how long each
// artifact survives after creation.
func NewStore(dir string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results dir: %w", err)
	}
	return &Store{dir: dir, ttl: ttl, expires: make(map[string]time.Time)}, nil
}

// Save writes an artifact and schedules its deletion. The stored name embeds
// a uuid so concurrent results never collide; base should be a short label
// like "merged" and ext the extension including the dot.
func (s *Store) Save(base, ext string, data []byte) (string, error) {
	name := fmt.Sprintf("%s_%s%s", base, uuid.New().String(), ext)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save result: %w", err)
	}
	s.mu.Lock()
	s.expires[name] = time.Now().Add(s.ttl)
	s.mu.Unlock()
	return name, nil
}

// Path resolves a download filename to its on-disk path.
// Rejects anything that could escape the results directory.
func (s *Store) Path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return "", ErrNotFound
	}
	p := filepath.Join(s.dir, name)
	if _, err := os.Stat(p); err != nil {
		return "", ErrNotFound
	}
	return p, nil
}

// StartJanitor launches the deferred-deletion sweeper. It runs until the
// context is cancelled.
//
// Go Pattern: the same ticker-in-a-goroutine shape as the store reclamation;
// a scheduled-task loop decoupled from the request path.
func (s *Store) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(time.Now())
			}
		}
	}()
}

// sweep deletes every artifact whose deadline has passed. Each artifact gets
// exactly one deletion attempt; a failure is logged and the entry dropped.
func (s *Store) sweep(now time.Time) {
	s.mu.Lock()
	var due []string
	for name, deadline := range s.expires {
		if now.After(deadline) {
			due = append(due, name)
		}
	}
	s.mu.Unlock()

	for _, name := range due {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			log.Printf("⚠️  Failed to delete expired result %s: %v", name, err)
		}
		s.mu.Lock()
		delete(s.expires, name)
		s.mu.Unlock()
	}
}
