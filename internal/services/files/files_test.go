// Unit tests for the result store and its janitor.
package files

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "results"), ttl)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestSaveAndPath(t *testing.T) {
	s := newTestStore(t, time.Hour)

	name, err := s.Save("merged", ".pdf", []byte("%PDF-1.4 test"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(name, "merged_") || !strings.HasSuffix(name, ".pdf") {
		t.Errorf("name %q should be merged_<uuid>.pdf", name)
	}

	p, err := s.Path(name)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("reading resolved path: %v", err)
	}
	if string(data) != "%PDF-1.4 test" {
		t.Errorf("content round-trip mismatch: %q", data)
	}
}

func TestSaveNamesNeverCollide(t *testing.T) {
	s := newTestStore(t, time.Hour)
	a, _ := s.Save("split", ".zip", []byte("a"))
	b, _ := s.Save("split", ".zip", []byte("b"))
	if a == b {
		t.Errorf("two saves with the same base produced the same name %q", a)
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	s := newTestStore(t, time.Hour)

	// Plant a file outside the results dir that an escape would reach.
	outside := filepath.Join(filepath.Dir(s.dir), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{
		"",
		"../secret.txt",
		"..",
		"sub/secret.txt",
		`sub\secret.txt`,
		"/etc/passwd",
	} {
		if _, err := s.Path(name); !errors.Is(err, ErrNotFound) {
			t.Errorf("Path(%q) = %v, want ErrNotFound", name, err)
		}
	}
}

func TestPathUnknownName(t *testing.T) {
	s := newTestStore(t, time.Hour)
	if _, err := s.Path("never_saved.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSweep(t *testing.T) {
	s := newTestStore(t, time.Minute)

	name, err := s.Save("compressed", ".pdf", []byte("x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Before the deadline nothing happens.
	s.sweep(time.Now())
	if _, err := s.Path(name); err != nil {
		t.Fatalf("artifact deleted before its deadline: %v", err)
	}

	// Past the deadline the artifact and its bookkeeping go away.
	s.sweep(time.Now().Add(2 * time.Minute))
	if _, err := s.Path(name); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired artifact still resolvable: %v", err)
	}
	s.mu.Lock()
	_, tracked := s.expires[name]
	s.mu.Unlock()
	if tracked {
		t.Error("sweep left the expired entry in the schedule")
	}
}

func TestSweepDoesNotRetryFailedDeletes(t *testing.T) {
	s := newTestStore(t, time.Minute)
	name, _ := s.Save("converted", ".pdf", []byte("x"))

	// Swap the artifact for a non-empty directory so os.Remove fails even
	// when the tests run as root.
	p := filepath.Join(s.dir, name)
	if err := os.Remove(p); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(p, "child"), 0o755); err != nil {
		t.Fatal(err)
	}

	s.sweep(time.Now().Add(2 * time.Minute))

	s.mu.Lock()
	_, tracked := s.expires[name]
	s.mu.Unlock()
	if tracked {
		t.Error("a failed delete should be logged and forgotten, not rescheduled")
	}
}

func TestSweepToleratesExternallyDeletedFiles(t *testing.T) {
	s := newTestStore(t, time.Minute)
	name, _ := s.Save("repaired", ".pdf", []byte("x"))

	// Someone else removed the file. The sweep must still drop the entry.
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		t.Fatal(err)
	}
	s.sweep(time.Now().Add(2 * time.Minute))

	s.mu.Lock()
	_, tracked := s.expires[name]
	s.mu.Unlock()
	if tracked {
		t.Error("entry for an already-missing file should be dropped")
	}
}
