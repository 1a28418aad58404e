// Package workspace manages the per-request temporary file arena. Every
// intermediate path is derived from a request-unique id, so concurrent
// requests can never clobber each other's files, and the whole arena is
// torn down in one call on both success and failure paths.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const dirPrefix = "clipforge-"

type Workspace struct {
	id  string
	dir string
}

// New creates a fresh arena under root.
func New(root string) (*Workspace, error) {
	id := uuid.NewString()
	dir := filepath.Join(root, dirPrefix+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{id: id, dir: dir}, nil
}

func (w *Workspace) ID() string  { return w.id }
func (w *Workspace) Dir() string { return w.dir }

// Path derives an arena-local path for a named intermediate file.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Cleanup removes the arena and everything in it.
func (w *Workspace) Cleanup() error {
	return os.RemoveAll(w.dir)
}

// Reap removes orphaned arenas under root older than maxAge. It is the
// backstop for crashes that skipped Cleanup; live requests are younger than
// any sane maxAge. Returns the number of arenas removed.
func Reap(root string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("read workspace root: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), dirPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
