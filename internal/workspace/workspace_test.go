package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew_UniquePerRequest(t *testing.T) {
	root := t.TempDir()
	a, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	b, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.Dir() == b.Dir() {
		t.Fatalf("two workspaces share a dir: %s", a.Dir())
	}
	if a.Path("input.mp4") == b.Path("input.mp4") {
		t.Fatal("same intermediate name must not collide across workspaces")
	}
}

func TestCleanup_RemovesEverything(t *testing.T) {
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := os.WriteFile(w.Path("captions.ass"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := w.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(w.Dir()); !os.IsNotExist(err) {
		t.Fatalf("workspace still present: %v", err)
	}
}

func TestReap_OnlyOldArenas(t *testing.T) {
	root := t.TempDir()
	old, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	fresh, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	// Unrelated dirs are never touched.
	other := filepath.Join(root, "keepme")
	if err := os.Mkdir(other, 0o755); err != nil {
		t.Fatal(err)
	}

	stale := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old.Dir(), stale, stale); err != nil {
		t.Fatal(err)
	}

	removed, err := Reap(root, time.Hour)
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old.Dir()); !os.IsNotExist(err) {
		t.Fatal("stale workspace survived reap")
	}
	if _, err := os.Stat(fresh.Dir()); err != nil {
		t.Fatalf("fresh workspace reaped: %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("unrelated dir reaped: %v", err)
	}
}
