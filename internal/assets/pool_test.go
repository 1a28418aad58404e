package assets

import (
	"os"
	"path/filepath"
	"testing"
)

func writePool(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
	return dir
}

func TestLoadPool_SkipsHiddenAndDirs(t *testing.T) {
	dir := writePool(t, "a.mp4", "b.mp4", ".DS_Store")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPool(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Len() != 2 {
		t.Fatalf("expected 2 assets, got %d", p.Len())
	}
}

func TestLoadPool_EmptyIsError(t *testing.T) {
	if _, err := LoadPool(t.TempDir()); err == nil {
		t.Fatal("expected error for empty pool")
	}
}

func TestPick_DeterministicWithSeed(t *testing.T) {
	dir := writePool(t, "a.mp4", "b.mp4", "c.mp4")
	p, err := LoadPool(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	first := p.Pick(NewSeededSelector(42))
	second := p.Pick(NewSeededSelector(42))
	if first != second {
		t.Fatalf("same seed picked %s then %s", first, second)
	}
	fixed := p.Pick(func(n int) int { return n - 1 })
	if filepath.Base(fixed) != "c.mp4" {
		t.Fatalf("stub selector pick = %s", fixed)
	}
}
