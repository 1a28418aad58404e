// Package assets picks background clips and music beds from fixed,
// read-only pools. Pools are listed once at startup and never mutated at
// request time, so selection needs no locking.
package assets

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Selector returns an index in [0, n). Injectable so tests (or an operator
// pinning a seed) get deterministic picks.
type Selector func(n int) int

// NewSeededSelector builds a Selector backed by math/rand with the given
// seed.
func NewSeededSelector(seed int64) Selector {
	r := rand.New(rand.NewSource(seed))
	return func(n int) int { return r.Intn(n) }
}

type Pool struct {
	dir   string
	files []string
}

// LoadPool lists the media files in dir. Hidden files are skipped; the
// listing is sorted so selection indexes are stable across processes.
func LoadPool(dir string) (*Pool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read asset pool %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, e.Name())
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("asset pool %s is empty", dir)
	}
	sort.Strings(files)
	return &Pool{dir: dir, files: files}, nil
}

// Pick returns the path of one uniformly selected asset.
func (p *Pool) Pick(sel Selector) string {
	return filepath.Join(p.dir, p.files[sel(len(p.files))])
}

func (p *Pool) Len() int { return len(p.files) }
