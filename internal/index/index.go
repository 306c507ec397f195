// Package index implements the persisted flat vector index backing the
// knowledge base. Entries are searched by exact cosine similarity; at the
// scale of a single knowledge base (thousands of chunks) a brute-force scan
// answers interactively and keeps persistence trivial.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/HardikTIET/MUJ-RAGBOT/internal/util"
)

// Entry is one indexed chunk: its text plus the source document filename.
type Entry struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Result is a similarity-search hit.
type Result struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// Index holds entries and their vectors in insertion order. Mutations are
// in-memory only; callers persist explicitly and must serialize the
// mutate-then-persist sequence through PathLock.
type Index struct {
	mu      sync.RWMutex
	dim     int
	entries []Entry
	vectors [][]float32
}

type diskFormat struct {
	Dim     int         `json:"dim"`
	Entries []Entry     `json:"entries"`
	Vectors [][]float32 `json:"vectors"`
}

// OpenOrCreate loads the index persisted at path. A missing file yields an
// empty index that is persisted immediately, so a fresh deployment always has
// a loadable on-disk state. An unreadable file reports ErrIndexCorrupt.
func OpenOrCreate(path string) (*Index, error) {
	ix, err := load(path)
	if err == nil {
		return ix, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	ix = &Index{}
	if err := ix.Persist(path); err != nil {
		return nil, fmt.Errorf("persist fresh index: %w", err)
	}
	return ix, nil
}

func load(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}
	var disk diskFormat
	if err := json.Unmarshal(raw, &disk); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", util.ErrIndexCorrupt, path, err)
	}
	if len(disk.Entries) != len(disk.Vectors) {
		return nil, fmt.Errorf("%w: %s: %d entries but %d vectors", util.ErrIndexCorrupt, path, len(disk.Entries), len(disk.Vectors))
	}
	return &Index{dim: disk.Dim, entries: disk.Entries, vectors: disk.Vectors}, nil
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Insert appends entries with their vectors. The first insert fixes the
// index dimension; later inserts must match it. There is no autosave: the
// on-disk state is unchanged until Persist.
func (ix *Index) Insert(entries []Entry, vectors [][]float32) error {
	if len(entries) != len(vectors) {
		return fmt.Errorf("entries and vectors length mismatch: %d vs %d", len(entries), len(vectors))
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("empty vector for entry %d", i)
		}
		if ix.dim == 0 {
			ix.dim = len(v)
		}
		if len(v) != ix.dim {
			return fmt.Errorf("vector dimension mismatch: got %d want %d", len(v), ix.dim)
		}
	}
	ix.entries = append(ix.entries, entries...)
	ix.vectors = append(ix.vectors, vectors...)
	return nil
}

// Persist writes the full index state to path via temp-file-and-rename, so a
// crash mid-persist leaves the previous on-disk index intact.
func (ix *Index) Persist(path string) error {
	ix.mu.RLock()
	disk := diskFormat{Dim: ix.dim, Entries: ix.entries, Vectors: ix.vectors}
	ix.mu.RUnlock()
	if disk.Entries == nil {
		disk.Entries = []Entry{}
	}
	if disk.Vectors == nil {
		disk.Vectors = [][]float32{}
	}
	if err := util.WriteJSONAtomic(path, disk); err != nil {
		return fmt.Errorf("persist index %s: %w", path, err)
	}
	return nil
}

// Search returns up to k entries ordered by descending cosine similarity.
// Ties keep insertion order.
func (ix *Index) Search(query []float32, k int) []Result {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if k <= 0 || len(ix.entries) == 0 {
		return nil
	}
	scores := make([]float64, len(ix.vectors))
	for i, v := range ix.vectors {
		scores[i] = cosine(query, v)
	}
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	if k > len(order) {
		k = len(order)
	}
	out := make([]Result, 0, k)
	for _, i := range order[:k] {
		e := ix.entries[i]
		out = append(out, Result{Text: e.Text, Source: e.Source, Score: scores[i]})
	}
	return out
}

// Clear removes the persisted index state. A later OpenOrCreate starts
// fresh.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear index %s: %w", path, err)
	}
	return nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
