package index

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/HardikTIET/MUJ-RAGBOT/internal/util"
)

func tempIndexPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "index.json")
}

func TestOpenOrCreatePersistsEmptyState(t *testing.T) {
	path := tempIndexPath(t)
	ix, err := OpenOrCreate(path)
	if err != nil {
		t.Fatal(err)
	}
	if ix.Len() != 0 {
		t.Fatalf("fresh index not empty: %d", ix.Len())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("fresh index was not persisted: %v", err)
	}
	again, err := OpenOrCreate(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.Len() != 0 {
		t.Fatalf("reloaded fresh index not empty: %d", again.Len())
	}
}

func TestSearchOrderingAndBound(t *testing.T) {
	ix := &Index{}
	entries := []Entry{
		{Text: "a", Source: "one.pdf"},
		{Text: "b", Source: "one.pdf"},
		{Text: "c", Source: "two.pdf"},
	}
	vectors := [][]float32{
		{1, 0},
		{0.6, 0.8},
		{0, 1},
	}
	if err := ix.Insert(entries, vectors); err != nil {
		t.Fatal(err)
	}
	res := ix.Search([]float32{1, 0}, 2)
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	if res[0].Text != "a" || res[1].Text != "b" {
		t.Fatalf("unexpected order: %+v", res)
	}
	if res[0].Score < res[1].Score {
		t.Fatalf("scores not descending: %v %v", res[0].Score, res[1].Score)
	}
	if got := ix.Search([]float32{1, 0}, 10); len(got) != 3 {
		t.Fatalf("k beyond size should cap at len, got %d", len(got))
	}
}

func TestSearchStableTieBreak(t *testing.T) {
	ix := &Index{}
	err := ix.Insert(
		[]Entry{{Text: "first"}, {Text: "second"}, {Text: "third"}},
		[][]float32{{1, 0}, {2, 0}, {3, 0}}, // identical cosine direction
	)
	if err != nil {
		t.Fatal(err)
	}
	res := ix.Search([]float32{1, 0}, 3)
	if res[0].Text != "first" || res[1].Text != "second" || res[2].Text != "third" {
		t.Fatalf("equal scores must keep insertion order: %+v", res)
	}
}

func TestInsertValidation(t *testing.T) {
	ix := &Index{}
	if err := ix.Insert([]Entry{{Text: "a"}}, nil); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if err := ix.Insert([]Entry{{Text: "a"}}, [][]float32{{1, 2, 3}}); err != nil {
		t.Fatal(err)
	}
	if err := ix.Insert([]Entry{{Text: "b"}}, [][]float32{{1, 2}}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestPersistRoundTrip(t *testing.T) {
	path := tempIndexPath(t)
	ix, err := OpenOrCreate(path)
	if err != nil {
		t.Fatal(err)
	}
	err = ix.Insert(
		[]Entry{{Text: "late policy", Source: "syllabus.pdf"}, {Text: "grading scale", Source: "syllabus.pdf"}},
		[][]float32{{0.9, 0.1, 0}, {0.1, 0.9, 0}},
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := ix.Persist(path); err != nil {
		t.Fatal(err)
	}

	reloaded, err := OpenOrCreate(path)
	if err != nil {
		t.Fatal(err)
	}
	query := []float32{1, 0, 0}
	want := ix.Search(query, 2)
	got := reloaded.Search(query, 2)
	if len(want) != len(got) {
		t.Fatalf("result counts differ: %d vs %d", len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("result %d differs after round trip: %+v vs %+v", i, want[i], got[i])
		}
	}
}

func TestInsertWithoutPersistLeavesDiskUntouched(t *testing.T) {
	path := tempIndexPath(t)
	ix, err := OpenOrCreate(path)
	if err != nil {
		t.Fatal(err)
	}
	err = ix.Insert([]Entry{{Text: "unsaved"}}, [][]float32{{1, 1}})
	if err != nil {
		t.Fatal(err)
	}
	// Simulates a crash between insert and persist: the on-disk index must
	// still be the pre-insert state.
	reloaded, err := OpenOrCreate(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 0 {
		t.Fatalf("unpersisted insert leaked to disk: %d entries", reloaded.Len())
	}
}

func TestCorruptIndexReported(t *testing.T) {
	path := tempIndexPath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := OpenOrCreate(path)
	if !errors.Is(err, util.ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
}

func TestClear(t *testing.T) {
	path := tempIndexPath(t)
	if _, err := OpenOrCreate(path); err != nil {
		t.Fatal(err)
	}
	if err := Clear(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("index file should be gone, stat err: %v", err)
	}
	if err := Clear(path); err != nil {
		t.Fatalf("clearing an already-clear path should be a no-op: %v", err)
	}
	ix, err := OpenOrCreate(path)
	if err != nil {
		t.Fatal(err)
	}
	if ix.Len() != 0 {
		t.Fatalf("index after clear should be empty, got %d", ix.Len())
	}
}
