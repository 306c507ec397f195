package index

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreSnapshotReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	ix, err := OpenOrCreate(path)
	if err != nil {
		t.Fatal(err)
	}

	store := NewStore(path)
	snap, err := store.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Len() != 0 {
		t.Fatalf("expected empty snapshot, got %d", snap.Len())
	}

	err = ix.Insert([]Entry{{Text: "new"}}, [][]float32{{1, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if err := ix.Persist(path); err != nil {
		t.Fatal(err)
	}

	snap, err = store.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Len() != 1 {
		t.Fatalf("snapshot did not pick up persisted insert, len %d", snap.Len())
	}
}

func TestStoreSnapshotReloadsWithinMtimeTick(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	ix, err := OpenOrCreate(path)
	if err != nil {
		t.Fatal(err)
	}

	store := NewStore(path)
	if _, err := store.Snapshot(); err != nil {
		t.Fatal(err)
	}
	before, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	err = ix.Insert([]Entry{{Text: "committed in the same tick"}}, [][]float32{{0, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if err := ix.Persist(path); err != nil {
		t.Fatal(err)
	}
	// Pin the new file to the old mtime, simulating two commits inside one
	// filesystem timestamp tick. The size difference must still trigger a
	// reload.
	if err := os.Chtimes(path, before.ModTime(), before.ModTime()); err != nil {
		t.Fatal(err)
	}

	snap, err := store.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Len() != 1 {
		t.Fatalf("stale snapshot served for same-mtime commit, len %d", snap.Len())
	}
}

func TestStoreExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	store := NewStore(path)
	if store.Exists() {
		t.Fatal("store should not exist before create")
	}
	if _, err := OpenOrCreate(path); err != nil {
		t.Fatal(err)
	}
	if !store.Exists() {
		t.Fatal("store should exist after create")
	}
}

func TestStoreInvalidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	if _, err := OpenOrCreate(path); err != nil {
		t.Fatal(err)
	}
	store := NewStore(path)
	if _, err := store.Snapshot(); err != nil {
		t.Fatal(err)
	}
	if err := Clear(path); err != nil {
		t.Fatal(err)
	}
	store.Invalidate()
	if _, err := store.Snapshot(); err == nil {
		t.Fatal("snapshot of a cleared path should fail after invalidate")
	}
}
