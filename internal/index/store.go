package index

import (
	"os"
	"sync"
	"time"
)

// Store is a read handle over a persisted index path. Snapshot serves a
// cached in-memory index and reloads it when the file on disk changed, so
// query traffic sees each committed write without re-decoding the file per
// request. Because persistence is rename-atomic a reload never observes a
// torn write, only the previous or the new snapshot.
type Store struct {
	path string

	mu      sync.Mutex
	idx     *Index
	modTime time.Time
	size    int64
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a persisted index is present at all. The
// orchestrator uses this to fail fast before accepting queries.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Snapshot returns the current index, reloading from disk if the persisted
// file changed since the last load. Staleness is judged on mtime and size
// together; two commits inside one mtime tick still differ in size whenever
// their content differs. A missing file is an error: readers never
// implicitly create a knowledge base.
func (s *Store) Snapshot() (*Index, error) {
	st, err := os.Stat(s.path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx != nil && st.ModTime().Equal(s.modTime) && st.Size() == s.size {
		return s.idx, nil
	}
	ix, err := load(s.path)
	if err != nil {
		return nil, err
	}
	s.idx = ix
	s.modTime = st.ModTime()
	s.size = st.Size()
	return ix, nil
}

// Invalidate drops the cached snapshot. Called after a knowledge-base clear
// so the next Snapshot reflects the removed file instead of stale state.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.idx = nil
	s.modTime = time.Time{}
	s.size = 0
	s.mu.Unlock()
}
