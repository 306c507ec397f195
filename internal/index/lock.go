package index

import (
	"path/filepath"
	"sync"
)

var (
	lockMu    sync.Mutex
	pathLocks = map[string]*sync.Mutex{}
)

// PathLock returns the process-wide mutex for an index path. Writers hold it
// across the whole open-insert-persist sequence (and across knowledge-base
// clears) so concurrent ingestions cannot interleave a lost update or tear
// the persisted file.
func PathLock(path string) *sync.Mutex {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	lockMu.Lock()
	defer lockMu.Unlock()
	mu, ok := pathLocks[path]
	if !ok {
		mu = &sync.Mutex{}
		pathLocks[path] = mu
	}
	return mu
}
