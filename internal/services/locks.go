package services

import "sync"

// ProjectLocks serializes logical operations per project id. Operations
// on different projects proceed concurrently; two operations on the same
// project never interleave their read-modify-write of the aggregates.
// Mutexes are created lazily and kept for the process lifetime (project
// records are never deleted, so neither are their locks).
type ProjectLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewProjectLocks() *ProjectLocks {
	return &ProjectLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the mutex for projectID and returns the unlock func.
// Callers defer the returned func so every exit path releases.
func (pl *ProjectLocks) Lock(projectID int64) func() {
	pl.mu.Lock()
	m, ok := pl.locks[projectID]
	if !ok {
		m = &sync.Mutex{}
		pl.locks[projectID] = m
	}
	pl.mu.Unlock()

	m.Lock()
	return m.Unlock
}
