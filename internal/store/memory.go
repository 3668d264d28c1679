package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStatus keeps job snapshots in process memory. It is the
// default store for CLI runs where nothing needs to outlive the
// process. Safe for concurrent use.
type MemoryStatus struct {
	mu   sync.RWMutex
	jobs map[string]Snapshot
}

func NewMemoryStatus() *MemoryStatus {
	return &MemoryStatus{jobs: make(map[string]Snapshot)}
}

func (s *MemoryStatus) Set(ctx context.Context, jobID string, st Snapshot) error {
	st.Metadata = copyMeta(st.Metadata)
	s.mu.Lock()
	s.jobs[jobID] = st
	s.mu.Unlock()
	return nil
}

func (s *MemoryStatus) Get(ctx context.Context, jobID string) (Snapshot, bool, error) {
	s.mu.RLock()
	st, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, false, nil
	}
	st.Metadata = copyMeta(st.Metadata)
	return st, true, nil
}

// List returns every known job ID, sorted for stable output.
func (s *MemoryStatus) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStatus) Close() error { return nil }

// copyMeta detaches metadata so a stored snapshot cannot be mutated
// through a caller's map, and vice versa.
func copyMeta(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
