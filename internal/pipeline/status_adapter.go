package pipeline

import (
	"context"

	"github.com/local/pagepress/internal/store"
)

// redisStatusAdapter bridges the Redis snapshot store to StatusStore so
// the store package never imports pipeline types.
type redisStatusAdapter struct {
	s *store.RedisStatus
}

// NewRedisStatusAdapter wraps a Redis-backed status store.
func NewRedisStatusAdapter(s *store.RedisStatus) StatusStore {
	return &redisStatusAdapter{s: s}
}

func (a *redisStatusAdapter) Set(ctx context.Context, jobID string, st Status) error {
	return a.s.Set(ctx, jobID, toSnapshot(st))
}

func (a *redisStatusAdapter) Get(ctx context.Context, jobID string) (Status, bool, error) {
	snap, ok, err := a.s.Get(ctx, jobID)
	if err != nil || !ok {
		return Status{}, ok, err
	}
	return fromSnapshot(snap), true, nil
}

func (a *redisStatusAdapter) List(ctx context.Context) ([]string, error) {
	return a.s.List(ctx)
}

// memoryStatusAdapter serves single-process deployments and tests.
type memoryStatusAdapter struct {
	s *store.MemoryStatus
}

// NewMemoryStatusAdapter wraps an in-process status store.
func NewMemoryStatusAdapter(s *store.MemoryStatus) StatusStore {
	return &memoryStatusAdapter{s: s}
}

func (a *memoryStatusAdapter) Set(ctx context.Context, jobID string, st Status) error {
	return a.s.Set(ctx, jobID, toSnapshot(st))
}

func (a *memoryStatusAdapter) Get(ctx context.Context, jobID string) (Status, bool, error) {
	snap, ok, err := a.s.Get(ctx, jobID)
	if err != nil || !ok {
		return Status{}, ok, err
	}
	return fromSnapshot(snap), true, nil
}

func (a *memoryStatusAdapter) List(ctx context.Context) ([]string, error) {
	return a.s.List(ctx)
}

func toSnapshot(st Status) store.Snapshot {
	return store.Snapshot{
		State:    string(st.State),
		Progress: st.Progress,
		Message:  st.Message,
		Start:    st.Start,
		End:      st.End,
		Metadata: st.Metadata,
	}
}

func fromSnapshot(sn store.Snapshot) Status {
	return Status{
		State:    State(sn.State),
		Progress: sn.Progress,
		Message:  sn.Message,
		Start:    sn.Start,
		End:      sn.End,
		Metadata: sn.Metadata,
	}
}

// pageStatsAdapter writes per-page records through the Redis page
// store.
type pageStatsAdapter struct {
	s *store.PageStats
}

// NewPageStatsAdapter wraps a Redis-backed page stats store.
func NewPageStatsAdapter(s *store.PageStats) PageStatStore {
	return &pageStatsAdapter{s: s}
}

func (a *pageStatsAdapter) SavePage(ctx context.Context, jobID string, stat PageStat) error {
	return a.s.SavePage(ctx, jobID, stat.Page, store.PageRecord{
		OriginalBytes:  stat.OriginalBytes,
		OptimizedBytes: stat.OptimizedBytes,
		Colors:         stat.Colors,
	})
}
