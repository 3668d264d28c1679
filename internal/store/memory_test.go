package store

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStatusSetGet(t *testing.T) {
	s := NewMemoryStatus()
	ctx := context.Background()

	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Fatal("found a job that was never set")
	}

	start := time.Now()
	in := Snapshot{
		State:    "quantizing",
		Progress: 60,
		Message:  "page 3 of 5",
		Start:    &start,
		Metadata: map[string]interface{}{"pages": 5},
	}
	if err := s.Set(ctx, "job-1", in); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.Get(ctx, "job-1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.State != "quantizing" || got.Progress != 60 || got.Message != "page 3 of 5" {
		t.Errorf("snapshot = %+v", got)
	}
	if got.Metadata["pages"] != 5 {
		t.Errorf("metadata = %v", got.Metadata)
	}
}

func TestMemoryStatusDetachesMetadata(t *testing.T) {
	s := NewMemoryStatus()
	ctx := context.Background()

	meta := map[string]interface{}{"k": "original"}
	if err := s.Set(ctx, "job-1", Snapshot{State: "created", Metadata: meta}); err != nil {
		t.Fatal(err)
	}
	meta["k"] = "mutated by caller"

	got, _, _ := s.Get(ctx, "job-1")
	if got.Metadata["k"] != "original" {
		t.Errorf("stored metadata followed caller mutation: %v", got.Metadata)
	}

	got.Metadata["k"] = "mutated by reader"
	again, _, _ := s.Get(ctx, "job-1")
	if again.Metadata["k"] != "original" {
		t.Errorf("stored metadata followed reader mutation: %v", again.Metadata)
	}
}

func TestMemoryStatusList(t *testing.T) {
	s := NewMemoryStatus()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := s.Set(ctx, id, Snapshot{State: "created"}); err != nil {
			t.Fatal(err)
		}
	}

	ids, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c"}
	if len(ids) != 3 {
		t.Fatalf("List = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("List = %v, want %v", ids, want)
		}
	}
}

func TestMemoryStatusConcurrent(t *testing.T) {
	s := NewMemoryStatus()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for p := 0; p <= 100; p += 10 {
				_ = s.Set(ctx, "shared", Snapshot{State: "quantizing", Progress: p})
				if st, ok, _ := s.Get(ctx, "shared"); ok && st.State != "quantizing" {
					t.Errorf("inconsistent snapshot: %+v", st)
				}
			}
		}(i)
	}
	wg.Wait()
}
