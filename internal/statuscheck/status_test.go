package statuscheck

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeBucket struct{ err error }

func (f fakeBucket) Health(ctx context.Context) error { return f.err }

func TestSummaryUnconfigured(t *testing.T) {
	c := New(Options{})
	s := c.Summary(context.Background())
	if s.Redis.OK || s.Redis.Message != "not configured" {
		t.Fatalf("redis status = %+v", s.Redis)
	}
	if s.Storage.OK || s.Storage.Message != "not configured" {
		t.Fatalf("storage status = %+v", s.Storage)
	}
	if s.WorkDir.OK {
		t.Fatalf("work dir status = %+v", s.WorkDir)
	}
	if !s.Renderer.OK {
		t.Fatalf("renderer status = %+v", s.Renderer)
	}
}

func TestWorkDirProbe(t *testing.T) {
	c := New(Options{WorkDir: t.TempDir()})
	if st := c.checkWorkDir(); !st.OK {
		t.Fatalf("writable dir reported %+v", st)
	}
}

func TestHealthy(t *testing.T) {
	ok := New(Options{Redis: fakePinger{}, Bucket: fakeBucket{}, WorkDir: t.TempDir()})
	if !ok.Healthy(context.Background()) {
		t.Fatal("all subsystems up should be healthy")
	}

	down := New(Options{Redis: fakePinger{err: errors.New("connection refused")}, WorkDir: t.TempDir()})
	if down.Healthy(context.Background()) {
		t.Fatal("failing redis should report unhealthy")
	}

	unconfigured := New(Options{WorkDir: t.TempDir()})
	if !unconfigured.Healthy(context.Background()) {
		t.Fatal("unconfigured subsystems should not fail health")
	}
}
