package pipeline

import "testing"

func TestStateTransitions(t *testing.T) {
	cases := []struct {
		from, to State
		ok       bool
	}{
		{StateCreated, StateExtracting, true},
		{StateCreated, StateFailed, true},
		{StateExtracting, StateSampling, true},
		{StateExtracting, StateFailed, true},
		{StateSampling, StateQuantizing, true},
		{StateQuantizing, StateAssembling, true},
		{StateAssembling, StateCompleted, true},
		{StateAssembling, StateFailed, true},
		{StateCreated, StateSampling, false},
		{StateCreated, StateCompleted, false},
		{StateExtracting, StateQuantizing, false},
		{StateSampling, StateCompleted, false},
		{StateQuantizing, StateSampling, false},
		{StateCompleted, StateFailed, false},
		{StateCompleted, StateExtracting, false},
		{StateFailed, StateExtracting, false},
		{StateFailed, StateCompleted, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.ok {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{StateCreated, StateExtracting, StateSampling, StateQuantizing, StateAssembling} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []State{StateCompleted, StateFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestStatsCompressionPercent(t *testing.T) {
	s := Stats{OriginalBytes: 1000, OptimizedBytes: 250}
	if got := s.CompressionPercent(); got != 75 {
		t.Fatalf("compression = %v, want 75", got)
	}
	if got := (Stats{}).CompressionPercent(); got != 0 {
		t.Fatalf("empty stats compression = %v, want 0", got)
	}
}
