package metrics

import "testing"

func TestCountersIncrement(t *testing.T) {
	m := New()
	m.IncAdds()
	m.IncAdds()
	m.IncAccesses()
	m.IncPruneLevel("soft")
	m.IncPruneLevel("soft")
	m.IncCompactionsPrevented()

	s := m.Snapshot()
	if s.Adds != 2 || s.Accesses != 1 || s.CompactionsPrevented != 1 {
		t.Fatalf("unexpected counters: %+v", s)
	}
	if s.PrunesByLevel["soft"] != 2 {
		t.Fatalf("expected 2 soft prunes, got %+v", s.PrunesByLevel)
	}
}

func TestGaugesSetAtomically(t *testing.T) {
	m := New()
	m.SetGauges(0.5, 10, 5000)
	s := m.Snapshot()
	if s.Utilization != 0.5 || s.EntriesTotal != 10 || s.TokensTotal != 5000 {
		t.Fatalf("unexpected gauges: %+v", s)
	}
}

func TestHistogramMeanMinMax(t *testing.T) {
	m := New()
	m.ObserveScoringLatency(10)
	m.ObserveScoringLatency(20)
	m.ObserveScoringLatency(30)

	s := m.Snapshot()
	if s.ScoringLatencyMs.Count != 3 {
		t.Fatalf("expected count 3, got %d", s.ScoringLatencyMs.Count)
	}
	if s.ScoringLatencyMs.Mean() != 20 {
		t.Fatalf("expected mean 20, got %f", s.ScoringLatencyMs.Mean())
	}
	if s.ScoringLatencyMs.Min != 10 || s.ScoringLatencyMs.Max != 30 {
		t.Fatalf("unexpected min/max: %+v", s.ScoringLatencyMs)
	}
}

func TestResetClearsEverything(t *testing.T) {
	m := New()
	m.IncAdds()
	m.SetGauges(0.9, 1, 1)
	m.ObservePruningLatency(5)
	m.Reset()

	s := m.Snapshot()
	if s.Adds != 0 || s.Utilization != 0 || s.PruningLatencyMs.Count != 0 {
		t.Fatalf("expected reset metrics, got %+v", s)
	}
}

func TestSnapshotRoundTripsThroughLoadSnapshot(t *testing.T) {
	a := New()
	a.IncAdds()
	a.IncPruneLevel("hard")
	a.SetGauges(0.7, 3, 900)
	a.ObserveScoringLatency(42)

	snap := a.Snapshot()

	b := New()
	b.LoadSnapshot(snap)
	got := b.Snapshot()

	if got.Adds != snap.Adds || got.Utilization != snap.Utilization {
		t.Fatalf("expected identical snapshot after load, got %+v vs %+v", got, snap)
	}
	if got.PrunesByLevel["hard"] != 1 {
		t.Fatalf("expected prunes_by_level preserved, got %+v", got.PrunesByLevel)
	}
}
