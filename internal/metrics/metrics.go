// Package metrics maintains the counters, gauges, and histograms the
// engine exposes via get_metrics (spec §4.F). Grounded on the teacher's
// internal/store/sqlite.go migration-versioning idiom for the snapshot
// format's engine-version tag and on its structured-counter style
// elsewhere in internal/memory.
package metrics

import "sync"

// Histogram keeps running aggregate stats without retaining individual
// samples — enough to answer "how slow did this get" without unbounded
// memory growth.
type Histogram struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
}

func (h *Histogram) observe(v float64) {
	if h.Count == 0 {
		h.Min, h.Max = v, v
	} else {
		if v < h.Min {
			h.Min = v
		}
		if v > h.Max {
			h.Max = v
		}
	}
	h.Count++
	h.Sum += v
}

// Mean returns the average observed value, or 0 if nothing was observed.
func (h Histogram) Mean() float64 {
	if h.Count == 0 {
		return 0
	}
	return h.Sum / float64(h.Count)
}

// Snapshot is an immutable, point-in-time copy of all metrics, safe to
// hand to a caller (spec §4.F / §4.G get_metrics).
type Snapshot struct {
	Adds                 int64
	Accesses             int64
	PrunesByLevel        map[string]int64
	CompactionsPrevented int64

	Utilization float64
	EntriesTotal int64
	TokensTotal  int64

	ScoringLatencyMs Histogram
	PruningLatencyMs Histogram
}

// Metrics is the live, mutable store behind Snapshot.
type Metrics struct {
	mu sync.Mutex

	adds                 int64
	accesses             int64
	prunesByLevel        map[string]int64
	compactionsPrevented int64

	utilization float64
	entriesTotal int64
	tokensTotal  int64

	scoringLatencyMs Histogram
	pruningLatencyMs Histogram
}

// New builds an empty Metrics.
func New() *Metrics {
	return &Metrics{prunesByLevel: make(map[string]int64)}
}

// IncAdds increments the add() counter.
func (m *Metrics) IncAdds() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adds++
}

// IncAccesses increments the access() counter.
func (m *Metrics) IncAccesses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accesses++
}

// IncPruneLevel records one prune execution at the given level.
func (m *Metrics) IncPruneLevel(level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prunesByLevel[level]++
}

// IncCompactionsPrevented increments the compaction-prevention counter.
func (m *Metrics) IncCompactionsPrevented() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compactionsPrevented++
}

// SetGauges overwrites the point-in-time gauges in one call, so a caller
// never observes them out of sync with each other.
func (m *Metrics) SetGauges(utilization float64, entriesTotal, tokensTotal int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.utilization = utilization
	m.entriesTotal = entriesTotal
	m.tokensTotal = tokensTotal
}

// ObserveScoringLatency records one score_all call's wall-clock duration.
func (m *Metrics) ObserveScoringLatency(ms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scoringLatencyMs.observe(ms)
}

// ObservePruningLatency records one prune execution's wall-clock duration.
func (m *Metrics) ObservePruningLatency(ms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruningLatencyMs.observe(ms)
}

// Snapshot returns an immutable copy of current metrics.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	byLevel := make(map[string]int64, len(m.prunesByLevel))
	for k, v := range m.prunesByLevel {
		byLevel[k] = v
	}
	return Snapshot{
		Adds:                 m.adds,
		Accesses:             m.accesses,
		PrunesByLevel:        byLevel,
		CompactionsPrevented: m.compactionsPrevented,
		Utilization:          m.utilization,
		EntriesTotal:         m.entriesTotal,
		TokensTotal:          m.tokensTotal,
		ScoringLatencyMs:     m.scoringLatencyMs,
		PruningLatencyMs:     m.pruningLatencyMs,
	}
}

// Reset clears all counters, gauges, and histograms.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adds = 0
	m.accesses = 0
	m.prunesByLevel = make(map[string]int64)
	m.compactionsPrevented = 0
	m.utilization = 0
	m.entriesTotal = 0
	m.tokensTotal = 0
	m.scoringLatencyMs = Histogram{}
	m.pruningLatencyMs = Histogram{}
}

// LoadSnapshot replaces current state with a previously captured snapshot
// (used by restore()). The caller must already hold whatever higher-level
// lock makes the overall restore atomic (spec §4.F).
func (m *Metrics) LoadSnapshot(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adds = s.Adds
	m.accesses = s.Accesses
	m.prunesByLevel = make(map[string]int64, len(s.PrunesByLevel))
	for k, v := range s.PrunesByLevel {
		m.prunesByLevel[k] = v
	}
	m.compactionsPrevented = s.CompactionsPrevented
	m.utilization = s.Utilization
	m.entriesTotal = s.EntriesTotal
	m.tokensTotal = s.TokensTotal
	m.scoringLatencyMs = s.ScoringLatencyMs
	m.pruningLatencyMs = s.PruningLatencyMs
}
