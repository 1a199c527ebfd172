package engine

import (
	"fmt"

	"github.com/icco-engine/icco/internal/entry"
	"github.com/icco-engine/icco/internal/persist"
)

// buildSnapshotBlob encodes current entries, sequence counters, config
// fingerprint, and metrics into an opaque blob (spec §6 "Persisted state
// layout"). Caller must hold e.mu.
func (e *Engine) buildSnapshotBlob() ([]byte, error) {
	entries := e.store.All()
	records := make([]persist.EntryRecord, 0, len(entries))
	for _, ent := range entries {
		records = append(records, persist.ToRecord(ent))
	}

	snap := persist.Snapshot{
		EngineVersion:     persist.EngineVersion,
		ConfigFingerprint: e.cfg.Fingerprint(),
		Entries:           records,
		SequenceCounters:  e.store.SequenceCounters(),
		Counters:          e.metrics.Snapshot(),
	}
	return persist.Encode(snap)
}

// restoreSnapshotBlob decodes blob and atomically replaces the store and
// metrics. A config fingerprint mismatch is logged but non-fatal: the
// snapshot's entries are still structurally valid under the current
// config (see DESIGN.md). Caller must hold e.mu.
func (e *Engine) restoreSnapshotBlob(blob []byte) error {
	snap, err := persist.Decode(blob)
	if err != nil {
		return fmt.Errorf("engine: decode snapshot: %w", err)
	}

	if snap.ConfigFingerprint != e.cfg.Fingerprint() {
		e.logger.Warn("restoring snapshot saved under a different config",
			"snapshot_fingerprint", snap.ConfigFingerprint, "current_fingerprint", e.cfg.Fingerprint())
	}

	entries := make([]*entry.Entry, 0, len(snap.Entries))
	for _, rec := range snap.Entries {
		entries = append(entries, persist.FromRecord(rec))
	}

	e.store.ReplaceAll(entries, snap.SequenceCounters)
	e.metrics.LoadSnapshot(snap.Counters)
	e.refreshGauges()
	return nil
}
