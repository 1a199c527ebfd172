package engine

import (
	"fmt"

	"github.com/icco-engine/icco/internal/entry"
	"github.com/icco-engine/icco/internal/pruning"
	"github.com/icco-engine/icco/internal/scorer"
	"github.com/icco-engine/icco/internal/tiering"
)

// PruneResult is the return value of the three hooks that may trigger a
// prune pass (spec §4.G): on_user_prompt_submit, on_post_tool_use, and
// on_pre_compact.
type PruneResult struct {
	Level              pruning.Level
	EntriesRemoved     int
	EntriesCompressed  int
	TokensFreed        int64
	FinalUtilization   float64
	PressureUnrelieved bool
}

func resultFrom(r pruning.Result) PruneResult {
	return PruneResult{
		Level:              r.Level,
		EntriesRemoved:     r.EntriesRemoved,
		EntriesCompressed:  r.EntriesCompressed,
		TokensFreed:        r.TokensFreed,
		FinalUtilization:   r.FinalUtilization,
		PressureUnrelieved: r.PressureUnrelieved,
	}
}

// OnUserPromptSubmit builds a ScoringContext from query/session_id, scores
// every in-scope entry, decides whether to prune, and executes that
// decision (spec §4.G).
func (e *Engine) OnUserPromptSubmit(query, sessionID string, nowMs int64) PruneResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx := scorer.Context{CurrentQuery: query, SessionID: sessionID, TimestampMs: nowMs}
	e.scoreAllLocked(ctx, nowMs)

	decision := e.pruner.Decide(e.store, e.sim, ctx, nowMs)
	result := e.pruner.Execute(e.store, e.compressor, decision, sessionID, nowMs)
	if result.Level != pruning.LevelNone {
		e.metrics.IncPruneLevel(result.Level.String())
		if result.FinalUtilization < e.cfg.HardThreshold {
			e.metrics.IncCompactionsPrevented()
		}
	}
	e.metrics.ObservePruningLatency(float64(result.DurationMs))
	e.refreshGauges()
	return resultFrom(result)
}

// OnPostToolUse inserts a tool_result entry and, if utilization is
// already at or above the soft threshold, runs one lightweight prune
// pass in the same call (spec §4.G).
func (e *Engine) OnPostToolUse(toolName, toolInput, sessionID string, nowMs int64) (string, *PruneResult) {
	ent := e.Add(AddRequest{
		Source:    "tool_result",
		Type:      entry.TypeToolResult,
		Content:   toolInput,
		SessionID: sessionID,
		ToolName:  toolName,
		NowMs:     nowMs,
	})

	u := e.GetUtilization()
	if u < e.cfg.SoftThreshold {
		return ent.ID, nil
	}

	result := e.OnUserPromptSubmit("", sessionID, nowMs)
	return ent.ID, &result
}

// OnPreCompact forces at least an emergency-level prune, so the host
// runtime can cancel its own context compaction (spec §4.G).
func (e *Engine) OnPreCompact(sessionID string, nowMs int64) PruneResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx := scorer.Context{SessionID: sessionID, TimestampMs: nowMs}
	e.scoreAllLocked(ctx, nowMs)

	scope := e.scopeLocked(sessionID)

	decision := pruning.Decision{Level: pruning.LevelEmergency}
	ordered := e.scoreOrderForEmergency(scope, ctx, nowMs)
	decision.Targets = ordered

	var predicted int64
	for _, id := range ordered {
		if live, ok := e.store.Get(id); ok {
			predicted += int64(live.EffectiveTokens())
		}
	}
	decision.PredictedTokensFreed = predicted
	decision.Rationale = pruning.RationaleEvicted

	result := e.pruner.Execute(e.store, e.compressor, decision, sessionID, nowMs)
	e.metrics.IncPruneLevel(result.Level.String())
	e.metrics.ObservePruningLatency(float64(result.DurationMs))
	e.refreshGauges()
	return resultFrom(result)
}

// scoreOrderForEmergency produces the eviction order on_pre_compact uses:
// ascending relevance, same as the relevance selection strategy, since
// on_pre_compact bypasses the normal Decide() threshold gate.
func (e *Engine) scoreOrderForEmergency(scope []*entry.Entry, ctx scorer.Context, nowMs int64) []string {
	type scored struct {
		id    string
		score float64
	}
	ranked := make([]scored, 0, len(scope))
	for _, ent := range scope {
		live, ok := e.store.Get(ent.ID)
		if !ok {
			continue
		}
		ranked = append(ranked, scored{id: live.ID, score: live.Relevance})
	}
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].score < ranked[j-1].score; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.id
	}
	return ids
}

// TransitionTiers walks every entry, recomputes its target tier, and lets
// the compressor demote/promote it (spec §4.C "transition_tiers").
func (e *Engine) TransitionTiers(nowMs int64) tiering.TransitionCounts {
	e.mu.Lock()
	defer e.mu.Unlock()

	var counts tiering.TransitionCounts
	for _, ent := range e.store.All() {
		if ent.Tier == entry.TierArchived {
			// Archived is reached only under emergency pruning pressure,
			// never by age (spec §4.C), and TargetTier never names it -
			// so age alone can never justify leaving it either. Only a
			// fresh access (promote_on_access) un-archives an entry.
			if !tiering.RecentlyAccessed(nowMs, ent.LastAccessedMs, e.cfg.Tiers, e.cfg.PromoteOnAccess) {
				continue
			}
			before := ent.EffectiveTokens()
			e.store.SetTier(ent.ID, entry.TierHot, nil)
			after := before
			if live, ok := e.store.Get(ent.ID); ok {
				after = live.EffectiveTokens()
			}
			counts.Add(ent.Tier, entry.TierHot, before-after)
			continue
		}

		target := tiering.TargetTier(nowMs, ent.CreatedAtMs, ent.LastAccessedMs, e.cfg.Tiers, e.cfg.PromoteOnAccess)
		if target == ent.Tier {
			continue
		}

		before := ent.EffectiveTokens()

		if isPromotion(ent.Tier, target) {
			e.store.SetTier(ent.ID, target, nil)
			after := before
			if live, ok := e.store.Get(ent.ID); ok {
				after = live.EffectiveTokens()
			}
			counts.Add(ent.Tier, target, before-after)
			continue
		}

		ratio := tiering.CompressionRatio(target, e.cfg.Tiers)
		method := entry.CompressionMethod(e.cfg.CompressionStrategy)
		compressed, ok := e.compressor.Compress(ent, ratio, method, nowMs)
		if ok {
			e.store.SetTier(ent.ID, target, compressed)
		} else {
			e.store.SetTier(ent.ID, target, ent.Compressed)
		}
		after := before
		if live, ok := e.store.Get(ent.ID); ok {
			after = live.EffectiveTokens()
		}
		counts.Add(ent.Tier, target, before-after)
	}

	e.refreshGauges()
	return counts
}

// isPromotion reports whether after is strictly less compressed than
// before. Callers must handle entry.TierArchived before reaching here -
// TargetTier never emits Archived, so comparing it by rank alone would
// call every archived entry's next transition a "promotion".
func isPromotion(before, after entry.Tier) bool {
	rank := func(t entry.Tier) int {
		switch t {
		case entry.TierHot:
			return 0
		case entry.TierWarm:
			return 1
		case entry.TierCold:
			return 2
		case entry.TierArchived:
			return 3
		default:
			return 0
		}
	}
	return rank(after) < rank(before)
}

// SaveSnapshot serializes the entry store plus counters to an opaque
// blob and persists it under name (spec §4.F). Requires a configured
// persist store.
func (e *Engine) SaveSnapshot(name string, nowMs int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.persist == nil {
		return fmt.Errorf("engine: no persist store configured")
	}

	blob, err := e.buildSnapshotBlob()
	if err != nil {
		return fmt.Errorf("engine: build snapshot: %w", err)
	}
	if err := e.persist.Save(name, blob, nowMs); err != nil {
		return fmt.Errorf("engine: save snapshot %q: %w", name, err)
	}
	return nil
}

// RestoreSnapshot loads a previously saved snapshot by name and atomically
// replaces current state (spec §4.F "Snapshots are atomic"). A
// SnapshotVersionMismatch leaves the engine in its prior state (spec §7).
func (e *Engine) RestoreSnapshot(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.persist == nil {
		return fmt.Errorf("engine: no persist store configured")
	}

	blob, ok, err := e.persist.Load(name)
	if err != nil {
		return fmt.Errorf("engine: load snapshot %q: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("engine: no snapshot named %q", name)
	}

	return e.restoreSnapshotBlob(blob)
}
