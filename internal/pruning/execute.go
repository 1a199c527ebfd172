package pruning

import (
	"time"

	"github.com/icco-engine/icco/internal/config"
	"github.com/icco-engine/icco/internal/entry"
	"github.com/icco-engine/icco/internal/scorer"
	"github.com/icco-engine/icco/internal/tiering"
)

// scopeEntries returns the entries a decision may act over: every live
// entry, or only those in ctx's session when session_isolation is set
// (spec §4.B). Utilization itself is always computed globally — see
// DESIGN.md's Open Question decisions.
func scopeEntries(store *entry.Store, cfg config.Config, sessionID string) []*entry.Entry {
	if cfg.SessionIsolation {
		return store.AllInSession(sessionID)
	}
	return store.All()
}

func levelTarget(level Level, cfg config.Config) float64 {
	switch level {
	case LevelSoft:
		return cfg.SoftThreshold
	case LevelHard:
		return cfg.TargetUtilization
	case LevelEmergency:
		t := cfg.TargetUtilization - 0.10
		if t < 0 {
			t = 0
		}
		return t
	default:
		return 1.0
	}
}

// Decide produces a PruningDecision for the current state (spec §4.E).
func (c *Controller) Decide(store *entry.Store, sim scorer.Similarity, ctx scorer.Context, now int64) Decision {
	total := store.TotalEffectiveTokens()
	u := float64(total) / float64(c.cfg.ContextWindowSize)
	level := c.effectiveLevel(u)

	if level == LevelNone {
		return Decision{Level: LevelNone, Rationale: RationaleNone}
	}

	scope := scopeEntries(store, c.cfg, ctx.SessionID)
	relW, lruW := c.AdaptiveWeights()
	ordered := order(scope, c.cfg.Strategy, ctx, sim, c.adv, relW, lruW)
	filtered := filterPreserved(ordered, scope, c.cfg, level == LevelEmergency)

	rationale := RationaleEvicted
	if level == LevelSoft {
		rationale = RationaleCompressed
	}
	if len(filtered) == 0 {
		rationale = RationalePressureUnrelieved
	}

	var predicted int64
	for _, e := range filtered {
		predicted += int64(e.EffectiveTokens())
	}

	targets := make([]string, len(filtered))
	for i, e := range filtered {
		targets[i] = e.ID
	}

	return Decision{Level: level, Targets: targets, PredictedTokensFreed: predicted, Rationale: rationale}
}

// Execute carries out a decision against store (spec §4.E "Execution").
func (c *Controller) Execute(store *entry.Store, compressor *tiering.Compressor, decision Decision, sessionID string, now int64) Result {
	if decision.Level == LevelNone {
		return Result{Level: LevelNone, FinalUtilization: float64(store.TotalEffectiveTokens()) / float64(c.cfg.ContextWindowSize)}
	}

	start := time.Now()
	targetTokens := int64(levelTarget(decision.Level, c.cfg) * float64(c.cfg.ContextWindowSize))
	current := store.TotalEffectiveTokens()

	var entriesRemoved, entriesCompressed int
	var tokensFreed int64

	for _, id := range decision.Targets {
		if current <= targetTokens {
			break
		}
		live, ok := store.Get(id)
		if !ok {
			continue
		}
		before := live.EffectiveTokens()

		if decision.Level == LevelSoft && live.Tier == entry.TierHot {
			ratio := tiering.CompressionRatio(entry.TierWarm, c.cfg.Tiers)
			if compressed, ok2 := compressor.Compress(live, ratio, entry.CompressionMethod(c.cfg.CompressionStrategy), now); ok2 {
				store.SetTier(id, entry.TierWarm, compressed)
				freed := before - compressed.CompressedTokens
				tokensFreed += int64(freed)
				current -= int64(freed)
				entriesCompressed++
				continue
			}
		}

		store.Remove(id)
		entriesRemoved++
		tokensFreed += int64(before)
		current -= int64(before)
	}

	if decision.Level == LevelEmergency {
		archivedFreed, archivedCount := c.archiveSurvivingCold(store, compressor, sessionID, now)
		tokensFreed += archivedFreed
		entriesCompressed += archivedCount
		current = store.TotalEffectiveTokens()
	}

	finalUtilization := float64(current) / float64(c.cfg.ContextWindowSize)
	pressureUnrelieved := entriesRemoved == 0 && entriesCompressed == 0

	hit := finalUtilization < c.cfg.TargetUtilization
	compactionPrevented := finalUtilization < c.cfg.HardThreshold
	c.recordExecution(decision.Level, float64(store.TotalEffectiveTokens())/float64(c.cfg.ContextWindowSize), hit, compactionPrevented)

	return Result{
		Level:              decision.Level,
		EntriesRemoved:     entriesRemoved,
		TokensFreed:        tokensFreed,
		EntriesCompressed:  entriesCompressed,
		DurationMs:         time.Since(start).Milliseconds(),
		FinalUtilization:   finalUtilization,
		PressureUnrelieved: pressureUnrelieved,
	}
}

// archiveSurvivingCold moves cold-tier entries that survived eviction
// into the archived tier (spec §4.E emergency: "move surviving cold
// entries to archived; preservation rules still apply").
func (c *Controller) archiveSurvivingCold(store *entry.Store, compressor *tiering.Compressor, sessionID string, now int64) (int64, int) {
	scope := scopeEntries(store, c.cfg, sessionID)
	var cold []*entry.Entry
	for _, e := range scope {
		if e.Tier == entry.TierCold {
			cold = append(cold, e)
		}
	}
	survivors := filterPreserved(cold, scope, c.cfg, true)

	var freed int64
	var count int
	for _, e := range survivors {
		live, ok := store.Get(e.ID)
		if !ok {
			continue
		}
		before := live.EffectiveTokens()
		compressed, ok2 := compressor.Compress(live, config.ArchivedCompressionRatio, entry.CompressionMethod(c.cfg.CompressionStrategy), now)
		if !ok2 {
			continue
		}
		store.SetTier(e.ID, entry.TierArchived, compressed)
		freed += int64(before - compressed.CompressedTokens)
		count++
	}
	return freed, count
}
