// Package tiering assigns entries to hot/warm/cold tiers by age and access
// recency, applies lossy compression on demotion, and computes the
// per-tier relevance decay consumed by the scorer (spec §4.C). Grounded
// on the teacher's internal/memory/lifecycle.go tier-walk shape and
// internal/sessions/summarizer.go's truncate-for-context-budget pattern.
package tiering

import (
	"github.com/icco-engine/icco/internal/config"
	"github.com/icco-engine/icco/internal/entry"
)

// RecentlyAccessed reports whether lastAccessedAt is fresh enough, under
// promote_on_access, to pull an entry back to hot regardless of its age
// (spec §4.C "tier assignment ... recomputed, not stored incrementally").
func RecentlyAccessed(now, lastAccessedAt int64, tiers config.Tiers, promoteOnAccess bool) bool {
	return promoteOnAccess && now > lastAccessedAt && now-lastAccessedAt < tiers.Hot.MaxAgeMs
}

// TargetTier computes the tier an entry belongs in given the current
// clock, independent of its current tier (spec §4.C "Tier assignment").
// A non-monotonic clock (now <= created_at) yields age 0, so the entry
// never demotes (spec §8 boundary behavior). TargetTier only ever names
// Hot, Warm, or Cold: Archived is reached exclusively through emergency
// pruning pressure (spec §4.E), never by age alone, and callers must not
// feed its result back to an already-archived entry (see
// engine.TransitionTiers).
func TargetTier(now int64, createdAt, lastAccessedAt int64, tiers config.Tiers, promoteOnAccess bool) entry.Tier {
	if RecentlyAccessed(now, lastAccessedAt, tiers, promoteOnAccess) {
		return entry.TierHot
	}
	age := now - createdAt
	if age < 0 {
		age = 0
	}
	switch {
	case age < tiers.Hot.MaxAgeMs:
		return entry.TierHot
	case age < tiers.Warm.MaxAgeMs:
		return entry.TierWarm
	default:
		return entry.TierCold
	}
}

// CompressionRatio returns the configured ratio for a tier, or the
// implicit archived ratio (spec §3: "archived has compression_ratio =
// 0.03 implicitly").
func CompressionRatio(tier entry.Tier, tiers config.Tiers) float64 {
	switch tier {
	case entry.TierHot:
		return 1.0
	case entry.TierWarm:
		return tiers.Warm.CompressionRatio
	case entry.TierCold:
		return tiers.Cold.CompressionRatio
	case entry.TierArchived:
		return config.ArchivedCompressionRatio
	default:
		return 1.0
	}
}

// Decay returns the additive relevance penalty for a tier (spec §4.C
// "Decay"): hot=0, warm=decay_rate, cold=2*decay_rate, archived=3*decay_rate.
func Decay(tier entry.Tier, decayRate float64) float64 {
	switch tier {
	case entry.TierWarm:
		return decayRate
	case entry.TierCold:
		return 2 * decayRate
	case entry.TierArchived:
		return 3 * decayRate
	default:
		return 0
	}
}

// TransitionCounts tallies what a transition_tiers pass did, for the
// Metrics component (spec §4.F) and the facade's TierTransitionResult.
type TransitionCounts struct {
	HotToWarm     int
	WarmToCold    int
	ColdToArchived int
	Promoted      int
	TokensSaved   int64
}

// Add folds one entry's before/after tier change into the counts.
func (c *TransitionCounts) Add(before, after entry.Tier, tokensSaved int) {
	switch {
	case before == entry.TierHot && after != entry.TierHot:
		c.HotToWarm++
	case before == entry.TierWarm && after == entry.TierCold:
		c.WarmToCold++
	case before == entry.TierCold && after == entry.TierArchived:
		c.ColdToArchived++
	case rank(after) < rank(before):
		c.Promoted++
	}
	c.TokensSaved += int64(tokensSaved)
}

func rank(t entry.Tier) int {
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
