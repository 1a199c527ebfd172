package tiering

import (
	"math"
	"testing"

	"github.com/icco-engine/icco/internal/config"
	"github.com/icco-engine/icco/internal/entry"
)

func testTiers() config.Tiers {
	return config.Tiers{
		Hot:  config.TierConfig{MaxAgeMs: 100, CompressionRatio: 1.0},
		Warm: config.TierConfig{MaxAgeMs: 1000, CompressionRatio: 0.25},
		Cold: config.TierConfig{MaxAgeMs: 10000, CompressionRatio: 0.1},
	}
}

func TestTargetTierByAge(t *testing.T) {
	tiers := testTiers()
	if got := TargetTier(50, 0, 0, tiers, false); got != entry.TierHot {
		t.Fatalf("expected hot, got %s", got)
	}
	if got := TargetTier(500, 0, 0, tiers, false); got != entry.TierWarm {
		t.Fatalf("expected warm, got %s", got)
	}
	if got := TargetTier(20000, 0, 0, tiers, false); got != entry.TierCold {
		t.Fatalf("expected cold, got %s", got)
	}
}

func TestTargetTierNonMonotonicClockNeverDemotes(t *testing.T) {
	tiers := testTiers()
	// now <= created_at: age must be treated as 0 (spec §8).
	if got := TargetTier(5, 100, 100, tiers, false); got != entry.TierHot {
		t.Fatalf("expected hot when clock is non-monotonic, got %s", got)
	}
}

func TestTargetTierPromoteOnAccess(t *testing.T) {
	tiers := testTiers()
	// Old by creation time, but accessed very recently.
	got := TargetTier(10000, 0, 9950, tiers, true)
	if got != entry.TierHot {
		t.Fatalf("expected promote_on_access to keep entry hot, got %s", got)
	}
}

func TestRecentlyAccessedMirrorsTargetTierPromotion(t *testing.T) {
	tiers := testTiers()
	if !RecentlyAccessed(10000, 9950, tiers, true) {
		t.Fatal("expected a fresh access within hot.max_age_ms to count as recent")
	}
	if RecentlyAccessed(10000, 0, tiers, true) {
		t.Fatal("expected a stale access to not count as recent")
	}
	if RecentlyAccessed(10000, 9950, tiers, false) {
		t.Fatal("expected promote_on_access=false to disable the signal entirely")
	}
}

func TestDecayByTier(t *testing.T) {
	rate := 0.1
	if Decay(entry.TierHot, rate) != 0 {
		t.Fatal("hot should have zero decay")
	}
	if Decay(entry.TierWarm, rate) != 0.1 {
		t.Fatal("warm decay mismatch")
	}
	if Decay(entry.TierCold, rate) != 0.2 {
		t.Fatal("cold decay mismatch")
	}
	if math.Abs(Decay(entry.TierArchived, rate)-0.3) > 1e-12 {
		t.Fatal("archived decay mismatch")
	}
}

func TestCompressionRatioArchivedImplicit(t *testing.T) {
	tiers := testTiers()
	if got := CompressionRatio(entry.TierArchived, tiers); got != config.ArchivedCompressionRatio {
		t.Fatalf("expected implicit archived ratio %f, got %f", config.ArchivedCompressionRatio, got)
	}
}

func TestTransitionCountsClassifiesMoves(t *testing.T) {
	var c TransitionCounts
	c.Add(entry.TierHot, entry.TierWarm, 50)
	c.Add(entry.TierWarm, entry.TierCold, 30)
	c.Add(entry.TierCold, entry.TierArchived, 10)
	c.Add(entry.TierCold, entry.TierHot, 0)

	if c.HotToWarm != 1 || c.WarmToCold != 1 || c.ColdToArchived != 1 || c.Promoted != 1 {
		t.Fatalf("unexpected counts: %+v", c)
	}
	if c.TokensSaved != 90 {
		t.Fatalf("expected tokens_saved=90, got %d", c.TokensSaved)
	}
}
