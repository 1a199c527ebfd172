package pruning

import (
	"testing"

	"github.com/icco-engine/icco/internal/advisor"
	"github.com/icco-engine/icco/internal/config"
	"github.com/icco-engine/icco/internal/entry"
	"github.com/icco-engine/icco/internal/scorer"
)

func TestOrderFIFOAscendingCreatedAt(t *testing.T) {
	a := &entry.Entry{ID: "a", CreatedAtMs: 30}
	b := &entry.Entry{ID: "b", CreatedAtMs: 10}
	got := order([]*entry.Entry{a, b}, config.StrategyFIFO, scorer.Context{}, nil, advisor.NullAdvisor{}, 0, 0)
	if got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("expected b before a, got %+v", got)
	}
}

func TestOrderLRUAscendingLastAccessed(t *testing.T) {
	a := &entry.Entry{ID: "a", LastAccessedMs: 30}
	b := &entry.Entry{ID: "b", LastAccessedMs: 10}
	got := order([]*entry.Entry{a, b}, config.StrategyLRU, scorer.Context{}, nil, advisor.NullAdvisor{}, 0, 0)
	if got[0].ID != "b" {
		t.Fatalf("expected least-recently-used first, got %+v", got)
	}
}

func TestOrderRelevanceAscending(t *testing.T) {
	a := &entry.Entry{ID: "a", Relevance: 0.9}
	b := &entry.Entry{ID: "b", Relevance: 0.1}
	got := order([]*entry.Entry{a, b}, config.StrategyRelevance, scorer.Context{}, nil, advisor.NullAdvisor{}, 0, 0)
	if got[0].ID != "b" {
		t.Fatalf("expected lowest relevance first, got %+v", got)
	}
}

type fakeSim struct{ scores map[string]float64 }

func (f fakeSim) Similarity(query, content string) float64 { return f.scores[content] }

func TestOrderSemanticAscendingOneMinusSimilarity(t *testing.T) {
	a := &entry.Entry{ID: "a", Content: "high-match"}
	b := &entry.Entry{ID: "b", Content: "low-match"}
	sim := fakeSim{scores: map[string]float64{"high-match": 0.9, "low-match": 0.1}}

	got := order([]*entry.Entry{a, b}, config.StrategySemantic, scorer.Context{CurrentQuery: "q"}, sim, advisor.NullAdvisor{}, 0, 0)
	if got[0].ID != "a" {
		t.Fatalf("expected smallest 1-similarity (highest-similarity) entry first, got %+v", got)
	}
}

func TestOrderFallsBackToRelevanceForUnknownStrategy(t *testing.T) {
	a := &entry.Entry{ID: "a", Relevance: 0.9}
	b := &entry.Entry{ID: "b", Relevance: 0.1}
	got := order([]*entry.Entry{a, b}, config.Strategy("bogus"), scorer.Context{}, nil, advisor.NullAdvisor{}, 0, 0)
	if got[0].ID != "b" {
		t.Fatalf("expected relevance fallback ordering, got %+v", got)
	}
}

type fakeAdvisor struct {
	order []string
	ok    bool
}

func (f fakeAdvisor) AdviseScore(e *entry.Entry, ctx scorer.Context) (float64, bool) { return 0, false }
func (f fakeAdvisor) AdvisePrune(candidates []*entry.Entry, ctx scorer.Context) ([]string, bool) {
	return f.order, f.ok
}

func TestOrderAdaptiveConsultsAdvisorFirst(t *testing.T) {
	a := &entry.Entry{ID: "a", Relevance: 0.9, AccessCount: 10}
	b := &entry.Entry{ID: "b", Relevance: 0.1, AccessCount: 0}
	adv := fakeAdvisor{order: []string{"a", "b"}, ok: true}

	got := order([]*entry.Entry{a, b}, config.StrategyAdaptive, scorer.Context{}, nil, adv, 1, 0)
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("expected advisor's order to win outright, got %+v", got)
	}
}

func TestOrderAdaptiveFallsBackWhenAdvisorAbstains(t *testing.T) {
	a := &entry.Entry{ID: "a", Relevance: 0.9}
	b := &entry.Entry{ID: "b", Relevance: 0.1}

	got := order([]*entry.Entry{a, b}, config.StrategyAdaptive, scorer.Context{}, nil, advisor.NullAdvisor{}, 1, 0)
	if got[0].ID != "b" {
		t.Fatalf("expected relevance-weighted blend when advisor abstains, got %+v", got)
	}
}

func TestOrderAdaptivePartialAdvisorOrderAppendsRemainder(t *testing.T) {
	a := &entry.Entry{ID: "a", Relevance: 0.9}
	b := &entry.Entry{ID: "b", Relevance: 0.5}
	c := &entry.Entry{ID: "c", Relevance: 0.1}
	adv := fakeAdvisor{order: []string{"a"}, ok: true}

	got := order([]*entry.Entry{a, b, c}, config.StrategyAdaptive, scorer.Context{}, nil, adv, 1, 0)
	if len(got) != 3 {
		t.Fatalf("expected all 3 candidates accounted for, got %+v", got)
	}
	if got[0].ID != "a" {
		t.Fatalf("expected advisor's one opinion to lead, got %+v", got)
	}
	if got[1].ID != "c" || got[2].ID != "b" {
		t.Fatalf("expected remainder in ascending relevance order, got %+v", got)
	}
}
