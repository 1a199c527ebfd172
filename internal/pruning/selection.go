package pruning

import (
	"sort"

	"github.com/icco-engine/icco/internal/advisor"
	"github.com/icco-engine/icco/internal/config"
	"github.com/icco-engine/icco/internal/entry"
	"github.com/icco-engine/icco/internal/scorer"
)

// candidate pairs an entry with the signals selection strategies sort by.
type candidate struct {
	e          *entry.Entry
	similarity float64 // query_similarity, used by semantic
}

// order returns entries in ascending eviction priority (first = evict
// first) per the configured strategy (spec §4.E "Selection policy"). For
// the adaptive strategy, adv is consulted first (spec §4.H "advise_prune");
// the relevance/lru blend only runs when adv abstains.
func order(entries []*entry.Entry, strategy config.Strategy, ctx scorer.Context, sim scorer.Similarity, adv advisor.Advisor, adaptiveRelevanceWeight, adaptiveLRUWeight float64) []*entry.Entry {
	if strategy == config.StrategyAdaptive && adv != nil {
		if advised, ok := adv.AdvisePrune(entries, ctx); ok && len(advised) > 0 {
			return orderByAdvisedIDs(entries, advised)
		}
	}

	cands := make([]candidate, len(entries))
	for i, e := range entries {
		c := candidate{e: e}
		if sim != nil && ctx.CurrentQuery != "" {
			content := e.Content
			if e.Compressed != nil && e.Compressed.Summary != "" {
				content = e.Compressed.Summary
			}
			c.similarity = sim.Similarity(ctx.CurrentQuery, content)
		}
		cands[i] = c
	}

	switch strategy {
	case config.StrategyFIFO:
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].e.CreatedAtMs < cands[j].e.CreatedAtMs })
	case config.StrategyLRU:
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].e.LastAccessedMs < cands[j].e.LastAccessedMs })
	case config.StrategySemantic:
		sort.SliceStable(cands, func(i, j int) bool { return (1 - cands[i].similarity) < (1 - cands[j].similarity) })
	case config.StrategyAdaptive:
		sort.SliceStable(cands, func(i, j int) bool {
			return adaptiveScore(cands[i].e, adaptiveRelevanceWeight, adaptiveLRUWeight) < adaptiveScore(cands[j].e, adaptiveRelevanceWeight, adaptiveLRUWeight)
		})
	case config.StrategyRelevance:
		fallthrough
	default:
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].e.Relevance < cands[j].e.Relevance })
	}

	out := make([]*entry.Entry, len(cands))
	for i, c := range cands {
		out[i] = c.e
	}
	return out
}

// orderByAdvisedIDs applies an advisor's eviction order over entries,
// then appends any entry the advisor omitted (ascending relevance) so
// the returned slice always accounts for every candidate exactly once -
// an advisor opinion that partially covers the scope doesn't lose the
// rest.
func orderByAdvisedIDs(entries []*entry.Entry, advised []string) []*entry.Entry {
	byID := make(map[string]*entry.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	out := make([]*entry.Entry, 0, len(entries))
	seen := make(map[string]struct{}, len(advised))
	for _, id := range advised {
		e, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, e)
	}

	if len(out) < len(entries) {
		rest := make([]*entry.Entry, 0, len(entries)-len(out))
		for _, e := range entries {
			if _, ok := seen[e.ID]; !ok {
				rest = append(rest, e)
			}
		}
		sort.SliceStable(rest, func(i, j int) bool { return rest[i].Relevance < rest[j].Relevance })
		out = append(out, rest...)
	}
	return out
}

// adaptiveScore blends relevance (higher = keep) with the normalizedLRU
// access-frequency signal via the controller's moving-average weights.
// Lower combined score evicts first, matching the other strategies'
// ascending order.
func adaptiveScore(e *entry.Entry, relevanceWeight, lruWeight float64) float64 {
	return relevanceWeight*e.Relevance + lruWeight*normalizedLRU(e)
}

// normalizedLRU maps access_count onto a [0,1) scale comparable to
// relevance, via the same saturating curve the scorer uses. It reads only
// access_count; last_accessed_at does not enter the adaptive blend.
func normalizedLRU(e *entry.Entry) float64 {
	if e.AccessCount <= 0 {
		return 0
	}
	return 1 - 1/(1+float64(e.AccessCount))
}
