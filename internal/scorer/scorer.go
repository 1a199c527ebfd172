// Package scorer computes the relevance score for an entry under a query
// context (spec §4.D): a bounded linear combination of recency, type
// prior, access frequency, active-file/active-tool match, and query
// similarity, less the tier's decay penalty. Grounded on the teacher's
// internal/search/hybrid.go scoring shape (weighted combination, clamped
// bonuses, exponential decay) adapted from cognitive-science knobs to the
// spec's named signals.
package scorer

import (
	"math"
	"sort"

	"github.com/icco-engine/icco/internal/config"
	"github.com/icco-engine/icco/internal/entry"
	"github.com/icco-engine/icco/internal/tiering"
)

// Context is the transient input to scoring (spec §3 ScoringContext).
type Context struct {
	CurrentQuery   string
	ActiveFiles    []string
	ActiveTools    []string
	SessionID      string
	TimestampMs    int64
	RecentEntryIDs []string
}

// Similarity is the optional external text similarity collaborator (spec
// §6). It must be pure. A nil Similarity makes query_similarity 0 for
// every entry, per spec §4.D.
type Similarity interface {
	Similarity(query, content string) float64
}

// Weights are the linear combination's coefficients. They MUST sum to
// <= 1 before the decay subtraction (spec §4.D).
type Weights struct {
	Recency float64
	Type    float64
	Access  float64
	File    float64
	Tool    float64
	Query   float64
}

// DefaultWeights is a reasonable, testable default split across the six
// signals named in spec §4.D, summing to 1.0.
func DefaultWeights() Weights {
	return Weights{
		Recency: 0.30,
		Type:    0.20,
		Access:  0.15,
		File:    0.15,
		Tool:    0.10,
		Query:   0.10,
	}
}

var typePriors = map[entry.Type]float64{
	entry.TypeSystemPrompt:     1.0,
	entry.TypeUserMessage:      0.8,
	entry.TypeAssistantMessage: 0.6,
	entry.TypeFileRead:         0.6,
	entry.TypeFileWrite:        0.6,
	entry.TypeToolResult:       0.4,
	entry.TypeBashOutput:       0.4,
	entry.TypeOther:            0.3,
}

// Scorer holds the configuration a scoring pass needs: weights, the tier
// shape (for the recency time constant and decay), and the decay rate.
type Scorer struct {
	Weights   Weights
	Tiers     config.Tiers
	DecayRate float64
	Sim       Similarity
}

// New builds a Scorer. sim may be nil.
func New(weights Weights, tiers config.Tiers, decayRate float64, sim Similarity) *Scorer {
	return &Scorer{Weights: weights, Tiers: tiers, DecayRate: decayRate, Sim: sim}
}

// Ranked is one entry's computed score, as returned by ScoreAll.
type Ranked struct {
	ID    string
	Score float64
}

// Score computes score(entry, context) per spec §4.D. It never fails:
// missing signals (no similarity function, empty active-file list)
// simply contribute 0.
func (s *Scorer) Score(e *entry.Entry, ctx Context, now int64) float64 {
	base := s.Weights.Recency*recency(now, e.LastAccessedMs, s.tau())
	base += s.Weights.Type * typePrior(e.Type)
	base += s.Weights.Access * accessFactor(e.AccessCount)
	base += s.Weights.File * boolFactor(contains(ctx.ActiveFiles, e.Metadata.FilePath))
	base += s.Weights.Tool * boolFactor(contains(ctx.ActiveTools, e.Metadata.ToolName))
	base += s.Weights.Query * s.querySimilarity(e, ctx.CurrentQuery)

	base -= tiering.Decay(e.Tier, s.DecayRate)
	return clamp01(base)
}

// ScoreAll scores every entry under ctx and returns them ranked
// descending by score (spec §4.D "score_all"). It does not mutate the
// entries passed in; the caller is responsible for persisting the scores
// through the entry store.
func (s *Scorer) ScoreAll(entries []*entry.Entry, ctx Context, now int64) []Ranked {
	out := make([]Ranked, 0, len(entries))
	for _, e := range entries {
		out = append(out, Ranked{ID: e.ID, Score: s.Score(e, ctx, now)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func (s *Scorer) tau() float64 {
	if s.Tiers.Hot.MaxAgeMs <= 0 {
		return 1
	}
	return float64(s.Tiers.Hot.MaxAgeMs)
}

func (s *Scorer) querySimilarity(e *entry.Entry, query string) float64 {
	if s.Sim == nil || query == "" {
		return 0
	}
	content := e.Content
	if e.Compressed != nil && e.Compressed.Summary != "" {
		content = e.Compressed.Summary
	}
	return clamp01(s.Sim.Similarity(query, content))
}

// recency implements exp(-(now-last_accessed)/tau); a non-monotonic clock
// (elapsed <= 0) is treated as maximally recent.
func recency(now, lastAccessed int64, tau float64) float64 {
	elapsed := float64(now - lastAccessed)
	if elapsed <= 0 {
		return 1.0
	}
	return math.Exp(-elapsed / tau)
}

func typePrior(t entry.Type) float64 {
	if p, ok := typePriors[t]; ok {
		return p
	}
	return typePriors[entry.TypeOther]
}

// accessFactor is a saturating function of access_count so that frequently
// accessed entries approach, but never reach, 1.0.
func accessFactor(count int) float64 {
	if count <= 0 {
		return 0
	}
	return 1 - 1/(1+float64(count))
}

func boolFactor(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func contains(list []string, v string) bool {
	if v == "" {
		return false
	}
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
