// Package advisor defines the optional learned scorer/pruner plugin
// interface (spec §4.H). The engine must remain fully functional and
// deterministic without one; ok == false from either method means "no
// opinion, use the deterministic path". This is the seam under which the
// repository's per-language learning subsystem (GNN/GRNN/hyperbolic
// intelligence) would plug in; its internal convergence is explicitly
// out of scope (spec §1) — NullAdvisor is the only implementation shipped
// here.
package advisor

import (
	"github.com/icco-engine/icco/internal/entry"
	"github.com/icco-engine/icco/internal/scorer"
)

// Advisor is an optional external scorer/pruner that may override
// deterministic heuristics. Every method may abstain by returning
// ok == false; the engine never depends on an answer.
type Advisor interface {
	// AdviseScore suggests a relevance score for entry under context.
	// ok == false means "no opinion".
	AdviseScore(e *entry.Entry, ctx scorer.Context) (score float64, ok bool)

	// AdvisePrune suggests an eviction order for candidates under
	// context. ok == false, or an empty order, means "no opinion".
	AdvisePrune(candidates []*entry.Entry, ctx scorer.Context) (order []string, ok bool)
}

// NullAdvisor always abstains. It is the deterministic fallback the
// engine uses when no advisor plugin is configured.
type NullAdvisor struct{}

// AdviseScore always abstains.
func (NullAdvisor) AdviseScore(e *entry.Entry, ctx scorer.Context) (float64, bool) {
	return 0, false
}

// AdvisePrune always abstains.
func (NullAdvisor) AdvisePrune(candidates []*entry.Entry, ctx scorer.Context) ([]string, bool) {
	return nil, false
}
