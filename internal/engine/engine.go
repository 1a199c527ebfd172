// Package engine wires the Entry Store, Estimator, Temporal Tiering and
// Compressor, Relevance Scorer, Pruning Controller, Metrics, Advisor, and
// Persist components behind the Hook Facade named in spec §4.G. Grounded
// on the teacher's internal/memory/service.go: one facade struct
// composing narrow collaborators, every operation a thin method that
// delegates and wraps errors, constructed once via a long parameter list.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/icco-engine/icco/internal/advisor"
	"github.com/icco-engine/icco/internal/config"
	"github.com/icco-engine/icco/internal/entry"
	"github.com/icco-engine/icco/internal/estimator"
	"github.com/icco-engine/icco/internal/metrics"
	"github.com/icco-engine/icco/internal/persist"
	"github.com/icco-engine/icco/internal/pruning"
	"github.com/icco-engine/icco/internal/scorer"
	"github.com/icco-engine/icco/internal/tiering"
)

// Engine is the facade every hook handler and HTTP handler calls through.
// It owns no I/O of its own beyond what Persist/Vectors are configured
// with; every operation here is synchronous and in-process (spec §1
// Non-goals, spec §5).
type Engine struct {
	mu sync.Mutex

	cfg        config.Config
	store      *entry.Store
	estimator  estimator.Estimator
	compressor *tiering.Compressor
	scorer     *scorer.Scorer
	pruner     *pruning.Controller
	metrics    *metrics.Metrics
	advisor    advisor.Advisor
	sim        scorer.Similarity
	persist    *persist.Store

	logger *slog.Logger
}

// New constructs an Engine bound to cfg. sim and adv may be nil; store
// may be nil if snapshot persistence is not configured.
func New(
	cfg config.Config,
	est estimator.Estimator,
	compressor *tiering.Compressor,
	scr *scorer.Scorer,
	sim scorer.Similarity,
	adv advisor.Advisor,
	persistStore *persist.Store,
	logger *slog.Logger,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: invalid config: %w", err)
	}
	if adv == nil {
		adv = advisor.NullAdvisor{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		cfg:        cfg,
		store:      entry.New(),
		estimator:  est,
		compressor: compressor,
		scorer:     scr,
		pruner:     pruning.New(cfg, adv),
		metrics:    metrics.New(),
		advisor:    adv,
		sim:        sim,
		persist:    persistStore,
		logger:     logger,
	}, nil
}

// AddRequest is the input to Add (spec §4.G "add").
type AddRequest struct {
	Source    string
	Type      entry.Type
	Content   string
	FilePath  string
	SessionID string
	ToolName  string
	Tags      []string
	NowMs     int64
}

// Add estimates tokens, assigns the initial (always hot) tier, inserts
// the entry, and updates gauges (spec §4.B "Insertion", §4.C "new
// entries always start hot").
func (e *Engine) Add(req AddRequest) *entry.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()

	tokens := e.estimator.Estimate(req.Content, estimator.Kind(req.Type))
	id := e.store.NextID(req.Source)

	var tags map[string]struct{}
	if len(req.Tags) > 0 {
		tags = make(map[string]struct{}, len(req.Tags))
		for _, t := range req.Tags {
			tags[t] = struct{}{}
		}
	}

	ent := &entry.Entry{
		ID:             id,
		Source:         req.Source,
		Content:        req.Content,
		Type:           req.Type,
		Tokens:         tokens,
		Tier:           entry.TierHot,
		CreatedAtMs:    req.NowMs,
		LastAccessedMs: req.NowMs,
		AccessCount:    0,
		Metadata: entry.Metadata{
			Source:    req.Source,
			FilePath:  req.FilePath,
			SessionID: req.SessionID,
			ToolName:  req.ToolName,
			Tags:      tags,
		},
	}

	e.store.Insert(ent)
	e.metrics.IncAdds()
	e.refreshGauges()
	e.logger.Debug("entry added", "id", id, "source", req.Source, "tokens", tokens)
	return ent.Clone()
}

// Access records an access against id, promoting it to hot if
// promote_on_access is configured (the promotion itself happens lazily
// at the next TransitionTiers pass, per spec §4.C "tier assignment is
// recomputed, not stored incrementally").
func (e *Engine) Access(id string, nowMs int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ok := e.store.Access(id, nowMs)
	if ok {
		e.metrics.IncAccesses()
	}
	return ok
}

// ScoreAll scores every entry in scope under ctx, persists the scores
// onto the store, and returns them ranked descending (spec §4.D
// "score_all"). When an Advisor is configured and opines on an entry, its
// score wins over the deterministic formula.
func (e *Engine) ScoreAll(ctx scorer.Context, nowMs int64) []scorer.Ranked {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scoreAllLocked(ctx, nowMs)
}

func (e *Engine) scoreAllLocked(ctx scorer.Context, nowMs int64) []scorer.Ranked {
	scope := e.scopeLocked(ctx.SessionID)

	scored := make([]*entry.Entry, 0, len(scope))
	for _, ent := range scope {
		score := e.scorer.Score(ent, ctx, nowMs)
		if advised, ok := e.advisor.AdviseScore(ent, ctx); ok {
			score = advised
		}
		e.store.SetRelevance(ent.ID, score)
		ent.Relevance = score
		scored = append(scored, ent)
	}

	ranked := make([]scorer.Ranked, 0, len(scored))
	for _, ent := range scored {
		ranked = append(ranked, scorer.Ranked{ID: ent.ID, Score: ent.Relevance})
	}
	sortRankedDescending(ranked)
	return ranked
}

func sortRankedDescending(r []scorer.Ranked) {
	for i := 1; i < len(r); i++ {
		for j := i; j > 0 && r[j].Score > r[j-1].Score; j-- {
			r[j], r[j-1] = r[j-1], r[j]
		}
	}
}

func (e *Engine) scopeLocked(sessionID string) []*entry.Entry {
	if e.cfg.SessionIsolation {
		return e.store.AllInSession(sessionID)
	}
	return e.store.All()
}

// GetUtilization returns the current global utilization ratio
// (total_effective_tokens / context_window_size), always computed across
// every session regardless of session_isolation (spec open question,
// recorded in DESIGN.md).
func (e *Engine) GetUtilization() float64 {
	return float64(e.store.TotalEffectiveTokens()) / float64(e.cfg.ContextWindowSize)
}

// GetEntries returns every live entry in scope, for inspection/debugging.
func (e *Engine) GetEntries(sessionID string) []*entry.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scopeLocked(sessionID)
}

// GetMetrics returns the current metrics snapshot (spec §4.F, §4.G
// "get_metrics").
func (e *Engine) GetMetrics() metrics.Snapshot {
	e.refreshGauges()
	return e.metrics.Snapshot()
}

func (e *Engine) refreshGauges() {
	total := e.store.TotalEffectiveTokens()
	e.metrics.SetGauges(float64(total)/float64(e.cfg.ContextWindowSize), int64(e.store.Len()), total)
}

// Reset clears every entry, metric, and hysteresis/adaptive state, as if
// the engine were freshly constructed (used by tests and by the hook
// facade's explicit reset operation).
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Reset()
	e.metrics.Reset()
	e.pruner = pruning.New(e.cfg, e.advisor)
}
