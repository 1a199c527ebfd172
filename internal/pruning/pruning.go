// Package pruning implements the threshold-driven state machine that
// decides what and how much to evict or compress (spec §4.E). Grounded
// on the teacher's internal/memory/lifecycle.go Compact pipeline: a
// multi-stage pass producing named counters and a structured result,
// logged the same way.
package pruning

import (
	"sync"

	"github.com/icco-engine/icco/internal/advisor"
	"github.com/icco-engine/icco/internal/config"
)

// Level is a step in the threshold state machine.
type Level int

const (
	LevelNone Level = iota
	LevelSoft
	LevelHard
	LevelEmergency
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelSoft:
		return "soft"
	case LevelHard:
		return "hard"
	case LevelEmergency:
		return "emergency"
	default:
		return "none"
	}
}

// Rationale explains why a decision came out the way it did.
type Rationale string

const (
	RationaleNone               Rationale = "none"
	RationaleCompressed         Rationale = "compressed"
	RationaleEvicted            Rationale = "evicted"
	RationalePressureUnrelieved Rationale = "pressure_unrelieved"
)

// Decision is the output of Controller.Decide (spec §3 PruningDecision).
type Decision struct {
	Level                Level
	Targets              []string
	PredictedTokensFreed int64
	Rationale            Rationale
}

// Result is the output of Controller.Execute (spec §4.E).
type Result struct {
	Level              Level
	EntriesRemoved     int
	TokensFreed        int64
	EntriesCompressed  int
	DurationMs         int64
	FinalUtilization   float64
	PressureUnrelieved bool
}

// Controller holds the static config plus the hysteresis and adaptive-
// strategy state that persists across calls on one engine handle.
type Controller struct {
	cfg config.Config
	adv advisor.Advisor

	mu                      sync.Mutex
	lastExecutedLevel       Level
	lastExecutedUtilization float64
	hysteresisArmed         bool

	hitRateEMA            float64
	compactionSuccessEMA  float64
}

// New builds a Controller bound to cfg. adv is consulted by the adaptive
// selection strategy (spec §4.H); a nil adv is replaced with
// advisor.NullAdvisor{}, which always abstains.
func New(cfg config.Config, adv advisor.Advisor) *Controller {
	if adv == nil {
		adv = advisor.NullAdvisor{}
	}
	return &Controller{cfg: cfg, adv: adv}
}

// rawLevel maps a utilization ratio to a threshold level per spec §4.E's
// table, before hysteresis is applied.
func (c *Controller) rawLevel(u float64) Level {
	switch {
	case u < c.cfg.SoftThreshold:
		return LevelNone
	case u < c.cfg.HardThreshold:
		return LevelSoft
	case u < c.cfg.EmergencyThreshold:
		return LevelHard
	default:
		return LevelEmergency
	}
}

// effectiveLevel applies hysteresis on top of rawLevel: after a level was
// just executed, the next decision must be at least one step lower until
// utilization has risen by >= 5% of window since that execution (spec
// §4.E "Hysteresis").
func (c *Controller) effectiveLevel(u float64) Level {
	raw := c.rawLevel(u)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hysteresisArmed {
		return raw
	}
	risen := u >= c.lastExecutedUtilization+0.05
	if risen {
		c.hysteresisArmed = false
		return raw
	}
	capped := c.lastExecutedLevel - 1
	if capped < LevelNone {
		capped = LevelNone
	}
	if raw < capped {
		return raw
	}
	return capped
}

// recordExecution updates hysteresis and adaptive-strategy state after an
// Execute call.
func (c *Controller) recordExecution(level Level, u float64, hit bool, compactionPrevented bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if level != LevelNone {
		c.lastExecutedLevel = level
		c.lastExecutedUtilization = u
		c.hysteresisArmed = true
	}

	const emaAlpha = 0.2
	hitVal := 0.0
	if hit {
		hitVal = 1.0
	}
	c.hitRateEMA = emaAlpha*hitVal + (1-emaAlpha)*c.hitRateEMA

	cpVal := 0.0
	if compactionPrevented {
		cpVal = 1.0
	}
	c.compactionSuccessEMA = emaAlpha*cpVal + (1-emaAlpha)*c.compactionSuccessEMA
}

// AdaptiveWeights exposes the moving averages driving the adaptive
// selection strategy, blending relevance and lru (spec §4.E
// "adaptive: blend ... whose weights are set by a moving average of
// (recent hit rate, recent compaction-prevention success)").
func (c *Controller) AdaptiveWeights() (relevanceWeight, lruWeight float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	blend := (c.hitRateEMA + c.compactionSuccessEMA) / 2
	return blend, 1 - blend
}
