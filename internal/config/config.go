// Package config defines the ICCO engine configuration: every tunable named
// in the specification, bound once at construction and immutable afterward.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Strategy selects the pruning candidate ordering policy.
type Strategy string

const (
	StrategyFIFO      Strategy = "fifo"
	StrategyLRU       Strategy = "lru"
	StrategyRelevance Strategy = "relevance"
	StrategySemantic  Strategy = "semantic"
	StrategyAdaptive  Strategy = "adaptive"
)

// CompressionStrategy selects the lossy compression method used on demotion.
type CompressionStrategy string

const (
	CompressionSummary CompressionStrategy = "summary"
	CompressionEmbed   CompressionStrategy = "embedding"
	CompressionHybrid  CompressionStrategy = "hybrid"
)

// TierConfig describes one tier's age boundary and target compression ratio.
type TierConfig struct {
	MaxAgeMs         int64
	CompressionRatio float64
}

// Tiers holds the hot/warm/cold tier configuration. archived has an implicit
// compression ratio of 0.03 and is only reached under emergency pressure.
type Tiers struct {
	Hot  TierConfig
	Warm TierConfig
	Cold TierConfig
}

// ArchivedCompressionRatio is the implicit, non-configurable ratio applied
// when the pruning controller archives a surviving cold entry.
const ArchivedCompressionRatio = 0.03

// Config is the static configuration bound at engine construction. Every
// field enumerated in spec §3 is present.
type Config struct {
	ContextWindowSize int64
	TargetUtilization float64

	SoftThreshold       float64
	HardThreshold       float64
	EmergencyThreshold  float64
	MinRelevance        float64
	PreserveRecentCount int
	PreservePatterns    []string

	Strategy Strategy
	Tiers    Tiers

	CompressionStrategy CompressionStrategy
	PromoteOnAccess     bool
	DecayRate           float64
	SessionIsolation    bool
}

// Defaults returns the documented default profile, used when config is
// missing or a key is absent from a partial map.
func Defaults() Config {
	return Config{
		ContextWindowSize:   200_000,
		TargetUtilization:   0.6,
		SoftThreshold:       0.5,
		HardThreshold:       0.7,
		EmergencyThreshold:  0.85,
		MinRelevance:        0.3,
		PreserveRecentCount: 5,
		PreservePatterns:    nil,
		Strategy:            StrategyRelevance,
		Tiers: Tiers{
			Hot:  TierConfig{MaxAgeMs: 10 * 60 * 1000, CompressionRatio: 1.0},
			Warm: TierConfig{MaxAgeMs: 60 * 60 * 1000, CompressionRatio: 0.4},
			Cold: TierConfig{MaxAgeMs: 24 * 60 * 60 * 1000, CompressionRatio: 0.15},
		},
		CompressionStrategy: CompressionSummary,
		PromoteOnAccess:     true,
		DecayRate:           0.05,
		SessionIsolation:    false,
	}
}

// Validate checks the invariants construction requires; a failure here is
// the only InvalidConfig condition in the engine (spec §7) and refuses to
// start.
func (c Config) Validate() error {
	if c.ContextWindowSize <= 0 {
		return fmt.Errorf("context_window_size must be positive, got %d", c.ContextWindowSize)
	}
	if c.TargetUtilization <= 0 || c.TargetUtilization > 1 {
		return fmt.Errorf("target_utilization must be in (0,1], got %f", c.TargetUtilization)
	}
	if !(c.SoftThreshold < c.HardThreshold && c.HardThreshold < c.EmergencyThreshold) {
		return fmt.Errorf("thresholds must satisfy soft < hard < emergency, got %f < %f < %f",
			c.SoftThreshold, c.HardThreshold, c.EmergencyThreshold)
	}
	switch c.Strategy {
	case StrategyFIFO, StrategyLRU, StrategyRelevance, StrategySemantic, StrategyAdaptive:
	default:
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	switch c.CompressionStrategy {
	case CompressionSummary, CompressionEmbed, CompressionHybrid:
	default:
		return fmt.Errorf("unknown compression_strategy %q", c.CompressionStrategy)
	}
	if c.DecayRate < 0 || c.DecayRate >= 1 {
		return fmt.Errorf("decay_rate must be in [0,1), got %f", c.DecayRate)
	}
	return nil
}

// MergeWithDefaults merges a partial, duck-typed config (as decoded from
// YAML or any other key-value source) onto the documented defaults.
// Unknown keys are ignored with a warning; out-of-range values are clamped
// with a warning. The returned Config is NOT validated — call Validate
// before using it to construct an engine.
func MergeWithDefaults(partial map[string]any) (Config, []string) {
	cfg := Defaults()
	var warnings []string

	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	clampFloat := func(key string, v, lo, hi float64) float64 {
		if v < lo || v > hi {
			warn("%s=%v out of range [%v,%v], clamped", key, v, lo, hi)
			if v < lo {
				return lo
			}
			return hi
		}
		return v
	}

	for key, raw := range partial {
		switch key {
		case "context_window_size":
			if v, ok := asInt64(raw); ok {
				if v <= 0 {
					warn("context_window_size=%v must be positive, keeping default", raw)
				} else {
					cfg.ContextWindowSize = v
				}
			} else {
				warn("context_window_size: expected integer, got %T", raw)
			}
		case "target_utilization":
			if v, ok := asFloat(raw); ok {
				cfg.TargetUtilization = clampFloat(key, v, 0.01, 1.0)
			} else {
				warn("target_utilization: expected float, got %T", raw)
			}
		case "soft":
			if v, ok := asFloat(raw); ok {
				cfg.SoftThreshold = clampFloat(key, v, 0, 1)
			}
		case "hard":
			if v, ok := asFloat(raw); ok {
				cfg.HardThreshold = clampFloat(key, v, 0, 1)
			}
		case "emergency":
			if v, ok := asFloat(raw); ok {
				cfg.EmergencyThreshold = clampFloat(key, v, 0, 1)
			}
		case "min_relevance":
			if v, ok := asFloat(raw); ok {
				cfg.MinRelevance = clampFloat(key, v, 0, 1)
			}
		case "preserve_recent_count":
			if v, ok := asInt64(raw); ok {
				if v < 0 {
					warn("preserve_recent_count=%v must be >= 0, clamped to 0", v)
					v = 0
				}
				cfg.PreserveRecentCount = int(v)
			}
		case "preserve_patterns":
			if v, ok := raw.([]string); ok {
				cfg.PreservePatterns = v
			} else if v, ok := raw.([]any); ok {
				patterns := make([]string, 0, len(v))
				for _, p := range v {
					if s, ok := p.(string); ok {
						patterns = append(patterns, s)
					}
				}
				cfg.PreservePatterns = patterns
			} else {
				warn("preserve_patterns: expected list of strings, got %T", raw)
			}
		case "strategy":
			if v, ok := raw.(string); ok {
				cfg.Strategy = Strategy(v)
			}
		case "compression_strategy":
			if v, ok := raw.(string); ok {
				cfg.CompressionStrategy = CompressionStrategy(v)
			}
		case "promote_on_access":
			if v, ok := raw.(bool); ok {
				cfg.PromoteOnAccess = v
			}
		case "decay_rate":
			if v, ok := asFloat(raw); ok {
				cfg.DecayRate = clampFloat(key, v, 0, 0.999)
			}
		case "session_isolation":
			if v, ok := raw.(bool); ok {
				cfg.SessionIsolation = v
			}
		case "tiers":
			if v, ok := raw.(map[string]any); ok {
				mergeTiers(&cfg.Tiers, v, warn)
			}
		default:
			warn("unknown config key %q ignored", key)
		}
	}

	return cfg, warnings
}

func mergeTiers(t *Tiers, raw map[string]any, warn func(string, ...any)) {
	apply := func(name string, dst *TierConfig) {
		v, ok := raw[name]
		if !ok {
			return
		}
		m, ok := v.(map[string]any)
		if !ok {
			warn("tiers.%s: expected map, got %T", name, v)
			return
		}
		if age, ok := asInt64(m["max_age_ms"]); ok && age > 0 {
			dst.MaxAgeMs = age
		}
		if ratio, ok := asFloat(m["compression_ratio"]); ok {
			if ratio <= 0 || ratio > 1 {
				warn("tiers.%s.compression_ratio=%v out of range (0,1], clamped", name, ratio)
				if ratio <= 0 {
					ratio = 0.01
				} else {
					ratio = 1.0
				}
			}
			dst.CompressionRatio = ratio
		}
	}
	apply("hot", &t.Hot)
	apply("warm", &t.Warm)
	apply("cold", &t.Cold)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// EnvOverlay applies environment variable overrides on top of an existing
// config for a subset of keys: the profile key names upper-cased and ICCO_
// prefixed, with the soft/hard/emergency keys read as ICCO_SOFT_THRESHOLD,
// ICCO_HARD_THRESHOLD and ICCO_EMERGENCY_THRESHOLD. It mirrors the teacher's envStr/envInt/envFloat/
// envBool helpers.
func EnvOverlay(cfg Config) Config {
	cfg.ContextWindowSize = envInt64("ICCO_CONTEXT_WINDOW_SIZE", cfg.ContextWindowSize)
	cfg.TargetUtilization = envFloat("ICCO_TARGET_UTILIZATION", cfg.TargetUtilization)
	cfg.SoftThreshold = envFloat("ICCO_SOFT_THRESHOLD", cfg.SoftThreshold)
	cfg.HardThreshold = envFloat("ICCO_HARD_THRESHOLD", cfg.HardThreshold)
	cfg.EmergencyThreshold = envFloat("ICCO_EMERGENCY_THRESHOLD", cfg.EmergencyThreshold)
	cfg.MinRelevance = envFloat("ICCO_MIN_RELEVANCE", cfg.MinRelevance)
	cfg.PromoteOnAccess = envBool("ICCO_PROMOTE_ON_ACCESS", cfg.PromoteOnAccess)
	cfg.SessionIsolation = envBool("ICCO_SESSION_ISOLATION", cfg.SessionIsolation)
	if v := os.Getenv("ICCO_STRATEGY"); v != "" {
		cfg.Strategy = Strategy(v)
	}
	if v := os.Getenv("ICCO_PRESERVE_PATTERNS"); v != "" {
		var patterns []string
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				patterns = append(patterns, p)
			}
		}
		if len(patterns) > 0 {
			cfg.PreservePatterns = patterns
		}
	}
	return cfg
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Fingerprint returns a short, deterministic hash of the config, stored
// alongside a snapshot so restore can detect config drift between save
// and restore (non-fatal — see DESIGN.md).
func (c Config) Fingerprint() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%+v", c)))
	return hex.EncodeToString(sum[:])[:16]
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
