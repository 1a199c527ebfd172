package config

import (
	"reflect"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults should validate, got %v", err)
	}
}

func TestMergeWithDefaults(t *testing.T) {
	t.Run("unknown key warns and is ignored", func(t *testing.T) {
		cfg, warnings := MergeWithDefaults(map[string]any{"bogus_key": 1})
		if len(warnings) != 1 {
			t.Fatalf("expected 1 warning, got %d: %v", len(warnings), warnings)
		}
		if !reflect.DeepEqual(cfg, Defaults()) {
			t.Fatalf("config should be unchanged from defaults")
		}
	})

	t.Run("out of range value is clamped with warning", func(t *testing.T) {
		cfg, warnings := MergeWithDefaults(map[string]any{"soft": 1.5})
		if cfg.SoftThreshold != 1.0 {
			t.Fatalf("expected soft clamped to 1.0, got %f", cfg.SoftThreshold)
		}
		if len(warnings) != 1 {
			t.Fatalf("expected 1 warning, got %d", len(warnings))
		}
	})

	t.Run("valid overrides apply", func(t *testing.T) {
		cfg, warnings := MergeWithDefaults(map[string]any{
			"soft":               0.4,
			"hard":               0.6,
			"emergency":          0.8,
			"strategy":           "lru",
			"session_isolation":  true,
			"preserve_patterns":  []any{"config/", "secrets/"},
			"context_window_size": 50000,
		})
		if len(warnings) != 0 {
			t.Fatalf("expected no warnings, got %v", warnings)
		}
		if cfg.SoftThreshold != 0.4 || cfg.HardThreshold != 0.6 || cfg.EmergencyThreshold != 0.8 {
			t.Fatalf("thresholds not applied: %+v", cfg)
		}
		if cfg.Strategy != StrategyLRU {
			t.Fatalf("strategy not applied: %v", cfg.Strategy)
		}
		if !cfg.SessionIsolation {
			t.Fatalf("session_isolation not applied")
		}
		if len(cfg.PreservePatterns) != 2 {
			t.Fatalf("preserve_patterns not applied: %v", cfg.PreservePatterns)
		}
		if cfg.ContextWindowSize != 50000 {
			t.Fatalf("context_window_size not applied: %d", cfg.ContextWindowSize)
		}
	})

	t.Run("tiers merge partially", func(t *testing.T) {
		cfg, _ := MergeWithDefaults(map[string]any{
			"tiers": map[string]any{
				"hot": map[string]any{"max_age_ms": 100},
			},
		})
		if cfg.Tiers.Hot.MaxAgeMs != 100 {
			t.Fatalf("hot.max_age_ms not applied: %+v", cfg.Tiers.Hot)
		}
		if cfg.Tiers.Warm != Defaults().Tiers.Warm {
			t.Fatalf("warm tier should be untouched: %+v", cfg.Tiers.Warm)
		}
	})
}

func TestValidateRejectsBadThresholdOrdering(t *testing.T) {
	cfg := Defaults()
	cfg.SoftThreshold = 0.9
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for soft > hard")
	}
}

func TestFingerprintDeterministicAndSensitive(t *testing.T) {
	a := Defaults()
	b := Defaults()
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("expected identical configs to fingerprint identically")
	}
	b.SoftThreshold = 0.1
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("expected a changed config to fingerprint differently")
	}
}

func TestLoadFileMissingYieldsDefaults(t *testing.T) {
	partial, err := LoadFile("/nonexistent/path/to/icco.yaml")
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if len(partial) != 0 {
		t.Fatalf("expected empty partial, got %v", partial)
	}
}
