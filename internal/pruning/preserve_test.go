package pruning

import (
	"testing"

	"github.com/icco-engine/icco/internal/config"
	"github.com/icco-engine/icco/internal/entry"
)

func TestFilterPreservedDropsSystemPrompt(t *testing.T) {
	cfg := config.Defaults()
	sys := &entry.Entry{ID: "sys", Type: entry.TypeSystemPrompt, Relevance: 0.0}
	other := &entry.Entry{ID: "other", Type: entry.TypeOther, Relevance: 0.0}
	all := []*entry.Entry{sys, other}

	got := filterPreserved(all, all, cfg, false)
	for _, e := range got {
		if e.ID == "sys" {
			t.Fatal("system_prompt entries must never be eviction candidates")
		}
	}
}

func TestFilterPreservedDropsPatternMatch(t *testing.T) {
	cfg := config.Defaults()
	cfg.PreservePatterns = []string{"config/"}
	cfg.PreserveRecentCount = 0
	protected := &entry.Entry{ID: "cfg", Type: entry.TypeFileRead, Metadata: entry.Metadata{FilePath: "config/app.yaml"}}
	normal := &entry.Entry{ID: "normal", Type: entry.TypeFileRead, Metadata: entry.Metadata{FilePath: "src/main.go"}}
	all := []*entry.Entry{protected, normal}

	got := filterPreserved(all, all, cfg, false)
	if len(got) != 1 || got[0].ID != "normal" {
		t.Fatalf("expected only normal to survive, got %+v", got)
	}
}

func TestFilterPreservedDropsMostRecent(t *testing.T) {
	cfg := config.Defaults()
	cfg.PreserveRecentCount = 1
	old := &entry.Entry{ID: "old", Type: entry.TypeOther, CreatedAtMs: 1}
	newest := &entry.Entry{ID: "new", Type: entry.TypeOther, CreatedAtMs: 100}
	all := []*entry.Entry{old, newest}

	got := filterPreserved(all, all, cfg, false)
	if len(got) != 1 || got[0].ID != "old" {
		t.Fatalf("expected only the older entry to survive, got %+v", got)
	}
}

func TestFilterPreservedMinRelevanceBypassedAtEmergency(t *testing.T) {
	cfg := config.Defaults()
	cfg.MinRelevance = 0.3
	cfg.PreserveRecentCount = 0
	relevant := &entry.Entry{ID: "relevant", Type: entry.TypeOther, Relevance: 0.9}
	all := []*entry.Entry{relevant}

	nonEmergency := filterPreserved(all, all, cfg, false)
	if len(nonEmergency) != 0 {
		t.Fatal("expected high-relevance entry preserved outside emergency")
	}

	emergency := filterPreserved(all, all, cfg, true)
	if len(emergency) != 1 {
		t.Fatal("expected min_relevance rule bypassed at emergency level")
	}
}
