package pruning

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/icco-engine/icco/internal/config"
	"github.com/icco-engine/icco/internal/entry"
)

// filterPreserved removes protected entries from an ordered candidate
// list, applying the rules in the exact order spec §4.E names them. all
// is the full scope (session or global) the "most recent N" rule counts
// against; emergencyLevel relaxes rule 4 (min_relevance).
func filterPreserved(candidates []*entry.Entry, all []*entry.Entry, cfg config.Config, emergencyLevel bool) []*entry.Entry {
	recent := mostRecentIDs(all, cfg.PreserveRecentCount)

	out := make([]*entry.Entry, 0, len(candidates))
	for _, e := range candidates {
		if e.Type == entry.TypeSystemPrompt {
			continue
		}
		if matchesAnyPattern(e, cfg.PreservePatterns) {
			continue
		}
		if _, ok := recent[e.ID]; ok {
			continue
		}
		if !emergencyLevel && e.Relevance >= cfg.MinRelevance {
			continue
		}
		out = append(out, e)
	}
	return out
}

// mostRecentIDs returns the ids of the n most recently created entries.
func mostRecentIDs(all []*entry.Entry, n int) map[string]struct{} {
	out := make(map[string]struct{}, n)
	if n <= 0 {
		return out
	}
	sorted := make([]*entry.Entry, len(all))
	copy(sorted, all)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAtMs > sorted[j].CreatedAtMs })
	if n > len(sorted) {
		n = len(sorted)
	}
	for _, e := range sorted[:n] {
		out[e.ID] = struct{}{}
	}
	return out
}

// matchesAnyPattern reports whether an entry's file_path or source
// matches any preserve pattern, as a substring or a filepath glob.
func matchesAnyPattern(e *entry.Entry, patterns []string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		for _, subject := range []string{e.Metadata.FilePath, e.Metadata.Source} {
			if subject == "" {
				continue
			}
			if strings.Contains(subject, p) {
				return true
			}
			if ok, err := filepath.Match(p, subject); err == nil && ok {
				return true
			}
		}
	}
	return false
}
