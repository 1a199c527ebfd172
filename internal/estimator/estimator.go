// Package estimator maps entry content to an integer token count (spec
// §4.A). The engine depends only on the Estimator interface; the default
// implementation is a deterministic chars-per-token heuristic, not a real
// tokenizer. Every call site in the engine goes through a single configured
// Estimator — the spec's open question ("pick one estimator, use it
// everywhere") is resolved by construction, not per call site.
package estimator

import "math"

// Kind classifies content for chars-per-token purposes. It mirrors the
// entry types in spec §3 but lives here so this package has no dependency
// on internal/entry.
type Kind string

const (
	KindSystemPrompt      Kind = "system_prompt"
	KindFileRead          Kind = "file_read"
	KindFileWrite         Kind = "file_write"
	KindToolResult        Kind = "tool_result"
	KindBashOutput        Kind = "bash_output"
	KindUserMessage       Kind = "user_message"
	KindAssistantMessage  Kind = "assistant_message"
	KindOther             Kind = "other"
)

// Estimator maps content to a token count.
type Estimator interface {
	Estimate(content string, kind Kind) int
}

// Default is the heuristic chars-per-token estimator named in spec §4.A:
// code-ish content ~3.5 chars/token, JSON/tool output ~3.0, prose ~4.0.
type Default struct{}

// New returns the default estimator.
func New() Default { return Default{} }

// charsPerToken returns the divisor for a given entry kind.
func charsPerToken(kind Kind) float64 {
	switch kind {
	case KindFileRead, KindFileWrite:
		return 3.5
	case KindToolResult, KindBashOutput:
		return 3.0
	case KindUserMessage, KindAssistantMessage, KindSystemPrompt:
		return 4.0
	default:
		return 4.0
	}
}

// Estimate is deterministic for identical inputs: same content and kind
// always yield the same token count.
func (Default) Estimate(content string, kind Kind) int {
	if content == "" {
		return 0
	}
	n := float64(len([]rune(content))) / charsPerToken(kind)
	return int(math.Ceil(n))
}
