package tiering

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/icco-engine/icco/internal/entry"
	"github.com/icco-engine/icco/internal/estimator"
)

// embeddingTokenCost is the fixed amortized footprint of an embedding
// handle, independent of the original content size (spec §4.C).
const embeddingTokenCost = 10

// hybridMarkerTokenCost is added on top of the summary's token count for
// the hybrid method's embedding-reference marker (spec §4.C).
const hybridMarkerTokenCost = 5

var summaryKeywords = []string{
	"must", "should", "important", "error", "fix", "implement", "create", "update", "delete",
}

// VectorStore is the optional external collaborator the embedding and
// hybrid methods hand content to (spec §6). A nil VectorStore degrades
// embedding/hybrid compression to bookkeeping only — the handle is empty
// and retrieval is unavailable, but token accounting proceeds exactly as
// if storage had succeeded (spec §4.C: "if unavailable, the entry is
// effectively read-only metadata").
type VectorStore interface {
	Put(id, content string) (handle string, err error)
}

// Compressor produces a lossy surrogate for an entry on demotion.
type Compressor struct {
	Estimator estimator.Estimator
	Vectors   VectorStore
}

// New builds a Compressor around the given estimator. A nil VectorStore
// may be supplied later via WithVectorStore.
func New(est estimator.Estimator) *Compressor {
	return &Compressor{Estimator: est}
}

// WithVectorStore attaches an optional vector store collaborator.
func (c *Compressor) WithVectorStore(vs VectorStore) *Compressor {
	c.Vectors = vs
	return c
}

// Compress produces a Compressed surrogate for e using method, targeting
// ratio of e.Tokens. It enforces the non-increase invariant (spec §4.C):
// if the produced surrogate would not shrink effective_tokens relative to
// the original, it returns (nil, false) — the caller must leave the entry
// uncompressed for this step (a CompressionSkipped). The skip is reported
// only through that false return: it is not logged and not surfaced as an
// error.
func (c *Compressor) Compress(e *entry.Entry, ratio float64, method entry.CompressionMethod, nowMs int64) (*entry.Compressed, bool) {
	if ratio >= 1.0 {
		return nil, false
	}
	targetTokens := int(ceilf(float64(e.Tokens) * ratio))
	if targetTokens < 1 {
		targetTokens = 1
	}

	var compressed *entry.Compressed
	switch method {
	case entry.MethodSummary:
		compressed = c.compressSummary(e, targetTokens, nowMs)
	case entry.MethodEmbedding:
		compressed = c.compressEmbedding(e, nowMs)
	case entry.MethodHybrid:
		compressed = c.compressHybrid(e, targetTokens, nowMs)
	default:
		compressed = c.compressSummary(e, targetTokens, nowMs)
	}

	if compressed == nil {
		return nil, false
	}
	if compressed.CompressedTokens >= e.Tokens {
		return nil, false
	}
	compressed.OriginalTokens = e.Tokens
	compressed.Ratio = float64(compressed.CompressedTokens) / float64(e.Tokens)
	return compressed, true
}

func (c *Compressor) compressSummary(e *entry.Entry, targetTokens int, nowMs int64) *entry.Compressed {
	targetChars := targetTokens * 4
	summary := extractSummary(e.Type, e.Content, targetChars)
	tokens := c.Estimator.Estimate(summary, estimator.Kind(e.Type))
	// Types estimated at fewer than 4 chars per token overshoot the target
	// at that size; shrink the char budget until the summary fits.
	for tokens > targetTokens && targetChars > 1 {
		targetChars = targetChars * targetTokens / tokens
		summary = extractSummary(e.Type, e.Content, targetChars)
		tokens = c.Estimator.Estimate(summary, estimator.Kind(e.Type))
	}
	return &entry.Compressed{
		Method:           entry.MethodSummary,
		Summary:          summary,
		CompressedTokens: tokens,
		CompressedAtMs:   nowMs,
	}
}

func (c *Compressor) compressEmbedding(e *entry.Entry, nowMs int64) *entry.Compressed {
	handle := ""
	if c.Vectors != nil {
		if h, err := c.Vectors.Put(e.ID, e.Content); err == nil {
			handle = h
		}
	}
	return &entry.Compressed{
		Method:           entry.MethodEmbedding,
		Handle:           handle,
		CompressedTokens: embeddingTokenCost,
		CompressedAtMs:   nowMs,
	}
}

func (c *Compressor) compressHybrid(e *entry.Entry, targetTokens int, nowMs int64) *entry.Compressed {
	summaryTarget := int(ceilf(float64(targetTokens) * 0.7))
	if summaryTarget < 1 {
		summaryTarget = 1
	}
	targetChars := summaryTarget * 4
	summary := extractSummary(e.Type, e.Content, targetChars)
	summaryTokens := c.Estimator.Estimate(summary, estimator.Kind(e.Type))

	handle := ""
	if c.Vectors != nil {
		if h, err := c.Vectors.Put(e.ID, e.Content); err == nil {
			handle = h
		}
	}

	return &entry.Compressed{
		Method:           entry.MethodHybrid,
		Summary:          summary,
		Handle:           handle,
		CompressedTokens: summaryTokens + hybridMarkerTokenCost,
		CompressedAtMs:   nowMs,
	}
}

// extractSummary dispatches to the type-aware extractor named in spec
// §4.C "Compression / summary".
func extractSummary(t entry.Type, content string, targetChars int) string {
	switch t {
	case entry.TypeFileRead, entry.TypeFileWrite:
		return extractDeclarations(content, targetChars)
	case entry.TypeToolResult, entry.TypeBashOutput:
		return extractStructured(content, targetChars)
	case entry.TypeUserMessage, entry.TypeAssistantMessage:
		return extractKeywordSentences(content, targetChars)
	default:
		return headTruncate(content, targetChars)
	}
}

var declPrefixes = []string{"import ", "export ", "function ", "class ", "interface ", "type ", "func ", "struct ", "def ", "const ", "package "}

// extractDeclarations keeps lines that look like top-level declarations
// and truncates to targetChars.
func extractDeclarations(content string, targetChars int) string {
	lines := strings.Split(content, "\n")
	var kept []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, p := range declPrefixes {
			if strings.HasPrefix(trimmed, p) {
				kept = append(kept, trimmed)
				break
			}
		}
	}
	joined := strings.Join(kept, "\n")
	if joined == "" {
		return headTailTruncate(content, targetChars)
	}
	return truncateChars(joined, targetChars)
}

// extractStructured parses content as a JSON object and keeps top-level
// keys with their stringified, field-truncated values; falls back to a
// head+tail slice if content does not parse.
func extractStructured(content string, targetChars int) string {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return headTailTruncate(content, targetChars)
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	perField := targetChars
	if len(keys) > 0 {
		perField = targetChars / len(keys)
		if perField < 16 {
			perField = 16
		}
	}

	var b strings.Builder
	for _, k := range keys {
		v := fmt.Sprintf("%v", obj[k])
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(truncateChars(v, perField))
		b.WriteString("; ")
	}
	return truncateChars(b.String(), targetChars)
}

// extractKeywordSentences keeps sentences mentioning any of a fixed
// keyword set; if too few survive, a head slice is prepended.
func extractKeywordSentences(content string, targetChars int) string {
	sentences := splitSentences(content)
	var kept []string
	for _, s := range sentences {
		lower := strings.ToLower(s)
		for _, kw := range summaryKeywords {
			if strings.Contains(lower, kw) {
				kept = append(kept, strings.TrimSpace(s))
				break
			}
		}
	}
	joined := strings.Join(kept, " ")
	if len(joined) < targetChars/2 {
		head := headTruncate(content, targetChars/2)
		if joined == "" {
			joined = head
		} else {
			joined = head + " " + joined
		}
	}
	return truncateChars(joined, targetChars)
}

func splitSentences(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
}

func headTruncate(content string, targetChars int) string {
	return truncateChars(content, targetChars)
}

// headTailTruncate keeps a head slice and a tail slice when neither
// declaration extraction nor JSON parsing applies.
func headTailTruncate(content string, targetChars int) string {
	if len(content) <= targetChars {
		return content
	}
	half := targetChars / 2
	if half < 1 {
		return truncateChars(content, targetChars)
	}
	head := content[:half]
	tailStart := len(content) - (targetChars - half)
	if tailStart < half {
		tailStart = half
	}
	return head + "\n...\n" + content[tailStart:]
}

func truncateChars(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n < 0 {
		n = 0
	}
	return string(r[:n])
}

func ceilf(f float64) float64 {
	i := int64(f)
	if float64(i) < f {
		i++
	}
	return float64(i)
}
