// Package persist implements the optional snapshot layout named in spec
// §6 and §4.F: an opaque blob encoding an engine version tag, a config
// fingerprint, the entry list, and counters, plus the SQLite-backed
// store used to save and load it by name. Grounded on the teacher's
// internal/store/sqlite.go (WAL mode, single-writer connection,
// idempotent schema init) adapted from a memory-record schema to a
// single opaque-blob table, since ICCO's persisted state is a single
// versioned document, not a queryable table.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/icco-engine/icco/internal/entry"
	"github.com/icco-engine/icco/internal/metrics"
)

// EngineVersion is the current snapshot format version. The major
// component must match on restore (spec §6 "Loader must reject
// mismatched engine-version-major").
const EngineVersion = "1.0"

// ErrSnapshotVersionMismatch is returned by Decode when a snapshot's
// major version does not match EngineVersion's (spec §7
// SnapshotVersionMismatch). Check with errors.Is.
var ErrSnapshotVersionMismatch = errors.New("persist: snapshot engine version mismatch")

// CompressedRecord mirrors entry.Compressed for serialization.
type CompressedRecord struct {
	Method           string  `json:"method"`
	Summary          string  `json:"summary,omitempty"`
	Handle           string  `json:"handle,omitempty"`
	CompressedTokens int     `json:"compressed_tokens"`
	Ratio            float64 `json:"ratio"`
	OriginalTokens   int     `json:"original_tokens"`
	CompressedAtMs   int64   `json:"compressed_at"`
}

// EntryRecord mirrors entry.Entry for serialization (spec §6 "Persisted
// state layout").
type EntryRecord struct {
	ID             string            `json:"id"`
	Source         string            `json:"source"`
	Type           string            `json:"type"`
	Tokens         int               `json:"tokens"`
	Tier           string            `json:"tier"`
	CreatedAtMs    int64             `json:"created_at"`
	LastAccessedMs int64             `json:"last_accessed_at"`
	AccessCount    int               `json:"access_count"`
	Relevance      float64           `json:"relevance"`
	FilePath       string            `json:"file_path,omitempty"`
	SessionID      string            `json:"session_id,omitempty"`
	ToolName       string            `json:"tool_name,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	ContentOrRef   string            `json:"content_or_ref"`
	Compressed     *CompressedRecord `json:"compressed,omitempty"`
}

// Snapshot is the full serialized state: engine version, config
// fingerprint, entries, and counters.
type Snapshot struct {
	EngineVersion     string            `json:"engine_version"`
	ConfigFingerprint string            `json:"config_fingerprint"`
	Entries           []EntryRecord     `json:"entries"`
	SequenceCounters  map[string]uint64 `json:"sequence_counters"`
	Counters          metrics.Snapshot  `json:"counters"`
}

// ToRecord converts a live entry into its serialized form.
func ToRecord(e *entry.Entry) EntryRecord {
	source := e.Metadata.Source
	if source == "" {
		source = e.Source
	}
	r := EntryRecord{
		ID:             e.ID,
		Source:         source,
		Type:           string(e.Type),
		Tokens:         e.Tokens,
		Tier:           string(e.Tier),
		CreatedAtMs:    e.CreatedAtMs,
		LastAccessedMs: e.LastAccessedMs,
		AccessCount:    e.AccessCount,
		Relevance:      e.Relevance,
		FilePath:       e.Metadata.FilePath,
		SessionID:      e.Metadata.SessionID,
		ToolName:       e.Metadata.ToolName,
		ContentOrRef:   e.Content,
	}
	for tag := range e.Metadata.Tags {
		r.Tags = append(r.Tags, tag)
	}
	if e.Compressed != nil {
		r.Compressed = &CompressedRecord{
			Method:           string(e.Compressed.Method),
			Summary:          e.Compressed.Summary,
			Handle:           e.Compressed.Handle,
			CompressedTokens: e.Compressed.CompressedTokens,
			Ratio:            e.Compressed.Ratio,
			OriginalTokens:   e.Compressed.OriginalTokens,
			CompressedAtMs:   e.Compressed.CompressedAtMs,
		}
		r.ContentOrRef = e.Compressed.Summary
	}
	return r
}

// FromRecord reconstructs a live entry from its serialized form.
func FromRecord(r EntryRecord) *entry.Entry {
	e := &entry.Entry{
		ID:             r.ID,
		Source:         r.Source,
		Content:        r.ContentOrRef,
		Type:           entry.Type(r.Type),
		Tokens:         r.Tokens,
		Tier:           entry.Tier(r.Tier),
		CreatedAtMs:    r.CreatedAtMs,
		LastAccessedMs: r.LastAccessedMs,
		AccessCount:    r.AccessCount,
		Relevance:      r.Relevance,
		Metadata: entry.Metadata{
			Source:    r.Source,
			FilePath:  r.FilePath,
			SessionID: r.SessionID,
			ToolName:  r.ToolName,
		},
	}
	if len(r.Tags) > 0 {
		e.Metadata.Tags = make(map[string]struct{}, len(r.Tags))
		for _, t := range r.Tags {
			e.Metadata.Tags[t] = struct{}{}
		}
	}
	if r.Compressed != nil {
		e.Compressed = &entry.Compressed{
			Method:           entry.CompressionMethod(r.Compressed.Method),
			Summary:          r.Compressed.Summary,
			Handle:           r.Compressed.Handle,
			CompressedTokens: r.Compressed.CompressedTokens,
			Ratio:            r.Compressed.Ratio,
			OriginalTokens:   r.Compressed.OriginalTokens,
			CompressedAtMs:   r.Compressed.CompressedAtMs,
		}
	}
	return e
}

// Encode serializes a Snapshot to its opaque blob form.
func Encode(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a blob and enforces the version-major check (spec §6).
func Decode(blob []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(blob, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if majorOf(s.EngineVersion) != majorOf(EngineVersion) {
		return Snapshot{}, fmt.Errorf("%w: blob=%s engine=%s", ErrSnapshotVersionMismatch, s.EngineVersion, EngineVersion)
	}
	return s, nil
}

func majorOf(version string) string {
	if i := strings.IndexByte(version, '.'); i >= 0 {
		return version[:i]
	}
	return version
}
