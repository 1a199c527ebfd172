package entry

import (
	"fmt"
	"sort"
	"sync"
)

// Store is the exclusive owner of all entries. No other component holds a
// long-lived handle to an Entry; everyone else borrows a Clone() during a
// single operation. A single mutex gives the serial view the facade
// promises (spec §5) — the in-memory analogue of the teacher's single
// SQLite connection (MaxOpenConns(1)).
type Store struct {
	mu sync.RWMutex

	entries map[string]*Entry
	seq     map[string]uint64 // next sequence number per source

	bySource    map[string][]string
	byFilePath  map[string][]string
	bySessionID map[string][]string
	byTier      map[Tier][]string

	totalEffectiveTokens int64
}

// New creates an empty entry store.
func New() *Store {
	return &Store{
		entries:     make(map[string]*Entry),
		seq:         make(map[string]uint64),
		bySource:    make(map[string][]string),
		byFilePath:  make(map[string][]string),
		bySessionID: make(map[string][]string),
		byTier:      make(map[Tier][]string),
	}
}

// NextID generates an opaque, unique id from source + sequence number, per
// spec §3: "Generated from source + sequence on add." Ids are never
// reused within a process lifetime because the sequence counter for a
// source only ever increases.
func (s *Store) NextID(source string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.seq[source]
	s.seq[source] = n + 1
	return fmt.Sprintf("%s-%d", source, n)
}

// Insert adds a new entry, indexing it under all applicable secondary
// indices and folding its effective tokens into the running total.
// O(1) amortized.
func (s *Store) Insert(e *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[e.ID] = e
	s.bySource[e.Metadata.Source] = append(s.bySource[e.Metadata.Source], e.ID)
	if e.Metadata.FilePath != "" {
		s.byFilePath[e.Metadata.FilePath] = append(s.byFilePath[e.Metadata.FilePath], e.ID)
	}
	if e.Metadata.SessionID != "" {
		s.bySessionID[e.Metadata.SessionID] = append(s.bySessionID[e.Metadata.SessionID], e.ID)
	}
	s.byTier[e.Tier] = append(s.byTier[e.Tier], e.ID)
	s.totalEffectiveTokens += int64(e.EffectiveTokens())
}

// Get returns a read-only clone of the entry, or (nil, false) if unknown.
// Not-found is a recoverable signal, not an error — a concurrent prune may
// have removed the entry (spec §4.B).
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Remove deletes an entry and folds its effective tokens out of the
// running total. Removing an unknown id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return
	}
	s.totalEffectiveTokens -= int64(e.EffectiveTokens())
	delete(s.entries, id)
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// All returns clones of every live entry, sorted by insertion order
// (created_at, then id as a tiebreak for equal timestamps).
func (s *Store) All() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(nil)
}

// AllInSession returns clones of every live entry scoped to sessionID. Used
// when session_isolation is enabled — cross-session reads are forbidden in
// that mode (spec §4.B).
func (s *Store) AllInSession(sessionID string) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := sessionID
	return s.snapshotLocked(func(e *Entry) bool { return e.Metadata.SessionID == want })
}

func (s *Store) snapshotLocked(filter func(*Entry) bool) []*Entry {
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if filter != nil && !filter(e) {
			continue
		}
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtMs != out[j].CreatedAtMs {
			return out[i].CreatedAtMs < out[j].CreatedAtMs
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// BySource returns live entries inserted under the given source, in
// insertion order.
func (s *Store) BySource(source string) []*Entry {
	return s.lookupIndex(s.bySource, source)
}

// ByFilePath returns live entries tagged with the given file path, in
// insertion order.
func (s *Store) ByFilePath(path string) []*Entry {
	return s.lookupIndex(s.byFilePath, path)
}

// BySessionID returns live entries tagged with the given session id, in
// insertion order.
func (s *Store) BySessionID(sessionID string) []*Entry {
	return s.lookupIndex(s.bySessionID, sessionID)
}

// ByTier returns live entries currently in the given tier, in insertion
// order.
func (s *Store) ByTier(tier Tier) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byTier[tier]
	out := make([]*Entry, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if e, ok := s.entries[id]; ok && e.Tier == tier {
			out = append(out, e.Clone())
		}
	}
	return out
}

func (s *Store) lookupIndex(idx map[string][]string, key string) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := idx[key]
	out := make([]*Entry, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if e, ok := s.entries[id]; ok {
			out = append(out, e.Clone())
		}
	}
	return out
}

// TotalEffectiveTokens returns the running total maintained incrementally
// across every mutation (spec §4.B, invariant 1 in spec §8).
func (s *Store) TotalEffectiveTokens() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalEffectiveTokens
}

// Access records an access: bumps last_accessed_at and access_count. Besides
// tiering (SetTier) and relevance scoring (SetRelevance), it is the only
// mutation path that touches an entry after insertion (spec §4.B
// "Ownership and lifecycle").
func (s *Store) Access(id string, nowMs int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.LastAccessedMs = nowMs
	e.AccessCount++
	return true
}

// SetTier updates an entry's tier and (optionally) its compressed
// surrogate, keeping totalEffectiveTokens and the tier index consistent.
// This is the only path tiering uses to mutate an entry (spec §4.C).
func (s *Store) SetTier(id string, tier Tier, compressed *Compressed) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	before := e.EffectiveTokens()
	e.Tier = tier
	e.Compressed = compressed
	after := e.EffectiveTokens()
	s.totalEffectiveTokens += int64(after - before)
	s.byTier[tier] = append(s.byTier[tier], id)
	return true
}

// SetRelevance writes a freshly computed relevance score onto an entry.
func (s *Store) SetRelevance(id string, score float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.Relevance = score
	return true
}

// Reset clears all entries and indices, as if the store were freshly
// constructed.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry)
	s.seq = make(map[string]uint64)
	s.bySource = make(map[string][]string)
	s.byFilePath = make(map[string][]string)
	s.bySessionID = make(map[string][]string)
	s.byTier = make(map[Tier][]string)
	s.totalEffectiveTokens = 0
}

// ReplaceAll atomically swaps the store's contents — used by snapshot
// restore (spec §4.F "Snapshots are atomic from the engine's viewpoint").
func (s *Store) ReplaceAll(entries []*Entry, seq map[string]uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry, len(entries))
	s.bySource = make(map[string][]string)
	s.byFilePath = make(map[string][]string)
	s.bySessionID = make(map[string][]string)
	s.byTier = make(map[Tier][]string)
	s.totalEffectiveTokens = 0

	for _, e := range entries {
		cp := e.Clone()
		s.entries[cp.ID] = cp
		s.bySource[cp.Metadata.Source] = append(s.bySource[cp.Metadata.Source], cp.ID)
		if cp.Metadata.FilePath != "" {
			s.byFilePath[cp.Metadata.FilePath] = append(s.byFilePath[cp.Metadata.FilePath], cp.ID)
		}
		if cp.Metadata.SessionID != "" {
			s.bySessionID[cp.Metadata.SessionID] = append(s.bySessionID[cp.Metadata.SessionID], cp.ID)
		}
		s.byTier[cp.Tier] = append(s.byTier[cp.Tier], cp.ID)
		s.totalEffectiveTokens += int64(cp.EffectiveTokens())
	}

	if seq != nil {
		s.seq = make(map[string]uint64, len(seq))
		for k, v := range seq {
			s.seq[k] = v
		}
	} else {
		s.seq = make(map[string]uint64)
	}
}

// SequenceCounters returns a copy of the per-source sequence counters, for
// snapshotting.
func (s *Store) SequenceCounters() map[string]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]uint64, len(s.seq))
	for k, v := range s.seq {
		out[k] = v
	}
	return out
}
