package vectorstore

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/icco-engine/icco/internal/similarity"
)

// Result is one scored hit from Search.
type Result struct {
	ID    string
	Score float64
}

// Store is the vector-store contract (spec §6). The Compressor consumes
// its Put method through tiering.VectorStore; the semantic selection
// strategy does not use it (it ranks with scorer.Similarity).
type Store interface {
	Put(id, content string) (handle string, err error)
	Get(handle string) (content string, ok bool)
	Search(query string, k int) ([]Result, error)
}

// MemoryStore is the default in-process Store: no external dependency,
// content addressed by a generated handle, search via token overlap.
// This is what the engine uses when no external vector backend is
// configured (spec §1: "on-disk key-value store and vector index treated
// as pluggable interfaces").
type MemoryStore struct {
	mu      sync.RWMutex
	byHandle map[string]string
	ids     map[string]string // handle -> original entry id
}

// NewMemoryStore builds an empty in-process vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byHandle: make(map[string]string),
		ids:      make(map[string]string),
	}
}

// Put stores content under a freshly generated handle.
func (m *MemoryStore) Put(id, content string) (string, error) {
	handle := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byHandle[handle] = content
	m.ids[handle] = id
	return handle, nil
}

// Get returns the content stored under handle, if any.
func (m *MemoryStore) Get(handle string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.byHandle[handle]
	return content, ok
}

// Search ranks stored content against query by token overlap and returns
// the top k (id, score) pairs, descending by score.
func (m *MemoryStore) Search(query string, k int) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Result, 0, len(m.byHandle))
	for handle, content := range m.byHandle {
		score := similarity.TokenOverlap(query, content)
		if score <= 0 {
			continue
		}
		out = append(out, Result{ID: m.ids[handle], Score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}
