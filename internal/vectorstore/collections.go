package vectorstore

import (
	"fmt"
	"sync"
)

const collectionPrefix = "icco_ctx_"

// CollectionManager maps session ids to Qdrant collections and ensures
// they are created on first use. When session_isolation is enabled, each
// session gets its own collection so one session's embedded entries never
// surface in another session's search results.
type CollectionManager struct {
	client *QdrantClient
	known  map[string]bool
	mu     sync.RWMutex
}

func NewCollectionManager(client *QdrantClient) *CollectionManager {
	return &CollectionManager{
		client: client,
		known:  make(map[string]bool),
	}
}

// CollectionName returns the Qdrant collection name for a session id. The
// empty session id (session isolation disabled) maps to a single shared
// collection.
func CollectionName(sessionID string) string {
	if sessionID == "" {
		return collectionPrefix + "shared"
	}
	return collectionPrefix + sessionID
}

// EnsureForSession creates the Qdrant collection for a session if it
// doesn't already exist. Results are cached in-memory.
func (m *CollectionManager) EnsureForSession(sessionID string) (string, error) {
	name := CollectionName(sessionID)

	m.mu.RLock()
	if m.known[name] {
		m.mu.RUnlock()
		return name, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if m.known[name] {
		return name, nil
	}

	if err := m.client.EnsureCollection(name); err != nil {
		return "", fmt.Errorf("ensure collection %s: %w", name, err)
	}

	m.known[name] = true
	return name, nil
}
