package vectorstore

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/icco-engine/icco/internal/similarity"
)

// QdrantStore adapts the teacher's QdrantClient + CollectionManager to the
// Store contract (spec §6), embedding content through an Embedder before
// handing vectors to Qdrant. Collections are keyed by session id so
// session_isolation, if enabled, extends to semantic search too.
type QdrantStore struct {
	client    *QdrantClient
	colls     *CollectionManager
	embedder  *similarity.Embedder
	sessionID string
}

// NewQdrantStore builds a Store backed by a running Qdrant instance.
func NewQdrantStore(baseURL string, dimension int, embedder *similarity.Embedder, sessionID string) *QdrantStore {
	client := NewQdrantClient(baseURL, dimension)
	return &QdrantStore{
		client:    client,
		colls:     NewCollectionManager(client),
		embedder:  embedder,
		sessionID: sessionID,
	}
}

// Put embeds content and upserts it into the session's collection. The
// returned handle is a freshly generated point id.
func (q *QdrantStore) Put(id, content string) (string, error) {
	coll, err := q.colls.EnsureForSession(q.sessionID)
	if err != nil {
		return "", err
	}
	vec, err := q.embedder.Embed(content)
	if err != nil {
		return "", fmt.Errorf("embed content: %w", err)
	}
	handle := uuid.NewString()
	err = q.client.UpsertEntryVectors(coll, []EntryVector{{
		ID:      handle,
		Vector:  vec,
		Payload: map[string]any{"entry_id": id, "content": content},
	}})
	if err != nil {
		return "", fmt.Errorf("upsert entry vector: %w", err)
	}
	return handle, nil
}

// Get is unavailable over the Qdrant REST surface the teacher's client
// exposes (no point-fetch-by-id endpoint was wired); callers fall back to
// Search with the original content as the query, or treat the entry as
// read-only metadata, per spec §4.C.
func (q *QdrantStore) Get(handle string) (string, bool) {
	return "", false
}

// Search embeds query and searches the session's collection.
func (q *QdrantStore) Search(query string, k int) ([]Result, error) {
	coll := CollectionName(q.sessionID)
	exists, err := q.client.CollectionExists(coll)
	if err != nil || !exists {
		return nil, nil
	}
	vec, err := q.embedder.Embed(query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := q.client.SearchEntryVectors(coll, vec, k, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(matches))
	for _, r := range matches {
		entryID, _ := r.Payload["entry_id"].(string)
		out = append(out, Result{ID: entryID, Score: r.Score})
	}
	return out, nil
}
