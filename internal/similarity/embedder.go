package similarity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Embedder generates embedding vectors for text via an Ollama-compatible
// HTTP API. Adapted from the teacher's internal/embedding/ollama.go
// OllamaClient — same wire shape, repurposed as the optional similarity
// backend named in spec §6 instead of a memory-embedding pipeline.
type Embedder struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewEmbedder builds an Embedder against an Ollama-compatible server.
func NewEmbedder(baseURL, model string) *Embedder {
	return &Embedder{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates an embedding vector for text.
func (e *Embedder) Embed(text string) ([]float32, error) {
	data, err := json.Marshal(embedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	resp, err := e.client.Post(e.baseURL+"/api/embed", "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed backend returned %d: %s", resp.StatusCode, string(body))
	}

	var result embedResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("embed backend returned no embeddings")
	}
	return result.Embeddings[0], nil
}

// EmbeddingSimilarity is a Func backed by an Embedder: it embeds both
// query and content and returns their cosine similarity. Per spec §5
// ("must hold no internal locks across the suspension"), it is a plain
// blocking call — the caller decides whether to run it off the facade's
// hot path.
func EmbeddingSimilarity(embedder *Embedder) Func {
	return func(query, content string) float64 {
		qv, err := embedder.Embed(query)
		if err != nil {
			return 0
		}
		cv, err := embedder.Embed(content)
		if err != nil {
			return 0
		}
		return CosineSimilarity(qv, cv)
	}
}
