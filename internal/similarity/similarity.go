// Package similarity provides the optional external text similarity
// collaborator named in spec §6, plus the default in-process
// implementation used when no external backend is configured. Grounded
// on the teacher's internal/search/hybrid.go setOverlapRatio (Jaccard
// token overlap) and internal/search/vectors.go (cosine similarity over
// float32 vectors).
package similarity

import (
	"encoding/binary"
	"math"
	"strings"
)

// Func adapts a plain function to the scorer.Similarity interface,
// mirroring the standard library's http.HandlerFunc pattern — this
// package has no upward dependency on internal/scorer, so the method is
// defined structurally rather than against a named interface.
type Func func(query, content string) float64

// Similarity calls f, satisfying any interface shaped like
// scorer.Similarity.
func (f Func) Similarity(query, content string) float64 {
	return f(query, content)
}

// TokenOverlap is a pure, dependency-free default: Jaccard similarity over
// lowercased word tokens. It never calls out to the network, matching the
// engine's guarantee that facade operations never block on I/O unless a
// backend is explicitly configured (spec §1 Non-goals).
func TokenOverlap(query, content string) float64 {
	a := tokenSet(query)
	b := tokenSet(content)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	union := make(map[string]struct{}, len(a)+len(b))
	for t := range a {
		union[t] = struct{}{}
	}
	for t := range b {
		union[t] = struct{}{}
		if _, ok := a[t]; ok {
			intersection++
		}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(intersection) / float64(len(union))
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		set[f] = struct{}{}
	}
	return set
}

// CosineSimilarity computes cosine similarity between two float32 vectors,
// clamped into [0,1] for use as a relevance signal (raw cosine ranges
// [-1,1]; negative similarity is treated as no match).
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	sim := dot / denom
	if sim < 0 {
		return 0
	}
	return sim
}

// Float32ToBytes converts a float32 slice to little-endian bytes, for
// vector store payloads.
func Float32ToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// BytesToFloat32 is the inverse of Float32ToBytes.
func BytesToFloat32(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
