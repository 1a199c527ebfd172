package similarity

import "testing"

func TestTokenOverlapIdenticalStrings(t *testing.T) {
	if got := TokenOverlap("fix the login bug", "fix the login bug"); got != 1.0 {
		t.Fatalf("expected 1.0 for identical strings, got %f", got)
	}
}

func TestTokenOverlapDisjointStrings(t *testing.T) {
	if got := TokenOverlap("apples and oranges", "quantum entanglement theory"); got != 0 {
		t.Fatalf("expected 0 for disjoint strings, got %f", got)
	}
}

func TestTokenOverlapEmptyInputs(t *testing.T) {
	if got := TokenOverlap("", "something"); got != 0 {
		t.Fatalf("expected 0 for empty query, got %f", got)
	}
}

func TestCosineSimilarityIdenticalVectors(t *testing.T) {
	v := []float32{1, 2, 3}
	if got := CosineSimilarity(v, v); got < 0.999 {
		t.Fatalf("expected ~1.0 for identical vectors, got %f", got)
	}
}

func TestCosineSimilarityOrthogonalVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if got := CosineSimilarity(a, b); got != 0 {
		t.Fatalf("expected 0 for orthogonal vectors, got %f", got)
	}
}

func TestCosineSimilarityMismatchedLength(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 2}, []float32{1}); got != 0 {
		t.Fatalf("expected 0 for mismatched lengths, got %f", got)
	}
}

func TestFloat32BytesRoundTrip(t *testing.T) {
	v := []float32{1.5, -2.25, 0, 100.125}
	got := BytesToFloat32(Float32ToBytes(v))
	if len(got) != len(v) {
		t.Fatalf("length mismatch: %d vs %d", len(got), len(v))
	}
	for i := range v {
		if got[i] != v[i] {
			t.Fatalf("round trip mismatch at %d: %f vs %f", i, got[i], v[i])
		}
	}
}
