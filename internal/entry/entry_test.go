package entry

import "testing"

func TestEffectiveTokensFallsBackToTokens(t *testing.T) {
	e := &Entry{Tokens: 100}
	if got := e.EffectiveTokens(); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
}

func TestEffectiveTokensUsesCompressed(t *testing.T) {
	e := &Entry{Tokens: 100, Compressed: &Compressed{CompressedTokens: 20, OriginalTokens: 100}}
	if got := e.EffectiveTokens(); got != 20 {
		t.Fatalf("expected 20, got %d", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	e := &Entry{
		ID:     "a-0",
		Tokens: 10,
		Metadata: Metadata{
			Tags: map[string]struct{}{"x": {}},
		},
		Compressed: &Compressed{CompressedTokens: 5},
	}
	cp := e.Clone()
	cp.Tokens = 999
	cp.Compressed.CompressedTokens = 1
	cp.Metadata.Tags["y"] = struct{}{}

	if e.Tokens != 10 {
		t.Fatalf("mutation of clone leaked into original Tokens: %d", e.Tokens)
	}
	if e.Compressed.CompressedTokens != 5 {
		t.Fatalf("mutation of clone leaked into original Compressed: %d", e.Compressed.CompressedTokens)
	}
	if _, ok := e.Metadata.Tags["y"]; ok {
		t.Fatalf("mutation of clone leaked into original Tags")
	}
}

func TestCloneNil(t *testing.T) {
	var e *Entry
	if e.Clone() != nil {
		t.Fatal("expected nil clone of nil entry")
	}
}
