package vectorstore

import "testing"

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore()
	handle, err := s.Put("e1", "hello world")
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}
	content, ok := s.Get(handle)
	if !ok || content != "hello world" {
		t.Fatalf("expected round trip, got %q ok=%v", content, ok)
	}
}

func TestMemoryStoreGetUnknownHandle(t *testing.T) {
	s := NewMemoryStore()
	if _, ok := s.Get("missing"); ok {
		t.Fatal("expected ok=false for unknown handle")
	}
}

func TestMemoryStoreSearchRanksByOverlap(t *testing.T) {
	s := NewMemoryStore()
	s.Put("e1", "fix the login bug in auth module")
	s.Put("e2", "completely unrelated content about gardening")

	results, err := s.Search("fix login bug", 5)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) == 0 || results[0].ID != "e1" {
		t.Fatalf("expected e1 to rank first, got %+v", results)
	}
}

func TestMemoryStoreSearchRespectsK(t *testing.T) {
	s := NewMemoryStore()
	s.Put("e1", "alpha beta gamma")
	s.Put("e2", "alpha beta delta")
	s.Put("e3", "alpha epsilon zeta")

	results, err := s.Search("alpha beta", 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestCollectionNameSharedWhenNoSession(t *testing.T) {
	if got := CollectionName(""); got != collectionPrefix+"shared" {
		t.Fatalf("expected shared collection name, got %q", got)
	}
}

func TestCollectionNamePerSession(t *testing.T) {
	if got := CollectionName("sess-1"); got != collectionPrefix+"sess-1" {
		t.Fatalf("expected session-scoped collection name, got %q", got)
	}
}
