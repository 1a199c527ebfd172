package persist

import (
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "icco.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	blob := []byte(`{"engine_version":"1.0"}`)
	if err := store.Save("default", blob, 1000); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.Load("default")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("expected snapshot to exist")
	}
	if string(got) != string(blob) {
		t.Fatalf("expected %s, got %s", blob, got)
	}
}

func TestLoadMissingReturnsNotOK(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "icco.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	_, ok, err := store.Load("nonexistent")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatal("expected not found")
	}
}

func TestSaveOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "icco.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if err := store.Save("default", []byte("v1"), 1000); err != nil {
		t.Fatalf("save v1: %v", err)
	}
	if err := store.Save("default", []byte("v2"), 2000); err != nil {
		t.Fatalf("save v2: %v", err)
	}

	got, _, err := store.Load("default")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != "v2" {
		t.Fatalf("expected v2, got %s", got)
	}
}
