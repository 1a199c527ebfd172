package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/icco-engine/icco/internal/advisor"
	"github.com/icco-engine/icco/internal/config"
	"github.com/icco-engine/icco/internal/engine"
	"github.com/icco-engine/icco/internal/estimator"
	"github.com/icco-engine/icco/internal/persist"
	"github.com/icco-engine/icco/internal/scorer"
	"github.com/icco-engine/icco/internal/similarity"
	"github.com/icco-engine/icco/internal/tiering"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Defaults()
	est := estimator.New()
	compressor := tiering.New(est)
	scr := scorer.New(scorer.DefaultWeights(), cfg.Tiers, cfg.DecayRate, similarity.Func(similarity.TokenOverlap))
	eng, err := engine.New(cfg, est, compressor, scr, similarity.Func(similarity.TokenOverlap), advisor.NullAdvisor{}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	router := NewRouter(eng, "test-key", nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, apiKey string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var raw any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	decoded, _ := raw.(map[string]any)
	return resp, decoded
}

func TestHealthIsUnauthenticated(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %+v", body)
	}
}

func TestEntriesRequiresAuth(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/entries", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAddEntryThenGetEntries(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/entries", "test-key", map[string]any{
		"source":  "bash",
		"type":    "bash_output",
		"content": "ls -la /tmp",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %+v", resp.StatusCode, body)
	}
	id, _ := body["ID"].(string)
	if id == "" {
		t.Fatalf("expected entry id in response, got %+v", body)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/entries", "test-key", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAddEntryRejectsEmptyContent(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/entries", "test-key", map[string]any{
		"source": "bash",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %+v", resp.StatusCode, body)
	}
}

func TestUserPromptSubmitOnEmptyStoreReturnsNoneLevel(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/hooks/user_prompt_submit", "test-key", map[string]any{
		"query":      "q",
		"session_id": "s1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %+v", resp.StatusCode, body)
	}
	level, _ := body["level"].(string)
	if level != "none" {
		t.Fatalf("expected none level, got %+v", body)
	}
}

func TestSnapshotRoundTripRequiresPersistStore(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/snapshots", "test-key", map[string]any{"name": "default"})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 with no persist store configured, got %d: %+v", resp.StatusCode, body)
	}
}

func TestSaveSnapshotDefaultsEmptyNameToUUID(t *testing.T) {
	dir := t.TempDir()
	store, err := persist.Open(dir + "/icco.db")
	if err != nil {
		t.Fatalf("open persist store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.Defaults()
	est := estimator.New()
	compressor := tiering.New(est)
	scr := scorer.New(scorer.DefaultWeights(), cfg.Tiers, cfg.DecayRate, similarity.Func(similarity.TokenOverlap))
	eng, err := engine.New(cfg, est, compressor, scr, similarity.Func(similarity.TokenOverlap), advisor.NullAdvisor{}, store, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	router := NewRouter(eng, "test-key", nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/snapshots", "test-key", map[string]any{"name": ""})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %+v", resp.StatusCode, body)
	}
	name, _ := body["name"].(string)
	if name == "" {
		t.Fatalf("expected a generated snapshot name, got %+v", body)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/snapshots/"+name+"/restore", "test-key", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected restore of generated name to succeed, got %d: %+v", resp.StatusCode, body)
	}
}
