package hookio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/icco-engine/icco/internal/advisor"
	"github.com/icco-engine/icco/internal/config"
	"github.com/icco-engine/icco/internal/engine"
	"github.com/icco-engine/icco/internal/estimator"
	"github.com/icco-engine/icco/internal/scorer"
	"github.com/icco-engine/icco/internal/similarity"
	"github.com/icco-engine/icco/internal/tiering"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cfg := config.Defaults()
	est := estimator.New()
	compressor := tiering.New(est)
	scr := scorer.New(scorer.DefaultWeights(), cfg.Tiers, cfg.DecayRate, similarity.Func(similarity.TokenOverlap))
	e, err := engine.New(cfg, est, compressor, scr, similarity.Func(similarity.TokenOverlap), advisor.NullAdvisor{}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func runLines(t *testing.T, eng *engine.Engine, lines ...string) []map[string]any {
	t.Helper()
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer
	srv := NewServer(eng, in, &out, nil)
	if err := srv.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var responses []map[string]any
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		responses = append(responses, m)
	}
	return responses
}

func TestUnknownKindReturnsError(t *testing.T) {
	eng := newTestEngine(t)
	responses := runLines(t, eng, `{"kind":"bogus","session_id":"s"}`)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if _, ok := responses[0]["error"]; !ok {
		t.Fatalf("expected error field, got %+v", responses[0])
	}
}

func TestMalformedLineIsSkippedNotFatal(t *testing.T) {
	eng := newTestEngine(t)
	responses := runLines(t, eng, `not json`, `{"kind":"get_utilization"}`)
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if _, ok := responses[0]["error"]; !ok {
		t.Fatalf("expected first response to be an error, got %+v", responses[0])
	}
	if _, ok := responses[1]["utilization"]; !ok {
		t.Fatalf("expected second response to carry utilization, got %+v", responses[1])
	}
}

func TestOnUserPromptSubmitOnEmptyStoreReturnsNoneLevel(t *testing.T) {
	eng := newTestEngine(t)
	responses := runLines(t, eng, `{"kind":"on_user_prompt_submit","session_id":"s","now_ms":1000,"payload":{"query":"q"}}`)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0]["level"] != "none" {
		t.Fatalf("expected none level, got %+v", responses[0])
	}
}

func TestOnPostToolUseAddsEntryAndTransitionTiers(t *testing.T) {
	eng := newTestEngine(t)
	responses := runLines(t, eng,
		`{"kind":"on_post_tool_use","session_id":"s","now_ms":1000,"payload":{"tool_name":"bash","tool_input":"ls -la"}}`,
		`{"kind":"transition_tiers","now_ms":2000}`,
		`{"kind":"get_metrics"}`,
	)
	if len(responses) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(responses))
	}
	if responses[0]["level"] != "none" {
		t.Fatalf("expected no prune under soft threshold, got %+v", responses[0])
	}
	if _, ok := responses[2]["Adds"]; !ok {
		t.Fatalf("expected metrics snapshot with Adds field, got %+v", responses[2])
	}
}
