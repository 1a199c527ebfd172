// Package hookio implements the stdio event loop that adapts the host
// hook runtime's line-delimited JSON events to the engine's Hook Facade
// (spec §6 "Host hook contract"). Grounded on the teacher's
// internal/mcp/server.go: a bufio.Scanner reading one JSON object per
// line, dispatched by a string kind field, with a buffered scanner sized
// for large tool output.
package hookio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/icco-engine/icco/internal/engine"
)

const maxLineBytes = 4 * 1024 * 1024

// Event is one line of input: an event kind, a session id, and an
// event-specific payload (spec §6).
type Event struct {
	Kind      string          `json:"kind"`
	SessionID string          `json:"session_id"`
	NowMs     int64           `json:"now_ms"`
	Payload   json.RawMessage `json:"payload"`
}

// Result is the blob returned for every prune-capable event (spec §6):
// `{level, tokens_freed, entries_removed, compactions_prevented_delta}`.
type Result struct {
	Level                     string `json:"level"`
	TokensFreed               int64  `json:"tokens_freed"`
	EntriesRemoved            int    `json:"entries_removed"`
	CompactionsPreventedDelta int    `json:"compactions_prevented_delta"`
}

type errorResult struct {
	Error string `json:"error"`
}

type promptPayload struct {
	Query string `json:"query"`
}

type toolResultPayload struct {
	ToolName  string `json:"tool_name"`
	ToolInput string `json:"tool_input"`
}

// Server runs the stdio loop. One Event in, one JSON response line out.
type Server struct {
	eng    *engine.Engine
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

// NewServer builds a Server bound to eng, reading in and writing out.
func NewServer(eng *engine.Engine, in io.Reader, out io.Writer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{eng: eng, in: in, out: out, logger: logger}
}

// Run blocks reading events from in until it is closed or scanning
// fails. Each line is handled independently; a malformed line yields an
// error response but does not stop the loop (spec §7 "internal errors
// are recovered or downgraded").
func (s *Server) Run() error {
	scanner := bufio.NewScanner(s.in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var evt Event
		if err := json.Unmarshal(line, &evt); err != nil {
			s.writeError(fmt.Sprintf("parse error: %s", err))
			continue
		}

		s.handle(evt)
	}

	return scanner.Err()
}

func (s *Server) handle(evt Event) {
	switch evt.Kind {
	case "on_user_prompt_submit", "on_user_prompt":
		s.handlePrompt(evt)
	case "on_post_tool_use", "on_tool_result":
		s.handleToolResult(evt)
	case "on_pre_compact":
		s.handlePreCompact(evt)
	case "transition_tiers":
		s.handleTransitionTiers(evt)
	case "get_metrics":
		s.writeJSON(s.eng.GetMetrics())
	case "get_utilization":
		s.writeJSON(map[string]float64{"utilization": s.eng.GetUtilization()})
	case "reset":
		s.eng.Reset()
		s.writeJSON(map[string]any{"ok": true})
	default:
		s.writeError(fmt.Sprintf("unknown event kind: %q", evt.Kind))
	}
}

func (s *Server) handlePrompt(evt Event) {
	var p promptPayload
	if len(evt.Payload) > 0 {
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			s.writeError(fmt.Sprintf("invalid payload: %s", err))
			return
		}
	}
	result := s.eng.OnUserPromptSubmit(p.Query, evt.SessionID, evt.NowMs)
	s.writeJSON(resultFromPrune(result))
}

func (s *Server) handleToolResult(evt Event) {
	var p toolResultPayload
	if len(evt.Payload) > 0 {
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			s.writeError(fmt.Sprintf("invalid payload: %s", err))
			return
		}
	}
	_, pruneResult := s.eng.OnPostToolUse(p.ToolName, p.ToolInput, evt.SessionID, evt.NowMs)
	if pruneResult == nil {
		s.writeJSON(Result{Level: "none"})
		return
	}
	s.writeJSON(resultFromPrune(*pruneResult))
}

func (s *Server) handlePreCompact(evt Event) {
	result := s.eng.OnPreCompact(evt.SessionID, evt.NowMs)
	s.writeJSON(resultFromPrune(result))
}

func (s *Server) handleTransitionTiers(evt Event) {
	counts := s.eng.TransitionTiers(evt.NowMs)
	s.writeJSON(counts)
}

func resultFromPrune(r engine.PruneResult) Result {
	delta := 0
	if r.Level.String() != "none" && !r.PressureUnrelieved {
		delta = 1
	}
	return Result{
		Level:                     r.Level.String(),
		TokensFreed:               r.TokensFreed,
		EntriesRemoved:            r.EntriesRemoved,
		CompactionsPreventedDelta: delta,
	}
}

func (s *Server) writeJSON(v any) {
	encoded, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("hookio: encode response", "err", err)
		return
	}
	if _, err := fmt.Fprintf(s.out, "%s\n", encoded); err != nil {
		s.logger.Error("hookio: write response", "err", err)
	}
}

func (s *Server) writeError(message string) {
	s.logger.Warn("hookio: event error", "message", message)
	s.writeJSON(errorResult{Error: message})
}
