package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/icco-engine/icco/internal/engine"
	"github.com/icco-engine/icco/internal/entry"
	"github.com/icco-engine/icco/internal/scorer"
)

// Handler adapts the engine's Hook Facade to HTTP, grounded on the
// teacher's one-handler-struct-per-resource shape (internal/api/
// handlers_memories.go's MemoryHandler).
type Handler struct {
	eng *engine.Engine
}

// NewHandler builds a Handler bound to eng.
func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{eng: eng}
}

func nowMs() int64 { return time.Now().UnixMilli() }

type addRequest struct {
	Source    string   `json:"source"`
	Type      string   `json:"type"`
	Content   string   `json:"content"`
	FilePath  string   `json:"file_path,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
	ToolName  string   `json:"tool_name,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// Add handles POST /entries.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.Type == "" {
		req.Type = string(entry.TypeOther)
	}

	ent := h.eng.Add(engine.AddRequest{
		Source:    req.Source,
		Type:      entry.Type(req.Type),
		Content:   req.Content,
		FilePath:  req.FilePath,
		SessionID: req.SessionID,
		ToolName:  req.ToolName,
		Tags:      req.Tags,
		NowMs:     nowMs(),
	})
	writeJSON(w, http.StatusCreated, ent)
}

// Access handles POST /entries/{id}/access.
func (h *Handler) Access(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.eng.Access(id, nowMs()) {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type scoreAllRequest struct {
	Query          string   `json:"query"`
	ActiveFiles    []string `json:"active_files,omitempty"`
	ActiveTools    []string `json:"active_tools,omitempty"`
	SessionID      string   `json:"session_id,omitempty"`
	RecentEntryIDs []string `json:"recent_entry_ids,omitempty"`
}

// ScoreAll handles POST /score.
func (h *Handler) ScoreAll(w http.ResponseWriter, r *http.Request) {
	var req scoreAllRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	ctx := scorer.Context{
		CurrentQuery:   req.Query,
		ActiveFiles:    req.ActiveFiles,
		ActiveTools:    req.ActiveTools,
		SessionID:      req.SessionID,
		RecentEntryIDs: req.RecentEntryIDs,
	}
	ranked := h.eng.ScoreAll(ctx, nowMs())
	writeJSON(w, http.StatusOK, ranked)
}

type userPromptRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// pruneResultDTO is the wire shape spec §6 names for every prune-capable
// hook: `{level, tokens_freed, entries_removed, compactions_prevented_delta}`,
// plus entries_compressed, final_utilization and pressure_unrelieved.
type pruneResultDTO struct {
	Level                     string  `json:"level"`
	TokensFreed               int64   `json:"tokens_freed"`
	EntriesRemoved            int     `json:"entries_removed"`
	EntriesCompressed         int     `json:"entries_compressed"`
	FinalUtilization          float64 `json:"final_utilization"`
	PressureUnrelieved        bool    `json:"pressure_unrelieved"`
	CompactionsPreventedDelta int     `json:"compactions_prevented_delta"`
}

func toPruneResultDTO(r engine.PruneResult) pruneResultDTO {
	delta := 0
	if r.Level.String() != "none" && !r.PressureUnrelieved {
		delta = 1
	}
	return pruneResultDTO{
		Level:                     r.Level.String(),
		TokensFreed:               r.TokensFreed,
		EntriesRemoved:            r.EntriesRemoved,
		EntriesCompressed:         r.EntriesCompressed,
		FinalUtilization:          r.FinalUtilization,
		PressureUnrelieved:        r.PressureUnrelieved,
		CompactionsPreventedDelta: delta,
	}
}

// OnUserPromptSubmit handles POST /hooks/user_prompt_submit.
func (h *Handler) OnUserPromptSubmit(w http.ResponseWriter, r *http.Request) {
	var req userPromptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	result := h.eng.OnUserPromptSubmit(req.Query, req.SessionID, nowMs())
	writeJSON(w, http.StatusOK, toPruneResultDTO(result))
}

type postToolUseRequest struct {
	ToolName  string `json:"tool_name"`
	ToolInput string `json:"tool_input"`
	SessionID string `json:"session_id"`
}

// OnPostToolUse handles POST /hooks/post_tool_use.
func (h *Handler) OnPostToolUse(w http.ResponseWriter, r *http.Request) {
	var req postToolUseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	id, result := h.eng.OnPostToolUse(req.ToolName, req.ToolInput, req.SessionID, nowMs())
	var dto *pruneResultDTO
	if result != nil {
		converted := toPruneResultDTO(*result)
		dto = &converted
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "prune_result": dto})
}

type preCompactRequest struct {
	SessionID string `json:"session_id"`
}

// OnPreCompact handles POST /hooks/pre_compact.
func (h *Handler) OnPreCompact(w http.ResponseWriter, r *http.Request) {
	var req preCompactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	result := h.eng.OnPreCompact(req.SessionID, nowMs())
	writeJSON(w, http.StatusOK, toPruneResultDTO(result))
}

// TransitionTiers handles POST /hooks/transition_tiers.
func (h *Handler) TransitionTiers(w http.ResponseWriter, r *http.Request) {
	counts := h.eng.TransitionTiers(nowMs())
	writeJSON(w, http.StatusOK, counts)
}

// GetMetrics handles GET /metrics.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.eng.GetMetrics())
}

// GetUtilization handles GET /utilization.
func (h *Handler) GetUtilization(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]float64{"utilization": h.eng.GetUtilization()})
}

// GetEntries handles GET /entries.
func (h *Handler) GetEntries(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	writeJSON(w, http.StatusOK, h.eng.GetEntries(sessionID))
}

// Reset handles POST /reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.eng.Reset()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type snapshotRequest struct {
	Name string `json:"name"`
}

// SaveSnapshot handles POST /snapshots. An empty name is assigned a
// fresh UUID (spec §4.F "save_snapshot(name)"), so callers that don't
// care about naming their own snapshots still get one back to restore
// from.
func (h *Handler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		req.Name = uuid.NewString()
	}
	if err := h.eng.SaveSnapshot(req.Name, nowMs()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "name": req.Name})
}

// RestoreSnapshot handles POST /snapshots/{name}/restore.
func (h *Handler) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.eng.RestoreSnapshot(name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
