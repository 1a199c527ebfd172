// Package api exposes the engine's Hook Facade over HTTP: one route per
// spec §4.G operation, a chi router, and the same middleware/response
// shape as the teacher's internal/api package. Grounded on the teacher's
// internal/api/router.go (chi.Mux, route groups, middleware ordering);
// writeJSON/writeError/decodeJSON recreated in the style of the other
// example repos' handler helpers (davidahmann-gait's core/ui/handlers.go),
// since the teacher's own package never carried standalone versions of
// these (they lived inline per-handler there).
package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	encoded, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"ok":false,"error":"encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(encoded, '\n'))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"ok":    false,
		"error": strings.TrimSpace(message),
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
