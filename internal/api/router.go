package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/icco-engine/icco/internal/engine"
)

// NewRouter creates the Chi router exposing the Hook Facade over HTTP
// (spec §4.G), grounded on the teacher's internal/api/router.go: global
// middleware first, an unauthenticated health route, then an
// authenticated group.
func NewRouter(eng *engine.Engine, apiKey string, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /health)
	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	h := NewHandler(eng)

	// Unauthenticated routes
	r.Get("/health", h.Health)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(apiKey))

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.GetEntries)
			r.Post("/", h.Add)
			r.Post("/{id}/access", h.Access)
		})

		r.Post("/score", h.ScoreAll)

		r.Route("/hooks", func(r chi.Router) {
			r.Post("/user_prompt_submit", h.OnUserPromptSubmit)
			r.Post("/post_tool_use", h.OnPostToolUse)
			r.Post("/pre_compact", h.OnPreCompact)
			r.Post("/transition_tiers", h.TransitionTiers)
		})

		r.Get("/metrics", h.GetMetrics)
		r.Get("/utilization", h.GetUtilization)
		r.Post("/reset", h.Reset)

		r.Route("/snapshots", func(r chi.Router) {
			r.Post("/", h.SaveSnapshot)
			r.Post("/{name}/restore", h.RestoreSnapshot)
		})
	})

	return r
}
