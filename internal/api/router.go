package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Get("/state", s.handleGetDeviceState)
				r.Put("/state/{name}", s.handleSetDeviceState)
				r.Post("/state/{name}/rollback", s.handleRollbackState)
				r.Post("/refresh", s.handleRefreshDevice)
			})
		})

		r.Route("/commands", func(r chi.Router) {
			r.Get("/", s.handleListCommands)
			r.Post("/expire", s.handleExpireCommands)
			r.Get("/journal", s.handleCommandJournal)
		})

		// WebSocket event feed
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"devices": s.registry.Count(),
	})
}
