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
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Liveness probes
	r.Get("/health", s.handleHealth)
	r.Post("/ping", s.handlePing)

	// Sensor endpoints
	r.Route("/sensor", func(r chi.Router) {
		r.Get("/", s.handleListSensors)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSensor)
			r.Get("/history", s.handleSensorHistory)
			r.Get("/live", s.handleSensorLive)
			r.Get("/ws", s.handleSensorWS)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handlePing answers connectivity probes with a bare string body.
func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong")) //nolint:errcheck // Best-effort write to response
}
