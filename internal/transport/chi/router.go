package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kailas-cloud/mailrag/internal/metrics"
)

// RouterOptions tunes the router middleware stack.
type RouterOptions struct {
	// AllowedOrigin is sent as Access-Control-Allow-Origin. Empty disables CORS headers.
	AllowedOrigin string
}

// NewRouter mounts the server handlers behind the standard middleware stack.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())
	if opts.AllowedOrigin != "" {
		r.Use(corsHeaders(opts.AllowedOrigin))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Post("/api/chat", s.Chat)
	r.Get("/api/v1/retrieve", s.Retrieve)
	r.Get("/api/v1/usage", s.Usage)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	return r
}
