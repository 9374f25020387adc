package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apimw "github.com/star64ccs/CardStrategy-sub008/internal/api/middleware"
)

// Mounter registers a handler's routes under /api/ai.
type Mounter interface {
	Mount(r chi.Router)
}

// NewRouter builds the HTTP router with the standard middleware stack, a
// /health liveness probe and every handler mounted under /api/ai.
func NewRouter(logger *slog.Logger, handlers ...Mounter) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(apimw.NewTraceMiddleware(logger))

	r.Route("/api/ai", func(r chi.Router) {
		for _, h := range handlers {
			h.Mount(r)
		}
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
