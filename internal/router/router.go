package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"farmwise-backend/internal/handlers"
	"farmwise-backend/internal/middleware"
)

func New(
	chatHandler *handlers.ChatHandler,
	scanHandler *handlers.ScanHandler,
	healthHandler *handlers.HealthHandler,
	allowedOrigin string,
	log zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.Recoverer(log))
	r.Use(middleware.CORS(allowedOrigin))

	// Health check
	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", chatHandler.Chat)
		r.Post("/scan", scanHandler.Scan)
	})

	return r
}
