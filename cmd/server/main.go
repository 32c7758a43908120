package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"farmwise-backend/internal/config"
	"farmwise-backend/internal/handlers"
	"farmwise-backend/internal/logger"
	"farmwise-backend/internal/observability"
	"farmwise-backend/internal/router"
	"farmwise-backend/internal/services"
	"farmwise-backend/internal/storage"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log := logger.New(cfg)
	log.Info().Str("env", cfg.Env).Msg("🚀 Starting FarmWise Backend...")

	ctx := context.Background()

	// ──── Step 2: Initialize Tracing ────
	shutdownTracing, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("✗ Tracing setup failed")
	}
	defer shutdownTracing(context.Background())

	// ──── Step 3: Prepare Scan Staging Directory ────
	stager, err := storage.NewStagingStore(cfg.StagingDir, log)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.StagingDir).Msg("✗ Staging directory unavailable")
	}
	log.Info().Str("dir", stager.Dir()).Msg("✓ Staging directory ready")

	// ──── Step 4: Initialize Gemini Client ────
	gen, closeGen := newGenerator(ctx, cfg, log)
	defer closeGen()

	// ──── Initialize Services & Handlers ────
	advisor := services.NewAdvisorService(services.AdvisorConfig{
		HasAPIKey: cfg.HasAPIKey(),
		Model:     cfg.GeminiModel,
		Timeout:   cfg.UpstreamTimeout,
	}, gen, stager, log)

	chatHandler := handlers.NewChatHandler(advisor, log)
	scanHandler := handlers.NewScanHandler(advisor, cfg.MaxUploadBytes, log)
	healthHandler := handlers.NewHealthHandler(advisor.HasAPIKey)

	// ──── Step 5: Start HTTP Server ────
	r := router.New(chatHandler, scanHandler, healthHandler, cfg.AllowedOrigin, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().
		Str("addr", server.Addr).
		Bool("has_api_key", cfg.HasAPIKey()).
		Msgf("✓ FarmWise Backend ready on http://localhost:%s", cfg.Port)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server error")
	}
}

// newGenerator builds the configured transport. Without an API key it returns
// nil and every model-backed request fails with a configuration error.
func newGenerator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (services.Generator, func()) {
	noop := func() {}
	if !cfg.HasAPIKey() {
		log.Warn().Msg("⚠ GEMINI_API_KEY not set: chat and scan will return configuration errors")
		return nil, noop
	}

	switch cfg.GeminiTransport {
	case config.TransportGRPC:
		svc, err := services.NewGeminiGRPCService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			log.Fatal().Err(err).Msg("✗ Gemini client initialization failed")
		}
		log.Info().Str("model", cfg.GeminiModel).Str("transport", cfg.GeminiTransport).Msg("✓ Gemini client initialized")
		return svc, svc.Close
	default:
		svc, err := services.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, &http.Client{}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("✗ Gemini client initialization failed")
		}
		log.Info().Str("model", cfg.GeminiModel).Str("transport", cfg.GeminiTransport).Msg("✓ Gemini client initialized")
		return svc, noop
	}
}
