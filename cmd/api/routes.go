package main

import (
	"net/http"

	"github.com/rs/zerolog"

	httphandlers "kesef/internal/interfaces/http"
	"kesef/internal/shared/config"
	"kesef/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Protected routes
	authMiddleware := middleware.Auth(deps.Signer)

	mux.Handle("/api/reconciliation/matches", authMiddleware(http.HandlerFunc(deps.ReconciliationHandler.HandleMatches)))
	mux.Handle("/api/reconciliation/link", authMiddleware(http.HandlerFunc(deps.ReconciliationHandler.HandleLink)))
	mux.Handle("/api/reconciliation/unlink", authMiddleware(http.HandlerFunc(deps.ReconciliationHandler.HandleUnlink)))
	mux.Handle("/api/transactions/{id}/details", authMiddleware(http.HandlerFunc(deps.ReconciliationHandler.HandleDetails)))
	mux.Handle("/api/devices", authMiddleware(http.HandlerFunc(deps.NotificationHandler.HandleRegisterDevice)))
	if deps.DocumentHandler != nil {
		mux.Handle("/api/documents/{id}/ingest", authMiddleware(http.HandlerFunc(deps.DocumentHandler.HandleIngest)))
	}

	mws := []func(http.Handler) http.Handler{
		middleware.Logging(log),
		middleware.CORS(cfg.Server.AllowedHosts),
		middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
	}
	if cfg.Telemetry.Enabled {
		mws = append([]func(http.Handler) http.Handler{middleware.Telemetry(cfg.Telemetry.ServiceName), middleware.Tracing}, mws...)
	}
	if cfg.TLS.Enabled {
		mws = append(mws, middleware.RequireHTTPS(cfg.Server.AllowedHosts), middleware.HSTS)
		log.Info().Msg("TLS security middleware enabled")
	}

	return middleware.Chain(mux, mws...)
}
