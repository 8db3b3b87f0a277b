package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"kesef/internal/shared/config"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Handler    http.Handler
	Addr       string
	TLSEnabled bool
	CertPath   string
	KeyPath    string
}

// StartServer creates the HTTP server and starts it in the background.
func StartServer(scfg ServerConfig, log zerolog.Logger) *http.Server {
	srv := &http.Server{
		Addr:         scfg.Addr,
		Handler:      scfg.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		var err error
		if scfg.TLSEnabled {
			log.Info().Str("addr", scfg.Addr).Msg("HTTPS server starting")
			err = srv.ListenAndServeTLS(scfg.CertPath, scfg.KeyPath)
		} else {
			log.Info().Str("addr", scfg.Addr).Msg("HTTP server starting")
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	return srv
}

// GracefulShutdown stops accepting requests, then drains background work.
func GracefulShutdown(srv *http.Server, deps *Dependencies, timeout time.Duration, log zerolog.Logger) {
	log.Info().Msg("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error shutting down HTTP server")
	}

	deps.Stop(timeout)

	log.Info().Msg("server stopped")
}

// NewServerConfigFromConfig creates ServerConfig from application config.
func NewServerConfigFromConfig(handler http.Handler, cfg *config.Config) ServerConfig {
	return ServerConfig{
		Handler:    handler,
		Addr:       cfg.Server.Host + ":" + cfg.Server.Port,
		TLSEnabled: cfg.TLS.Enabled,
		CertPath:   cfg.TLS.CertPath,
		KeyPath:    cfg.TLS.KeyPath,
	}
}
