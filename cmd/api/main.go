package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kesef/internal/shared/config"
	"kesef/internal/shared/logger"
	"kesef/internal/shared/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log := logger.New()
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("application error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.SetLevel(cfg.Log.Level)
	log := logger.New()
	if cfg.Log.JSON {
		log = logger.NewWithWriter(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
		}, log)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(flushCtx); err != nil {
				log.Warn().Err(err).Msg("telemetry shutdown failed")
			}
		}()
	}

	deps, err := NewDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	deps.Start(ctx)

	handler := SetupRoutes(deps, cfg, log)
	srv := StartServer(NewServerConfigFromConfig(handler, cfg), log)

	<-ctx.Done()
	GracefulShutdown(srv, deps, shutdownTimeout, log)
	return nil
}
