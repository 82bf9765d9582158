package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classifieds-backend/internal/config"
	"classifieds-backend/internal/interfaces/router"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 30 * time.Second

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	app, err := router.CreateApp(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if sqlDB, err := app.DB.DB(); err == nil {
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
		log.Info().Msg("Postgres connected")
	}
	if app.Redis != nil {
		if err := app.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
		log.Info().Msg("Redis connected")
	}

	app.Dispatcher.Start(ctx)
	app.Limiter.StartJanitor(ctx)
	go app.Moderation.RunExpirySweeper(ctx, cfg.ExpirySweepInterval)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Server running")
		log.Info().Str("url", "http://localhost:"+cfg.Port+"/health/json").Msg("Health check")
		errCh <- app.Fiber.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("Shutdown signal received, initiating graceful shutdown...")

	if err := app.Fiber.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	// Drain events published by in-flight requests before closing stores.
	app.Dispatcher.Stop()
	if app.Redis != nil {
		_ = app.Redis.Close()
	}
	if sqlDB, err := app.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
