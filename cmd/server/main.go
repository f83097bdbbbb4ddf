// Command server runs the contact intake HTTP API.
//
// @title       Contact Intake API
// @version     1.0
// @description Contact-form intake with file, MongoDB, S3 and SQLite storage backends.
// @BasePath    /api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-contact-intake/internal/config"
	"github.com/tbourn/go-contact-intake/internal/observability"
	"github.com/tbourn/go-contact-intake/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logCloser := sysutil.SetupLogger(sysutil.LoggerOptions{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		File:   cfg.LogFile,
	})
	defer logCloser.Close()

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		_ = logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion, cfg.Backend)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		_ = shutdownTracing(context.Background())
		return err
	}
	srv := a.server(cfg)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", appVersion).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http drain incomplete")
	}
	if err := a.close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("storage close failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracer flush failed")
	}
	log.Info().Msg("bye")
	return serveErr
}
