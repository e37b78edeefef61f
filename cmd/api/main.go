package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcelsud/webhook-inspector/config"
	"github.com/marcelsud/webhook-inspector/internal/http/chi"
	"github.com/marcelsud/webhook-inspector/internal/logging"
	"github.com/marcelsud/webhook-inspector/internal/storage"
	"github.com/marcelsud/webhook-inspector/metrics"
	"github.com/marcelsud/webhook-inspector/webhook"
	"github.com/rs/zerolog/log"
)

/*
 * main wires config, logging, the record store, the service and the HTTP layer.
 * Imports go one way only: cmd -> internal/http -> webhook -> store
 */

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("webhook-inspector stopped")
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	repo, err := storage.Open(cfg)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.StoreDriver, err)
	}
	defer repo.Close(context.Background())
	log.Info().Str("store", cfg.StoreDriver).Msg("store ready")

	s := webhook.NewService(repo)

	opts := chi.Options{
		MaxBodyBytes:   cfg.CaptureMaxBodyBytes,
		TrustProxy:     cfg.TrustProxy,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}
	if cfg.MetricsEnabled {
		exporter, err := metrics.NewOTelExporter(metrics.NewStoreCollector(repo), nil)
		if err != nil {
			return fmt.Errorf("creating metrics exporter: %w", err)
		}
		defer exporter.Shutdown(context.Background())
		s.WithObserver(exporter)
		opts.Metrics = exporter.Handler()
	}

	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		Addr:              ":" + cfg.Port,
		Handler:           chi.Handlers(s, logger, opts),
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, cfg.ShutdownTimeout, errShutdown)
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("listening")
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-errShutdown
}

func shutdown(server *http.Server, ctxShutdown context.Context, timeout time.Duration, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), timeout)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		log.Info().Msg("shutting down server")
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("forcing server close after %s", timeout)
	default:
		errShutdown <- fmt.Errorf("forcing server close: %w", err)
	}
}
