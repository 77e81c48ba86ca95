package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/eshopco/latencymetrics/server/internal/api"
	"github.com/eshopco/latencymetrics/server/internal/config"
	"github.com/eshopco/latencymetrics/server/internal/logging"
	"github.com/eshopco/latencymetrics/server/internal/telemetry"
	"github.com/eshopco/latencymetrics/server/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file; built-in defaults when empty")
	dataPath := flag.String("data", "", "telemetry dataset path; overrides server.telemetry.path")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *dataPath != "" {
		cfg.Server.Telemetry.Path = *dataPath
	}

	logCloser := logging.Init(cfg.Server.Logging)
	defer logCloser.Close()

	log.Info().
		Str("config", *configPath).
		Int("http_port", cfg.Server.HTTPPort).
		Str("telemetry", cfg.Server.Telemetry.Path).
		Str("allow_origin", cfg.Server.CORS.AllowOrigin).
		Msg("latency-server starting")

	// The dataset is loaded in full before anything listens; a malformed
	// source stops the process here.
	st, err := telemetry.Load(cfg.Server.Telemetry.Path, telemetry.LoadOptions{
		Required: cfg.Server.Telemetry.Required,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to load telemetry")
		logCloser.Close()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// WebSocket feed: re-sends every client's subscription each interval.
	hub := ws.New(st, cfg.Server.Stream.Interval)
	go hub.Run(ctx)

	handler := api.New(st, api.Options{
		ServiceName:        cfg.Server.ServiceName,
		AllowOrigin:        cfg.Server.CORS.AllowOrigin,
		DefaultThresholdMs: cfg.Server.Metrics.DefaultThresholdMs,
		Stream:             hub,
	})

	// Hot reload applies the log level only; the dataset stays fixed.
	if *configPath != "" {
		go func() {
			if err := config.WatchLogLevel(ctx, *configPath, logging.SetLevel); err != nil {
				log.Error().Err(err).Msg("config watcher stopped")
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Int("port", cfg.Server.HTTPPort).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server stopped")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("latency-server shutting down")

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
