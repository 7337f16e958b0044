// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

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

	"github.com/spf13/cobra"

	"github.com/tomtom215/threatlens/internal/api"
	"github.com/tomtom215/threatlens/internal/config"
	"github.com/tomtom215/threatlens/internal/detection"
	"github.com/tomtom215/threatlens/internal/eventprocessor"
	"github.com/tomtom215/threatlens/internal/ingest"
	"github.com/tomtom215/threatlens/internal/logging"
	"github.com/tomtom215/threatlens/internal/state"
	"github.com/tomtom215/threatlens/internal/supervisor"
	"github.com/tomtom215/threatlens/internal/supervisor/services"
	"github.com/tomtom215/threatlens/internal/synthesis"
	ws "github.com/tomtom215/threatlens/internal/websocket"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Ingest the live stream and serve the HTTP API (default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// loadConfig applies the --config flag and loads the layered configuration.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		if err := os.Setenv(config.ConfigPathEnvVar, configPath); err != nil {
			return nil, fmt.Errorf("set %s: %w", config.ConfigPathEnvVar, err)
		}
	}
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newEngine builds the store, synthesizer and engine from configuration.
func newEngine(cfg *config.Config) *detection.Engine {
	store := state.New(cfg.StateConfig())
	synth := synthesis.New(cfg.SynthesizerConfig())
	return detection.NewEngine(cfg.EngineConfig(), store, synth)
}

// newSource returns the configured stream transport, or nil when no live
// stream is configured.
func newSource(cfg *config.Config) ingest.Source {
	switch cfg.Ingest.Source {
	case config.SourceWebSocket:
		return ingest.NewWebSocketSource(cfg.WebSocketConfig())
	case config.SourceNATS:
		return ingest.NewNATSSource(cfg.NATSConfig())
	default:
		return nil
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logging.Init(cfg.LoggerConfig())

	logging.Info().
		Str("version", version).
		Str("source", cfg.Ingest.Source).
		Dur("staleness_threshold", cfg.StalenessThreshold()).
		Msg("Starting ThreatLens with supervisor tree")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create supervisor tree: %w", err)
	}

	engine := newEngine(cfg)

	wsHub := ws.NewHub(cfg.HubConfig())
	engine.SetBroadcaster(wsHub)
	tree.AddMessagingService(wsHub)

	handlerOpts := []api.HandlerOption{
		api.WithHub(wsHub),
		api.WithVersion(version),
	}

	if cfg.Publish.Enabled {
		publisher, pubErr := eventprocessor.NewPublisher(cfg.PublisherConfig(), logging.NewWatermillLogger())
		if pubErr != nil {
			return fmt.Errorf("failed to create event publisher: %w", pubErr)
		}
		defer func() {
			if closeErr := publisher.Close(); closeErr != nil {
				logging.Error().Err(closeErr).Msg("Error closing event publisher")
			}
		}()
		engine.SetPublisher(publisher)
		tree.AddMessagingService(publisher)
		handlerOpts = append(handlerOpts, api.WithPublisher(publisher))
		logging.Info().
			Str("backend", cfg.Publish.Backend).
			Str("topic", cfg.Publish.Topic).
			Msg("Event publisher added to supervisor tree")
	}

	if src := newSource(cfg); src != nil {
		controller := ingest.NewController(cfg.ControllerConfig(), src, engine)
		controller.SetBroadcaster(wsHub)
		tree.AddIngestService(controller)
		handlerOpts = append(handlerOpts, api.WithConnection(controller))
		logging.Info().Str("transport", src.Name()).Msg("Ingestion controller added to supervisor tree")
	} else {
		tree.AddIngestService(services.NewTickerService(engine, cfg.Ingest.TickInterval))
		logging.Warn().Msg("No live stream configured (INGEST_SOURCE=none); serving empty state")
	}

	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (RATE_LIMIT_DISABLED=true)")
	}
	for _, origin := range cfg.Server.CORSOrigins {
		if origin == "*" {
			logging.Warn().Msg("CORS is configured with wildcard origin (CORS_ORIGINS=*)")
			break
		}
	}

	mwConfig := api.DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwConfig.RateLimitDisabled = cfg.Server.RateLimitDisabled
	if cfg.Server.RateLimitReqs > 0 {
		mwConfig.RateLimitRequests = cfg.Server.RateLimitReqs
	}
	if cfg.Server.RateLimitWindow > 0 {
		mwConfig.RateLimitWindow = cfg.Server.RateLimitWindow
	}

	handler := api.NewHandler(engine, handlerOpts...)
	router := api.NewRouter(handler, mwConfig)

	// WriteTimeout stays zero: /api/v1/ws connections are long-lived.
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// errCh delivers exactly one value and is never closed.
	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("ThreatLens stopped gracefully")
	return nil
}
