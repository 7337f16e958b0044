// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

/*
Package supervisor provides process supervision for ThreatLens using suture v4.

The supervisor tree organizes services into three layers for failure isolation:

	RootSupervisor ("threatlens")
	├── IngestSupervisor ("ingest-layer")
	│   └── ingest.Controller, or services.TickerService without a live stream
	├── MessagingSupervisor ("messaging-layer")
	│   ├── websocket.Hub
	│   └── eventprocessor.Publisher (if PUBLISH_ENABLED)
	└── APISupervisor ("api-layer")
	    └── services.HTTPServerService

The ingestion controller's reconnect loop never gives up on its own; a
supervised restart only happens if it returns an unexpected error. Canceling
the root context stops everything.

Supervisor events (restarts, backoff, timeouts) are logged through sutureslog
into the zerolog-backed slog handler from internal/logging.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddIngestService(controller)
	tree.AddMessagingService(hub)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = tree.Serve(ctx)
*/
package supervisor
