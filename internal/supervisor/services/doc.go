// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

/*
Package services provides suture.Service wrappers for components that do not
already implement Serve(ctx) themselves.

  - HTTPServerService translates http.Server's ListenAndServe/Shutdown into
    a context-aware Serve.
  - TickerService drives the detection engine's periodic aging when no
    ingestion controller is running to do it.

The hub, publisher and ingestion controller implement suture.Service directly
and are added to the tree without a wrapper.
*/
package services
