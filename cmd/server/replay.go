// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/threatlens/internal/detection"
	"github.com/tomtom215/threatlens/internal/logging"
	"github.com/tomtom215/threatlens/internal/state"
)

// maxReplayLine bounds a single recorded frame.
const maxReplayLine = 4 << 20

var replayCmd = &cobra.Command{
	Use:   "replay <file.jsonl>",
	Short: "Feed recorded stream frames through the engine and print the summary",
	Long: "Replay reads one transport frame per line, routes every frame through\n" +
		"the same engine path as live ingestion and prints the resulting report\n" +
		"as JSON. Use \"-\" to read from stdin.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logging.Init(cfg.LoggerConfig())

		in := cmd.InOrStdin()
		if args[0] != "-" {
			f, openErr := os.Open(args[0])
			if openErr != nil {
				return fmt.Errorf("open replay file: %w", openErr)
			}
			defer func() { _ = f.Close() }()
			in = f
		}

		report, err := replay(cmd.Context(), newEngine(cfg), in, time.Now)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

// ReplayReport is the result of a replay run.
type ReplayReport struct {
	Lines    int            `json:"lines"`
	Outcomes map[string]int `json:"outcomes"`
	Summary  state.Summary  `json:"summary"`
}

// replay feeds every non-blank line of r to the engine in order. Malformed
// lines are counted, never fatal.
func replay(ctx context.Context, engine *detection.Engine, r io.Reader, now func() time.Time) (ReplayReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	report := ReplayReport{Outcomes: make(map[string]int)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxReplayLine)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		report.Lines++

		// Handle may retain the slice; Scanner reuses its buffer.
		frame := append([]byte(nil), line...)
		res, err := engine.Handle(ctx, frame, now())
		if err != nil {
			logging.Debug().Err(err).Int("line", report.Lines).Msg("Skipping replay frame")
		}
		report.Outcomes[res.Outcome.String()]++
	}
	if err := scanner.Err(); err != nil {
		return report, fmt.Errorf("read replay input: %w", err)
	}

	report.Summary = engine.Snapshot().Summary
	logging.Info().
		Int("lines", report.Lines).
		Int("events", report.Outcomes[detection.OutcomeEvent.String()]).
		Msg("Replay complete")
	return report, nil
}
