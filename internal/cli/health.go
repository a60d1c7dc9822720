// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// health.go - Backend health check command.
//
// Command: health
// Short:   Check whether the chat backend is up
//
// The exit status is 0 when healthy and 5 otherwise, so the command can be
// used from scripts.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// healthReport is the --json output of the health command.
type healthReport struct {
	Status    string `json:"status"`
	BaseURL   string `json:"base_url"`
	ChatID    string `json:"chat_id,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

func newHealthCommand(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check whether the chat backend is up",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := root.openApp(false)
			if err != nil {
				return err
			}
			defer app.Close()

			start := time.Now()
			healthy := app.Client.CheckHealth(cmd.Context())
			report := healthReport{
				Status:    "unhealthy",
				BaseURL:   app.Client.BaseURL(),
				ChatID:    app.Session.ID(),
				LatencyMs: time.Since(start).Milliseconds(),
			}
			if healthy {
				report.Status = "healthy"
			}

			if err := writeHealth(cmd.OutOrStdout(), report, jsonOutput); err != nil {
				return err
			}
			if !healthy {
				return &ExitError{Code: ExitNetworkError}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func writeHealth(w io.Writer, report healthReport, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(w, "%s %s (%dms)\n", RenderStatus(report.Status), report.BaseURL, report.LatencyMs)
	if report.ChatID != "" {
		fmt.Fprintf(w, "%s%s\n", RenderLabel("Session:"), report.ChatID)
	}
	return nil
}
