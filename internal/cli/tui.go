// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Full-screen chat view.
//
// Command: tui (also the default when folio runs without a subcommand)
// Short:   Chat in the full-screen terminal view
//
// When stdin or stdout is not a terminal the default command falls back to
// line mode; the explicit tui subcommand refuses instead.

package cli

import (
	"github.com/spf13/cobra"

	"github.com/jeranaias/folio/internal/logging"
	uichat "github.com/jeranaias/folio/internal/ui/chat"
)

func newTUICommand(root *rootOptions) *cobra.Command {
	var exportDir string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Chat in the full-screen terminal view",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := RequiresTTY(cmd.InOrStdin(), "open the full-screen view"); err != nil {
				return err
			}
			return startTUI(cmd, root, exportDir)
		},
	}

	cmd.Flags().StringVar(&exportDir, "export-dir", ".", "directory for Ctrl+S exports")
	return cmd
}

// runTUI is the root command: the full-screen view on a terminal, line mode
// otherwise.
func runTUI(cmd *cobra.Command, root *rootOptions) error {
	if !isTerminal(cmd.InOrStdin()) || !isTerminal(cmd.OutOrStdout()) {
		return runChat(cmd, root, true)
	}
	return startTUI(cmd, root, ".")
}

func startTUI(cmd *cobra.Command, root *rootOptions, exportDir string) error {
	app, err := root.openApp(true)
	if err != nil {
		return err
	}
	defer app.Close()

	machine := app.NewMachine()
	defer machine.Close()

	logging.Info("tui_started", "base_url", app.Client.BaseURL(), "has_session", app.Session.HasID())

	return uichat.Run(cmd.Context(), machine, uichat.Config{
		Style:     app.Config.UI.Style,
		WordWrap:  app.Config.UI.WordWrap,
		MaxFPS:    app.Config.UI.MaxFPS,
		ExportDir: exportDir,
	})
}
