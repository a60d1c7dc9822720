// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - Saved conversation output and export.
//
// Command: history
// Short:   Print or export the saved conversation
//
// Examples:
//   folio history
//   folio history --format markdown --output chat.md
//   folio history --format html --dir ~/Documents --open
//
// Flags:
//   --format FORMAT   text, markdown, html or json (default: text)
//   --output FILE     Write to FILE instead of stdout
//   --dir DIR         Write to DIR with a generated file name
//   --open            Open the written file
//   --no-reasoning    Leave out the reasoning channel

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/folio/internal/export"
)

type historyOptions struct {
	format      string
	output      string
	dir         string
	open        bool
	noReasoning bool
}

func newHistoryCommand(root *rootOptions) *cobra.Command {
	opts := historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print or export the saved conversation",
		Example: `  folio history
  folio history --format markdown --output chat.md
  folio history --format html --dir ~/Documents --open`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "" && opts.dir != "" {
				return &UsageError{Reason: "--output and --dir cannot be used together"}
			}

			exportOpts := export.DefaultOptions()
			exportOpts.IncludeReasoning = !opts.noReasoning
			exportOpts.OpenAfterExport = opts.open
			if opts.dir != "" {
				exportOpts.OutputDir = opts.dir
			}

			exporter, err := export.ForFormat(opts.format, exportOpts)
			if err != nil {
				return &UsageError{Reason: err.Error()}
			}

			app, err := root.openApp(false)
			if err != nil {
				return err
			}
			defer app.Close()

			chatID := app.Session.ID()
			if chatID == "" {
				return &NotFoundError{Resource: "saved conversation"}
			}

			transcript, err := app.Client.FetchHistory(cmd.Context(), chatID)
			if err != nil {
				return NewCommandError("history", "restore", err)
			}

			conv := export.FromTranscript(chatID, transcript)
			out := cmd.OutOrStdout()

			switch {
			case opts.dir != "":
				path, err := export.ExportToFile(conv, exporter, exportOpts)
				if err != nil {
					return exportError(err)
				}
				fmt.Fprintf(out, "%s Saved to %s\n", RenderStatus("ok"), path)
				return nil

			case opts.output != "":
				data, err := exporter.Export(conv)
				if err != nil {
					return exportError(err)
				}
				if err := export.WriteFile(opts.output, data); err != nil {
					return NewCommandError("history", "write", err)
				}
				fmt.Fprintf(out, "%s Saved to %s\n", RenderStatus("ok"), opts.output)
				return nil
			}

			data, err := exporter.Export(conv)
			if err != nil {
				return exportError(err)
			}
			_, err = out.Write(data)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.format, "format", "text", "output format: text, markdown, html, json")
	flags.StringVarP(&opts.output, "output", "o", "", "write to file instead of stdout")
	flags.StringVar(&opts.dir, "dir", "", "write to directory with a generated file name")
	flags.BoolVar(&opts.open, "open", false, "open the written file")
	flags.BoolVar(&opts.noReasoning, "no-reasoning", false, "leave out the assistant's reasoning")

	return cmd
}

func exportError(err error) error {
	if errors.Is(err, export.ErrEmptyConversation) {
		return &NotFoundError{Resource: "messages in the saved conversation"}
	}
	return NewCommandError("history", "export", err)
}
