// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// clear.go - Forget the saved conversation.
//
// Command: clear
// Short:   Forget the saved conversation
//
// Flags:
//   -y, --yes   Skip the confirmation prompt

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/folio/internal/chat"
)

func newClearCommand(root *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the saved conversation",
		Long: `Forget the saved conversation so the next chat starts fresh.

The conversation stays on the server; only the local session id is removed.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := root.openApp(false)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			if !app.Session.HasID() {
				fmt.Fprintln(out, "No saved conversation.")
				return nil
			}

			var confirmErr error
			confirm := chat.ConfirmFunc(func(prompt string) bool {
				ok, err := RequireConfirmation(cmd.InOrStdin(), out, prompt, ConfirmationOptions{Yes: yes})
				confirmErr = err
				return ok
			})

			machine := app.NewMachine()
			defer machine.Close()

			if !machine.Clear(confirm) {
				if confirmErr != nil {
					return confirmErr
				}
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}

			fmt.Fprintf(out, "%s Conversation cleared.\n", RenderStatus("ok"))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
