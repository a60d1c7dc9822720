// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command.
//
// Command: ask [question]
// Short:   Ask a single question
//
// Examples:
//   folio ask "What projects have you worked on?"
//   folio ask --reasoning "Which technologies do you use most?"
//   folio ask --raw "How can I get in touch?" > answer.md
//
// Flags:
//   --reasoning   Also print the assistant's reasoning (to stderr)
//   --raw         Print Markdown as-is instead of rendering it

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/folio/internal/backend"
	"github.com/jeranaias/folio/internal/markdown"
)

type askOptions struct {
	reasoning bool
	raw       bool
}

func newAskCommand(root *rootOptions) *cobra.Command {
	opts := askOptions{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question",
		Long: `Ask a single question and print the answer.

The question continues the saved conversation, if there is one. On a
terminal the answer is rendered once complete; otherwise it is streamed
as plain Markdown while it arrives.`,
		Example: `  folio ask "What projects have you worked on?"
  folio ask --raw "How can I get in touch?" > answer.md`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := root.openApp(false)
			if err != nil {
				return err
			}
			defer app.Close()

			question := strings.Join(args, " ")
			return runAsk(cmd.Context(), app, question, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&opts.reasoning, "reasoning", false, "also print the assistant's reasoning to stderr")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "print Markdown without rendering it")

	return cmd
}

// runAsk initializes a conversation, sends question and prints the reply.
func runAsk(ctx context.Context, app *App, question string, opts askOptions, out, errOut io.Writer) error {
	if strings.TrimSpace(question) == "" {
		return &UsageError{Reason: "question must not be empty"}
	}

	machine := app.NewMachine()
	defer machine.Close()

	if err := machine.Initialize(ctx); err != nil {
		printNotices(errOut, machine.Snapshot().Messages)
		if backend.IsUnhealthy(err) {
			return &ExitError{Code: ExitNetworkError}
		}
		return NewCommandError("ask", "restore conversation", err)
	}

	render := !opts.raw && isTerminal(out)

	printer := &streamPrinter{out: out}
	if render {
		printer.out = io.Discard
	}
	if opts.reasoning {
		printer.reasoningOut = errOut
	}
	unsubscribe := machine.Subscribe(printer.Observe)
	defer unsubscribe()

	if render && isTerminal(errOut) {
		fmt.Fprint(errOut, RenderConditional(DimStyle, "Thinking..."))
	}

	sendErr := machine.Submit(ctx, question)
	final := machine.Snapshot()
	printed := printer.Finish(final)

	if render && isTerminal(errOut) {
		fmt.Fprint(errOut, "\r\033[K")
	}
	if opts.reasoning && printed {
		fmt.Fprintln(errOut)
	}

	if sendErr != nil {
		if printed && !render {
			fmt.Fprintln(out)
		}
		printNotices(errOut, final.Messages)
		return NewCommandError("ask", "send", sendErr)
	}

	reply, ok := final.Messages.LastAssistant()
	if !ok || reply.RawText == "" {
		return nil
	}

	if render {
		fmt.Fprintln(out, renderTerminal(app, reply.RawText, out))
		return nil
	}
	fmt.Fprintln(out)
	return nil
}

// renderTerminal renders Markdown with glamour, falling back to the raw text.
func renderTerminal(app *App, text string, out io.Writer) string {
	width := app.Config.UI.WordWrap
	if width <= 0 {
		width = GetTerminalWidth(out) - 2
	}
	renderer, err := markdown.NewTerminalRenderer(app.Config.UI.Style, width)
	if err != nil {
		return text
	}
	rendered, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return rendered
}
