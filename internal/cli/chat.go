// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat command.
//
// Command: chat
// Short:   Chat in line mode
//
// Replies stream in as plain text. Arrow keys recall earlier input when
// stdin is a terminal; piped input is read line by line.
//
// Slash commands:
//   /help           Show commands
//   /clear          Start a new conversation
//   /reasoning      Show or hide the reasoning of the last reply
//   /history        Print the conversation so far
//   /save FILE      Export the conversation (format from the extension)
//   /quit, /exit    Leave

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/folio/internal/backend"
	"github.com/jeranaias/folio/internal/chat"
	"github.com/jeranaias/folio/internal/export"
	"github.com/jeranaias/folio/internal/model"
)

const chatPrompt = "you> "

func newChatCommand(root *rootOptions) *cobra.Command {
	var noReasoning bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in line mode",
		Long: `Chat in line mode. Replies stream in as plain text.

Type /help for the list of slash commands.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, root, !noReasoning)
		},
	}

	cmd.Flags().BoolVar(&noReasoning, "no-reasoning", false, "do not stream the assistant's reasoning")
	return cmd
}

// runChat runs a line-mode session on the command's streams.
func runChat(cmd *cobra.Command, root *rootOptions, showReasoning bool) error {
	app, err := root.openApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	session := &ChatSession{
		app:           app,
		machine:       app.NewMachine(),
		reader:        newLineReader(cmd.InOrStdin(), cmd.OutOrStdout()),
		out:           cmd.OutOrStdout(),
		showReasoning: showReasoning,
	}
	defer session.Close()

	return session.Run(cmd.Context())
}

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader reads one line of user input at a time.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// newLineReader uses liner on a terminal and a plain scanner otherwise.
func newLineReader(in io.Reader, out io.Writer) lineReader {
	if isTerminal(in) && isTerminal(out) {
		return newLinerReader()
	}
	return &scanReader{scanner: bufio.NewScanner(in)}
}

// linerReader provides input history and line editing.
type linerReader struct {
	line        *liner.State
	historyFile string
}

func newLinerReader() *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &linerReader{
		line:        line,
		historyFile: historyFilePath(),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return r
}

func historyFilePath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "folio_history")
	}
	return filepath.Join(dir, ".folio", "chat_history")
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (r *linerReader) Close() error {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	return r.line.Close()
}

// scanReader reads piped input without echoing prompts.
type scanReader struct {
	scanner *bufio.Scanner
}

func (r *scanReader) Prompt(string) (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scanReader) Close() error { return nil }

// =============================================================================
// CHAT SESSION
// =============================================================================

// ChatSession is one line-mode conversation.
type ChatSession struct {
	app           *App
	machine       *chat.Machine
	reader        lineReader
	out           io.Writer
	showReasoning bool
}

// Close releases the machine and the line reader.
func (c *ChatSession) Close() {
	c.machine.Close()
	c.reader.Close()
}

// Run initializes the conversation and reads input until /quit or EOF.
func (c *ChatSession) Run(ctx context.Context) error {
	c.printWelcome()

	if err := c.machine.Initialize(ctx); err != nil {
		printNotices(c.out, c.machine.Snapshot().Messages)
		if backend.IsUnhealthy(err) {
			return &ExitError{Code: ExitNetworkError}
		}
		fmt.Fprintln(c.out, RenderConditional(DimStyle, "Type /clear to start a new conversation."))
	}

	state := c.machine.Snapshot()
	if restored := visibleMessages(state.Messages); len(restored) > 0 {
		printTranscript(c.out, restored, false)
		fmt.Fprintln(c.out)
	}
	c.printSuggestions(state.Suggestions)

	// Ctrl+C during a reply interrupts only that reply
	base := context.WithoutCancel(ctx)

	for {
		line, err := c.reader.Prompt(chatPrompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		if err != nil {
			return NewCommandError("chat", "read input", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := c.handleSlashCommand(input); quit {
				return nil
			}
			continue
		}

		if suggestion, ok := pickSuggestion(c.machine.Snapshot().Suggestions, input); ok {
			fmt.Fprintln(c.out, RenderConditional(DimStyle, "> "+suggestion))
			input = suggestion
		}

		c.send(base, input)
	}
}

// send submits input and streams the reply.
func (c *ChatSession) send(ctx context.Context, input string) {
	if !c.machine.Snapshot().SendEnabled {
		fmt.Fprintln(c.out, RenderConditional(WarningStyle, "Sending is disabled. Type /clear to start a new conversation."))
		return
	}

	sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	printer := &streamPrinter{out: c.out, gap: true}
	if c.showReasoning {
		printer.reasoningOut = c.out
	}
	unsubscribe := c.machine.Subscribe(printer.Observe)
	defer unsubscribe()

	fmt.Fprintln(c.out, RenderConditional(AssistantStyle, model.SpeakerAssistant.DisplayName()+":"))
	err := c.machine.Submit(sendCtx, input)
	state := c.machine.Snapshot()
	if printer.Finish(state) {
		fmt.Fprintln(c.out)
	}

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(c.out, RenderConditional(DimStyle, "(interrupted)"))
	case errors.Is(err, chat.ErrBusy), errors.Is(err, chat.ErrSendDisabled), errors.Is(err, chat.ErrEmptyMessage):
		fmt.Fprintln(c.out, RenderConditional(WarningStyle, err.Error()))
	default:
		if last, ok := state.Messages.Last(); ok && last.Static {
			fmt.Fprintln(c.out, RenderConditional(WarningStyle, last.RawText))
		}
	}
	fmt.Fprintln(c.out)
}

// handleSlashCommand runs a slash command and reports whether to quit.
func (c *ChatSession) handleSlashCommand(input string) bool {
	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/exit", "/q":
		return true

	case "/help", "/?":
		c.printHelp()

	case "/clear":
		confirm := chat.ConfirmFunc(func(prompt string) bool {
			answer, err := c.reader.Prompt(prompt + " [y/N]: ")
			return err == nil && isYes(answer)
		})
		if c.machine.Clear(confirm) {
			fmt.Fprintln(c.out, RenderStatus("ok")+" Conversation cleared.")
			c.printSuggestions(c.machine.Snapshot().Suggestions)
		} else {
			fmt.Fprintln(c.out, "Cancelled.")
		}

	case "/reasoning":
		c.toggleReasoning()

	case "/history":
		msgs := c.machine.Snapshot().Messages
		if len(msgs) == 0 {
			fmt.Fprintln(c.out, "No messages yet.")
		} else {
			printTranscript(c.out, msgs, false)
		}

	case "/save":
		if len(args) != 1 {
			fmt.Fprintln(c.out, "Usage: /save FILE  (.txt, .md, .html or .json)")
			break
		}
		c.save(args[0])

	default:
		fmt.Fprintf(c.out, "Unknown command %s. Type /help for the list.\n", name)
	}
	return false
}

// toggleReasoning flips the reasoning panel of the last reply and prints it
// when it opens.
func (c *ChatSession) toggleReasoning() {
	last, ok := c.machine.Snapshot().Messages.LastAssistant()
	if !ok || !last.HasReasoning() {
		fmt.Fprintln(c.out, "The last reply has no reasoning.")
		return
	}
	if !c.machine.ToggleReasoning(last.ID) {
		return
	}

	msgs := c.machine.Snapshot().Messages
	if idx := msgs.IndexOf(last.ID); idx >= 0 && msgs[idx].ReasoningVisible {
		for _, line := range strings.Split(strings.TrimSpace(msgs[idx].ReasoningText), "\n") {
			fmt.Fprintln(c.out, RenderConditional(DimStyle, "  | "+line))
		}
		return
	}
	fmt.Fprintln(c.out, RenderConditional(DimStyle, "(reasoning hidden)"))
}

// save exports the conversation, picking the format from the extension.
func (c *ChatSession) save(path string) {
	state := c.machine.Snapshot()
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	exporter, err := export.ForFormat(format, nil)
	if err != nil {
		fmt.Fprintln(c.out, RenderConditional(ErrorStyle, err.Error()))
		return
	}
	data, err := exporter.Export(export.FromTranscript(state.SessionID, state.Messages))
	if err == nil {
		err = export.WriteFile(path, data)
	}
	if err != nil {
		fmt.Fprintln(c.out, RenderConditional(ErrorStyle, "Save failed: "+err.Error()))
		return
	}
	fmt.Fprintf(c.out, "%s Saved to %s\n", RenderStatus("ok"), path)
}

func (c *ChatSession) printWelcome() {
	fmt.Fprintln(c.out, RenderConditional(TitleStyle, "folio chat"))
	fmt.Fprintf(c.out, "%s%s\n", RenderLabel("Backend:"), c.app.Client.BaseURL())
	if id := c.app.Session.ID(); id != "" {
		fmt.Fprintf(c.out, "%s%s\n", RenderLabel("Session:"), id)
	}
	fmt.Fprintln(c.out, RenderConditional(DimStyle, "Type /help for commands, /quit to leave."))
	fmt.Fprintln(c.out)
}

func (c *ChatSession) printSuggestions(suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintln(c.out, "Try asking:")
	for i, s := range suggestions {
		fmt.Fprintf(c.out, "  %d. %s\n", i+1, s)
	}
	fmt.Fprintln(c.out)
}

func (c *ChatSession) printHelp() {
	fmt.Fprintln(c.out, `Commands:
  /help           Show this help
  /clear          Start a new conversation
  /reasoning      Show or hide the reasoning of the last reply
  /history        Print the conversation so far
  /save FILE      Export the conversation (.txt, .md, .html, .json)
  /quit           Leave`)
}

// =============================================================================
// HELPERS
// =============================================================================

// pickSuggestion maps a bare number onto the matching suggestion.
func pickSuggestion(suggestions []string, input string) (string, bool) {
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(suggestions) {
		return "", false
	}
	return suggestions[n-1], true
}

// visibleMessages drops client notices, which are printed separately.
func visibleMessages(transcript model.Transcript) model.Transcript {
	out := make(model.Transcript, 0, len(transcript))
	for _, msg := range transcript {
		if !msg.Static {
			out = append(out, msg)
		}
	}
	return out
}
