// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	convo "github.com/jeranaias/folio/internal/chat"
	"github.com/jeranaias/folio/internal/export"
	"github.com/jeranaias/folio/internal/logging"
	"github.com/jeranaias/folio/internal/markdown"
	"github.com/jeranaias/folio/internal/ui/styles"
)

// =============================================================================
// CONFIG
// =============================================================================

// Config controls the chat view.
type Config struct {
	// Style is the glamour style ("auto", "dark", "light", "notty", "ascii").
	Style string

	// WordWrap caps the width of rendered messages. Zero follows the window.
	WordWrap int

	// MaxFPS caps redraws while a reply is streaming.
	MaxFPS int

	// ExportDir is where Ctrl+S writes Markdown exports.
	ExportDir string
}

// =============================================================================
// MODEL
// =============================================================================

// Layout constants.
const (
	headerHeight = 1
	statusHeight = 1
	inputHeight  = 3
	inputChrome  = 2
	minBodyWidth = 20
)

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// Conversation
	ctx     context.Context
	machine *convo.Machine
	state   convo.State

	// Configuration
	cfg   Config
	theme *styles.Theme
	keys  KeyMap

	// Widgets
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model

	// Rendering
	renderer *markdown.TerminalRenderer
	style    string
	cache    map[string]renderedBody

	// Layout
	width  int
	height int
	ready  bool

	// Interaction state
	initializing bool
	confirming   bool
	flash        string
	flashIsError bool
	flashSeq     int
}

// renderedBody caches the glamour output for one message body.
type renderedBody struct {
	raw   string
	width int
	out   string
}

// New creates a chat view over machine. ctx bounds startup and sends.
func New(ctx context.Context, machine *convo.Machine, cfg Config) Model {
	theme := styles.NewTheme()

	input := textarea.New()
	input.Placeholder = "Ask about the portfolio..."
	input.ShowLineNumbers = false
	input.Prompt = ""
	input.CharLimit = 0
	input.SetHeight(inputHeight)
	input.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = theme.Spinner

	if cfg.ExportDir == "" {
		cfg.ExportDir = "."
	}

	return Model{
		ctx:          ctx,
		machine:      machine,
		state:        machine.Snapshot(),
		cfg:          cfg,
		theme:        theme,
		keys:         DefaultKeyMap(),
		viewport:     viewport.New(0, 0),
		input:        input,
		spinner:      spin,
		help:         help.New(),
		style:        resolveStyle(cfg.Style, theme.IsDark),
		cache:        make(map[string]renderedBody),
		initializing: true,
	}
}

// Init starts the cursor blink, the spinner and the machine's startup.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.initCmd())
}

// State returns the snapshot the view last rendered.
func (m Model) State() convo.State {
	return m.state
}

// =============================================================================
// RUN
// =============================================================================

// Run shows the chat view until the user quits.
func Run(ctx context.Context, machine *convo.Machine, cfg Config) error {
	relay := NewRelay(cfg.MaxFPS)
	defer relay.Close()

	program := tea.NewProgram(New(ctx, machine, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	relay.Attach(machine, program.Send)

	_, err := program.Run()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) initCmd() tea.Cmd {
	machine, ctx := m.machine, m.ctx
	return func() tea.Msg {
		return InitDoneMsg{Err: machine.Initialize(ctx)}
	}
}

func (m Model) submitCmd(text string) tea.Cmd {
	machine, ctx := m.machine, m.ctx
	return func() tea.Msg {
		return SendDoneMsg{Err: machine.Submit(ctx, text)}
	}
}

func (m Model) cancelCmd() tea.Cmd {
	machine := m.machine
	return func() tea.Msg {
		machine.CancelSend()
		return nil
	}
}

func (m Model) toggleCmd(id string) tea.Cmd {
	machine := m.machine
	return func() tea.Msg {
		machine.ToggleReasoning(id)
		return nil
	}
}

func (m Model) clearCmd() tea.Cmd {
	machine := m.machine
	return func() tea.Msg {
		cleared := machine.Clear(convo.ConfirmFunc(func(string) bool { return true }))
		return ClearDoneMsg{Cleared: cleared}
	}
}

func (m Model) exportCmd() tea.Cmd {
	state, dir := m.state, m.cfg.ExportDir
	return func() tea.Msg {
		conv := export.FromTranscript(state.SessionID, state.Messages)
		opts := export.DefaultOptions()
		opts.OutputDir = dir
		opts.OpenAfterExport = false
		exporter, err := export.ForFormat("markdown", opts)
		if err != nil {
			return ExportDoneMsg{Err: err}
		}
		path, err := export.ExportToFile(conv, exporter, opts)
		return ExportDoneMsg{Path: path, Err: err}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// resolveStyle maps "auto" onto a concrete glamour style. Glamour's own
// detection queries the terminal, which races with the running program.
func resolveStyle(style string, dark bool) string {
	style = strings.ToLower(strings.TrimSpace(style))
	if style != "" && style != markdown.StyleAuto {
		return style
	}
	if dark {
		return markdown.StyleDark
	}
	return markdown.StyleLight
}

// bodyWidth is the wrap width for message bodies.
func (m Model) bodyWidth() int {
	w := m.width - 4
	if m.cfg.WordWrap > 0 && m.cfg.WordWrap < w {
		w = m.cfg.WordWrap
	}
	if w < minBodyWidth {
		w = minBodyWidth
	}
	return w
}

// ensureRenderer recreates the glamour renderer when the wrap width changes.
func (m *Model) ensureRenderer() {
	width := m.bodyWidth()
	if m.renderer != nil && m.renderer.Width() == width {
		return
	}
	r, err := markdown.NewTerminalRenderer(m.style, width)
	if err != nil {
		logging.Warn("tui_renderer_failed", "style", m.style, "error", err)
		m.renderer = nil
		return
	}
	m.renderer = r
	m.cache = make(map[string]renderedBody)
}

// suggestionAt returns the suggestion numbered by input (1-based).
func suggestionAt(suggestions []string, input string) (string, bool) {
	n := 0
	for _, r := range input {
		if r < '0' || r > '9' {
			return "", false
		}
		n = n*10 + int(r-'0')
		if n > len(suggestions) {
			return "", false
		}
	}
	if n < 1 {
		return "", false
	}
	return suggestions[n-1], true
}
