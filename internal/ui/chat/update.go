// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	convo "github.com/jeranaias/folio/internal/chat"
	"github.com/jeranaias/folio/internal/export"
	"github.com/jeranaias/folio/internal/logging"
)

// flashDuration is how long transient status messages stay visible.
const flashDuration = 4 * time.Second

// =============================================================================
// UPDATE
// =============================================================================

// Update handles a Bubble Tea message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateMsg:
		m.applyState(msg.State)
		return m, nil

	case InitDoneMsg:
		m.initializing = false
		m.applyState(m.machine.Snapshot())
		if msg.Err != nil {
			logging.Debug("tui_init_notice", "error", msg.Err)
		}
		return m, nil

	case SendDoneMsg:
		m.applyState(m.machine.Snapshot())
		return m, m.sendResult(msg.Err)

	case ClearDoneMsg:
		m.applyState(m.machine.Snapshot())
		if msg.Cleared {
			return m, m.setFlash("Conversation cleared.", false)
		}
		return m, nil

	case ExportDoneMsg:
		if msg.Err != nil {
			if errors.Is(msg.Err, export.ErrEmptyConversation) {
				return m, m.setFlash("Nothing to export yet.", true)
			}
			return m, m.setFlash(fmt.Sprintf("Export failed: %v", msg.Err), true)
		}
		return m, m.setFlash("Saved "+msg.Path, false)

	case flashExpiredMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
			m.flashIsError = false
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.Sending || m.initializing {
			m.refreshContent(false)
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// =============================================================================
// KEYBOARD
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirming {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.confirming = false
			return m, m.clearCmd()
		case key.Matches(msg, m.keys.Deny):
			m.confirming = false
			return m, m.setFlash("Cancelled.", false)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.state.Sending && msg.String() == "ctrl+c" {
			return m, m.cancelCmd()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.state.Sending {
			return m, m.cancelCmd()
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Reasoning):
		if id, ok := m.reasoningTarget(); ok {
			return m, m.toggleCmd(id)
		}
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if m.state.Sending || (m.state.IsEmpty() && m.state.SessionID == "") {
			return m, nil
		}
		m.confirming = true
		return m, nil

	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input, or the suggestion it numbers.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || !m.state.CanSend() {
		return m, nil
	}
	if m.state.IsEmpty() {
		if picked, ok := suggestionAt(m.state.Suggestions, text); ok {
			text = picked
		}
	}
	m.input.Reset()
	m.viewport.GotoBottom()
	return m, m.submitCmd(text)
}

// reasoningTarget is the newest assistant message that has reasoning.
func (m Model) reasoningTarget() (string, bool) {
	for i := len(m.state.Messages) - 1; i >= 0; i-- {
		msg := m.state.Messages[i]
		if msg.HasReasoning() {
			return msg.ID, true
		}
	}
	return "", false
}

// sendResult turns a Submit error into a status message.
func (m *Model) sendResult(err error) tea.Cmd {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return m.setFlash("Stopped.", false)
	case errors.Is(err, convo.ErrClosed):
		return tea.Quit
	case errors.Is(err, convo.ErrBusy), errors.Is(err, convo.ErrEmptyMessage):
		return nil
	case errors.Is(err, convo.ErrSendDisabled):
		return m.setFlash("Sending is disabled while the assistant is offline.", true)
	default:
		logging.Warn("tui_send_failed", "error", err)
		return nil
	}
}

// setFlash shows a transient status message.
func (m *Model) setFlash(text string, isError bool) tea.Cmd {
	m.flashSeq++
	m.flash = text
	m.flashIsError = isError
	seq := m.flashSeq
	return tea.Tick(flashDuration, func(time.Time) tea.Msg {
		return flashExpiredMsg{seq: seq}
	})
}

// =============================================================================
// STATE AND LAYOUT
// =============================================================================

// applyState adopts snapshot unless a newer one was already applied.
func (m *Model) applyState(snapshot convo.State) {
	if snapshot.Version < m.state.Version {
		return
	}
	follow := m.viewport.AtBottom() || snapshot.Sending
	m.state = snapshot
	m.pruneCache()
	m.refreshContent(follow)
}

// pruneCache drops rendered bodies for messages that no longer exist.
func (m *Model) pruneCache() {
	if len(m.cache) <= len(m.state.Messages) {
		return
	}
	live := make(map[string]bool, len(m.state.Messages))
	for _, msg := range m.state.Messages {
		live[msg.ID] = true
	}
	for id := range m.cache {
		if !live[id] {
			delete(m.cache, id)
		}
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	m.input.SetWidth(max(width-inputChrome-2, minBodyWidth))

	bodyHeight := height - headerHeight - statusHeight - inputHeight - inputChrome
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	m.viewport.Width = width
	m.viewport.Height = bodyHeight
	m.ready = true

	m.ensureRenderer()
	m.refreshContent(true)
}

// refreshContent re-renders the transcript into the viewport.
func (m *Model) refreshContent(follow bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	if follow {
		m.viewport.GotoBottom()
	}
}
