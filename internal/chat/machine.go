// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/folio/internal/backend"
	"github.com/jeranaias/folio/internal/logging"
	"github.com/jeranaias/folio/internal/markdown"
	"github.com/jeranaias/folio/internal/model"
	"github.com/jeranaias/folio/internal/session"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Transport is the subset of the backend client the machine uses.
type Transport interface {
	CheckHealth(ctx context.Context) bool
	FetchHistory(ctx context.Context, sessionID string) (model.Transcript, error)
	StreamSend(ctx context.Context, text string) (*backend.Stream, error)
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

// =============================================================================
// MACHINE
// =============================================================================

// Machine is the conversation state machine. It is safe for concurrent use.
type Machine struct {
	transport Transport
	session   *session.Session
	renderer  markdown.Renderer
	opts      Options

	mu          sync.Mutex
	state       State
	initialized bool
	closed      bool
	cancelSend  context.CancelFunc
	timers      map[string]*time.Timer

	// Observers
	subMu     sync.Mutex
	subs      map[int]func(State)
	nextSubID int

	notifyMu  sync.Mutex
	delivered uint64
}

// NewMachine creates a machine. Sending stays disabled until Initialize
// has checked the backend. A nil renderer leaves text unrendered; a nil
// session creates an ephemeral one.
func NewMachine(transport Transport, sess *session.Session, renderer markdown.Renderer, opts Options) *Machine {
	if sess == nil {
		sess = session.NewEphemeral()
	}
	opts = opts.withDefaults()

	return &Machine{
		transport: transport,
		session:   sess,
		renderer:  markdown.Fallback(renderer),
		opts:      opts,
		state: State{
			Messages:     model.Transcript{},
			Availability: model.AvailabilityUnknown,
			Suggestions:  opts.Suggestions,
			SessionID:    sess.ID(),
		},
		timers: make(map[string]*time.Timer),
		subs:   make(map[int]func(State)),
	}
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Options returns the effective options.
func (m *Machine) Options() Options {
	return m.opts
}

// =============================================================================
// INITIALIZE
// =============================================================================

// Initialize runs the startup sequence once.
//
// An unhealthy backend disables sending and leaves a single notice. A healthy
// backend with a known session restores its history; if that fails sending
// is disabled and a notice appended. Without a session the conversation
// starts empty with sending enabled.
//
// The returned error describes a soft failure that is already reflected in
// the state, or ErrAlreadyInitialized on a second call.
func (m *Machine) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.initialized {
		m.mu.Unlock()
		return ErrAlreadyInitialized
	}
	m.initialized = true
	m.mu.Unlock()

	if !m.transport.CheckHealth(ctx) {
		notice := m.staticMessage(m.opts.UnavailableMessage)
		m.update(func(s *State) {
			s.Messages = model.Transcript{notice}
			s.SendEnabled = false
			s.Availability = model.AvailabilityUnhealthy
			s.Suggestions = nil
		})
		logging.Warn("backend_unhealthy")
		return backend.ErrUnhealthy
	}

	sessionID := m.session.ID()
	if sessionID == "" {
		m.update(func(s *State) {
			s.SendEnabled = true
			s.Availability = model.AvailabilityHealthy
		})
		logging.Debug("chat_initialized", "restored", false)
		return nil
	}

	transcript, err := m.transport.FetchHistory(ctx, sessionID)
	if err != nil {
		notice := m.staticMessage(m.opts.HistoryErrorMessage)
		m.update(func(s *State) {
			s.Messages = append(s.Messages.Clone(), notice)
			s.SendEnabled = false
			s.Availability = model.AvailabilityHealthy
			s.SessionID = sessionID
			s.Suggestions = nil
		})
		logging.Warn("history_restore_failed", "chat_id", sessionID, "error", err)
		return fmt.Errorf("failed to restore history: %w", err)
	}

	restored := make(model.Transcript, 0, len(transcript))
	for _, msg := range transcript {
		msg.ReasoningVisible = false
		msg.RenderedHTML = m.render(msg.RawText)
		if msg.HasReasoning() {
			msg.RenderedReasoningHTML = m.render(msg.ReasoningText)
		}
		restored = append(restored, msg)
	}

	m.update(func(s *State) {
		s.Messages = restored
		s.SendEnabled = true
		s.Availability = model.AvailabilityHealthy
		s.SessionID = sessionID
		if len(restored) > 0 {
			s.Suggestions = nil
		}
	})
	logging.Info("history_restored", "chat_id", sessionID, "messages", len(restored))
	return nil
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit sends text and streams the reply into the transcript. It blocks
// until the stream ends.
//
// Blank text returns ErrEmptyMessage, a send already in flight returns
// ErrBusy and a disabled conversation returns ErrSendDisabled; none of these
// change the state. A backend failure leaves a notice in the transcript,
// disables sending and is returned. Cancelling ctx, CancelSend or Close keep
// the partial reply and return the context error.
func (m *Machine) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	user := model.NewUserMessage(text)
	reply := model.NewAssistantPlaceholder()
	sendCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Check-and-set under one lock so two submits cannot both pass
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return ErrClosed
	case m.state.Sending:
		m.mu.Unlock()
		return ErrBusy
	case !m.state.SendEnabled:
		m.mu.Unlock()
		return ErrSendDisabled
	}
	m.cancelSend = cancel
	snapshot := m.commitLocked(func(s *State) {
		s.Messages = append(s.Messages.Clone(), user, reply)
		s.Sending = true
		s.Suggestions = nil
	})
	m.mu.Unlock()
	m.notify(snapshot)

	rendered := m.render(text)
	m.updateMessage(user.ID, func(msg *model.Message) {
		msg.RenderedHTML = rendered
	})

	err := m.consume(sendCtx, text, reply.ID)

	m.mu.Lock()
	m.cancelSend = nil
	m.mu.Unlock()

	switch {
	case err == nil:
		m.update(func(s *State) { s.Sending = false })
		m.scheduleCollapse(reply.ID)
		return nil

	case sendCtx.Err() != nil:
		m.update(func(s *State) {
			s.Sending = false
			// A reply cancelled before its first chunk leaves nothing to show
			if i := s.Messages.IndexOf(reply.ID); i >= 0 && s.Messages[i].IsEmpty() {
				msgs := s.Messages.Clone()
				s.Messages = append(msgs[:i], msgs[i+1:]...)
			}
		})
		logging.Info("send_cancelled", "message_id", reply.ID)
		return sendCtx.Err()

	default:
		m.failSend(reply.ID)
		logging.Warn("send_failed", "message_id", reply.ID, "error", err)
		return err
	}
}

// consume streams the reply into the message identified by replyID.
func (m *Machine) consume(ctx context.Context, text, replyID string) error {
	stream, err := m.transport.StreamSend(ctx, text)
	if err != nil {
		return err
	}
	defer stream.Close()

	visible := 0
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			logging.Debug("stream_finished", "message_id", replyID, "visible_chunks", visible)
			return nil
		}
		if err != nil {
			return err
		}
		if chunk.IsVisible() {
			visible++
		}
		m.applyChunk(replyID, chunk)
	}
}

// applyChunk folds one chunk into the transcript as a single commit.
func (m *Machine) applyChunk(replyID string, chunk backend.Chunk) {
	switch chunk.Kind {
	case backend.KindAnswer:
		msg, ok := m.message(replyID)
		if !ok {
			return
		}
		raw := msg.RawText + chunk.Text
		rendered := m.render(raw)
		m.updateMessage(replyID, func(msg *model.Message) {
			msg.RawText = raw
			msg.RenderedHTML = rendered
		})

	case backend.KindReasoning:
		msg, ok := m.message(replyID)
		if !ok {
			return
		}
		reasoning := msg.ReasoningText + chunk.Text
		rendered := m.render(reasoning)
		m.updateMessage(replyID, func(msg *model.Message) {
			msg.ReasoningText = reasoning
			msg.RenderedReasoningHTML = rendered
		})

	case backend.KindSession:
		m.update(func(s *State) { s.SessionID = chunk.Text })
		logging.Info("session_assigned", "chat_id", chunk.Text)

	case backend.KindOther:
		logging.Debug("stream_other_chunk", "text", chunk.Text)
	}
}

// failSend shows the backend-down notice and disables sending. An empty
// reply becomes the notice, keeping any reasoning it received; otherwise the
// notice is appended after the partial answer.
func (m *Machine) failSend(replyID string) {
	notice := m.staticMessage(m.opts.BackendDownMessage)
	m.update(func(s *State) {
		msgs := s.Messages.Clone()
		if idx := msgs.IndexOf(replyID); idx >= 0 && msgs[idx].RawText == "" {
			msgs[idx].RawText = notice.RawText
			msgs[idx].RenderedHTML = notice.RenderedHTML
			msgs[idx].Static = true
		} else {
			msgs = append(msgs, notice)
		}
		s.Messages = msgs
		s.Sending = false
		s.SendEnabled = false
		s.Availability = model.AvailabilityUnhealthy
	})
}

// CancelSend aborts the send in flight, if any.
func (m *Machine) CancelSend() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelSend == nil {
		return false
	}
	m.cancelSend()
	return true
}

// =============================================================================
// REASONING VISIBILITY
// =============================================================================

// ToggleReasoning flips the reasoning panel of the identified message and
// cancels its pending auto-collapse. It reports whether the message exists.
func (m *Machine) ToggleReasoning(id string) bool {
	m.stopCollapse(id)
	return m.updateMessage(id, func(msg *model.Message) {
		msg.ReasoningVisible = !msg.ReasoningVisible
	})
}

func (m *Machine) scheduleCollapse(id string) {
	if m.opts.CollapseDelay < 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if t, ok := m.timers[id]; ok {
		t.Stop()
	}
	m.timers[id] = time.AfterFunc(m.opts.CollapseDelay, func() {
		m.collapse(id)
	})
}

func (m *Machine) stopCollapse(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
}

func (m *Machine) collapse(id string) {
	m.mu.Lock()
	delete(m.timers, id)
	idx := m.state.Messages.IndexOf(id)
	if m.closed || idx < 0 {
		m.mu.Unlock()
		return
	}
	msg := m.state.Messages[idx]
	if !msg.ReasoningVisible || !msg.HasReasoning() {
		m.mu.Unlock()
		return
	}
	snapshot := m.commitLocked(func(s *State) {
		msgs := s.Messages.Clone()
		msgs[idx].ReasoningVisible = false
		s.Messages = msgs
	})
	m.mu.Unlock()
	m.notify(snapshot)
}

// =============================================================================
// CLEAR
// =============================================================================

// Clear discards the conversation after confirm agrees: the persisted
// session id is removed, the transcript emptied, sending re-enabled and the
// suggestions restored. It is refused while a send is in flight and reports
// whether anything was cleared.
func (m *Machine) Clear(confirm Confirmer) bool {
	if m.Snapshot().Sending {
		return false
	}
	if confirm == nil || !confirm.Confirm(ClearPrompt) {
		return false
	}

	m.mu.Lock()
	if m.state.Sending || m.closed {
		m.mu.Unlock()
		return false
	}
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	snapshot := m.commitLocked(func(s *State) {
		s.Messages = model.Transcript{}
		s.SendEnabled = true
		s.Availability = model.AvailabilityUnknown
		s.Suggestions = m.opts.Suggestions
		s.SessionID = ""
	})
	m.mu.Unlock()

	if err := m.session.Clear(); err != nil {
		logging.Warn("session_clear_failed", "error", err)
	}
	m.notify(snapshot)
	logging.Info("conversation_cleared")
	return true
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Close cancels any send in flight and stops pending timers. Further
// Submit and Initialize calls return ErrClosed.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	if m.cancelSend != nil {
		m.cancelSend()
	}
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}

// =============================================================================
// STATE HELPERS
// =============================================================================

// commitLocked applies fn to a copy of the state and installs it.
// fn must copy Messages before modifying it. m.mu must be held.
func (m *Machine) commitLocked(fn func(s *State)) State {
	next := m.state
	fn(&next)
	next.Version = m.state.Version + 1
	m.state = next
	return next
}

// update commits fn and notifies observers.
func (m *Machine) update(fn func(s *State)) {
	m.mu.Lock()
	snapshot := m.commitLocked(fn)
	m.mu.Unlock()
	m.notify(snapshot)
}

// updateMessage commits fn against the message with the given ID.
func (m *Machine) updateMessage(id string, fn func(msg *model.Message)) bool {
	m.mu.Lock()
	idx := m.state.Messages.IndexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		return false
	}
	snapshot := m.commitLocked(func(s *State) {
		msgs := s.Messages.Clone()
		fn(&msgs[idx])
		s.Messages = msgs
	})
	m.mu.Unlock()
	m.notify(snapshot)
	return true
}

func (m *Machine) message(id string) (model.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.state.Messages.IndexOf(id)
	if idx < 0 {
		return model.Message{}, false
	}
	return m.state.Messages[idx], true
}

// render converts text for display, falling back to the raw text.
func (m *Machine) render(text string) string {
	out, err := m.renderer.Render(text)
	if err != nil {
		logging.Warn("render_failed", "error", err)
		return text
	}
	return out
}

func (m *Machine) staticMessage(text string) model.Message {
	msg := model.NewStaticMessage(text)
	msg.RenderedHTML = m.render(text)
	return msg
}
