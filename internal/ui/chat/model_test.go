// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/folio/internal/backend"
	convo "github.com/jeranaias/folio/internal/chat"
	"github.com/jeranaias/folio/internal/markdown"
	"github.com/jeranaias/folio/internal/session"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeBackend serves /health and /chat with a canned event stream.
type fakeBackend struct {
	healthy bool
	events  []string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health":
		if !f.healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	case "/chat":
		w.Header().Set("Content-Type", "text/event-stream")
		for _, e := range f.events {
			fmt.Fprintf(w, "data: %s\n\n", e)
		}
	default:
		http.NotFound(w, r)
	}
}

func newTestMachine(t *testing.T, fb *fakeBackend) *convo.Machine {
	t.Helper()
	server := httptest.NewServer(fb)
	t.Cleanup(server.Close)

	sess := session.NewEphemeral()
	client := backend.NewClient(&backend.ClientConfig{BaseURL: server.URL}, sess)

	opts := convo.DefaultOptions()
	opts.CollapseDelay = -1
	machine := convo.NewMachine(client, sess, markdown.NewHTMLRenderer(), opts)
	t.Cleanup(machine.Close)
	return machine
}

func newTestModel(t *testing.T, fb *fakeBackend) Model {
	t.Helper()
	m := New(context.Background(), newTestMachine(t, fb), Config{Style: markdown.StyleASCII, ExportDir: t.TempDir()})
	m = step(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return step(t, m, m.initCmd()())
}

// step applies msg and returns the updated model.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

// press applies a key and runs the resulting command, feeding its message back.
func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(k)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	if msg := cmd(); msg != nil {
		m = step(t, m, msg)
	}
	return m
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func answer(s string) string    { return `{"choices":[{"delta":{"content":"` + s + `"}}]}` }
func reasoning(s string) string { return `{"choices":[{"delta":{"reasoning":"` + s + `"}}]}` }

// =============================================================================
// STARTUP
// =============================================================================

func TestModel_StartupShowsSuggestions(t *testing.T) {
	m := newTestModel(t, &fakeBackend{healthy: true})

	assert.False(t, m.initializing)
	assert.True(t, m.State().SendEnabled)

	view := m.View()
	assert.Contains(t, view, "Try asking:")
	assert.Contains(t, view, "1.")
	assert.Contains(t, view, "[OK] online")
}

func TestModel_UnavailableBackendDisablesSend(t *testing.T) {
	m := newTestModel(t, &fakeBackend{healthy: false})

	assert.False(t, m.State().SendEnabled)
	assert.Contains(t, m.View(), "Assistant unavailable.")

	m.input.SetValue("hello")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestModel_ViewBeforeResize(t *testing.T) {
	m := New(context.Background(), newTestMachine(t, &fakeBackend{healthy: true}), Config{Style: markdown.StyleASCII})
	assert.Contains(t, m.View(), "Starting folio")
}

// =============================================================================
// SENDING
// =============================================================================

func TestModel_SubmitStreamsReply(t *testing.T) {
	m := newTestModel(t, &fakeBackend{
		healthy: true,
		events:  []string{`{"type":"chat_id","chat_id":"session-1"}`, answer("Hello "), answer("there")},
	})

	m.input.SetValue("hi")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	s := m.State()
	require.Len(t, s.Messages, 2)
	assert.Equal(t, "hi", s.Messages[0].RawText)
	assert.Equal(t, "Hello there", s.Messages[1].RawText)
	assert.Equal(t, "session-1", s.SessionID)
	assert.False(t, s.Sending)
	assert.Empty(t, m.input.Value())

	view := m.View()
	assert.Contains(t, view, "Hello there")
	assert.Contains(t, view, "chat session-1")
}

func TestModel_NumberPicksSuggestion(t *testing.T) {
	m := newTestModel(t, &fakeBackend{healthy: true, events: []string{answer("ok")}})
	first := m.State().Suggestions[0]

	m.input.SetValue("1")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.NotEmpty(t, m.State().Messages)
	assert.Equal(t, first, m.State().Messages[0].RawText)
}

func TestModel_EmptyInputIsIgnored(t *testing.T) {
	m := newTestModel(t, &fakeBackend{healthy: true})

	m.input.SetValue("   ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

// =============================================================================
// REASONING AND CLEAR
// =============================================================================

func TestModel_ToggleReasoning(t *testing.T) {
	m := newTestModel(t, &fakeBackend{
		healthy: true,
		events:  []string{reasoning("weighing options"), answer("done")},
	})
	m.input.SetValue("why?")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	last := m.State().Messages[1]
	require.True(t, last.HasReasoning())
	require.True(t, last.ReasoningVisible)
	assert.Contains(t, m.View(), "weighing options")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m = step(t, m, StateMsg{State: m.machine.Snapshot()})

	assert.False(t, m.State().Messages[1].ReasoningVisible)
	assert.Contains(t, m.View(), "reasoning hidden")
}

func TestModel_ClearAsksFirst(t *testing.T) {
	m := newTestModel(t, &fakeBackend{
		healthy: true,
		events:  []string{`{"type":"chat_id","chat_id":"s1"}`, answer("hi")},
	})
	m.input.SetValue("hello")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, m.State().Messages, 2)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.True(t, m.confirming)
	assert.Contains(t, m.View(), "(y/n)")

	m = step(t, m, runeKey('n'))
	assert.False(t, m.confirming)
	assert.Len(t, m.State().Messages, 2)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	m = press(t, m, runeKey('y'))
	assert.False(t, m.confirming)
	assert.True(t, m.State().IsEmpty())
	assert.Empty(t, m.State().SessionID)
	assert.Equal(t, "Conversation cleared.", m.flash)
}

func TestModel_ClearIgnoredWhenNothingToClear(t *testing.T) {
	m := newTestModel(t, &fakeBackend{healthy: true})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.False(t, m.confirming)
}

// =============================================================================
// EXPORT AND QUIT
// =============================================================================

func TestModel_ExportWritesMarkdown(t *testing.T) {
	m := newTestModel(t, &fakeBackend{healthy: true, events: []string{answer("exported")}})
	m.input.SetValue("save me")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	done, ok := cmd().(ExportDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.Err)

	data, err := os.ReadFile(done.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "exported")

	m = step(t, m, done)
	assert.True(t, strings.HasPrefix(m.flash, "Saved "))
}

func TestModel_ExportEmptyConversation(t *testing.T) {
	m := newTestModel(t, &fakeBackend{healthy: true})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, "Nothing to export yet.", m.flash)
	assert.True(t, m.flashIsError)
}

func TestModel_CtrlCQuitsWhenIdle(t *testing.T) {
	m := newTestModel(t, &fakeBackend{healthy: true})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_IgnoresStaleSnapshots(t *testing.T) {
	m := newTestModel(t, &fakeBackend{healthy: true})
	current := m.State()

	stale := current
	stale.Version = 0
	stale.Suggestions = nil
	m = step(t, m, StateMsg{State: stale})

	assert.Equal(t, current.Version, m.State().Version)
	assert.Equal(t, current.Suggestions, m.State().Suggestions)
}

func TestModel_FlashExpires(t *testing.T) {
	m := newTestModel(t, &fakeBackend{healthy: true})
	m.setFlash("one", false)
	seq := m.flashSeq
	m.setFlash("two", false)

	m = step(t, m, flashExpiredMsg{seq: seq})
	assert.Equal(t, "two", m.flash)

	m = step(t, m, flashExpiredMsg{seq: m.flashSeq})
	assert.Empty(t, m.flash)
}

// =============================================================================
// HELPERS
// =============================================================================

func TestSuggestionAt(t *testing.T) {
	suggestions := []string{"a", "b", "c"}

	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"1", "a", true},
		{"3", "c", true},
		{"0", "", false},
		{"4", "", false},
		{"12", "", false},
		{"-1", "", false},
		{"1a", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := suggestionAt(suggestions, tc.input)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveStyle(t *testing.T) {
	assert.Equal(t, "dark", resolveStyle("auto", true))
	assert.Equal(t, "light", resolveStyle("", false))
	assert.Equal(t, "ascii", resolveStyle(" ASCII ", true))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "123456789...", shortID("1234567890abcdef"))
}
