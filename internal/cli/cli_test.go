// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/folio/internal/backend"
	"github.com/jeranaias/folio/internal/chat"
	"github.com/jeranaias/folio/internal/config"
	"github.com/jeranaias/folio/internal/model"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const testChatID = "sess-42"

// newBackend starts a chat API that assigns testChatID and answers
// "Hello there" after some reasoning.
func newBackend(t *testing.T, healthy bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	})
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, payload := range []string{
			`{"type":"chat_id","chat_id":"` + testChatID + `"}`,
			`{"choices":[{"delta":{"reasoning":"pondering"}}]}`,
			`{"choices":[{"delta":{"content":"Hello "}}]}`,
			`{"choices":[{"delta":{"content":"there"}}]}`,
		} {
			fmt.Fprintf(w, "data: %s\n\n", payload)
		}
	})
	mux.HandleFunc("/chats/"+testChatID+"/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(backend.HistoryResponse{Messages: &[]model.HistoryEntry{
			{Role: "user", Content: "hi"},
			{Role: "reasoning", Content: "pondering"},
			{Role: "assistant", Content: "Hello there"},
		}})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// isolateHome points the config directory at a fresh temp dir.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"FOLIO_BASE_URL", "FOLIO_USE_OPENAI", "FOLIO_SESSION_STORE", "FOLIO_LOG_LEVEL", "FOLIO_LOG_FILE"} {
		t.Setenv(key, "")
	}
	return home
}

// runCLI executes the root command and returns stdout and stderr.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer

	root := NewRootCommand()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)

	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"explicit", &ExitError{Code: 42}, 42},
		{"cancelled", fmt.Errorf("wrapped: %w", context.Canceled), ExitCancelled},
		{"usage", &UsageError{Reason: "bad"}, ExitUsageError},
		{"tty", &TTYRequiredError{Operation: "x"}, ExitUsageError},
		{"config", &ConfigError{Err: errors.New("bad")}, ExitConfigError},
		{"validation", config.ValidationErrors{{Field: "ui.max_fps", Message: "too big"}}, ExitConfigError},
		{"not found", &NotFoundError{Resource: "thing"}, ExitNotFoundError},
		{"send disabled", NewCommandError("ask", "send", chat.ErrSendDisabled), ExitNetworkError},
		{"client", &backend.ClientError{StatusCode: 500}, ExitNetworkError},
		{"other", errors.New("boom"), ExitGeneralError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, errors.New("it broke"))
	assert.Contains(t, buf.String(), "[ERROR]")
	assert.Contains(t, buf.String(), "it broke")
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealthCommand_JSON(t *testing.T) {
	isolateHome(t)
	server := newBackend(t, true)

	out, _, err := runCLI(t, "", "--ephemeral", "--base-url", server.URL, "health", "--json")
	require.NoError(t, err)

	var report healthReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "healthy", report.Status)
	assert.Equal(t, server.URL, report.BaseURL)
}

func TestHealthCommand_Unhealthy(t *testing.T) {
	isolateHome(t)
	server := newBackend(t, false)

	_, _, err := runCLI(t, "", "--ephemeral", "--base-url", server.URL, "health")
	require.Error(t, err)
	assert.Equal(t, ExitNetworkError, ExitCode(err))
}

// =============================================================================
// ASK, HISTORY, CLEAR
// =============================================================================

func TestAskCommand_StreamsAndPersistsSession(t *testing.T) {
	home := isolateHome(t)
	server := newBackend(t, true)

	out, errOut, err := runCLI(t, "", "--base-url", server.URL, "ask", "--reasoning", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there\n", out)
	assert.Contains(t, errOut, "pondering")

	state, err := os.ReadFile(filepath.Join(home, ".folio", "state.json"))
	require.NoError(t, err)
	assert.Contains(t, string(state), testChatID)

	out, _, err = runCLI(t, "", "--base-url", server.URL, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "hi")
	assert.Contains(t, out, "Hello there")
	assert.Contains(t, out, "pondering")

	out, _, err = runCLI(t, "", "--base-url", server.URL, "history", "--format", "json", "--no-reasoning")
	require.NoError(t, err)
	assert.Contains(t, out, testChatID)
	assert.NotContains(t, out, "pondering")

	out, _, err = runCLI(t, "", "--base-url", server.URL, "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Conversation cleared.")

	_, _, err = runCLI(t, "", "--base-url", server.URL, "history")
	assert.Equal(t, ExitNotFoundError, ExitCode(err))
}

func TestAskCommand_Unhealthy(t *testing.T) {
	isolateHome(t)
	server := newBackend(t, false)

	_, errOut, err := runCLI(t, "", "--ephemeral", "--base-url", server.URL, "ask", "hi")
	require.Error(t, err)
	assert.Equal(t, ExitNetworkError, ExitCode(err))
	assert.NotEmpty(t, errOut)
}

func TestAskCommand_RequiresQuestion(t *testing.T) {
	isolateHome(t)

	_, _, err := runCLI(t, "", "--ephemeral", "ask")
	assert.Equal(t, ExitUsageError, ExitCode(err))

	_, _, err = runCLI(t, "", "--ephemeral", "ask", "   ")
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestHistoryCommand_NoSession(t *testing.T) {
	isolateHome(t)

	_, _, err := runCLI(t, "", "--ephemeral", "history")
	assert.Equal(t, ExitNotFoundError, ExitCode(err))
}

func TestHistoryCommand_RejectsBadFlags(t *testing.T) {
	isolateHome(t)

	_, _, err := runCLI(t, "", "--ephemeral", "history", "--format", "pdf")
	assert.Equal(t, ExitUsageError, ExitCode(err))

	_, _, err = runCLI(t, "", "--ephemeral", "history", "--output", "a.md", "--dir", "out")
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestClearCommand_NothingSaved(t *testing.T) {
	isolateHome(t)

	out, _, err := runCLI(t, "", "--ephemeral", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved conversation.")
}

// =============================================================================
// CHAT AND TUI
// =============================================================================

func TestChatCommand_PipedSession(t *testing.T) {
	isolateHome(t)
	server := newBackend(t, true)

	out, _, err := runCLI(t, "hi\n/history\n/bogus\n/quit\n", "--ephemeral", "--base-url", server.URL, "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "folio chat")
	assert.Contains(t, out, "Try asking:")
	assert.Contains(t, out, "pondering")
	assert.Contains(t, out, "Hello there")
	assert.Contains(t, out, "You:")
	assert.Contains(t, out, "Unknown command /bogus")
}

func TestChatCommand_NumberPicksSuggestion(t *testing.T) {
	isolateHome(t)
	server := newBackend(t, true)

	out, _, err := runCLI(t, "1\n", "--ephemeral", "--base-url", server.URL, "chat", "--no-reasoning")
	require.NoError(t, err)

	first := config.Default().Chat.Suggestions[0]
	assert.Contains(t, out, "> "+first)
	assert.NotContains(t, out, "pondering")
}

func TestChatCommand_Unhealthy(t *testing.T) {
	isolateHome(t)
	server := newBackend(t, false)

	_, _, err := runCLI(t, "", "--ephemeral", "--base-url", server.URL, "chat")
	assert.Equal(t, ExitNetworkError, ExitCode(err))
}

func TestRootCommand_FallsBackToLineMode(t *testing.T) {
	isolateHome(t)
	server := newBackend(t, true)

	out, _, err := runCLI(t, "/quit\n", "--ephemeral", "--base-url", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "folio chat")
}

func TestTUICommand_RequiresTerminal(t *testing.T) {
	isolateHome(t)

	_, _, err := runCLI(t, "", "--ephemeral", "tui")
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	isolateHome(t)

	_, _, err := runCLI(t, "", "health", "--nope")
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigCommands(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, "", "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, _, err = runCLI(t, "", "--config", path, "config", "init")
	assert.Equal(t, ExitUsageError, ExitCode(err))

	out, _, err = runCLI(t, "", "--config", path, "config", "get", "ui.max_fps")
	require.NoError(t, err)
	assert.Equal(t, "30\n", out)

	_, _, err = runCLI(t, "", "--config", path, "config", "set", "ui.max_fps", "60")
	require.NoError(t, err)

	out, _, err = runCLI(t, "", "--config", path, "config", "get", "ui.max_fps")
	require.NoError(t, err)
	assert.Equal(t, "60\n", out)

	_, _, err = runCLI(t, "", "--config", path, "config", "set", "ui.max_fps", "500")
	assert.Equal(t, ExitConfigError, ExitCode(err))

	_, _, err = runCLI(t, "", "--config", path, "config", "get", "no.such_key")
	assert.Equal(t, ExitUsageError, ExitCode(err))

	out, _, err = runCLI(t, "", "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	out, _, err = runCLI(t, "", "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_fps = 60")
}

func TestGlobalFlagsOverrideConfig(t *testing.T) {
	isolateHome(t)
	opts := &rootOptions{baseURL: "http://example.test/", logLevel: "debug", ephemeral: true}

	cfg, err := opts.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://example.test", cfg.Backend.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "memory", cfg.Session.Store)
}

// =============================================================================
// HELPERS
// =============================================================================

func TestPickSuggestion(t *testing.T) {
	suggestions := []string{"a", "b"}

	got, ok := pickSuggestion(suggestions, "2")
	assert.True(t, ok)
	assert.Equal(t, "b", got)

	for _, input := range []string{"0", "3", "x", "1.5", ""} {
		_, ok := pickSuggestion(suggestions, input)
		assert.False(t, ok, input)
	}
}

func TestRequireConfirmation(t *testing.T) {
	var out bytes.Buffer

	ok, err := RequireConfirmation(strings.NewReader(""), &out, "Go?", ConfirmationOptions{Yes: true})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = RequireConfirmation(strings.NewReader("y\n"), &out, "Go?", ConfirmationOptions{})
	var usageErr *UsageError
	assert.ErrorAs(t, err, &usageErr)

	ok, err = RequireConfirmation(strings.NewReader("yes\n"), &out, "Go?", ConfirmationOptions{Interactive: true})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "Go? [y/N]: ")

	ok, err = RequireConfirmation(strings.NewReader("n\n"), &out, "Go?", ConfirmationOptions{Interactive: true})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = RequireConfirmation(strings.NewReader(""), &out, "Go?", ConfirmationOptions{Interactive: true})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStreamPrinter(t *testing.T) {
	var out, reasoningOut bytes.Buffer
	p := &streamPrinter{out: &out, reasoningOut: &reasoningOut}

	msg := model.NewAssistantPlaceholder()
	msg.ReasoningText = "hmm"
	p.Observe(chat.State{Messages: model.Transcript{msg}, Sending: true})

	msg.RawText = "Hel"
	p.Observe(chat.State{Messages: model.Transcript{msg}, Sending: true})

	msg.RawText = "Hello"
	printed := p.Finish(chat.State{Messages: model.Transcript{msg}})

	assert.True(t, printed)
	assert.Equal(t, "Hello", out.String())
	assert.Equal(t, "hmm", reasoningOut.String())
}

func TestStreamPrinter_IgnoresNotices(t *testing.T) {
	var out bytes.Buffer
	p := &streamPrinter{out: &out}

	printed := p.Finish(chat.State{Messages: model.Transcript{model.NewStaticMessage("down")}})
	assert.False(t, printed)
	assert.Empty(t, out.String())
}

func TestStreamPrinter_DroppedReplyPrintsNothing(t *testing.T) {
	var out bytes.Buffer
	p := &streamPrinter{out: &out}

	earlier := model.NewAssistantPlaceholder()
	earlier.RawText = "old answer"
	transcript := model.Transcript{model.NewUserMessage("a"), earlier, model.NewUserMessage("b")}

	printed := p.Finish(chat.State{Messages: transcript})
	assert.False(t, printed)
	assert.Empty(t, out.String())
}
