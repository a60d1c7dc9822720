// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/folio/internal/session"
	"github.com/jeranaias/folio/internal/storage"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *session.Session) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sess := session.NewEphemeral()
	return NewClient(&ClientConfig{BaseURL: server.URL + "/"}, sess), sess
}

// roundTripFunc lets tests hand the client an arbitrary response body.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func clientWithBody(body io.ReadCloser, sess *session.Session) *Client {
	return NewClient(&ClientConfig{
		BaseURL: "http://backend.test",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusOK, Body: body, Header: make(http.Header), Request: r}, nil
		})},
	}, sess)
}

// failingBody returns data, then err.
type failingBody struct {
	r   io.Reader
	err error
}

func (b *failingBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if errors.Is(err, io.EOF) {
		return n, b.err
	}
	return n, err
}

func (b *failingBody) Close() error { return nil }

// collect drains stream, returning the chunks read before any error.
func collect(stream *Stream) ([]Chunk, error) {
	defer stream.Close()
	var chunks []Chunk
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, chunk)
	}
}

// =============================================================================
// CONFIG
// =============================================================================

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(nil, nil)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.NotNil(t, c.Session())

	c = NewClient(&ClientConfig{BaseURL: "http://api.example.com///"}, nil)
	assert.Equal(t, "http://api.example.com", c.BaseURL())
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

func TestCheckHealth(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"ok", http.StatusOK, `{"status":"ok"}`, true},
		{"degraded", http.StatusOK, `{"status":"degraded"}`, false},
		{"server error", http.StatusInternalServerError, `{"status":"ok"}`, false},
		{"malformed", http.StatusOK, `<html>`, false},
		{"empty", http.StatusNoContent, ``, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/health", r.URL.Path)
				assert.Equal(t, http.MethodGet, r.Method)
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			assert.Equal(t, tc.want, client.CheckHealth(context.Background()))
		})
	}
}

func TestCheckHealth_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(&ClientConfig{BaseURL: url}, nil)
	assert.False(t, client.CheckHealth(context.Background()))
}

// =============================================================================
// HISTORY
// =============================================================================

func TestFetchHistory_EmptyIDSkipsRequest(t *testing.T) {
	called := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	transcript, err := client.FetchHistory(context.Background(), "  ")
	assert.NoError(t, err)
	assert.Nil(t, transcript)
	assert.False(t, called)
}

func TestFetchHistory_RebuildsTranscript(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chats/abc/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messages":[
			{"role":"user","content":"hi"},
			{"role":"reasoning","content":"thinking"},
			{"role":"assistant","content":"hello"}
		]}`))
	})

	transcript, err := client.FetchHistory(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, "hi", transcript[0].RawText)
	assert.Equal(t, "hello", transcript[1].RawText)
	assert.Equal(t, "thinking", transcript[1].ReasoningText)
}

func TestFetchHistory_EscapesID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chats/a%2Fb%20c/messages", r.URL.EscapedPath())
		w.Write([]byte(`{"messages":[]}`))
	})

	transcript, err := client.FetchHistory(context.Background(), "a/b c")
	require.NoError(t, err)
	assert.Empty(t, transcript)
}

func TestFetchHistory_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantBody   string
	}{
		{"not found", http.StatusNotFound, "no such chat\n", http.StatusNotFound, "no such chat"},
		{"server error", http.StatusBadGateway, "", http.StatusBadGateway, ""},
		{"malformed", http.StatusOK, "{not json", http.StatusOK, ""},
		{"null body", http.StatusOK, "null", http.StatusOK, ""},
		{"missing messages", http.StatusOK, "{}", http.StatusOK, ""},
		{"null messages", http.StatusOK, `{"messages":null}`, http.StatusOK, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			transcript, err := client.FetchHistory(context.Background(), "abc")
			require.Error(t, err)
			assert.Nil(t, transcript)
			assert.True(t, IsHistoryUnavailable(err))
			assert.True(t, errors.Is(err, ErrHistoryUnavailable))
			assert.False(t, IsStreamFailure(err))
			assert.Equal(t, tc.wantStatus, StatusCode(err))

			var clientErr *ClientError
			require.True(t, errors.As(err, &clientErr))
			assert.Equal(t, tc.wantBody, clientErr.Body)
		})
	}
}

// =============================================================================
// STREAMING SEND
// =============================================================================

func TestStreamSend_RequestShape(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(session.DefaultKey, "known"))
	sess, err := session.New(store, session.DefaultKey)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		var req SendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Message)
		assert.Equal(t, "known", req.ChatID)
		assert.True(t, req.UseOpenAI)

		w.Header().Set("Content-Type", "text/event-stream")
	}))
	defer server.Close()

	client := NewClient(&ClientConfig{BaseURL: server.URL, UseOpenAI: true}, sess)
	stream, err := client.StreamSend(context.Background(), "hello")
	require.NoError(t, err)

	chunks, err := collect(stream)
	assert.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestStreamSend_OmitsUnknownChatID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, present := raw["chat_id"]
		assert.False(t, present)
	})

	stream, err := client.StreamSend(context.Background(), "hi")
	require.NoError(t, err)
	_, err = collect(stream)
	assert.NoError(t, err)
}

func TestStreamSend_DeliversChunksAndPersistsSession(t *testing.T) {
	client, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, event := range []string{
			`{"type":"chat_id","chat_id":"new-session"}`,
			`{"choices":[{"delta":{"reasoning":"hmm"}}]}`,
			`{"choices":[{"delta":{"content":"Hello"}}]}`,
			`{"choices":[{"delta":{"content":" there"}}]}`,
		} {
			w.Write([]byte("data: " + event + "\n\n"))
			flusher.Flush()
		}
	})

	var seen []string
	sess.OnChange(func(id string) { seen = append(seen, id) })

	stream, err := client.StreamSend(context.Background(), "hi")
	require.NoError(t, err)
	chunks, err := collect(stream)
	require.NoError(t, err)

	assert.Equal(t, []Chunk{
		{KindSession, "new-session"},
		{KindReasoning, "hmm"},
		{KindAnswer, "Hello"},
		{KindAnswer, " there"},
	}, chunks)
	assert.Equal(t, "new-session", sess.ID())
	assert.Equal(t, []string{"new-session"}, seen)
}

func TestStreamSend_NonSuccessStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("model offline"))
	})

	stream, err := client.StreamSend(context.Background(), "hi")
	assert.Nil(t, stream)
	require.Error(t, err)
	assert.True(t, IsStreamFailure(err))
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))

	var clientErr *ClientError
	require.True(t, errors.As(err, &clientErr))
	assert.Equal(t, "model offline", clientErr.Body)
	assert.Contains(t, err.Error(), "503")
}

func TestStreamSend_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(&ClientConfig{BaseURL: url}, nil)
	_, err := client.StreamSend(context.Background(), "hi")
	assert.True(t, IsStreamFailure(err))
	assert.Equal(t, 0, StatusCode(err))
}

func TestStream_SmallReads(t *testing.T) {
	body := "data: {\"content\":\"ü\"}\n\ndata: {\"content\":\"ber\"}\n\n"
	client := clientWithBody(io.NopCloser(iotest.OneByteReader(strings.NewReader(body))), nil)

	stream, err := client.StreamSend(context.Background(), "x")
	require.NoError(t, err)
	chunks, err := collect(stream)
	require.NoError(t, err)
	assert.Equal(t, []Chunk{{KindAnswer, "ü"}, {KindAnswer, "ber"}}, chunks)
}

func TestStream_FailureAfterChunks(t *testing.T) {
	body := &failingBody{
		r:   strings.NewReader("data: {\"content\":\"partial\"}\n\ndata: {\"content\":\"lost"),
		err: io.ErrUnexpectedEOF,
	}
	client := clientWithBody(body, nil)

	stream, err := client.StreamSend(context.Background(), "x")
	require.NoError(t, err)

	chunk, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, Chunk{KindAnswer, "partial"}, chunk)

	_, err = stream.Next()
	require.Error(t, err)
	assert.True(t, IsStreamFailure(err))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	// The failure is sticky
	_, err = stream.Next()
	assert.True(t, IsStreamFailure(err))
}

func TestStream_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := &failingBody{r: strings.NewReader("data: {\"content\":\"a\"}\n\n"), err: errors.New("read on cancelled request")}
	stream := NewStream(ctx, body, nil)

	chunk, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", chunk.Text)

	_, err = stream.Next()
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsStreamFailure(err))
}

func TestStream_NextAfterClose(t *testing.T) {
	stream := NewStream(context.Background(), io.NopCloser(strings.NewReader("data: x\n\n")), nil)
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())

	_, err := stream.Next()
	assert.True(t, errors.Is(err, ErrStreamClosed))
}

// =============================================================================
// ERRORS
// =============================================================================

func TestClientError_Format(t *testing.T) {
	err := &ClientError{Type: ErrTypeStreamFailure, Message: "boom", StatusCode: 500, Cause: io.EOF}
	assert.Equal(t, "boom (status 500): EOF", err.Error())
	assert.True(t, errors.Is(err, io.EOF))
	assert.True(t, errors.Is(err, ErrStreamFailure))
	assert.False(t, errors.Is(err, ErrUnhealthy))
	assert.False(t, IsUnhealthy(err))
	assert.Equal(t, "stream_failure", ErrTypeStreamFailure.String())
}
