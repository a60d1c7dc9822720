// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeranaias/folio/internal/logging"
	"github.com/jeranaias/folio/internal/model"
	"github.com/jeranaias/folio/internal/session"
	"github.com/jeranaias/folio/internal/util"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Default configuration values.
const (
	DefaultBaseURL       = "http://localhost:8000"
	DefaultTimeout       = 10 * time.Second
	DefaultStreamTimeout = 30 * time.Second
	DefaultMaxErrorBody  = 2048
)

// ClientConfig holds configuration options for the chat client.
type ClientConfig struct {
	// BaseURL is the chat API base URL (default: http://localhost:8000).
	// A trailing slash is ignored.
	BaseURL string

	// Timeout for health and history requests (default: 10s)
	Timeout time.Duration

	// StreamTimeout bounds the wait for response headers on a send
	// (default: 30s). The body itself is only bounded by the context.
	StreamTimeout time.Duration

	// UseOpenAI asks the backend to route the send to its OpenAI provider.
	UseOpenAI bool

	// MaxErrorBody caps how much of a failed response body is kept (default: 2048)
	MaxErrorBody int

	// HTTPClient overrides the transport used for all requests.
	HTTPClient *http.Client
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:       DefaultBaseURL,
		Timeout:       DefaultTimeout,
		StreamTimeout: DefaultStreamTimeout,
		MaxErrorBody:  DefaultMaxErrorBody,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the portfolio chat API.
//
// The Client is safe for concurrent use. The session it was created with is
// the only place the session id is read from or written to.
//
// Example:
//
//	client := backend.NewClient(nil, sess)
//	transcript, err := client.FetchHistory(ctx, sess.ID())
type Client struct {
	config       *ClientConfig
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	session      *session.Session
}

// NewClient creates a client. A nil config uses DefaultConfig; a nil session
// creates an ephemeral one.
func NewClient(config *ClientConfig, sess *session.Session) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.StreamTimeout == 0 {
		config.StreamTimeout = DefaultStreamTimeout
	}
	if config.MaxErrorBody == 0 {
		config.MaxErrorBody = DefaultMaxErrorBody
	}
	if sess == nil {
		sess = session.NewEphemeral()
	}

	c := &Client{
		config:  config,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		session: sess,
	}

	if config.HTTPClient != nil {
		c.httpClient = config.HTTPClient
		c.streamClient = config.HTTPClient
		return c
	}

	c.httpClient = &http.Client{Timeout: config.Timeout}

	// Streaming responses run as long as the server keeps writing, so only
	// the wait for headers is bounded
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = config.StreamTimeout
	c.streamClient = &http.Client{Transport: transport}

	return c
}

// BaseURL returns the normalized API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the session the client reads and persists.
func (c *Client) Session() *session.Session {
	return c.session
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckHealth probes GET /health. It never fails: any transport error,
// non-2xx status or body other than {"status":"ok"} reports false.
func (c *Client) CheckHealth(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		logging.Debug("health_check_failed", "error", err)
		return false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Debug("health_check_failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		logging.Debug("health_check_failed", "status", resp.StatusCode)
		return false
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		logging.Debug("health_check_failed", "error", err)
		return false
	}
	if health.Status != HealthStatusOK {
		logging.Debug("health_check_failed", "status_field", health.Status)
		return false
	}
	return true
}

// =============================================================================
// HISTORY
// =============================================================================

// FetchHistory loads the stored conversation for sessionID and rebuilds it
// as a transcript. An empty sessionID returns (nil, nil) without a request.
// Failures are HistoryUnavailable errors; there is no retry.
func (c *Client) FetchHistory(ctx context.Context, sessionID string) (model.Transcript, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, nil
	}

	endpoint := c.baseURL + "/chats/" + url.PathEscape(sessionID) + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeHistoryUnavailable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeHistoryUnavailable, Message: "failed to load chat history", Cause: err}
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, &ClientError{
			Type:       ErrTypeHistoryUnavailable,
			Message:    "failed to load chat history",
			StatusCode: resp.StatusCode,
			Body:       c.readErrorBody(resp.Body),
		}
	}

	var history HistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, &ClientError{
			Type:       ErrTypeHistoryUnavailable,
			Message:    "malformed chat history",
			StatusCode: resp.StatusCode,
			Cause:      err,
		}
	}
	if history.Messages == nil {
		return nil, &ClientError{
			Type:       ErrTypeHistoryUnavailable,
			Message:    "malformed chat history: missing messages",
			StatusCode: resp.StatusCode,
		}
	}

	entries := *history.Messages
	transcript := model.BuildTranscript(entries)
	logging.Debug("history_fetched", "chat_id", sessionID, "entries", len(entries), "messages", len(transcript))
	return transcript, nil
}

// =============================================================================
// STREAMING SEND
// =============================================================================

// StreamSend posts text to /chat and returns the response as a Stream.
// The current session id, if any, is sent along. A transport failure or
// non-2xx status is a StreamFailure error.
//
// Cancelling ctx or calling Stream.Close ends the stream early.
func (c *Client) StreamSend(ctx context.Context, text string) (*Stream, error) {
	body, err := json.Marshal(SendRequest{
		Message:   text,
		ChatID:    c.session.ID(),
		UseOpenAI: c.config.UseOpenAI,
	})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeStreamFailure, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeStreamFailure, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ClientError{Type: ErrTypeStreamFailure, Message: "chat API unreachable", Cause: err}
	}

	if !isSuccess(resp.StatusCode) {
		defer resp.Body.Close()
		return nil, &ClientError{
			Type:       ErrTypeStreamFailure,
			Message:    fmt.Sprintf("chat API error (HTTP %d)", resp.StatusCode),
			StatusCode: resp.StatusCode,
			Body:       c.readErrorBody(resp.Body),
		}
	}

	logging.Debug("stream_opened", "chat_id", c.session.ID(), "message_len", len(text))
	return NewStream(ctx, resp.Body, c.session), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// readErrorBody reads a bounded, single-line copy of a failed response body.
func (c *Client) readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, int64(c.config.MaxErrorBody)))
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	return util.TruncateRunes(util.SingleLine(string(data)), c.config.MaxErrorBody)
}
