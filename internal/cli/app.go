// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wiring from configuration to store, session, client and machine.

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/folio/internal/backend"
	"github.com/jeranaias/folio/internal/chat"
	"github.com/jeranaias/folio/internal/config"
	"github.com/jeranaias/folio/internal/logging"
	"github.com/jeranaias/folio/internal/markdown"
	"github.com/jeranaias/folio/internal/session"
	"github.com/jeranaias/folio/internal/storage"
)

// App holds the long-lived objects a command works with.
type App struct {
	Config  *config.Config
	Store   storage.Store
	Session *session.Session
	Client  *backend.Client

	logCloser io.Closer
}

// openApp loads configuration and builds an App. When quietLogs is set and no
// log file is configured, logging stays disabled (the TUI owns the terminal).
func (o *rootOptions) openApp(quietLogs bool) (*App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return NewApp(cfg, quietLogs)
}

// NewApp builds an App from cfg.
func NewApp(cfg *config.Config, quietLogs bool) (*App, error) {
	app := &App{Config: cfg}

	if !quietLogs || cfg.Log.File != "" {
		closer, err := logging.Init(cfg.Log.Level, cfg.Log.File)
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
		app.logCloser = closer
	}

	kind, err := storage.ParseKind(cfg.Session.Store)
	if err != nil {
		app.Close()
		return nil, &ConfigError{Err: err}
	}
	store, err := storage.Open(kind, cfg.StorePath())
	if err != nil {
		app.Close()
		return nil, NewCommandError("session", "open store", err)
	}
	app.Store = store

	sess, err := session.New(store, cfg.Session.Key)
	if err != nil {
		app.Close()
		return nil, NewCommandError("session", "load", err)
	}
	app.Session = sess
	sess.OnChange(func(id string) {
		if id == "" {
			logging.Info("session_cleared", "store", string(kind))
			return
		}
		logging.Info("session_saved", "chat_id", id, "store", string(kind))
	})

	app.Client = backend.NewClient(ClientConfig(cfg), sess)

	logging.Debug("app_ready",
		"base_url", app.Client.BaseURL(),
		"store", string(kind),
		"has_session", sess.HasID())
	return app, nil
}

// NewMachine creates a conversation machine over the app's client and session.
// Rendered HTML is always sanitized so it is safe to export.
func (a *App) NewMachine() *chat.Machine {
	return chat.NewMachine(a.Client, a.Session, markdown.NewHTMLRenderer(), ChatOptions(a.Config))
}

// Close releases the store and the log file.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log: %w", err))
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// CONFIG MAPPING
// =============================================================================

// ClientConfig maps the backend section onto the client configuration.
func ClientConfig(cfg *config.Config) *backend.ClientConfig {
	return &backend.ClientConfig{
		BaseURL:       cfg.Backend.BaseURL,
		Timeout:       cfg.Backend.Timeout.Duration,
		StreamTimeout: cfg.Backend.StreamTimeout.Duration,
		UseOpenAI:     cfg.Backend.UseOpenAI,
		MaxErrorBody:  cfg.Backend.MaxErrorBody,
	}
}

// ChatOptions maps the chat section onto machine options.
func ChatOptions(cfg *config.Config) chat.Options {
	return chat.Options{
		CollapseDelay:       cfg.Chat.CollapseDelay.Duration,
		Suggestions:         append([]string(nil), cfg.Chat.Suggestions...),
		UnavailableMessage:  cfg.Chat.UnavailableMessage,
		HistoryErrorMessage: cfg.Chat.HistoryErrorMessage,
		BackendDownMessage:  cfg.Chat.BackendDownMessage,
	}
}
