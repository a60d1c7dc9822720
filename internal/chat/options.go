// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "time"

// DefaultCollapseDelay is how long reasoning stays open after an answer completes.
const DefaultCollapseDelay = 1200 * time.Millisecond

// Default notice texts.
const (
	DefaultUnavailableMessage  = "The assistant is currently unavailable. Please try again later."
	DefaultHistoryErrorMessage = "The previous conversation could not be loaded. Clear the chat to start a new one."
	DefaultBackendDownMessage  = "The chat backend is unavailable right now. Please try again later."
	ClearPrompt                = "Clear the conversation? The saved session will be discarded."
)

// DefaultSuggestions are the prompts offered on an empty conversation.
var DefaultSuggestions = []string{
	"What projects have you worked on?",
	"Which technologies do you use most?",
	"How can I get in touch?",
}

// Options configures a Machine.
type Options struct {
	// CollapseDelay is the wait before auto-collapsing reasoning after a
	// successful answer. Zero uses DefaultCollapseDelay; negative disables.
	CollapseDelay time.Duration

	// Suggestions are shown while the conversation is empty.
	Suggestions []string

	// UnavailableMessage is shown when the startup health check fails.
	UnavailableMessage string

	// HistoryErrorMessage is shown when the saved conversation cannot be loaded.
	HistoryErrorMessage string

	// BackendDownMessage is shown when a send fails.
	BackendDownMessage string
}

// DefaultOptions returns the default machine options.
func DefaultOptions() Options {
	return Options{
		CollapseDelay:       DefaultCollapseDelay,
		Suggestions:         append([]string(nil), DefaultSuggestions...),
		UnavailableMessage:  DefaultUnavailableMessage,
		HistoryErrorMessage: DefaultHistoryErrorMessage,
		BackendDownMessage:  DefaultBackendDownMessage,
	}
}

// withDefaults fills zero values.
func (o Options) withDefaults() Options {
	if o.CollapseDelay == 0 {
		o.CollapseDelay = DefaultCollapseDelay
	}
	if o.Suggestions == nil {
		o.Suggestions = append([]string(nil), DefaultSuggestions...)
	}
	if o.UnavailableMessage == "" {
		o.UnavailableMessage = DefaultUnavailableMessage
	}
	if o.HistoryErrorMessage == "" {
		o.HistoryErrorMessage = DefaultHistoryErrorMessage
	}
	if o.BackendDownMessage == "" {
		o.BackendDownMessage = DefaultBackendDownMessage
	}
	return o
}
