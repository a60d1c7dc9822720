// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnhealthy
	ErrTypeHistoryUnavailable
	ErrTypeStreamFailure
	ErrTypeMalformedChunk
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeUnhealthy:
		return "unhealthy"
	case ErrTypeHistoryUnavailable:
		return "history_unavailable"
	case ErrTypeStreamFailure:
		return "stream_failure"
	case ErrTypeMalformedChunk:
		return "malformed_chunk"
	default:
		return "unknown"
	}
}

// ClientError represents an error from the chat backend client.
// StatusCode is 0 when no response was received.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Body       string
	Cause      error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any ClientError of the same Type, so sentinels work with errors.Is.
func (e *ClientError) Is(target error) bool {
	var t *ClientError
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type
}

// Sentinel errors for easy checking.
var (
	ErrUnhealthy          = &ClientError{Type: ErrTypeUnhealthy, Message: "chat backend is unhealthy"}
	ErrHistoryUnavailable = &ClientError{Type: ErrTypeHistoryUnavailable, Message: "chat history unavailable"}
	ErrStreamFailure      = &ClientError{Type: ErrTypeStreamFailure, Message: "chat stream failed"}
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

func hasType(err error, t ErrorType) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == t
	}
	return false
}

// IsStreamFailure checks if an error is a streaming send failure.
func IsStreamFailure(err error) bool {
	return hasType(err, ErrTypeStreamFailure)
}

// IsHistoryUnavailable checks if an error is a history fetch failure.
func IsHistoryUnavailable(err error) bool {
	return hasType(err, ErrTypeHistoryUnavailable)
}

// IsUnhealthy checks if an error reports an unhealthy backend.
func IsUnhealthy(err error) bool {
	return hasType(err, ErrTypeUnhealthy)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode
	}
	return 0
}
