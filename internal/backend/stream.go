// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jeranaias/folio/internal/logging"
	"github.com/jeranaias/folio/internal/session"
)

// readBufferSize is the size of each body read.
const readBufferSize = 4 * 1024

// ErrStreamClosed is returned by Next after Close.
var ErrStreamClosed = errors.New("backend: stream closed")

// =============================================================================
// STREAM
// =============================================================================

// Stream is the chunk sequence of one send. It reads the response body
// lazily and cannot be restarted.
//
// Next must be called from one goroutine. Close may be called from any
// goroutine and unblocks a pending Next.
type Stream struct {
	ctx     context.Context
	body    io.ReadCloser
	decoder *Decoder
	session *session.Session

	buf   []byte
	queue []Chunk
	err   error // terminal, returned once queue is drained

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewStream wraps an event-stream body. Session chunks are persisted
// through sess when they are read; sess may be nil. ctx is the context the
// body is read under and decides whether a read error means cancellation.
func NewStream(ctx context.Context, body io.ReadCloser, sess *session.Session) *Stream {
	return &Stream{
		ctx:     ctx,
		body:    body,
		decoder: NewDecoder(),
		session: sess,
		buf:     make([]byte, readBufferSize),
	}
}

// Next returns the next chunk in decode order.
//
// It returns io.EOF when the server ends the stream, ctx.Err() when the
// request context is cancelled, and a StreamFailure ClientError when the
// connection drops. Chunks decoded before a failure are always returned
// first.
func (s *Stream) Next() (Chunk, error) {
	for {
		if len(s.queue) > 0 {
			chunk := s.queue[0]
			s.queue = s.queue[1:]
			s.apply(chunk)
			return chunk, nil
		}
		if s.err != nil {
			return Chunk{}, s.err
		}
		if s.closed.Load() {
			return Chunk{}, ErrStreamClosed
		}
		s.fill()
	}
}

// Close releases the response body. Safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.body.Close()
	})
	return err
}

// fill performs one body read and queues whatever it completes.
func (s *Stream) fill() {
	n, err := s.body.Read(s.buf)
	if n > 0 {
		s.queue = append(s.queue, s.decoder.Feed(s.buf[:n])...)
	}
	if err == nil {
		return
	}

	if errors.Is(err, io.EOF) {
		s.queue = append(s.queue, s.decoder.Flush()...)
		s.err = io.EOF
		s.Close()
		return
	}

	switch {
	case s.ctx.Err() != nil:
		s.err = s.ctx.Err()
		logging.Debug("stream_cancelled", "buffered", len(s.decoder.Buffered()))
	case s.closed.Load():
		s.err = ErrStreamClosed
	default:
		s.err = &ClientError{
			Type:    ErrTypeStreamFailure,
			Message: "connection lost while streaming from chat API",
			Cause:   err,
		}
		logging.Warn("stream_failed", "error", err)
	}
	s.Close()
}

// apply runs the side effects of a chunk before it is handed out.
func (s *Stream) apply(chunk Chunk) {
	if chunk.Kind != KindSession || s.session == nil {
		return
	}
	if err := s.session.Set(chunk.Text); err != nil {
		logging.Warn("session_persist_failed", "error", err)
		return
	}
	logging.Debug("session_assigned", "chat_id", chunk.Text)
}
