// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/jeranaias/folio/internal/logging"
)

// STREAMING: Incremental event-stream decoding, safe across arbitrary read boundaries

const dataPrefix = "data:"

// Session control event types.
const (
	controlTypeSession = "session"
	controlTypeChatID  = "chat_id"
)

// =============================================================================
// WIRE PAYLOAD
// =============================================================================

// wirePayload is the union of the JSON object shapes the backend sends.
// Pointer fields distinguish absent from empty.
type wirePayload struct {
	Type      string        `json:"type"`
	Session   string        `json:"session"`
	SessionID string        `json:"session_id"`
	ChatID    string        `json:"chat_id"`
	Choices   *[]wireChoice `json:"choices"`
	Content   *string       `json:"content"`
}

type wireChoice struct {
	Delta *wireDelta `json:"delta"`
}

type wireDelta struct {
	Content          string `json:"content"`
	Reasoning        string `json:"reasoning"`
	ReasoningContent string `json:"reasoning_content"`
}

// sessionValue returns the session id carried by a control event, if any.
func (p *wirePayload) sessionValue() string {
	if p.Type != controlTypeSession && p.Type != controlTypeChatID {
		return ""
	}
	for _, v := range []string{p.Session, p.SessionID, p.ChatID} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns raw response bytes into chunks.
//
// Bytes may be fed in pieces of any size. Multi-byte characters split across
// pieces are held back until complete, so the decoded chunks do not depend on
// where reads happen to end. A leading byte-order mark is dropped and invalid
// UTF-8 becomes U+FFFD.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	utf8    transform.Transformer
	pending []byte // undecoded bytes
	text    []byte // decoded text not yet consumed as events
	scanned int    // prefix of text known to hold no event boundary
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{utf8: unicode.UTF8BOM.NewDecoder()}
}

// Feed decodes p and returns the chunks of every event completed by it.
func (d *Decoder) Feed(p []byte) []Chunk {
	d.decode(p, false)
	return d.drainEvents()
}

// Flush decodes whatever remains after the stream has ended.
//
// A remainder holding data lines is decoded as one last event. Any other
// non-blank remainder is returned whole as a single KindOther chunk.
func (d *Decoder) Flush() []Chunk {
	d.decode(nil, true)
	chunks := d.drainEvents()

	rest := strings.TrimSpace(string(d.text))
	d.text = nil
	d.scanned = 0
	if rest == "" {
		return chunks
	}

	if hasDataLine(rest) {
		return append(chunks, decodeEvent(rest)...)
	}
	logging.Debug("stream_trailing_text", "bytes", len(rest))
	return append(chunks, Chunk{Kind: KindOther, Text: rest})
}

// Buffered returns the decoded text still waiting for an event boundary.
func (d *Decoder) Buffered() string {
	return string(d.text)
}

// decode moves as much of pending+p as possible into d.text.
func (d *Decoder) decode(p []byte, atEOF bool) {
	d.pending = append(d.pending, p...)
	if len(d.pending) == 0 {
		return
	}

	// Worst case every byte is invalid and becomes a 3-byte U+FFFD
	dst := make([]byte, len(d.pending)*utf8.UTFMax)
	for {
		nDst, nSrc, err := d.utf8.Transform(dst, d.pending, atEOF)
		d.text = append(d.text, dst[:nDst]...)
		d.pending = d.pending[nSrc:]

		if errors.Is(err, transform.ErrShortDst) && nSrc > 0 {
			continue
		}
		// ErrShortSrc leaves an incomplete sequence in pending
		break
	}

	if len(d.pending) == 0 {
		d.pending = nil
	} else {
		d.pending = append([]byte(nil), d.pending...)
	}
}

// drainEvents consumes every complete event from d.text.
func (d *Decoder) drainEvents() []Chunk {
	var chunks []Chunk
	for {
		idx, size := eventBoundary(d.text, d.scanned)
		if idx < 0 {
			// A boundary is at most 3 bytes and may end in the next piece
			d.scanned = max(0, len(d.text)-2)
			return chunks
		}
		event := string(d.text[:idx])
		d.text = d.text[idx+size:]
		d.scanned = 0
		chunks = append(chunks, decodeEvent(event)...)
	}
}

// eventBoundary finds the first blank line, "\n\n" or "\n\r\n", at or
// after from.
func eventBoundary(b []byte, from int) (int, int) {
	if from > len(b) {
		from = len(b)
	}
	lf := bytes.Index(b[from:], []byte("\n\n"))
	crlf := bytes.Index(b[from:], []byte("\n\r\n"))
	switch {
	case lf < 0 && crlf < 0:
		return -1, 0
	case crlf < 0 || (lf >= 0 && lf < crlf):
		return from + lf, 2
	default:
		return from + crlf, 3
	}
}

func hasDataLine(event string) bool {
	for _, line := range splitLines(event) {
		if strings.HasPrefix(line, dataPrefix) {
			return true
		}
	}
	return false
}

// splitLines splits on "\n" or "\r\n".
func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// decodeEvent returns one chunk per non-empty data line in the event.
func decodeEvent(event string) []Chunk {
	var chunks []Chunk
	for _, line := range splitLines(strings.TrimSpace(event)) {
		if !strings.HasPrefix(line, dataPrefix) {
			continue // event:, id:, retry: and comments
		}
		payload := strings.TrimSpace(line[len(dataPrefix):])
		if payload == "" {
			continue
		}
		chunks = append(chunks, ParsePayload(payload))
	}
	return chunks
}

// =============================================================================
// PAYLOAD CLASSIFICATION
// =============================================================================

// ParsePayload classifies one data payload. The first matching rule wins:
//
//  1. {"type":"session"|"chat_id", ...} with an id: KindSession
//  2. a bare JSON string: KindOther with the string
//  3. choices[0].delta: KindAnswer for content, else KindReasoning for
//     reasoning, else KindOther with the raw JSON
//  4. a top-level "content" string: KindAnswer
//  5. any other JSON: KindOther with the raw JSON
//  6. not JSON: KindOther with the payload text
func ParsePayload(payload string) Chunk {
	if !json.Valid([]byte(payload)) {
		logging.Debug("stream_chunk_malformed", "error_type", ErrTypeMalformedChunk.String(), "bytes", len(payload))
		return Chunk{Kind: KindOther, Text: payload}
	}

	if strings.HasPrefix(payload, `"`) {
		var s string
		if err := json.Unmarshal([]byte(payload), &s); err == nil {
			return Chunk{Kind: KindOther, Text: s}
		}
	}

	var p wirePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		// Valid JSON of an unexpected shape (array, number, mistyped field)
		return Chunk{Kind: KindOther, Text: payload}
	}

	if id := p.sessionValue(); id != "" {
		return Chunk{Kind: KindSession, Text: id}
	}

	if p.Choices != nil {
		var delta *wireDelta
		if len(*p.Choices) > 0 {
			delta = (*p.Choices)[0].Delta
		}
		switch {
		case delta != nil && delta.Content != "":
			return Chunk{Kind: KindAnswer, Text: delta.Content}
		case delta != nil && delta.Reasoning != "":
			return Chunk{Kind: KindReasoning, Text: delta.Reasoning}
		case delta != nil && delta.ReasoningContent != "":
			return Chunk{Kind: KindReasoning, Text: delta.ReasoningContent}
		default:
			return Chunk{Kind: KindOther, Text: payload}
		}
	}

	if p.Content != nil && *p.Content != "" {
		return Chunk{Kind: KindAnswer, Text: *p.Content}
	}

	return Chunk{Kind: KindOther, Text: payload}
}
