// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the portfolio chat API.
//
// It covers the three backend calls folio needs and decodes the streamed
// chat response into typed chunks.
//
// # Key Types
//
//   - Client: Health check, history fetch and streaming send
//   - Stream: Lazy, non-restartable sequence of chunks from one send
//   - Chunk: One decoded event, tagged reasoning, answer, session or other
//   - Decoder: Incremental event-stream decoder, usable on its own
//   - ClientError: Typed error with status code and response body
//
// # Usage
//
//	client := backend.NewClient(backend.DefaultConfig(), sess)
//	if !client.CheckHealth(ctx) {
//	    // show the unavailable notice
//	}
//
//	stream, err := client.StreamSend(ctx, "What have you built?")
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for {
//	    chunk, err := stream.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err // backend.IsStreamFailure(err)
//	    }
//	    switch chunk.Kind { ... }
//	}
//
// # Wire Format
//
// The chat response is a sequence of event blocks separated by a blank line.
// Each block holds one or more "data:" lines carrying a JSON or plain-text
// payload. Session assignment arrives as {"type":"session","session":"..."}
// or {"type":"chat_id","chat_id":"..."} and is persisted before the stream
// moves on.
package backend
