// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	convo "github.com/jeranaias/folio/internal/chat"
)

// DefaultMaxFPS caps redraws while a reply is streaming.
const DefaultMaxFPS = 30

// =============================================================================
// RELAY
// =============================================================================

// Relay forwards machine snapshots into a Bubble Tea program.
//
// Only the newest pending snapshot is kept. While a reply is streaming,
// deliveries are paced by a token bucket; any other snapshot is delivered
// without delay. Delivery always happens on a timer goroutine, never on the
// goroutine that changed the machine, so machine calls made from Update can
// not block on the program's message channel.
//
// Thread-safety: offer may be called from any goroutine.
type Relay struct {
	sendMu sync.Mutex
	sent   uint64

	mu          sync.Mutex
	limiter     *rate.Limiter
	send        func(tea.Msg)
	latest      convo.State
	pending     bool
	timer       *time.Timer
	unsubscribe func()
	closed      bool
}

// NewRelay creates a relay that redraws at most maxFPS times per second
// while streaming. maxFPS <= 0 uses DefaultMaxFPS.
func NewRelay(maxFPS int) *Relay {
	if maxFPS <= 0 {
		maxFPS = DefaultMaxFPS
	}
	return &Relay{
		limiter: rate.NewLimiter(rate.Limit(maxFPS), 1),
	}
}

// Attach subscribes to machine and delivers snapshots through send,
// typically tea.Program.Send.
func (r *Relay) Attach(machine *convo.Machine, send func(tea.Msg)) {
	r.mu.Lock()
	r.send = send
	r.mu.Unlock()

	unsubscribe := machine.Subscribe(r.offer)

	r.mu.Lock()
	r.unsubscribe = unsubscribe
	r.mu.Unlock()
}

// Close stops delivery and removes the subscription.
func (r *Relay) Close() {
	r.mu.Lock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// offer records snapshot and schedules a delivery if none is pending.
func (r *Relay) offer(snapshot convo.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.send == nil {
		return
	}
	if r.pending && snapshot.Version <= r.latest.Version {
		return
	}
	r.latest = snapshot
	r.pending = true

	if r.timer != nil {
		return
	}

	var delay time.Duration
	if snapshot.Sending {
		delay = r.limiter.Reserve().Delay()
	}
	r.timer = time.AfterFunc(delay, r.flush)
}

// flush delivers the newest pending snapshot. Deliveries are serialized and
// never go backwards in Version.
func (r *Relay) flush() {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	r.mu.Lock()
	r.timer = nil
	if r.closed || !r.pending {
		r.mu.Unlock()
		return
	}
	snapshot := r.latest
	send := r.send
	r.pending = false
	r.mu.Unlock()

	if snapshot.Version <= r.sent {
		return
	}
	r.sent = snapshot.Version
	send(StateMsg{State: snapshot})
}
