// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sort"

	"github.com/jeranaias/folio/internal/logging"
)

// =============================================================================
// OBSERVERS
// =============================================================================

// Subscribe registers fn to receive every new state. Calls are serialized and
// arrive in increasing Version order; a snapshot superseded before delivery
// may be skipped. fn runs on the goroutine that made the change and must not
// call Machine methods other than Snapshot.
//
// The returned function removes the subscription.
func (m *Machine) Subscribe(fn func(State)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	m.subMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// notify delivers snapshot unless a newer one already went out.
func (m *Machine) notify(snapshot State) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	if snapshot.Version <= m.delivered {
		return
	}
	m.delivered = snapshot.Version

	m.subMu.Lock()
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(State), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, m.subs[id])
	}
	m.subMu.Unlock()

	for _, fn := range handlers {
		deliver(fn, snapshot)
	}
}

// deliver calls fn, containing any panic so one observer cannot break the others.
func deliver(fn func(State), snapshot State) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("observer_panic", "version", snapshot.Version, "panic", r)
		}
	}()
	fn(snapshot)
}
