// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package notify delivers one-shot "resource destroyed" signals.
//
// A Hub maps resource keys to subscriptions. Destroy detaches every
// subscription for a key and invokes the callbacks exactly once. The hub's
// lock is never held while a callback runs, so callbacks may Subscribe,
// Unsubscribe, or take other locks (for example a cache lock) without
// deadlocking against the hub.
//
//	hub := notify.NewHub[BufferID]()
//	tok := hub.Subscribe(id, func() { fmt.Println("buffer gone") })
//	...
//	hub.Destroy(id)      // prints once
//	hub.Unsubscribe(tok) // no-op, already fired
//
// Pump moves Destroy calls onto a dedicated goroutine, the way a display
// server delivers client destroy events from its own event loop.
package notify

import (
	"slices"
	"sync"
)

// Token identifies one subscription. The zero Token is never issued.
type Token uint64

// Hub tracks destroy subscriptions for keys of type K.
//
// Hub is safe for concurrent use.
type Hub[K comparable] struct {
	mu      sync.Mutex
	next    Token
	byKey   map[K]map[Token]func()
	byToken map[Token]K
}

// NewHub creates an empty hub.
func NewHub[K comparable]() *Hub[K] {
	return &Hub[K]{
		byKey:   make(map[K]map[Token]func()),
		byToken: make(map[Token]K),
	}
}

// Subscribe registers fn to run once when key is destroyed and returns the
// subscription's token. fn must not be nil.
func (h *Hub[K]) Subscribe(key K, fn func()) Token {
	if fn == nil {
		panic("notify: Subscribe with nil callback")
	}

	h.mu.Lock()
	h.next++
	tok := h.next
	subs := h.byKey[key]
	if subs == nil {
		subs = make(map[Token]func())
		h.byKey[key] = subs
	}
	subs[tok] = fn
	h.byToken[tok] = key
	h.mu.Unlock()

	slogger().Debug("notify: subscribed", "key", key, "token", uint64(tok))
	return tok
}

// Unsubscribe cancels a subscription. It is idempotent: unknown tokens,
// tokens whose callback already fired, and the zero Token are ignored.
func (h *Hub[K]) Unsubscribe(tok Token) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key, ok := h.byToken[tok]
	if !ok {
		return
	}
	delete(h.byToken, tok)
	subs := h.byKey[key]
	delete(subs, tok)
	if len(subs) == 0 {
		delete(h.byKey, key)
	}
}

// Destroy announces that key has been destroyed. Every subscription for key
// is detached under the hub lock and its callback then runs, in
// subscription order, after the lock is released. It returns the number of
// callbacks invoked.
func (h *Hub[K]) Destroy(key K) int {
	h.mu.Lock()
	subs := h.byKey[key]
	delete(h.byKey, key)
	toks := make([]Token, 0, len(subs))
	for tok := range subs {
		delete(h.byToken, tok)
		toks = append(toks, tok)
	}
	h.mu.Unlock()

	slices.Sort(toks)
	slogger().Debug("notify: destroy", "key", key, "subscribers", len(toks))
	for _, tok := range toks {
		subs[tok]()
	}
	return len(toks)
}

// Pending returns the number of armed subscriptions for key.
func (h *Hub[K]) Pending(key K) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byKey[key])
}

// Len returns the total number of armed subscriptions.
func (h *Hub[K]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byToken)
}
