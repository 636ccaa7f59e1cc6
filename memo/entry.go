// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package memo

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/texmemo/notify"
	"github.com/gogpu/texmemo/rc"
)

// entry binds one buffer key to the private texture reference the memoizer
// holds for it.
//
// Lifecycle: inserted by Memoize, armed by finalize once the memoizer lock
// is released, torn down by close after removal from the map.
type entry[K comparable, T rc.Object] struct {
	owner *Memoizer[K, T]
	key   K
	held  rc.Ref[T]

	// tex is the object held refers to. It never changes, so the destroy
	// callback can read counts while close empties held.
	tex T

	// token and the flags are touched by the goroutine that memoized the
	// entry and by the notifier's goroutine, with no common lock.
	token     atomic.Uint64
	finalized atomic.Bool
	closed    atomic.Bool
}

// finalize arms the destroy subscription. It runs exactly once, after the
// entry is visible in the map and the memoizer lock has been released.
func (e *entry[K, T]) finalize() {
	if !e.finalized.CompareAndSwap(false, true) {
		slogger().Error("memo: entry finalized twice", "key", e.key)
		panic(fmt.Sprintf("memo: entry for %v finalized twice", e.key))
	}
	tok := e.owner.notifier.Subscribe(e.key, e.onBufferDestroyed)
	e.token.Store(uint64(tok))

	// Unmemoize may have torn the entry down while Subscribe ran.
	if e.closed.Load() {
		e.owner.notifier.Unsubscribe(tok)
	}
}

// onBufferDestroyed runs at most once, from the notifier. No public handle
// may outlive the buffer: a live one means a consumer kept a texture past
// its buffer's lifetime.
func (e *entry[K, T]) onBufferDestroyed() {
	if e.closed.Load() {
		return
	}
	if n := e.tex.GetRefCount(); n != 0 {
		slogger().Error("memo: buffer destroyed while texture in use",
			"key", e.key, "refs", n)
		panic(fmt.Sprintf("memo: buffer %v destroyed with %d texture references outstanding", e.key, n))
	}
	slogger().Debug("memo: buffer destroyed", "key", e.key)

	// May close e synchronously. Do not touch e afterwards.
	e.owner.evict(e)
}

// close unsubscribes and then releases the private reference. For an
// rc.Owned texture with no public handles this destroys it.
func (e *entry[K, T]) close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.owner.notifier.Unsubscribe(notify.Token(e.token.Load()))
	e.held.Release()
}
