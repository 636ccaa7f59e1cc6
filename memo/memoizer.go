// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package memo binds externally owned buffer keys to reference-counted
// textures and drops each binding exactly once when the buffer's owner
// announces its destruction.
//
// The Memoizer holds one private reference per cached texture. Lookup hands
// out public references, so the texture's public count always equals the
// number of handles held outside the cache. When the buffer is destroyed the
// entry asserts that no public handle is outstanding, removes itself and
// releases the private reference, which destroys an rc.Owned texture.
//
// Two locks take part: the Memoizer's own mutex and the Notifier's. They are
// never held together. Memoize subscribes after unlocking, Unmemoize
// unsubscribes after unlocking, and the Notifier must invoke callbacks
// without its lock held (notify.Hub does). A destroy callback may therefore
// run synchronously inside Notifier code and still call back into the
// Memoizer.
package memo

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/texmemo/notify"
	"github.com/gogpu/texmemo/rc"
)

// Notifier delivers one-shot destroy signals for buffer keys.
// notify.Hub implements it.
type Notifier[K comparable] interface {
	// Subscribe registers fn to run at most once when key is destroyed.
	Subscribe(key K, fn func()) notify.Token

	// Unsubscribe cancels a subscription. Must be idempotent.
	Unsubscribe(tok notify.Token)
}

// Stats holds memoizer statistics.
type Stats struct {
	Len      int    // Current number of entries
	Hits     uint64 // Lookups that found an entry
	Misses   uint64 // Lookups that found nothing
	Memoized uint64 // Entries inserted
	Evicted  uint64 // Entries removed (by destroy, Unmemoize or Clear)
}

// HitRate returns Hits / (Hits + Misses), or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Memoizer maps buffer keys to cached textures.
//
// Lookup is safe to call concurrently with any other method. Memoize and
// Unmemoize for the same key must be serialized by the caller.
//
// Memoizer must not be copied after creation (has mutex).
type Memoizer[K comparable, T rc.Object] struct {
	mu       sync.Mutex
	entries  map[K]*entry[K, T]
	notifier Notifier[K]

	hits     atomic.Uint64
	misses   atomic.Uint64
	memoized atomic.Uint64
	evicted  atomic.Uint64
}

// New creates an empty memoizer that arms destroy callbacks on notifier.
func New[K comparable, T rc.Object](notifier Notifier[K]) *Memoizer[K, T] {
	if notifier == nil {
		panic("memo: nil notifier")
	}
	return &Memoizer[K, T]{
		entries:  make(map[K]*entry[K, T]),
		notifier: notifier,
	}
}

// Lookup returns a new public reference to the texture cached for key.
// A miss returns an empty handle and false.
func (m *Memoizer[K, T]) Lookup(key K) (rc.Ref[T], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		m.misses.Add(1)
		slogger().Debug("memo: miss", "key", key)
		return rc.Ref[T]{}, false
	}
	m.hits.Add(1)
	return e.held.Public(), true
}

// Memoize caches tex for key. The memoizer takes a private reference to
// tex; the caller's references are unaffected. Memoizing a key that is
// already present panics.
//
// The destroy subscription is armed after the memoizer lock is released.
func (m *Memoizer[K, T]) Memoize(key K, tex T) {
	e := m.insert(key, tex)
	e.finalize()
}

func (m *Memoizer[K, T]) insert(key K, tex T) *entry[K, T] {
	held := rc.NewPrivate(tex)
	if held.IsNil() {
		panic("memo: Memoize with nil texture")
	}

	m.mu.Lock()
	if _, dup := m.entries[key]; dup {
		m.mu.Unlock()
		held.Release()
		slogger().Error("memo: duplicate memoize", "key", key)
		panic(fmt.Sprintf("memo: key %v already memoized", key))
	}
	e := &entry[K, T]{owner: m, key: key, held: held, tex: tex}
	m.entries[key] = e
	m.mu.Unlock()

	m.memoized.Add(1)
	slogger().Debug("memo: memoized", "key", key)
	return e
}

// Unmemoize removes the entry for key and releases the memoizer's private
// reference, outside the memoizer lock. Unmemoizing an absent key panics.
//
// Unmemoize may be called from the entry's own destroy callback.
func (m *Memoizer[K, T]) Unmemoize(key K) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		m.mu.Unlock()
		slogger().Error("memo: unmemoize of absent key", "key", key)
		panic(fmt.Sprintf("memo: key %v not memoized", key))
	}
	delete(m.entries, key)
	m.mu.Unlock()

	m.evicted.Add(1)
	e.close()
}

// ErrNilTexture is returned by GetOrCreate when build succeeds with an
// empty handle.
var ErrNilTexture = errors.New("memo: build returned an empty texture")

// GetOrCreate returns a public reference to the texture cached for key,
// building and memoizing one on a miss. build runs outside every lock and
// returns an owning handle that GetOrCreate hands back to the caller.
//
// Like Memoize, GetOrCreate must be serialized with other writers for the
// same key.
func (m *Memoizer[K, T]) GetOrCreate(key K, build func() (rc.Ref[T], error)) (rc.Ref[T], error) {
	if ref, ok := m.Lookup(key); ok {
		return ref, nil
	}
	ref, err := build()
	if err != nil {
		return rc.Ref[T]{}, fmt.Errorf("memo: build %v: %w", key, err)
	}
	if ref.IsNil() {
		return rc.Ref[T]{}, ErrNilTexture
	}
	m.Memoize(key, ref.Get())
	return ref, nil
}

// Contains reports whether key is memoized.
func (m *Memoizer[K, T]) Contains(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

// Len returns the number of entries.
func (m *Memoizer[K, T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Clear removes every entry. Teardown of the detached entries happens after
// the lock is released. It returns the number of entries removed.
func (m *Memoizer[K, T]) Clear() int {
	m.mu.Lock()
	detached := make([]*entry[K, T], 0, len(m.entries))
	for _, e := range m.entries {
		detached = append(detached, e)
	}
	clear(m.entries)
	m.mu.Unlock()

	m.evicted.Add(uint64(len(detached)))
	for _, e := range detached {
		e.close()
	}
	return len(detached)
}

// Stats returns current statistics. Counters are read atomically and are
// not a consistent snapshot across fields.
func (m *Memoizer[K, T]) Stats() Stats {
	return Stats{
		Len:      m.Len(),
		Hits:     m.hits.Load(),
		Misses:   m.misses.Load(),
		Memoized: m.memoized.Load(),
		Evicted:  m.evicted.Load(),
	}
}

// ResetStats resets the hit and miss counters.
func (m *Memoizer[K, T]) ResetStats() {
	m.hits.Store(0)
	m.misses.Store(0)
}

// evict is the destroy-callback path: it removes e only if e is still the
// live entry for its key.
func (m *Memoizer[K, T]) evict(e *entry[K, T]) bool {
	m.mu.Lock()
	cur, ok := m.entries[e.key]
	if !ok || cur != e {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()
	m.Unmemoize(e.key)
	return true
}
