// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rc

import (
	"math"
	"sync/atomic"
)

// Count layout inside the 64-bit word: public count in the low half,
// private count in the high half. A single word keeps "both counts are
// zero" observable by exactly one decrement.
const (
	publicOne  uint64 = 1
	privateOne uint64 = 1 << 32
	halfMask   uint64 = privateOne - 1
)

// Object is the capability surface of a reference-counted resource.
//
// It is implemented by *Counter, *Owned and by every type that embeds one
// of them. Code that must manipulate counts without knowing the concrete
// type (heterogeneous collections, type-erased boundaries) holds a
// Ref[Object]; everything else should use Ref of the concrete pointer type.
type Object interface {
	// IncRef increments the public count and returns the new public count.
	IncRef() uint32

	// DecRef decrements the public count and returns the new public count.
	DecRef() uint32

	// GetRefCount returns the current public count.
	GetRefCount() uint32

	// IncRefPrivate increments the private count and returns it.
	IncRefPrivate() uint32

	// DecRefPrivate decrements the private count and returns it.
	DecRefPrivate() uint32

	// GetRefCountPrivate returns the current private count.
	GetRefCountPrivate() uint32
}

// Counter is the non-owning reference-count primitive.
// Reaching zero has no side effect; the object's lifetime is managed by
// someone else. The zero value is ready to use with both counts at zero.
//
// Counter must not be copied after first use.
type Counter struct {
	word atomic.Uint64
}

// IncRef increments the public count.
func (c *Counter) IncRef() uint32 {
	return publicHalf(c.add(publicOne))
}

// DecRef decrements the public count.
// Panics if the public count is already zero.
func (c *Counter) DecRef() uint32 {
	return publicHalf(c.sub(publicOne))
}

// GetRefCount returns the public count.
func (c *Counter) GetRefCount() uint32 {
	return publicHalf(c.word.Load())
}

// IncRefPrivate increments the private count.
func (c *Counter) IncRefPrivate() uint32 {
	return privateHalf(c.add(privateOne))
}

// DecRefPrivate decrements the private count.
// Panics if the private count is already zero.
func (c *Counter) DecRefPrivate() uint32 {
	return privateHalf(c.sub(privateOne))
}

// GetRefCountPrivate returns the private count.
func (c *Counter) GetRefCountPrivate() uint32 {
	return privateHalf(c.word.Load())
}

func (c *Counter) add(delta uint64) uint64 {
	return c.word.Add(delta)
}

// sub removes delta and returns the full word after the update.
func (c *Counter) sub(delta uint64) uint64 {
	w := c.word.Add(-delta)
	// A borrow out of either half leaves that half saturated.
	if delta == publicOne && publicHalf(w) == math.MaxUint32 ||
		delta == privateOne && privateHalf(w) == math.MaxUint32 {
		panic("rc: too many releases")
	}
	return w
}

func publicHalf(w uint64) uint32 {
	return uint32(w & halfMask) //nolint:gosec // G115: masked to 32 bits
}

func privateHalf(w uint64) uint32 {
	return uint32(w >> 32) //nolint:gosec // G115: upper half
}

// Owned is the owning reference-count primitive.
//
// When the last reference (public or private) is released, the destructor
// registered with SetDestructor runs exactly once, on the goroutine that
// released that reference. Taking a new reference to a destroyed object is
// a use-after-free and panics.
//
// Owned must not be copied after first use.
type Owned struct {
	Counter
	destroyed atomic.Bool
	onZero    func()
}

// SetDestructor registers fn to run when the object's last reference is
// released. It must be called before the object is shared.
func (o *Owned) SetDestructor(fn func()) {
	o.onZero = fn
}

// Destroyed reports whether the destructor has run.
func (o *Owned) Destroyed() bool {
	return o.destroyed.Load()
}

// IncRef increments the public count.
func (o *Owned) IncRef() uint32 {
	n := publicHalf(o.add(publicOne))
	o.checkAlive()
	return n
}

// DecRef decrements the public count and destroys the object when no
// reference of either kind remains.
func (o *Owned) DecRef() uint32 {
	w := o.sub(publicOne)
	if w == 0 {
		o.finalize()
	}
	return publicHalf(w)
}

// IncRefPrivate increments the private count.
func (o *Owned) IncRefPrivate() uint32 {
	n := privateHalf(o.add(privateOne))
	o.checkAlive()
	return n
}

// DecRefPrivate decrements the private count and destroys the object when
// no reference of either kind remains.
func (o *Owned) DecRefPrivate() uint32 {
	w := o.sub(privateOne)
	if w == 0 {
		o.finalize()
	}
	return privateHalf(w)
}

func (o *Owned) checkAlive() {
	if o.destroyed.Load() {
		panic("rc: reference taken on destroyed object")
	}
}

func (o *Owned) finalize() {
	if !o.destroyed.CompareAndSwap(false, true) {
		return
	}
	if o.onZero != nil {
		o.onZero()
	}
}
