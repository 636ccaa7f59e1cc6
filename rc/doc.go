// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package rc provides intrusive, atomically counted strong references.
//
// A resource type opts into reference counting by embedding one of two
// primitives:
//
//	// Owning: the destructor runs when the last reference is released.
//	type Texture struct {
//	    rc.Owned
//	    ...
//	}
//
//	// Non-owning: the count is informational, lifetime is managed elsewhere.
//	type Surface struct {
//	    rc.Counter
//	    ...
//	}
//
// # Public and Private Counts
//
// Every object carries two counts packed in one atomic word. The public
// count tracks references held by consumers; the private count tracks
// references held by infrastructure such as caches. An owning object is
// destroyed only when both counts reach zero, and code that must know
// whether anybody outside the infrastructure still uses an object checks
// the public count alone:
//
//	if tex.GetRefCount() != 0 {
//	    // still visible to a consumer
//	}
//
// # Handles
//
// Ref[T] is the owning handle. It is a small value type that holds at most
// one reference and enforces the increment/decrement discipline:
//
//	ref := rc.New(tex)      // public count +1
//	dup := ref.Clone()      // public count +1
//	moved := dup.Move()     // no change, dup is now empty
//	moved.Release()         // public count -1
//	ref.Release()           // public count -1, destructor may run
//
// Ref[*Texture] dispatches statically. Ref[Object] is the type-erased form
// for heterogeneous storage; Upcast and Downcast convert between the two.
//
// # Thread Safety
//
// Counter and Owned are safe for concurrent use. A single Ref value is not:
// share references between goroutines by cloning, not by sharing the Ref.
package rc
