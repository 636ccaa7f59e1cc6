// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rc

// Ref is an owning handle to a reference-counted object.
//
// A Ref holds at most one reference, either public or private. The zero
// value is an empty handle. Ref values are small and cheap to pass, but a
// plain Go assignment (b := a) does not take a reference: use Clone to copy,
// Move to transfer, and Assign/AssignMove to overwrite a live handle.
type Ref[T Object] struct {
	obj     T
	private bool
}

// New returns a public handle to obj, incrementing its public count.
// A nil obj yields an empty handle and has no effect.
func New[T Object](obj T) Ref[T] {
	if isNil(obj) {
		return Ref[T]{}
	}
	obj.IncRef()
	return Ref[T]{obj: obj}
}

// NewPrivate returns a private handle to obj, incrementing its private count.
// A nil obj yields an empty handle and has no effect.
func NewPrivate[T Object](obj T) Ref[T] {
	if isNil(obj) {
		return Ref[T]{}
	}
	obj.IncRefPrivate()
	return Ref[T]{obj: obj, private: true}
}

// Get returns the referenced object without touching its count.
// Calling Get on an empty handle is a contract violation and panics.
func (r Ref[T]) Get() T {
	if isNil(r.obj) {
		panic("rc: Get on empty Ref")
	}
	return r.obj
}

// IsNil reports whether the handle is empty.
func (r Ref[T]) IsNil() bool {
	return isNil(r.obj)
}

// IsPrivate reports whether the handle holds a private reference.
func (r Ref[T]) IsPrivate() bool {
	return r.private && !isNil(r.obj)
}

// Is reports whether the handle refers to obj.
func (r Ref[T]) Is(obj T) bool {
	return !isNil(r.obj) && same(r.obj, obj)
}

// Equal reports whether both handles refer to the same object.
// Visibility (public or private) is not part of identity.
func (r Ref[T]) Equal(other Ref[T]) bool {
	return same(r.obj, other.obj)
}

// Clone returns a new handle of the same visibility to the same object.
func (r Ref[T]) Clone() Ref[T] {
	if isNil(r.obj) {
		return Ref[T]{}
	}
	acquire(r.obj, r.private)
	return Ref[T]{obj: r.obj, private: r.private}
}

// Public returns a new public handle to the referenced object,
// whatever the visibility of r.
func (r Ref[T]) Public() Ref[T] {
	return New(r.obj)
}

// Move transfers the reference out of r. r becomes empty and no count
// changes.
func (r *Ref[T]) Move() Ref[T] {
	out := *r
	*r = Ref[T]{}
	return out
}

// Assign makes r refer to the same object as other, taking a new reference
// of other's visibility. The new target is incremented before the old one
// is decremented, so assigning a handle over another handle to the same
// object (including itself) never lets the count reach zero.
func (r *Ref[T]) Assign(other Ref[T]) {
	if !isNil(other.obj) {
		acquire(other.obj, other.private)
	}
	old := *r
	*r = Ref[T]{obj: other.obj, private: other.private}
	old.Release()
}

// AssignMove transfers other's reference into r and releases r's previous
// reference afterwards. Moving a handle onto itself is a no-op.
func (r *Ref[T]) AssignMove(other *Ref[T]) {
	if r == other {
		return
	}
	moved := other.Move()
	old := *r
	*r = moved
	old.Release()
}

// Release drops the held reference, if any, and empties the handle.
// For owning objects the destructor runs when this was the last reference.
func (r *Ref[T]) Release() {
	if isNil(r.obj) {
		return
	}
	obj, private := r.obj, r.private
	*r = Ref[T]{}
	release(obj, private)
}

// Upcast returns a type-erased handle to the same object, taking a new
// reference of the same visibility.
func Upcast[T Object](r Ref[T]) Ref[Object] {
	if isNil(r.obj) {
		return Ref[Object]{}
	}
	acquire(r.obj, r.private)
	return Ref[Object]{obj: r.obj, private: r.private}
}

// UpcastMove transfers r's reference into a type-erased handle.
// r becomes empty and no count changes.
func UpcastMove[T Object](r *Ref[T]) Ref[Object] {
	moved := r.Move()
	if isNil(moved.obj) {
		return Ref[Object]{}
	}
	return Ref[Object]{obj: moved.obj, private: moved.private}
}

// Downcast returns a handle of the concrete type T to the object referenced
// by r, taking a new reference. It reports false, with no count change, when
// r is empty or refers to an object of another type.
func Downcast[T Object](r Ref[Object]) (Ref[T], bool) {
	if isNil(r.obj) {
		return Ref[T]{}, false
	}
	obj, ok := r.obj.(T)
	if !ok {
		return Ref[T]{}, false
	}
	acquire(obj, r.private)
	return Ref[T]{obj: obj, private: r.private}, true
}

func acquire(obj Object, private bool) {
	if private {
		obj.IncRefPrivate()
		return
	}
	obj.IncRef()
}

func release(obj Object, private bool) {
	if private {
		obj.DecRefPrivate()
		return
	}
	obj.DecRef()
}

// isNil reports whether obj is the zero value of T (a nil pointer or a nil
// interface).
func isNil[T Object](obj T) bool {
	var zero T
	return any(obj) == any(zero)
}

func same[T Object](a, b T) bool {
	return any(a) == any(b)
}
