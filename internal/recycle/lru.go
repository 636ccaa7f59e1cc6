// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package recycle

import "github.com/gogpu/gpucontext"

// slot is one parked backing. It lives in two places at once: the global
// recency list and the per-key free stack.
type slot struct {
	key  Key
	tex  gpucontext.Texture
	size uint64
	prev *slot
	next *slot
}

// lruList is a doubly-linked list of slots.
// The list is not thread-safe; callers must handle synchronization.
//
// The head is the most recently parked slot, the tail the least recent.
type lruList struct {
	head *slot
	tail *slot
	len  int
}

// Len returns the number of slots in the list.
func (l *lruList) Len() int {
	return l.len
}

// PushFront links s at the front (most recently used).
func (l *lruList) PushFront(s *slot) {
	s.prev = nil
	s.next = l.head
	if l.head != nil {
		l.head.prev = s
	}
	l.head = s
	if l.tail == nil {
		l.tail = s
	}
	l.len++
}

// Remove unlinks s from the list.
func (l *lruList) Remove(s *slot) {
	if s == nil {
		return
	}
	if s.prev != nil {
		s.prev.next = s.next
	} else {
		l.head = s.next
	}
	if s.next != nil {
		s.next.prev = s.prev
	} else {
		l.tail = s.prev
	}
	s.prev = nil
	s.next = nil
	l.len--
}

// Oldest returns the least recently parked slot, or nil.
func (l *lruList) Oldest() *slot {
	return l.tail
}

// Clear drops every slot.
func (l *lruList) Clear() {
	l.head = nil
	l.tail = nil
	l.len = 0
}
