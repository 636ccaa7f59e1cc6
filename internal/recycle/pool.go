// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package recycle parks the backing storage of destroyed textures so a
// later texture of the same size and format can reuse it instead of
// allocating. Parked backings are bounded by a byte budget and evicted
// least recently parked first.
package recycle

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DefaultBudget is the parked-bytes budget used when New gets zero.
const DefaultBudget = 64 << 20

// Key identifies interchangeable backings.
type Key struct {
	Width  int
	Height int
	Format gputypes.TextureFormat
}

// Stats contains pool statistics.
type Stats struct {
	Parked    int    // Backings currently parked
	UsedBytes uint64 // Bytes currently parked
	Budget    uint64 // Byte budget
	Hits      uint64 // Get calls that returned a backing
	Misses    uint64 // Get calls that found nothing
	Evictions uint64 // Backings destroyed to stay within budget
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Recycle[%d parked, %d/%d KB, %d hits, %d misses, %d evictions]",
		s.Parked, s.UsedBytes/1024, s.Budget/1024, s.Hits, s.Misses, s.Evictions)
}

// Pool holds parked backings.
//
// Pool is safe for concurrent use. The destroy function is never called
// with the pool lock held.
type Pool struct {
	mu      sync.Mutex
	budget  uint64
	used    uint64
	free    map[Key][]*slot
	lru     lruList
	destroy func(gpucontext.Texture)
	closed  bool

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a pool that parks at most budget bytes. destroy releases a
// backing for good; it is called for evicted backings and on Close.
func New(budget uint64, destroy func(gpucontext.Texture)) *Pool {
	if budget == 0 {
		budget = DefaultBudget
	}
	if destroy == nil {
		destroy = func(gpucontext.Texture) {}
	}
	return &Pool{
		budget:  budget,
		free:    make(map[Key][]*slot),
		destroy: destroy,
	}
}

// Get takes a parked backing for k out of the pool.
func (p *Pool) Get(k Key) (gpucontext.Texture, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stack := p.free[k]
	if p.closed || len(stack) == 0 {
		p.misses.Add(1)
		return nil, false
	}
	s := stack[len(stack)-1]
	p.popLocked(s)
	p.hits.Add(1)
	return s.tex, true
}

// Put parks tex under k. It reports false, leaving tex untouched, when the
// pool is closed or tex alone exceeds the budget; the caller then destroys
// tex itself. Parking may evict older backings.
func (p *Pool) Put(k Key, tex gpucontext.Texture, size uint64) bool {
	if tex == nil {
		return false
	}

	p.mu.Lock()
	if p.closed || size > p.budget {
		p.mu.Unlock()
		return false
	}
	var evicted []gpucontext.Texture
	for p.used+size > p.budget {
		old := p.lru.Oldest()
		p.popLocked(old)
		evicted = append(evicted, old.tex)
	}
	s := &slot{key: k, tex: tex, size: size}
	p.free[k] = append(p.free[k], s)
	p.lru.PushFront(s)
	p.used += size
	p.mu.Unlock()

	p.evictions.Add(uint64(len(evicted)))
	for _, t := range evicted {
		p.destroy(t)
	}
	return true
}

// Len returns the number of parked backings.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lru.Len()
}

// Stats returns current statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	parked, used := p.lru.Len(), p.used
	p.mu.Unlock()
	return Stats{
		Parked:    parked,
		UsedBytes: used,
		Budget:    p.budget,
		Hits:      p.hits.Load(),
		Misses:    p.misses.Load(),
		Evictions: p.evictions.Load(),
	}
}

// Close destroys every parked backing. Later Put calls report false and
// Get calls miss.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	parked := make([]gpucontext.Texture, 0, p.lru.Len())
	for s := p.lru.head; s != nil; s = s.next {
		parked = append(parked, s.tex)
	}
	p.lru.Clear()
	clear(p.free)
	p.used = 0
	p.mu.Unlock()

	for _, t := range parked {
		p.destroy(t)
	}
}

// popLocked unlinks s from both indexes.
func (p *Pool) popLocked(s *slot) {
	p.lru.Remove(s)
	stack := p.free[s.key]
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == s {
			stack = append(stack[:i], stack[i+1:]...)
			break
		}
	}
	if len(stack) == 0 {
		delete(p.free, s.key)
	} else {
		p.free[s.key] = stack
	}
	p.used -= s.size
}
