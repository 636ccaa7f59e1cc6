// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrPumpClosed is returned when posting to a closed pump.
var ErrPumpClosed = errors.New("notify: pump closed")

// DefaultPumpDepth is the request queue depth used when NewPump gets a
// non-positive depth.
const DefaultPumpDepth = 64

type request[K comparable] struct {
	key  K
	done chan struct{}
}

// Pump delivers Destroy calls for a hub on a single dedicated goroutine.
//
// Callbacks therefore run on the pump goroutine, never on the goroutine
// that posted the destroy. Requests are processed in posting order.
type Pump[K comparable] struct {
	hub  *Hub[K]
	reqs chan request[K]
	quit chan struct{}
	done chan struct{}

	// mu orders enqueues before the close transition: once closed is set
	// no request can enter reqs, so the final drain sees all of them.
	mu     sync.RWMutex
	closed bool

	started atomic.Bool
	fired   atomic.Uint64
}

// NewPump creates a pump for hub. Call Start to begin delivery.
func NewPump[K comparable](hub *Hub[K], depth int) *Pump[K] {
	if depth <= 0 {
		depth = DefaultPumpDepth
	}
	return &Pump[K]{
		hub:  hub,
		reqs: make(chan request[K], depth),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start launches the delivery goroutine. It stops when ctx is cancelled or
// Close is called. Start must be called at most once.
func (p *Pump[K]) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		panic("notify: Pump started twice")
	}
	go p.run(ctx)
}

// Post queues a destroy for key and returns without waiting for delivery.
func (p *Pump[K]) Post(ctx context.Context, key K) error {
	return p.send(ctx, request[K]{key: key})
}

// Deliver queues a destroy for key and waits until its callbacks have run.
func (p *Pump[K]) Deliver(ctx context.Context, key K) error {
	req := request[K]{key: key, done: make(chan struct{})}
	if err := p.send(ctx, req); err != nil {
		return err
	}
	select {
	case <-req.done:
		return nil
	case <-p.done:
		// The pump drains queued requests before exiting, unless ctx of
		// Start was cancelled first.
		select {
		case <-req.done:
			return nil
		default:
			return ErrPumpClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fired returns the number of callbacks the pump has invoked.
func (p *Pump[K]) Fired() uint64 {
	return p.fired.Load()
}

// Close stops accepting requests, delivers what is already queued and
// waits for the delivery goroutine to exit.
func (p *Pump[K]) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.quit)
	}
	p.mu.Unlock()
	if p.started.Load() {
		<-p.done
	}
}

func (p *Pump[K]) send(ctx context.Context, req request[K]) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPumpClosed
	}
	select {
	case <-p.done:
		return ErrPumpClosed
	default:
	}
	select {
	case p.reqs <- req:
		return nil
	case <-p.done:
		return ErrPumpClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pump[K]) run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case req := <-p.reqs:
			p.deliver(req)
		case <-p.quit:
			for {
				select {
				case req := <-p.reqs:
					p.deliver(req)
				default:
					return
				}
			}
		case <-ctx.Done():
			slogger().Debug("notify: pump stopped", "err", ctx.Err())
			return
		}
	}
}

func (p *Pump[K]) deliver(req request[K]) {
	n := p.hub.Destroy(req.key)
	p.fired.Add(uint64(n)) //nolint:gosec // G115: n is a non-negative count
	if req.done != nil {
		close(req.done)
	}
}
