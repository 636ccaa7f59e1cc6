// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package texmemo

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/texmemo/memo"
	"github.com/gogpu/texmemo/notify"
	"github.com/gogpu/texmemo/rc"
)

// CacheStats combines memoizer and provider statistics.
type CacheStats struct {
	Memo        memo.Stats
	Provider    ProviderStats
	Subscribers int    // Armed destroy subscriptions
	Delivered   uint64 // Destroy callbacks fired by the pump
}

// String returns a human-readable representation of the stats.
func (s CacheStats) String() string {
	return fmt.Sprintf("Cache[%d entries, %d subscribers, hit rate %.1f%%, %d evicted] %s",
		s.Memo.Len, s.Subscribers, s.Memo.HitRate()*100, s.Memo.Evicted, s.Provider)
}

// Cache binds client buffers to cached textures.
//
// Each attached buffer gets at most one texture. The texture stays cached
// until the buffer's owner destroys the buffer (Destroy or DestroyAsync),
// at which point the entry drops its private reference. Destroying a buffer
// whose texture is still held by a consumer is an ownership bug and panics.
//
// Lookups (Texture) may run from any goroutine. Attach, Preload, Commit,
// Destroy, DestroyAsync and Close are serialized internally, so a destroy
// that arrives while the same buffer is being built waits for the build and
// then evicts it. Destroy callbacks registered on Hub must therefore not
// call back into those methods.
type Cache struct {
	provider     *Provider
	ownsProvider bool

	hub  *notify.Hub[BufferID]
	memo *memo.Memoizer[BufferID, *Texture]

	pump   *notify.Pump[BufferID]
	cancel context.CancelFunc

	// writeMu serializes writers and destroys per the memoizer contract.
	// The destroy callback path never takes it.
	writeMu sync.Mutex

	closeOnce sync.Once
	closed    atomic.Bool
}

// NewCache creates a cache with its own provider.
//
// Example:
//
//	c, err := texmemo.NewCache(texmemo.WithBackend("software"))
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
func NewCache(opts ...Option) (*Cache, error) {
	o := buildOptions(opts)
	p, err := newProvider(o)
	if err != nil {
		return nil, err
	}
	c := newCache(p, o)
	c.ownsProvider = true
	return c, nil
}

// MustNewCache is like NewCache but panics on error.
func MustNewCache(opts ...Option) *Cache {
	c, err := NewCache(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// NewCacheWithProvider creates a cache that builds textures with p.
// The caller keeps ownership of p. Creator, backend and recycling options
// are ignored.
func NewCacheWithProvider(p *Provider, opts ...Option) *Cache {
	if p == nil {
		panic("texmemo: NewCacheWithProvider with nil provider")
	}
	o := buildOptions(opts)
	if o.logger != nil {
		SetLogger(o.logger)
	}
	return newCache(p, o)
}

func newCache(p *Provider, o options) *Cache {
	hub := notify.NewHub[BufferID]()
	c := &Cache{
		provider: p,
		hub:      hub,
		memo:     memo.New[BufferID, *Texture](hub),
	}
	if o.pumpDepth != 0 {
		depth := o.pumpDepth
		if depth < 0 {
			depth = notify.DefaultPumpDepth
		}
		ctx, cancel := context.WithCancel(context.Background())
		c.pump = notify.NewPump(hub, depth)
		c.cancel = cancel
		c.pump.Start(ctx)
	}
	slogger().Info("texmemo: cache created", "backend", p.Backend(), "pump", c.pump != nil)
	return c
}

// Provider returns the provider the cache builds textures with.
func (c *Cache) Provider() *Provider {
	return c.provider
}

// Hub returns the notification hub that destroy signals go through.
// Other components may subscribe to buffer destruction on it.
func (c *Cache) Hub() *notify.Hub[BufferID] {
	return c.hub
}

// Attach returns the texture for buf, building and caching one on first
// attach. The returned reference is owned by the caller.
func (c *Cache) Attach(buf *Buffer) (rc.Ref[*Texture], error) {
	if err := buf.Validate(); err != nil {
		return rc.Ref[*Texture]{}, err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.attachLocked(buf)
}

// Preload builds and caches the texture for buf without handing out a
// reference, so the buffer can be destroyed at any time afterwards.
func (c *Cache) Preload(buf *Buffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ref, err := c.attachLocked(buf)
	if err != nil {
		return err
	}
	ref.Release()
	return nil
}

func (c *Cache) attachLocked(buf *Buffer) (rc.Ref[*Texture], error) {
	if c.closed.Load() {
		return rc.Ref[*Texture]{}, ErrCacheClosed
	}
	return c.memo.GetOrCreate(buf.ID, func() (rc.Ref[*Texture], error) {
		return c.provider.Build(buf)
	})
}

// Commit attaches buf and, when a texture was already cached, uploads the
// new contents into it. With damage rectangles only those regions are
// uploaded.
func (c *Cache) Commit(buf *Buffer, damage ...image.Rectangle) (rc.Ref[*Texture], error) {
	if err := buf.Validate(); err != nil {
		return rc.Ref[*Texture]{}, err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return rc.Ref[*Texture]{}, ErrCacheClosed
	}

	ref, ok := c.memo.Lookup(buf.ID)
	if !ok {
		return c.attachLocked(buf)
	}
	if err := update(ref.Get(), buf, damage); err != nil {
		ref.Release()
		return rc.Ref[*Texture]{}, fmt.Errorf("texmemo: commit buffer %d: %w", buf.ID, err)
	}
	return ref, nil
}

func update(t *Texture, buf *Buffer, damage []image.Rectangle) error {
	if len(damage) == 0 {
		return t.Update(buf)
	}
	for _, r := range damage {
		if err := t.UpdateRegion(buf, r); err != nil {
			return err
		}
	}
	return nil
}

// Texture returns a new reference to the texture cached for id.
func (c *Cache) Texture(id BufferID) (rc.Ref[*Texture], bool) {
	return c.memo.Lookup(id)
}

// Contains reports whether a texture is cached for id.
func (c *Cache) Contains(id BufferID) bool {
	return c.memo.Contains(id)
}

// Destroy announces that the buffer id was destroyed by its owner. The
// destroy callbacks run on the calling goroutine. It returns the number of
// callbacks that fired.
func (c *Cache) Destroy(id BufferID) int {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.hub.Destroy(id)
}

// DestroyAsync hands the destroy signal for id to the notification pump and
// waits until its callbacks have run. Without WithPump it behaves like
// Destroy.
func (c *Cache) DestroyAsync(ctx context.Context, id BufferID) error {
	if c.pump == nil {
		c.Destroy(id)
		return nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.pump.Deliver(ctx, id); err != nil {
		return fmt.Errorf("texmemo: destroy buffer %d: %w", id, err)
	}
	return nil
}

// Len returns the number of cached textures.
func (c *Cache) Len() int {
	return c.memo.Len()
}

// Stats returns current statistics.
func (c *Cache) Stats() CacheStats {
	s := CacheStats{
		Memo:        c.memo.Stats(),
		Provider:    c.provider.Stats(),
		Subscribers: c.hub.Len(),
	}
	if c.pump != nil {
		s.Delivered = c.pump.Fired()
	}
	return s
}

// Close stops the pump, drops every cached texture and closes an owned
// provider. Textures still referenced by consumers stay alive until they
// are released. Close is idempotent.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.pump != nil {
			c.pump.Close()
			c.cancel()
		}
		c.writeMu.Lock()
		n := c.memo.Clear()
		c.writeMu.Unlock()
		if c.ownsProvider {
			c.provider.Close()
		}
		slogger().Info("texmemo: cache closed", "dropped", n)
	})
}
