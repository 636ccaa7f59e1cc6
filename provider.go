// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package texmemo

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/texmemo/backend"
	"github.com/gogpu/texmemo/internal/recycle"
	"github.com/gogpu/texmemo/rc"
)

// usageSetter is implemented by backends that accept texture usage flags.
type usageSetter interface {
	SetUsage(gputypes.TextureUsage)
}

// ProviderStats holds texture provider statistics.
type ProviderStats struct {
	Backend string        // Name of the backend, or "custom" for WithCreator
	Built   uint64        // Textures built with a fresh backing
	Reused  uint64        // Textures built on a recycled backing
	Failed  uint64        // Builds that returned an error
	Recycle recycle.Stats // Recycle pool state (zero when disabled)
}

// String returns a human-readable representation of the stats.
func (s ProviderStats) String() string {
	return fmt.Sprintf("Provider[%s built=%d reused=%d failed=%d] %s",
		s.Backend, s.Built, s.Reused, s.Failed, s.Recycle)
}

// Provider builds textures from client buffers.
//
// A provider either borrows a gpucontext.TextureCreator (WithCreator) or
// owns a backend it opened from the registry. Released backings are parked
// in a size-keyed recycle pool and reused by later builds of the same size.
//
// Provider is safe for concurrent use.
type Provider struct {
	creator gpucontext.TextureCreator
	owned   backend.TextureBackend
	name    string
	pool    *recycle.Pool
	maxSize int

	closeOnce sync.Once
	closed    atomic.Bool

	built  atomic.Uint64
	reused atomic.Uint64
	failed atomic.Uint64
}

// NewProvider creates a texture provider.
//
// Without WithCreator the provider opens the backend named by WithBackend,
// or the best available one, and closes it in Close.
func NewProvider(opts ...Option) (*Provider, error) {
	return newProvider(buildOptions(opts))
}

// MustNewProvider is like NewProvider but panics on error.
func MustNewProvider(opts ...Option) *Provider {
	p, err := NewProvider(opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func newProvider(o options) (*Provider, error) {
	if o.logger != nil {
		SetLogger(o.logger)
	}

	p := &Provider{
		creator: o.creator,
		name:    "custom",
		maxSize: o.maxSize,
	}

	if p.creator == nil {
		var (
			b   backend.TextureBackend
			err error
		)
		if o.backend == "" {
			b, err = backend.InitDefault()
		} else {
			b, err = backend.Open(o.backend)
		}
		if err != nil {
			return nil, fmt.Errorf("texmemo: open backend: %w", err)
		}
		p.creator = b
		p.owned = b
		p.name = b.Name()
	}
	if us, ok := p.creator.(usageSetter); ok {
		us.SetUsage(o.usage)
	}

	if o.recycleBudget >= 0 {
		p.pool = recycle.New(uint64(o.recycleBudget), destroyBacking) //nolint:gosec // G115: checked non-negative
	}

	slogger().Info("texmemo: provider ready", "backend", p.name, "recycle", p.pool != nil, "maxSize", p.maxSize)
	return p, nil
}

// Backend returns the name of the backend the provider builds on.
func (p *Provider) Backend() string {
	return p.name
}

// Creator returns the texture creator the provider builds on.
func (p *Provider) Creator() gpucontext.TextureCreator {
	return p.creator
}

// Build converts buf into a new texture and returns the only reference
// to it (a public one). Releasing that reference returns the backing to
// the recycle pool.
func (p *Provider) Build(buf *Buffer) (rc.Ref[*Texture], error) {
	if p.closed.Load() {
		return rc.Ref[*Texture]{}, ErrProviderClosed
	}
	if err := buf.Validate(); err != nil {
		p.failed.Add(1)
		return rc.Ref[*Texture]{}, err
	}

	w, h := buf.Size()
	w, h = fitSize(w, h, p.maxSize)
	key := recycle.Key{Width: w, Height: h, Format: gputypes.TextureFormatRGBA8Unorm}
	data := toRGBA(buf, w, h)

	if backing, ok := p.recycled(key, data); ok {
		p.reused.Add(1)
		slogger().Debug("texmemo: reused backing", "buffer", buf.ID, "width", w, "height", h)
		return rc.New(newTexture(p, buf, backing, key)), nil
	}

	backing, err := p.creator.NewTextureFromRGBA(w, h, data)
	if err != nil {
		p.failed.Add(1)
		return rc.Ref[*Texture]{}, fmt.Errorf("%w: buffer %d: %w", ErrTextureCreationFailed, buf.ID, err)
	}
	p.built.Add(1)
	slogger().Debug("texmemo: built texture", "buffer", buf.ID, "width", w, "height", h)
	return rc.New(newTexture(p, buf, backing, key)), nil
}

// recycled takes a parked backing for key and uploads data into it.
func (p *Provider) recycled(key recycle.Key, data []byte) (gpucontext.Texture, bool) {
	if p.pool == nil {
		return nil, false
	}
	backing, ok := p.pool.Get(key)
	if !ok {
		return nil, false
	}
	up, ok := backing.(gpucontext.TextureUpdater)
	if !ok {
		destroyBacking(backing)
		return nil, false
	}
	if err := up.UpdateData(data); err != nil {
		slogger().Warn("texmemo: recycled backing rejected upload", "err", err)
		destroyBacking(backing)
		return nil, false
	}
	return backing, true
}

// reclaim takes back the backing of a destroyed texture.
func (p *Provider) reclaim(key recycle.Key, backing gpucontext.Texture, size uint64) {
	if p.pool != nil && !p.closed.Load() && p.pool.Put(key, backing, size) {
		return
	}
	destroyBacking(backing)
}

// Stats returns current statistics.
func (p *Provider) Stats() ProviderStats {
	s := ProviderStats{
		Backend: p.name,
		Built:   p.built.Load(),
		Reused:  p.reused.Load(),
		Failed:  p.failed.Load(),
	}
	if p.pool != nil {
		s.Recycle = p.pool.Stats()
	}
	return s
}

// Close destroys the parked backings and closes an owned backend.
// Textures built by the provider should be released first; backings
// released after Close are destroyed directly. Close is idempotent.
func (p *Provider) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		if p.pool != nil {
			p.pool.Close()
		}
		if p.owned != nil {
			p.owned.Close()
		}
		slogger().Info("texmemo: provider closed", "backend", p.name)
	})
}
