// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package texmemo

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/texmemo/internal/recycle"
	"github.com/gogpu/texmemo/rc"
)

// Texture is a reference-counted texture built from a client buffer.
//
// Texture is an owning resource: the backing texture is returned to the
// provider's recycle pool (or destroyed) when the last reference, public or
// private, is released. Hold it through rc.Ref[*Texture].
type Texture struct {
	rc.Owned

	buffer   BufferID
	backing  gpucontext.Texture
	key      recycle.Key
	size     uint64
	srcW     int
	srcH     int
	provider *Provider

	// mu serializes uploads into the backing.
	mu sync.Mutex
}

var _ rc.Object = (*Texture)(nil)

// destroyer is implemented by backings that free device memory.
type destroyer interface {
	Destroy()
}

// releaser is the wgpu-style spelling of destroyer.
type releaser interface {
	Release()
}

func newTexture(p *Provider, buf *Buffer, backing gpucontext.Texture, key recycle.Key) *Texture {
	w, h := buf.Size()
	t := &Texture{
		buffer:   buf.ID,
		backing:  backing,
		key:      key,
		size:     uint64(key.Width) * uint64(key.Height) * 4, //nolint:gosec // G115: positive dimensions
		srcW:     w,
		srcH:     h,
		provider: p,
	}
	t.SetDestructor(t.destroy)
	return t
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.key.Width }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.key.Height }

// Buffer returns the ID of the buffer the texture was built from.
func (t *Texture) Buffer() BufferID { return t.buffer }

// Backing returns the backend texture. It is valid until the Texture is
// destroyed.
func (t *Texture) Backing() gpucontext.Texture { return t.backing }

// SizeBytes returns the RGBA storage size of the texture.
func (t *Texture) SizeBytes() uint64 { return t.size }

// Scaled reports whether the buffer was scaled down to fit the provider's
// maximum texture size.
func (t *Texture) Scaled() bool {
	return t.srcW != t.key.Width || t.srcH != t.key.Height
}

// Update re-uploads the whole buffer. The buffer must have the size the
// texture was built from.
func (t *Texture) Update(buf *Buffer) error {
	if err := t.checkUpdate(buf); err != nil {
		return err
	}
	up, ok := t.backing.(gpucontext.TextureUpdater)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUpdateUnsupported, t.backing)
	}
	data := toRGBA(buf, t.key.Width, t.key.Height)

	t.mu.Lock()
	defer t.mu.Unlock()
	return up.UpdateData(data)
}

// UpdateRegion re-uploads the damaged rectangle r of buf. r is clipped to
// the buffer; an empty region is a no-op. Scaled textures and backings
// without region support fall back to a full Update.
func (t *Texture) UpdateRegion(buf *Buffer, r image.Rectangle) error {
	if err := t.checkUpdate(buf); err != nil {
		return err
	}
	r = r.Intersect(image.Rect(0, 0, t.srcW, t.srcH))
	if r.Empty() {
		return nil
	}
	ru, ok := t.backing.(gpucontext.TextureRegionUpdater)
	if !ok || t.Scaled() {
		return t.Update(buf)
	}
	data := regionToRGBA(buf, r)

	t.mu.Lock()
	defer t.mu.Unlock()
	return ru.UpdateRegion(r.Min.X, r.Min.Y, r.Dx(), r.Dy(), data)
}

func (t *Texture) checkUpdate(buf *Buffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	if w, h := buf.Size(); w != t.srcW || h != t.srcH {
		return fmt.Errorf("%w: buffer %d is %dx%d, texture built from %dx%d",
			ErrSizeMismatch, buf.ID, w, h, t.srcW, t.srcH)
	}
	return nil
}

// destroy runs once, when the last reference is released.
func (t *Texture) destroy() {
	slogger().Debug("texmemo: texture destroyed", "buffer", t.buffer, "size", t.size)
	if t.provider != nil {
		t.provider.reclaim(t.key, t.backing, t.size)
		return
	}
	destroyBacking(t.backing)
}

// String returns a string representation of the texture.
func (t *Texture) String() string {
	return fmt.Sprintf("Texture[buffer=%d %dx%d refs=%d]", t.buffer, t.key.Width, t.key.Height, t.GetRefCount())
}

// destroyBacking frees a backend texture if it supports it.
func destroyBacking(tex gpucontext.Texture) {
	switch b := tex.(type) {
	case destroyer:
		b.Destroy()
	case releaser:
		b.Release()
	}
}
