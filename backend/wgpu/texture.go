package wgpu

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu"
)

// Texture is a 2D RGBA8 device texture.
type Texture struct {
	raw      *wgpu.Texture
	width    int
	height   int
	backend  *WGPUBackend
	released atomic.Bool
}

var (
	_ gpucontext.Texture              = (*Texture)(nil)
	_ gpucontext.TextureUpdater       = (*Texture)(nil)
	_ gpucontext.TextureRegionUpdater = (*Texture)(nil)
)

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.height }

// Raw returns the underlying wgpu texture for binding in render passes.
func (t *Texture) Raw() *wgpu.Texture { return t.raw }

// UpdateData uploads a full frame of RGBA pixels.
func (t *Texture) UpdateData(data []byte) error {
	return t.UpdateRegion(0, 0, t.width, t.height, data)
}

// UpdateRegion uploads a densely packed w*h RGBA block at (x, y).
func (t *Texture) UpdateRegion(x, y, w, h int, data []byte) error {
	if t.released.Load() {
		return ErrTextureReleased
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > t.width || y+h > t.height {
		return fmt.Errorf("%w: region (%d,%d)+(%dx%d) exceeds texture bounds (%dx%d)",
			ErrInvalidDimensions, x, y, w, h, t.width, t.height)
	}
	if len(data) != w*h*4 {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidDimensions, len(data), w*h*4)
	}
	return t.backend.write(t.raw, x, y, w, h, data)
}

// Destroy releases the device texture. Destroy is idempotent.
func (t *Texture) Destroy() {
	if t.released.Swap(true) {
		return
	}
	t.raw.Release()
	t.backend.live.Add(-1)
}

// String returns a string representation of the texture.
func (t *Texture) String() string {
	status := "active"
	if t.released.Load() {
		status = "released"
	}
	return fmt.Sprintf("wgpu.Texture[%dx%d %s]", t.width, t.height, status)
}
