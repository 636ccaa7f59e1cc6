// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package software provides a CPU-memory texture creator.
//
// Textures live in host memory as tightly packed RGBA rows. The creator
// implements gpucontext.TextureCreator and its textures implement
// gpucontext.Texture, TextureUpdater and TextureRegionUpdater, so the rest
// of the module can run without a GPU adapter.
package software

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Texture errors.
var (
	// ErrTextureDestroyed is returned when updating a destroyed texture.
	ErrTextureDestroyed = errors.New("software: texture has been destroyed")

	// ErrInvalidDimensions is returned for non-positive sizes or regions
	// outside the texture.
	ErrInvalidDimensions = errors.New("software: invalid dimensions")

	// ErrDataSize is returned when pixel data does not match the size.
	ErrDataSize = errors.New("software: pixel data size mismatch")
)

// bytesPerPixel of the RGBA8 storage.
const bytesPerPixel = 4

// Texture is a host-memory RGBA8 texture.
//
// Texture is safe for concurrent use.
type Texture struct {
	mu        sync.RWMutex
	width     int
	height    int
	pix       []byte
	uploads   int
	destroyed atomic.Bool
	creator   *Creator
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

// Format returns the storage format, always RGBA8Unorm.
func (t *Texture) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// SizeBytes returns the storage size in bytes.
func (t *Texture) SizeBytes() uint64 {
	return uint64(t.width) * uint64(t.height) * bytesPerPixel //nolint:gosec // G115: positive dimensions
}

// Uploads returns how many times pixel data has been written, including
// the initial upload.
func (t *Texture) Uploads() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.uploads
}

// IsDestroyed reports whether Destroy has been called.
func (t *Texture) IsDestroyed() bool {
	return t.destroyed.Load()
}

// Image returns a copy of the texture contents.
func (t *Texture) Image() *image.RGBA {
	t.mu.RLock()
	defer t.mu.RUnlock()
	img := image.NewRGBA(image.Rect(0, 0, t.width, t.height))
	copy(img.Pix, t.pix)
	return img
}

// UpdateData replaces the whole texture contents.
func (t *Texture) UpdateData(data []byte) error {
	if t.destroyed.Load() {
		return ErrTextureDestroyed
	}
	if len(data) != t.width*t.height*bytesPerPixel {
		return fmt.Errorf("%w: got %d bytes, want %d for %dx%d",
			ErrDataSize, len(data), t.width*t.height*bytesPerPixel, t.width, t.height)
	}

	t.mu.Lock()
	copy(t.pix, data)
	t.uploads++
	t.mu.Unlock()
	return nil
}

// UpdateRegion writes a densely packed w*h RGBA block at (x, y).
func (t *Texture) UpdateRegion(x, y, w, h int, data []byte) error {
	if t.destroyed.Load() {
		return ErrTextureDestroyed
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > t.width || y+h > t.height {
		return fmt.Errorf("%w: region (%d,%d)+(%dx%d) exceeds texture bounds (%dx%d)",
			ErrInvalidDimensions, x, y, w, h, t.width, t.height)
	}
	if len(data) != w*h*bytesPerPixel {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrDataSize, len(data), w*h*bytesPerPixel)
	}

	stride := t.width * bytesPerPixel
	row := w * bytesPerPixel
	t.mu.Lock()
	for j := 0; j < h; j++ {
		off := (y+j)*stride + x*bytesPerPixel
		copy(t.pix[off:off+row], data[j*row:(j+1)*row])
	}
	t.uploads++
	t.mu.Unlock()
	return nil
}

// Destroy frees the storage. Further updates fail. Destroy is idempotent.
func (t *Texture) Destroy() {
	if t.destroyed.Swap(true) {
		return
	}
	t.mu.Lock()
	t.pix = nil
	t.mu.Unlock()
	if t.creator != nil {
		t.creator.live.Add(-1)
	}
}

// String returns a string representation of the texture.
func (t *Texture) String() string {
	status := "active"
	if t.destroyed.Load() {
		status = "destroyed"
	}
	return fmt.Sprintf("software.Texture[%dx%d %d bytes %s]", t.width, t.height, t.SizeBytes(), status)
}

// Creator creates software textures and counts the live ones.
//
// Creator is safe for concurrent use. The zero value is ready to use.
type Creator struct {
	created atomic.Uint64
	live    atomic.Int64
}

var _ gpucontext.TextureCreator = (*Creator)(nil)

// NewCreator returns a new creator.
func NewCreator() *Creator {
	return &Creator{}
}

// NewTextureFromRGBA creates a texture holding a copy of data, which must be
// width*height*4 bytes.
func (c *Creator) NewTextureFromRGBA(width, height int, data []byte) (gpucontext.Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	if len(data) != width*height*bytesPerPixel {
		return nil, fmt.Errorf("%w: got %d bytes, want %d for %dx%d",
			ErrDataSize, len(data), width*height*bytesPerPixel, width, height)
	}
	t := &Texture{
		width:   width,
		height:  height,
		pix:     make([]byte, len(data)),
		uploads: 1,
		creator: c,
	}
	copy(t.pix, data)
	c.created.Add(1)
	c.live.Add(1)
	return t, nil
}

// Created returns the number of textures created so far.
func (c *Creator) Created() uint64 {
	return c.created.Load()
}

// Live returns the number of created textures not yet destroyed.
func (c *Creator) Live() int64 {
	return c.live.Load()
}
