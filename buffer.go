// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package texmemo

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gputypes"
)

// BufferID is the opaque handle of a client buffer. The client (or the
// display server on its behalf) owns the buffer; the cache only keys on
// the handle.
type BufferID uint64

// Buffer describes the pixels a client attached.
//
// Either Pix (with Width, Height, Stride and Format) or Image must be set.
// When Image is set the other pixel fields are ignored.
type Buffer struct {
	ID BufferID

	Width  int
	Height int

	// Stride is the number of bytes per row. Zero means tightly packed.
	Stride int

	// Format is the pixel layout of Pix. Supported: RGBA8Unorm,
	// RGBA8UnormSrgb, BGRA8Unorm, BGRA8UnormSrgb, R8Unorm.
	Format gputypes.TextureFormat

	// Opaque marks the alpha channel as padding (XRGB/XBGR layouts).
	Opaque bool

	Pix []byte

	// Image is an alternative pixel source, converted with x/image/draw.
	Image image.Image
}

// bytesPerPixel returns the pixel size of a supported format, or 0.
func bytesPerPixel(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		return 4
	case gputypes.TextureFormatR8Unorm:
		return 1
	default:
		return 0
	}
}

// Size returns the buffer dimensions.
func (b *Buffer) Size() (width, height int) {
	if b.Image != nil {
		r := b.Image.Bounds()
		return r.Dx(), r.Dy()
	}
	return b.Width, b.Height
}

// stride returns the effective row pitch.
func (b *Buffer) stride() int {
	if b.Stride > 0 {
		return b.Stride
	}
	return b.Width * bytesPerPixel(b.Format)
}

// Validate checks that the buffer describes a readable image.
func (b *Buffer) Validate() error {
	if b == nil {
		return ErrNilBuffer
	}
	if b.Image != nil {
		if b.Image.Bounds().Empty() {
			return fmt.Errorf("%w: buffer %d: empty image", ErrInvalidBuffer, b.ID)
		}
		return nil
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: buffer %d: size %dx%d", ErrInvalidBuffer, b.ID, b.Width, b.Height)
	}
	bpp := bytesPerPixel(b.Format)
	if bpp == 0 {
		return fmt.Errorf("%w: buffer %d: %s", ErrUnsupportedFormat, b.ID, b.Format)
	}
	if b.Stride != 0 && b.Stride < b.Width*bpp {
		return fmt.Errorf("%w: buffer %d: stride %d < row size %d", ErrInvalidBuffer, b.ID, b.Stride, b.Width*bpp)
	}
	if need := b.stride()*(b.Height-1) + b.Width*bpp; len(b.Pix) < need {
		return fmt.Errorf("%w: buffer %d: %d bytes, need %d", ErrInvalidBuffer, b.ID, len(b.Pix), need)
	}
	return nil
}

// source returns the buffer as an image.Image without copying pixels.
func (b *Buffer) source() image.Image {
	if b.Image != nil {
		return b.Image
	}
	rect := image.Rect(0, 0, b.Width, b.Height)
	switch b.Format {
	case gputypes.TextureFormatR8Unorm:
		return &image.Gray{Pix: b.Pix, Stride: b.stride(), Rect: rect}
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		return &bgraImage{pix: b.Pix, stride: b.stride(), rect: rect, opaque: b.Opaque}
	default:
		if b.Opaque {
			return &opaqueRGBA{RGBA: &image.RGBA{Pix: b.Pix, Stride: b.stride(), Rect: rect}}
		}
		return &image.RGBA{Pix: b.Pix, Stride: b.stride(), Rect: rect}
	}
}

// bgraImage reads premultiplied BGRA rows in place.
type bgraImage struct {
	pix    []byte
	stride int
	rect   image.Rectangle
	opaque bool
}

func (p *bgraImage) ColorModel() color.Model { return color.RGBAModel }
func (p *bgraImage) Bounds() image.Rectangle { return p.rect }

func (p *bgraImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.rect) {
		return color.RGBA{}
	}
	i := y*p.stride + x*4
	c := color.RGBA{R: p.pix[i+2], G: p.pix[i+1], B: p.pix[i], A: p.pix[i+3]}
	if p.opaque {
		c.A = 0xff
	}
	return c
}

// opaqueRGBA forces alpha to 0xff for RGBX buffers.
type opaqueRGBA struct {
	*image.RGBA
}

func (p *opaqueRGBA) At(x, y int) color.Color {
	c := p.RGBAAt(x, y)
	c.A = 0xff
	return c
}

func (p *opaqueRGBA) RGBA64At(x, y int) color.RGBA64 {
	c := p.RGBA.RGBA64At(x, y)
	c.A = 0xffff
	return c
}
