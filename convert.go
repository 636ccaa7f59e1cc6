// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package texmemo

import (
	"image"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
)

// fitSize scales (w, h) down to fit within limit on both axes, keeping the
// aspect ratio. limit <= 0 disables the limit.
func fitSize(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

// toRGBA converts buf into tightly packed RGBA8 rows of size (w, h).
// A buffer that is already tight RGBA at the target size is returned
// without copying.
func toRGBA(buf *Buffer, w, h int) []byte {
	bw, bh := buf.Size()
	if buf.Image == nil && !buf.Opaque && bw == w && bh == h && buf.stride() == w*4 &&
		(buf.Format == gputypes.TextureFormatRGBA8Unorm || buf.Format == gputypes.TextureFormatRGBA8UnormSrgb) {
		return buf.Pix[:w*h*4]
	}

	src := buf.source()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if bw == w && bh == h {
		draw.Copy(dst, image.Point{}, src, src.Bounds(), draw.Src, nil)
	} else {
		draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}
	return dst.Pix
}

// regionToRGBA converts the r sub-rectangle of buf into tight RGBA8 rows.
func regionToRGBA(buf *Buffer, r image.Rectangle) []byte {
	src := buf.source()
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(dst, image.Point{}, src, r.Add(src.Bounds().Min), draw.Src, nil)
	return dst.Pix
}
