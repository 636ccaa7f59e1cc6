// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"bytes"
	"errors"
	"testing"
)

func solid(w, h int, v byte) []byte {
	return bytes.Repeat([]byte{v}, w*h*bytesPerPixel)
}

func TestNewTextureFromRGBA(t *testing.T) {
	c := NewCreator()
	tex, err := c.NewTextureFromRGBA(3, 2, solid(3, 2, 7))
	if err != nil {
		t.Fatalf("NewTextureFromRGBA: %v", err)
	}
	if tex.Width() != 3 || tex.Height() != 2 {
		t.Errorf("size = %dx%d, want 3x2", tex.Width(), tex.Height())
	}
	st := tex.(*Texture)
	if st.SizeBytes() != 24 {
		t.Errorf("SizeBytes = %d, want 24", st.SizeBytes())
	}
	if c.Created() != 1 || c.Live() != 1 {
		t.Errorf("created=%d live=%d, want 1 1", c.Created(), c.Live())
	}
	if got := st.Image().Pix[0]; got != 7 {
		t.Errorf("pixel = %d, want 7", got)
	}
}

func TestNewTextureFromRGBAErrors(t *testing.T) {
	c := NewCreator()
	tests := []struct {
		name    string
		w, h    int
		data    []byte
		wantErr error
	}{
		{"zero width", 0, 2, nil, ErrInvalidDimensions},
		{"negative height", 2, -1, nil, ErrInvalidDimensions},
		{"short data", 2, 2, make([]byte, 15), ErrDataSize},
		{"long data", 2, 2, make([]byte, 17), ErrDataSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.NewTextureFromRGBA(tt.w, tt.h, tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if c.Live() != 0 {
		t.Errorf("failed creations left %d live textures", c.Live())
	}
}

func TestCreatorCopiesInput(t *testing.T) {
	data := solid(1, 1, 1)
	tex, _ := NewCreator().NewTextureFromRGBA(1, 1, data)
	data[0] = 99
	if tex.(*Texture).Image().Pix[0] != 1 {
		t.Error("texture aliases the caller's slice")
	}
}

func TestUpdateData(t *testing.T) {
	tex, _ := NewCreator().NewTextureFromRGBA(2, 2, solid(2, 2, 0))
	st := tex.(*Texture)
	if err := st.UpdateData(solid(2, 2, 5)); err != nil {
		t.Fatalf("UpdateData: %v", err)
	}
	if st.Image().Pix[15] != 5 || st.Uploads() != 2 {
		t.Errorf("pixel=%d uploads=%d, want 5 2", st.Image().Pix[15], st.Uploads())
	}
	if err := st.UpdateData(solid(1, 1, 5)); !errors.Is(err, ErrDataSize) {
		t.Errorf("short UpdateData err = %v, want ErrDataSize", err)
	}
}

func TestUpdateRegion(t *testing.T) {
	tex, _ := NewCreator().NewTextureFromRGBA(4, 4, solid(4, 4, 0))
	st := tex.(*Texture)

	if err := st.UpdateRegion(1, 2, 2, 1, solid(2, 1, 9)); err != nil {
		t.Fatalf("UpdateRegion: %v", err)
	}
	img := st.Image()
	for x := 0; x < 4; x++ {
		want := uint8(0)
		if x == 1 || x == 2 {
			want = 9
		}
		if got := img.RGBAAt(x, 2).R; got != want {
			t.Errorf("pixel (%d,2) = %d, want %d", x, got, want)
		}
	}
	if img.RGBAAt(1, 1).R != 0 || img.RGBAAt(1, 3).R != 0 {
		t.Error("UpdateRegion wrote outside its rows")
	}

	tests := []struct {
		name       string
		x, y, w, h int
		data       []byte
		wantErr    error
	}{
		{"outside right", 3, 0, 2, 1, solid(2, 1, 0), ErrInvalidDimensions},
		{"negative origin", -1, 0, 1, 1, solid(1, 1, 0), ErrInvalidDimensions},
		{"empty", 0, 0, 0, 1, nil, ErrInvalidDimensions},
		{"bad data", 0, 0, 2, 2, solid(1, 1, 0), ErrDataSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := st.UpdateRegion(tt.x, tt.y, tt.w, tt.h, tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDestroy(t *testing.T) {
	c := NewCreator()
	tex, _ := c.NewTextureFromRGBA(1, 1, solid(1, 1, 0))
	st := tex.(*Texture)

	st.Destroy()
	st.Destroy()

	if !st.IsDestroyed() {
		t.Error("IsDestroyed = false after Destroy")
	}
	if c.Live() != 0 {
		t.Errorf("Live = %d after Destroy, want 0", c.Live())
	}
	if err := st.UpdateData(solid(1, 1, 0)); !errors.Is(err, ErrTextureDestroyed) {
		t.Errorf("UpdateData after Destroy = %v, want ErrTextureDestroyed", err)
	}
	if err := st.UpdateRegion(0, 0, 1, 1, solid(1, 1, 0)); !errors.Is(err, ErrTextureDestroyed) {
		t.Errorf("UpdateRegion after Destroy = %v, want ErrTextureDestroyed", err)
	}
}
