// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package texmemo

import "errors"

// Common errors returned by Provider, Texture and Cache operations.
var (
	// ErrNilBuffer is returned when a nil *Buffer is passed.
	ErrNilBuffer = errors.New("texmemo: buffer is nil")

	// ErrInvalidBuffer is returned when a buffer's size, stride or pixel
	// slice cannot describe an image.
	ErrInvalidBuffer = errors.New("texmemo: invalid buffer")

	// ErrUnsupportedFormat is returned for pixel formats the provider cannot
	// convert.
	ErrUnsupportedFormat = errors.New("texmemo: unsupported pixel format")

	// ErrSizeMismatch is returned when updating a texture with a buffer of
	// a different size.
	ErrSizeMismatch = errors.New("texmemo: buffer size does not match texture")

	// ErrUpdateUnsupported is returned when the backing texture cannot be
	// updated in place.
	ErrUpdateUnsupported = errors.New("texmemo: texture does not support updates")

	// ErrTextureCreationFailed is returned when the backend fails to create
	// a texture.
	ErrTextureCreationFailed = errors.New("texmemo: texture creation failed")

	// ErrProviderClosed is returned when building on a closed provider.
	ErrProviderClosed = errors.New("texmemo: provider is closed")

	// ErrCacheClosed is returned when operations are attempted on a closed cache.
	ErrCacheClosed = errors.New("texmemo: cache is closed")
)
