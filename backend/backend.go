package backend

import (
	"errors"

	"github.com/gogpu/gpucontext"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// TextureBackend is the interface for texture backends.
// It abstracts where texture storage lives, allowing the cache to build
// textures in host memory (software) or on a GPU device (wgpu).
//
// Backends must be registered via Register() and are selected via
// Get() or InitDefault().
type TextureBackend interface {
	gpucontext.TextureCreator

	// Name returns the backend identifier (e.g., "software", "wgpu").
	Name() string

	// Init acquires backend resources (device, queue).
	// This must be called before any texture is created.
	Init() error

	// Close releases all backend resources.
	// Textures created by the backend must be destroyed first.
	Close()
}
