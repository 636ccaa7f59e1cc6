package backend

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
)

// BackendFactory creates a new, uninitialized backend instance.
type BackendFactory func() TextureBackend

// backendPriority is the selection order (first available wins).
// GPU first, software as the fallback that always works.
var backendPriority = []string{BackendWGPU, BackendSoftware}

// backends holds the registered factories.
var backends = gpucontext.NewRegistry[TextureBackend](gpucontext.WithPriority(backendPriority...))

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory BackendFactory) {
	backends.Register(name, factory)
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	backends.Unregister(name)
}

// Available returns a list of registered backend names.
func Available() []string {
	return backends.Available()
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	return backends.Has(name)
}

// Get returns a new backend instance by name.
// Returns nil if the backend is not registered.
func Get(name string) TextureBackend {
	return backends.Get(name)
}

// Default returns the highest-priority registered backend, uninitialized.
// Returns nil if no backends are registered.
func Default() TextureBackend {
	return backends.Best()
}

// Open returns an initialized backend by name.
func Open(name string) (TextureBackend, error) {
	b := Get(name)
	if b == nil {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	if err := b.Init(); err != nil {
		return nil, fmt.Errorf("backend: init %s: %w", name, err)
	}
	return b, nil
}

// InitDefault initializes the best available backend. Backends are tried
// in priority order; one whose Init fails is skipped, so a machine without
// a GPU adapter falls back to software.
func InitDefault() (TextureBackend, error) {
	var errs []error
	tried := make(map[string]bool, len(backendPriority))
	names := append(append([]string(nil), backendPriority...), Available()...)
	for _, name := range names {
		if tried[name] || !IsRegistered(name) {
			continue
		}
		tried[name] = true
		b, err := Open(name)
		if err == nil {
			return b, nil
		}
		slogger().Warn("backend: unavailable, trying next", "backend", name, "err", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrBackendNotAvailable
	}
	return nil, fmt.Errorf("%w: %w", ErrBackendNotAvailable, errors.Join(errs...))
}

// MustInitDefault is like InitDefault but panics on error.
func MustInitDefault() TextureBackend {
	b, err := InitDefault()
	if err != nil {
		panic(err)
	}
	return b
}
