package texmemo

import (
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Option configures a Provider or a Cache during creation.
//
// Example:
//
//	// Best available backend, default recycling budget
//	c, err := texmemo.NewCache()
//
//	// Explicit creator (dependency injection), no recycling
//	c, err := texmemo.NewCache(
//	    texmemo.WithCreator(drawer.TextureCreator()),
//	    texmemo.WithRecycleBudget(-1),
//	)
type Option func(*options)

// options holds optional configuration for Provider and Cache creation.
type options struct {
	creator       gpucontext.TextureCreator
	backend       string
	recycleBudget int64
	usage         gputypes.TextureUsage
	maxSize       int
	logger        *slog.Logger
	pumpDepth     int
}

// DefaultUsage is the texture usage requested from backends that honour it.
const DefaultUsage = gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding

// defaultOptions returns the default options.
func defaultOptions() options {
	return options{
		usage: DefaultUsage,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithCreator makes the provider create textures through c instead of a
// registered backend. The caller keeps ownership of c.
func WithCreator(c gpucontext.TextureCreator) Option {
	return func(o *options) {
		o.creator = c
	}
}

// WithBackend selects a registered backend by name ("software", "wgpu").
// An empty name picks the best available backend. Ignored when WithCreator
// is also given.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithRecycleBudget sets how many bytes of released backing textures are
// kept for reuse. Zero selects the default budget; a negative value
// disables recycling.
func WithRecycleBudget(bytes int64) Option {
	return func(o *options) {
		o.recycleBudget = bytes
	}
}

// WithUsage sets the texture usage flags for backends that support them.
func WithUsage(u gputypes.TextureUsage) Option {
	return func(o *options) {
		o.usage = u
	}
}

// WithMaxTextureSize limits texture width and height. Larger buffers are
// scaled down, keeping their aspect ratio. Zero means no limit.
func WithMaxTextureSize(n int) Option {
	return func(o *options) {
		o.maxSize = n
	}
}

// WithLogger installs l as the package logger (see SetLogger).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithPump makes Cache.DestroyAsync deliver destroy notifications from a
// dedicated goroutine with a queue of the given depth.
func WithPump(depth int) Option {
	return func(o *options) {
		if depth <= 0 {
			depth = -1
		}
		o.pumpDepth = depth
	}
}
