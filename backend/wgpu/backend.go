package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
	_ "github.com/gogpu/wgpu/hal/allbackends" // register HAL backends

	"github.com/gogpu/texmemo/backend"
)

// Errors returned by the wgpu backend.
var (
	// ErrNoGPU is returned when no adapter can be acquired.
	ErrNoGPU = errors.New("wgpu: no GPU adapter available")

	// ErrTextureReleased is returned when updating a released texture.
	ErrTextureReleased = errors.New("wgpu: texture has been released")

	// ErrInvalidDimensions is returned for non-positive sizes, regions
	// outside the texture, or pixel data of the wrong length.
	ErrInvalidDimensions = errors.New("wgpu: invalid dimensions")
)

// DefaultTextureUsage is the usage of every texture created by the backend.
const DefaultTextureUsage = gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding

// init registers the wgpu backend on package import.
func init() {
	backend.Register(backend.BackendWGPU, func() backend.TextureBackend {
		return NewBackend()
	})
}

// slogger returns the logger shared with the backend package.
func slogger() *slog.Logger { return backend.Logger() }

// GPUInfo contains information about the selected GPU.
type GPUInfo struct {
	Name       string
	Vendor     string
	DeviceType gputypes.DeviceType
	Backend    gputypes.Backend
	Driver     string
}

// String returns a human-readable description of the GPU.
func (g *GPUInfo) String() string {
	return fmt.Sprintf("%s (%s, %s)", g.Name, g.DeviceType, g.Backend)
}

// WGPUBackend creates device textures.
type WGPUBackend struct {
	mu sync.RWMutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	info     *GPUInfo
	usage    gputypes.TextureUsage

	// queueMu serializes WriteTexture calls.
	queueMu sync.Mutex

	live atomic.Int64
}

var _ backend.TextureBackend = (*WGPUBackend)(nil)

// NewBackend creates an uninitialized backend.
func NewBackend() *WGPUBackend {
	return &WGPUBackend{usage: DefaultTextureUsage}
}

// Name returns the backend identifier.
func (b *WGPUBackend) Name() string {
	return backend.BackendWGPU
}

// SetUsage sets the usage flags of textures created afterwards.
// CopyDst is always added so uploads keep working.
func (b *WGPUBackend) SetUsage(u gputypes.TextureUsage) {
	b.mu.Lock()
	b.usage = u | gputypes.TextureUsageCopyDst
	b.mu.Unlock()
}

// Init creates the instance, adapter, device and queue.
// Calling Init on an initialized backend is a no-op.
func (b *WGPUBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device != nil {
		return nil
	}

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoGPU, err)
	}
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: gputypes.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return fmt.Errorf("%w: %w", ErrNoGPU, err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "texmemo-device"})
	if err != nil {
		adapter.Release()
		instance.Release()
		return fmt.Errorf("wgpu: device creation failed: %w", err)
	}

	info := adapter.Info()
	b.instance = instance
	b.adapter = adapter
	b.device = device
	b.queue = device.Queue()
	b.info = &GPUInfo{
		Name:       info.Name,
		Vendor:     info.Vendor,
		DeviceType: info.DeviceType,
		Backend:    info.Backend,
		Driver:     info.Driver,
	}
	slogger().Info("wgpu: backend initialized", "gpu", b.info.String(), "driver", info.Driver)
	return nil
}

// Close releases all backend resources in reverse order of creation.
func (b *WGPUBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		return
	}
	if n := b.live.Load(); n > 0 {
		slogger().Warn("wgpu: closing with live textures", "live", n)
	}
	b.device.Release()
	b.adapter.Release()
	b.instance.Release()
	b.device, b.adapter, b.instance, b.queue, b.info = nil, nil, nil, nil, nil
	slogger().Info("wgpu: backend closed")
}

// GPUInfo returns information about the selected GPU, or nil before Init.
func (b *WGPUBackend) GPUInfo() *GPUInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.info
}

// Live returns the number of textures created and not yet released.
func (b *WGPUBackend) Live() int64 {
	return b.live.Load()
}

// NewTextureFromRGBA creates a 2D RGBA8 device texture and uploads data,
// which must be width*height*4 bytes.
func (b *WGPUBackend) NewTextureFromRGBA(width, height int, data []byte) (gpucontext.Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	if len(data) != width*height*4 {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidDimensions, len(data), width*height*4)
	}

	b.mu.RLock()
	device, usage := b.device, b.usage
	b.mu.RUnlock()
	if device == nil {
		return nil, backend.ErrNotInitialized
	}

	raw, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "texmemo-buffer",
		Size: wgpu.Extent3D{
			Width:              uint32(width),  //nolint:gosec // G115: validated positive
			Height:             uint32(height), //nolint:gosec // G115: validated positive
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %dx%d: %w", width, height, err)
	}

	t := &Texture{raw: raw, width: width, height: height, backend: b}
	if err := t.UpdateData(data); err != nil {
		raw.Release()
		return nil, err
	}
	b.live.Add(1)
	return t, nil
}

// write uploads a densely packed w*h RGBA block at (x, y).
func (b *WGPUBackend) write(raw *wgpu.Texture, x, y, w, h int, data []byte) error {
	b.mu.RLock()
	queue := b.queue
	b.mu.RUnlock()
	if queue == nil {
		return backend.ErrNotInitialized
	}

	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	//nolint:gosec // G115: coordinates validated by the caller
	return queue.WriteTexture(&wgpu.ImageCopyTexture{
		Texture:  raw,
		MipLevel: 0,
		Origin:   wgpu.Origin3D{X: uint32(x), Y: uint32(y), Z: 0},
		Aspect:   gputypes.TextureAspectAll,
	}, data, &wgpu.ImageDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(w * 4),
		RowsPerImage: uint32(h),
	}, &wgpu.Extent3D{
		Width:              uint32(w),
		Height:             uint32(h),
		DepthOrArrayLayers: 1,
	})
}
