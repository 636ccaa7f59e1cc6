package backend

import (
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/texmemo/internal/software"
)

// Backend name constants.
const (
	// BackendSoftware is the name of the host-memory backend.
	BackendSoftware = "software"
	// BackendWGPU is the name of the Pure Go GPU backend (gogpu/wgpu).
	BackendWGPU = "wgpu"
)

// SoftwareBackend keeps textures in host memory.
// It is always available and needs no device.
type SoftwareBackend struct {
	creator *software.Creator
}

// init registers the software backend on package import.
func init() {
	Register(BackendSoftware, func() TextureBackend {
		return &SoftwareBackend{}
	})
}

// NewSoftwareBackend creates a new software backend.
func NewSoftwareBackend() *SoftwareBackend {
	return &SoftwareBackend{}
}

// Name returns the backend identifier.
func (b *SoftwareBackend) Name() string {
	return BackendSoftware
}

// Init initializes the backend.
func (b *SoftwareBackend) Init() error {
	if b.creator == nil {
		b.creator = software.NewCreator()
	}
	return nil
}

// Close releases all backend resources.
func (b *SoftwareBackend) Close() {
	if b.creator != nil && b.creator.Live() > 0 {
		slogger().Warn("backend: software closed with live textures", "live", b.creator.Live())
	}
	b.creator = nil
}

// NewTextureFromRGBA creates a host-memory texture from RGBA pixel data.
func (b *SoftwareBackend) NewTextureFromRGBA(width, height int, data []byte) (gpucontext.Texture, error) {
	if b.creator == nil {
		return nil, ErrNotInitialized
	}
	return b.creator.NewTextureFromRGBA(width, height, data)
}

// Live returns the number of textures created and not yet destroyed.
func (b *SoftwareBackend) Live() int64 {
	if b.creator == nil {
		return 0
	}
	return b.creator.Live()
}
