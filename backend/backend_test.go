package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gpucontext"
)

func TestSoftwareBackendName(t *testing.T) {
	b := NewSoftwareBackend()
	if b.Name() != "software" {
		t.Errorf("Name() = %q, want %q", b.Name(), "software")
	}
}

func TestSoftwareBackendInit(t *testing.T) {
	b := NewSoftwareBackend()
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	b.Close()
}

func TestSoftwareBackendNotInitialized(t *testing.T) {
	b := NewSoftwareBackend()
	if _, err := b.NewTextureFromRGBA(1, 1, make([]byte, 4)); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("NewTextureFromRGBA before Init error = %v, want ErrNotInitialized", err)
	}
}

func TestSoftwareBackendCreatesTextures(t *testing.T) {
	b := NewSoftwareBackend()
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer b.Close()

	tex, err := b.NewTextureFromRGBA(8, 4, make([]byte, 8*4*4))
	if err != nil {
		t.Fatalf("NewTextureFromRGBA() error = %v", err)
	}
	if tex.Width() != 8 || tex.Height() != 4 {
		t.Errorf("size = %dx%d, want 8x4", tex.Width(), tex.Height())
	}
	if b.Live() != 1 {
		t.Errorf("Live() = %d, want 1", b.Live())
	}
	if _, ok := tex.(gpucontext.TextureUpdater); !ok {
		t.Error("software texture does not implement TextureUpdater")
	}
	tex.(interface{ Destroy() }).Destroy()
	if b.Live() != 0 {
		t.Errorf("Live() = %d after Destroy, want 0", b.Live())
	}
}

func TestRegistryIsRegistered(t *testing.T) {
	if !IsRegistered("software") {
		t.Error("software should be registered")
	}
	if IsRegistered("nonexistent") {
		t.Error("nonexistent should not be registered")
	}
	if !slices.Contains(Available(), BackendSoftware) {
		t.Errorf("Available() = %v, missing software", Available())
	}
}

func TestRegistryUnregister(t *testing.T) {
	Register("test-backend", func() TextureBackend { return &SoftwareBackend{} })

	if !IsRegistered("test-backend") {
		t.Error("test-backend should be registered")
	}

	Unregister("test-backend")

	if IsRegistered("test-backend") {
		t.Error("test-backend should be unregistered")
	}
}

func TestGetUnknown(t *testing.T) {
	if b := Get("nonexistent"); b != nil {
		t.Errorf("Get(nonexistent) = %v, want nil", b)
	}
	if _, err := Open("nonexistent"); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open(nonexistent) error = %v, want ErrBackendNotAvailable", err)
	}
}

// failingBackend never initializes.
type failingBackend struct{ SoftwareBackend }

var errNoAdapter = errors.New("no adapter")

func (failingBackend) Name() string { return BackendWGPU }
func (failingBackend) Init() error  { return errNoAdapter }

func TestInitDefaultFallsBack(t *testing.T) {
	Register(BackendWGPU, func() TextureBackend { return &failingBackend{} })
	t.Cleanup(func() { Unregister(BackendWGPU) })

	b, err := InitDefault()
	if err != nil {
		t.Fatalf("InitDefault() error = %v", err)
	}
	defer b.Close()
	if b.Name() != BackendSoftware {
		t.Errorf("InitDefault() chose %q, want software fallback", b.Name())
	}
}

func TestInitDefaultAllFail(t *testing.T) {
	Register(BackendSoftware, func() TextureBackend { return &failingBackend{} })
	t.Cleanup(func() {
		Register(BackendSoftware, func() TextureBackend { return &SoftwareBackend{} })
	})

	_, err := InitDefault()
	if !errors.Is(err, ErrBackendNotAvailable) || !errors.Is(err, errNoAdapter) {
		t.Errorf("InitDefault() error = %v, want ErrBackendNotAvailable wrapping errNoAdapter", err)
	}
}

func TestMustInitDefault(t *testing.T) {
	b := MustInitDefault()
	if b == nil {
		t.Fatal("MustInitDefault() returned nil")
	}
	b.Close()
}
