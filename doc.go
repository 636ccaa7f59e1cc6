// Package texmemo caches textures built from client buffers.
//
// # Overview
//
// A display server receives pixel buffers from its clients and has to turn
// them into textures before compositing. Building a texture is expensive,
// buffers are reused frame after frame, and only the client knows when a
// buffer is gone. texmemo keeps one texture per buffer and drops it exactly
// once, when the buffer's owner announces its destruction.
//
// # Quick Start
//
//	import "github.com/gogpu/texmemo"
//
//	cache, err := texmemo.NewCache()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cache.Close()
//
//	// Client attached a buffer
//	tex, err := cache.Attach(&texmemo.Buffer{
//	    ID:     42,
//	    Width:  640,
//	    Height: 480,
//	    Format: gputypes.TextureFormatBGRA8Unorm,
//	    Pix:    shm,
//	})
//	if err != nil {
//	    return err
//	}
//	draw(tex.Get().Backing())
//	tex.Release()
//
//	// Client destroyed the buffer
//	cache.Destroy(42)
//
// # Reference Counting
//
// Textures are rc.Owned objects handed out as rc.Ref[*Texture]. The cache
// holds one private reference per texture; every Attach, Commit or Texture
// call returns a public reference owned by the caller. A buffer must not be
// destroyed while public references to its texture exist: doing so panics
// with the outstanding count.
//
// # Backends
//
// Textures are created through a gpucontext.TextureCreator. Without
// WithCreator the provider opens a registered backend: "wgpu" (import
// github.com/gogpu/texmemo/backend/wgpu) when a GPU adapter is available,
// otherwise "software". Released backings are parked in a byte-budgeted
// pool and reused for textures of the same size.
//
// # Architecture
//
// The module is organized into:
//   - rc: intrusive public/private reference counts and the Ref handle
//   - notify: one-shot destroy notifications (Hub) and a delivery goroutine (Pump)
//   - memo: the buffer-to-texture Memoizer
//   - backend: texture creators (software, wgpu)
//   - texmemo: buffers, textures, the provider and the Cache facade
package texmemo

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
