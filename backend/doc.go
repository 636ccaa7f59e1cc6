// Package backend provides a pluggable texture storage abstraction.
//
// The backend package lets the texture cache build textures in different
// places. The software backend keeps RGBA pixels in host memory and is
// always registered. The wgpu backend creates device textures through
// gogpu/wgpu and is registered by importing its package.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// The software backend is automatically registered on import:
//
//	import _ "github.com/gogpu/texmemo/backend"
//
// The GPU backend is opt-in:
//
//	import _ "github.com/gogpu/texmemo/backend/wgpu"
//
// # Backend Selection
//
// Use InitDefault() to initialize the best available backend, or Open() to
// request a specific backend by name:
//
//	// wgpu when an adapter is present, software otherwise
//	b, err := backend.InitDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	// Or request a specific backend
//	b, err := backend.Open("software")
//
// Every backend implements gpucontext.TextureCreator:
//
//	tex, err := b.NewTextureFromRGBA(64, 64, pixels)
package backend
