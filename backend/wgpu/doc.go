// Package wgpu provides a GPU texture backend using gogpu/wgpu.
//
// The backend creates an instance, requests the best adapter, opens a
// device and keeps its queue. Client buffers become 2D RGBA8 device
// textures created with Device.CreateTexture and filled with
// Queue.WriteTexture. Textures are released with Texture.Release, which
// defers the actual destruction until the GPU is done with them.
//
// # Registration
//
// Importing the package registers the backend under the name "wgpu":
//
//	import _ "github.com/gogpu/texmemo/backend/wgpu"
//
// backend.InitDefault() then prefers it, falling back to software when
// no adapter is available.
//
// # Thread Safety
//
// WGPUBackend is safe for concurrent use. Texture uploads are serialized
// on the backend's queue lock.
package wgpu
