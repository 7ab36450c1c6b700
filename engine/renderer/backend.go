package renderer

import "github.com/go-gl/mathgl/mgl32"

// Backend is what the frontend needs from a rendering implementation.
type Backend interface {
	Initialize(appName string, appWidth, appHeight uint32) error
	Shutdown() error
	// Resized returns core.ErrZeroExtent for a zero dimension and keeps its resources.
	Resized(width, height uint32) error
	Render(view mgl32.Mat4, sunDir mgl32.Vec3) error
}

// ShaderReloader is implemented by backends that can rebuild their pipelines
// from the shader directory at runtime.
type ShaderReloader interface {
	ReloadShaders() error
}

type BackendType uint8

const (
	Vulkan BackendType = iota
	Software
)

func (t BackendType) String() string {
	switch t {
	case Vulkan:
		return "vulkan"
	case Software:
		return "software"
	}
	return "unknown"
}
