package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/glacian/engine/core"
	"github.com/spaghettifunk/glacian/engine/renderer/software"
	"github.com/spaghettifunk/glacian/engine/renderer/vulkan"
)

// RenderPacket is everything a frame needs from the game.
type RenderPacket struct {
	DeltaTime    float64
	View         mgl32.Mat4
	SunDirection mgl32.Vec3
}

// Renderer is the frontend the engine talks to. It owns one backend and stops
// drawing while the window has a zero-sized framebuffer.
type Renderer struct {
	backend     Backend
	backendType BackendType
	suspended   bool
}

// ParseBackendType maps the renderer.backend config value.
func ParseBackendType(name string) (BackendType, error) {
	switch name {
	case "vulkan":
		return Vulkan, nil
	case "software":
		return Software, nil
	}
	return 0, errors.Wrapf(core.ErrUnknownBackend, "backend `%s`", name)
}

// New builds the backend named in cfg. Nothing touches the GPU until Initialize.
func New(cfg *core.Config, window vulkan.Window) (*Renderer, error) {
	t, err := ParseBackendType(cfg.Renderer.Backend)
	if err != nil {
		return nil, err
	}
	var backend Backend
	switch t {
	case Vulkan:
		backend = vulkan.New(window, vulkan.EngineConfigFrom(cfg))
	case Software:
		backend = software.New(software.Config{
			CapturePath:   cfg.Software.CapturePath,
			CaptureFrames: cfg.Software.CaptureFrames,
		})
	}
	return NewWithBackend(backend, t), nil
}

func NewWithBackend(backend Backend, t BackendType) *Renderer {
	return &Renderer{backend: backend, backendType: t}
}

func (r *Renderer) Initialize(appName string, appWidth, appHeight uint32) error {
	core.LogInfo("renderer backend: %s", r.backendType)
	if err := r.backend.Initialize(appName, appWidth, appHeight); err != nil {
		return errors.Wrapf(err, "%s backend initialization failed", r.backendType)
	}
	return nil
}

func (r *Renderer) Shutdown() error {
	return r.backend.Shutdown()
}

// OnResize forwards the new framebuffer size. A zero size suspends drawing
// until the next non-zero resize instead of failing. A backend that failed
// is reported even when the failure came from a zero extent.
func (r *Renderer) OnResize(width, height uint32) error {
	err := r.backend.Resized(width, height)
	switch {
	case err == nil:
		if r.suspended {
			core.LogDebug("renderer resumed at %dx%d", width, height)
		}
		r.suspended = false
		return nil
	case core.IsFatal(err):
		return err
	case errors.Is(err, core.ErrZeroExtent):
		if !r.suspended {
			core.LogDebug("renderer suspended: %s", err)
		}
		r.suspended = true
		return nil
	}
	return err
}

func (r *Renderer) Suspended() bool {
	return r.suspended
}

func (r *Renderer) DrawFrame(packet *RenderPacket) error {
	if r.suspended {
		return nil
	}
	if err := r.backend.Render(packet.View, packet.SunDirection); err != nil {
		core.LogError(err.Error())
		return err
	}
	return nil
}

// ReloadShaders asks the backend to rebuild its pipelines. Backends without
// shaders ignore it.
func (r *Renderer) ReloadShaders() error {
	if reloader, ok := r.backend.(ShaderReloader); ok {
		return reloader.ReloadShaders()
	}
	return nil
}

// SetTerrainMesh hands a packed terrain mesh to the Vulkan backend.
func (r *Renderer) SetTerrainMesh(indices []uint32, vertices []vulkan.TerrainVertex) error {
	type meshSetter interface {
		SetTerrainMesh([]uint32, []vulkan.TerrainVertex) error
	}
	if s, ok := r.backend.(meshSetter); ok {
		return s.SetTerrainMesh(indices, vertices)
	}
	return errors.Newf("%s backend cannot draw terrain", r.backendType)
}
