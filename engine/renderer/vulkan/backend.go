package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/glacian/engine/core"
)

// VulkanRenderer adapts the RenderEngine to the renderer frontend.
type VulkanRenderer struct {
	window Window
	config EngineConfig
	engine *RenderEngine
}

func New(window Window, cfg EngineConfig) *VulkanRenderer {
	return &VulkanRenderer{
		window: window,
		config: cfg,
	}
}

func (vr *VulkanRenderer) Initialize(appName string, appWidth, appHeight uint32) error {
	if vr.engine != nil {
		return errors.New("vulkan renderer already initialized")
	}
	core.LogInfo("initializing Vulkan renderer for %s (%dx%d)", appName, appWidth, appHeight)

	vc, err := NewVulkanContext(vr.window, appName, vr.config)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	engine, err := NewRenderEngine(vc, vr.window, vr.config)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	vr.engine = engine
	return nil
}

func (vr *VulkanRenderer) Resized(width, height uint32) error {
	if vr.engine == nil {
		return core.ErrEngineDestroyed
	}
	return vr.engine.Resize(width, height)
}

func (vr *VulkanRenderer) Render(view mgl32.Mat4, sunDir mgl32.Vec3) error {
	if vr.engine == nil {
		return core.ErrEngineDestroyed
	}
	return vr.engine.Render(view, sunDir)
}

func (vr *VulkanRenderer) ReloadShaders() error {
	if vr.engine == nil {
		return core.ErrEngineDestroyed
	}
	return vr.engine.ReloadShaders()
}

func (vr *VulkanRenderer) SetTerrainMesh(indices []uint32, vertices []TerrainVertex) error {
	if vr.engine == nil {
		return core.ErrEngineDestroyed
	}
	return vr.engine.SetTerrainMesh(indices, vertices)
}

func (vr *VulkanRenderer) FrameCount() uint64 {
	if vr.engine == nil {
		return 0
	}
	return vr.engine.FrameCount()
}

func (vr *VulkanRenderer) Shutdown() error {
	if vr.engine == nil {
		return nil
	}
	err := vr.engine.Destroy()
	vr.engine = nil
	if err != nil {
		return errors.Mark(err, core.ErrResourceLeak)
	}
	return nil
}
