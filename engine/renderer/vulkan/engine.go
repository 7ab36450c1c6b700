package vulkan

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/glacian/engine/core"
	"github.com/spaghettifunk/glacian/engine/math"
)

type EngineConfig struct {
	ComputeBackground bool
	TerrainPass       bool
	PresentMode       vk.PresentMode
	ShaderDir         string
	Debug             bool
}

// EngineConfigFrom maps the renderer section of the application config.
func EngineConfigFrom(cfg *core.Config) EngineConfig {
	mode := vk.PresentModeFifo
	if cfg.Renderer.PresentMode == "mailbox" {
		mode = vk.PresentModeMailbox
	}
	return EngineConfig{
		ComputeBackground: cfg.Renderer.ComputeBackground,
		TerrainPass:       cfg.Renderer.TerrainPass,
		PresentMode:       mode,
		ShaderDir:         cfg.Renderer.ShaderDir,
		Debug:             cfg.Renderer.Debug,
	}
}

type FramebufferSizer interface {
	FramebufferSize() (uint32, uint32)
}

// RenderEngine owns every GPU resource of the renderer and drives the
// double-buffered acquire, record, submit, present loop.
type RenderEngine struct {
	ID uuid.UUID

	dev    Device
	window FramebufferSizer
	config EngineConfig
	logger *log.Logger

	allocator   *Allocator
	immediate   *ImmediateSubmitter
	swapchain   *Swapchain
	frames      [FrameOverlap]*FrameSync
	drawImage   *AllocatedImage
	descriptors *DescriptorState
	sky         *SkyPass
	background  *BackgroundPass
	terrain     *TerrainPass

	// pipelines replaced by a shader reload, destroyed once no frame can use them
	deletionQueue DeletionQueue
	retiredAt     uint64

	frameCount     uint64
	aspectRatio    float32
	rebuildPending bool
	destroyed      bool
	failed         error
}

// NewRenderEngine takes ownership of dev: on failure, and later on Destroy, the
// device and its instance are torn down with everything else.
func NewRenderEngine(dev Device, window FramebufferSizer, cfg EngineConfig) (*RenderEngine, error) {
	e := &RenderEngine{
		ID:     uuid.New(),
		dev:    dev,
		window: window,
		config: cfg,
	}
	e.logger = core.LogWith("engine", e.ID.String()[:8])

	if err := e.initialize(); err != nil {
		e.logger.Error("render engine initialization failed", "err", err)
		if derr := e.Destroy(); derr != nil {
			e.logger.Warn("teardown after failed initialization", "err", derr)
		}
		return nil, err
	}
	e.logger.Info("render engine ready",
		"extent", e.drawImage.Extent, "images", len(e.swapchain.Images),
		"background", cfg.ComputeBackground, "terrain", cfg.TerrainPass)
	return e, nil
}

func (e *RenderEngine) initialize() error {
	shaders, err := LoadShaderSet(context.Background(), e.config.ShaderDir, RequiredShaders(e.config)...)
	if err != nil {
		return err
	}

	e.allocator = NewAllocator(e.dev)
	e.immediate = NewImmediateSubmitter(e.dev)

	w, h := e.window.FramebufferSize()
	extent := vk.Extent2D{Width: w, Height: h}
	if e.swapchain, err = CreateSwapchain(e.dev, extent, e.config.PresentMode); err != nil {
		return err
	}
	if e.drawImage, err = NewDrawImage(e.allocator, extent); err != nil {
		return err
	}
	e.aspectRatio = float32(w) / float32(h)
	if e.descriptors, err = NewDescriptorState(e.dev, e.drawImage); err != nil {
		return err
	}
	for i := range e.frames {
		if e.frames[i], err = NewFrameSync(e.dev); err != nil {
			return err
		}
	}

	if e.sky, err = NewSkyPass(e.dev, e.allocator, e.immediate, shaders); err != nil {
		return err
	}
	if e.config.ComputeBackground {
		if e.background, err = NewBackgroundPass(e.dev, e.descriptors.Layout, shaders); err != nil {
			return err
		}
	}
	if e.config.TerrainPass {
		if e.terrain, err = NewTerrainPass(e.dev, shaders); err != nil {
			return err
		}
	}
	return nil
}

func (e *RenderEngine) check() error {
	if e.destroyed {
		return core.ErrEngineDestroyed
	}
	if e.failed != nil {
		return errors.Mark(e.failed, core.ErrEngineFailed)
	}
	return nil
}

// fail records the first fatal error. Every later call returns it.
func (e *RenderEngine) fail(err error) error {
	if e.failed == nil {
		e.failed = err
		e.logger.Error("render engine failed", "frame", e.frameCount, "err", err)
	}
	return errors.Mark(err, core.ErrEngineFailed)
}

// Render draws one frame with the given camera view and sun direction.
func (e *RenderEngine) Render(view mgl32.Mat4, sunDir mgl32.Vec3) error {
	if err := e.check(); err != nil {
		return err
	}
	if e.rebuildPending {
		if err := e.rebuildSwapchain(); err != nil {
			return err
		}
	}

	slot := e.frameCount % FrameOverlap
	frame := e.frames[slot]

	if err := frame.Fence.Wait(e.dev, FrameTimeout); err != nil {
		return e.fail(err)
	}
	// every frame recorded before the last reload has now completed
	if e.deletionQueue.Len() > 0 && e.frameCount > e.retiredAt {
		e.deletionQueue.Flush(e.dev)
	}
	if err := frame.Fence.Reset(e.dev); err != nil {
		return e.fail(err)
	}
	if err := frame.CommandBuffer.Reset(e.dev); err != nil {
		return e.fail(err)
	}

	imageIndex, err := e.acquire(frame)
	if err != nil {
		if aerr := frame.Abandon(e.dev); aerr != nil {
			return e.fail(aerr)
		}
		if errors.Is(err, core.ErrSwapchainOutOfDate) && e.failed == nil {
			return err
		}
		return e.fail(err)
	}

	if err := e.record(frame.CommandBuffer, imageIndex, view, sunDir); err != nil {
		// ImageAvailable still has the acquire's signal pending, so the slot
		// is left as is and Destroy releases it once the device is idle.
		return e.fail(err)
	}

	if err := e.dev.QueueSubmit(SubmitInfo{
		CommandBuffer: frame.CommandBuffer.Handle,
		Wait: []SemaphoreSubmit{{
			Semaphore: frame.ImageAvailable,
			Stage:     vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		}},
		Signal: []SemaphoreSubmit{{
			Semaphore: e.swapchain.Semaphores[imageIndex],
			Stage:     vk.PipelineStageFlags(vk.PipelineStageAllGraphicsBit),
		}},
		Fence: frame.Fence.Handle,
	}); err != nil {
		return e.fail(errors.Wrap(err, "frame submit"))
	}
	frame.CommandBuffer.UpdateSubmitted()

	suboptimal, err := e.swapchain.Present(e.dev, imageIndex)
	e.frameCount++
	switch {
	case errors.Is(err, core.ErrSwapchainOutOfDate):
		e.logger.Debug("swapchain out of date on present", "frame", e.frameCount)
		e.rebuildPending = true
	case err != nil:
		return e.fail(errors.Wrap(err, "present"))
	case suboptimal:
		e.logger.Warn("swapchain suboptimal on present", "frame", e.frameCount, "image", imageIndex)
		if e.surfaceChanged() {
			e.rebuildPending = true
		}
	}
	if e.rebuildPending {
		return e.rebuildSwapchain()
	}
	return nil
}

// acquire gets the next swapchain image. An out-of-date swapchain is rebuilt
// at the current window size and the acquire retried once.
func (e *RenderEngine) acquire(frame *FrameSync) (uint32, error) {
	index, suboptimal, err := e.swapchain.AcquireNextImage(e.dev, frame.ImageAvailable, AcquireTimeout)
	if errors.Is(err, core.ErrSwapchainOutOfDate) {
		e.logger.Warn("swapchain out of date on acquire, rebuilding", "frame", e.frameCount)
		w, h := e.window.FramebufferSize()
		if w == 0 || h == 0 {
			e.rebuildPending = true
			return 0, err
		}
		if rerr := e.Resize(w, h); rerr != nil {
			if errors.Is(rerr, core.ErrZeroExtent) && e.failed == nil {
				return 0, err
			}
			return 0, rerr
		}
		index, suboptimal, err = e.swapchain.AcquireNextImage(e.dev, frame.ImageAvailable, AcquireTimeout)
	}
	if err != nil {
		return 0, err
	}
	if suboptimal {
		e.logger.Warn("swapchain suboptimal on acquire", "frame", e.frameCount, "image", index)
	}
	return index, nil
}

func (e *RenderEngine) record(cb *VulkanCommandBuffer, imageIndex uint32, view mgl32.Mat4, sunDir mgl32.Vec3) error {
	if err := cb.Begin(e.dev, true); err != nil {
		return err
	}
	h := cb.Handle
	draw := e.drawImage

	loadOp := vk.AttachmentLoadOpClear
	if e.background != nil {
		e.background.Record(e.dev, h, draw, e.descriptors.Set)
		loadOp = vk.AttachmentLoadOpLoad
	} else {
		TransitionImage(e.dev, h, draw.Image, vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal)
	}

	e.sky.Draw(e.dev, h, draw, loadOp, math.SkyViewProjection(view, e.aspectRatio), sunDir)
	if e.terrain != nil {
		e.terrain.Draw(e.dev, h, draw, math.ViewProjection(view, e.aspectRatio))
	}

	swapImage := e.swapchain.Images[imageIndex]
	TransitionImage(e.dev, h, draw.Image, vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutTransferSrcOptimal)
	TransitionImage(e.dev, h, swapImage, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	CopyImageToImage(e.dev, h, draw.Image, swapImage, draw.Extent, e.swapchain.Extent)
	TransitionImage(e.dev, h, swapImage, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutPresentSrc)

	return cb.End(e.dev)
}

func (e *RenderEngine) rebuildSwapchain() error {
	w, h := e.window.FramebufferSize()
	if w == 0 || h == 0 {
		// minimized, try again on a later frame
		return nil
	}
	err := e.Resize(w, h)
	if errors.Is(err, core.ErrZeroExtent) && e.failed == nil {
		return nil
	}
	return err
}

// surfaceChanged reports whether the surface now wants another extent than
// the swapchain was built with.
func (e *RenderEngine) surfaceChanged() bool {
	w, h := e.window.FramebufferSize()
	target, err := e.swapchain.SurfaceExtent(e.dev, vk.Extent2D{Width: w, Height: h})
	if err != nil {
		e.logger.Warn("surface query after suboptimal present", "err", err)
		return false
	}
	return target.Width != e.swapchain.Extent.Width || target.Height != e.swapchain.Extent.Height
}

// Resize recreates the swapchain and the draw image at the new size.
// A zero dimension, requested or reported by the surface, is rejected with
// core.ErrZeroExtent and changes nothing.
func (e *RenderEngine) Resize(width, height uint32) error {
	if err := e.check(); err != nil {
		return err
	}
	if width == 0 || height == 0 {
		return errors.Wrapf(core.ErrZeroExtent, "resize to %dx%d", width, height)
	}
	target, err := e.swapchain.SurfaceExtent(e.dev, vk.Extent2D{Width: width, Height: height})
	if err != nil {
		return e.fail(err)
	}
	if target.Width == 0 || target.Height == 0 {
		// the window was minimized after the resize was queued
		e.rebuildPending = true
		return errors.Wrapf(core.ErrZeroExtent, "surface extent %dx%d", target.Width, target.Height)
	}
	if err := e.dev.WaitIdle(); err != nil {
		return e.fail(errors.Wrap(err, "wait idle before resize"))
	}
	e.deletionQueue.Flush(e.dev)

	extent := vk.Extent2D{Width: width, Height: height}

	e.swapchain.Destroy(e.dev)
	e.swapchain = nil
	sc, err := CreateSwapchain(e.dev, extent, e.config.PresentMode)
	if err != nil {
		return e.fail(err)
	}
	e.swapchain = sc

	e.allocator.DestroyImage(e.drawImage)
	e.drawImage = nil
	draw, err := NewDrawImage(e.allocator, extent)
	if err != nil {
		return e.fail(err)
	}
	e.drawImage = draw
	e.descriptors.WriteDrawImage(e.dev, draw)

	e.aspectRatio = float32(width) / float32(height)
	e.rebuildPending = false
	e.logger.Debug("resized", "width", width, "height", height, "swapchain", sc.Extent)
	return nil
}

// ReloadShaders rebuilds every pass pipeline from the shader directory. The
// replaced pipelines are destroyed once no frame in flight can reference them.
// A failed reload keeps the current pipelines and leaves the engine usable.
func (e *RenderEngine) ReloadShaders() error {
	if err := e.check(); err != nil {
		return err
	}
	shaders, err := LoadShaderSet(context.Background(), e.config.ShaderDir, RequiredShaders(e.config)...)
	if err != nil {
		return err
	}

	type reloader interface {
		Reload(Device, ShaderSet) (*VulkanPipeline, error)
	}
	passes := []reloader{e.sky}
	if e.background != nil {
		passes = append(passes, e.background)
	}
	if e.terrain != nil {
		passes = append(passes, e.terrain)
	}
	for _, p := range passes {
		retired, err := p.Reload(e.dev, shaders)
		if err != nil {
			return err
		}
		e.retire(retired)
	}
	e.logger.Info("shaders reloaded", "pipelines", len(passes))
	return nil
}

func (e *RenderEngine) retire(p *VulkanPipeline) {
	if p == nil {
		return
	}
	// LIFO flush destroys the pipeline before its layout
	e.deletionQueue.Push(DeleteAction{Kind: DeletePipelineLayout, Handle: uint64(p.Layout)})
	e.deletionQueue.Push(DeleteAction{Kind: DeletePipeline, Handle: uint64(p.Handle)})
	e.retiredAt = e.frameCount
}

// SetTerrainMesh uploads a packed terrain mesh and draws it from the next frame on.
func (e *RenderEngine) SetTerrainMesh(indices []uint32, vertices []TerrainVertex) error {
	if err := e.check(); err != nil {
		return err
	}
	if e.terrain == nil {
		return errors.New("terrain pass is disabled")
	}
	mesh, err := UploadMesh(e.dev, e.allocator, e.immediate, indices, vertices)
	if err != nil {
		return err
	}
	// the descriptor set may be read by frames in flight
	if err := e.dev.WaitIdle(); err != nil {
		mesh.Destroy(e.allocator)
		return e.fail(errors.Wrap(err, "wait idle before mesh swap"))
	}
	e.terrain.SetMesh(e.dev, mesh).Destroy(e.allocator)
	return nil
}

// Destroy waits for the device to go idle and releases everything in a fixed
// order, ending with the device and instance. Calling it again does nothing.
// A non-nil error reports allocations that were still alive.
func (e *RenderEngine) Destroy() error {
	if e.destroyed {
		return nil
	}
	e.destroyed = true

	if err := e.dev.WaitIdle(); err != nil {
		e.logger.Warn("wait idle before teardown", "err", err)
	}

	e.descriptors.Destroy(e.dev)
	e.descriptors = nil
	if e.allocator != nil {
		e.allocator.DestroyImage(e.drawImage)
	}
	e.drawImage = nil
	e.swapchain.Destroy(e.dev)
	e.swapchain = nil

	e.background.Destroy(e.dev)
	e.background = nil
	if e.allocator != nil {
		e.terrain.Destroy(e.dev, e.allocator)
		e.sky.Destroy(e.dev, e.allocator)
	}
	e.terrain, e.sky = nil, nil

	for i, f := range e.frames {
		if f != nil {
			f.Destroy(e.dev)
			e.frames[i] = nil
		}
	}

	var leakErr error
	if e.allocator != nil {
		e.deletionQueue.Flush(e.dev)
		leakErr = e.allocator.Destroy()
	}

	e.dev.DestroyDevice()
	e.dev.DestroyInstance()
	e.logger.Info("render engine destroyed", "frames", e.frameCount)
	return leakErr
}

func (e *RenderEngine) FrameCount() uint64 {
	return e.frameCount
}

func (e *RenderEngine) AspectRatio() float32 {
	return e.aspectRatio
}

func (e *RenderEngine) DrawExtent() vk.Extent2D {
	if e.drawImage == nil {
		return vk.Extent2D{}
	}
	return e.drawImage.Extent
}

func (e *RenderEngine) Swapchain() *Swapchain {
	return e.swapchain
}

func (e *RenderEngine) Allocator() *Allocator {
	return e.allocator
}

// Err returns the fatal error that stopped the engine, if any.
func (e *RenderEngine) Err() error {
	return e.failed
}
