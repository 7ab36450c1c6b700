package vulkan

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacian/engine/core"
)

type fakeWindow struct {
	width, height uint32
}

func (w *fakeWindow) FramebufferSize() (uint32, uint32) {
	return w.width, w.height
}

type fakeCopy struct {
	src, dst Buffer
	regions  []BufferCopy
}

type fakeAcquire struct {
	index  uint32
	signal Semaphore
}

type fakePresent struct {
	swapchain SwapchainHandle
	index     uint32
	wait      Semaphore
}

type fakeTransition struct {
	cb       CommandBuffer
	image    Image
	from, to vk.ImageLayout
}

type fakeSwapchain struct {
	info   SwapchainCreateInfo
	images []Image
	next   uint32
}

// fakeDevice implements Device in memory. Buffer copies run at submit time so
// uploads can be read back; fences signal on submit.
type fakeDevice struct {
	window *fakeWindow

	// surface behaviour
	imageCount      uint32
	undefinedExtent bool
	minExtent       vk.Extent2D
	maxExtent       vk.Extent2D
	presentModes    []vk.PresentMode

	// fault injection
	acquireOutOfDate  int
	presentOutOfDate  int
	presentSuboptimal int
	hangFences        bool
	failEnd           bool

	next uint64
	live map[uint64]string
	errs []string

	events      []string
	fences      map[Fence]bool
	cbPool      map[CommandBuffer]CommandPool
	cbCopies    map[CommandBuffer][]fakeCopy
	cbEnded     map[CommandBuffer]bool
	memory      map[DeviceMemory][]byte
	bufferMem   map[Buffer]DeviceMemory
	bufferSize  map[Buffer]uint64
	imageMem    map[Image]DeviceMemory
	imageInfo   map[Image]ImageCreateInfo
	layouts     map[Image]vk.ImageLayout
	swapchains  map[SwapchainHandle]*fakeSwapchain
	storageImg  map[DescriptorSet]ImageView
	storageBuf  map[DescriptorSet]Buffer
	pipelines   map[Pipeline]GraphicsPipelineInfo
	transitions []fakeTransition
	submits     []SubmitInfo
	acquires    []fakeAcquire
	presents    []fakePresent
	dispatches  [][3]uint32
	draws       []uint32
	pushes      [][]byte
	blits       [][2]vk.Extent2D
	renderings  []RenderingInfo
	// acquire semaphores whose signal no submit has waited on yet
	pendingSignals map[Semaphore]bool

	swapchainsCreated int
	waitIdles         int
	deviceDestroyed   bool
	instanceDestroyed bool
}

func newFakeDevice(window *fakeWindow) *fakeDevice {
	return &fakeDevice{
		window:       window,
		imageCount:   3,
		minExtent:    vk.Extent2D{Width: 1, Height: 1},
		maxExtent:    vk.Extent2D{Width: 4096, Height: 4096},
		presentModes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
		live:         make(map[uint64]string),
		fences:       make(map[Fence]bool),
		cbPool:       make(map[CommandBuffer]CommandPool),
		cbCopies:     make(map[CommandBuffer][]fakeCopy),
		cbEnded:      make(map[CommandBuffer]bool),
		memory:       make(map[DeviceMemory][]byte),
		bufferMem:    make(map[Buffer]DeviceMemory),
		bufferSize:   make(map[Buffer]uint64),
		imageMem:     make(map[Image]DeviceMemory),
		imageInfo:    make(map[Image]ImageCreateInfo),
		layouts:      make(map[Image]vk.ImageLayout),
		swapchains:   make(map[SwapchainHandle]*fakeSwapchain),
		storageImg:   make(map[DescriptorSet]ImageView),
		storageBuf:   make(map[DescriptorSet]Buffer),
		pipelines:    make(map[Pipeline]GraphicsPipelineInfo),

		pendingSignals: make(map[Semaphore]bool),
	}
}

func (f *fakeDevice) create(kind string) uint64 {
	f.next++
	f.live[f.next] = kind
	return f.next
}

func (f *fakeDevice) destroy(h uint64, kind string) {
	if h == 0 {
		return
	}
	got, ok := f.live[h]
	switch {
	case !ok:
		f.errs = append(f.errs, fmt.Sprintf("destroy of unknown or freed %s %d", kind, h))
	case got != kind:
		f.errs = append(f.errs, fmt.Sprintf("destroy of %s %d as %s", got, h, kind))
	default:
		delete(f.live, h)
	}
}

func (f *fakeDevice) liveKinds() map[string]int {
	out := make(map[string]int)
	for _, kind := range f.live {
		out[kind]++
	}
	return out
}

func (f *fakeDevice) CreateFence(signaled bool) (Fence, error) {
	h := Fence(f.create("fence"))
	f.fences[h] = signaled
	return h, nil
}

func (f *fakeDevice) DestroyFence(h Fence) {
	f.destroy(uint64(h), "fence")
	delete(f.fences, h)
}

func (f *fakeDevice) WaitForFence(h Fence, timeout time.Duration) error {
	if f.hangFences || !f.fences[h] {
		f.events = append(f.events, fmt.Sprintf("wait_timeout:%d", h))
		return errors.Wrapf(core.ErrFenceTimeout, "fence %d after %s", h, timeout)
	}
	f.events = append(f.events, fmt.Sprintf("wait_ok:%d", h))
	return nil
}

func (f *fakeDevice) ResetFence(h Fence) error {
	f.fences[h] = false
	f.events = append(f.events, fmt.Sprintf("reset_fence:%d", h))
	return nil
}

func (f *fakeDevice) CreateSemaphore() (Semaphore, error) {
	return Semaphore(f.create("semaphore")), nil
}

func (f *fakeDevice) DestroySemaphore(h Semaphore) {
	if f.pendingSignals[h] {
		f.errs = append(f.errs, fmt.Sprintf("semaphore %d destroyed with a pending signal", h))
	}
	f.destroy(uint64(h), "semaphore")
}

func (f *fakeDevice) CreateCommandPool() (CommandPool, error) {
	return CommandPool(f.create("command_pool")), nil
}

func (f *fakeDevice) DestroyCommandPool(h CommandPool) {
	f.destroy(uint64(h), "command_pool")
	for cb, pool := range f.cbPool {
		if pool == h {
			delete(f.cbPool, cb)
			delete(f.live, uint64(cb))
		}
	}
}

func (f *fakeDevice) AllocateCommandBuffer(pool CommandPool) (CommandBuffer, error) {
	h := CommandBuffer(f.create("command_buffer"))
	f.cbPool[h] = pool
	return h, nil
}

func (f *fakeDevice) ResetCommandBuffer(cb CommandBuffer) error {
	f.events = append(f.events, fmt.Sprintf("reset_cb:%d", cb))
	delete(f.cbCopies, cb)
	delete(f.cbEnded, cb)
	return nil
}

func (f *fakeDevice) BeginCommandBuffer(cb CommandBuffer, oneTimeSubmit bool) error {
	f.cbEnded[cb] = false
	return nil
}

func (f *fakeDevice) EndCommandBuffer(cb CommandBuffer) error {
	if f.failEnd {
		return errors.New("recording failed")
	}
	f.cbEnded[cb] = true
	return nil
}

func (f *fakeDevice) CmdTransitionImage(cb CommandBuffer, image Image, from, to vk.ImageLayout) {
	f.transitions = append(f.transitions, fakeTransition{cb: cb, image: image, from: from, to: to})
	f.layouts[image] = to
}

func (f *fakeDevice) CmdBeginRendering(cb CommandBuffer, info RenderingInfo) {
	f.renderings = append(f.renderings, info)
}

func (f *fakeDevice) CmdEndRendering(cb CommandBuffer) {}

func (f *fakeDevice) CmdBindPipeline(cb CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline Pipeline) {
	if _, ok := f.live[uint64(pipeline)]; !ok {
		f.errs = append(f.errs, fmt.Sprintf("bind of dead pipeline %d", pipeline))
	}
}

func (f *fakeDevice) CmdBindDescriptorSet(cb CommandBuffer, bindPoint vk.PipelineBindPoint, layout PipelineLayout, set DescriptorSet) {
}

func (f *fakeDevice) CmdSetViewportScissor(cb CommandBuffer, extent vk.Extent2D) {}

func (f *fakeDevice) CmdPushConstants(cb CommandBuffer, layout PipelineLayout, stages vk.ShaderStageFlags, data []byte) {
	f.pushes = append(f.pushes, append([]byte(nil), data...))
}

func (f *fakeDevice) CmdBindIndexBuffer(cb CommandBuffer, buffer Buffer, indexType vk.IndexType) {}

func (f *fakeDevice) CmdDrawIndexed(cb CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	f.draws = append(f.draws, indexCount)
}

func (f *fakeDevice) CmdDispatch(cb CommandBuffer, x, y, z uint32) {
	f.dispatches = append(f.dispatches, [3]uint32{x, y, z})
}

func (f *fakeDevice) CmdClearColorImage(cb CommandBuffer, image Image, layout vk.ImageLayout, color [4]float32) {
}

func (f *fakeDevice) CmdBlitImage(cb CommandBuffer, src, dst Image, srcExtent, dstExtent vk.Extent2D) {
	f.blits = append(f.blits, [2]vk.Extent2D{srcExtent, dstExtent})
}

func (f *fakeDevice) CmdCopyBuffer(cb CommandBuffer, src, dst Buffer, regions []BufferCopy) {
	f.cbCopies[cb] = append(f.cbCopies[cb], fakeCopy{src: src, dst: dst, regions: regions})
}

func (f *fakeDevice) QueueSubmit(info SubmitInfo) error {
	if !f.cbEnded[info.CommandBuffer] {
		f.errs = append(f.errs, fmt.Sprintf("submit of command buffer %d that was not ended", info.CommandBuffer))
	}
	for _, c := range f.cbCopies[info.CommandBuffer] {
		src, dst := f.memory[f.bufferMem[c.src]], f.memory[f.bufferMem[c.dst]]
		for _, r := range c.regions {
			copy(dst[r.DstOffset:r.DstOffset+r.Size], src[r.SrcOffset:r.SrcOffset+r.Size])
		}
	}
	for _, w := range info.Wait {
		delete(f.pendingSignals, w.Semaphore)
	}
	f.submits = append(f.submits, info)
	f.events = append(f.events, fmt.Sprintf("submit:%d", info.CommandBuffer))
	if info.Fence != 0 {
		f.fences[info.Fence] = true
	}
	return nil
}

func (f *fakeDevice) AcquireNextImage(h SwapchainHandle, timeout time.Duration, signal Semaphore) (uint32, bool, error) {
	if f.acquireOutOfDate > 0 {
		f.acquireOutOfDate--
		return 0, false, core.ErrSwapchainOutOfDate
	}
	sc := f.swapchains[h]
	if sc == nil {
		f.errs = append(f.errs, fmt.Sprintf("acquire on dead swapchain %d", h))
		return 0, false, errors.New("dead swapchain")
	}
	index := sc.next % uint32(len(sc.images))
	sc.next++
	f.acquires = append(f.acquires, fakeAcquire{index: index, signal: signal})
	f.pendingSignals[signal] = true
	return index, false, nil
}

func (f *fakeDevice) QueuePresent(h SwapchainHandle, imageIndex uint32, wait Semaphore) (bool, error) {
	f.presents = append(f.presents, fakePresent{swapchain: h, index: imageIndex, wait: wait})
	if f.presentOutOfDate > 0 {
		f.presentOutOfDate--
		return false, core.ErrSwapchainOutOfDate
	}
	if f.presentSuboptimal > 0 {
		f.presentSuboptimal--
		return true, nil
	}
	return false, nil
}

func (f *fakeDevice) WaitIdle() error {
	f.waitIdles++
	clear(f.pendingSignals)
	return nil
}

func (f *fakeDevice) CreateSurface() (Surface, error) {
	return Surface(f.create("surface")), nil
}

func (f *fakeDevice) DestroySurface(h Surface) { f.destroy(uint64(h), "surface") }

func (f *fakeDevice) SurfaceCapabilities(Surface) (SurfaceCapabilities, error) {
	caps := SurfaceCapabilities{
		MinImageCount:  2,
		MaxImageCount:  f.imageCount,
		CurrentExtent:  vk.Extent2D{Width: f.window.width, Height: f.window.height},
		MinImageExtent: f.minExtent,
		MaxImageExtent: f.maxExtent,
	}
	if f.undefinedExtent {
		caps.CurrentExtent = vk.Extent2D{Width: UndefinedExtent, Height: UndefinedExtent}
	}
	return caps, nil
}

func (f *fakeDevice) SurfaceFormats(Surface) ([]SurfaceFormat, error) {
	return []SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}, nil
}

func (f *fakeDevice) SurfacePresentModes(Surface) ([]vk.PresentMode, error) {
	return f.presentModes, nil
}

func (f *fakeDevice) CreateSwapchain(info SwapchainCreateInfo) (SwapchainHandle, error) {
	h := SwapchainHandle(f.create("swapchain"))
	sc := &fakeSwapchain{info: info}
	for i := uint32(0); i < info.MinImages; i++ {
		f.next++
		sc.images = append(sc.images, Image(f.next))
	}
	f.swapchains[h] = sc
	f.swapchainsCreated++
	return h, nil
}

func (f *fakeDevice) DestroySwapchain(h SwapchainHandle) {
	f.destroy(uint64(h), "swapchain")
	delete(f.swapchains, h)
}

func (f *fakeDevice) SwapchainImages(h SwapchainHandle) ([]Image, error) {
	return append([]Image(nil), f.swapchains[h].images...), nil
}

func (f *fakeDevice) MemoryTypes() []MemoryType {
	return []MemoryType{
		{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), HeapIndex: 0},
		{PropertyFlags: hostVisible, HeapIndex: 1},
	}
}

func (f *fakeDevice) CreateImage(info ImageCreateInfo) (Image, MemoryRequirements, error) {
	h := Image(f.create("image"))
	f.imageInfo[h] = info
	size := uint64(info.Extent.Width) * uint64(info.Extent.Height) * 8
	return h, MemoryRequirements{Size: size, Alignment: 256, MemoryTypeBits: 0b01}, nil
}

func (f *fakeDevice) DestroyImage(h Image) {
	f.destroy(uint64(h), "image")
	delete(f.imageInfo, h)
	delete(f.imageMem, h)
}

func (f *fakeDevice) CreateImageView(image Image, format vk.Format) (ImageView, error) {
	return ImageView(f.create("image_view")), nil
}

func (f *fakeDevice) DestroyImageView(h ImageView) { f.destroy(uint64(h), "image_view") }

func (f *fakeDevice) CreateBuffer(size uint64, usage vk.BufferUsageFlags) (Buffer, MemoryRequirements, error) {
	h := Buffer(f.create("buffer"))
	f.bufferSize[h] = size
	return h, MemoryRequirements{Size: size, Alignment: 16, MemoryTypeBits: 0b11}, nil
}

func (f *fakeDevice) DestroyBuffer(h Buffer) {
	f.destroy(uint64(h), "buffer")
	delete(f.bufferSize, h)
	delete(f.bufferMem, h)
}

func (f *fakeDevice) AllocateMemory(size uint64, memoryTypeIndex uint32) (DeviceMemory, error) {
	h := DeviceMemory(f.create("memory"))
	f.memory[h] = make([]byte, size)
	return h, nil
}

func (f *fakeDevice) FreeMemory(h DeviceMemory) {
	f.destroy(uint64(h), "memory")
	delete(f.memory, h)
}

func (f *fakeDevice) BindImageMemory(img Image, mem DeviceMemory) error {
	f.imageMem[img] = mem
	return nil
}

func (f *fakeDevice) BindBufferMemory(buf Buffer, mem DeviceMemory) error {
	f.bufferMem[buf] = mem
	return nil
}

func (f *fakeDevice) MapMemory(mem DeviceMemory, size uint64) ([]byte, error) {
	return f.memory[mem][:size], nil
}

func (f *fakeDevice) UnmapMemory(DeviceMemory) {}

func (f *fakeDevice) BufferDeviceAddress(h Buffer) uint64 {
	return 0x1000_0000 + uint64(h)<<12
}

func (f *fakeDevice) CreateDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayout, error) {
	return DescriptorSetLayout(f.create("descriptor_set_layout")), nil
}

func (f *fakeDevice) DestroyDescriptorSetLayout(h DescriptorSetLayout) {
	f.destroy(uint64(h), "descriptor_set_layout")
}

func (f *fakeDevice) CreateDescriptorPool(maxSets uint32, ratios []PoolSizeRatio) (DescriptorPool, error) {
	return DescriptorPool(f.create("descriptor_pool")), nil
}

func (f *fakeDevice) DestroyDescriptorPool(h DescriptorPool) { f.destroy(uint64(h), "descriptor_pool") }

// Sets are freed with their pool and are not tracked as live objects.
func (f *fakeDevice) AllocateDescriptorSet(pool DescriptorPool, layout DescriptorSetLayout) (DescriptorSet, error) {
	f.next++
	return DescriptorSet(f.next), nil
}

func (f *fakeDevice) UpdateStorageImage(set DescriptorSet, binding uint32, view ImageView, layout vk.ImageLayout) {
	f.storageImg[set] = view
}

func (f *fakeDevice) UpdateStorageBuffer(set DescriptorSet, binding uint32, buffer Buffer, size uint64) {
	f.storageBuf[set] = buffer
}

func (f *fakeDevice) CreateShaderModule(code []uint32) (ShaderModule, error) {
	if len(code) == 0 || code[0] != 0x07230203 {
		return 0, errors.New("not spir-v")
	}
	return ShaderModule(f.create("shader_module")), nil
}

func (f *fakeDevice) DestroyShaderModule(h ShaderModule) { f.destroy(uint64(h), "shader_module") }

func (f *fakeDevice) CreatePipelineLayout(setLayouts []DescriptorSetLayout, pushConstants []PushConstantRange) (PipelineLayout, error) {
	return PipelineLayout(f.create("pipeline_layout")), nil
}

func (f *fakeDevice) DestroyPipelineLayout(h PipelineLayout) { f.destroy(uint64(h), "pipeline_layout") }

func (f *fakeDevice) CreateGraphicsPipeline(info GraphicsPipelineInfo) (Pipeline, error) {
	for _, m := range []ShaderModule{info.VertexShader, info.FragmentShader} {
		if f.live[uint64(m)] != "shader_module" {
			f.errs = append(f.errs, fmt.Sprintf("graphics pipeline built from dead shader module %d", m))
		}
	}
	h := Pipeline(f.create("pipeline"))
	f.pipelines[h] = info
	return h, nil
}

func (f *fakeDevice) CreateComputePipeline(layout PipelineLayout, module ShaderModule) (Pipeline, error) {
	if f.live[uint64(module)] != "shader_module" {
		f.errs = append(f.errs, fmt.Sprintf("compute pipeline built from dead shader module %d", module))
	}
	return Pipeline(f.create("pipeline")), nil
}

func (f *fakeDevice) DestroyPipeline(h Pipeline) {
	f.destroy(uint64(h), "pipeline")
	delete(f.pipelines, h)
}

func (f *fakeDevice) DestroyDevice()   { f.deviceDestroyed = true }
func (f *fakeDevice) DestroyInstance() { f.instanceDestroyed = true }

func (f *fakeDevice) checkErrors(t *testing.T) {
	t.Helper()
	for _, e := range f.errs {
		t.Error(e)
	}
}

// writeTestShaders writes minimal SPIR-V headers for every shader the engine can load.
func writeTestShaders(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	header := make([]byte, 20)
	binary.LittleEndian.PutUint32(header, 0x07230203)
	binary.LittleEndian.PutUint32(header[4:], 0x00010600)
	for _, name := range []string{ShaderSkyVertex, ShaderSkyFragment, ShaderTerrainVertex, ShaderTerrainFragment, ShaderBackground} {
		if err := os.WriteFile(filepath.Join(dir, name), header, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

type engineFixture struct {
	dev    *fakeDevice
	window *fakeWindow
	engine *RenderEngine
}

func newTestEngine(t *testing.T, cfg EngineConfig) *engineFixture {
	t.Helper()
	if cfg.ShaderDir == "" {
		cfg.ShaderDir = writeTestShaders(t)
	}
	if cfg.PresentMode == 0 {
		cfg.PresentMode = vk.PresentModeFifo
	}
	window := &fakeWindow{width: 800, height: 600}
	dev := newFakeDevice(window)
	e, err := NewRenderEngine(dev, window, cfg)
	if err != nil {
		t.Fatalf("NewRenderEngine: %v", err)
	}
	return &engineFixture{dev: dev, window: window, engine: e}
}
