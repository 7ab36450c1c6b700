package vulkan

import (
	"time"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Opaque handles handed out by a Device. Zero is the null handle.
type (
	Fence               uint64
	Semaphore           uint64
	CommandPool         uint64
	CommandBuffer       uint64
	Image               uint64
	ImageView           uint64
	Buffer              uint64
	DeviceMemory        uint64
	ShaderModule        uint64
	PipelineLayout      uint64
	Pipeline            uint64
	DescriptorSetLayout uint64
	DescriptorPool      uint64
	DescriptorSet       uint64
	Surface             uint64
	SwapchainHandle     uint64
)

// Window is what the device needs from the platform layer.
type Window interface {
	RequiredInstanceExtensions() []string
	FramebufferSize() (uint32, uint32)
	CreateWindowSurface(instance interface{}, alloc unsafe.Pointer) (uintptr, error)
}

type SurfaceCapabilities struct {
	MinImageCount    uint32
	MaxImageCount    uint32
	CurrentExtent    vk.Extent2D
	MinImageExtent   vk.Extent2D
	MaxImageExtent   vk.Extent2D
	CurrentTransform vk.SurfaceTransformFlagBits
}

type SurfaceFormat struct {
	Format     vk.Format
	ColorSpace vk.ColorSpace
}

type SwapchainCreateInfo struct {
	Surface     Surface
	MinImages   uint32
	Format      SurfaceFormat
	Extent      vk.Extent2D
	Usage       vk.ImageUsageFlags
	PresentMode vk.PresentMode
	Transform   vk.SurfaceTransformFlagBits
}

type MemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
}

type MemoryType struct {
	PropertyFlags vk.MemoryPropertyFlags
	HeapIndex     uint32
}

type ImageCreateInfo struct {
	Format vk.Format
	Extent vk.Extent2D
	Usage  vk.ImageUsageFlags
}

type BufferCopy struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

type DescriptorBinding struct {
	Binding uint32
	Type    vk.DescriptorType
	Count   uint32
	Stages  vk.ShaderStageFlags
}

type PoolSizeRatio struct {
	Type  vk.DescriptorType
	Ratio float32
}

type PushConstantRange struct {
	Stages vk.ShaderStageFlags
	Offset uint32
	Size   uint32
}

type GraphicsPipelineInfo struct {
	Layout         PipelineLayout
	VertexShader   ShaderModule
	FragmentShader ShaderModule
	CullMode       vk.CullModeFlagBits
	FrontFace      vk.FrontFace
	PolygonMode    vk.PolygonMode
	ColorFormat    vk.Format
}

// RenderingInfo describes a single color attachment render scope.
type RenderingInfo struct {
	View       ImageView
	Format     vk.Format
	Extent     vk.Extent2D
	LoadOp     vk.AttachmentLoadOp
	ClearColor [4]float32
}

type SemaphoreSubmit struct {
	Semaphore Semaphore
	Stage     vk.PipelineStageFlags
}

type SubmitInfo struct {
	CommandBuffer CommandBuffer
	Wait          []SemaphoreSubmit
	Signal        []SemaphoreSubmit
	Fence         Fence
}

// Device is every GPU operation the renderer performs. VulkanContext drives real hardware.
// Errors carry core sentinels: ErrFenceTimeout, ErrAcquireTimeout, ErrSwapchainOutOfDate, ErrDeviceLost.
type Device interface {
	CreateFence(signaled bool) (Fence, error)
	DestroyFence(Fence)
	WaitForFence(fence Fence, timeout time.Duration) error
	ResetFence(Fence) error
	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(Semaphore)

	CreateCommandPool() (CommandPool, error)
	DestroyCommandPool(CommandPool)
	AllocateCommandBuffer(CommandPool) (CommandBuffer, error)
	ResetCommandBuffer(CommandBuffer) error
	BeginCommandBuffer(cb CommandBuffer, oneTimeSubmit bool) error
	EndCommandBuffer(CommandBuffer) error

	CmdTransitionImage(cb CommandBuffer, image Image, from, to vk.ImageLayout)
	CmdBeginRendering(cb CommandBuffer, info RenderingInfo)
	CmdEndRendering(cb CommandBuffer)
	CmdBindPipeline(cb CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline Pipeline)
	CmdBindDescriptorSet(cb CommandBuffer, bindPoint vk.PipelineBindPoint, layout PipelineLayout, set DescriptorSet)
	CmdSetViewportScissor(cb CommandBuffer, extent vk.Extent2D)
	CmdPushConstants(cb CommandBuffer, layout PipelineLayout, stages vk.ShaderStageFlags, data []byte)
	CmdBindIndexBuffer(cb CommandBuffer, buffer Buffer, indexType vk.IndexType)
	CmdDrawIndexed(cb CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	CmdDispatch(cb CommandBuffer, x, y, z uint32)
	CmdClearColorImage(cb CommandBuffer, image Image, layout vk.ImageLayout, color [4]float32)
	CmdBlitImage(cb CommandBuffer, src, dst Image, srcExtent, dstExtent vk.Extent2D)
	CmdCopyBuffer(cb CommandBuffer, src, dst Buffer, regions []BufferCopy)

	QueueSubmit(info SubmitInfo) error
	AcquireNextImage(swapchain SwapchainHandle, timeout time.Duration, signal Semaphore) (index uint32, suboptimal bool, err error)
	QueuePresent(swapchain SwapchainHandle, imageIndex uint32, wait Semaphore) (suboptimal bool, err error)
	WaitIdle() error

	CreateSurface() (Surface, error)
	DestroySurface(Surface)
	SurfaceCapabilities(Surface) (SurfaceCapabilities, error)
	SurfaceFormats(Surface) ([]SurfaceFormat, error)
	SurfacePresentModes(Surface) ([]vk.PresentMode, error)
	CreateSwapchain(info SwapchainCreateInfo) (SwapchainHandle, error)
	DestroySwapchain(SwapchainHandle)
	SwapchainImages(SwapchainHandle) ([]Image, error)

	MemoryTypes() []MemoryType
	CreateImage(info ImageCreateInfo) (Image, MemoryRequirements, error)
	DestroyImage(Image)
	CreateImageView(image Image, format vk.Format) (ImageView, error)
	DestroyImageView(ImageView)
	CreateBuffer(size uint64, usage vk.BufferUsageFlags) (Buffer, MemoryRequirements, error)
	DestroyBuffer(Buffer)
	AllocateMemory(size uint64, memoryTypeIndex uint32) (DeviceMemory, error)
	FreeMemory(DeviceMemory)
	BindImageMemory(Image, DeviceMemory) error
	BindBufferMemory(Buffer, DeviceMemory) error
	MapMemory(memory DeviceMemory, size uint64) ([]byte, error)
	UnmapMemory(DeviceMemory)
	BufferDeviceAddress(Buffer) uint64

	CreateDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(DescriptorSetLayout)
	CreateDescriptorPool(maxSets uint32, ratios []PoolSizeRatio) (DescriptorPool, error)
	DestroyDescriptorPool(DescriptorPool)
	AllocateDescriptorSet(pool DescriptorPool, layout DescriptorSetLayout) (DescriptorSet, error)
	UpdateStorageImage(set DescriptorSet, binding uint32, view ImageView, layout vk.ImageLayout)
	UpdateStorageBuffer(set DescriptorSet, binding uint32, buffer Buffer, size uint64)

	CreateShaderModule(code []uint32) (ShaderModule, error)
	DestroyShaderModule(ShaderModule)
	CreatePipelineLayout(setLayouts []DescriptorSetLayout, pushConstants []PushConstantRange) (PipelineLayout, error)
	DestroyPipelineLayout(PipelineLayout)
	CreateGraphicsPipeline(info GraphicsPipelineInfo) (Pipeline, error)
	CreateComputePipeline(layout PipelineLayout, module ShaderModule) (Pipeline, error)
	DestroyPipeline(Pipeline)

	DestroyDevice()
	DestroyInstance()
}
