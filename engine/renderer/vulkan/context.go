package vulkan

import (
	"sync/atomic"

	vk "github.com/goki/vulkan"
)

type commandBufferEntry struct {
	handle vk.CommandBuffer
	pool   CommandPool
}

type descriptorSetEntry struct {
	handle vk.DescriptorSet
	pool   DescriptorPool
}

type swapchainEntry struct {
	handle vk.Swapchain
	images []Image
}

type imageEntry struct {
	handle vk.Image
	// swapchain images are owned by their swapchain and never destroyed here
	owned bool
}

// VulkanContext is the Device backed by goki/vulkan. Every object it creates
// is handed out as an opaque handle resolved through the tables below.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks

	debugMessenger vk.DebugReportCallback

	window       Window
	probeSurface Surface
	probeHanded  bool

	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	GraphicsQueue      vk.Queue
	GraphicsQueueIndex uint32
	Properties         vk.PhysicalDeviceProperties

	memoryTypes []MemoryType
	locks       *VulkanLockPool

	ids atomic.Uint64

	fences          *handleTable[vk.Fence]
	semaphores      *handleTable[vk.Semaphore]
	commandPools    *handleTable[vk.CommandPool]
	commandBuffers  *handleTable[commandBufferEntry]
	images          *handleTable[imageEntry]
	imageViews      *handleTable[vk.ImageView]
	buffers         *handleTable[vk.Buffer]
	memories        *handleTable[vk.DeviceMemory]
	shaderModules   *handleTable[vk.ShaderModule]
	pipelineLayouts *handleTable[vk.PipelineLayout]
	pipelines       *handleTable[vk.Pipeline]
	setLayouts      *handleTable[vk.DescriptorSetLayout]
	descriptorPools *handleTable[vk.DescriptorPool]
	descriptorSets  *handleTable[descriptorSetEntry]
	surfaces        *handleTable[vk.Surface]
	swapchains      *handleTable[swapchainEntry]

	renderPasses *renderPassCache
	framebuffers *framebufferCache
}

func newVulkanContext(window Window) *VulkanContext {
	vc := &VulkanContext{
		window:          window,
		locks:           NewVulkanLockPool(),
		fences:          newHandleTable[vk.Fence](),
		semaphores:      newHandleTable[vk.Semaphore](),
		commandPools:    newHandleTable[vk.CommandPool](),
		commandBuffers:  newHandleTable[commandBufferEntry](),
		images:          newHandleTable[imageEntry](),
		imageViews:      newHandleTable[vk.ImageView](),
		buffers:         newHandleTable[vk.Buffer](),
		memories:        newHandleTable[vk.DeviceMemory](),
		shaderModules:   newHandleTable[vk.ShaderModule](),
		pipelineLayouts: newHandleTable[vk.PipelineLayout](),
		pipelines:       newHandleTable[vk.Pipeline](),
		setLayouts:      newHandleTable[vk.DescriptorSetLayout](),
		descriptorPools: newHandleTable[vk.DescriptorPool](),
		descriptorSets:  newHandleTable[descriptorSetEntry](),
		surfaces:        newHandleTable[vk.Surface](),
		swapchains:      newHandleTable[swapchainEntry](),
	}
	vc.renderPasses = newRenderPassCache(vc)
	vc.framebuffers = newFramebufferCache(vc)
	return vc
}

func (vc *VulkanContext) nextID() uint64 {
	return vc.ids.Add(1)
}

func (vc *VulkanContext) MemoryTypes() []MemoryType {
	return vc.memoryTypes
}

func (vc *VulkanContext) queryMemoryTypes() {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	vc.memoryTypes = make([]MemoryType, 0, memoryProperties.MemoryTypeCount)
	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		vc.memoryTypes = append(vc.memoryTypes, MemoryType{
			PropertyFlags: memoryProperties.MemoryTypes[i].PropertyFlags,
			HeapIndex:     memoryProperties.MemoryTypes[i].HeapIndex,
		})
	}
}

var _ Device = (*VulkanContext)(nil)
