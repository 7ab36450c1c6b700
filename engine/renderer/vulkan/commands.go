package vulkan

import (
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacian/engine/core"
)

// recordError reports a failure inside a Cmd* call, which has no error return.
// The command buffer is then incomplete and validation will flag the submit.
func (vc *VulkanContext) recordError(op string, err error) {
	core.LogError("%s: %v", op, err)
}

func (vc *VulkanContext) CreateFence(signaled bool) (Fence, error) {
	createInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		createInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	if err := vkError(vk.CreateFence(vc.LogicalDevice, &createInfo, vc.Allocator, &fence), "vkCreateFence"); err != nil {
		return 0, err
	}
	id := vc.nextID()
	vc.fences.put(id, fence)
	return Fence(id), nil
}

func (vc *VulkanContext) DestroyFence(f Fence) {
	if fence, ok := vc.fences.take(uint64(f)); ok {
		vk.DestroyFence(vc.LogicalDevice, fence, vc.Allocator)
	}
}

func (vc *VulkanContext) WaitForFence(f Fence, timeout time.Duration) error {
	fences := []vk.Fence{vc.fences.get(uint64(f))}
	switch res := vk.WaitForFences(vc.LogicalDevice, 1, fences, vk.True, uint64(timeout.Nanoseconds())); res {
	case vk.Success:
		return nil
	case vk.Timeout:
		return errors.Wrapf(core.ErrFenceTimeout, "after %s", timeout)
	default:
		return vkError(res, "vkWaitForFences")
	}
}

func (vc *VulkanContext) ResetFence(f Fence) error {
	fences := []vk.Fence{vc.fences.get(uint64(f))}
	return vkError(vk.ResetFences(vc.LogicalDevice, 1, fences), "vkResetFences")
}

func (vc *VulkanContext) CreateSemaphore() (Semaphore, error) {
	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var sem vk.Semaphore
	if err := vkError(vk.CreateSemaphore(vc.LogicalDevice, &createInfo, vc.Allocator, &sem), "vkCreateSemaphore"); err != nil {
		return 0, err
	}
	id := vc.nextID()
	vc.semaphores.put(id, sem)
	return Semaphore(id), nil
}

func (vc *VulkanContext) DestroySemaphore(s Semaphore) {
	if sem, ok := vc.semaphores.take(uint64(s)); ok {
		vk.DestroySemaphore(vc.LogicalDevice, sem, vc.Allocator)
	}
}

func (vc *VulkanContext) CreateCommandPool() (CommandPool, error) {
	createInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: vc.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := vkError(vk.CreateCommandPool(vc.LogicalDevice, &createInfo, vc.Allocator, &pool), "vkCreateCommandPool"); err != nil {
		return 0, err
	}
	id := vc.nextID()
	vc.commandPools.put(id, pool)
	return CommandPool(id), nil
}

// DestroyCommandPool frees the pool together with every command buffer allocated from it.
func (vc *VulkanContext) DestroyCommandPool(p CommandPool) {
	pool, ok := vc.commandPools.take(uint64(p))
	if !ok {
		return
	}
	for _, id := range vc.commandBuffers.ids() {
		if vc.commandBuffers.get(id).pool == p {
			vc.commandBuffers.take(id)
		}
	}
	vk.DestroyCommandPool(vc.LogicalDevice, pool, vc.Allocator)
}

func (vc *VulkanContext) AllocateCommandBuffer(p CommandPool) (CommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        vc.commandPools.get(uint64(p)),
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vk.CommandBuffer, 1)
	if err := vkError(vk.AllocateCommandBuffers(vc.LogicalDevice, &allocateInfo, buffers), "vkAllocateCommandBuffers"); err != nil {
		return 0, err
	}
	id := vc.nextID()
	vc.commandBuffers.put(id, commandBufferEntry{handle: buffers[0], pool: p})
	return CommandBuffer(id), nil
}

func (vc *VulkanContext) cmd(cb CommandBuffer) vk.CommandBuffer {
	return vc.commandBuffers.get(uint64(cb)).handle
}

func (vc *VulkanContext) ResetCommandBuffer(cb CommandBuffer) error {
	return vkError(vk.ResetCommandBuffer(vc.cmd(cb), 0), "vkResetCommandBuffer")
}

func (vc *VulkanContext) BeginCommandBuffer(cb CommandBuffer, oneTimeSubmit bool) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if oneTimeSubmit {
		beginInfo.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	return vkError(vk.BeginCommandBuffer(vc.cmd(cb), &beginInfo), "vkBeginCommandBuffer")
}

func (vc *VulkanContext) EndCommandBuffer(cb CommandBuffer) error {
	return vkError(vk.EndCommandBuffer(vc.cmd(cb)), "vkEndCommandBuffer")
}

var colorSubresourceRange = vk.ImageSubresourceRange{
	AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
	BaseMipLevel:   0,
	LevelCount:     1,
	BaseArrayLayer: 0,
	LayerCount:     1,
}

var colorSubresourceLayers = vk.ImageSubresourceLayers{
	AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
	MipLevel:       0,
	BaseArrayLayer: 0,
	LayerCount:     1,
}

// CmdTransitionImage is a full barrier: every stage, every write, the whole image.
func (vc *VulkanContext) CmdTransitionImage(cb CommandBuffer, image Image, from, to vk.ImageLayout) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessMemoryWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessMemoryWriteBit) | vk.AccessFlags(vk.AccessMemoryReadBit),
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               vc.images.get(uint64(image)).handle,
		SubresourceRange:    colorSubresourceRange,
	}
	allCommands := vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	vk.CmdPipelineBarrier(vc.cmd(cb), allCommands, allCommands, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func (vc *VulkanContext) CmdBindPipeline(cb CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline Pipeline) {
	vk.CmdBindPipeline(vc.cmd(cb), bindPoint, vc.pipelines.get(uint64(pipeline)))
}

func (vc *VulkanContext) CmdBindDescriptorSet(cb CommandBuffer, bindPoint vk.PipelineBindPoint, layout PipelineLayout, set DescriptorSet) {
	sets := []vk.DescriptorSet{vc.descriptorSets.get(uint64(set)).handle}
	vk.CmdBindDescriptorSets(vc.cmd(cb), bindPoint, vc.pipelineLayouts.get(uint64(layout)), 0, 1, sets, 0, nil)
}

func (vc *VulkanContext) CmdSetViewportScissor(cb CommandBuffer, extent vk.Extent2D) {
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	vk.CmdSetViewport(vc.cmd(cb), 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(vc.cmd(cb), 0, 1, []vk.Rect2D{scissor})
}

func (vc *VulkanContext) CmdPushConstants(cb CommandBuffer, layout PipelineLayout, stages vk.ShaderStageFlags, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(vc.cmd(cb), vc.pipelineLayouts.get(uint64(layout)), stages, 0, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (vc *VulkanContext) CmdBindIndexBuffer(cb CommandBuffer, buffer Buffer, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(vc.cmd(cb), vc.buffers.get(uint64(buffer)), 0, indexType)
}

func (vc *VulkanContext) CmdDrawIndexed(cb CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(vc.cmd(cb), indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (vc *VulkanContext) CmdDispatch(cb CommandBuffer, x, y, z uint32) {
	vk.CmdDispatch(vc.cmd(cb), x, y, z)
}

func (vc *VulkanContext) CmdClearColorImage(cb CommandBuffer, image Image, layout vk.ImageLayout, color [4]float32) {
	// VkClearColorValue is the color member of VkClearValue
	clear := vk.NewClearValue(color[:])
	value := (*vk.ClearColorValue)(unsafe.Pointer(&clear))
	vk.CmdClearColorImage(vc.cmd(cb), vc.images.get(uint64(image)).handle, layout, value, 1, []vk.ImageSubresourceRange{colorSubresourceRange})
}

// CmdBlitImage copies src (TRANSFER_SRC) onto dst (TRANSFER_DST), scaling linearly.
func (vc *VulkanContext) CmdBlitImage(cb CommandBuffer, src, dst Image, srcExtent, dstExtent vk.Extent2D) {
	region := vk.ImageBlit{
		SrcSubresource: colorSubresourceLayers,
		SrcOffsets: [2]vk.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: int32(srcExtent.Width), Y: int32(srcExtent.Height), Z: 1},
		},
		DstSubresource: colorSubresourceLayers,
		DstOffsets: [2]vk.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: int32(dstExtent.Width), Y: int32(dstExtent.Height), Z: 1},
		},
	}
	vk.CmdBlitImage(vc.cmd(cb),
		vc.images.get(uint64(src)).handle, vk.ImageLayoutTransferSrcOptimal,
		vc.images.get(uint64(dst)).handle, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{region}, vk.FilterLinear)
}

func (vc *VulkanContext) CmdCopyBuffer(cb CommandBuffer, src, dst Buffer, regions []BufferCopy) {
	if len(regions) == 0 {
		return
	}
	copies := make([]vk.BufferCopy, len(regions))
	for i, r := range regions {
		copies[i] = vk.BufferCopy{
			SrcOffset: vk.DeviceSize(r.SrcOffset),
			DstOffset: vk.DeviceSize(r.DstOffset),
			Size:      vk.DeviceSize(r.Size),
		}
	}
	vk.CmdCopyBuffer(vc.cmd(cb), vc.buffers.get(uint64(src)), vc.buffers.get(uint64(dst)), uint32(len(copies)), copies)
}
