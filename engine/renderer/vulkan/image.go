package vulkan

import (
	vk "github.com/goki/vulkan"
)

const drawImageUsage = vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) |
	vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) |
	vk.ImageUsageFlags(vk.ImageUsageStorageBit) |
	vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)

// NewDrawImage allocates the offscreen HDR target every pass renders into
// before it is blitted to the swapchain.
func NewDrawImage(alloc *Allocator, extent vk.Extent2D) (*AllocatedImage, error) {
	return alloc.CreateImage("draw_image", DrawImageFormat, extent, drawImageUsage)
}

// TransitionImage records a layout change covering the whole color image.
func TransitionImage(dev Device, cb CommandBuffer, image Image, from, to vk.ImageLayout) {
	dev.CmdTransitionImage(cb, image, from, to)
}

// CopyImageToImage records a linear blit from src to dst, scaling between the two extents.
func CopyImageToImage(dev Device, cb CommandBuffer, src, dst Image, srcExtent, dstExtent vk.Extent2D) {
	dev.CmdBlitImage(cb, src, dst, srcExtent, dstExtent)
}
