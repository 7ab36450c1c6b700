package vulkan

import (
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacian/engine/core"
)

// CreateSurface hands out the surface used during device selection first, and
// creates a fresh one from the window on every later call.
func (vc *VulkanContext) CreateSurface() (Surface, error) {
	if !vc.probeHanded && vc.probeSurface != 0 {
		vc.probeHanded = true
		return vc.probeSurface, nil
	}
	return vc.createWindowSurface()
}

func (vc *VulkanContext) createWindowSurface() (Surface, error) {
	ptr, err := vc.window.CreateWindowSurface(vc.Instance, nil)
	if err != nil {
		return 0, errors.Wrap(err, "window surface creation failed")
	}
	id := vc.nextID()
	vc.surfaces.put(id, vk.SurfaceFromPointer(ptr))
	return Surface(id), nil
}

func (vc *VulkanContext) DestroySurface(s Surface) {
	if surface, ok := vc.surfaces.take(uint64(s)); ok {
		vk.DestroySurface(vc.Instance, surface, vc.Allocator)
	}
}

func (vc *VulkanContext) SurfaceCapabilities(s Surface) (SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := vkError(vk.GetPhysicalDeviceSurfaceCapabilities(vc.PhysicalDevice, vc.surfaces.get(uint64(s)), &caps), "vkGetPhysicalDeviceSurfaceCapabilitiesKHR"); err != nil {
		return SurfaceCapabilities{}, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return SurfaceCapabilities{
		MinImageCount:    caps.MinImageCount,
		MaxImageCount:    caps.MaxImageCount,
		CurrentExtent:    caps.CurrentExtent,
		MinImageExtent:   caps.MinImageExtent,
		MaxImageExtent:   caps.MaxImageExtent,
		CurrentTransform: caps.CurrentTransform,
	}, nil
}

func (vc *VulkanContext) SurfaceFormats(s Surface) ([]SurfaceFormat, error) {
	surface := vc.surfaces.get(uint64(s))
	var count uint32
	if err := vkError(vk.GetPhysicalDeviceSurfaceFormats(vc.PhysicalDevice, surface, &count, nil), "vkGetPhysicalDeviceSurfaceFormatsKHR"); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if count > 0 {
		if err := vkError(vk.GetPhysicalDeviceSurfaceFormats(vc.PhysicalDevice, surface, &count, formats), "vkGetPhysicalDeviceSurfaceFormatsKHR"); err != nil {
			return nil, err
		}
	}
	out := make([]SurfaceFormat, 0, count)
	for i := range formats[:count] {
		formats[i].Deref()
		out = append(out, SurfaceFormat{Format: formats[i].Format, ColorSpace: formats[i].ColorSpace})
	}
	return out, nil
}

func (vc *VulkanContext) SurfacePresentModes(s Surface) ([]vk.PresentMode, error) {
	surface := vc.surfaces.get(uint64(s))
	var count uint32
	if err := vkError(vk.GetPhysicalDeviceSurfacePresentModes(vc.PhysicalDevice, surface, &count, nil), "vkGetPhysicalDeviceSurfacePresentModesKHR"); err != nil {
		return nil, err
	}
	modes := make([]vk.PresentMode, count)
	if count > 0 {
		if err := vkError(vk.GetPhysicalDeviceSurfacePresentModes(vc.PhysicalDevice, surface, &count, modes), "vkGetPhysicalDeviceSurfacePresentModesKHR"); err != nil {
			return nil, err
		}
	}
	return modes[:count], nil
}

func (vc *VulkanContext) CreateSwapchain(info SwapchainCreateInfo) (SwapchainHandle, error) {
	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          vc.surfaces.get(uint64(info.Surface)),
		MinImageCount:    info.MinImages,
		ImageFormat:      info.Format.Format,
		ImageColorSpace:  info.Format.ColorSpace,
		ImageExtent:      info.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       info.Usage,
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     info.Transform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      info.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	var swapchain vk.Swapchain
	err := vc.locks.SafeCall(SwapchainManagement, func() error {
		return vkError(vk.CreateSwapchain(vc.LogicalDevice, &createInfo, vc.Allocator, &swapchain), "vkCreateSwapchainKHR")
	})
	if err != nil {
		return 0, err
	}

	var count uint32
	if err := vkError(vk.GetSwapchainImages(vc.LogicalDevice, swapchain, &count, nil), "vkGetSwapchainImagesKHR"); err != nil {
		vk.DestroySwapchain(vc.LogicalDevice, swapchain, vc.Allocator)
		return 0, err
	}
	handles := make([]vk.Image, count)
	if err := vkError(vk.GetSwapchainImages(vc.LogicalDevice, swapchain, &count, handles), "vkGetSwapchainImagesKHR"); err != nil {
		vk.DestroySwapchain(vc.LogicalDevice, swapchain, vc.Allocator)
		return 0, err
	}

	entry := swapchainEntry{handle: swapchain, images: make([]Image, 0, count)}
	for _, img := range handles[:count] {
		id := vc.nextID()
		vc.images.put(id, imageEntry{handle: img})
		entry.images = append(entry.images, Image(id))
	}
	id := vc.nextID()
	vc.swapchains.put(id, entry)
	return SwapchainHandle(id), nil
}

func (vc *VulkanContext) DestroySwapchain(s SwapchainHandle) {
	entry, ok := vc.swapchains.take(uint64(s))
	if !ok {
		return
	}
	for _, img := range entry.images {
		vc.images.take(uint64(img))
	}
	_ = vc.locks.SafeCall(SwapchainManagement, func() error {
		vk.DestroySwapchain(vc.LogicalDevice, entry.handle, vc.Allocator)
		return nil
	})
}

func (vc *VulkanContext) SwapchainImages(s SwapchainHandle) ([]Image, error) {
	entry := vc.swapchains.get(uint64(s))
	if entry.handle == vk.NullSwapchain {
		return nil, errors.Newf("unknown swapchain %d", s)
	}
	images := make([]Image, len(entry.images))
	copy(images, entry.images)
	return images, nil
}

func (vc *VulkanContext) QueueSubmit(info SubmitInfo) error {
	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{vc.cmd(info.CommandBuffer)},
	}
	if len(info.Wait) > 0 {
		waits := make([]vk.Semaphore, len(info.Wait))
		stages := make([]vk.PipelineStageFlags, len(info.Wait))
		for i, w := range info.Wait {
			waits[i] = vc.semaphores.get(uint64(w.Semaphore))
			stages[i] = w.Stage
		}
		submit.WaitSemaphoreCount = uint32(len(waits))
		submit.PWaitSemaphores = waits
		submit.PWaitDstStageMask = stages
	}
	if len(info.Signal) > 0 {
		signals := make([]vk.Semaphore, len(info.Signal))
		for i, s := range info.Signal {
			signals[i] = vc.semaphores.get(uint64(s.Semaphore))
		}
		submit.SignalSemaphoreCount = uint32(len(signals))
		submit.PSignalSemaphores = signals
	}

	fence := vc.fences.get(uint64(info.Fence))
	return vc.locks.SafeQueueCall(vc.GraphicsQueueIndex, func() error {
		return vkError(vk.QueueSubmit(vc.GraphicsQueue, 1, []vk.SubmitInfo{submit}, fence), "vkQueueSubmit")
	})
}

func (vc *VulkanContext) AcquireNextImage(s SwapchainHandle, timeout time.Duration, signal Semaphore) (uint32, bool, error) {
	var index uint32
	res := vk.AcquireNextImage(vc.LogicalDevice, vc.swapchains.get(uint64(s)).handle,
		uint64(timeout.Nanoseconds()), vc.semaphores.get(uint64(signal)), vk.NullFence, &index)
	switch res {
	case vk.Success:
		return index, false, nil
	case vk.Suboptimal:
		return index, true, nil
	case vk.Timeout, vk.NotReady:
		return 0, false, errors.Wrapf(core.ErrAcquireTimeout, "after %s", timeout)
	default:
		return 0, false, vkError(res, "vkAcquireNextImageKHR")
	}
}

func (vc *VulkanContext) QueuePresent(s SwapchainHandle, imageIndex uint32, wait Semaphore) (bool, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{vc.semaphores.get(uint64(wait))},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vc.swapchains.get(uint64(s)).handle},
		PImageIndices:      []uint32{imageIndex},
	}
	var res vk.Result
	_ = vc.locks.SafeQueueCall(vc.GraphicsQueueIndex, func() error {
		res = vk.QueuePresent(vc.GraphicsQueue, &presentInfo)
		return nil
	})
	switch res {
	case vk.Success:
		return false, nil
	case vk.Suboptimal:
		return true, nil
	default:
		return false, vkError(res, "vkQueuePresentKHR")
	}
}

func (vc *VulkanContext) WaitIdle() error {
	return vkError(vk.DeviceWaitIdle(vc.LogicalDevice), "vkDeviceWaitIdle")
}
