package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"
)

type framebufferKey struct {
	view   ImageView
	extent vk.Extent2D
}

// framebufferCache keeps one framebuffer per (view, extent). Entries die with
// their view in DestroyImageView.
type framebufferCache struct {
	vc *VulkanContext

	mu           sync.Mutex
	framebuffers map[framebufferKey]vk.Framebuffer
}

func newFramebufferCache(vc *VulkanContext) *framebufferCache {
	return &framebufferCache{vc: vc, framebuffers: make(map[framebufferKey]vk.Framebuffer)}
}

func (c *framebufferCache) get(view ImageView, format vk.Format, extent vk.Extent2D) (vk.Framebuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := framebufferKey{view: view, extent: extent}
	if fb, ok := c.framebuffers[key]; ok {
		return fb, nil
	}

	rp, err := c.vc.renderPasses.get(format, vk.AttachmentLoadOpLoad)
	if err != nil {
		return vk.NullFramebuffer, err
	}
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{c.vc.imageViews.get(uint64(view))},
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var fb vk.Framebuffer
	if err := vkError(vk.CreateFramebuffer(c.vc.LogicalDevice, &createInfo, c.vc.Allocator, &fb), "vkCreateFramebuffer"); err != nil {
		return vk.NullFramebuffer, err
	}
	c.framebuffers[key] = fb
	return fb, nil
}

// evict destroys every framebuffer built on view.
func (c *framebufferCache) evict(view ImageView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, fb := range c.framebuffers {
		if key.view == view {
			vk.DestroyFramebuffer(c.vc.LogicalDevice, fb, c.vc.Allocator)
			delete(c.framebuffers, key)
		}
	}
}

func (c *framebufferCache) destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, fb := range c.framebuffers {
		vk.DestroyFramebuffer(c.vc.LogicalDevice, fb, c.vc.Allocator)
		delete(c.framebuffers, key)
	}
}
