package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"
)

type renderPassKey struct {
	format vk.Format
	loadOp vk.AttachmentLoadOp
}

// renderPassCache holds the single-subpass color render passes that stand in
// for dynamic rendering. Passes differing only in load op are compatible, so
// pipelines and framebuffers built against one work with all of them.
type renderPassCache struct {
	vc *VulkanContext

	mu     sync.Mutex
	passes map[renderPassKey]vk.RenderPass
}

func newRenderPassCache(vc *VulkanContext) *renderPassCache {
	return &renderPassCache{vc: vc, passes: make(map[renderPassKey]vk.RenderPass)}
}

func (c *renderPassCache) get(format vk.Format, loadOp vk.AttachmentLoadOp) (vk.RenderPass, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := renderPassKey{format: format, loadOp: loadOp}
	if rp, ok := c.passes[key]; ok {
		return rp, nil
	}
	rp, err := c.create(key)
	if err != nil {
		return vk.NullRenderPass, err
	}
	c.passes[key] = rp
	return rp, nil
}

func (c *renderPassCache) create(key renderPassKey) (vk.RenderPass, error) {
	// The caller transitions the image to COLOR_ATTACHMENT_OPTIMAL before the
	// pass and back out of it afterwards.
	colorAttachment := vk.AttachmentDescription{
		Format:         key.format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         key.loadOp,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
		FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var rp vk.RenderPass
	err := c.vc.locks.SafeCall(RenderpassManagement, func() error {
		return vkError(vk.CreateRenderPass(c.vc.LogicalDevice, &createInfo, c.vc.Allocator, &rp), "vkCreateRenderPass")
	})
	return rp, err
}

func (c *renderPassCache) destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, rp := range c.passes {
		vk.DestroyRenderPass(c.vc.LogicalDevice, rp, c.vc.Allocator)
		delete(c.passes, key)
	}
}

func (vc *VulkanContext) CmdBeginRendering(cb CommandBuffer, info RenderingInfo) {
	rp, err := vc.renderPasses.get(info.Format, info.LoadOp)
	if err != nil {
		vc.recordError("begin rendering", err)
		return
	}
	fb, err := vc.framebuffers.get(info.View, info.Format, info.Extent)
	if err != nil {
		vc.recordError("begin rendering", err)
		return
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp,
		Framebuffer: fb,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: info.Extent,
		},
	}
	if info.LoadOp == vk.AttachmentLoadOpClear {
		clearValues := make([]vk.ClearValue, 1)
		clearValues[0].SetColor(info.ClearColor[:])
		beginInfo.ClearValueCount = 1
		beginInfo.PClearValues = clearValues
	}

	vk.CmdBeginRenderPass(vc.commandBuffers.get(uint64(cb)).handle, &beginInfo, vk.SubpassContentsInline)
}

func (vc *VulkanContext) CmdEndRendering(cb CommandBuffer) {
	vk.CmdEndRenderPass(vc.commandBuffers.get(uint64(cb)).handle)
}
