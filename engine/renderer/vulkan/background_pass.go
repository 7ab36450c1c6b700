package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacian/engine/math"
)

// BackgroundPass fills the draw image with a compute shader that writes it as
// a storage image.
type BackgroundPass struct {
	pipeline  *VulkanPipeline
	setLayout DescriptorSetLayout
}

func NewBackgroundPass(dev Device, setLayout DescriptorSetLayout, shaders ShaderSet) (*BackgroundPass, error) {
	p := &BackgroundPass{setLayout: setLayout}
	if _, err := p.Reload(dev, shaders); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *BackgroundPass) Reload(dev Device, shaders ShaderSet) (*VulkanPipeline, error) {
	code, err := shaders.Get(ShaderBackground)
	if err != nil {
		return nil, err
	}
	pipeline, err := NewComputePipeline(dev, code, []DescriptorSetLayout{p.setLayout}, nil)
	if err != nil {
		return nil, err
	}
	retired := p.pipeline
	p.pipeline = pipeline
	return retired, nil
}

// Record leaves the draw image in COLOR_ATTACHMENT_OPTIMAL, ready for LOAD by the next pass.
func (p *BackgroundPass) Record(dev Device, cb CommandBuffer, draw *AllocatedImage, set DescriptorSet) {
	TransitionImage(dev, cb, draw.Image, vk.ImageLayoutUndefined, vk.ImageLayoutGeneral)
	dev.CmdClearColorImage(cb, draw.Image, vk.ImageLayoutGeneral, BackgroundClearColor)

	p.pipeline.Bind(dev, cb)
	dev.CmdBindDescriptorSet(cb, vk.PipelineBindPointCompute, p.pipeline.Layout, set)
	dev.CmdDispatch(cb,
		math.DivCeil(draw.Extent.Width, BackgroundGroupSize),
		math.DivCeil(draw.Extent.Height, BackgroundGroupSize),
		1)

	TransitionImage(dev, cb, draw.Image, vk.ImageLayoutGeneral, vk.ImageLayoutColorAttachmentOptimal)
}

func (p *BackgroundPass) Destroy(dev Device) {
	if p == nil {
		return
	}
	p.pipeline.Destroy(dev)
	p.pipeline = nil
}
