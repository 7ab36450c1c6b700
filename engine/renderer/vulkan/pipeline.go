package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacian/engine/core"
)

/**
 * @brief Holds a Vulkan pipeline and its layout.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle Pipeline
	/** @brief The pipeline layout. */
	Layout PipelineLayout
	/** @brief Graphics or compute. */
	BindPoint vk.PipelineBindPoint
}

type VulkanPipelineConfig struct {
	/** @brief SPIR-V of the vertex stage. */
	VertexCode []uint32
	/** @brief SPIR-V of the fragment stage. */
	FragmentCode []uint32
	/** @brief Descriptor set layouts, in set order. */
	DescriptorSetLayouts []DescriptorSetLayout
	/** @brief An array of push constant data ranges. */
	PushConstantRanges []PushConstantRange
	/** @brief The face cull mode. */
	CullMode vk.CullModeFlagBits
	/** @brief Winding order of front faces. */
	FrontFace vk.FrontFace
	/** @brief Indicates if this pipeline should use wireframe mode. */
	IsWireframe bool
	/** @brief Format of the single color attachment. */
	ColorFormat vk.Format
}

// NewGraphicsPipeline builds a depthless, unblended pipeline with dynamic
// viewport and scissor. Shader modules only live for the duration of the call.
func NewGraphicsPipeline(dev Device, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	vs, err := NewShaderModule(dev, config.VertexCode)
	if err != nil {
		return nil, err
	}
	defer dev.DestroyShaderModule(vs)
	fs, err := NewShaderModule(dev, config.FragmentCode)
	if err != nil {
		return nil, err
	}
	defer dev.DestroyShaderModule(fs)

	layout, err := dev.CreatePipelineLayout(config.DescriptorSetLayouts, config.PushConstantRanges)
	if err != nil {
		err = errors.Wrap(err, "failed to create graphics pipeline layout")
		core.LogError(err.Error())
		return nil, err
	}

	polygonMode := vk.PolygonModeFill
	if config.IsWireframe {
		polygonMode = vk.PolygonModeLine
	}
	handle, err := dev.CreateGraphicsPipeline(GraphicsPipelineInfo{
		Layout:         layout,
		VertexShader:   vs,
		FragmentShader: fs,
		CullMode:       config.CullMode,
		FrontFace:      config.FrontFace,
		PolygonMode:    polygonMode,
		ColorFormat:    config.ColorFormat,
	})
	if err != nil {
		dev.DestroyPipelineLayout(layout)
		err = errors.Wrap(err, "failed to create graphics pipeline")
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanPipeline{
		Handle:    handle,
		Layout:    layout,
		BindPoint: vk.PipelineBindPointGraphics,
	}, nil
}

func NewComputePipeline(dev Device, code []uint32, setLayouts []DescriptorSetLayout, pushConstants []PushConstantRange) (*VulkanPipeline, error) {
	module, err := NewShaderModule(dev, code)
	if err != nil {
		return nil, err
	}
	defer dev.DestroyShaderModule(module)

	layout, err := dev.CreatePipelineLayout(setLayouts, pushConstants)
	if err != nil {
		err = errors.Wrap(err, "failed to create compute pipeline layout")
		core.LogError(err.Error())
		return nil, err
	}
	handle, err := dev.CreateComputePipeline(layout, module)
	if err != nil {
		dev.DestroyPipelineLayout(layout)
		err = errors.Wrap(err, "failed to create compute pipeline")
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanPipeline{
		Handle:    handle,
		Layout:    layout,
		BindPoint: vk.PipelineBindPointCompute,
	}, nil
}

func (pipeline *VulkanPipeline) Destroy(dev Device) {
	if pipeline == nil {
		return
	}
	if pipeline.Handle != 0 {
		dev.DestroyPipeline(pipeline.Handle)
		pipeline.Handle = 0
	}
	if pipeline.Layout != 0 {
		dev.DestroyPipelineLayout(pipeline.Layout)
		pipeline.Layout = 0
	}
}

func (pipeline *VulkanPipeline) Bind(dev Device, cb CommandBuffer) {
	dev.CmdBindPipeline(cb, pipeline.BindPoint, pipeline.Handle)
}
