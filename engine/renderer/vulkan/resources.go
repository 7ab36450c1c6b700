package vulkan

import (
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacian/engine/core"
)

func memoryRequirements(req vk.MemoryRequirements) MemoryRequirements {
	req.Deref()
	return MemoryRequirements{
		Size:           uint64(req.Size),
		Alignment:      uint64(req.Alignment),
		MemoryTypeBits: req.MemoryTypeBits,
	}
}

func (vc *VulkanContext) AllocateMemory(size uint64, memoryTypeIndex uint32) (DeviceMemory, error) {
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: memoryTypeIndex,
	}
	var memory vk.DeviceMemory
	err := vc.locks.SafeCall(MemoryManagement, func() error {
		return vkError(vk.AllocateMemory(vc.LogicalDevice, &allocateInfo, vc.Allocator, &memory), "vkAllocateMemory")
	})
	if err != nil {
		return 0, err
	}
	id := vc.nextID()
	vc.memories.put(id, memory)
	return DeviceMemory(id), nil
}

func (vc *VulkanContext) FreeMemory(m DeviceMemory) {
	memory, ok := vc.memories.take(uint64(m))
	if !ok {
		return
	}
	_ = vc.locks.SafeCall(MemoryManagement, func() error {
		vk.FreeMemory(vc.LogicalDevice, memory, vc.Allocator)
		return nil
	})
}

func (vc *VulkanContext) MapMemory(m DeviceMemory, size uint64) ([]byte, error) {
	var data unsafe.Pointer
	if err := vkError(vk.MapMemory(vc.LogicalDevice, vc.memories.get(uint64(m)), 0, vk.DeviceSize(size), 0, &data), "vkMapMemory"); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.New("vkMapMemory returned a nil pointer")
	}
	return unsafe.Slice((*byte)(data), size), nil
}

func (vc *VulkanContext) UnmapMemory(m DeviceMemory) {
	vk.UnmapMemory(vc.LogicalDevice, vc.memories.get(uint64(m)))
}

func (vc *VulkanContext) CreateImage(info ImageCreateInfo) (Image, MemoryRequirements, error) {
	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    info.Format,
		Extent: vk.Extent3D{
			Width:  info.Extent.Width,
			Height: info.Extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         info.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var image vk.Image
	if err := vkError(vk.CreateImage(vc.LogicalDevice, &createInfo, vc.Allocator, &image), "vkCreateImage"); err != nil {
		return 0, MemoryRequirements{}, err
	}
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(vc.LogicalDevice, image, &req)

	id := vc.nextID()
	vc.images.put(id, imageEntry{handle: image, owned: true})
	return Image(id), memoryRequirements(req), nil
}

func (vc *VulkanContext) DestroyImage(i Image) {
	entry, ok := vc.images.take(uint64(i))
	if !ok {
		return
	}
	if !entry.owned {
		core.LogWarn("image %d belongs to a swapchain, not destroying it", i)
		vc.images.put(uint64(i), entry)
		return
	}
	vk.DestroyImage(vc.LogicalDevice, entry.handle, vc.Allocator)
}

func (vc *VulkanContext) BindImageMemory(i Image, m DeviceMemory) error {
	return vkError(vk.BindImageMemory(vc.LogicalDevice, vc.images.get(uint64(i)).handle, vc.memories.get(uint64(m)), 0), "vkBindImageMemory")
}

func (vc *VulkanContext) CreateImageView(image Image, format vk.Format) (ImageView, error) {
	createInfo := vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            vc.images.get(uint64(image)).handle,
		ViewType:         vk.ImageViewType2d,
		Format:           format,
		SubresourceRange: colorSubresourceRange,
	}
	var view vk.ImageView
	if err := vkError(vk.CreateImageView(vc.LogicalDevice, &createInfo, vc.Allocator, &view), "vkCreateImageView"); err != nil {
		return 0, err
	}
	id := vc.nextID()
	vc.imageViews.put(id, view)
	return ImageView(id), nil
}

// DestroyImageView also drops the framebuffers built on the view.
func (vc *VulkanContext) DestroyImageView(v ImageView) {
	view, ok := vc.imageViews.take(uint64(v))
	if !ok {
		return
	}
	vc.framebuffers.evict(v)
	vk.DestroyImageView(vc.LogicalDevice, view, vc.Allocator)
}

// CreateBuffer drops the shader device address usage bit: the device is
// created without bufferDeviceAddress and vertex data is read through a
// storage buffer descriptor instead.
func (vc *VulkanContext) CreateBuffer(size uint64, usage vk.BufferUsageFlags) (Buffer, MemoryRequirements, error) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage &^ bufferUsageShaderDeviceAddressBit,
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := vkError(vk.CreateBuffer(vc.LogicalDevice, &createInfo, vc.Allocator, &buffer), "vkCreateBuffer"); err != nil {
		return 0, MemoryRequirements{}, err
	}
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(vc.LogicalDevice, buffer, &req)

	id := vc.nextID()
	vc.buffers.put(id, buffer)
	return Buffer(id), memoryRequirements(req), nil
}

func (vc *VulkanContext) DestroyBuffer(b Buffer) {
	if buffer, ok := vc.buffers.take(uint64(b)); ok {
		vk.DestroyBuffer(vc.LogicalDevice, buffer, vc.Allocator)
	}
}

func (vc *VulkanContext) BindBufferMemory(b Buffer, m DeviceMemory) error {
	return vkError(vk.BindBufferMemory(vc.LogicalDevice, vc.buffers.get(uint64(b)), vc.memories.get(uint64(m)), 0), "vkBindBufferMemory")
}

// BufferDeviceAddress always reports 0, see CreateBuffer.
func (vc *VulkanContext) BufferDeviceAddress(Buffer) uint64 {
	return 0
}

func (vc *VulkanContext) CreateDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayout, error) {
	layoutBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		layoutBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  b.Type,
			DescriptorCount: b.Count,
			StageFlags:      b.Stages,
		}
	}
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}
	var layout vk.DescriptorSetLayout
	if err := vkError(vk.CreateDescriptorSetLayout(vc.LogicalDevice, &createInfo, vc.Allocator, &layout), "vkCreateDescriptorSetLayout"); err != nil {
		return 0, err
	}
	id := vc.nextID()
	vc.setLayouts.put(id, layout)
	return DescriptorSetLayout(id), nil
}

func (vc *VulkanContext) DestroyDescriptorSetLayout(l DescriptorSetLayout) {
	if layout, ok := vc.setLayouts.take(uint64(l)); ok {
		vk.DestroyDescriptorSetLayout(vc.LogicalDevice, layout, vc.Allocator)
	}
}

// CreateDescriptorPool sizes each descriptor type as ratio * maxSets, rounded up.
func (vc *VulkanContext) CreateDescriptorPool(maxSets uint32, ratios []PoolSizeRatio) (DescriptorPool, error) {
	poolSizes := make([]vk.DescriptorPoolSize, len(ratios))
	for i, r := range ratios {
		poolSizes[i] = vk.DescriptorPoolSize{
			Type:            r.Type,
			DescriptorCount: uint32(math.Ceil(float64(r.Ratio) * float64(maxSets))),
		}
	}
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	err := vc.locks.SafeCall(DescriptorManagement, func() error {
		return vkError(vk.CreateDescriptorPool(vc.LogicalDevice, &createInfo, vc.Allocator, &pool), "vkCreateDescriptorPool")
	})
	if err != nil {
		return 0, err
	}
	id := vc.nextID()
	vc.descriptorPools.put(id, pool)
	return DescriptorPool(id), nil
}

// DestroyDescriptorPool releases the pool and every set allocated from it.
func (vc *VulkanContext) DestroyDescriptorPool(p DescriptorPool) {
	pool, ok := vc.descriptorPools.take(uint64(p))
	if !ok {
		return
	}
	for _, id := range vc.descriptorSets.ids() {
		if vc.descriptorSets.get(id).pool == p {
			vc.descriptorSets.take(id)
		}
	}
	_ = vc.locks.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorPool(vc.LogicalDevice, pool, vc.Allocator)
		return nil
	})
}

func (vc *VulkanContext) AllocateDescriptorSet(p DescriptorPool, l DescriptorSetLayout) (DescriptorSet, error) {
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     vc.descriptorPools.get(uint64(p)),
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{vc.setLayouts.get(uint64(l))},
	}
	var set vk.DescriptorSet
	err := vc.locks.SafeCall(DescriptorManagement, func() error {
		return vkError(vk.AllocateDescriptorSets(vc.LogicalDevice, &allocateInfo, &set), "vkAllocateDescriptorSets")
	})
	if err != nil {
		return 0, err
	}
	id := vc.nextID()
	vc.descriptorSets.put(id, descriptorSetEntry{handle: set, pool: p})
	return DescriptorSet(id), nil
}

func (vc *VulkanContext) UpdateStorageImage(set DescriptorSet, binding uint32, view ImageView, layout vk.ImageLayout) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          vc.descriptorSets.get(uint64(set)).handle,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeStorageImage,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageView:   vc.imageViews.get(uint64(view)),
			ImageLayout: layout,
		}},
	}
	vk.UpdateDescriptorSets(vc.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

func (vc *VulkanContext) UpdateStorageBuffer(set DescriptorSet, binding uint32, buffer Buffer, size uint64) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          vc.descriptorSets.get(uint64(set)).handle,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeStorageBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: vc.buffers.get(uint64(buffer)),
			Offset: 0,
			Range:  vk.DeviceSize(size),
		}},
	}
	vk.UpdateDescriptorSets(vc.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

func (vc *VulkanContext) CreateShaderModule(code []uint32) (ShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
	var module vk.ShaderModule
	if err := vkError(vk.CreateShaderModule(vc.LogicalDevice, &createInfo, vc.Allocator, &module), "vkCreateShaderModule"); err != nil {
		return 0, errors.Mark(err, core.ErrShaderLoad)
	}
	id := vc.nextID()
	vc.shaderModules.put(id, module)
	return ShaderModule(id), nil
}

func (vc *VulkanContext) DestroyShaderModule(m ShaderModule) {
	if module, ok := vc.shaderModules.take(uint64(m)); ok {
		vk.DestroyShaderModule(vc.LogicalDevice, module, vc.Allocator)
	}
}

func (vc *VulkanContext) CreatePipelineLayout(setLayouts []DescriptorSetLayout, pushConstants []PushConstantRange) (PipelineLayout, error) {
	layouts := make([]vk.DescriptorSetLayout, len(setLayouts))
	for i, l := range setLayouts {
		layouts[i] = vc.setLayouts.get(uint64(l))
	}
	ranges := make([]vk.PushConstantRange, len(pushConstants))
	for i, r := range pushConstants {
		ranges[i] = vk.PushConstantRange{
			StageFlags: r.Stages,
			Offset:     r.Offset,
			Size:       r.Size,
		}
	}
	createInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(layouts)),
		PSetLayouts:            layouts,
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}
	var layout vk.PipelineLayout
	if err := vkError(vk.CreatePipelineLayout(vc.LogicalDevice, &createInfo, vc.Allocator, &layout), "vkCreatePipelineLayout"); err != nil {
		return 0, err
	}
	id := vc.nextID()
	vc.pipelineLayouts.put(id, layout)
	return PipelineLayout(id), nil
}

func (vc *VulkanContext) DestroyPipelineLayout(l PipelineLayout) {
	if layout, ok := vc.pipelineLayouts.take(uint64(l)); ok {
		vk.DestroyPipelineLayout(vc.LogicalDevice, layout, vc.Allocator)
	}
}

// CreateGraphicsPipeline builds a pipeline for the single color attachment
// render pass of info.ColorFormat. Vertices are pulled from buffers in the
// shader, so there is no vertex input state and no depth attachment.
func (vc *VulkanContext) CreateGraphicsPipeline(info GraphicsPipelineInfo) (Pipeline, error) {
	rp, err := vc.renderPasses.get(info.ColorFormat, vk.AttachmentLoadOpLoad)
	if err != nil {
		return 0, err
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vc.shaderModules.get(uint64(info.VertexShader)),
			PName:  VulkanSafeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: vc.shaderModules.get(uint64(info.FragmentShader)),
			PName:  VulkanSafeString("main"),
		},
	}

	createInfos := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: info.PolygonMode,
			CullMode:    vk.CullModeFlags(info.CullMode),
			FrontFace:   info.FrontFace,
			LineWidth:   1.0,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
			MinSampleShading:     1.0,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			LogicOp:         vk.LogicOpCopy,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				ColorWriteMask: 0xF,
				BlendEnable:    vk.False,
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates:    []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor},
		},
		Layout:     vc.pipelineLayouts.get(uint64(info.Layout)),
		RenderPass: rp,
		Subpass:    0,
	}}

	pipelines := make([]vk.Pipeline, 1)
	err = vc.locks.SafeCall(PipelineManagement, func() error {
		return vkError(vk.CreateGraphicsPipelines(vc.LogicalDevice, vk.NullPipelineCache, 1, createInfos, vc.Allocator, pipelines), "vkCreateGraphicsPipelines")
	})
	if err != nil {
		return 0, err
	}
	id := vc.nextID()
	vc.pipelines.put(id, pipelines[0])
	return Pipeline(id), nil
}

func (vc *VulkanContext) CreateComputePipeline(layout PipelineLayout, module ShaderModule) (Pipeline, error) {
	createInfos := []vk.ComputePipelineCreateInfo{{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: vc.shaderModules.get(uint64(module)),
			PName:  VulkanSafeString("main"),
		},
		Layout: vc.pipelineLayouts.get(uint64(layout)),
	}}

	pipelines := make([]vk.Pipeline, 1)
	err := vc.locks.SafeCall(PipelineManagement, func() error {
		return vkError(vk.CreateComputePipelines(vc.LogicalDevice, vk.NullPipelineCache, 1, createInfos, vc.Allocator, pipelines), "vkCreateComputePipelines")
	})
	if err != nil {
		return 0, err
	}
	id := vc.nextID()
	vc.pipelines.put(id, pipelines[0])
	return Pipeline(id), nil
}

func (vc *VulkanContext) DestroyPipeline(p Pipeline) {
	if pipeline, ok := vc.pipelines.take(uint64(p)); ok {
		vk.DestroyPipeline(vc.LogicalDevice, pipeline, vc.Allocator)
	}
}
