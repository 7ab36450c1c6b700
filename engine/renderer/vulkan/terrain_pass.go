package vulkan

import (
	"bytes"
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
)

type Normal uint8

const (
	NormalUp Normal = iota
	NormalDown
	NormalLeft
	NormalRight
	NormalFront
	NormalBack
)

// TerrainVertex packs one voxel-face corner into 32 bits, least significant first:
// x, y, z, u, v (5 bits each), normal (3 bits), 4 bits unused.
type TerrainVertex uint32

const (
	terrainCoordBits  = 5
	terrainCoordMask  = 1<<terrainCoordBits - 1
	terrainNormalMask = 0x7

	terrainShiftY      = 5
	terrainShiftZ      = 10
	terrainShiftU      = 15
	terrainShiftV      = 20
	terrainShiftNormal = 25
)

// NewTerrainVertex packs the fields. Coordinates are truncated to 5 bits.
func NewTerrainVertex(x, y, z, u, v uint8, n Normal) TerrainVertex {
	return TerrainVertex(uint32(x)&terrainCoordMask |
		(uint32(y)&terrainCoordMask)<<terrainShiftY |
		(uint32(z)&terrainCoordMask)<<terrainShiftZ |
		(uint32(u)&terrainCoordMask)<<terrainShiftU |
		(uint32(v)&terrainCoordMask)<<terrainShiftV |
		(uint32(n)&terrainNormalMask)<<terrainShiftNormal)
}

func (tv TerrainVertex) X() uint8 { return uint8(uint32(tv) & terrainCoordMask) }
func (tv TerrainVertex) Y() uint8 { return uint8(uint32(tv) >> terrainShiftY & terrainCoordMask) }
func (tv TerrainVertex) Z() uint8 { return uint8(uint32(tv) >> terrainShiftZ & terrainCoordMask) }
func (tv TerrainVertex) U() uint8 { return uint8(uint32(tv) >> terrainShiftU & terrainCoordMask) }
func (tv TerrainVertex) V() uint8 { return uint8(uint32(tv) >> terrainShiftV & terrainCoordMask) }
func (tv TerrainVertex) Normal() Normal {
	return Normal(uint32(tv) >> terrainShiftNormal & terrainNormalMask)
}

type TerrainPushConstants struct {
	ViewProj mgl32.Mat4
}

const terrainPushConstantsSize = 64

var terrainPushStages = vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)

func (pc *TerrainPushConstants) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(terrainPushConstantsSize)
	_ = binary.Write(&buf, binary.LittleEndian, pc)
	return buf.Bytes()
}

// TerrainPass draws one uploaded terrain mesh. The vertex shader pulls packed
// vertices from a storage buffer bound at set 0, binding 0.
type TerrainPass struct {
	pipeline    *VulkanPipeline
	descriptors *DescriptorAllocator
	setLayout   DescriptorSetLayout
	set         DescriptorSet
	mesh        *GPUMeshBuffers
}

func NewTerrainPass(dev Device, shaders ShaderSet) (*TerrainPass, error) {
	da, err := NewDescriptorAllocator(dev, 1, []PoolSizeRatio{
		{Type: vk.DescriptorTypeStorageBuffer, Ratio: 1},
	})
	if err != nil {
		return nil, err
	}
	p := &TerrainPass{descriptors: da}

	p.setLayout, err = dev.CreateDescriptorSetLayout([]DescriptorBinding{{
		Binding: 0,
		Type:    vk.DescriptorTypeStorageBuffer,
		Count:   1,
		Stages:  vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}})
	if err != nil {
		p.destroyDescriptors(dev)
		return nil, err
	}
	if p.set, err = da.Allocate(dev, p.setLayout); err != nil {
		p.destroyDescriptors(dev)
		return nil, err
	}
	if _, err := p.Reload(dev, shaders); err != nil {
		p.destroyDescriptors(dev)
		return nil, err
	}
	return p, nil
}

func (p *TerrainPass) Reload(dev Device, shaders ShaderSet) (*VulkanPipeline, error) {
	vs, err := shaders.Get(ShaderTerrainVertex)
	if err != nil {
		return nil, err
	}
	fs, err := shaders.Get(ShaderTerrainFragment)
	if err != nil {
		return nil, err
	}
	pipeline, err := NewGraphicsPipeline(dev, &VulkanPipelineConfig{
		VertexCode:           vs,
		FragmentCode:         fs,
		DescriptorSetLayouts: []DescriptorSetLayout{p.setLayout},
		PushConstantRanges: []PushConstantRange{
			{Stages: terrainPushStages, Offset: 0, Size: terrainPushConstantsSize},
		},
		CullMode:    vk.CullModeBackBit,
		FrontFace:   vk.FrontFaceClockwise,
		ColorFormat: DrawImageFormat,
	})
	if err != nil {
		return nil, err
	}
	retired := p.pipeline
	p.pipeline = pipeline
	return retired, nil
}

// SetMesh binds mesh for drawing and returns the mesh it replaces, which the
// caller owns from then on. A nil mesh disables drawing.
func (p *TerrainPass) SetMesh(dev Device, mesh *GPUMeshBuffers) *GPUMeshBuffers {
	old := p.mesh
	p.mesh = mesh
	if mesh != nil {
		dev.UpdateStorageBuffer(p.set, 0, mesh.Vertex.Buffer, mesh.Vertex.Size)
	}
	return old
}

func (p *TerrainPass) Mesh() *GPUMeshBuffers {
	return p.mesh
}

// Draw always loads the target so it composes over the sky.
func (p *TerrainPass) Draw(dev Device, cb CommandBuffer, target *AllocatedImage, viewProj mgl32.Mat4) {
	dev.CmdBeginRendering(cb, RenderingInfo{
		View:   target.View,
		Format: target.Format,
		Extent: target.Extent,
		LoadOp: vk.AttachmentLoadOpLoad,
	})
	p.pipeline.Bind(dev, cb)
	if p.mesh != nil {
		dev.CmdSetViewportScissor(cb, target.Extent)
		dev.CmdBindDescriptorSet(cb, vk.PipelineBindPointGraphics, p.pipeline.Layout, p.set)
		pc := TerrainPushConstants{ViewProj: viewProj}
		dev.CmdPushConstants(cb, p.pipeline.Layout, terrainPushStages, pc.Bytes())
		dev.CmdBindIndexBuffer(cb, p.mesh.Index.Buffer, vk.IndexTypeUint32)
		dev.CmdDrawIndexed(cb, p.mesh.IndexCount, 1, 0, 0, 0)
	}
	dev.CmdEndRendering(cb)
}

func (p *TerrainPass) destroyDescriptors(dev Device) {
	if p.descriptors != nil {
		p.descriptors.Destroy(dev)
		p.descriptors = nil
	}
	if p.setLayout != 0 {
		dev.DestroyDescriptorSetLayout(p.setLayout)
		p.setLayout = 0
	}
}

// Destroy releases the pipeline, descriptors and the current mesh.
func (p *TerrainPass) Destroy(dev Device, alloc *Allocator) {
	if p == nil {
		return
	}
	p.pipeline.Destroy(dev)
	p.pipeline = nil
	p.destroyDescriptors(dev)
	p.mesh.Destroy(alloc)
	p.mesh = nil
}
