package vulkan

import (
	"bytes"
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
)

// Inside faces of a unit cube around the camera, wound clockwise.
var skyIndices = []uint16{
	0, 1, 2, 0, 2, 3,
	1, 5, 6, 1, 6, 2,
	5, 4, 7, 5, 7, 6,
	4, 0, 3, 4, 3, 7,
	3, 2, 6, 3, 6, 7,
	4, 5, 1, 4, 1, 0,
}

// SkyPushConstants is the std430 block read by both sky shaders.
type SkyPushConstants struct {
	ViewProj     mgl32.Mat4
	SkyColor     mgl32.Vec3
	_            float32
	SunDirection mgl32.Vec3
	_            float32
}

const skyPushConstantsSize = 96

var skyPushStages = vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)

func (pc *SkyPushConstants) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(skyPushConstantsSize)
	// fixed-size floats only, cannot fail
	_ = binary.Write(&buf, binary.LittleEndian, pc)
	return buf.Bytes()
}

type SkyPass struct {
	pipeline    *VulkanPipeline
	indexBuffer *AllocatedBuffer
}

func NewSkyPass(dev Device, alloc *Allocator, imm *ImmediateSubmitter, shaders ShaderSet) (*SkyPass, error) {
	p := &SkyPass{}
	if _, err := p.Reload(dev, shaders); err != nil {
		return nil, err
	}
	ib, err := UploadBuffer(dev, alloc, imm, "sky_indices", skyIndices, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		p.pipeline.Destroy(dev)
		return nil, err
	}
	p.indexBuffer = ib
	return p, nil
}

// Reload rebuilds the pipeline from shaders and returns the one it replaced,
// which may still be referenced by frames in flight. On failure nothing changes.
func (p *SkyPass) Reload(dev Device, shaders ShaderSet) (*VulkanPipeline, error) {
	vs, err := shaders.Get(ShaderSkyVertex)
	if err != nil {
		return nil, err
	}
	fs, err := shaders.Get(ShaderSkyFragment)
	if err != nil {
		return nil, err
	}
	pipeline, err := NewGraphicsPipeline(dev, &VulkanPipelineConfig{
		VertexCode:   vs,
		FragmentCode: fs,
		PushConstantRanges: []PushConstantRange{
			{Stages: skyPushStages, Offset: 0, Size: skyPushConstantsSize},
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

// Draw renders the sky into target. loadOp is CLEAR unless an earlier pass already wrote the image.
func (p *SkyPass) Draw(dev Device, cb CommandBuffer, target *AllocatedImage, loadOp vk.AttachmentLoadOp, viewProj mgl32.Mat4, sunDir mgl32.Vec3) {
	dev.CmdBeginRendering(cb, RenderingInfo{
		View:       target.View,
		Format:     target.Format,
		Extent:     target.Extent,
		LoadOp:     loadOp,
		ClearColor: [4]float32{0, 0, 0, 1},
	})
	p.pipeline.Bind(dev, cb)
	dev.CmdSetViewportScissor(cb, target.Extent)

	pc := SkyPushConstants{
		ViewProj:     viewProj,
		SkyColor:     SkyColor,
		SunDirection: sunDir,
	}
	dev.CmdPushConstants(cb, p.pipeline.Layout, skyPushStages, pc.Bytes())
	dev.CmdBindIndexBuffer(cb, p.indexBuffer.Buffer, vk.IndexTypeUint16)
	dev.CmdDrawIndexed(cb, uint32(len(skyIndices)), 1, 0, 0, 0)
	dev.CmdEndRendering(cb)
}

func (p *SkyPass) Destroy(dev Device, alloc *Allocator) {
	if p == nil {
		return
	}
	p.pipeline.Destroy(dev)
	p.pipeline = nil
	alloc.DestroyBuffer(p.indexBuffer)
	p.indexBuffer = nil
}
