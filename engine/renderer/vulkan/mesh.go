package vulkan

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacian/engine/core"
)

// GPUMeshBuffers is an uploaded indexed mesh. Vertices are pulled in the
// shader through VertexAddress or a storage-buffer binding of Vertex.
type GPUMeshBuffers struct {
	Index         *AllocatedBuffer
	Vertex        *AllocatedBuffer
	VertexAddress uint64
	IndexCount    uint32
}

const (
	vertexBufferUsage = vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit) |
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit) |
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit) |
		bufferUsageShaderDeviceAddressBit
	indexBufferUsage = vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit) |
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit) |
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)

	deviceLocal = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	hostVisible = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) |
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
)

// encodeData lays out fixed-size data (slices of numbers or plain structs) in little endian.
func encodeData(data any) ([]byte, error) {
	if b, ok := data.([]byte); ok {
		return b, nil
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		return nil, errors.Wrapf(err, "cannot encode %T for upload", data)
	}
	return buf.Bytes(), nil
}

// UploadMesh copies indices and vertices into device-local buffers through a
// single staging buffer and one immediate submit.
func UploadMesh(dev Device, alloc *Allocator, imm *ImmediateSubmitter, indices []uint32, vertices any) (*GPUMeshBuffers, error) {
	vertexBytes, err := encodeData(vertices)
	if err != nil {
		return nil, err
	}
	indexBytes, err := encodeData(indices)
	if err != nil {
		return nil, err
	}
	if len(vertexBytes) == 0 || len(indexBytes) == 0 {
		return nil, errors.New("cannot upload an empty mesh")
	}
	vertexSize, indexSize := uint64(len(vertexBytes)), uint64(len(indexBytes))

	mesh := &GPUMeshBuffers{IndexCount: uint32(len(indices))}
	if mesh.Vertex, err = alloc.CreateBuffer("mesh_vertices", vertexSize, vertexBufferUsage, deviceLocal); err != nil {
		return nil, err
	}
	mesh.VertexAddress = mesh.Vertex.Address
	if mesh.Index, err = alloc.CreateBuffer("mesh_indices", indexSize, indexBufferUsage, deviceLocal); err != nil {
		alloc.DestroyBuffer(mesh.Vertex)
		return nil, err
	}

	staging, err := alloc.CreateBuffer("mesh_staging", vertexSize+indexSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisible)
	if err != nil {
		mesh.Destroy(alloc)
		return nil, err
	}
	defer alloc.DestroyBuffer(staging)

	copy(staging.Allocation.Mapped, vertexBytes)
	copy(staging.Allocation.Mapped[vertexSize:], indexBytes)

	err = imm.Submit(func(cb CommandBuffer) {
		dev.CmdCopyBuffer(cb, staging.Buffer, mesh.Vertex.Buffer, []BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: vertexSize}})
		dev.CmdCopyBuffer(cb, staging.Buffer, mesh.Index.Buffer, []BufferCopy{{SrcOffset: vertexSize, DstOffset: 0, Size: indexSize}})
	})
	if err != nil {
		mesh.Destroy(alloc)
		err = errors.Wrap(err, "mesh upload")
		core.LogError(err.Error())
		return nil, err
	}
	return mesh, nil
}

// UploadBuffer creates a device-local buffer holding data.
func UploadBuffer(dev Device, alloc *Allocator, imm *ImmediateSubmitter, name string, data any, usage vk.BufferUsageFlags) (*AllocatedBuffer, error) {
	raw, err := encodeData(data)
	if err != nil {
		return nil, err
	}
	size := uint64(len(raw))
	buf, err := alloc.CreateBuffer(name, size, usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), deviceLocal)
	if err != nil {
		return nil, err
	}
	staging, err := alloc.CreateBuffer(name+"_staging", size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisible)
	if err != nil {
		alloc.DestroyBuffer(buf)
		return nil, err
	}
	defer alloc.DestroyBuffer(staging)

	copy(staging.Allocation.Mapped, raw)
	if err := imm.Submit(func(cb CommandBuffer) {
		dev.CmdCopyBuffer(cb, staging.Buffer, buf.Buffer, []BufferCopy{{Size: size}})
	}); err != nil {
		alloc.DestroyBuffer(buf)
		return nil, errors.Wrapf(err, "upload of %s", name)
	}
	return buf, nil
}

// DownloadBuffer reads size bytes of a device-local buffer back to the host.
func DownloadBuffer(dev Device, alloc *Allocator, imm *ImmediateSubmitter, buf *AllocatedBuffer, size uint64) ([]byte, error) {
	if size > buf.Size {
		return nil, errors.Newf("download of %d bytes from a %d byte buffer", size, buf.Size)
	}
	staging, err := alloc.CreateBuffer("download_staging", size, vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), hostVisible)
	if err != nil {
		return nil, err
	}
	defer alloc.DestroyBuffer(staging)

	if err := imm.Submit(func(cb CommandBuffer) {
		dev.CmdCopyBuffer(cb, buf.Buffer, staging.Buffer, []BufferCopy{{Size: size}})
	}); err != nil {
		return nil, errors.Wrap(err, "buffer download")
	}
	out := make([]byte, size)
	copy(out, staging.Allocation.Mapped)
	return out, nil
}

func (m *GPUMeshBuffers) Destroy(alloc *Allocator) {
	if m == nil {
		return
	}
	alloc.DestroyBuffer(m.Index)
	alloc.DestroyBuffer(m.Vertex)
	m.VertexAddress = 0
}
