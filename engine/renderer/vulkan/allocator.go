package vulkan

import (
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/glacian/engine/core"
)

// Allocation is one block of device memory backing a single image or buffer.
type Allocation struct {
	ID     uuid.UUID
	Name   string
	Memory DeviceMemory
	Size   uint64
	// Non-nil for host-visible allocations, which stay mapped for their lifetime.
	Mapped []byte
}

type AllocatedImage struct {
	Image      Image
	View       ImageView
	Format     vk.Format
	Extent     vk.Extent2D
	Allocation *Allocation
}

type AllocatedBuffer struct {
	Buffer     Buffer
	Size       uint64
	Usage      vk.BufferUsageFlags
	Address    uint64
	Allocation *Allocation
}

// Allocator hands out dedicated memory blocks and remembers every one of them
// until it is freed, so Destroy can report leaks.
type Allocator struct {
	dev         Device
	memoryTypes []MemoryType

	mu   sync.Mutex
	live map[uuid.UUID]*Allocation
}

func NewAllocator(dev Device) *Allocator {
	return &Allocator{
		dev:         dev,
		memoryTypes: dev.MemoryTypes(),
		live:        make(map[uuid.UUID]*Allocation),
	}
}

// FindMemoryIndex returns the first memory type allowed by typeBits that has every flag in props.
func (a *Allocator) FindMemoryIndex(typeBits uint32, props vk.MemoryPropertyFlags) (uint32, error) {
	for i, mt := range a.memoryTypes {
		if typeBits&(1<<uint32(i)) == 0 {
			continue
		}
		if mt.PropertyFlags&props == props {
			return uint32(i), nil
		}
	}
	return 0, errors.Newf("no memory type matches bits %#x with properties %#x", typeBits, props)
}

func (a *Allocator) allocate(name string, req MemoryRequirements, props vk.MemoryPropertyFlags) (*Allocation, error) {
	index, err := a.FindMemoryIndex(req.MemoryTypeBits, props)
	if err != nil {
		return nil, err
	}
	mem, err := a.dev.AllocateMemory(req.Size, index)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to allocate %d bytes for %s", req.Size, name)
	}
	alloc := &Allocation{
		ID:     uuid.New(),
		Name:   name,
		Memory: mem,
		Size:   req.Size,
	}
	if props&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 {
		if alloc.Mapped, err = a.dev.MapMemory(mem, req.Size); err != nil {
			a.dev.FreeMemory(mem)
			return nil, errors.Wrapf(err, "failed to map %s", name)
		}
	}

	a.mu.Lock()
	a.live[alloc.ID] = alloc
	a.mu.Unlock()
	return alloc, nil
}

func (a *Allocator) release(alloc *Allocation) {
	if alloc == nil {
		return
	}
	if alloc.Mapped != nil {
		a.dev.UnmapMemory(alloc.Memory)
		alloc.Mapped = nil
	}
	a.dev.FreeMemory(alloc.Memory)

	a.mu.Lock()
	delete(a.live, alloc.ID)
	a.mu.Unlock()
}

// CreateImage creates a device-local 2D image with one mip level and a color view over it.
func (a *Allocator) CreateImage(name string, format vk.Format, extent vk.Extent2D, usage vk.ImageUsageFlags) (*AllocatedImage, error) {
	if extent.Width == 0 || extent.Height == 0 {
		return nil, errors.Wrapf(core.ErrZeroExtent, "image %s", name)
	}
	img, req, err := a.dev.CreateImage(ImageCreateInfo{Format: format, Extent: extent, Usage: usage})
	if err != nil {
		err = errors.Wrapf(err, "failed to create image %s", name)
		core.LogError(err.Error())
		return nil, err
	}
	alloc, err := a.allocate(name, req, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		a.dev.DestroyImage(img)
		core.LogError(err.Error())
		return nil, err
	}
	if err := a.dev.BindImageMemory(img, alloc.Memory); err != nil {
		a.dev.DestroyImage(img)
		a.release(alloc)
		return nil, errors.Wrapf(err, "failed to bind memory of image %s", name)
	}
	view, err := a.dev.CreateImageView(img, format)
	if err != nil {
		a.dev.DestroyImage(img)
		a.release(alloc)
		return nil, errors.Wrapf(err, "failed to create view of image %s", name)
	}
	return &AllocatedImage{
		Image:      img,
		View:       view,
		Format:     format,
		Extent:     extent,
		Allocation: alloc,
	}, nil
}

func (a *Allocator) DestroyImage(img *AllocatedImage) {
	if img == nil || img.Image == 0 {
		return
	}
	a.dev.DestroyImageView(img.View)
	a.dev.DestroyImage(img.Image)
	a.release(img.Allocation)
	img.View, img.Image, img.Allocation = 0, 0, nil
}

// CreateBuffer creates a buffer with dedicated memory. Host-visible buffers come back mapped.
func (a *Allocator) CreateBuffer(name string, size uint64, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags) (*AllocatedBuffer, error) {
	buf, req, err := a.dev.CreateBuffer(size, usage)
	if err != nil {
		err = errors.Wrapf(err, "failed to create buffer %s", name)
		core.LogError(err.Error())
		return nil, err
	}
	alloc, err := a.allocate(name, req, props)
	if err != nil {
		a.dev.DestroyBuffer(buf)
		core.LogError(err.Error())
		return nil, err
	}
	if err := a.dev.BindBufferMemory(buf, alloc.Memory); err != nil {
		a.dev.DestroyBuffer(buf)
		a.release(alloc)
		return nil, errors.Wrapf(err, "failed to bind memory of buffer %s", name)
	}
	out := &AllocatedBuffer{
		Buffer:     buf,
		Size:       size,
		Usage:      usage,
		Allocation: alloc,
	}
	if usage&bufferUsageShaderDeviceAddressBit != 0 {
		out.Address = a.dev.BufferDeviceAddress(buf)
	}
	return out, nil
}

func (a *Allocator) DestroyBuffer(buf *AllocatedBuffer) {
	if buf == nil || buf.Buffer == 0 {
		return
	}
	a.dev.DestroyBuffer(buf.Buffer)
	a.release(buf.Allocation)
	buf.Buffer, buf.Allocation, buf.Address = 0, nil, 0
}

// Live returns the number of allocations not yet freed.
func (a *Allocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Destroy reports every allocation that is still alive with core.ErrResourceLeak.
// Leaked memory is released anyway so the device can be torn down.
func (a *Allocator) Destroy() error {
	a.mu.Lock()
	leaked := make([]*Allocation, 0, len(a.live))
	for _, alloc := range a.live {
		leaked = append(leaked, alloc)
	}
	a.mu.Unlock()

	if len(leaked) == 0 {
		return nil
	}
	sort.Slice(leaked, func(i, j int) bool { return leaked[i].Name < leaked[j].Name })
	names := make([]string, 0, len(leaked))
	for _, alloc := range leaked {
		names = append(names, alloc.Name+"("+alloc.ID.String()+")")
		a.release(alloc)
	}
	err := errors.Wrapf(core.ErrResourceLeak, "%d allocation(s): %s", len(leaked), strings.Join(names, ", "))
	core.LogError(err.Error())
	return err
}
