package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/glacian/engine/core"
)

// FrameSync is the per-slot state of the frame-in-flight protocol.
type FrameSync struct {
	Fence          *VulkanFence
	ImageAvailable Semaphore
	Pool           CommandPool
	CommandBuffer  *VulkanCommandBuffer
}

func NewFrameSync(dev Device) (*FrameSync, error) {
	f := &FrameSync{}

	pool, err := dev.CreateCommandPool()
	if err != nil {
		err = errors.Wrap(err, "failed to create frame command pool")
		core.LogError(err.Error())
		return nil, err
	}
	f.Pool = pool

	if f.CommandBuffer, err = NewVulkanCommandBuffer(dev, pool); err != nil {
		f.Destroy(dev)
		return nil, err
	}
	// signaled so the first wait on this slot returns at once
	if f.Fence, err = NewFence(dev, true); err != nil {
		f.Destroy(dev)
		return nil, err
	}
	if f.ImageAvailable, err = dev.CreateSemaphore(); err != nil {
		f.Destroy(dev)
		err = errors.Wrap(err, "failed to create image-available semaphore")
		core.LogError(err.Error())
		return nil, err
	}
	return f, nil
}

// Abandon restores the slot after a frame that reset its fence but never
// submitted: the fence comes back signaled and the acquire semaphore is
// replaced. Only valid when no acquire signaled ImageAvailable.
func (f *FrameSync) Abandon(dev Device) error {
	if f.ImageAvailable != 0 {
		dev.DestroySemaphore(f.ImageAvailable)
		f.ImageAvailable = 0
	}
	sem, err := dev.CreateSemaphore()
	if err != nil {
		return errors.Wrap(err, "failed to recreate image-available semaphore")
	}
	f.ImageAvailable = sem

	if f.Fence != nil {
		f.Fence.Destroy(dev)
	}
	f.Fence, err = NewFence(dev, true)
	return err
}

func (f *FrameSync) Destroy(dev Device) {
	if f.ImageAvailable != 0 {
		dev.DestroySemaphore(f.ImageAvailable)
		f.ImageAvailable = 0
	}
	if f.Fence != nil {
		f.Fence.Destroy(dev)
		f.Fence = nil
	}
	// destroying the pool frees its command buffer
	if f.Pool != 0 {
		dev.DestroyCommandPool(f.Pool)
		f.Pool = 0
	}
	if f.CommandBuffer != nil {
		f.CommandBuffer.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
		f.CommandBuffer = nil
	}
}
