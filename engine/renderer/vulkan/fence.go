package vulkan

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/glacian/engine/core"
)

type VulkanFence struct {
	Handle     Fence
	IsSignaled bool
}

func NewFence(dev Device, createSignaled bool) (*VulkanFence, error) {
	handle, err := dev.CreateFence(createSignaled)
	if err != nil {
		err = errors.Wrap(err, "failed to create fence")
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanFence{
		Handle:     handle,
		IsSignaled: createSignaled,
	}, nil
}

func (vf *VulkanFence) Destroy(dev Device) {
	if vf.Handle != 0 {
		dev.DestroyFence(vf.Handle)
		vf.Handle = 0
	}
	vf.IsSignaled = false
}

// Wait always asks the device: a fence signaled by a submit is only known
// to the GPU, never to IsSignaled.
func (vf *VulkanFence) Wait(dev Device, timeout time.Duration) error {
	if err := dev.WaitForFence(vf.Handle, timeout); err != nil {
		switch {
		case errors.Is(err, core.ErrFenceTimeout):
			core.LogError("fence wait timed out after %s", timeout)
		case errors.Is(err, core.ErrDeviceLost):
			core.LogError("fence wait: device lost")
		default:
			core.LogError("fence wait: %s", err)
		}
		return err
	}
	vf.IsSignaled = true
	return nil
}

func (vf *VulkanFence) Reset(dev Device) error {
	if !vf.IsSignaled {
		return nil
	}
	if err := dev.ResetFence(vf.Handle); err != nil {
		err = errors.Wrap(err, "failed to reset fence")
		core.LogError(err.Error())
		return err
	}
	vf.IsSignaled = false
	return nil
}
