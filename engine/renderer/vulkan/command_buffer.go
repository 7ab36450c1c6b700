package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/glacian/engine/core"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_NOT_ALLOCATED VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_READY
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
)

type VulkanCommandBuffer struct {
	Handle CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(dev Device, pool CommandPool) (*VulkanCommandBuffer, error) {
	handle, err := dev.AllocateCommandBuffer(pool)
	if err != nil {
		err = errors.Wrap(err, "failed to allocate command buffer")
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanCommandBuffer{
		Handle: handle,
		State:  COMMAND_BUFFER_STATE_READY,
	}, nil
}

func (v *VulkanCommandBuffer) Begin(dev Device, isSingleUse bool) error {
	if err := dev.BeginCommandBuffer(v.Handle, isSingleUse); err != nil {
		err = errors.Wrap(err, "failed to begin command buffer")
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End(dev Device) error {
	if err := dev.EndCommandBuffer(v.Handle); err != nil {
		err = errors.Wrap(err, "failed to end command buffer")
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (v *VulkanCommandBuffer) Reset(dev Device) error {
	if err := dev.ResetCommandBuffer(v.Handle); err != nil {
		err = errors.Wrap(err, "failed to reset command buffer")
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

// ImmediateSubmitter runs one-off transfer work outside the frame loop and
// blocks until the GPU has finished it.
type ImmediateSubmitter struct {
	dev Device
}

func NewImmediateSubmitter(dev Device) *ImmediateSubmitter {
	return &ImmediateSubmitter{dev: dev}
}

// Submit records fn into a fresh single-use command buffer, submits it and
// waits on its fence. The pool and fence are released on every path.
func (s *ImmediateSubmitter) Submit(fn func(cb CommandBuffer)) error {
	pool, err := s.dev.CreateCommandPool()
	if err != nil {
		return errors.Wrap(err, "immediate submit: command pool")
	}
	defer s.dev.DestroyCommandPool(pool)

	fence, err := NewFence(s.dev, false)
	if err != nil {
		return err
	}
	defer fence.Destroy(s.dev)

	cb, err := NewVulkanCommandBuffer(s.dev, pool)
	if err != nil {
		return err
	}
	if err := cb.Begin(s.dev, true); err != nil {
		return err
	}
	fn(cb.Handle)
	if err := cb.End(s.dev); err != nil {
		return err
	}

	if err := s.dev.QueueSubmit(SubmitInfo{CommandBuffer: cb.Handle, Fence: fence.Handle}); err != nil {
		err = errors.Wrap(err, "immediate submit")
		core.LogError(err.Error())
		return err
	}
	cb.UpdateSubmitted()
	return fence.Wait(s.dev, ImmediateTimeout)
}
