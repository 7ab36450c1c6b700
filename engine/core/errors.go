package core

import "github.com/cockroachdb/errors"

// Startup failures. The application cannot continue after any of these.
var (
	ErrNoSuitableDevice = errors.New("no physical device supports vulkan 1.3 with a graphics queue")
	ErrInstanceCreation = errors.New("vulkan instance creation failed")
	ErrDeviceCreation   = errors.New("vulkan device creation failed")
	ErrShaderLoad       = errors.New("shader binary missing or corrupt")
)

// Per-frame conditions.
var (
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")
	ErrFenceTimeout       = errors.New("fence wait timed out, gpu presumed hung")
	ErrAcquireTimeout     = errors.New("swapchain image acquire timed out")
	ErrDeviceLost         = errors.New("device lost")
)

// Lifecycle and configuration.
var (
	ErrZeroExtent      = errors.New("zero-sized extent")
	ErrResourceLeak    = errors.New("gpu resources still alive at allocator teardown")
	ErrEngineDestroyed = errors.New("render engine already destroyed")
	ErrEngineFailed    = errors.New("render engine is in a failed state")
	ErrUnknownBackend  = errors.New("unknown renderer backend")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// IsFatal reports whether err leaves the renderer unusable.
func IsFatal(err error) bool {
	return errors.IsAny(err,
		ErrNoSuitableDevice,
		ErrInstanceCreation,
		ErrDeviceCreation,
		ErrShaderLoad,
		ErrFenceTimeout,
		ErrAcquireTimeout,
		ErrDeviceLost,
		ErrEngineFailed,
	)
}
