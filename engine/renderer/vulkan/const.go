package vulkan

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
)

/**
 * @brief Number of frames that may be in flight at once. Each one owns a FrameSync slot.
 */
const FrameOverlap = 2

// Every GPU wait is bounded by one of these.
const (
	FrameTimeout     = time.Second
	AcquireTimeout   = time.Second
	ImmediateTimeout = 10 * time.Second
)

const (
	DrawImageFormat = vk.FormatR16g16b16a16Sfloat

	// Swapchain image count requested before clamping to the surface limits.
	PreferredImageCount uint32 = 3

	// Sentinel value of SurfaceCapabilities.CurrentExtent meaning "the swapchain decides".
	UndefinedExtent uint32 = 0xFFFFFFFF

	// Compute background workgroup is 16x16.
	BackgroundGroupSize uint32 = 16

	// Descriptor pool capacity for the draw image sets.
	DescriptorPoolMaxSets uint32 = 10
)

// Shader binaries loaded from the configured shader directory.
const (
	ShaderSkyVertex       = "skybox_vs.spv"
	ShaderSkyFragment     = "skybox_fs.spv"
	ShaderTerrainVertex   = "terrain_vs.spv"
	ShaderTerrainFragment = "terrain_fs.spv"
	ShaderBackground      = "gradient.spv"
)

// Not exposed by the binding's core-1.0 flag set.
const (
	bufferUsageShaderDeviceAddressBit vk.BufferUsageFlags = 0x00020000
)

var (
	// SkyColor is the RGB color of the sky away from the sun.
	SkyColor = mgl32.Vec3{0.7, 0.7, 1.0}
	// BackgroundClearColor is written to the draw image before the compute background runs.
	BackgroundClearColor = [4]float32{0, 0, 0, 1}
)
