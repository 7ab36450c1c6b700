package vulkan

import (
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacian/engine/core"
	"github.com/spaghettifunk/glacian/engine/math"
)

type Swapchain struct {
	Surface     Surface
	Handle      SwapchainHandle
	ImageFormat SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Images      []Image
	Views       []ImageView
	// Semaphores[i] is signaled when rendering into Images[i] has finished.
	Semaphores []Semaphore
}

const swapchainImageUsage = vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) |
	vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)

// CreateSwapchain creates a window surface and a swapchain for it. The extent
// follows the surface when it reports one, otherwise the requested size clamped
// to the surface limits.
func CreateSwapchain(dev Device, extent vk.Extent2D, presentMode vk.PresentMode) (*Swapchain, error) {
	if extent.Width == 0 || extent.Height == 0 {
		return nil, errors.Wrapf(core.ErrZeroExtent, "swapchain %dx%d", extent.Width, extent.Height)
	}

	surface, err := dev.CreateSurface()
	if err != nil {
		err = errors.Wrap(err, "failed to create window surface")
		core.LogError(err.Error())
		return nil, err
	}
	sc := &Swapchain{Surface: surface}

	if err := sc.build(dev, extent, presentMode); err != nil {
		sc.Destroy(dev)
		core.LogError(err.Error())
		return nil, err
	}
	core.LogDebug("swapchain created: %dx%d, %d images, present mode %d", sc.Extent.Width, sc.Extent.Height, len(sc.Images), sc.PresentMode)
	return sc, nil
}

func (sc *Swapchain) build(dev Device, extent vk.Extent2D, presentMode vk.PresentMode) error {
	caps, err := dev.SurfaceCapabilities(sc.Surface)
	if err != nil {
		return errors.Wrap(err, "failed to query surface capabilities")
	}
	formats, err := dev.SurfaceFormats(sc.Surface)
	if err != nil {
		return errors.Wrap(err, "failed to query surface formats")
	}
	if len(formats) == 0 {
		return errors.New("surface reports no formats")
	}
	modes, err := dev.SurfacePresentModes(sc.Surface)
	if err != nil {
		return errors.Wrap(err, "failed to query present modes")
	}

	sc.ImageFormat = ChooseSurfaceFormat(formats)
	sc.PresentMode = ChoosePresentMode(modes, presentMode)
	sc.Extent = ChooseExtent(caps, extent)
	if sc.Extent.Width == 0 || sc.Extent.Height == 0 {
		return errors.Wrapf(core.ErrZeroExtent, "surface extent %dx%d", sc.Extent.Width, sc.Extent.Height)
	}

	sc.Handle, err = dev.CreateSwapchain(SwapchainCreateInfo{
		Surface:     sc.Surface,
		MinImages:   ChooseImageCount(caps),
		Format:      sc.ImageFormat,
		Extent:      sc.Extent,
		Usage:       swapchainImageUsage,
		PresentMode: sc.PresentMode,
		Transform:   caps.CurrentTransform,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create swapchain")
	}

	if sc.Images, err = dev.SwapchainImages(sc.Handle); err != nil {
		return errors.Wrap(err, "failed to get swapchain images")
	}
	sc.Views = make([]ImageView, 0, len(sc.Images))
	sc.Semaphores = make([]Semaphore, 0, len(sc.Images))
	for i, img := range sc.Images {
		view, err := dev.CreateImageView(img, sc.ImageFormat.Format)
		if err != nil {
			return errors.Wrapf(err, "failed to create view for swapchain image %d", i)
		}
		sc.Views = append(sc.Views, view)

		sem, err := dev.CreateSemaphore()
		if err != nil {
			return errors.Wrapf(err, "failed to create render-complete semaphore %d", i)
		}
		sc.Semaphores = append(sc.Semaphores, sem)
	}
	return nil
}

// SurfaceExtent reports the extent a swapchain built now for requested would get.
func (sc *Swapchain) SurfaceExtent(dev Device, requested vk.Extent2D) (vk.Extent2D, error) {
	caps, err := dev.SurfaceCapabilities(sc.Surface)
	if err != nil {
		return vk.Extent2D{}, errors.Wrap(err, "failed to query surface capabilities")
	}
	return ChooseExtent(caps, requested), nil
}

// Destroy releases views, semaphores, the swapchain and the surface, in that order.
func (sc *Swapchain) Destroy(dev Device) {
	if sc == nil {
		return
	}
	for _, view := range sc.Views {
		dev.DestroyImageView(view)
	}
	sc.Views = nil
	for _, sem := range sc.Semaphores {
		dev.DestroySemaphore(sem)
	}
	sc.Semaphores = nil
	// images belong to the swapchain
	sc.Images = nil
	if sc.Handle != 0 {
		dev.DestroySwapchain(sc.Handle)
		sc.Handle = 0
	}
	if sc.Surface != 0 {
		dev.DestroySurface(sc.Surface)
		sc.Surface = 0
	}
}

// AcquireNextImage returns the index of the next presentable image. An
// out-of-date swapchain is reported with core.ErrSwapchainOutOfDate.
func (sc *Swapchain) AcquireNextImage(dev Device, signal Semaphore, timeout time.Duration) (uint32, bool, error) {
	return dev.AcquireNextImage(sc.Handle, timeout, signal)
}

func (sc *Swapchain) Present(dev Device, imageIndex uint32) (bool, error) {
	return dev.QueuePresent(sc.Handle, imageIndex, sc.Semaphores[imageIndex])
}

func ChooseSurfaceFormat(formats []SurfaceFormat) SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

// ChoosePresentMode returns want when the surface supports it and FIFO otherwise.
func ChoosePresentMode(modes []vk.PresentMode, want vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == want {
			return want
		}
	}
	return vk.PresentModeFifo
}

func ChooseExtent(caps SurfaceCapabilities, requested vk.Extent2D) vk.Extent2D {
	if caps.CurrentExtent.Width != UndefinedExtent {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  math.Clamp(requested.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: math.Clamp(requested.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for PreferredImageCount images, at least the surface
// minimum and at most its maximum (0 means unbounded).
func ChooseImageCount(caps SurfaceCapabilities) uint32 {
	count := PreferredImageCount
	if caps.MinImageCount > count {
		count = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}
