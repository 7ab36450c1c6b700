// Package software is a CPU backend that shades the sky into an offscreen
// draw image and scales it onto a present image. It needs no GPU and can
// capture a frame as PNG.
package software

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/glacian/engine/core"
	"github.com/spaghettifunk/glacian/engine/math"
	"golang.org/x/image/draw"
)

type Config struct {
	// empty disables capture
	CapturePath string
	// frame after which the present image is written
	CaptureFrames uint64
}

type Renderer struct {
	config Config

	// the draw image is half the window resolution and upscaled on present
	draw    *image.RGBA64
	present *image.RGBA

	frameCount  uint64
	aspectRatio float32
	captured    bool
	destroyed   bool
}

func New(cfg Config) *Renderer {
	return &Renderer{config: cfg}
}

func (r *Renderer) Initialize(appName string, appWidth, appHeight uint32) error {
	core.LogInfo("software renderer for %s", appName)
	return r.Resized(appWidth, appHeight)
}

func (r *Renderer) Resized(width, height uint32) error {
	if r.destroyed {
		return core.ErrEngineDestroyed
	}
	if width == 0 || height == 0 {
		return errors.Wrapf(core.ErrZeroExtent, "resize to %dx%d", width, height)
	}
	dw := int(math.DivCeil(width, 2))
	dh := int(math.DivCeil(height, 2))
	r.draw = image.NewRGBA64(image.Rect(0, 0, dw, dh))
	r.present = image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	r.aspectRatio = float32(width) / float32(height)
	return nil
}

func (r *Renderer) Render(view mgl32.Mat4, sunDir mgl32.Vec3) error {
	if r.destroyed {
		return core.ErrEngineDestroyed
	}
	if r.draw == nil {
		return errors.New("software renderer is not initialized")
	}

	inv := math.SkyViewProjection(view, r.aspectRatio).Inv()
	b := r.draw.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := skyColor(rayDirection(inv, x, y, b.Dx(), b.Dy()), sunDir)
			r.draw.SetRGBA64(x, y, toRGBA64(c))
		}
	}
	draw.BiLinear.Scale(r.present, r.present.Bounds(), r.draw, b, draw.Src, nil)
	r.frameCount++

	if r.config.CapturePath != "" && !r.captured && r.frameCount >= r.config.CaptureFrames {
		if err := r.capture(); err != nil {
			return err
		}
		r.captured = true
	}
	return nil
}

// createCapture opens the capture destination.
var createCapture = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

func (r *Renderer) capture() error {
	path := r.config.CapturePath
	f, err := createCapture(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create capture %s", path)
	}
	if err := png.Encode(f, r.present); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to encode capture %s", path)
	}
	// a failed close can leave a truncated file behind
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to write capture %s", path)
	}
	core.LogInfo("captured frame %d to %s", r.frameCount, path)
	return nil
}

func (r *Renderer) Shutdown() error {
	r.destroyed = true
	r.draw, r.present = nil, nil
	return nil
}

func (r *Renderer) FrameCount() uint64 {
	return r.frameCount
}

// Present returns the last presented image.
func (r *Renderer) Present() image.Image {
	return r.present
}

func toRGBA64(c mgl32.Vec3) color.RGBA64 {
	ch := func(v float32) uint16 {
		return uint16(math.Clamp(v, 0, 1) * 0xffff)
	}
	return color.RGBA64{R: ch(c.X()), G: ch(c.Y()), B: ch(c.Z()), A: 0xffff}
}
