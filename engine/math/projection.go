package math

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	SkyFovY  float32 = stdmath.Pi / 3
	SkyZNear float32 = 2.0
)

// InfinitePerspectiveRH builds a right-handed perspective projection with an infinite far plane
// mapping depth to [0, 1]. mgl32.Perspective targets the OpenGL [-1, 1] range and needs a far plane.
func InfinitePerspectiveRH(fovY, aspect, zNear float32) mgl32.Mat4 {
	f := float32(1.0 / stdmath.Tan(float64(fovY)*0.5))
	return mgl32.Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, -1, -1,
		0, 0, -zNear, 0,
	}
}

// StripTranslation zeroes the translation column so the view only rotates.
func StripTranslation(view mgl32.Mat4) mgl32.Mat4 {
	view[12], view[13], view[14] = 0, 0, 0
	return view
}

// SkyViewProjection is the matrix the sky pass pushes: projection * rotation-only view.
func SkyViewProjection(view mgl32.Mat4, aspect float32) mgl32.Mat4 {
	return InfinitePerspectiveRH(SkyFovY, aspect, SkyZNear).Mul4(StripTranslation(view))
}

// ViewProjection is the matrix the terrain pass pushes.
func ViewProjection(view mgl32.Mat4, aspect float32) mgl32.Mat4 {
	return InfinitePerspectiveRH(SkyFovY, aspect, SkyZNear).Mul4(view)
}
