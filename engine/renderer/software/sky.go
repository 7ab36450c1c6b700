package software

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/glacian/engine/math"
)

var (
	zenithColor  = mgl32.Vec3{0.70, 0.70, 1.00}
	horizonColor = mgl32.Vec3{0.85, 0.90, 1.00}
	groundColor  = mgl32.Vec3{0.30, 0.28, 0.25}
	sunColor     = mgl32.Vec3{1.00, 0.95, 0.80}
)

// cos of the sun disk's angular radius
const sunDiskCos = 0.9995

// skyColor shades a view ray the same way skybox.frag does. The world is Z-up.
func skyColor(dir, sunDir mgl32.Vec3) mgl32.Vec3 {
	var c mgl32.Vec3
	if dir.Z() >= 0 {
		t := float32(stdmath.Sqrt(float64(dir.Z())))
		c = lerp(horizonColor, zenithColor, t)
	} else {
		t := math.Clamp(-dir.Z()*4, 0, 1)
		c = lerp(horizonColor, groundColor, t)
	}
	if sunDir.Len() > 0 && dir.Dot(sunDir.Normalize()) > sunDiskCos {
		c = sunColor
	}
	return c
}

func lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

// rayDirection unprojects pixel (x, y) of a width*height target through the
// inverse sky view-projection into a world-space direction.
func rayDirection(inv mgl32.Mat4, x, y, width, height int) mgl32.Vec3 {
	ndcX := (float32(x)+0.5)/float32(width)*2 - 1
	// Vulkan clip space has +y pointing down
	ndcY := (float32(y)+0.5)/float32(height)*2 - 1
	// depth 1 is the plane at infinity, unproject a finite point instead
	p := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, 0.5, 1})
	if p.W() == 0 {
		return mgl32.Vec3{0, 0, -1}
	}
	d := p.Vec3().Mul(1 / p.W())
	if d.Len() == 0 {
		return mgl32.Vec3{0, 0, -1}
	}
	return d.Normalize()
}
