package components

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/glacian/engine/math"
)

// The world is Z-up. Yaw 0 looks down +Y.
var WorldUp = mgl32.Vec3{0, 0, 1}

const (
	DefaultPitch int32 = 90
	// mouse pixels per degree of rotation
	mouseSensitivity int32 = 8
)

// Yaw is a heading in whole degrees, kept in [0, 360).
type Yaw int32

func (y *Yaw) Rotate(amount int32) {
	*y = Yaw(math.Wrap(int32(*y)+amount, 360))
}

// Pitch is the angle from straight down in whole degrees, clamped to [0, 180]. 90 is level.
type Pitch int32

func (p *Pitch) Rotate(amount int32) {
	*p = Pitch(math.Clamp(int32(*p)+amount, 0, 180))
}

// ViewDirection turns cursor offsets from the window center into yaw and pitch.
type ViewDirection struct {
	CenterX int32
	CenterY int32
	Yaw     Yaw
	Pitch   Pitch
}

func NewViewDirection(width, height int32) *ViewDirection {
	return &ViewDirection{
		CenterX: width / 2,
		CenterY: height / 2,
		Pitch:   Pitch(DefaultPitch),
	}
}

func (v *ViewDirection) Resize(width, height int32) {
	v.CenterX = width / 2
	v.CenterY = height / 2
}

// Update rotates by the cursor's distance from the center of the window.
func (v *ViewDirection) Update(x, y int32) {
	v.Yaw.Rotate((x - v.CenterX) / mouseSensitivity)
	v.Pitch.Rotate((v.CenterY - y) / mouseSensitivity)
}

// Forward returns the unit look direction.
func (v *ViewDirection) Forward() mgl32.Vec3 {
	// keep away from the poles, LookAt degenerates when forward is parallel to up
	pitch := math.Clamp(float64(v.Pitch), 1, 179)
	yaw := mgl32.DegToRad(float32(v.Yaw))
	p := mgl32.DegToRad(float32(pitch))
	sinP := float32(stdmath.Sin(float64(p)))
	return mgl32.Vec3{
		float32(stdmath.Sin(float64(yaw))) * sinP,
		float32(stdmath.Cos(float64(yaw))) * sinP,
		-float32(stdmath.Cos(float64(p))),
	}.Normalize()
}

// Camera is a position plus a view direction. The view matrix is rebuilt lazily.
type Camera struct {
	Position  mgl32.Vec3
	Direction *ViewDirection

	isDirty    bool
	viewMatrix mgl32.Mat4
}

func NewCamera(width, height int32) *Camera {
	return &Camera{
		Direction:  NewViewDirection(width, height),
		isDirty:    true,
		viewMatrix: mgl32.Ident4(),
	}
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.Position = position
	c.isDirty = true
}

// Look applies a cursor position to the view direction.
func (c *Camera) Look(x, y int32) {
	c.Direction.Update(x, y)
	c.isDirty = true
}

func (c *Camera) GetView() mgl32.Mat4 {
	if c.isDirty {
		c.viewMatrix = mgl32.LookAtV(c.Position, c.Position.Add(c.Direction.Forward()), WorldUp)
		c.isDirty = false
	}
	return c.viewMatrix
}

// heading is the forward direction flattened onto the ground plane.
func (c *Camera) heading() mgl32.Vec3 {
	yaw := float64(mgl32.DegToRad(float32(c.Direction.Yaw)))
	return mgl32.Vec3{float32(stdmath.Sin(yaw)), float32(stdmath.Cos(yaw)), 0}
}

func (c *Camera) move(direction mgl32.Vec3, amount float32) {
	c.Position = c.Position.Add(direction.Mul(amount))
	c.isDirty = true
}

func (c *Camera) MoveForward(amount float32)  { c.move(c.heading(), amount) }
func (c *Camera) MoveBackward(amount float32) { c.move(c.heading(), -amount) }
func (c *Camera) MoveRight(amount float32)    { c.move(c.heading().Cross(WorldUp), amount) }
func (c *Camera) MoveLeft(amount float32)     { c.move(c.heading().Cross(WorldUp), -amount) }
func (c *Camera) MoveUp(amount float32)       { c.move(WorldUp, amount) }
func (c *Camera) MoveDown(amount float32)     { c.move(WorldUp, -amount) }
