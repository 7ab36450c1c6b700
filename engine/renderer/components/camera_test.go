package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestPitchClamps(t *testing.T) {
	tests := []struct {
		name  string
		steps []int32
		want  []Pitch
	}{
		{"increase", []int32{60, 60}, []Pitch{150, 180}},
		{"decrease", []int32{-60, -60}, []Pitch{30, 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Pitch(DefaultPitch)
			for i, step := range tc.steps {
				p.Rotate(step)
				if p != tc.want[i] {
					t.Fatalf("step %d: got %d, want %d", i, p, tc.want[i])
				}
			}
		})
	}
}

func TestYawWraps(t *testing.T) {
	tests := []struct {
		name  string
		steps []int32
		want  []Yaw
	}{
		{"increase", []int32{220, 200}, []Yaw{220, 60}},
		{"decrease", []int32{-220, -20}, []Yaw{140, 120}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var y Yaw
			for i, step := range tc.steps {
				y.Rotate(step)
				if y != tc.want[i] {
					t.Fatalf("step %d: got %d, want %d", i, y, tc.want[i])
				}
			}
		})
	}
}

func TestViewDirectionUpdate(t *testing.T) {
	v := NewViewDirection(800, 600)
	// 80px right and 40px up from the center
	v.Update(480, 260)
	if v.Yaw != 10 || v.Pitch != 95 {
		t.Fatalf("got yaw %d pitch %d", v.Yaw, v.Pitch)
	}

	v.Resize(1000, 1000)
	if v.CenterX != 500 || v.CenterY != 500 {
		t.Fatalf("center not updated: %d,%d", v.CenterX, v.CenterY)
	}
}

func TestCameraDefaultLooksDownPositiveY(t *testing.T) {
	c := NewCamera(800, 600)
	if !c.Direction.Forward().ApproxEqualThreshold(mgl32.Vec3{0, 1, 0}, 1e-6) {
		t.Fatalf("forward: %v", c.Direction.Forward())
	}

	c.MoveForward(2)
	c.MoveRight(1)
	if !c.Position.ApproxEqualThreshold(mgl32.Vec3{1, 2, 0}, 1e-6) {
		t.Fatalf("position: %v", c.Position)
	}

	want := mgl32.LookAtV(mgl32.Vec3{1, 2, 0}, mgl32.Vec3{1, 3, 0}, WorldUp)
	if !c.GetView().ApproxEqualThreshold(want, 1e-5) {
		t.Fatalf("view mismatch:\n%v\n%v", c.GetView(), want)
	}
}
