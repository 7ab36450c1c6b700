package renderer

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/glacian/engine/core"
)

type fakeBackend struct {
	renders   int
	resizes   [][2]uint32
	reloads   int
	shutdown  bool
	failWith  error
	resizeErr error
}

func (b *fakeBackend) Initialize(string, uint32, uint32) error { return nil }

func (b *fakeBackend) Shutdown() error {
	b.shutdown = true
	return nil
}

func (b *fakeBackend) Resized(width, height uint32) error {
	if b.resizeErr != nil {
		return b.resizeErr
	}
	if width == 0 || height == 0 {
		return errors.Wrapf(core.ErrZeroExtent, "resize to %dx%d", width, height)
	}
	b.resizes = append(b.resizes, [2]uint32{width, height})
	return nil
}

func (b *fakeBackend) Render(mgl32.Mat4, mgl32.Vec3) error {
	b.renders++
	return b.failWith
}

func (b *fakeBackend) ReloadShaders() error {
	b.reloads++
	return nil
}

func packet() *RenderPacket {
	return &RenderPacket{View: mgl32.Ident4(), SunDirection: mgl32.Vec3{0, 0, 1}}
}

func TestZeroResizeSuspendsDrawing(t *testing.T) {
	backend := &fakeBackend{}
	r := NewWithBackend(backend, Vulkan)

	if err := r.OnResize(0, 0); err != nil {
		t.Fatalf("zero resize: %v", err)
	}
	if !r.Suspended() {
		t.Fatal("renderer not suspended after zero resize")
	}
	if err := r.DrawFrame(packet()); err != nil {
		t.Fatal(err)
	}
	if backend.renders != 0 {
		t.Errorf("backend rendered %d frames while suspended", backend.renders)
	}

	if err := r.OnResize(640, 480); err != nil {
		t.Fatal(err)
	}
	if r.Suspended() {
		t.Fatal("renderer still suspended after non-zero resize")
	}
	if err := r.DrawFrame(packet()); err != nil {
		t.Fatal(err)
	}
	if backend.renders != 1 {
		t.Errorf("renders = %d, want 1", backend.renders)
	}
}

func TestResizeReportsFailedEngine(t *testing.T) {
	cause := errors.Wrapf(core.ErrZeroExtent, "surface extent 0x0")
	backend := &fakeBackend{resizeErr: errors.Mark(cause, core.ErrEngineFailed)}
	r := NewWithBackend(backend, Vulkan)

	err := r.OnResize(1024, 768)
	if !errors.Is(err, core.ErrEngineFailed) {
		t.Fatalf("OnResize = %v, want ErrEngineFailed", err)
	}
	if r.Suspended() {
		t.Error("failed backend must not be treated as suspended")
	}
}

func TestDrawFramePropagatesBackendError(t *testing.T) {
	backend := &fakeBackend{failWith: core.ErrDeviceLost}
	r := NewWithBackend(backend, Vulkan)
	if err := r.DrawFrame(packet()); !errors.Is(err, core.ErrDeviceLost) {
		t.Errorf("DrawFrame = %v, want ErrDeviceLost", err)
	}
}

func TestReloadShadersUsesOptionalInterface(t *testing.T) {
	backend := &fakeBackend{}
	r := NewWithBackend(backend, Vulkan)
	if err := r.ReloadShaders(); err != nil {
		t.Fatal(err)
	}
	if backend.reloads != 1 {
		t.Errorf("reloads = %d, want 1", backend.reloads)
	}
	if err := r.SetTerrainMesh(nil, nil); err == nil {
		t.Error("SetTerrainMesh on a backend without terrain should fail")
	}
}

func TestParseBackendType(t *testing.T) {
	tests := []struct {
		in   string
		want BackendType
		err  bool
	}{
		{in: "vulkan", want: Vulkan},
		{in: "software", want: Software},
		{in: "metal", err: true},
	}
	for _, tt := range tests {
		got, err := ParseBackendType(tt.in)
		if tt.err {
			if !errors.Is(err, core.ErrUnknownBackend) {
				t.Errorf("ParseBackendType(%q) err = %v, want ErrUnknownBackend", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseBackendType(%q) = %v, %v", tt.in, got, err)
		}
	}
}
