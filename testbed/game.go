package testbed

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/glacian/engine"
	"github.com/spaghettifunk/glacian/engine/core"
	"github.com/spaghettifunk/glacian/engine/renderer"
	"github.com/spaghettifunk/glacian/engine/renderer/components"
	"github.com/spaghettifunk/glacian/engine/renderer/vulkan"
)

// world units per second
const moveSpeed float32 = 10.0

// SunDirection is fixed on the horizon.
var SunDirection = mgl32.Vec3{1, 0, 0}

type TestGame struct {
	*engine.Game
}

type gameState struct {
	camera *components.Camera
	width  uint32
	height uint32
	// terrain is uploaded when the backend has a terrain pass
	withTerrain bool
}

func NewTestGame(cfg *core.Config) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: engine.ApplicationConfigFrom(cfg),
			State: &gameState{
				width:       cfg.Application.Width,
				height:      cfg.Application.Height,
				withTerrain: cfg.Renderer.Backend == "vulkan" && cfg.Renderer.TerrainPass,
			},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")
	state := g.State.(*gameState)

	state.camera = components.NewCamera(int32(state.width), int32(state.height))
	state.camera.SetPosition(mgl32.Vec3{16, -8, 12})

	if state.withTerrain && g.Renderer != nil {
		indices, vertices := FlatTerrain(32)
		if err := g.Renderer.SetTerrainMesh(indices, vertices); err != nil {
			core.LogWarn("terrain upload failed: %s", err)
		}
	}
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	in := g.Input
	if in == nil {
		return nil
	}
	step := moveSpeed * float32(deltaTime)

	if in.IsKeyDown(core.KEY_W) {
		state.camera.MoveForward(step)
	}
	if in.IsKeyDown(core.KEY_S) {
		state.camera.MoveBackward(step)
	}
	if in.IsKeyDown(core.KEY_A) {
		state.camera.MoveLeft(step)
	}
	if in.IsKeyDown(core.KEY_D) {
		state.camera.MoveRight(step)
	}
	if in.IsKeyDown(core.KEY_SPACE) {
		state.camera.MoveUp(step)
	}
	if in.IsKeyDown(core.KEY_LSHIFT) {
		state.camera.MoveDown(step)
	}

	x, y := in.MousePosition()
	if px, py := in.PreviousMousePosition(); px != x || py != y {
		state.camera.Look(x, y)
	}

	if in.IsKeyDown(core.KEY_F1) && !in.WasKeyDown(core.KEY_F1) {
		p := state.camera.Position
		core.LogWith("x", p.X(), "y", p.Y(), "z", p.Z(),
			"yaw", state.camera.Direction.Yaw, "pitch", state.camera.Direction.Pitch).Info("camera")
	}
	return nil
}

func (g *TestGame) Render(packet *renderer.RenderPacket, deltaTime float64) error {
	state := g.State.(*gameState)
	packet.DeltaTime = deltaTime
	packet.View = state.camera.GetView()
	packet.SunDirection = SunDirection
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	if state.camera != nil {
		state.camera.Direction.Resize(int32(width), int32(height))
	}
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogDebug("TestGame Shutdown fn....")
	return nil
}

// FlatTerrain builds a size*size grid of upward-facing voxel tops at z = 0.
// size is capped at 31 cells, the largest coordinate the packed format holds.
func FlatTerrain(size uint8) ([]uint32, []vulkan.TerrainVertex) {
	if size > 31 {
		size = 31
	}
	var vertices []vulkan.TerrainVertex
	var indices []uint32
	for y := uint8(0); y < size; y++ {
		for x := uint8(0); x < size; x++ {
			base := uint32(len(vertices))
			vertices = append(vertices,
				vulkan.NewTerrainVertex(x, y, 0, 0, 0, vulkan.NormalUp),
				vulkan.NewTerrainVertex(x+1, y, 0, 1, 0, vulkan.NormalUp),
				vulkan.NewTerrainVertex(x+1, y+1, 0, 1, 1, vulkan.NormalUp),
				vulkan.NewTerrainVertex(x, y+1, 0, 0, 1, vulkan.NormalUp),
			)
			indices = append(indices, base, base+1, base+2, base, base+2, base+3)
		}
	}
	return indices, vertices
}
