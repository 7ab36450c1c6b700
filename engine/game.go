package engine

import (
	"github.com/spaghettifunk/glacian/engine/core"
	"github.com/spaghettifunk/glacian/engine/renderer"
)

// Game is the contract between the engine and the application. The engine
// fills Input and Renderer before FnInitialize runs.
type Game struct {
	ApplicationConfig *ApplicationConfig
	Input             *core.Input
	Events            *core.EventBus
	Renderer          *renderer.Renderer
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error
type Render func(packet *renderer.RenderPacket, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
