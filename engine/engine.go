package engine

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/glacian/engine/assets"
	"github.com/spaghettifunk/glacian/engine/core"
	"github.com/spaghettifunk/glacian/engine/platform"
	"github.com/spaghettifunk/glacian/engine/renderer"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// metrics are logged once every this many seconds
const metricsInterval = 5.0

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *core.Config

	quit        atomic.Bool
	isSuspended bool

	bus          *core.EventBus
	input        *core.Input
	platform     *platform.Platform
	renderer     *renderer.Renderer
	assetManager *assets.AssetManager

	clock   *core.Clock
	metrics *core.Metrics

	width, height uint32
	pendingResize bool
	lastTime      float64
}

func New(g *Game, cfg *core.Config) (*Engine, error) {
	if g == nil || g.FnUpdate == nil || g.FnRender == nil {
		return nil, errors.New("game must provide update and render functions")
	}
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = ApplicationConfigFrom(cfg)
	}
	bus := core.NewEventBus()
	input := core.NewInput(bus)

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		bus:          bus,
		input:        input,
		platform:     platform.New(bus, input),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	appConfig := e.gameInstance.ApplicationConfig
	core.SetLogLevel(appConfig.LogLevel)

	e.bus.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.bus.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.bus.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	if err := e.platform.Startup(appConfig.Name,
		appConfig.StartPosX,
		appConfig.StartPosY,
		appConfig.StartWidth,
		appConfig.StartHeight); err != nil {
		return err
	}
	// the framebuffer can differ from the requested window size on HiDPI displays
	e.width, e.height = e.platform.FramebufferSize()

	r, err := renderer.New(e.config, e.platform)
	if err != nil {
		return err
	}
	if err := r.Initialize(appConfig.Name, e.width, e.height); err != nil {
		return err
	}
	e.renderer = r

	if e.config.Renderer.HotReload && e.config.Renderer.Backend == renderer.Vulkan.String() {
		am, err := assets.NewAssetManager()
		if err != nil {
			return err
		}
		if err := am.Initialize(e.config.Renderer.ShaderDir); err != nil {
			core.LogWarn("shader hot reload disabled: %s", err)
			_ = am.Shutdown()
		} else {
			e.assetManager = am
		}
	}

	e.gameInstance.Input = e.input
	e.gameInstance.Events = e.bus
	e.gameInstance.Renderer = e.renderer
	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives the frame loop until the window closes, Quit is called or a
// fatal error occurs. The returned error is that fatal error.
func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var sinceReport float64
	for !e.quit.Load() {
		e.platform.PumpMessages()
		if e.platform.ShouldClose() {
			break
		}
		if err := e.applyResize(); err != nil {
			return err
		}
		if e.isSuspended {
			e.platform.WaitMessages()
			continue
		}
		e.reloadShaders()

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.AbsoluteTime()

		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogError("Game update failed, shutting down: %s", err)
			return err
		}

		packet := &renderer.RenderPacket{DeltaTime: delta}
		if err := e.gameInstance.FnRender(packet, delta); err != nil {
			core.LogError("Game render failed, shutting down: %s", err)
			return err
		}

		if err := e.renderer.DrawFrame(packet); err != nil {
			if core.IsFatal(err) {
				return err
			}
			// out-of-date swapchains are rebuilt by the next frame
			core.LogWarn("frame dropped: %s", err)
		}

		frameElapsed := e.platform.AbsoluteTime() - frameStartTime
		e.metrics.Update(frameElapsed)
		sinceReport += delta
		if sinceReport >= metricsInterval {
			fps, ms := e.metrics.Frame()
			core.LogWith("fps", fps, "frame_ms", ms).Debug("frame metrics")
			sinceReport = 0
		}

		e.input.Update()
		e.lastTime = currentTime
	}
	return nil
}

// Quit asks the loop to stop after the current frame. Safe from any goroutine.
func (e *Engine) Quit() {
	e.quit.Store(true)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var errs error
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	if e.assetManager != nil {
		if err := e.assetManager.Shutdown(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	if e.renderer != nil {
		if err := e.renderer.Shutdown(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	e.bus.Shutdown()
	if err := e.platform.Shutdown(); err != nil {
		errs = errors.CombineErrors(errs, err)
	}
	return errs
}

func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) applyResize() error {
	if !e.pendingResize {
		return nil
	}
	e.pendingResize = false
	if err := e.renderer.OnResize(e.width, e.height); err != nil {
		core.LogError(err.Error())
		if core.IsFatal(err) {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		return e.gameInstance.FnOnResize(e.width, e.height)
	}
	return nil
}

// reloadShaders rebuilds the pipelines once per batch of shader changes.
func (e *Engine) reloadShaders() {
	if e.assetManager == nil {
		return
	}
	changed := e.assetManager.Drain()
	if len(changed) == 0 {
		return
	}
	core.LogInfo("%d shader(s) changed, reloading", len(changed))
	if err := e.renderer.ReloadShaders(); err != nil {
		core.LogError("shader reload failed, keeping current pipelines: %s", err)
	}
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Quit()
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if core.KeyCode(data.Data.U16[0]) == core.KEY_ESCAPE {
		e.bus.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	width, height := data.Data.U32[0], data.Data.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
	} else if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	// the renderer sees zero sizes too so it can suspend itself
	e.pendingResize = true
	return false
}
