/*
Glacian opens a window and renders a procedural sky, and optionally voxel
terrain, with the backend selected in engine.toml.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/glacian/engine"
	"github.com/spaghettifunk/glacian/engine/core"
	"github.com/spaghettifunk/glacian/testbed"
)

func main() {
	cfg, err := core.LoadConfig(core.DefaultConfigPath)
	if err != nil {
		core.LogFatal("failed to load configuration: %s", err)
	}

	tb := testbed.NewTestGame(cfg)

	e, err := engine.New(tb.Game, cfg)
	if err != nil {
		core.LogFatal("%s", err)
	}

	if err := e.Initialize(); err != nil {
		core.LogError("initialization failed: %+v", err)
		_ = e.Shutdown()
		os.Exit(1)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		e.Quit()
	}()

	runErr := e.Run()
	if runErr != nil {
		core.LogError("engine stopped: %+v", runErr)
	}
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
		os.Exit(1)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
