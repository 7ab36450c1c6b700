package engine

import "github.com/spaghettifunk/glacian/engine/core"

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32
	// Window starting position y axis, if applicable.
	StartPosY uint32
	// Window starting width, if applicable.
	StartWidth uint32
	// Window starting height, if applicable.
	StartHeight uint32
	// The application name used in windowing, if applicable.
	Name     string
	LogLevel string
}

func ApplicationConfigFrom(cfg *core.Config) *ApplicationConfig {
	return &ApplicationConfig{
		StartPosX:   cfg.Application.PosX,
		StartPosY:   cfg.Application.PosY,
		StartWidth:  cfg.Application.Width,
		StartHeight: cfg.Application.Height,
		Name:        cfg.Application.Name,
		LogLevel:    cfg.Application.LogLevel,
	}
}
