package vulkan

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/glacian/engine/assets"
	"github.com/spaghettifunk/glacian/engine/core"
)

// ShaderSet maps a shader file name to its SPIR-V words.
type ShaderSet map[string][]uint32

// Get returns the named binary or core.ErrShaderLoad when it was never loaded.
func (s ShaderSet) Get(name string) ([]uint32, error) {
	code, ok := s[name]
	if !ok || len(code) == 0 {
		return nil, errors.Wrapf(core.ErrShaderLoad, "%s not loaded", name)
	}
	return code, nil
}

// RequiredShaders lists the binaries the engine needs for the given passes.
func RequiredShaders(cfg EngineConfig) []string {
	names := []string{ShaderSkyVertex, ShaderSkyFragment}
	if cfg.ComputeBackground {
		names = append(names, ShaderBackground)
	}
	if cfg.TerrainPass {
		names = append(names, ShaderTerrainVertex, ShaderTerrainFragment)
	}
	return names
}

func LoadShaderSet(ctx context.Context, dir string, names ...string) (ShaderSet, error) {
	code, err := assets.LoadShaders(ctx, dir, names...)
	if err != nil {
		return nil, err
	}
	return ShaderSet(code), nil
}

func NewShaderModule(dev Device, code []uint32) (ShaderModule, error) {
	module, err := dev.CreateShaderModule(code)
	if err != nil {
		err = errors.Wrap(err, "failed to create shader module")
		core.LogError(err.Error())
		return 0, err
	}
	return module, nil
}
