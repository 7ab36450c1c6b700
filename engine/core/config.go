package core

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	EnvConfigPath = "GLACIAN_CONFIG"
	EnvBackend    = "GLACIAN_BACKEND"
	EnvLogLevel   = "GLACIAN_LOG_LEVEL"

	DefaultConfigPath = "engine.toml"
)

type ApplicationConfig struct {
	Name     string `toml:"name"`
	PosX     uint32 `toml:"pos_x"`
	PosY     uint32 `toml:"pos_y"`
	Width    uint32 `toml:"width"`
	Height   uint32 `toml:"height"`
	LogLevel string `toml:"log_level"`
}

type RendererConfig struct {
	// vulkan or software
	Backend string `toml:"backend"`
	// fifo or mailbox
	PresentMode       string `toml:"present_mode"`
	Debug             bool   `toml:"debug"`
	ComputeBackground bool   `toml:"compute_background"`
	TerrainPass       bool   `toml:"terrain_pass"`
	ShaderDir         string `toml:"shader_dir"`
	HotReload         bool   `toml:"hot_reload"`
}

type SoftwareConfig struct {
	CapturePath   string `toml:"capture_path"`
	CaptureFrames uint64 `toml:"capture_frames"`
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
	Software    SoftwareConfig    `toml:"software"`
}

func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:     "Glacian",
			PosX:     100,
			PosY:     100,
			Width:    800,
			Height:   600,
			LogLevel: "debug",
		},
		Renderer: RendererConfig{
			Backend:     "vulkan",
			PresentMode: "fifo",
			ShaderDir:   "./assets/shaders",
			HotReload:   true,
		},
	}
}

// LoadConfig reads an optional .env file, resolves the config path from GLACIAN_CONFIG
// (falling back to path) and decodes it over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		LogWarn("failed to read .env: %s", err)
	}

	if p := os.Getenv(EnvConfigPath); p != "" {
		path = p
	}
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s", path)
		}
	case os.IsNotExist(err):
		LogInfo("config file %s not found, using defaults", path)
	default:
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBackend); v != "" {
		c.Renderer.Backend = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Application.LogLevel = v
	}
}

func (c *Config) Validate() error {
	c.Renderer.Backend = strings.ToLower(c.Renderer.Backend)
	c.Renderer.PresentMode = strings.ToLower(c.Renderer.PresentMode)

	switch c.Renderer.Backend {
	case "vulkan", "software":
	default:
		return errors.Wrapf(ErrUnknownBackend, "backend `%s`", c.Renderer.Backend)
	}
	switch c.Renderer.PresentMode {
	case "fifo", "mailbox":
	default:
		return errors.Wrapf(ErrInvalidConfig, "present_mode `%s` (expected fifo or mailbox)", c.Renderer.PresentMode)
	}
	if c.Application.Width == 0 || c.Application.Height == 0 {
		return errors.Wrapf(ErrInvalidConfig, "window size %dx%d", c.Application.Width, c.Application.Height)
	}
	if c.Renderer.ShaderDir == "" {
		return errors.Wrap(ErrInvalidConfig, "shader_dir is empty")
	}
	return nil
}
