package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv(EnvBackend, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Application.Width != 800 || cfg.Application.Height != 600 {
		t.Fatalf("unexpected default size %dx%d", cfg.Application.Width, cfg.Application.Height)
	}
	if cfg.Renderer.Backend != "vulkan" || cfg.Renderer.PresentMode != "fifo" {
		t.Fatalf("unexpected renderer defaults %+v", cfg.Renderer)
	}
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	content := `
[application]
name = "terrain"
width = 1280
height = 720

[renderer]
present_mode = "MAILBOX"
compute_background = true
shader_dir = "shaders"

[software]
capture_path = "out.png"
capture_frames = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvBackend, "software")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Application.Name != "terrain" || cfg.Application.Width != 1280 {
		t.Fatalf("application section not decoded: %+v", cfg.Application)
	}
	if cfg.Renderer.Backend != "software" {
		t.Fatalf("env override ignored, backend=%s", cfg.Renderer.Backend)
	}
	if cfg.Renderer.PresentMode != "mailbox" || !cfg.Renderer.ComputeBackground {
		t.Fatalf("renderer section not decoded: %+v", cfg.Renderer)
	}
	if cfg.Application.LogLevel != "warn" {
		t.Fatalf("log level override ignored: %s", cfg.Application.LogLevel)
	}
	if cfg.Software.CaptureFrames != 3 || cfg.Software.CapturePath != "out.png" {
		t.Fatalf("software section not decoded: %+v", cfg.Software)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Renderer.Backend = "metal"
	if err := cfg.Validate(); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Renderer.PresentMode = "immediate"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Application.Height = 0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(errors.Wrap(ErrFenceTimeout, "frame 3")) {
		t.Fatal("fence timeout should be fatal")
	}
	if IsFatal(ErrSwapchainOutOfDate) {
		t.Fatal("out of date swapchain is recoverable")
	}
}
