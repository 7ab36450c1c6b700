package assets

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/glacian/engine/core"
)

func spirvBytes(words ...uint32) []byte {
	header := []uint32{SpirvMagic, 0x00010600, 0, 8, 0}
	all := append(header, words...)
	b := make([]byte, len(all)*4)
	for i, w := range all {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}

func TestBytesToBytecode(t *testing.T) {
	code, err := BytesToBytecode(spirvBytes(0xdeadbeef))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(code) != 6 || code[0] != SpirvMagic || code[5] != 0xdeadbeef {
		t.Fatalf("unexpected words %x", code)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unaligned", append(spirvBytes(), 0x01)},
		{"bad magic", func() []byte { b := spirvBytes(); b[0] = 0; return b }()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := BytesToBytecode(tc.data); !errors.Is(err, core.ErrShaderLoad) {
				t.Fatalf("expected ErrShaderLoad, got %v", err)
			}
		})
	}
}

func TestLoadShaders(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.spv", "b.spv"} {
		if err := os.WriteFile(filepath.Join(dir, name), spirvBytes(1, 2), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	shaders, err := LoadShaders(context.Background(), dir, "a.spv", "b.spv")
	if err != nil {
		t.Fatalf("LoadShaders: %v", err)
	}
	if len(shaders) != 2 || len(shaders["b.spv"]) != 7 {
		t.Fatalf("unexpected result %v", shaders)
	}

	_, err = LoadShaders(context.Background(), dir, "a.spv", "missing.spv")
	if !errors.Is(err, core.ErrShaderLoad) {
		t.Fatalf("expected ErrShaderLoad for a missing file, got %v", err)
	}
}

func TestAssetManagerReportsShaderChanges(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "skybox_vs.spv")
	if err := os.WriteFile(existing, spirvBytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	am, err := NewAssetManager()
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Initialize(dir); err != nil {
		t.Fatal(err)
	}
	defer am.Shutdown()

	if info, ok := am.Known(existing); !ok || info.Type != ResourceTypeShader {
		t.Fatalf("existing shader not indexed: %+v %v", info, ok)
	}
	if _, ok := am.Known(filepath.Join(dir, "notes.txt")); ok {
		t.Fatal("non-shader file indexed")
	}
	res, err := am.LoadAsset(existing)
	if err != nil || res.Type != ResourceTypeShader {
		t.Fatalf("LoadAsset: %v", err)
	}

	changed := filepath.Join(dir, "gradient.spv")
	if err := os.WriteFile(changed, spirvBytes(3), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-am.Changes():
		if p != filepath.Clean(changed) {
			t.Fatalf("unexpected change %s", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestShutdownAfterFailedInitialize(t *testing.T) {
	am, err := NewAssetManager()
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Initialize(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected Initialize to fail for a missing directory")
	}

	start := time.Now()
	if err := am.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Shutdown waited %s for a watcher goroutine that never ran", elapsed)
	}
	if err := am.fsnotify.Add(t.TempDir()); !errors.Is(err, fsnotify.ErrClosed) {
		t.Errorf("watcher still open after Shutdown: Add returned %v", err)
	}
	if err := am.Shutdown(); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}
