//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/target"
)

type Build mg.Namespace

const shaderDir = "assets/shaders"

// source file -> binary the engine loads
var shaders = map[string]string{
	"skybox.vert":   "skybox_vs.spv",
	"skybox.frag":   "skybox_fs.spv",
	"terrain.vert":  "terrain_vs.spv",
	"terrain.frag":  "terrain_fs.spv",
	"gradient.comp": "gradient.spv",
}

// Compiles the GLSL sources in assets/shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the shaders and builds the glacian binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/glacian", "."), withStream())
	return err
}

func buildShaders() error {
	for src, out := range shaders {
		srcPath := filepath.Join(shaderDir, src)
		outPath := filepath.Join(shaderDir, out)
		stale, err := target.Path(outPath, srcPath)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", outPath, err)
		}
		if !stale {
			continue
		}
		// write next to the target and rename, so the hot-reload watcher never sees a partial file
		tmp := outPath + ".tmp"
		if _, err := executeCmd("glslc", withArgs(srcPath, "-o", tmp), withStream()); err != nil {
			return err
		}
		if err := os.Rename(tmp, outPath); err != nil {
			return fmt.Errorf("failed to move %s into place: %w", outPath, err)
		}
	}
	return nil
}
