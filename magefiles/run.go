//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the engine with the Vulkan backend.
func (Run) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the engine on the software backend and captures a frame to capture.png.
func (Run) Software() error {
	fmt.Println("Run engine (software)...")
	_, err := executeCmd("go", withArgs("run", "."), withEnv("GLACIAN_BACKEND=software"), withStream())
	return err
}
