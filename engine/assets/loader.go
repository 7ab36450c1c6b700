package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/glacian/engine/core"
)

type ResourceType int

const (
	ResourceTypeNone ResourceType = iota
	// compiled SPIR-V
	ResourceTypeShader
	// GLSL that glslc turns into a ResourceTypeShader
	ResourceTypeShaderSource
)

// SpirvMagic is the first word of every SPIR-V module.
const SpirvMagic uint32 = 0x07230203

type Resource struct {
	Name     string
	FullPath string
	Type     ResourceType
	DataSize uint64
	Data     interface{}
}

type Loader interface {
	Load(path string) (*Resource, error)
	Unload(*Resource) error
}

// ShaderLoader reads a SPIR-V binary into 32-bit words.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(core.ErrShaderLoad, "%s: %v", path, err)
		core.LogError(err.Error())
		return nil, err
	}
	code, err := BytesToBytecode(data)
	if err != nil {
		err = errors.Wrapf(err, "%s", path)
		core.LogError(err.Error())
		return nil, err
	}
	return &Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     ResourceTypeShader,
		DataSize: uint64(len(data)),
		Data:     code,
	}, nil
}

func (sl *ShaderLoader) Unload(res *Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}

// BytesToBytecode decodes a little-endian SPIR-V module and checks its header.
func BytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) < 20 || len(b)%4 != 0 {
		return nil, errors.Wrapf(core.ErrShaderLoad, "invalid spir-v size %d", len(b))
	}
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if byteCode[0] != SpirvMagic {
		return nil, errors.Wrapf(core.ErrShaderLoad, "bad spir-v magic 0x%08x", byteCode[0])
	}
	return byteCode, nil
}
