// Package shaders loads the compiled SPIR-V module holding both the vertex
// and the fragment stage.
package shaders

import (
	"encoding/binary"
	"os"

	"github.com/pkg/errors"

	"blast-engine/unsafer"
)

//go:generate ./compile.sh

// Entry points of the two stages in shader.slang.
const (
	VertexEntry   = "vertexMain"
	FragmentEntry = "fragmentMain"
)

// Magic is the first word of every SPIR-V module.
const Magic uint32 = 0x07230203

// ErrInvalidSPIRV is returned for data which cannot be a SPIR-V module.
var ErrInvalidSPIRV = errors.New("invalid SPIR-V")

// Load reads and validates the module at path.
func Load(path string) ([]uint32, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading shader")
	}

	words, err := Parse(code)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", path)
	}

	return words, nil
}

// Parse checks the magic number and word alignment of code and returns it as
// words, ready for shader module creation.
func Parse(code []byte) ([]uint32, error) {
	if len(code) < 4 || len(code)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidSPIRV, "size %d is not a whole number of words", len(code))
	}

	if binary.LittleEndian.Uint32(code) != Magic {
		return nil, errors.Wrap(ErrInvalidSPIRV, "bad magic number")
	}

	return unsafer.SliceBytesToUint32(code), nil
}
