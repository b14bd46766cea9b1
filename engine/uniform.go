package engine

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/unsafer"
)

// UniformBufferObject is the per-frame data at descriptor binding 0. The
// layout matches the shader's column major float4x4 fields.
type UniformBufferObject struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

var uniformBufferSize = vk.DeviceSize(unsafe.Sizeof(UniformBufferObject{}))

func (u *UniformBufferObject) bytes() []byte {
	return unsafer.StructToBytes(u)
}
