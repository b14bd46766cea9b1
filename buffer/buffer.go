// Package buffer owns GPU buffers, each bound to a dedicated memory allocation.
package buffer

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/gpu"
	"blast-engine/unsafer"
)

// ErrReleased is returned by operations on a buffer after Clean or Move.
var ErrReleased = errors.New("buffer has been released")

// HostVisible is the memory a buffer gets unless told otherwise. The host can
// map it and writes need no explicit flush.
const HostVisible = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) |
	vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)

// DeviceLocal is memory only the GPU touches. Fill it with CopyFrom.
const DeviceLocal = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)

// noCopy makes `go vet` flag buffers copied by value. Two copies would free
// the same handles twice.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Buffer is a GPU buffer of a fixed size with exactly one memory allocation.
//
// Buffers are move-only: pass *Buffer around and transfer ownership with Move.
// The owner releases the GPU objects with Clean.
type Buffer struct {
	noCopy noCopy

	dev        gpu.Device
	size       vk.DeviceSize
	properties vk.MemoryPropertyFlags

	buffer vk.Buffer
	memory vk.DeviceMemory
}

// Option tweaks a buffer before Create.
type Option func(*Buffer)

// WithMemoryProperties selects the memory properties the backing allocation
// must have.
func WithMemoryProperties(properties vk.MemoryPropertyFlags) Option {
	return func(b *Buffer) {
		b.properties = properties
	}
}

// New declares a buffer of size bytes on dev. Nothing is allocated until Create.
func New(dev gpu.Device, size vk.DeviceSize, opts ...Option) *Buffer {
	b := &Buffer{
		dev:        dev,
		size:       size,
		properties: HostVisible,
		buffer:     vk.NullBuffer,
		memory:     vk.NullDeviceMemory,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Create allocates the buffer for usage and binds freshly allocated memory to it.
func (b *Buffer) Create(usage vk.BufferUsageFlags, sharing vk.SharingMode) error {
	if b.dev == nil {
		return ErrReleased
	}
	if b.buffer != vk.NullBuffer {
		return errors.New("buffer already created")
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        b.size,
		Usage:       usage,
		SharingMode: sharing,
	}

	buffer, err := b.dev.CreateBuffer(&bufferInfo)
	if err != nil {
		return errors.Wrapf(err, "buffer of %d bytes", b.size)
	}

	memory, err := gpu.AllocateBufferMemory(b.dev, buffer, b.properties)
	if err != nil {
		b.dev.DestroyBuffer(buffer)
		return errors.Wrapf(err, "memory for buffer of %d bytes", b.size)
	}

	b.buffer = buffer
	b.memory = memory
	return nil
}

// Map copies data to the start of the buffer memory. The buffer must live in
// host visible memory and data must not be larger than the buffer.
func (b *Buffer) Map(data []byte) error {
	if err := b.usable(); err != nil {
		return err
	}

	if vk.DeviceSize(len(data)) > b.size {
		return errors.Errorf("mapping %d bytes into a buffer of %d", len(data), b.size)
	}

	pData, err := b.dev.MapMemory(b.memory, 0, b.size)
	if err != nil {
		return err
	}
	defer b.dev.UnmapMemory(b.memory)

	vk.Memcopy(pData, data)
	return nil
}

// Read copies the buffer contents into dst and returns how many bytes were
// copied. It is the inverse of Map and needs host visible memory too.
func (b *Buffer) Read(dst []byte) (int, error) {
	if err := b.usable(); err != nil {
		return 0, err
	}

	pData, err := b.dev.MapMemory(b.memory, 0, b.size)
	if err != nil {
		return 0, err
	}
	defer b.dev.UnmapMemory(b.memory)

	src := unsafe.Slice((*byte)(pData), b.size)
	return copy(dst, src), nil
}

// CopyFrom fills the buffer with the contents of staging on the GPU and
// destroys staging afterwards. The copy is submitted to queue and waited for.
func (b *Buffer) CopyFrom(staging *Buffer, pool vk.CommandPool, queue vk.Queue) error {
	if err := b.usable(); err != nil {
		return err
	}
	if err := staging.usable(); err != nil {
		return errors.Wrap(err, "staging")
	}
	defer staging.Clean()

	if staging.size > b.size {
		return errors.Errorf("staging buffer of %d bytes is larger than %d", staging.size, b.size)
	}

	copyRegion := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      staging.size,
	}

	err := gpu.RunSingleTime(b.dev, pool, queue, func(cb vk.CommandBuffer) {
		b.dev.CmdCopyBuffer(cb, staging.buffer, b.buffer, []vk.BufferCopy{copyRegion})
	})
	return errors.Wrap(err, "copy buffer")
}

// Move transfers ownership of the GPU objects to a new Buffer. The receiver is
// left released.
func (b *Buffer) Move() *Buffer {
	moved := &Buffer{
		dev:        b.dev,
		size:       b.size,
		properties: b.properties,
		buffer:     b.buffer,
		memory:     b.memory,
	}

	b.release()
	return moved
}

// Clean destroys the buffer and frees its memory. Calling it again is a no-op.
func (b *Buffer) Clean() {
	if b.dev == nil {
		return
	}

	if b.buffer != vk.NullBuffer {
		b.dev.DestroyBuffer(b.buffer)
	}
	if b.memory != vk.NullDeviceMemory {
		b.dev.FreeMemory(b.memory)
	}

	b.release()
}

func (b *Buffer) release() {
	b.dev = nil
	b.buffer = vk.NullBuffer
	b.memory = vk.NullDeviceMemory
}

func (b *Buffer) usable() error {
	if b.dev == nil {
		return ErrReleased
	}
	if b.buffer == vk.NullBuffer {
		return errors.New("buffer not created")
	}
	return nil
}

// Handle returns the Vulkan buffer.
func (b *Buffer) Handle() vk.Buffer {
	return b.buffer
}

// Memory returns the memory bound to the buffer.
func (b *Buffer) Memory() vk.DeviceMemory {
	return b.memory
}

// Size is the declared size in bytes.
func (b *Buffer) Size() vk.DeviceSize {
	return b.size
}

// Upload copies the elements of data into b.
func Upload[T any](b *Buffer, data []T) error {
	return b.Map(unsafer.SliceToBytes(data))
}
