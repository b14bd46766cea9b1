package engine

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/buffer"
	"blast-engine/gpu"
)

// MaxFramesInFlight is the number of frames the CPU may prepare while the GPU
// is still busy with earlier ones.
const MaxFramesInFlight = 2

// frame is everything one frame in flight owns. Nothing in it is shared with
// the other slots, so none of it needs locking.
type frame struct {
	commandBuffer vk.CommandBuffer

	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	inFlight       vk.Fence

	uniform *buffer.Buffer
}

func createFrames(dev gpu.Device, pool vk.CommandPool, count int) ([]frame, error) {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}

	commandBuffers, err := dev.AllocateCommandBuffers(&allocInfo)
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate command buffers")
	}

	frames := make([]frame, count)
	for i := range frames {
		frames[i] = frame{
			commandBuffer:  commandBuffers[i],
			imageAvailable: vk.Semaphore(vk.NullHandle),
			renderFinished: vk.Semaphore(vk.NullHandle),
			inFlight:       vk.NullFence,
		}
	}

	for i := range frames {
		f := &frames[i]

		if f.imageAvailable, err = dev.CreateSemaphore(); err != nil {
			destroyFrames(dev, frames)
			return nil, errors.Wrapf(err, "image available semaphore %d", i)
		}
		if f.renderFinished, err = dev.CreateSemaphore(); err != nil {
			destroyFrames(dev, frames)
			return nil, errors.Wrapf(err, "render finished semaphore %d", i)
		}

		// Signaled so that the first wait on every slot returns at once.
		if f.inFlight, err = dev.CreateFence(true); err != nil {
			destroyFrames(dev, frames)
			return nil, errors.Wrapf(err, "in flight fence %d", i)
		}

		f.uniform = buffer.New(dev, uniformBufferSize)
		err = f.uniform.Create(
			vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
			vk.SharingModeExclusive,
		)
		if err != nil {
			destroyFrames(dev, frames)
			return nil, errors.Wrapf(err, "uniform buffer %d", i)
		}
	}

	return frames, nil
}

// destroyFrames releases the sync objects and uniform buffers. The command
// buffers go away with their pool.
func destroyFrames(dev gpu.Device, frames []frame) {
	for i := range frames {
		f := &frames[i]

		if f.uniform != nil {
			f.uniform.Clean()
		}
		if f.inFlight != vk.NullFence {
			dev.DestroyFence(f.inFlight)
		}
		if f.renderFinished != vk.Semaphore(vk.NullHandle) {
			dev.DestroySemaphore(f.renderFinished)
		}
		if f.imageAvailable != vk.Semaphore(vk.NullHandle) {
			dev.DestroySemaphore(f.imageAvailable)
		}
	}
}

func uniformBuffers(frames []frame) []*buffer.Buffer {
	buffers := make([]*buffer.Buffer, 0, len(frames))
	for i := range frames {
		buffers = append(buffers, frames[i].uniform)
	}
	return buffers
}
