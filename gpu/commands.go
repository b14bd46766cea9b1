package gpu

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// RunSingleTime records commands into a freshly allocated primary command
// buffer, submits it to queue and waits for the queue to go idle before
// freeing the buffer. It is meant for setup-time transfers only.
func RunSingleTime(
	dev Device,
	pool vk.CommandPool,
	queue vk.Queue,
	record func(cb vk.CommandBuffer),
) error {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		Level:              vk.CommandBufferLevelPrimary,
		CommandPool:        pool,
		CommandBufferCount: 1,
	}

	commandBuffers, err := dev.AllocateCommandBuffers(&allocInfo)
	if err != nil {
		return errors.Wrap(err, "allocate single time command buffer")
	}
	defer dev.FreeCommandBuffers(pool, commandBuffers)

	commandBuffer := commandBuffers[0]

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := dev.BeginCommandBuffer(commandBuffer, &beginInfo); err != nil {
		return errors.Wrap(err, "begin single time command buffer")
	}

	record(commandBuffer)

	if err := dev.EndCommandBuffer(commandBuffer); err != nil {
		return errors.Wrap(err, "end single time command buffer")
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    commandBuffers,
	}

	if err := dev.QueueSubmit(queue, []vk.SubmitInfo{submitInfo}, vk.NullFence); err != nil {
		return errors.Wrap(err, "submit single time command buffer")
	}

	if err := dev.QueueWaitIdle(queue); err != nil {
		return errors.Wrap(err, "wait for queue idle")
	}

	return nil
}
