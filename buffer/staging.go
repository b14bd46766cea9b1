package buffer

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/gpu"
)

// Staged creates a device local buffer with usage holding data. data goes
// through a host visible staging buffer which is destroyed before returning.
func Staged(
	dev gpu.Device,
	pool vk.CommandPool,
	queue vk.Queue,
	usage vk.BufferUsageFlags,
	data []byte,
) (*Buffer, error) {
	size := vk.DeviceSize(len(data))
	if size == 0 {
		return nil, errors.New("no data to stage")
	}

	staging := New(dev, size)
	err := staging.Create(
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.SharingModeExclusive,
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating the staging buffer")
	}

	if err := staging.Map(data); err != nil {
		staging.Clean()
		return nil, errors.Wrap(err, "filling the staging buffer")
	}

	target := New(dev, size, WithMemoryProperties(DeviceLocal))
	err = target.Create(
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)|usage,
		vk.SharingModeExclusive,
	)
	if err != nil {
		staging.Clean()
		return nil, errors.Wrap(err, "creating the device local buffer")
	}

	if err := target.CopyFrom(staging, pool, queue); err != nil {
		target.Clean()
		return nil, err
	}

	return target, nil
}
