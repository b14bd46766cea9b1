package gpu

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ErrNoSuitableMemoryType is returned when no memory type satisfies both the
// resource's type filter and the requested property flags.
var ErrNoSuitableMemoryType = errors.New("failed to find suitable memory type")

// FindMemoryType returns the lowest index in types which is allowed by the
// typeFilter bit mask and whose flags contain all of properties.
func FindMemoryType(
	types []MemoryType,
	typeFilter uint32,
	properties vk.MemoryPropertyFlags,
) (uint32, error) {
	for i, memType := range types {
		if i >= 32 {
			break
		}

		if typeFilter&(1<<uint32(i)) == 0 {
			continue
		}

		if memType.PropertyFlags&properties != properties {
			continue
		}

		return uint32(i), nil
	}

	return 0, errors.Wrapf(
		ErrNoSuitableMemoryType,
		"filter %#b, properties %#x",
		typeFilter,
		properties,
	)
}

// AllocateBufferMemory allocates memory with the given properties for buffer
// and binds it at offset zero.
func AllocateBufferMemory(
	dev Device,
	buffer vk.Buffer,
	properties vk.MemoryPropertyFlags,
) (vk.DeviceMemory, error) {
	memory, err := allocate(dev, dev.BufferMemoryRequirements(buffer), properties)
	if err != nil {
		return vk.NullDeviceMemory, err
	}

	if err := dev.BindBufferMemory(buffer, memory); err != nil {
		dev.FreeMemory(memory)
		return vk.NullDeviceMemory, errors.Wrap(err, "bind buffer memory")
	}

	return memory, nil
}

// AllocateImageMemory allocates memory with the given properties for image
// and binds it at offset zero.
func AllocateImageMemory(
	dev Device,
	image vk.Image,
	properties vk.MemoryPropertyFlags,
) (vk.DeviceMemory, error) {
	memory, err := allocate(dev, dev.ImageMemoryRequirements(image), properties)
	if err != nil {
		return vk.NullDeviceMemory, err
	}

	if err := dev.BindImageMemory(image, memory); err != nil {
		dev.FreeMemory(memory)
		return vk.NullDeviceMemory, errors.Wrap(err, "bind image memory")
	}

	return memory, nil
}

func allocate(
	dev Device,
	requirements vk.MemoryRequirements,
	properties vk.MemoryPropertyFlags,
) (vk.DeviceMemory, error) {
	memTypeIndex, err := FindMemoryType(
		dev.MemoryTypes(),
		requirements.MemoryTypeBits,
		properties,
	)
	if err != nil {
		return vk.NullDeviceMemory, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memTypeIndex,
	}

	memory, err := dev.AllocateMemory(&allocInfo)
	if err != nil {
		return vk.NullDeviceMemory, errors.Wrap(err, "allocate memory")
	}

	return memory, nil
}
