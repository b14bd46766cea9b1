package gpu

import (
	vk "github.com/vulkan-go/vulkan"
)

// ColorSubresource is the single mip level and layer of a color image.
var ColorSubresource = vk.ImageSubresourceRange{
	AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
	BaseMipLevel:   0,
	LevelCount:     1,
	BaseArrayLayer: 0,
	LayerCount:     1,
}

// CreateImageView creates a 2D color view of image. Swapchain images and
// textures are both viewed through it.
func CreateImageView(dev Device, image vk.Image, format vk.Format) (vk.ImageView, error) {
	createInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: ColorSubresource,
	}

	return dev.CreateImageView(&createInfo)
}
