package swapchain

import (
	"cmp"
	"math"

	vk "github.com/vulkan-go/vulkan"
)

// ChooseSurfaceFormat prefers 8 bit BGRA sRGB in the sRGB non-linear color
// space and settles for the first available format otherwise.
func ChooseSurfaceFormat(availableFormats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range availableFormats {
		if format.Format == vk.FormatB8g8r8a8Srgb &&
			format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}

	return availableFormats[0]
}

// ChoosePresentMode prefers mailbox and falls back to FIFO, which every
// device supports.
func ChoosePresentMode(available []vk.PresentMode) vk.PresentMode {
	for _, mode := range available {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}

	return vk.PresentModeFifo
}

// ChooseExtent returns the surface's current extent unless the surface lets
// the swapchain decide, in which case the framebuffer size is clamped to the
// supported range.
func ChooseExtent(capabilities vk.SurfaceCapabilities, width, height int) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}

	return vk.Extent2D{
		Width: clamp(
			uint32(max(width, 0)),
			capabilities.MinImageExtent.Width,
			capabilities.MaxImageExtent.Width,
		),
		Height: clamp(
			uint32(max(height, 0)),
			capabilities.MinImageExtent.Height,
			capabilities.MaxImageExtent.Height,
		),
	}
}

// ImageCount asks for one image more than the minimum, without going over the
// maximum. A maximum of zero means there is none.
func ImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	return imageCount
}

func clamp[T cmp.Ordered](val, min, max T) T {
	if val < min {
		val = min
	}
	if val > max {
		val = max
	}
	return val
}
