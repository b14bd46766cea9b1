package gpu_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/gpu"
	"blast-engine/gpu/gputest"
)

var _ = Describe("CreateImageView", func() {
	It("creates a color view of the image", func() {
		dev := gputest.NewFakeDevice()

		image, err := dev.CreateImage(&vk.ImageCreateInfo{
			Extent: vk.Extent3D{Width: 4, Height: 4, Depth: 1},
		})
		Expect(err).NotTo(HaveOccurred())

		view, err := gpu.CreateImageView(dev, image, vk.FormatB8g8r8a8Srgb)
		Expect(err).NotTo(HaveOccurred())
		Expect(view).NotTo(Equal(vk.NullImageView))
		Expect(dev.ImageViewsCreated).To(Equal(1))
		Expect(gpu.ColorSubresource.LayerCount).To(Equal(uint32(1)))

		dev.DestroyImageView(view)
		dev.DestroyImage(image)
		Expect(dev.Leaks()).To(BeEmpty())
	})
})
