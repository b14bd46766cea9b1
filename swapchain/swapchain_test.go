package swapchain_test

import (
	"math"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/gpu/gputest"
	"blast-engine/optional"
	"blast-engine/queues"
	"blast-engine/swapchain"
)

// fakeWindow reports sizes from a queue, one per FramebufferSize call, and
// keeps the last one once the queue is drained.
type fakeWindow struct {
	sizes [][2]int
	waits int
}

func (w *fakeWindow) FramebufferSize() (int, int) {
	size := w.sizes[0]
	if len(w.sizes) > 1 {
		w.sizes = w.sizes[1:]
	}
	return size[0], size[1]
}

func (w *fakeWindow) WaitEvents() {
	w.waits++
}

var families = queues.FamilyIndices{
	Graphics: optional.Of[uint32](0),
	Present:  optional.Of[uint32](0),
}

var _ = Describe("Swapchain", func() {
	var (
		dev        *gputest.FakeDevice
		window     *fakeWindow
		sc         *swapchain.Swapchain
		renderPass vk.RenderPass
		log        *logrus.Logger
	)

	BeforeEach(func() {
		dev = gputest.NewFakeDevice()
		window = &fakeWindow{sizes: [][2]int{{800, 600}}}
		log, _ = test.NewNullLogger()
		sc = swapchain.New(dev, window, families, log)

		var err error
		renderPass, err = dev.CreateRenderPass(&vk.RenderPassCreateInfo{})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		sc.Destroy()
		dev.DestroyRenderPass(renderPass)

		Expect(dev.Violations).To(BeEmpty())
		Expect(dev.Leaks()).To(BeEmpty())
	})

	It("creates a view per image with the chosen format and extent", func() {
		Expect(sc.Create()).To(Succeed())

		Expect(sc.ImageCount()).To(Equal(3))
		Expect(sc.ViewCount()).To(Equal(sc.ImageCount()))
		Expect(sc.Format()).To(Equal(vk.FormatB8g8r8a8Srgb))
		Expect(sc.Extent()).To(Equal(vk.Extent2D{Width: 800, Height: 600}))
	})

	It("stays consistent over repeated recreation", func() {
		Expect(sc.Create()).To(Succeed())
		Expect(sc.CreateFramebuffers(renderPass)).To(Succeed())

		for i := 1; i <= 5; i++ {
			created := dev.ImageViewsCreated

			Expect(sc.Recreate()).To(Succeed())

			Expect(sc.ViewCount()).To(Equal(sc.ImageCount()))
			Expect(sc.Format()).To(Equal(vk.FormatB8g8r8a8Srgb))
			Expect(dev.ImageViewsDestroyed).To(Equal(created))
			Expect(dev.Live("image view")).To(Equal(sc.ImageCount()))
			Expect(dev.Live("framebuffer")).To(Equal(sc.ImageCount()))
			Expect(dev.Live("swapchain")).To(Equal(1))
		}

		Expect(dev.DeviceIdleWaits).To(Equal(5))
	})

	It("waits for events while the window is minimized", func() {
		Expect(sc.Create()).To(Succeed())

		window.sizes = [][2]int{{0, 0}, {0, 0}, {0, 0}, {1024, 768}}
		Expect(sc.Recreate()).To(Succeed())

		Expect(window.waits).To(Equal(3))
		Expect(sc.Extent()).To(Equal(vk.Extent2D{Width: 1024, Height: 768}))
		for _, extent := range dev.SwapchainExtents {
			Expect(extent.Width).NotTo(BeZero())
			Expect(extent.Height).NotTo(BeZero())
		}
	})

	It("uses the surface extent when it is fixed", func() {
		dev.Caps.CurrentExtent = vk.Extent2D{Width: 640, Height: 480}

		Expect(sc.Create()).To(Succeed())
		Expect(sc.Extent()).To(Equal(vk.Extent2D{Width: 640, Height: 480}))
	})
})

var _ = Describe("choosers", func() {
	It("prefers sRGB B8G8R8A8", func() {
		format := swapchain.ChooseSurfaceFormat([]vk.SurfaceFormat{
			{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		})
		Expect(format.Format).To(Equal(vk.FormatB8g8r8a8Srgb))
	})

	It("falls back to the first format", func() {
		format := swapchain.ChooseSurfaceFormat([]vk.SurfaceFormat{
			{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		})
		Expect(format.Format).To(Equal(vk.FormatR8g8b8a8Unorm))
	})

	It("prefers mailbox and falls back to FIFO", func() {
		Expect(swapchain.ChoosePresentMode([]vk.PresentMode{
			vk.PresentModeImmediate, vk.PresentModeMailbox,
		})).To(Equal(vk.PresentModeMailbox))

		Expect(swapchain.ChoosePresentMode([]vk.PresentMode{
			vk.PresentModeImmediate,
		})).To(Equal(vk.PresentModeFifo))
	})

	It("clamps the framebuffer size into the surface bounds", func() {
		caps := vk.SurfaceCapabilities{
			CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
			MinImageExtent: vk.Extent2D{Width: 100, Height: 100},
			MaxImageExtent: vk.Extent2D{Width: 1000, Height: 1000},
		}

		Expect(swapchain.ChooseExtent(caps, 5000, 50)).To(Equal(vk.Extent2D{Width: 1000, Height: 100}))
	})

	It("asks for one image more than the minimum within the maximum", func() {
		Expect(swapchain.ImageCount(vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 3})).
			To(Equal(uint32(3)))
		Expect(swapchain.ImageCount(vk.SurfaceCapabilities{MinImageCount: 3, MaxImageCount: 3})).
			To(Equal(uint32(3)))
		Expect(swapchain.ImageCount(vk.SurfaceCapabilities{MinImageCount: 3, MaxImageCount: 0})).
			To(Equal(uint32(4)))
	})
})
