package texture_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/pkg/errors"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/gpu/gputest"
	"blast-engine/texture"
)

var _ = Describe("LayoutTransition", func() {
	It("supports undefined to transfer destination", func() {
		t, err := texture.LayoutTransition(vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
		Expect(err).NotTo(HaveOccurred())
		Expect(t.DstAccess).To(Equal(vk.AccessFlags(vk.AccessTransferWriteBit)))
		Expect(t.DstStage).To(Equal(vk.PipelineStageFlags(vk.PipelineStageTransferBit)))
	})

	It("supports transfer destination to shader read only", func() {
		t, err := texture.LayoutTransition(
			vk.ImageLayoutTransferDstOptimal,
			vk.ImageLayoutShaderReadOnlyOptimal,
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(t.DstAccess).To(Equal(vk.AccessFlags(vk.AccessShaderReadBit)))
		Expect(t.DstStage).To(Equal(vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)))
	})

	DescribeTable("rejects every other pair",
		func(from, to vk.ImageLayout) {
			_, err := texture.LayoutTransition(from, to)
			Expect(errors.Is(err, texture.ErrUnsupportedLayoutTransition)).To(BeTrue())
		},
		Entry("undefined to shader read", vk.ImageLayoutUndefined, vk.ImageLayoutShaderReadOnlyOptimal),
		Entry("backwards", vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferDstOptimal),
		Entry("to present", vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutPresentSrc),
	)
})

var _ = Describe("Decode", func() {
	It("puts the last row first", func() {
		src := image.NewNRGBA(image.Rect(0, 0, 1, 2))
		src.Set(0, 0, color.NRGBA{R: 255, A: 255})
		src.Set(0, 1, color.NRGBA{B: 255, A: 255})

		var encoded bytes.Buffer
		Expect(png.Encode(&encoded, src)).To(Succeed())

		img, err := texture.Decode(&encoded)
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Size()).To(Equal(image.Pt(1, 2)))
		Expect(img.Pix[0:4]).To(Equal([]byte{0, 0, 255, 255}))
		Expect(img.Pix[4:8]).To(Equal([]byte{255, 0, 0, 255}))
	})

	It("fails on garbage", func() {
		_, err := texture.Decode(bytes.NewReader([]byte("not an image")))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Texture", func() {
	var (
		dev  *gputest.FakeDevice
		pool vk.CommandPool
	)

	BeforeEach(func() {
		dev = gputest.NewFakeDevice()

		var err error
		pool, err = dev.CreateCommandPool(&vk.CommandPoolCreateInfo{})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		dev.DestroyCommandPool(pool)
		Expect(dev.Violations).To(BeEmpty())
		Expect(dev.Leaks()).To(BeEmpty())
	})

	It("uploads the pixels and ends ready for sampling", func() {
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		for i := range img.Pix {
			img.Pix[i] = byte(i)
		}

		t := texture.New(dev)
		defer t.Clean()

		Expect(t.LoadPixels(img)).To(Succeed())
		Expect(t.Upload(pool, dev.GraphicsQueue())).To(Succeed())

		Expect(t.Layout()).To(Equal(vk.ImageLayoutShaderReadOnlyOptimal))
		Expect(dev.ImageLayout(t.Image())).To(Equal(vk.ImageLayoutShaderReadOnlyOptimal))
		Expect(dev.ImageBytes(t.Image())).To(Equal(img.Pix))
		Expect(t.View()).NotTo(Equal(vk.NullImageView))

		width, height := t.Extent()
		Expect(width).To(Equal(uint32(2)))
		Expect(height).To(Equal(uint32(2)))

		Expect(dev.Live("buffer")).To(BeZero())
	})

	It("loads a white pixel without a path", func() {
		t, err := texture.Load(dev, pool, dev.GraphicsQueue(), "")
		Expect(err).NotTo(HaveOccurred())
		defer t.Clean()

		Expect(dev.ImageBytes(t.Image())).To(Equal([]byte{0xff, 0xff, 0xff, 0xff}))
	})

	It("fails for a missing file", func() {
		_, err := texture.Load(dev, pool, dev.GraphicsQueue(), "does/not/exist.png")
		Expect(err).To(HaveOccurred())
	})

	It("rejects an unsupported transition without submitting", func() {
		t := texture.New(dev)
		defer t.Clean()

		Expect(t.LoadPixels(texture.White())).To(Succeed())
		Expect(t.CreateTextureImage()).To(Succeed())

		err := t.TransitionImageLayout(pool, dev.GraphicsQueue(),
			vk.ImageLayoutUndefined, vk.ImageLayoutShaderReadOnlyOptimal)
		Expect(errors.Is(err, texture.ErrUnsupportedLayoutTransition)).To(BeTrue())
		Expect(t.Layout()).To(Equal(vk.ImageLayoutUndefined))
	})

	It("cleans a texture whose upload never finished", func() {
		t := texture.New(dev)
		Expect(t.LoadPixels(texture.White())).To(Succeed())
		Expect(t.CreateTextureImage()).To(Succeed())

		t.Clean()
		Expect(dev.Live("image")).To(BeZero())
	})
})

var _ = Describe("Sampler", func() {
	It("uses anisotropy only when the device enabled it", func() {
		dev := gputest.NewFakeDevice()
		dev.Props.SamplerAnisotropy = false

		s, err := texture.NewSampler(dev)
		Expect(err).NotTo(HaveOccurred())
		s.Clean()

		Expect(dev.Violations).To(BeEmpty())
		Expect(dev.Leaks()).To(BeEmpty())
	})
})

var _ = Describe("PixelBytes", func() {
	It("sizes images beyond 4 GiB without wrapping", func() {
		Expect(texture.PixelBytes(65536, 65536)).To(Equal(vk.DeviceSize(1) << 34))
		Expect(texture.PixelBytes(2, 3)).To(Equal(vk.DeviceSize(24)))
	})
})
