package descriptor_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/buffer"
	"blast-engine/descriptor"
	"blast-engine/gpu/gputest"
)

const frames = 2

var _ = Describe("Descriptor", func() {
	var (
		dev     *gputest.FakeDevice
		d       *descriptor.Descriptor
		buffers []*buffer.Buffer
	)

	BeforeEach(func() {
		dev = gputest.NewFakeDevice()
		d = descriptor.New(dev)

		buffers = nil
		for i := 0; i < frames; i++ {
			b := buffer.New(dev, 192)
			Expect(b.Create(
				vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
				vk.SharingModeExclusive,
			)).To(Succeed())
			buffers = append(buffers, b)
		}
	})

	AfterEach(func() {
		d.Clean()
		for _, b := range buffers {
			b.Clean()
		}
		Expect(dev.Violations).To(BeEmpty())
		Expect(dev.Leaks()).To(BeEmpty())
	})

	It("declares the uniform buffer before the textures", func() {
		bindings := descriptor.Bindings(2)
		Expect(bindings).To(HaveLen(3))

		Expect(bindings[0].Binding).To(Equal(uint32(descriptor.UniformBinding)))
		Expect(bindings[0].DescriptorType).To(Equal(vk.DescriptorTypeUniformBuffer))
		Expect(bindings[0].StageFlags).To(Equal(vk.ShaderStageFlags(vk.ShaderStageVertexBit)))

		Expect(bindings[2].Binding).To(Equal(uint32(descriptor.FirstTextureBinding + 1)))
		Expect(bindings[2].DescriptorType).To(Equal(vk.DescriptorTypeCombinedImageSampler))
		Expect(bindings[2].StageFlags).To(Equal(vk.ShaderStageFlags(vk.ShaderStageFragmentBit)))
	})

	It("sizes the pool per set", func() {
		Expect(descriptor.PoolSizes(0)).To(HaveLen(1))
		Expect(descriptor.PoolSizes(3)[1].DescriptorCount).To(Equal(uint32(3)))
	})

	It("points every frame's set at its own uniform buffer", func() {
		Expect(d.CreateSetLayout(descriptor.Bindings(0))).To(Succeed())
		Expect(d.CreatePool(descriptor.PoolSizes(0), frames)).To(Succeed())
		Expect(d.CreateSets(frames, buffers, nil, vk.NullSampler)).To(Succeed())

		for frame := uint32(0); frame < frames; frame++ {
			write, ok := dev.Binding(d.Set(frame), descriptor.UniformBinding)
			Expect(ok).To(BeTrue())
			Expect(write.PBufferInfo).To(HaveLen(1))
			Expect(write.PBufferInfo[0].Buffer).To(Equal(buffers[frame].Handle()))
			Expect(write.PBufferInfo[0].Range).To(Equal(buffers[frame].Size()))
		}

		Expect(d.Set(0)).NotTo(Equal(d.Set(1)))
	})

	It("binds the texture view and sampler in every set", func() {
		image, err := dev.CreateImage(&vk.ImageCreateInfo{Extent: vk.Extent3D{Width: 1, Height: 1, Depth: 1}})
		Expect(err).NotTo(HaveOccurred())
		view, err := dev.CreateImageView(&vk.ImageViewCreateInfo{Image: image})
		Expect(err).NotTo(HaveOccurred())
		sampler, err := dev.CreateSampler(&vk.SamplerCreateInfo{})
		Expect(err).NotTo(HaveOccurred())

		Expect(d.CreateSetLayout(descriptor.Bindings(1))).To(Succeed())
		Expect(d.CreatePool(descriptor.PoolSizes(1), frames)).To(Succeed())
		Expect(d.CreateSets(frames, buffers, []vk.ImageView{view}, sampler)).To(Succeed())

		for frame := uint32(0); frame < frames; frame++ {
			write, ok := dev.Binding(d.Set(frame), descriptor.FirstTextureBinding)
			Expect(ok).To(BeTrue())
			Expect(write.PImageInfo[0].ImageView).To(Equal(view))
			Expect(write.PImageInfo[0].Sampler).To(Equal(sampler))
			Expect(write.PImageInfo[0].ImageLayout).To(Equal(vk.ImageLayoutShaderReadOnlyOptimal))
		}

		dev.DestroySampler(sampler)
		dev.DestroyImageView(view)
		dev.DestroyImage(image)
	})

	It("needs one uniform buffer per frame", func() {
		Expect(d.CreateSetLayout(descriptor.Bindings(0))).To(Succeed())
		Expect(d.CreatePool(descriptor.PoolSizes(0), frames)).To(Succeed())
		Expect(d.CreateSets(frames, buffers[:1], nil, vk.NullSampler)).NotTo(Succeed())
	})

	It("needs a layout and a pool first", func() {
		Expect(d.CreateSets(frames, buffers, nil, vk.NullSampler)).NotTo(Succeed())
	})
})
