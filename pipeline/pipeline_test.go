package pipeline_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/gpu/gputest"
	"blast-engine/mesh"
	"blast-engine/pipeline"
	"blast-engine/shaders"
)

var _ = Describe("Pipeline", func() {
	var (
		dev *gputest.FakeDevice
		cfg pipeline.Config
	)

	BeforeEach(func() {
		dev = gputest.NewFakeDevice()

		cfg = pipeline.Config{
			Code:          []uint32{shaders.Magic, 0x00010000, 0, 1, 0},
			VertexEntry:   shaders.VertexEntry,
			FragmentEntry: shaders.FragmentEntry,
			Binding:       mesh.BindingDescription(),
			Attributes:    mesh.AttributeDescriptions(),
			ColorFormat:   vk.FormatB8g8r8a8Srgb,
		}
	})

	It("creates and destroys everything it owns", func() {
		p, err := pipeline.New(dev, cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(p.RenderPass()).NotTo(Equal(vk.RenderPass(vk.NullHandle)))
		Expect(p.Layout()).NotTo(Equal(vk.PipelineLayout(vk.NullHandle)))
		Expect(p.Handle()).NotTo(Equal(vk.Pipeline(vk.NullHandle)))

		Expect(dev.Live("shader module")).To(BeZero())

		p.Destroy()
		p.Destroy()

		Expect(dev.Violations).To(BeEmpty())
		Expect(dev.Leaks()).To(BeEmpty())
	})

	It("references the descriptor set layouts", func() {
		layout, err := dev.CreateDescriptorSetLayout(&vk.DescriptorSetLayoutCreateInfo{})
		Expect(err).NotTo(HaveOccurred())
		cfg.SetLayouts = []vk.DescriptorSetLayout{layout}

		p, err := pipeline.New(dev, cfg)
		Expect(err).NotTo(HaveOccurred())
		p.Destroy()
		dev.DestroyDescriptorSetLayout(layout)

		Expect(dev.Violations).To(BeEmpty())
	})

	It("fails without shader code and leaves nothing behind", func() {
		cfg.Code = nil

		_, err := pipeline.New(dev, cfg)
		Expect(err).To(HaveOccurred())
		Expect(dev.Leaks()).To(BeEmpty())
	})
})
