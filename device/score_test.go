package device_test

import (
	"github.com/pkg/errors"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"blast-engine/device"
	"blast-engine/optional"
	"blast-engine/queues"
)

func suitable(name string) device.Candidate {
	return device.Candidate{
		Name:                name,
		MaxImageDimension2D: 16384,
		MultiDrawIndirect:   true,
		Families: queues.FamilyIndices{
			Graphics: optional.Of[uint32](0),
			Present:  optional.Of[uint32](0),
		},
		SurfaceFormats:      2,
		SurfacePresentModes: 1,
	}
}

var _ = Describe("Score", func() {
	It("adds the discrete bonus to the image dimension limit", func() {
		c := suitable("discrete")
		c.Discrete = true

		score, reasons := device.Score(c)
		Expect(reasons).To(BeEmpty())
		Expect(score).To(Equal(16384 + device.DiscreteBonus))
	})

	It("rejects a device without multiDrawIndirect", func() {
		c := suitable("old")
		c.MultiDrawIndirect = false

		score, reasons := device.Score(c)
		Expect(score).To(BeZero())
		Expect(reasons).To(HaveLen(1))
	})

	It("rejects a device without a present family", func() {
		c := suitable("headless")
		c.Families.Present = optional.Optional[uint32]{}

		score, _ := device.Score(c)
		Expect(score).To(BeZero())
	})

	It("rejects a device without surface formats", func() {
		c := suitable("no formats")
		c.SurfaceFormats = 0

		score, _ := device.Score(c)
		Expect(score).To(BeZero())
	})

	It("lists every missing requirement", func() {
		c := suitable("broken")
		c.MultiDrawIndirect = false
		c.MissingExtensions = []string{"VK_KHR_swapchain\x00"}
		c.SurfacePresentModes = 0

		_, reasons := device.Score(c)
		Expect(reasons).To(HaveLen(3))
	})
})

var _ = Describe("Pick", func() {
	It("prefers a complete integrated GPU over a discrete one missing an extension", func() {
		discrete := suitable("discrete")
		discrete.Discrete = true
		discrete.MissingExtensions = []string{"VK_KHR_shader_draw_parameters\x00"}

		integrated := suitable("integrated")

		selected, err := device.Pick([]device.Candidate{discrete, integrated})
		Expect(err).NotTo(HaveOccurred())
		Expect(selected).To(Equal(1))
	})

	It("prefers the discrete GPU when both are complete with equal limits", func() {
		integrated := suitable("integrated")
		discrete := suitable("discrete")
		discrete.Discrete = true

		selected, err := device.Pick([]device.Candidate{integrated, discrete})
		Expect(err).NotTo(HaveOccurred())
		Expect(selected).To(Equal(1))
	})

	It("adds the image limit to the discrete bonus", func() {
		integrated := suitable("integrated")
		discrete := suitable("discrete")
		discrete.Discrete = true
		discrete.MaxImageDimension2D = 8192

		integratedScore, _ := device.Score(integrated)
		discreteScore, _ := device.Score(discrete)
		Expect(integratedScore).To(Equal(16384))
		Expect(discreteScore).To(Equal(8192 + device.DiscreteBonus))

		selected, err := device.Pick([]device.Candidate{integrated, discrete})
		Expect(err).NotTo(HaveOccurred())
		Expect(selected).To(BeZero())
	})

	It("keeps the first of equal candidates", func() {
		selected, err := device.Pick([]device.Candidate{suitable("a"), suitable("b")})
		Expect(err).NotTo(HaveOccurred())
		Expect(selected).To(BeZero())
	})

	It("fails when nothing is suitable", func() {
		c := suitable("old")
		c.MultiDrawIndirect = false

		_, err := device.Pick([]device.Candidate{c})
		Expect(errors.Is(err, device.ErrNoSuitableDevice)).To(BeTrue())

		_, err = device.Pick(nil)
		Expect(errors.Is(err, device.ErrNoSuitableDevice)).To(BeTrue())
	})
})
