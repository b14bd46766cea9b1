package queues_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/optional"
	"blast-engine/queues"
)

func family(flags vk.QueueFlagBits) vk.QueueFamilyProperties {
	return vk.QueueFamilyProperties{
		QueueFlags: vk.QueueFlags(flags),
		QueueCount: 1,
	}
}

var _ = Describe("FamilyIndices", func() {
	It("is incomplete without a present family", func() {
		indices := queues.FamilyIndices{Graphics: optional.Of[uint32](0)}
		Expect(indices.IsComplete()).To(BeFalse())
		Expect(indices.Unique()).To(BeNil())
	})

	It("shares exclusively when both roles use one family", func() {
		indices := queues.FamilyIndices{
			Graphics: optional.Of[uint32](1),
			Present:  optional.Of[uint32](1),
		}

		Expect(indices.Unique()).To(Equal([]uint32{1}))

		mode, families := indices.Sharing()
		Expect(mode).To(Equal(vk.SharingModeExclusive))
		Expect(families).To(BeEmpty())
	})

	It("shares concurrently between two families", func() {
		indices := queues.FamilyIndices{
			Graphics: optional.Of[uint32](0),
			Present:  optional.Of[uint32](2),
		}

		mode, families := indices.Sharing()
		Expect(mode).To(Equal(vk.SharingModeConcurrent))
		Expect(families).To(Equal([]uint32{0, 2}))
	})
})

var _ = Describe("Find", func() {
	It("picks the first graphics and the first present family", func() {
		families := []vk.QueueFamilyProperties{
			family(vk.QueueTransferBit),
			family(vk.QueueGraphicsBit),
			family(vk.QueueGraphicsBit | vk.QueueComputeBit),
		}

		indices := queues.Find(families, func(i uint32) bool { return i == 2 })
		Expect(indices.IsComplete()).To(BeTrue())
		Expect(indices.Graphics.Get()).To(Equal(uint32(1)))
		Expect(indices.Present.Get()).To(Equal(uint32(2)))
	})

	It("stops asking once both are found", func() {
		families := []vk.QueueFamilyProperties{
			family(vk.QueueGraphicsBit),
			family(vk.QueueGraphicsBit),
		}

		var asked []uint32
		indices := queues.Find(families, func(i uint32) bool {
			asked = append(asked, i)
			return true
		})

		Expect(indices.IsComplete()).To(BeTrue())
		Expect(asked).To(Equal([]uint32{0}))
	})

	It("leaves present unset when no family can present", func() {
		families := []vk.QueueFamilyProperties{family(vk.QueueGraphicsBit)}

		indices := queues.Find(families, func(uint32) bool { return false })
		Expect(indices.Graphics.HasValue()).To(BeTrue())
		Expect(indices.Present.HasValue()).To(BeFalse())
	})
})
