package gputest_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/gpu/gputest"
)

var _ = Describe("FakeDevice", func() {
	var dev *gputest.FakeDevice

	BeforeEach(func() {
		dev = gputest.NewFakeDevice()
	})

	It("hands out handles gomega can compare", func() {
		first, err := dev.CreateBuffer(&vk.BufferCreateInfo{Size: 16})
		Expect(err).NotTo(HaveOccurred())
		second, err := dev.CreateBuffer(&vk.BufferCreateInfo{Size: 16})
		Expect(err).NotTo(HaveOccurred())

		Expect(first).NotTo(Equal(vk.NullBuffer))
		Expect(first).To(Equal(first))
		Expect(first).NotTo(Equal(second))

		dev.DestroyBuffer(first)
		dev.DestroyBuffer(second)
		Expect(dev.Leaks()).To(BeEmpty())
	})

	It("keeps handles distinct across devices", func() {
		other := gputest.NewFakeDevice()

		sem, err := dev.CreateSemaphore()
		Expect(err).NotTo(HaveOccurred())
		otherSem, err := other.CreateSemaphore()
		Expect(err).NotTo(HaveOccurred())

		Expect(sem).NotTo(Equal(otherSem))
		Expect(dev.Live("semaphore")).To(Equal(1))

		dev.DestroySemaphore(sem)
		other.DestroySemaphore(otherSem)
	})
})
