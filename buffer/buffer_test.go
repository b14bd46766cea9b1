package buffer_test

import (
	"github.com/pkg/errors"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/buffer"
	"blast-engine/gpu/gputest"
	"blast-engine/unsafer"
)

type vertex struct {
	pos   [3]float32
	color [3]float32
}

var vertices = []vertex{
	{pos: [3]float32{-0.5, -0.5, 0}, color: [3]float32{1, 0, 0}},
	{pos: [3]float32{0.5, -0.5, 0}, color: [3]float32{0, 1, 0}},
	{pos: [3]float32{0, 0.5, 0}, color: [3]float32{0, 0, 1}},
}

var _ = Describe("Buffer", func() {
	var (
		dev   *gputest.FakeDevice
		pool  vk.CommandPool
		queue vk.Queue
	)

	BeforeEach(func() {
		dev = gputest.NewFakeDevice()
		queue = dev.GraphicsQueue()

		var err error
		pool, err = dev.CreateCommandPool(&vk.CommandPoolCreateInfo{})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		dev.DestroyCommandPool(pool)
		Expect(dev.Violations).To(BeEmpty())
		Expect(dev.Leaks()).To(BeEmpty())
	})

	newBuffer := func(size int, opts ...buffer.Option) *buffer.Buffer {
		b := buffer.New(dev, vk.DeviceSize(size), opts...)
		err := b.Create(
			vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)|
				vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
			vk.SharingModeExclusive,
		)
		Expect(err).NotTo(HaveOccurred())
		return b
	}

	It("reads back what was mapped", func() {
		data := unsafer.SliceToBytes(vertices)
		b := newBuffer(len(data))
		defer b.Clean()

		Expect(buffer.Upload(b, vertices)).To(Succeed())

		read := make([]byte, len(data))
		n, err := b.Read(read)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(len(data)))
		Expect(read).To(Equal(data))
	})

	It("round trips through a staging copy byte for byte", func() {
		data := unsafer.SliceToBytes(vertices)

		staging := newBuffer(len(data))
		Expect(staging.Map(data)).To(Succeed())

		target := newBuffer(len(data))
		defer target.Clean()

		Expect(target.CopyFrom(staging, pool, queue)).To(Succeed())

		read := make([]byte, len(data))
		_, err := target.Read(read)
		Expect(err).NotTo(HaveOccurred())
		Expect(read).To(Equal(data))
	})

	It("destroys the staging buffer after copying", func() {
		staging := newBuffer(16)
		target := newBuffer(16)
		defer target.Clean()

		Expect(target.CopyFrom(staging, pool, queue)).To(Succeed())
		Expect(dev.Live("buffer")).To(Equal(1))

		err := staging.Map([]byte{1})
		Expect(errors.Is(err, buffer.ErrReleased)).To(BeTrue())
	})

	It("refuses a staging buffer larger than the target", func() {
		staging := newBuffer(32)
		target := newBuffer(16)
		defer target.Clean()

		Expect(target.CopyFrom(staging, pool, queue)).NotTo(Succeed())
		Expect(dev.Live("buffer")).To(Equal(1))
	})

	It("refuses to map more than its size", func() {
		b := newBuffer(4)
		defer b.Clean()

		Expect(b.Map(make([]byte, 5))).NotTo(Succeed())
	})

	It("allocates device local memory when asked", func() {
		b := newBuffer(8, buffer.WithMemoryProperties(buffer.DeviceLocal))
		defer b.Clean()

		Expect(b.Memory()).NotTo(Equal(vk.NullDeviceMemory))
	})

	It("stages data into a device local buffer", func() {
		data := []byte{1, 2, 3, 4, 5, 6, 7, 8}

		b, err := buffer.Staged(dev, pool, queue,
			vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), data)
		Expect(err).NotTo(HaveOccurred())
		defer b.Clean()

		Expect(b.Size()).To(Equal(vk.DeviceSize(len(data))))
		Expect(dev.MemoryBytes(b.Memory())).To(Equal(data))
		Expect(dev.Live("buffer")).To(Equal(1))
	})

	Describe("ownership", func() {
		It("moves the handles and releases the source", func() {
			b := newBuffer(16)
			handle := b.Handle()

			moved := b.Move()
			defer moved.Clean()

			Expect(moved.Handle()).To(Equal(handle))
			Expect(b.Handle()).To(Equal(vk.NullBuffer))
			Expect(b.Map([]byte{1})).To(MatchError(buffer.ErrReleased))

			b.Clean()
			Expect(dev.Live("buffer")).To(Equal(1))
		})

		It("cleans only once", func() {
			b := newBuffer(16)

			b.Clean()
			b.Clean()

			Expect(dev.Live("buffer")).To(BeZero())
			Expect(dev.Live("memory")).To(BeZero())
		})
	})
})
