package unsafer_test

import (
	"encoding/binary"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"blast-engine/unsafer"
)

var _ = Describe("SliceToBytes", func() {
	It("views every element byte", func() {
		bytes := unsafer.SliceToBytes([]uint32{1, 2, 3})
		Expect(bytes).To(HaveLen(12))
		Expect(binary.LittleEndian.Uint32(bytes[4:])).To(Equal(uint32(2)))
	})

	It("returns nil for an empty slice", func() {
		Expect(unsafer.SliceToBytes([]uint16{})).To(BeNil())
	})

	It("does not copy", func() {
		words := []uint32{0}
		unsafer.SliceToBytes(words)[0] = 7
		Expect(words[0]).To(Equal(uint32(7)))
	})
})

var _ = Describe("StructToBytes", func() {
	It("covers the whole struct", func() {
		value := struct{ A, B float32 }{1, 2}
		Expect(unsafer.StructToBytes(&value)).To(HaveLen(8))
	})
})

var _ = Describe("SliceBytesToUint32", func() {
	It("converts whole words", func() {
		code := []byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00}
		Expect(unsafer.SliceBytesToUint32(code)).To(Equal([]uint32{0x07230203, 1}))
	})

	It("drops trailing bytes", func() {
		Expect(unsafer.SliceBytesToUint32([]byte{1, 0, 0, 0, 9})).To(Equal([]uint32{1}))
	})
})
