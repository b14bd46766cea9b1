package mesh_test

import (
	"strings"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	vk "github.com/vulkan-go/vulkan"
	"github.com/xlab/linmath"

	"blast-engine/mesh"
)

const square = `
o square
usemtl plain
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1
f 1/1/1 3/3/1 4/4/1
`

const quadFace = `
o square
usemtl plain
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3 4
`

var _ = Describe("Quad", func() {
	It("is two indexed triangles over four vertices", func() {
		quad := mesh.Quad()

		Expect(quad.Vertices).To(HaveLen(4))
		Expect(quad.Indices).To(Equal([]uint32{0, 1, 2, 3, 2, 1}))
		Expect(quad.Indexed()).To(BeTrue())
	})

	It("keeps the corners on a 16:9 rectangle", func() {
		quad := mesh.Quad()
		a := mgl32.Vec3(quad.Vertices[0].Pos)
		b := mgl32.Vec3(quad.Vertices[1].Pos)
		c := mgl32.Vec3(quad.Vertices[2].Pos)

		ab, ac := b.Sub(a), c.Sub(a)

		Expect(ab.Len() / ac.Len()).To(BeNumerically("~", 16.0/9, 1e-5))
		Expect(ab.Dot(ac)).To(BeNumerically("~", 0, 1e-5))
	})
})

var _ = Describe("Vertex layout", func() {
	It("strides over a whole vertex", func() {
		binding := mesh.BindingDescription()
		Expect(binding.Stride).To(Equal(uint32(unsafe.Sizeof(mesh.Vertex{}))))
		Expect(binding.InputRate).To(Equal(vk.VertexInputRateVertex))
	})

	It("describes four tightly packed attributes", func() {
		attributes := mesh.AttributeDescriptions()
		Expect(attributes).To(HaveLen(4))

		offsets := make([]uint32, 0, len(attributes))
		for i, attribute := range attributes {
			Expect(attribute.Location).To(Equal(uint32(i)))
			offsets = append(offsets, attribute.Offset)
		}
		Expect(offsets).To(Equal([]uint32{0, 12, 24, 36}))
		Expect(attributes[3].Format).To(Equal(vk.FormatR32g32Sfloat))
	})
})

var _ = Describe("LoadOBJ", func() {
	It("merges shared vertices", func() {
		m, err := mesh.LoadOBJ(strings.NewReader(square))
		Expect(err).NotTo(HaveOccurred())

		Expect(m.Vertices).To(HaveLen(4))
		Expect(m.Indices).To(Equal([]uint32{0, 1, 2, 0, 2, 3}))
	})

	It("flips V and paints every vertex white", func() {
		m, err := mesh.LoadOBJ(strings.NewReader(square))
		Expect(err).NotTo(HaveOccurred())

		Expect(m.Vertices[0].TexCoord).To(Equal(linmath.Vec2{0, 1}))
		Expect(m.Vertices[2].TexCoord).To(Equal(linmath.Vec2{1, 0}))
		Expect(m.Vertices[1].Normal).To(Equal(linmath.Vec3{0, 0, 1}))
		for _, v := range m.Vertices {
			Expect(v.Color).To(Equal(linmath.Vec3{1, 1, 1}))
		}
	})

	It("rejects faces which are not triangles", func() {
		_, err := mesh.LoadOBJ(strings.NewReader(quadFace))
		Expect(err).To(HaveOccurred())
	})

	It("rejects a model without faces", func() {
		_, err := mesh.LoadOBJ(strings.NewReader("v 0 0 0\n"))
		Expect(err).To(HaveOccurred())
	})

	It("fails for a missing file", func() {
		_, err := mesh.LoadOBJFile("does-not-exist.obj")
		Expect(err).To(HaveOccurred())
	})
})
