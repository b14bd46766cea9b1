package camera_test

import (
	"github.com/go-gl/mathgl/mgl32"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"blast-engine/camera"
	"blast-engine/input"
)

var _ = Describe("Camera", func() {
	var cam *camera.Camera

	BeforeEach(func() {
		cam = camera.New(16.0 / 9)
	})

	It("starts one unit in front of the origin", func() {
		origin := cam.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
		Expect(origin.X()).To(BeNumerically("~", 0, 1e-6))
		Expect(origin.Y()).To(BeNumerically("~", 0, 1e-6))
		Expect(origin.Z()).To(BeNumerically("~", -1, 1e-6))
	})

	It("moves along its view direction", func() {
		cam.Apply(input.Snapshot{Forward: true}, 100)
		Expect(cam.Position().Z()).To(BeNumerically("~", 0, 1e-6))

		cam.Apply(input.Snapshot{Right: true}, 50)
		Expect(cam.Position().X()).To(BeNumerically("~", 0.5, 1e-6))
	})

	It("stands still without input", func() {
		cam.Apply(input.Snapshot{}, 1000)
		Expect(cam.Position()).To(Equal(mgl32.Vec3{0, 0, 1}))
		Expect(cam.Pitch()).To(BeZero())
	})

	It("clamps the pitch", func() {
		cam.Apply(input.Snapshot{Up: true}, 10000)
		Expect(cam.Pitch()).To(Equal(camera.MaxPitch))

		cam.Apply(input.Snapshot{Down: true}, 10)
		Expect(cam.Pitch()).To(BeNumerically("~", camera.MaxPitch-1, 1e-4))

		cam.Apply(input.Snapshot{Down: true}, 100000)
		Expect(cam.Pitch()).To(Equal(-camera.MaxPitch))
	})

	It("projects the near plane to depth 0 and the far plane to depth 1", func() {
		proj := cam.Projection()

		near := proj.Mul4x1(mgl32.Vec4{0, 0, -camera.Near, 1})
		Expect(near.Z() / near.W()).To(BeNumerically("~", 0, 1e-5))

		far := proj.Mul4x1(mgl32.Vec4{0, 0, -camera.Far, 1})
		Expect(far.Z() / far.W()).To(BeNumerically("~", 1, 1e-5))
	})

	It("flips Y in clip space", func() {
		up := cam.Projection().Mul4x1(mgl32.Vec4{0, 1, -1, 1})
		Expect(up.Y()).To(BeNumerically("<", 0))
	})

	It("follows the swapchain aspect and ignores zero sizes", func() {
		cam.SetAspect(800, 600)
		Expect(cam.Aspect()).To(BeNumerically("~", 4.0/3, 1e-6))

		cam.SetAspect(0, 600)
		cam.SetAspect(800, 0)
		Expect(cam.Aspect()).To(BeNumerically("~", 4.0/3, 1e-6))
	})
})
