package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/xlab/linmath"
)

// Mesh is immutable once built. A mesh without indices is drawn non-indexed.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32

	// Model places the mesh in world space.
	Model mgl32.Mat4
}

// Indexed tells whether the mesh should be drawn with its index buffer.
func (m *Mesh) Indexed() bool {
	return len(m.Indices) > 0
}

// Quad returns a textured 16:9 quad, tilted by 45 degrees in the XY plane.
func Quad() *Mesh {
	origin := linmath.Vec3{-1.02, 0, 0}
	down := linmath.Vec3{math.Sqrt2 / 2, -math.Sqrt2 / 2, 0}
	across := linmath.Vec3{math.Sqrt2 / 2, math.Sqrt2 / 2, 0}
	across.Scale(&across, 16.0/9)

	var a, b, c linmath.Vec3
	a.Add(&origin, &down)
	b.Add(&a, &across)
	c.Add(&origin, &across)

	return &Mesh{
		Vertices: []Vertex{
			{Pos: a, Color: linmath.Vec3{1, 0, 0}, TexCoord: linmath.Vec2{0, 0}},
			{Pos: b, Color: linmath.Vec3{0, 0, 1}, TexCoord: linmath.Vec2{1, 0}},
			{Pos: origin, Color: linmath.Vec3{0, 1, 0}, TexCoord: linmath.Vec2{0, 1}},
			{Pos: c, Color: linmath.Vec3{1, 0, 0}, TexCoord: linmath.Vec2{1, 1}},
		},
		Indices: []uint32{0, 1, 2, 3, 2, 1},
		Model:   mgl32.Ident4(),
	}
}
