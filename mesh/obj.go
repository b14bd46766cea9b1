package mesh

import (
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mokiat/go-data-front/decoder/obj"
	"github.com/pkg/errors"
	"github.com/xlab/linmath"
)

// LoadOBJFile opens path and decodes it with LoadOBJ.
func LoadOBJFile(path string) (*Mesh, error) {
	modelFile, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening model file")
	}
	defer modelFile.Close()

	m, err := LoadOBJ(modelFile)
	if err != nil {
		return nil, errors.Wrapf(err, "model %s", path)
	}

	return m, nil
}

// LoadOBJ decodes a triangulated Wavefront OBJ. Identical vertices are
// merged, V is flipped to match the image row order and every vertex is
// white so that only the texture colours the model.
func LoadOBJ(r io.Reader) (*Mesh, error) {
	decoder := obj.NewDecoder(obj.DefaultLimits())
	model, err := decoder.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decoding obj")
	}

	m := &Mesh{Model: mgl32.Ident4()}
	unique := make(map[Vertex]uint32)

	for _, object := range model.Objects {
		for _, objMesh := range object.Meshes {
			for _, face := range objMesh.Faces {
				if len(face.References) != 3 {
					return nil, errors.Errorf(
						"face with %d vertices in object %q, only triangles are supported",
						len(face.References), object.Name,
					)
				}

				for _, ref := range face.References {
					vertex, err := referencedVertex(model, ref)
					if err != nil {
						return nil, errors.Wrapf(err, "object %q", object.Name)
					}

					index, ok := unique[vertex]
					if !ok {
						index = uint32(len(m.Vertices))
						unique[vertex] = index
						m.Vertices = append(m.Vertices, vertex)
					}
					m.Indices = append(m.Indices, index)
				}
			}
		}
	}

	if len(m.Vertices) == 0 {
		return nil, errors.New("model has no faces")
	}

	return m, nil
}

func referencedVertex(model *obj.Model, ref obj.Reference) (Vertex, error) {
	if ref.VertexIndex < 0 || ref.VertexIndex >= int64(len(model.Vertices)) {
		return Vertex{}, errors.Errorf("vertex index %d out of range", ref.VertexIndex)
	}
	position := model.Vertices[ref.VertexIndex]

	vertex := Vertex{
		Pos: linmath.Vec3{
			float32(position.X),
			float32(position.Y),
			float32(position.Z),
		},
		Color: linmath.Vec3{1, 1, 1},
	}

	if ref.TexCoordIndex >= 0 && ref.TexCoordIndex < int64(len(model.TexCoords)) {
		texCoord := model.TexCoords[ref.TexCoordIndex]
		vertex.TexCoord = linmath.Vec2{
			float32(texCoord.U),
			1 - float32(texCoord.V),
		}
	}

	if ref.NormalIndex >= 0 && ref.NormalIndex < int64(len(model.Normals)) {
		normal := model.Normals[ref.NormalIndex]
		vertex.Normal = linmath.Vec3{
			float32(normal.X),
			float32(normal.Y),
			float32(normal.Z),
		}
	}

	return vertex, nil
}
