package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"castlight/core"
)

// quadMesh builds a single XY quad with standard UVs: tangent should come
// out along +X and bitangent along +Y.
func quadMesh() *Mesh {
	m := NewMesh("quad")
	m.Vertices = []core.Vertex{
		{Position: mgl32.Vec3{0, 0, 0}, Normal: mgl32.Vec3{0, 0, 1}, UV: mgl32.Vec2{0, 0}},
		{Position: mgl32.Vec3{1, 0, 0}, Normal: mgl32.Vec3{0, 0, 1}, UV: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{1, 1, 0}, Normal: mgl32.Vec3{0, 0, 1}, UV: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{0, 1, 0}, Normal: mgl32.Vec3{0, 0, 1}, UV: mgl32.Vec2{0, 1}},
	}
	m.Indices = []uint32{0, 1, 2, 0, 2, 3}
	return m
}

func TestComputeTangentsAlignsWithUVAxes(t *testing.T) {
	m := quadMesh()
	ComputeTangents(m)

	for i, v := range m.Vertices {
		assert.InDelta(t, 1.0, float64(v.Tangent.Len()), 1e-5, "vertex %d tangent normalized", i)
		assert.InDelta(t, 1.0, float64(v.Tangent.X()), 1e-5, "vertex %d tangent follows +U", i)
		assert.InDelta(t, 1.0, float64(v.Bitangent.Y()), 1e-5, "vertex %d bitangent follows +V", i)
	}
}

func TestComputeTangentsOrthogonalToNormal(t *testing.T) {
	m := CreateSphere(1, 16, 8)
	ComputeTangents(m)

	for i, v := range m.Vertices {
		assert.InDelta(t, 0.0, float64(v.Tangent.Dot(v.Normal)), 1e-4,
			"vertex %d tangent orthogonal to normal", i)
		assert.InDelta(t, 1.0, float64(v.Tangent.Len()), 1e-4)
		assert.InDelta(t, 1.0, float64(v.Bitangent.Len()), 1e-4)
	}
}

func TestComputeTangentsDegenerateUVsGetFallbackFrame(t *testing.T) {
	m := quadMesh()
	for i := range m.Vertices {
		m.Vertices[i].UV = mgl32.Vec2{} // collapse all UVs
	}
	ComputeTangents(m)

	for i, v := range m.Vertices {
		assert.InDelta(t, 1.0, float64(v.Tangent.Len()), 1e-5,
			"vertex %d still gets a usable frame", i)
		assert.InDelta(t, 0.0, float64(v.Tangent.Dot(v.Normal)), 1e-5)
	}
}
