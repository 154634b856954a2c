package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCubeGeometry(t *testing.T) {
	cube := CreateCube(2)

	// 6 faces × 4 unique verts, 6 faces × 2 triangles
	assert.Len(t, cube.Vertices, 24)
	assert.Len(t, cube.Indices, 36)
	assert.True(t, cube.CastShadow)

	for _, v := range cube.Vertices {
		assert.InDelta(t, 1.0, absMax3(v.Position), 1e-5,
			"every cube vertex sits on a face of the half-size box")
		assert.InDelta(t, 1.0, v.Normal.Len(), 1e-5)
	}
}

func TestCreateSphereVerticesOnRadius(t *testing.T) {
	const radius = 3.0
	sphere := CreateSphere(radius, 16, 8)

	require.NotEmpty(t, sphere.Vertices)
	require.True(t, len(sphere.Indices)%3 == 0)

	for _, v := range sphere.Vertices {
		assert.InDelta(t, radius, float64(v.Position.Len()), 1e-4)
		// Normal points radially outward
		assert.InDelta(t, 1.0, float64(v.Normal.Dot(v.Position.Normalize())), 1e-4)
	}
}

func TestCreatePlaneLiesFlat(t *testing.T) {
	plane := CreatePlane(10, 20, 4)

	require.NotEmpty(t, plane.Vertices)
	for _, v := range plane.Vertices {
		assert.Zero(t, v.Position.Y())
		assert.InDelta(t, 1.0, float64(v.Normal.Y()), 1e-6)
		assert.LessOrEqual(t, absf(v.Position.X()), float32(5.0))
		assert.LessOrEqual(t, absf(v.Position.Z()), float32(10.0))
	}
}

func TestCreateUnitBoxWireframe(t *testing.T) {
	box := CreateUnitBoxWireframe()

	assert.Equal(t, DrawLines, box.DrawMode)
	assert.False(t, box.CastShadow, "debug geometry must not cast shadows")
	assert.Len(t, box.Vertices, 8)
	assert.Len(t, box.Indices, 24) // 12 edges × 2 indices

	for _, v := range box.Vertices {
		assert.InDelta(t, 1.0, absMax3(v.Position), 1e-6)
	}
}

func absMax3(v mgl32.Vec3) float64 {
	m := absf(v.X())
	m = max(m, absf(v.Y()))
	m = max(m, absf(v.Z()))
	return float64(m)
}

func absf(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
