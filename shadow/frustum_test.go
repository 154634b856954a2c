package shadow

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castlight/lighting"
	"castlight/scene"
)

func frustumTestCamera() *scene.Camera {
	cam := scene.NewCamera(mgl32.DegToRad(60), 16.0/9.0, 0.5, 500)
	cam.SetPosition(mgl32.Vec3{3, 4, 20})
	cam.LookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	return cam
}

func TestFrustumCornersCentroidBetweenPlanes(t *testing.T) {
	cam := frustumTestCamera()
	near, far := float32(1), float32(50)

	corners := CascadeCorners(cam, near, far)
	center := FrustumCenter(corners)

	// Project the centroid onto the camera's view axis; it must land
	// strictly between the near and far planes.
	depth := center.Sub(cam.Position).Dot(cam.GetForward())
	assert.Greater(t, depth, near)
	assert.Less(t, depth, far)
}

func TestFrustumCornersRoundTrip(t *testing.T) {
	cam := frustumTestCamera()
	vp := cam.GetViewProjectionMatrix()
	corners := ComputeFrustumCorners(vp)

	// Mapping the corners back through the matrix must reproduce the
	// canonical NDC cube.
	want := [8]mgl32.Vec3{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	}
	for i, c := range corners {
		clip := vp.Mul4x1(c.Vec4(1))
		ndc := clip.Vec3().Mul(1 / clip.W())
		for a := 0; a < 3; a++ {
			assert.InDelta(t, want[i][a], ndc[a], 1e-3, "corner %d axis %d", i, a)
		}
	}
}

func TestComputeFrustumCornersPanicsOnSingularMatrix(t *testing.T) {
	var zero mgl32.Mat4
	assert.Panics(t, func() { ComputeFrustumCorners(zero) })
}

func TestCascadeCornersPanicsOnBadRange(t *testing.T) {
	cam := frustumTestCamera()
	assert.Panics(t, func() { CascadeCorners(cam, 10, 5) })
	assert.Panics(t, func() { CascadeCorners(cam, 0, 5) })
}

func TestFitLightProjectionContainsAllCorners(t *testing.T) {
	cam := frustumTestCamera()
	corners := CascadeCorners(cam, 1, 80)

	dir := mgl32.Vec3{-0.4, -1, -0.3}
	view := DirectionalLightView(dir, FrustumCenter(corners))
	proj := FitLightProjectionToFrustum(view, corners, 10, 0, 0)
	lightMatrix := proj.Mul4(view)

	for i, c := range corners {
		ndc := lightMatrix.Mul4x1(c.Vec4(1)).Vec3()
		for a := 0; a < 3; a++ {
			assert.GreaterOrEqual(t, ndc[a], float32(-1.0001), "corner %d axis %d", i, a)
			assert.LessOrEqual(t, ndc[a], float32(1.0001), "corner %d axis %d", i, a)
		}
	}
}

func TestFitLightProjectionZMultiplierMonotonic(t *testing.T) {
	cam := frustumTestCamera()
	corners := CascadeCorners(cam, 1, 80)
	view := DirectionalLightView(mgl32.Vec3{0.2, -1, 0.1}, FrustumCenter(corners))

	// Recover the fitted z extent from the ortho matrix: for
	// Ortho(l,r,b,t,n,f), m[10] = -2/(f-n).
	zExtent := func(zMult float32) float32 {
		p := FitLightProjectionToFrustum(view, corners, zMult, 0, 0)
		return -2 / p[10]
	}

	base := zExtent(1)
	padded := zExtent(5)
	assert.Greater(t, padded, base)
	assert.Greater(t, zExtent(20), padded)
}

func TestFitLightProjectionOffsetsWidenBox(t *testing.T) {
	cam := frustumTestCamera()
	corners := CascadeCorners(cam, 1, 40)
	view := DirectionalLightView(mgl32.Vec3{0, -1, 0.2}, FrustumCenter(corners))

	zExtent := func(nearOff, farOff float32) float32 {
		p := FitLightProjectionToFrustum(view, corners, 1, nearOff, farOff)
		return -2 / p[10]
	}

	base := zExtent(0, 0)
	assert.InDelta(t, base+7, zExtent(7, 0), 1e-3)
	assert.InDelta(t, base+11, zExtent(0, 11), 1e-3)
}

func TestDirectionalLightViewPanicsOnZeroDirection(t *testing.T) {
	assert.Panics(t, func() {
		DirectionalLightView(mgl32.Vec3{}, mgl32.Vec3{0, 0, 0})
	})
}

func TestDirectionalLightViewHandlesVerticalDirection(t *testing.T) {
	// Straight-down sun must not produce a degenerate view matrix.
	view := DirectionalLightView(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{5, 0, 5})
	assert.NotEqual(t, float32(0), view.Det())
}

func TestDirectionalCascadeMatricesCountAndOrder(t *testing.T) {
	cam := frustumTestCamera()
	sun, err := lighting.NewDirectionalLight(mgl32.Vec3{-0.3, -1, -0.2}, []float32{50, 100, 250, 500}, 1000)
	require.NoError(t, err)

	matrices := DirectionalCascadeMatrices(cam, sun)
	require.Len(t, matrices, 5)

	// Each matrix must contain its own slice's corners; index i covers the
	// boundary pair (bounds[i], bounds[i+1]) near-to-far.
	bounds := []float32{cam.NearPlane, 50, 100, 250, 500, 1000}
	for i, m := range matrices {
		corners := CascadeCorners(cam, bounds[i], bounds[i+1])
		for _, c := range corners {
			ndc := m.Mul4x1(c.Vec4(1)).Vec3()
			for a := 0; a < 3; a++ {
				assert.GreaterOrEqual(t, ndc[a], float32(-1.001), "cascade %d", i)
				assert.LessOrEqual(t, ndc[a], float32(1.001), "cascade %d", i)
			}
		}
	}
}

func TestDirectionalCascadeMatricesPanicsOnMalformedSplits(t *testing.T) {
	cam := frustumTestCamera()
	sun, err := lighting.NewDirectionalLight(mgl32.Vec3{0, -1, 0}, []float32{50, 100}, 200)
	require.NoError(t, err)

	// Corrupt the splits after construction; the prepass math must catch it.
	sun.CascadeSplits = []float32{100, 50}
	assert.Panics(t, func() { DirectionalCascadeMatrices(cam, sun) })
}
