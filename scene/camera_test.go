package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCameraLookAtForward(t *testing.T) {
	cam := NewCamera(mgl32.DegToRad(60), 1, 0.1, 100)
	cam.SetPosition(mgl32.Vec3{0, 0, 10})
	cam.LookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})

	fwd := cam.GetForward()
	assert.InDelta(t, 0, fwd.X(), 1e-5)
	assert.InDelta(t, 0, fwd.Y(), 1e-5)
	assert.InDelta(t, -1, fwd.Z(), 1e-5)

	up := cam.GetUp()
	assert.InDelta(t, 1, up.Y(), 1e-5)
}

func TestCameraViewMatrixMapsTargetToViewSpace(t *testing.T) {
	cam := NewCamera(mgl32.DegToRad(60), 1, 0.1, 100)
	cam.SetPosition(mgl32.Vec3{5, 3, 8})
	target := mgl32.Vec3{1, 2, -4}
	cam.LookAt(target, mgl32.Vec3{0, 1, 0})

	// In view space the camera sits at the origin looking down -z, so the
	// target must land on the negative z axis at distance |target - pos|.
	vs := cam.GetViewMatrix().Mul4x1(target.Vec4(1)).Vec3()
	dist := target.Sub(cam.Position).Len()

	assert.InDelta(t, 0, vs.X(), 1e-4)
	assert.InDelta(t, 0, vs.Y(), 1e-4)
	assert.InDelta(t, -dist, vs.Z(), 1e-4)
}

func TestCameraViewProjectionIsProduct(t *testing.T) {
	cam := NewCamera(mgl32.DegToRad(45), 16.0/9.0, 0.5, 200)
	cam.SetPosition(mgl32.Vec3{2, 1, 7})
	cam.LookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})

	want := cam.GetProjectionMatrix().Mul4(cam.GetViewMatrix())
	got := cam.GetViewProjectionMatrix()
	assert.True(t, want.ApproxEqual(got))
}

func TestCameraPointInsideFrustumProjectsToNDC(t *testing.T) {
	cam := NewCamera(mgl32.DegToRad(60), 1, 0.1, 100)
	cam.SetPosition(mgl32.Vec3{0, 0, 10})
	cam.LookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})

	clip := cam.GetViewProjectionMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	ndc := clip.Vec3().Mul(1 / clip.W())

	for a := 0; a < 3; a++ {
		assert.GreaterOrEqual(t, ndc[a], float32(-1))
		assert.LessOrEqual(t, ndc[a], float32(1))
	}
}

func TestOrbitCameraKeepsDistance(t *testing.T) {
	cam := NewOrbitCamera(mgl32.Vec3{1, 0, 1}, 12, mgl32.DegToRad(60), 1)

	cam.Orbit(0.7, 0.2)
	assert.InDelta(t, 12, cam.Position.Sub(cam.Target).Len(), 1e-4)

	cam.Zoom(-20) // clamps at minimum distance
	assert.InDelta(t, 0.1, cam.Position.Sub(cam.Target).Len(), 1e-4)
}

func TestOrbitCameraLooksAtTarget(t *testing.T) {
	cam := NewOrbitCamera(mgl32.Vec3{0, 2, 0}, 5, mgl32.DegToRad(60), 1)
	cam.Orbit(1.1, -0.4)

	toTarget := cam.Target.Sub(cam.Position).Normalize()
	fwd := cam.GetForward()
	assert.InDelta(t, 1, toTarget.Dot(fwd), 1e-4)
}
