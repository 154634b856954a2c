package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCamera() *Camera {
	cam := NewCamera(mgl32.DegToRad(60), 16.0/9.0, 0.1, 100)
	cam.SetPosition(mgl32.Vec3{0, 0, 10})
	cam.LookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	return cam
}

func TestFrustumCulling(t *testing.T) {
	cam := testCamera()
	frustum := FrustumFromVP(cam.GetViewProjectionMatrix())

	cases := []struct {
		name    string
		box     AABB
		visible bool
	}{
		{
			name:    "at origin, in front of camera",
			box:     AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}},
			visible: true,
		},
		{
			name:    "behind the camera",
			box:     AABB{Min: mgl32.Vec3{-1, -1, 19}, Max: mgl32.Vec3{1, 1, 21}},
			visible: false,
		},
		{
			name:    "beyond the far plane",
			box:     AABB{Min: mgl32.Vec3{-1, -1, -201}, Max: mgl32.Vec3{1, 1, -199}},
			visible: false,
		},
		{
			name:    "far off to the left",
			box:     AABB{Min: mgl32.Vec3{-501, -1, -1}, Max: mgl32.Vec3{-499, 1, 1}},
			visible: false,
		},
		{
			name:    "straddling the near plane",
			box:     AABB{Min: mgl32.Vec3{-1, -1, 8}, Max: mgl32.Vec3{1, 1, 12}},
			visible: true,
		},
		{
			name:    "large box enclosing the whole frustum",
			box:     AABB{Min: mgl32.Vec3{-1000, -1000, -1000}, Max: mgl32.Vec3{1000, 1000, 1000}},
			visible: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.visible, tc.box.IntersectsFrustum(&frustum))
		})
	}
}

func TestFrustumPlanesFaceInward(t *testing.T) {
	cam := testCamera()
	frustum := FrustumFromVP(cam.GetViewProjectionMatrix())

	// A point in the middle of the view volume must be on the positive
	// side of every plane.
	inside := mgl32.Vec3{0, 0, 0}
	for i, p := range frustum.Planes {
		assert.Greater(t, p.DistanceTo(inside), float32(0), "plane %d", i)
	}
}

func TestComputeAABBTransform(t *testing.T) {
	mesh := CreateCube(2) // local AABB is [-1,1]^3
	require.True(t, mesh.HasLocalAABB)

	world := mgl32.Translate3D(10, 0, 0).Mul4(mgl32.Scale3D(2, 2, 2))
	box := ComputeAABB(mesh, world)

	assert.InDelta(t, 8, box.Min.X(), 1e-5)
	assert.InDelta(t, 12, box.Max.X(), 1e-5)
	assert.InDelta(t, -2, box.Min.Y(), 1e-5)
	assert.InDelta(t, 2, box.Max.Y(), 1e-5)
}

func TestComputeAABBRotationStaysTight(t *testing.T) {
	mesh := CreateCube(2)

	// Rotating 45° about Y grows the AABB's X/Z extent to sqrt(2).
	rot := mgl32.HomogRotate3DY(mgl32.DegToRad(45))
	box := ComputeAABB(mesh, rot)

	sqrt2 := float32(1.41421356)
	assert.InDelta(t, sqrt2, box.Max.X(), 1e-4)
	assert.InDelta(t, -sqrt2, box.Min.Z(), 1e-4)
	assert.InDelta(t, 1, box.Max.Y(), 1e-5)
}

func TestCulledNodeAgainstCameraFrustum(t *testing.T) {
	cam := testCamera()
	frustum := FrustumFromVP(cam.GetViewProjectionMatrix())

	front := NewNode("front")
	front.Mesh = CreateCube(1)

	behind := NewNode("behind")
	behind.Mesh = CreateCube(1)
	behind.SetPosition(mgl32.Vec3{0, 0, 50})

	frontBox := ComputeAABB(front.Mesh, front.GetWorldMatrix())
	behindBox := ComputeAABB(behind.Mesh, behind.GetWorldMatrix())

	assert.True(t, frontBox.IntersectsFrustum(&frustum))
	assert.False(t, behindBox.IntersectsFrustum(&frustum))
}
