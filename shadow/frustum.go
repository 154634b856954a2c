package shadow

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"

	"castlight/lighting"
	"castlight/scene"
)

// directionalBackoff is how far the light's view origin sits from the
// frustum centroid along -direction. The orthographic fit absorbs the
// actual depth range, so the exact distance only affects precision.
const directionalBackoff = 100.0

// ComputeFrustumCorners returns the 8 world-space corners of the view
// volume described by viewProj, by transforming the canonical NDC cube
// through the inverse matrix. Corner order: near plane first (-z in NDC),
// each plane counter-clockwise from (-1,-1).
//
// Panics if viewProj is singular; that means the camera projection upstream
// is degenerate and nothing downstream can produce sensible shadows.
func ComputeFrustumCorners(viewProj mgl32.Mat4) [8]mgl32.Vec3 {
	if viewProj.Det() == 0 {
		log.Panic("shadow: singular view-projection matrix, camera misconfigured")
	}
	inv := viewProj.Inv()

	ndc := [8]mgl32.Vec4{
		{-1, -1, -1, 1}, {1, -1, -1, 1}, {1, 1, -1, 1}, {-1, 1, -1, 1},
		{-1, -1, 1, 1}, {1, -1, 1, 1}, {1, 1, 1, 1}, {-1, 1, 1, 1},
	}

	var corners [8]mgl32.Vec3
	for i, c := range ndc {
		p := inv.Mul4x1(c)
		corners[i] = p.Vec3().Mul(1 / p.W())
	}
	return corners
}

// CascadeCorners returns the world-space corners of the camera frustum
// slice between nearSplit and farSplit (absolute view-space distances).
func CascadeCorners(cam *scene.Camera, nearSplit, farSplit float32) [8]mgl32.Vec3 {
	if nearSplit <= 0 || farSplit <= nearSplit {
		log.Panicf("shadow: invalid cascade slice [%v, %v]", nearSplit, farSplit)
	}
	proj := mgl32.Perspective(cam.FOV, cam.AspectRatio, nearSplit, farSplit)
	return ComputeFrustumCorners(proj.Mul4(cam.GetViewMatrix()))
}

// FrustumCenter returns the arithmetic mean of the 8 corners.
func FrustumCenter(corners [8]mgl32.Vec3) mgl32.Vec3 {
	var sum mgl32.Vec3
	for _, c := range corners {
		sum = sum.Add(c)
	}
	return sum.Mul(1.0 / 8.0)
}

// FitLightProjectionToFrustum transforms the corners into light space,
// takes the axis-aligned extents, pads the z range, and returns the
// orthographic projection spanning the padded box.
//
// The z padding is the asymmetric multiply/divide rule: each z bound is
// multiplied by zMult when that moves it away from zero and divided when
// it would otherwise compress toward zero. Unlike an additive bias, this
// keeps the padding proportional to scene scale. zNearOff and zFarOff are
// constant world-unit offsets applied on top, widening the near and far
// bounds respectively.
func FitLightProjectionToFrustum(lightView mgl32.Mat4, corners [8]mgl32.Vec3, zMult, zNearOff, zFarOff float32) mgl32.Mat4 {
	if zMult < 1 {
		zMult = 1
	}

	first := lightView.Mul4x1(corners[0].Vec4(1))
	minX, maxX := first.X(), first.X()
	minY, maxY := first.Y(), first.Y()
	minZ, maxZ := first.Z(), first.Z()
	for i := 1; i < 8; i++ {
		p := lightView.Mul4x1(corners[i].Vec4(1))
		minX = min(minX, p.X())
		maxX = max(maxX, p.X())
		minY = min(minY, p.Y())
		maxY = max(maxY, p.Y())
		minZ = min(minZ, p.Z())
		maxZ = max(maxZ, p.Z())
	}

	if minZ < 0 {
		minZ *= zMult
	} else {
		minZ /= zMult
	}
	if maxZ < 0 {
		maxZ /= zMult
	} else {
		maxZ *= zMult
	}

	// Ortho near is -maxZ and far is -minZ (light space looks down -z), so
	// growing maxZ pulls the near plane back toward the light and shrinking
	// minZ pushes the far plane out.
	maxZ += zNearOff
	minZ -= zFarOff

	return mgl32.Ortho(minX, maxX, minY, maxY, -maxZ, -minZ)
}

// DirectionalLightView builds the view matrix of a directional light for
// one cascade: positioned at a fixed back-off from the slice centroid along
// -direction, looking at the centroid. Panics on a zero direction.
func DirectionalLightView(direction, center mgl32.Vec3) mgl32.Mat4 {
	if direction.LenSqr() == 0 {
		log.Panic("shadow: zero-length light direction")
	}
	dir := direction.Normalize()

	up := mgl32.Vec3{0, 1, 0}
	if mgl32.Abs(dir.Dot(up)) > 0.999 {
		// Light pointing straight up/down: pick a non-parallel up vector.
		up = mgl32.Vec3{0, 0, 1}
	}

	eye := center.Sub(dir.Mul(directionalBackoff))
	return mgl32.LookAtV(eye, center, up)
}

// DirectionalCascadeMatrices computes the full list of light-space matrices
// for a directional light, one per cascade slice. The slice boundaries are
// [near, s0], [s0, s1], ..., [sN-1, shadowFar] where s are the light's
// interior split distances; the result has len(CascadeSplits)+1 entries and
// is indexed near-to-far.
func DirectionalCascadeMatrices(cam *scene.Camera, l *lighting.DirectionalLight) []mgl32.Mat4 {
	bounds := cascadeBounds(cam.NearPlane, l)
	matrices := make([]mgl32.Mat4, len(bounds)-1)
	for i := 0; i < len(matrices); i++ {
		corners := CascadeCorners(cam, bounds[i], bounds[i+1])
		view := DirectionalLightView(l.Direction, FrustumCenter(corners))
		proj := FitLightProjectionToFrustum(view, corners, l.ZMultiplier, l.ZNearOffset, l.ZFarOffset)
		matrices[i] = proj.Mul4(view)
	}
	return matrices
}

// cascadeBounds returns the N+2 slice boundaries [near, s0..sN-1, shadowFar].
// Panics when the split list is not strictly increasing inside (near, far) —
// a malformed light reaching the prepass is an upstream bug.
func cascadeBounds(near float32, l *lighting.DirectionalLight) []float32 {
	far := l.ShadowFar
	bounds := make([]float32, 0, len(l.CascadeSplits)+2)
	bounds = append(bounds, near)
	prev := near
	for _, s := range l.CascadeSplits {
		if s <= prev || s >= far {
			log.Panicf("shadow: malformed cascade splits %v for near=%v far=%v", l.CascadeSplits, near, far)
		}
		bounds = append(bounds, s)
		prev = s
	}
	return append(bounds, far)
}

