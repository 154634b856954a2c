package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Plane represents a half-space: ax + by + cz + d = 0.
// Normal (a, b, c) points into the "inside" of the frustum.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// DistanceTo returns the signed distance from a point to the plane.
// Positive means on the "inside" (same side as Normal).
func (p Plane) DistanceTo(pt mgl32.Vec3) float32 {
	return p.Normal.Dot(pt) + p.D
}

// Frustum holds the six clip planes of a view frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumFromVP extracts the six frustum planes from a view-projection
// matrix (Gribb/Hartmann). vp is the true product projection*view, so the
// extraction operates on the matrix rows directly. Planes are normalized so
// DistanceTo returns a true distance in world units.
func FrustumFromVP(vp mgl32.Mat4) Frustum {
	r0 := vp.Row(0)
	r1 := vp.Row(1)
	r2 := vp.Row(2)
	r3 := vp.Row(3)

	var f Frustum
	f.Planes[0] = normalizePlane(r3.Add(r0))  // Left
	f.Planes[1] = normalizePlane(r3.Sub(r0))  // Right
	f.Planes[2] = normalizePlane(r3.Add(r1))  // Bottom
	f.Planes[3] = normalizePlane(r3.Sub(r1))  // Top
	f.Planes[4] = normalizePlane(r3.Add(r2))  // Near
	f.Planes[5] = normalizePlane(r3.Sub(r2))  // Far
	return f
}

func normalizePlane(v mgl32.Vec4) Plane {
	n := v.Vec3()
	l := n.Len()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: n.Mul(1 / l), D: v.W() / l}
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max mgl32.Vec3
}

// IntersectsFrustum returns false if the AABB is completely outside the frustum.
// Uses the "n-vertex" test: for each plane, check if the "positive vertex"
// (the corner most aligned with the plane normal) is on the outside.
func (box AABB) IntersectsFrustum(f *Frustum) bool {
	for i := 0; i < 6; i++ {
		p := f.Planes[i]
		var positive mgl32.Vec3
		for a := 0; a < 3; a++ {
			if p.Normal[a] < 0 {
				positive[a] = box.Min[a]
			} else {
				positive[a] = box.Max[a]
			}
		}
		if p.DistanceTo(positive) < 0 {
			return false // outside this plane
		}
	}
	return true
}

// ComputeAABB computes the world-space AABB for a mesh transformed by worldMatrix.
// If the mesh has a cached local AABB, it transforms the 8 corners (fast path).
// Otherwise it falls back to iterating all vertices.
func ComputeAABB(mesh *Mesh, worldMatrix mgl32.Mat4) AABB {
	if mesh.HasLocalAABB {
		return transformAABB(mesh.LocalAABB, worldMatrix)
	}
	return computeAABBSlow(mesh, worldMatrix)
}

// transformAABB transforms a local AABB by a world matrix by testing all 8 corners.
func transformAABB(local AABB, m mgl32.Mat4) AABB {
	mn, mx := local.Min, local.Max
	corners := [8]mgl32.Vec3{
		{mn.X(), mn.Y(), mn.Z()},
		{mx.X(), mn.Y(), mn.Z()},
		{mn.X(), mx.Y(), mn.Z()},
		{mx.X(), mx.Y(), mn.Z()},
		{mn.X(), mn.Y(), mx.Z()},
		{mx.X(), mn.Y(), mx.Z()},
		{mn.X(), mx.Y(), mx.Z()},
		{mx.X(), mx.Y(), mx.Z()},
	}
	first := m.Mul4x1(corners[0].Vec4(1)).Vec3()
	out := AABB{Min: first, Max: first}
	for i := 1; i < 8; i++ {
		wp := m.Mul4x1(corners[i].Vec4(1)).Vec3()
		out.extend(wp)
	}
	return out
}

// computeAABBSlow is the fallback when no cached local AABB is available.
func computeAABBSlow(mesh *Mesh, worldMatrix mgl32.Mat4) AABB {
	if len(mesh.Vertices) == 0 {
		return AABB{}
	}
	first := worldMatrix.Mul4x1(mesh.Vertices[0].Position.Vec4(1)).Vec3()
	out := AABB{Min: first, Max: first}
	for i := 1; i < len(mesh.Vertices); i++ {
		wp := worldMatrix.Mul4x1(mesh.Vertices[i].Position.Vec4(1)).Vec3()
		out.extend(wp)
	}
	return out
}

func (box *AABB) extend(p mgl32.Vec3) {
	for a := 0; a < 3; a++ {
		if p[a] < box.Min[a] {
			box.Min[a] = p[a]
		}
		if p[a] > box.Max[a] {
			box.Max[a] = p[a]
		}
	}
}
