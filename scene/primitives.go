package scene

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"

	"castlight/core"
)

var primitiveGray = core.Color{R: 0.8, G: 0.8, B: 0.8, A: 1.0}

// CreateCube generates an axis-aligned cube mesh centered on the origin.
func CreateCube(size float32) *Mesh {
	s := size / 2

	type face struct {
		normal  mgl32.Vec3
		corners [4]mgl32.Vec3
		uvs     [4]mgl32.Vec2
	}
	faces := []face{
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-s, -s, s}, {s, -s, s}, {s, s, s}, {-s, s, s}}, [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}},
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{s, -s, -s}, {-s, -s, -s}, {-s, s, -s}, {s, s, -s}}, [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}},
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-s, s, -s}, {s, s, -s}, {s, s, s}, {-s, s, s}}, [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}},
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-s, -s, s}, {s, -s, s}, {s, -s, -s}, {-s, -s, -s}}, [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}},
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{s, -s, s}, {s, -s, -s}, {s, s, -s}, {s, s, s}}, [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}},
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-s, -s, -s}, {-s, -s, s}, {-s, s, s}, {-s, s, -s}}, [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}},
	}

	var vertices []core.Vertex
	var indices []uint32
	for _, f := range faces {
		base := uint32(len(vertices))
		for i := 0; i < 4; i++ {
			vertices = append(vertices, core.Vertex{
				Position: f.corners[i],
				Normal:   f.normal,
				UV:       f.uvs[i],
				Color:    core.ColorWhite,
			})
		}
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}

	return CreateMeshFromData("Cube", vertices, indices)
}

// CreateSphere generates a UV-sphere mesh.
func CreateSphere(radius float32, segments, rings int) *Mesh {
	if segments < 3 {
		segments = 3
	}
	if rings < 2 {
		rings = 2
	}

	var vertices []core.Vertex
	var indices []uint32

	for ring := 0; ring <= rings; ring++ {
		phi := float64(ring) * stdmath.Pi / float64(rings)
		sinPhi := float32(stdmath.Sin(phi))
		cosPhi := float32(stdmath.Cos(phi))

		for seg := 0; seg <= segments; seg++ {
			theta := float64(seg) * 2.0 * stdmath.Pi / float64(segments)
			sinTheta := float32(stdmath.Sin(theta))
			cosTheta := float32(stdmath.Cos(theta))

			normal := mgl32.Vec3{sinPhi * cosTheta, cosPhi, sinPhi * sinTheta}
			vertices = append(vertices, core.Vertex{
				Position: normal.Mul(radius),
				Normal:   normal,
				UV:       mgl32.Vec2{float32(seg) / float32(segments), float32(ring) / float32(rings)},
				Color:    primitiveGray,
			})
		}
	}

	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			current := uint32(ring*(segments+1) + seg)
			next := current + uint32(segments+1)

			indices = append(indices, current, next, current+1)
			indices = append(indices, current+1, next, next+1)
		}
	}

	return CreateMeshFromData("Sphere", vertices, indices)
}

// CreatePlane generates a flat plane mesh in the XZ plane.
func CreatePlane(width, depth float32, subdivisions int) *Mesh {
	if subdivisions < 1 {
		subdivisions = 1
	}

	var vertices []core.Vertex
	var indices []uint32

	halfW := width / 2.0
	halfD := depth / 2.0

	for z := 0; z <= subdivisions; z++ {
		for x := 0; x <= subdivisions; x++ {
			u := float32(x) / float32(subdivisions)
			v := float32(z) / float32(subdivisions)

			vertices = append(vertices, core.Vertex{
				Position: mgl32.Vec3{-halfW + u*width, 0, -halfD + v*depth},
				Normal:   mgl32.Vec3{0, 1, 0},
				UV:       mgl32.Vec2{u, v},
				Color:    primitiveGray,
			})
		}
	}

	for z := 0; z < subdivisions; z++ {
		for x := 0; x < subdivisions; x++ {
			topLeft := uint32(z*(subdivisions+1) + x)
			topRight := topLeft + 1
			bottomLeft := topLeft + uint32(subdivisions+1)
			bottomRight := bottomLeft + 1

			indices = append(indices, topLeft, bottomLeft, topRight)
			indices = append(indices, topRight, bottomLeft, bottomRight)
		}
	}

	return CreateMeshFromData("Plane", vertices, indices)
}

// CreateUnitBoxWireframe builds a ±1 cube rendered as lines, used for debug
// bounding-box visualization.
func CreateUnitBoxWireframe() *Mesh {
	corners := [8]mgl32.Vec3{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	}
	var vertices []core.Vertex
	for _, c := range corners {
		vertices = append(vertices, core.Vertex{
			Position: c,
			Normal:   mgl32.Vec3{0, 1, 0},
			Color:    core.ColorYellow,
		})
	}
	indices := []uint32{
		0, 1, 1, 2, 2, 3, 3, 0, // bottom loop
		4, 5, 5, 6, 6, 7, 7, 4, // top loop
		0, 4, 1, 5, 2, 6, 3, 7, // verticals
	}
	m := CreateMeshFromData("UnitBoxWireframe", vertices, indices)
	m.DrawMode = DrawLines
	m.CastShadow = false
	return m
}
