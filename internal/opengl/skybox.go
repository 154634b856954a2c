package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"castlight/core"
)

// Skybox draws a procedural three-stop gradient sky on an inward-facing
// unit cube. The vertex shader writes gl_Position.xyww so every sky
// fragment lands at NDC depth 1.0 and never occludes scene geometry.
type Skybox struct {
	vao  uint32
	vbo  uint32
	prog uint32

	vpLoc      int32
	zenithLoc  int32
	horizonLoc int32
	groundLoc  int32

	ZenithColor  core.Color // overhead (Y = +1)
	HorizonColor core.Color // eye level (Y ≈ 0)
	GroundColor  core.Color // below the horizon (Y = -1)
}

const skyVertSrc = `#version 410 core
layout(location = 0) in vec3 inPosition;

uniform mat4 skyVP;

out vec3 fragDir;

void main() {
	fragDir = inPosition;
	vec4 pos = skyVP * vec4(inPosition, 1.0);
	gl_Position = pos.xyww;
}
` + "\x00"

// Above the horizon the gradient eases horizon→zenith with a power curve;
// below it the ground colour takes over within a narrow band.
const skyFragSrc = `#version 410 core
in vec3 fragDir;
out vec4 outColor;

uniform vec3 zenith;
uniform vec3 horizon;
uniform vec3 ground;

void main() {
	float t = normalize(fragDir).y;
	vec3 color;
	if (t >= 0.0) {
		color = mix(horizon, zenith, pow(t, 0.4));
	} else {
		color = mix(horizon, ground, min(-t * 3.0, 1.0));
	}
	outColor = vec4(color, 1.0);
}
` + "\x00"

// skyCubeVerts expands the six cube faces into 36 positions. The winding
// puts the inside faces toward the viewer, so no culling change is needed.
func skyCubeVerts() []float32 {
	corners := [8]mgl32.Vec3{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	}
	faces := [6][6]int{
		{0, 2, 1, 2, 0, 3}, // -Z
		{4, 5, 6, 6, 7, 4}, // +Z
		{7, 3, 0, 0, 4, 7}, // -X
		{6, 1, 2, 1, 6, 5}, // +X
		{0, 1, 5, 5, 4, 0}, // -Y
		{3, 6, 2, 6, 3, 7}, // +Y
	}

	out := make([]float32, 0, 36*3)
	for _, f := range faces {
		for _, ci := range f {
			c := corners[ci]
			out = append(out, c.X(), c.Y(), c.Z())
		}
	}
	return out
}

// NewSkybox compiles the gradient shader and uploads the cube geometry.
// The default colours are a blue sky over warm brown ground.
func NewSkybox() (*Skybox, error) {
	prog, err := newProgram(skyVertSrc, skyFragSrc)
	if err != nil {
		return nil, fmt.Errorf("skybox shader: %w", err)
	}

	sb := &Skybox{
		prog:       prog,
		vpLoc:      gl.GetUniformLocation(prog, gl.Str("skyVP\x00")),
		zenithLoc:  gl.GetUniformLocation(prog, gl.Str("zenith\x00")),
		horizonLoc: gl.GetUniformLocation(prog, gl.Str("horizon\x00")),
		groundLoc:  gl.GetUniformLocation(prog, gl.Str("ground\x00")),

		ZenithColor:  core.Color{R: 0.10, G: 0.30, B: 0.70, A: 1},
		HorizonColor: core.Color{R: 0.60, G: 0.80, B: 1.00, A: 1},
		GroundColor:  core.Color{R: 0.30, G: 0.25, B: 0.20, A: 1},
	}

	verts := skyCubeVerts()
	gl.GenVertexArrays(1, &sb.vao)
	gl.GenBuffers(1, &sb.vbo)
	gl.BindVertexArray(sb.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, sb.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, gl.Ptr(verts), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 12, gl.PtrOffset(0))
	gl.BindVertexArray(0)

	return sb, nil
}

// Draw renders the sky. skyVP is proj × view with the view translation
// stripped; the caller zeroes the translation column.
func (sb *Skybox) Draw(skyVP mgl32.Mat4) {
	// LEQUAL so depth-1.0 fragments pass against the cleared buffer, and no
	// depth writes so scene geometry keeps winning afterwards.
	gl.DepthFunc(gl.LEQUAL)
	gl.DepthMask(false)

	gl.UseProgram(sb.prog)
	gl.UniformMatrix4fv(sb.vpLoc, 1, false, &skyVP[0])
	gl.Uniform3f(sb.zenithLoc, sb.ZenithColor.R, sb.ZenithColor.G, sb.ZenithColor.B)
	gl.Uniform3f(sb.horizonLoc, sb.HorizonColor.R, sb.HorizonColor.G, sb.HorizonColor.B)
	gl.Uniform3f(sb.groundLoc, sb.GroundColor.R, sb.GroundColor.G, sb.GroundColor.B)

	gl.BindVertexArray(sb.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 36)
	gl.BindVertexArray(0)

	gl.DepthMask(true)
	gl.DepthFunc(gl.LESS)
}

// Destroy frees the skybox's GPU resources.
func (sb *Skybox) Destroy() {
	gl.DeleteVertexArrays(1, &sb.vao)
	gl.DeleteBuffers(1, &sb.vbo)
	gl.DeleteProgram(sb.prog)
}
