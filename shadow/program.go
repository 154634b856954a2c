package shadow

import (
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

// Depth-only shader sources. The planar variants write gl_Position depth
// only (directional cascades and spot maps); the distance variants write
// normalized light-to-fragment distance into gl_FragDepth (point cubes).
// Instanced variants read the model matrix from per-instance vertex
// attributes 10-13, matching the instance buffer layout of the main pass.

const depthVertSingle = `#version 410 core
layout(location = 0) in vec3 inPosition;

uniform mat4 uLightMatrix;
uniform mat4 uModel;

out vec3 vWorldPos;

void main() {
	vec4 world = uModel * vec4(inPosition, 1.0);
	vWorldPos = world.xyz;
	gl_Position = uLightMatrix * world;
}
` + "\x00"

const depthVertInstanced = `#version 410 core
layout(location = 0) in vec3 inPosition;
layout(location = 10) in vec4 instModel0;
layout(location = 11) in vec4 instModel1;
layout(location = 12) in vec4 instModel2;
layout(location = 13) in vec4 instModel3;

uniform mat4 uLightMatrix;

out vec3 vWorldPos;

void main() {
	mat4 model = mat4(instModel0, instModel1, instModel2, instModel3);
	vec4 world = model * vec4(inPosition, 1.0);
	vWorldPos = world.xyz;
	gl_Position = uLightMatrix * world;
}
` + "\x00"

const depthFragPlanar = `#version 410 core
in vec3 vWorldPos;

void main() {
	// depth written by the fixed-function pipeline
}
` + "\x00"

const depthFragDistance = `#version 410 core
in vec3 vWorldPos;

uniform vec3 uLightPos;
uniform float uFarPlane;

void main() {
	gl_FragDepth = length(vWorldPos - uLightPos) / uFarPlane;
}
` + "\x00"

// depthProgram is one compiled depth-pass shader with its uniform locations.
// modelLoc is -1 for instanced variants; lightPosLoc/farPlaneLoc are -1 for
// planar variants.
type depthProgram struct {
	id             uint32
	lightMatrixLoc int32
	modelLoc       int32
	lightPosLoc    int32
	farPlaneLoc    int32
}

func newDepthProgram(vertSrc, fragSrc string) (depthProgram, error) {
	id, err := newProgram(vertSrc, fragSrc)
	if err != nil {
		return depthProgram{}, err
	}
	return depthProgram{
		id:             id,
		lightMatrixLoc: gl.GetUniformLocation(id, gl.Str("uLightMatrix\x00")),
		modelLoc:       gl.GetUniformLocation(id, gl.Str("uModel\x00")),
		lightPosLoc:    gl.GetUniformLocation(id, gl.Str("uLightPos\x00")),
		farPlaneLoc:    gl.GetUniformLocation(id, gl.Str("uFarPlane\x00")),
	}, nil
}

func (p *depthProgram) destroy() {
	if p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
}

func newProgram(vertSrc, fragSrc string) (uint32, error) {
	vert, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex: %w", err)
	}
	frag, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("fragment: %w", err)
	}

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vert)
	gl.AttachShader(prog, frag)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		return 0, fmt.Errorf("link failed: %v", log)
	}

	gl.DeleteShader(vert)
	gl.DeleteShader(frag)
	return prog, nil
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src)
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		return 0, fmt.Errorf("compile failed: %v", log)
	}
	return shader, nil
}
