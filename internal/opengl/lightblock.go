package opengl

import (
	gl "github.com/go-gl/gl/v4.1-core/gl"

	"castlight/lighting"
	"castlight/shadow"
)

// std140 layout of the "Lights" uniform block (binding point 0). All
// offsets are in float32 units; every member is vec4/mat4 aligned so the
// Go-side packing and the GLSL struct agree exactly.
//
//	DirLight   { direction+cast; color+intensity; far+cascadeCount;
//	             splits[4] (16-byte stride); matrices[5] }           = 108
//	PointLight { position+cast; color+intensity;
//	             constant/linear/quadratic/radius; near/far }        = 16
//	SpotLight  { position+cast; direction+innerCutoff;
//	             color+intensity; constant/linear/quadratic/outer;
//	             radius/near; matrix }                               = 36
const (
	dirLightFloats   = 4 + 4 + 4 + (shadow.MaxCascades-1)*4 + shadow.MaxCascades*16
	pointLightFloats = 16
	spotLightFloats  = 36

	dirBase    = 0
	pointBase  = dirBase + shadow.MaxDirectionalLights*dirLightFloats
	spotBase   = pointBase + shadow.MaxPointLights*pointLightFloats
	countsBase = spotBase + shadow.MaxSpotLights*spotLightFloats

	lightBlockFloats = countsBase + 4
	lightBlockBytes  = lightBlockFloats * 4

	// LightBlockBinding is the uniform buffer binding point the main shader
	// declares for the Lights block.
	LightBlockBinding = 0
)

// LightBlock owns the uniform buffer holding all per-light data consumed by
// the resolve shader. The buffer is allocated once and rewritten each frame
// before the lighting draw calls.
type LightBlock struct {
	ubo uint32
	buf [lightBlockFloats]float32
}

func NewLightBlock() *LightBlock {
	b := &LightBlock{}
	gl.GenBuffers(1, &b.ubo)
	gl.BindBuffer(gl.UNIFORM_BUFFER, b.ubo)
	gl.BufferData(gl.UNIFORM_BUFFER, lightBlockBytes, nil, gl.DYNAMIC_DRAW)
	gl.BindBufferBase(gl.UNIFORM_BUFFER, LightBlockBinding, b.ubo)
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	return b
}

// Upload packs the light lists and rewrites the GPU buffer. Must not be
// called between a draw that reads the block and the end of the frame.
func (b *LightBlock) Upload(dirs []*lighting.DirectionalLight, points []*lighting.PointLight, spots []*lighting.SpotLight) {
	packLights(&b.buf, dirs, points, spots)
	gl.BindBuffer(gl.UNIFORM_BUFFER, b.ubo)
	gl.BufferSubData(gl.UNIFORM_BUFFER, 0, lightBlockBytes, gl.Ptr(&b.buf[0]))
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
}

func (b *LightBlock) Destroy() {
	if b.ubo != 0 {
		gl.DeleteBuffers(1, &b.ubo)
		b.ubo = 0
	}
}

func boolFloat(v bool) float32 {
	if v {
		return 1
	}
	return 0
}

// packLights serializes the light lists into the std140 buffer. Lists
// longer than the shader maxima are an upstream contract violation and are
// expected to have been rejected by the shadow prepasses already; here the
// extra entries are not written.
func packLights(buf *[lightBlockFloats]float32, dirs []*lighting.DirectionalLight, points []*lighting.PointLight, spots []*lighting.SpotLight) {
	for i := range buf {
		buf[i] = 0
	}

	nDir := min(len(dirs), shadow.MaxDirectionalLights)
	for i := 0; i < nDir; i++ {
		packDirLight(buf[dirBase+i*dirLightFloats:], dirs[i])
	}

	nPoint := min(len(points), shadow.MaxPointLights)
	for i := 0; i < nPoint; i++ {
		packPointLight(buf[pointBase+i*pointLightFloats:], points[i])
	}

	nSpot := min(len(spots), shadow.MaxSpotLights)
	for i := 0; i < nSpot; i++ {
		packSpotLight(buf[spotBase+i*spotLightFloats:], spots[i])
	}

	// Counts travel as floats; the shader casts back to int.
	buf[countsBase+0] = float32(nDir)
	buf[countsBase+1] = float32(nPoint)
	buf[countsBase+2] = float32(nSpot)
}

func packDirLight(out []float32, l *lighting.DirectionalLight) {
	out[0], out[1], out[2] = l.Direction.X(), l.Direction.Y(), l.Direction.Z()
	out[3] = boolFloat(l.CastShadow)
	out[4], out[5], out[6] = l.Color.X(), l.Color.Y(), l.Color.Z()
	out[7] = l.Intensity
	out[8] = l.ShadowFar
	out[9] = float32(l.CascadeCount())

	// splits: std140 float arrays have vec4 stride, so each split occupies
	// the .x of its own vec4 slot.
	for i, s := range l.CascadeSplits {
		if i >= shadow.MaxCascades-1 {
			break
		}
		out[12+i*4] = s
	}

	const matBase = 12 + (shadow.MaxCascades-1)*4
	for i, m := range l.Matrices {
		if i >= shadow.MaxCascades {
			break
		}
		copy(out[matBase+i*16:matBase+i*16+16], m[:])
	}
}

func packPointLight(out []float32, l *lighting.PointLight) {
	constant, linear, quadratic := l.Attenuation()

	out[0], out[1], out[2] = l.Position.X(), l.Position.Y(), l.Position.Z()
	out[3] = boolFloat(l.CastShadow)
	out[4], out[5], out[6] = l.Color.X(), l.Color.Y(), l.Color.Z()
	out[7] = l.Intensity
	out[8], out[9], out[10], out[11] = constant, linear, quadratic, l.Radius()
	out[12], out[13] = l.ShadowNear, l.ShadowFar
}

func packSpotLight(out []float32, l *lighting.SpotLight) {
	constant, linear, quadratic := l.Attenuation()

	out[0], out[1], out[2] = l.Position.X(), l.Position.Y(), l.Position.Z()
	out[3] = boolFloat(l.CastShadow)
	out[4], out[5], out[6] = l.Direction.X(), l.Direction.Y(), l.Direction.Z()
	out[7] = l.InnerCutoff
	out[8], out[9], out[10] = l.Color.X(), l.Color.Y(), l.Color.Z()
	out[11] = l.Intensity
	out[12], out[13], out[14], out[15] = constant, linear, quadratic, l.OuterCutoff
	out[16] = l.Radius()
	out[17] = l.ShadowNear
	copy(out[20:36], l.Matrix[:])
}
