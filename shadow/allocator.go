package shadow

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

// cascadeTarget is the shadow render target for one directional light: a
// depth texture array with one layer per cascade, plus one FBO per layer.
type cascadeTarget struct {
	Tex    uint32   // TEXTURE_2D_ARRAY, DEPTH_COMPONENT32F
	FBOs   []uint32 // one per cascade layer
	Layers int
}

// cubeTarget is the shadow render target for one point light: a depth cube
// map with one FBO per face. The depth shader writes normalized
// light-to-fragment distance, so no hardware compare mode is set.
type cubeTarget struct {
	Tex  uint32 // TEXTURE_CUBE_MAP, DEPTH_COMPONENT32F
	FBOs [6]uint32
}

// spotTarget is a single 2D depth map with hardware PCF.
type spotTarget struct {
	Tex uint32
	FBO uint32
}

// Allocator owns every shadow map the pipeline will ever use. All GPU
// storage is created once at construction; a frame can use fewer lights
// than configured but never more.
type Allocator struct {
	cfg Config

	cascades []cascadeTarget
	cubes    []cubeTarget
	spots    []spotTarget
}

// NewAllocator validates cfg and creates all depth targets. Any framebuffer
// that fails to reach FRAMEBUFFER_COMPLETE makes construction fail; there is
// no partial allocation.
func NewAllocator(cfg Config) (*Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Allocator{cfg: cfg}

	for i := 0; i < cfg.Directional; i++ {
		t, err := newCascadeTarget(cfg.Resolution, cfg.Cascades)
		if err != nil {
			a.Destroy()
			return nil, fmt.Errorf("directional target %d: %w", i, err)
		}
		a.cascades = append(a.cascades, t)
	}
	for i := 0; i < cfg.Point; i++ {
		t, err := newCubeTarget(cfg.Resolution)
		if err != nil {
			a.Destroy()
			return nil, fmt.Errorf("point target %d: %w", i, err)
		}
		a.cubes = append(a.cubes, t)
	}
	for i := 0; i < cfg.Spot; i++ {
		t, err := newSpotTarget(cfg.Resolution)
		if err != nil {
			a.Destroy()
			return nil, fmt.Errorf("spot target %d: %w", i, err)
		}
		a.spots = append(a.spots, t)
	}

	a.clearAll()
	return a, nil
}

func (a *Allocator) Config() Config { return a.cfg }

// CascadeTexture returns the depth array texture for directional slot i.
func (a *Allocator) CascadeTexture(i int) uint32 { return a.cascades[i].Tex }

// CubeTexture returns the depth cube map for point slot i.
func (a *Allocator) CubeTexture(i int) uint32 { return a.cubes[i].Tex }

// SpotTexture returns the depth map for spot slot i.
func (a *Allocator) SpotTexture(i int) uint32 { return a.spots[i].Tex }

// bindCascadeLayer makes one cascade layer the active depth render target.
func (a *Allocator) bindCascadeLayer(slot, layer int) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, a.cascades[slot].FBOs[layer])
}

// bindCubeFace makes one cube face the active depth render target.
// face is 0..5 in TEXTURE_CUBE_MAP_POSITIVE_X order.
func (a *Allocator) bindCubeFace(slot, face int) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, a.cubes[slot].FBOs[face])
}

func (a *Allocator) bindSpot(slot int) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, a.spots[slot].FBO)
}

// clearAll initializes every map to depth 1.0 so that unused light slots
// sampled by the resolve shader read as fully lit.
func (a *Allocator) clearAll() {
	gl.ClearDepth(1)
	for i := range a.cascades {
		for layer := range a.cascades[i].FBOs {
			a.bindCascadeLayer(i, layer)
			gl.Clear(gl.DEPTH_BUFFER_BIT)
		}
	}
	for i := range a.cubes {
		for face := 0; face < 6; face++ {
			a.bindCubeFace(i, face)
			gl.Clear(gl.DEPTH_BUFFER_BIT)
		}
	}
	for i := range a.spots {
		a.bindSpot(i)
		gl.Clear(gl.DEPTH_BUFFER_BIT)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// Destroy frees all GPU resources. Safe to call on a partially built allocator.
func (a *Allocator) Destroy() {
	for i := range a.cascades {
		t := &a.cascades[i]
		if len(t.FBOs) > 0 {
			gl.DeleteFramebuffers(int32(len(t.FBOs)), &t.FBOs[0])
		}
		if t.Tex != 0 {
			gl.DeleteTextures(1, &t.Tex)
		}
	}
	for i := range a.cubes {
		t := &a.cubes[i]
		gl.DeleteFramebuffers(6, &t.FBOs[0])
		if t.Tex != 0 {
			gl.DeleteTextures(1, &t.Tex)
		}
	}
	for i := range a.spots {
		t := &a.spots[i]
		if t.FBO != 0 {
			gl.DeleteFramebuffers(1, &t.FBO)
		}
		if t.Tex != 0 {
			gl.DeleteTextures(1, &t.Tex)
		}
	}
	a.cascades, a.cubes, a.spots = nil, nil, nil
}

func newCascadeTarget(size int32, layers int) (cascadeTarget, error) {
	t := cascadeTarget{Layers: layers}

	gl.GenTextures(1, &t.Tex)
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, t.Tex)
	gl.TexImage3D(gl.TEXTURE_2D_ARRAY, 0, gl.DEPTH_COMPONENT32F,
		size, size, int32(layers), 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	// Fragments outside the map are lit (border depth = 1.0)
	border := [4]float32{1, 1, 1, 1}
	gl.TexParameterfv(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_BORDER_COLOR, &border[0])
	// Hardware PCF: sampler2DArrayShadow returns the comparison result
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_COMPARE_FUNC, gl.LEQUAL)

	t.FBOs = make([]uint32, layers)
	gl.GenFramebuffers(int32(layers), &t.FBOs[0])
	for layer := 0; layer < layers; layer++ {
		gl.BindFramebuffer(gl.FRAMEBUFFER, t.FBOs[layer])
		gl.FramebufferTextureLayer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, t.Tex, 0, int32(layer))
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)

		if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
			gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
			gl.DeleteFramebuffers(int32(layers), &t.FBOs[0])
			gl.DeleteTextures(1, &t.Tex)
			return cascadeTarget{}, fmt.Errorf("cascade layer %d FBO incomplete: status=0x%X", layer, status)
		}
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, 0)
	return t, nil
}

func newCubeTarget(size int32) (cubeTarget, error) {
	var t cubeTarget

	gl.GenTextures(1, &t.Tex)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, t.Tex)
	for face := 0; face < 6; face++ {
		gl.TexImage2D(uint32(gl.TEXTURE_CUBE_MAP_POSITIVE_X+face), 0, gl.DEPTH_COMPONENT32F,
			size, size, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	}
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	// The cube stores normalized light-to-fragment distance written by the
	// point depth shader, compared in the resolve shader, so no hardware
	// compare mode here.

	gl.GenFramebuffers(6, &t.FBOs[0])
	for face := 0; face < 6; face++ {
		gl.BindFramebuffer(gl.FRAMEBUFFER, t.FBOs[face])
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT,
			uint32(gl.TEXTURE_CUBE_MAP_POSITIVE_X+face), t.Tex, 0)
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)

		if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
			gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
			gl.DeleteFramebuffers(6, &t.FBOs[0])
			gl.DeleteTextures(1, &t.Tex)
			return cubeTarget{}, fmt.Errorf("cube face %d FBO incomplete: status=0x%X", face, status)
		}
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, 0)
	return t, nil
}

func newSpotTarget(size int32) (spotTarget, error) {
	var t spotTarget

	gl.GenTextures(1, &t.Tex)
	gl.BindTexture(gl.TEXTURE_2D, t.Tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT32F,
		size, size, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	border := [4]float32{1, 1, 1, 1}
	gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &border[0])
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_FUNC, gl.LEQUAL)

	gl.GenFramebuffers(1, &t.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.FBO)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, t.Tex, 0)
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &t.FBO)
		gl.DeleteTextures(1, &t.Tex)
		return spotTarget{}, fmt.Errorf("spot FBO incomplete: status=0x%X", status)
	}
	return t, nil
}
