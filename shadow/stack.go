package shadow

import (
	"fmt"
	"log"
	"math"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"castlight/lighting"
	"castlight/scene"
)

// spotFOVMargin widens the spot shadow projection slightly past the outer
// cone so PCF filtering near the penumbra edge never samples outside the map.
const spotFOVMargin = 1.05

// DrawItem is one depth-pass draw call: a mesh already resident on the GPU
// plus its model matrix. Non-indexed meshes leave IndexCount at zero and set
// VertexCount. Instanced items carry the model matrices in the VAO's
// per-instance attributes instead.
type DrawItem struct {
	VAO         uint32
	IndexCount  int32
	VertexCount int32
	Model       mgl32.Mat4

	Instanced     bool
	InstanceCount int32
}

type stackState int

const (
	stateIdle stackState = iota
	statePrepared
)

// Stack runs the shadow prepasses. The call sequence per frame is:
//
//	stack.PrepareState()
//	stack.DirectionalShadowPrepass(cam, dirLights, items)
//	stack.OmnidirectionalShadowPrepass(pointLights, items)
//	stack.PerspectiveShadowPrepass(spotLights, items)
//	stack.ResetState()
//
// Prepasses must run between PrepareState and ResetState; they bind their
// own framebuffers and programs but leave all other GPU state alone.
// Contract violations (too many lights, malformed splits, prepass outside
// the prepared state) panic: partial shadow data is worse during
// development than an obvious crash.
type Stack struct {
	alloc *Allocator
	cfg   Config
	state stackState

	planarSingle    depthProgram
	planarInstanced depthProgram
	distSingle      depthProgram
	distInstanced   depthProgram

	savedViewport [4]int32
}

// NewStack compiles the depth programs against the given allocator's targets.
func NewStack(alloc *Allocator) (*Stack, error) {
	s := &Stack{alloc: alloc, cfg: alloc.Config()}

	var err error
	if s.planarSingle, err = newDepthProgram(depthVertSingle, depthFragPlanar); err != nil {
		return nil, fmt.Errorf("planar depth program: %w", err)
	}
	if s.planarInstanced, err = newDepthProgram(depthVertInstanced, depthFragPlanar); err != nil {
		s.Destroy()
		return nil, fmt.Errorf("planar instanced depth program: %w", err)
	}
	if s.distSingle, err = newDepthProgram(depthVertSingle, depthFragDistance); err != nil {
		s.Destroy()
		return nil, fmt.Errorf("distance depth program: %w", err)
	}
	if s.distInstanced, err = newDepthProgram(depthVertInstanced, depthFragDistance); err != nil {
		s.Destroy()
		return nil, fmt.Errorf("distance instanced depth program: %w", err)
	}
	return s, nil
}

// PrepareState captures the current viewport and switches the pipeline into
// depth-only rendering: color writes off, front-face culling (reduces acne
// on closed meshes), shadow-map viewport.
func (s *Stack) PrepareState() {
	if s.state != stateIdle {
		log.Panic("shadow: PrepareState called while already prepared")
	}
	gl.GetIntegerv(gl.VIEWPORT, &s.savedViewport[0])

	gl.ColorMask(false, false, false, false)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthMask(true)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.FRONT)
	gl.Viewport(0, 0, s.cfg.Resolution, s.cfg.Resolution)

	s.state = statePrepared
}

// ResetState restores the state captured by PrepareState and unbinds the
// last shadow framebuffer.
func (s *Stack) ResetState() {
	if s.state != statePrepared {
		log.Panic("shadow: ResetState called without PrepareState")
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.ColorMask(true, true, true, true)
	gl.CullFace(gl.BACK)
	gl.Viewport(s.savedViewport[0], s.savedViewport[1], s.savedViewport[2], s.savedViewport[3])

	s.state = stateIdle
}

// DirectionalShadowPrepass renders the cascade maps for every shadow-casting
// directional light and stores the fitted light matrices on the light,
// indexed near-to-far to match the split list consumed by the resolve shader.
func (s *Stack) DirectionalShadowPrepass(cam *scene.Camera, lights []*lighting.DirectionalLight, items []DrawItem) {
	s.requirePrepared("DirectionalShadowPrepass")
	if len(lights) > s.cfg.Directional {
		log.Panicf("shadow: %d directional lights exceed configured capacity %d", len(lights), s.cfg.Directional)
	}

	for slot, l := range lights {
		if !l.CastShadow {
			continue
		}
		if len(l.CascadeSplits)+1 != s.cfg.Cascades {
			log.Panicf("shadow: light has %d cascades, allocator has %d layers",
				len(l.CascadeSplits)+1, s.cfg.Cascades)
		}

		// All validation (split ordering, singular matrices) happens in
		// here before any framebuffer is touched.
		matrices := DirectionalCascadeMatrices(cam, l)

		for cascade, m := range matrices {
			s.alloc.bindCascadeLayer(slot, cascade)
			gl.Clear(gl.DEPTH_BUFFER_BIT)
			s.drawItems(&s.planarSingle, &s.planarInstanced, m, items)
		}
		l.Matrices = matrices
	}
}

// OmnidirectionalShadowPrepass renders the six cube faces for every
// shadow-casting point light. Nothing is stored on the light: the resolve
// shader reconstructs the light-to-fragment direction per fragment.
func (s *Stack) OmnidirectionalShadowPrepass(lights []*lighting.PointLight, items []DrawItem) {
	s.requirePrepared("OmnidirectionalShadowPrepass")
	if len(lights) > s.cfg.Point {
		log.Panicf("shadow: %d point lights exceed configured capacity %d", len(lights), s.cfg.Point)
	}

	proj := func(near, far float32) mgl32.Mat4 {
		return mgl32.Perspective(math.Pi/2, 1, near, far)
	}

	for slot, l := range lights {
		if !l.CastShadow {
			continue
		}
		p := proj(l.ShadowNear, l.ShadowFar)
		for face := 0; face < 6; face++ {
			view := cubeFaceView(l.Position, face)
			s.alloc.bindCubeFace(slot, face)
			gl.Clear(gl.DEPTH_BUFFER_BIT)

			s.setPointUniforms(&s.distSingle, l)
			s.setPointUniforms(&s.distInstanced, l)
			s.drawItems(&s.distSingle, &s.distInstanced, p.Mul4(view), items)
		}
	}
}

// PerspectiveShadowPrepass renders the single shadow map for every
// shadow-casting spot light and stores the light matrix on the light.
func (s *Stack) PerspectiveShadowPrepass(lights []*lighting.SpotLight, items []DrawItem) {
	s.requirePrepared("PerspectiveShadowPrepass")
	if len(lights) > s.cfg.Spot {
		log.Panicf("shadow: %d spot lights exceed configured capacity %d", len(lights), s.cfg.Spot)
	}

	for slot, l := range lights {
		if !l.CastShadow {
			continue
		}
		fov := 2 * float32(math.Acos(float64(l.OuterCutoff))) * spotFOVMargin
		if fov >= math.Pi {
			fov = math.Pi - 0.01
		}
		proj := mgl32.Perspective(fov, 1, l.ShadowNear, l.Radius())
		view := lightLookAt(l.Position, l.Direction)
		m := proj.Mul4(view)

		s.alloc.bindSpot(slot)
		gl.Clear(gl.DEPTH_BUFFER_BIT)
		s.drawItems(&s.planarSingle, &s.planarInstanced, m, items)

		l.Matrix = m
	}
}

// Destroy frees the depth programs. The allocator is owned by the caller.
func (s *Stack) Destroy() {
	s.planarSingle.destroy()
	s.planarInstanced.destroy()
	s.distSingle.destroy()
	s.distInstanced.destroy()
}

func (s *Stack) requirePrepared(op string) {
	if s.state != statePrepared {
		log.Panicf("shadow: %s called outside PrepareState/ResetState", op)
	}
}

func (s *Stack) setPointUniforms(p *depthProgram, l *lighting.PointLight) {
	gl.UseProgram(p.id)
	gl.Uniform3f(p.lightPosLoc, l.Position.X(), l.Position.Y(), l.Position.Z())
	gl.Uniform1f(p.farPlaneLoc, l.ShadowFar)
}

// drawItems issues every draw call with the given light matrix, switching
// between the single and instanced program per item.
func (s *Stack) drawItems(single, instanced *depthProgram, lightMatrix mgl32.Mat4, items []DrawItem) {
	for i := range items {
		it := &items[i]
		if it.Instanced {
			gl.UseProgram(instanced.id)
			gl.UniformMatrix4fv(instanced.lightMatrixLoc, 1, false, &lightMatrix[0])
			gl.BindVertexArray(it.VAO)
			if it.IndexCount > 0 {
				gl.DrawElementsInstanced(gl.TRIANGLES, it.IndexCount, gl.UNSIGNED_INT, nil, it.InstanceCount)
			} else {
				gl.DrawArraysInstanced(gl.TRIANGLES, 0, it.VertexCount, it.InstanceCount)
			}
		} else {
			gl.UseProgram(single.id)
			gl.UniformMatrix4fv(single.lightMatrixLoc, 1, false, &lightMatrix[0])
			gl.UniformMatrix4fv(single.modelLoc, 1, false, &it.Model[0])
			gl.BindVertexArray(it.VAO)
			if it.IndexCount > 0 {
				gl.DrawElements(gl.TRIANGLES, it.IndexCount, gl.UNSIGNED_INT, nil)
			} else {
				gl.DrawArrays(gl.TRIANGLES, 0, it.VertexCount)
			}
		}
	}
	gl.BindVertexArray(0)
}

// cubeFaceView returns the view matrix for one cube map face, in
// TEXTURE_CUBE_MAP_POSITIVE_X order with the conventional flipped up
// vectors so faces sample correctly.
func cubeFaceView(pos mgl32.Vec3, face int) mgl32.Mat4 {
	type faceDef struct{ target, up mgl32.Vec3 }
	faces := [6]faceDef{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, -1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, -1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, -1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, -1, 0}},
	}
	f := faces[face]
	return mgl32.LookAtV(pos, pos.Add(f.target), f.up)
}

// lightLookAt builds a view matrix at eye looking along dir, guarding
// against directions parallel to the default up vector.
func lightLookAt(eye, dir mgl32.Vec3) mgl32.Mat4 {
	if dir.LenSqr() == 0 {
		log.Panic("shadow: zero-length light direction")
	}
	d := dir.Normalize()
	up := mgl32.Vec3{0, 1, 0}
	if mgl32.Abs(d.Dot(up)) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}
	return mgl32.LookAtV(eye, eye.Add(d), up)
}
