// Package renderer is the high-level render engine: it owns the OpenGL
// backend and the shadow pipeline, and drives both from the scene graph
// every frame.
package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"castlight/core"
	"castlight/internal/opengl"
	"castlight/scene"
	"castlight/shadow"
)

// RenderConfig selects per-frame render behavior. The embedding application
// builds one each frame (from a debug UI, key toggles, whatever) and passes
// it to Render — the pipeline itself carries no mutable debug switches.
type RenderConfig struct {
	Shadows        bool // run the shadow prepasses (requires EnableShadows)
	FrustumCulling bool // skip draws whose AABB is outside the camera frustum
	DrawSkybox     bool // draw the gradient sky (requires EnableSkybox)
	DrawAABBs      bool // draw debug wireframe boxes around every node's AABB
}

// DefaultRenderConfig enables everything except debug visualization.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Shadows:        true,
		FrustumCulling: true,
		DrawSkybox:     true,
	}
}

// RenderEngine is the high-level renderer that drives the OpenGL backend
// and the shadow prepasses.
type RenderEngine struct {
	gl     *opengl.Renderer
	window *core.Window
	Scene  *scene.Scene

	ShadowsEnabled     bool // set by EnableShadows()
	PostProcessEnabled bool // set by EnablePostProcess()
	SkyboxEnabled      bool // set by EnableSkybox()

	shadowAlloc *shadow.Allocator
	shadowStack *shadow.Stack

	aabbMesh *scene.Mesh // unit-cube wireframe, created on first AABB draw

	// Per-frame stats (populated during Render)
	lastObjects   int
	lastVertices  int
	lastTriangles int
	lastCulled    int

	// Scratch slices reused across frames
	shadowItems []shadow.DrawItem
	instanced   []instancedBatch
}

// instancedBatch is one mesh drawn at many transforms, queued for the
// current frame by DrawMeshInstanced.
type instancedBatch struct {
	mesh   *scene.Mesh
	models []mgl32.Mat4
}

func NewRenderEngine(window *core.Window) (*RenderEngine, error) {
	glRenderer, err := opengl.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenGL renderer: %w", err)
	}

	glRenderer.SetViewport(window.Width, window.Height)

	fmt.Println("Render engine initialized (OpenGL)")
	return &RenderEngine{
		gl:     glRenderer,
		window: window,
	}, nil
}

// EnableSkybox creates the procedural gradient skybox.
// Call once after NewRenderEngine, before the first Render.
func (re *RenderEngine) EnableSkybox() error {
	if err := re.gl.EnableSkybox(); err != nil {
		return fmt.Errorf("skybox: %w", err)
	}
	re.SkyboxEnabled = true
	return nil
}

// SetSkyboxColors adjusts the three gradient stops and syncs IBL colours.
// zenith = overhead, horizon = eye-level, ground = below the horizon.
func (re *RenderEngine) SetSkyboxColors(zenith, horizon, ground core.Color) {
	if sb := re.gl.SkyboxRef(); sb != nil {
		sb.ZenithColor = zenith
		sb.HorizonColor = horizon
		sb.GroundColor = ground
	}
	// Keep IBL in sync with the skybox gradient
	re.gl.SetIBLColors(zenith, horizon, ground)
}

// SetFog configures exponential depth fog. density: 0.01=haze, 0.05=thick.
// color should match the horizon sky for natural blending.
func (re *RenderEngine) SetFog(enabled bool, density float32, color core.Color) {
	re.gl.SetFog(enabled, density, color)
}

// EnableIBL activates sky-based ambient irradiance for PBR and Phong shading.
// Call after NewRenderEngine; SetSkyboxColors must be called to supply colours.
func (re *RenderEngine) EnableIBL() {
	re.gl.EnableIBL()
}

// EnablePostProcess creates the HDR post-processing FBO at the current window size.
// Call once after NewRenderEngine, before the first Render.
func (re *RenderEngine) EnablePostProcess() error {
	if err := re.gl.EnablePostProcess(re.window.Width, re.window.Height); err != nil {
		return fmt.Errorf("post-process: %w", err)
	}
	re.PostProcessEnabled = true
	return nil
}

// SetExposure sets the HDR tone-mapping exposure (default 1.0).
func (re *RenderEngine) SetExposure(exp float32) {
	re.gl.SetExposure(exp)
}

// EnableBloom activates the bloom effect. EnablePostProcess must be called first.
func (re *RenderEngine) EnableBloom() error {
	return re.gl.EnableBloom()
}

// SetBloomThreshold sets the luminance cut-off for bloom (default 1.0).
func (re *RenderEngine) SetBloomThreshold(t float32) { re.gl.SetBloomThreshold(t) }

// SetBloomStrength sets the additive bloom multiplier (default 0.6).
func (re *RenderEngine) SetBloomStrength(s float32) { re.gl.SetBloomStrength(s) }

// EnableShadows creates the shadow map allocator and prepass pipeline with
// the given configuration. Pass shadow.DefaultConfig() for sane defaults.
// Call once after NewRenderEngine, before the first Render.
func (re *RenderEngine) EnableShadows(cfg shadow.Config) error {
	alloc, err := shadow.NewAllocator(cfg)
	if err != nil {
		return fmt.Errorf("shadows: %w", err)
	}
	stack, err := shadow.NewStack(alloc)
	if err != nil {
		alloc.Destroy()
		return fmt.Errorf("shadows: %w", err)
	}
	re.shadowAlloc = alloc
	re.shadowStack = stack
	re.ShadowsEnabled = true
	return nil
}

func (re *RenderEngine) SetScene(s *scene.Scene) {
	re.Scene = s
}

// Render draws one frame: shadow prepasses for every shadow-casting light,
// then the lighting resolve pass over all visible nodes. Call Present()
// afterwards to tone-map and swap buffers.
func (re *RenderEngine) Render(cfg RenderConfig) error {
	if re.Scene == nil || re.Scene.Camera == nil {
		return fmt.Errorf("no scene or camera")
	}
	cam := re.Scene.Camera
	view := cam.GetViewMatrix()
	proj := cam.GetProjectionMatrix()
	vp := proj.Mul4(view)

	// Stream instance buffers once; the shadow prepasses and the main pass
	// read the same per-instance model matrices from the VAO.
	for _, b := range re.instanced {
		re.gl.UploadInstances(b.mesh, vp, b.models)
	}

	// ── Shadow prepasses ──────────────────────────────────────────────────────
	doShadows := cfg.Shadows && re.ShadowsEnabled && re.shadowStack != nil
	if doShadows {
		re.shadowItems = re.shadowItems[:0]
		for _, node := range re.Scene.GetVisibleNodes() {
			item, ok := re.gl.ShadowItem(node.Mesh, node.GetWorldMatrix())
			if !ok {
				continue
			}
			re.shadowItems = append(re.shadowItems, item)
		}
		for _, b := range re.instanced {
			item, ok := re.gl.InstancedShadowItem(b.mesh)
			if !ok {
				continue
			}
			re.shadowItems = append(re.shadowItems, item)
		}

		re.shadowStack.PrepareState()
		re.shadowStack.DirectionalShadowPrepass(cam, re.Scene.Directional, re.shadowItems)
		re.shadowStack.OmnidirectionalShadowPrepass(re.Scene.Point, re.shadowItems)
		re.shadowStack.PerspectiveShadowPrepass(re.Scene.Spot, re.shadowItems)
		re.shadowStack.ResetState()
	}

	// ── Lighting resolve pass ─────────────────────────────────────────────────
	for _, pl := range re.Scene.Point {
		pl.UpdateViewPosition(view)
	}

	re.gl.BeginFrame(re.Scene.SkyColor, re.Scene.Ambient, cam.Position, view)
	re.gl.UploadLights(re.Scene.Directional, re.Scene.Point, re.Scene.Spot)
	re.gl.BindShadowMaps(re.shadowAlloc, doShadows)

	// Draw skybox first (depth=1.0 via xyww, before all scene geometry)
	if cfg.DrawSkybox {
		re.gl.DrawSkybox(view, proj)
	}

	frustum := scene.FrustumFromVP(vp)

	objects, vertices, triangles, culled := 0, 0, 0, 0

	for _, node := range re.Scene.GetVisibleNodes() {
		model := node.GetWorldMatrix()

		// Frustum culling: skip draw if AABB is completely outside the frustum
		if cfg.FrustumCulling {
			aabb := scene.ComputeAABB(node.Mesh, model)
			if !aabb.IntersectsFrustum(&frustum) {
				culled++
				continue
			}
		}

		mvp := vp.Mul4(model)
		re.gl.DrawMesh(node.Mesh, mvp, model)

		objects++
		vertices += len(node.Mesh.Vertices)
		triangles += len(node.Mesh.Indices) / 3
	}

	// Instanced batches are drawn whole, without per-instance culling.
	for _, b := range re.instanced {
		re.gl.DrawInstances(b.mesh)
		n := len(b.models)
		objects += n
		vertices += len(b.mesh.Vertices) * n
		triangles += len(b.mesh.Indices) / 3 * n
	}
	re.instanced = re.instanced[:0]

	re.lastObjects = objects
	re.lastVertices = vertices
	re.lastTriangles = triangles
	re.lastCulled = culled

	if cfg.DrawAABBs {
		re.drawAABBs(vp)
	}

	return nil
}

// Present resolves the HDR FBO (tone mapping, bloom) to the default
// framebuffer and swaps buffers. Call after Render() and any additional
// draw passes.
func (re *RenderEngine) Present() {
	re.gl.BlitPostProcess()
	re.window.SwapBuffers()
}

func (re *RenderEngine) Resize(width, height uint32) {
	re.gl.SetViewport(int(width), int(height))
	if re.PostProcessEnabled {
		re.gl.ResizePostProcess(int(width), int(height))
	}
	if re.Scene != nil && re.Scene.Camera != nil {
		re.Scene.Camera.UpdateAspectRatio(float32(width), float32(height))
	}
}

// DrawMeshInstanced queues mesh to be drawn at every transform in models
// using a single GPU draw call. This is orders of magnitude faster than
// individual AddNode calls for large repeated geometry (grass, trees,
// rocks, crowds).
//
// The mesh must not be part of the scene graph — call this every frame
// before Render(). The batch is included in the shadow prepasses (so the
// instances cast shadows) and drawn after the scene-graph nodes; the queue
// empties each Render.
func (re *RenderEngine) DrawMeshInstanced(mesh *scene.Mesh, models []mgl32.Mat4) {
	if mesh == nil || len(models) == 0 {
		return
	}
	re.instanced = append(re.instanced, instancedBatch{mesh: mesh, models: models})
}

// SetWireframe toggles wireframe rendering mode on/off.
func (re *RenderEngine) SetWireframe(enabled bool) {
	re.gl.SetWireframe(enabled)
}

// IsWireframe returns whether wireframe mode is currently active.
func (re *RenderEngine) IsWireframe() bool {
	return re.gl.IsWireframe()
}

// UploadTexture uploads a texture to the GPU. Must be called from the main thread.
func (re *RenderEngine) UploadTexture(tex *scene.Texture) error {
	return opengl.UploadTexture(tex)
}

// DeleteTexture frees a previously uploaded GPU texture.
func (re *RenderEngine) DeleteTexture(tex *scene.Texture) {
	opengl.DeleteTexture(tex)
}

func (re *RenderEngine) Destroy() {
	if re.shadowStack != nil {
		re.shadowStack.Destroy()
	}
	if re.shadowAlloc != nil {
		re.shadowAlloc.Destroy()
	}
	re.gl.Destroy()
}

// DrawStats returns stats from the most recent Render call.
func (re *RenderEngine) DrawStats() (objects, vertices, triangles, culled int) {
	return re.lastObjects, re.lastVertices, re.lastTriangles, re.lastCulled
}

// drawAABBs draws a wireframe unit-cube scaled/translated to each visible
// node's world-space AABB. The unit-box mesh is created lazily on first call.
func (re *RenderEngine) drawAABBs(vp mgl32.Mat4) {
	if re.aabbMesh == nil {
		re.aabbMesh = scene.CreateUnitBoxWireframe()
	}

	for _, node := range re.Scene.GetVisibleNodes() {
		worldMat := node.GetWorldMatrix()
		aabb := scene.ComputeAABB(node.Mesh, worldMat)

		// Scale+translate mapping the unit cube (±1) onto the AABB.
		center := aabb.Min.Add(aabb.Max).Mul(0.5)
		half := aabb.Max.Sub(aabb.Min).Mul(0.5)
		aabbModel := mgl32.Translate3D(center.X(), center.Y(), center.Z()).
			Mul4(mgl32.Scale3D(half.X(), half.Y(), half.Z()))

		re.gl.DrawMesh(re.aabbMesh, vp.Mul4(aabbModel), mgl32.Ident4())
	}
}
