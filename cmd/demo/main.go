// Demo: a lit courtyard with a full day/night cycle. Shows cascaded sun
// shadows, cube-map point-light shadows, a spot light, instanced geometry,
// HDR post-processing with bloom, and optional glTF model loading.
//
// Usage:
//
//	demo [model.gltf|model.glb]
//
// Controls:
//
//	right mouse drag  look around
//	W/A/S/D + Q/E     fly
//	T                 pause/resume the day/night cycle
//	F                 toggle wireframe
//	C                 toggle frustum culling
//	1                 toggle AABB debug boxes
//	Esc               quit
package main

import (
	"fmt"
	stdmath "math"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"castlight/core"
	"castlight/lighting"
	"castlight/renderer"
	"castlight/scene"
	"castlight/shadow"
)

// FlyCamera handles mouse look and WASD flight.
type FlyCamera struct {
	moveSpeed  float32
	lookSpeed  float32
	lastMouseX float64
	lastMouseY float64
	firstMouse bool
	yaw        float32 // degrees
	pitch      float32 // degrees
}

func NewFlyCamera() *FlyCamera {
	return &FlyCamera{
		moveSpeed:  8.0,
		lookSpeed:  0.15,
		firstMouse: true,
		yaw:        -90.0,
	}
}

func (fc *FlyCamera) Update(window *core.Window, camera *scene.Camera, dt float32) {
	if dt > 0.05 {
		dt = 0.05 // cap to avoid huge steps on hitches
	}

	// Mouse look (right mouse drag)
	if window.IsMouseButtonPressed(1) {
		mouseX, mouseY := window.GetCursorPos()
		if fc.firstMouse {
			fc.lastMouseX, fc.lastMouseY = mouseX, mouseY
			fc.firstMouse = false
		}
		fc.yaw += float32(mouseX-fc.lastMouseX) * fc.lookSpeed
		fc.pitch += float32(fc.lastMouseY-mouseY) * fc.lookSpeed
		if fc.pitch > 88 {
			fc.pitch = 88
		}
		if fc.pitch < -88 {
			fc.pitch = -88
		}
		fc.lastMouseX, fc.lastMouseY = mouseX, mouseY
	} else {
		fc.firstMouse = true
	}

	yawRad := float64(mgl32.DegToRad(fc.yaw))
	pitchRad := float64(mgl32.DegToRad(fc.pitch))
	forward := mgl32.Vec3{
		float32(stdmath.Cos(yawRad) * stdmath.Cos(pitchRad)),
		float32(stdmath.Sin(pitchRad)),
		float32(stdmath.Sin(yawRad) * stdmath.Cos(pitchRad)),
	}.Normalize()
	right := forward.Cross(mgl32.Vec3{0, 1, 0}).Normalize()

	speed := fc.moveSpeed
	if window.IsKeyPressed(core.KeyShift) {
		speed *= 3
	}
	move := mgl32.Vec3{}
	if window.IsKeyPressed(core.KeyW) {
		move = move.Add(forward)
	}
	if window.IsKeyPressed(core.KeyS) {
		move = move.Sub(forward)
	}
	if window.IsKeyPressed(core.KeyD) {
		move = move.Add(right)
	}
	if window.IsKeyPressed(core.KeyA) {
		move = move.Sub(right)
	}
	if window.IsKeyPressed(core.KeyE) {
		move = move.Add(mgl32.Vec3{0, 1, 0})
	}
	if window.IsKeyPressed(core.KeyQ) {
		move = move.Sub(mgl32.Vec3{0, 1, 0})
	}
	if move.LenSqr() > 0 {
		camera.SetPosition(camera.Position.Add(move.Normalize().Mul(speed * dt)))
	}

	camera.LookAt(camera.Position.Add(forward), mgl32.Vec3{0, 1, 0})
}

func main() {
	fmt.Println("Starting shadow showcase...")

	windowConfig := core.DefaultWindowConfig()
	windowConfig.Title = "castlight - shadow showcase"

	window, err := core.NewWindow(windowConfig)
	if err != nil {
		fmt.Printf("Failed to create window: %v\n", err)
		return
	}
	defer window.Destroy()

	engine, err := renderer.NewRenderEngine(window)
	if err != nil {
		fmt.Printf("Failed to create render engine: %v\n", err)
		return
	}
	defer engine.Destroy()

	// Shadow pipeline: 2048² maps, 3+1 sun cascades, 4 point cubes, 4 spot maps
	shadowCfg := shadow.DefaultConfig()
	if err := engine.EnableShadows(shadowCfg); err != nil {
		fmt.Printf("Shadow init failed (continuing without shadows): %v\n", err)
	} else {
		fmt.Printf("Shadows enabled (%dx%d, %d cascades, %d point, %d spot)\n",
			shadowCfg.Resolution, shadowCfg.Resolution,
			shadowCfg.Cascades, shadowCfg.Point, shadowCfg.Spot)
	}

	if err := engine.EnablePostProcess(); err != nil {
		fmt.Printf("Post-process init failed (continuing without it): %v\n", err)
	} else if err := engine.EnableBloom(); err != nil {
		fmt.Printf("Bloom init failed (continuing without it): %v\n", err)
	}

	if err := engine.EnableSkybox(); err != nil {
		fmt.Printf("Skybox init failed (continuing without it): %v\n", err)
	}
	engine.EnableIBL()

	// ── Scene setup ───────────────────────────────────────────────────────────
	s := scene.NewScene()

	camera := scene.NewCamera(float32(stdmath.Pi)/3, 16.0/9.0, 0.1, 500.0)
	camera.SetPosition(mgl32.Vec3{0, 4, 18})
	camera.LookAt(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 1, 0})
	s.SetCamera(camera)
	engine.SetScene(s)

	// ── Lights ────────────────────────────────────────────────────────────────
	// Sun: three interior splits → four cascade slices matching DefaultConfig
	sun, err := lighting.NewDirectionalLight(mgl32.Vec3{-0.4, -1, -0.3}, []float32{12, 40, 120}, 300)
	if err != nil {
		fmt.Printf("sun: %v\n", err)
		return
	}
	sun.ZNearOffset = 10 // widen toward the light so off-screen casters still shadow
	s.AddDirectionalLight(sun)

	// Two orbiting point lights with cube shadows
	lampA, _ := lighting.NewPointLight(mgl32.Vec3{6, 3, 0}, 18)
	lampA.Color = mgl32.Vec3{1.0, 0.55, 0.25}
	lampA.Intensity = 6
	s.AddPointLight(lampA)

	lampB, _ := lighting.NewPointLight(mgl32.Vec3{-6, 3, 0}, 15)
	lampB.Color = mgl32.Vec3{0.3, 0.6, 1.0}
	lampB.Intensity = 5
	s.AddPointLight(lampB)

	// Spot light pointed at the central sphere cluster
	spot, err := lighting.NewSpotLight(
		mgl32.Vec3{0, 9, 8}, mgl32.Vec3{0, -0.8, -0.6},
		cosDeg(14), cosDeg(22), 40)
	if err != nil {
		fmt.Printf("spot: %v\n", err)
		return
	}
	spot.Color = mgl32.Vec3{1.0, 0.95, 0.8}
	spot.Intensity = 10
	s.AddSpotLight(spot)

	// ── Geometry ──────────────────────────────────────────────────────────────
	ground := scene.CreatePlane(80, 80, 8)
	ground.Material = scene.NewMaterial("Ground", core.Color{R: 0.45, G: 0.45, B: 0.42, A: 1})
	ground.Material.Shininess = 4
	ground.Material.Specular = core.Color{R: 0.05, G: 0.05, B: 0.05, A: 1}
	groundNode := scene.NewNode("Ground")
	groundNode.Mesh = ground
	s.AddNode(groundNode)

	// Ring of pillars around the center — long sun shadow casters
	for i := 0; i < 10; i++ {
		angle := float64(i) / 10 * 2 * stdmath.Pi
		pillar := scene.CreateCube(1)
		pillar.Material = scene.NewMaterial("Pillar", core.Color{R: 0.58, G: 0.55, B: 0.50, A: 1})
		node := scene.NewNode(fmt.Sprintf("Pillar%d", i))
		node.Mesh = pillar
		node.Transform.Position = mgl32.Vec3{
			float32(stdmath.Cos(angle)) * 12,
			2.5,
			float32(stdmath.Sin(angle)) * 12,
		}
		node.Transform.Scale = mgl32.Vec3{1, 5, 1}
		s.AddNode(node)
	}

	// PBR sphere cluster at the center
	for i := 0; i < 5; i++ {
		sphere := scene.CreateSphere(0.8, 32, 16)
		mat := scene.NewMaterial(fmt.Sprintf("Metal%d", i), core.Color{R: 0.9, G: 0.85, B: 0.7, A: 1})
		mat.UsePBR = true
		mat.Metallic = float32(i) / 4
		mat.Roughness = 0.25 + float32(i)*0.15
		sphere.Material = mat
		node := scene.NewNode(fmt.Sprintf("Sphere%d", i))
		node.Mesh = sphere
		node.Transform.Position = mgl32.Vec3{float32(i)*2 - 4, 0.8, 0}
		s.AddNode(node)
	}

	// Emissive beacon — feeds the bloom pass
	beacon := scene.CreateSphere(0.4, 24, 12)
	beaconMat := scene.NewMaterial("Beacon", core.Color{R: 1, G: 1, B: 1, A: 1})
	beaconMat.UsePBR = true
	beaconMat.EmissiveColor = core.Color{R: 4, G: 1.6, B: 0.6, A: 1}
	beacon.Material = beaconMat
	beacon.CastShadow = false
	beaconNode := scene.NewNode("Beacon")
	beaconNode.Mesh = beacon
	s.AddNode(beaconNode)

	// Optional glTF model from the command line
	if len(os.Args) > 1 {
		if err := loadModel(engine, s, os.Args[1]); err != nil {
			fmt.Printf("glTF load failed: %v\n", err)
		}
	}

	// Instanced scatter: small rocks drawn outside the scene graph
	rockMesh := scene.CreateCube(0.4)
	rockMesh.Material = scene.NewMaterial("Rock", core.Color{R: 0.35, G: 0.33, B: 0.30, A: 1})
	var rocks []mgl32.Mat4
	for i := 0; i < 200; i++ {
		angle := float64(i) * 2.399963 // golden angle spreads them evenly
		r := 14 + float32(i%7)*2.2
		x := float32(stdmath.Cos(angle)) * r
		z := float32(stdmath.Sin(angle)) * r
		scale := 0.5 + float32(i%5)*0.3
		m := mgl32.Translate3D(x, 0.2*scale, z).
			Mul4(mgl32.HomogRotate3DY(float32(angle))).
			Mul4(mgl32.Scale3D(scale, scale, scale))
		rocks = append(rocks, m)
	}

	// ── Day/night cycle ───────────────────────────────────────────────────────
	dayNight := NewDayNight()
	flyCam := NewFlyCamera()

	window.SetResizeCallback(func(w, h int) {
		engine.Resize(uint32(w), uint32(h))
	})

	renderCfg := renderer.DefaultRenderConfig()
	lastTime := time.Now()
	var elapsed float32
	tWasDown, fWasDown, cWasDown, oneWasDown := false, false, false, false

	fmt.Println("Entering render loop")
	for !window.ShouldClose() {
		window.PollEvents()

		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now
		elapsed += dt

		if window.IsKeyPressed(core.KeyEscape) {
			break
		}
		if down := window.IsKeyPressed(core.KeyT); down != tWasDown {
			if down {
				dayNight.Active = !dayNight.Active
			}
			tWasDown = down
		}
		if down := window.IsKeyPressed(core.KeyF); down != fWasDown {
			if down {
				engine.SetWireframe(!engine.IsWireframe())
			}
			fWasDown = down
		}
		if down := window.IsKeyPressed(core.KeyC); down != cWasDown {
			if down {
				renderCfg.FrustumCulling = !renderCfg.FrustumCulling
			}
			cWasDown = down
		}
		if down := window.IsKeyPressed(core.Key1); down != oneWasDown {
			if down {
				renderCfg.DrawAABBs = !renderCfg.DrawAABBs
			}
			oneWasDown = down
		}

		flyCam.Update(window, camera, dt)

		dayNight.Update(dt)
		dayNight.Apply(engine, s, sun)

		// Animate the point lights and the beacon
		orbit := float64(elapsed * 0.6)
		lampA.Position = mgl32.Vec3{
			float32(stdmath.Cos(orbit)) * 7, 3.2, float32(stdmath.Sin(orbit)) * 7}
		lampB.Position = mgl32.Vec3{
			float32(stdmath.Cos(orbit+stdmath.Pi)) * 7, 2.4, float32(stdmath.Sin(orbit+stdmath.Pi)) * 7}
		beaconNode.Transform.Position = mgl32.Vec3{
			0, 3.5 + float32(stdmath.Sin(float64(elapsed)))*0.5, 0}

		s.Update(dt)

		// Queue the rock field before Render so the instances land in the
		// shadow prepasses as well as the main pass.
		engine.DrawMeshInstanced(rockMesh, rocks)
		if err := engine.Render(renderCfg); err != nil {
			fmt.Printf("render: %v\n", err)
			break
		}
		engine.Present()

		// Window title doubles as a lightweight HUD
		objects, _, tris, culled := engine.DrawStats()
		window.SetTitle(fmt.Sprintf("castlight — %s | %d objects, %d tris, %d culled",
			dayNight.TimeOfDayStr(), objects, tris, culled))
	}
}

// loadModel loads a glTF scene, uploads its textures, and parents all roots
// under a single node at the origin.
func loadModel(engine *renderer.RenderEngine, s *scene.Scene, path string) error {
	result, err := scene.LoadGLTF(path)
	if err != nil {
		return err
	}
	for _, tex := range result.Textures {
		if err := engine.UploadTexture(tex); err != nil {
			fmt.Printf("texture %q: %v\n", tex.Name, err)
		}
	}
	holder := scene.NewNode("Model")
	holder.Transform.Position = mgl32.Vec3{0, 0, -6}
	for _, root := range result.Roots {
		holder.AddChild(root)
	}
	s.AddNode(holder)
	fmt.Printf("Loaded %s (%d roots, %d textures)\n", path, len(result.Roots), len(result.Textures))
	return nil
}

func cosDeg(deg float32) float32 {
	return float32(stdmath.Cos(float64(mgl32.DegToRad(deg))))
}
