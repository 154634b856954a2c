package scene

import (
	"castlight/core"
	"castlight/lighting"
)

// Scene manages a collection of nodes, the active camera, and the lights
// that feed the shadow pipeline. Light counts are fixed by the shadow
// pipeline configuration; the prepasses reject lists that exceed capacity.
type Scene struct {
	Root     *Node
	Camera   *Camera
	Ambient  core.Color
	SkyColor core.Color

	Directional []*lighting.DirectionalLight
	Point       []*lighting.PointLight
	Spot        []*lighting.SpotLight
}

func NewScene() *Scene {
	return &Scene{
		Root:     NewNode("Root"),
		Ambient:  core.Color{R: 0.2, G: 0.2, B: 0.2, A: 1.0},
		SkyColor: core.Color{R: 0.5, G: 0.7, B: 1.0, A: 1.0},
	}
}

func (s *Scene) SetCamera(camera *Camera) {
	s.Camera = camera
}

func (s *Scene) AddNode(node *Node) {
	s.Root.AddChild(node)
}

func (s *Scene) RemoveNode(node *Node) {
	s.Root.RemoveChild(node)
}

func (s *Scene) AddDirectionalLight(l *lighting.DirectionalLight) {
	s.Directional = append(s.Directional, l)
}

func (s *Scene) AddPointLight(l *lighting.PointLight) {
	s.Point = append(s.Point, l)
}

func (s *Scene) AddSpotLight(l *lighting.SpotLight) {
	s.Spot = append(s.Spot, l)
}

func (s *Scene) Update(deltaTime float32) {
	if s.Root != nil {
		s.Root.Update(deltaTime)
	}
}

// GetVisibleNodes returns all nodes with meshes that are visible.
func (s *Scene) GetVisibleNodes() []*Node {
	var visible []*Node
	s.Root.Traverse(func(node *Node) {
		if node.Visible && node.Mesh != nil {
			visible = append(visible, node)
		}
	})
	return visible
}
