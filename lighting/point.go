package lighting

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Attenuation falloff curve: the coefficients are derived from the light's
// radius so its visible influence stays approximately bounded by the radius
// without a hard cutoff. The resolve shader evaluates
// 1 / (constant + linear*d + quadratic*d²).
const (
	attenuationLinearScale    = 4.5
	attenuationQuadraticScale = 75.0
)

// PointLight is an omnidirectional light with an optional cube-map shadow.
type PointLight struct {
	Color        mgl32.Vec3
	Position     mgl32.Vec3
	ViewPosition mgl32.Vec3 // derived each frame from the camera view matrix
	Intensity    float32

	CastShadow bool
	ShadowNear float32
	ShadowFar  float32

	radius    float32
	constant  float32
	linear    float32
	quadratic float32
}

// NewPointLight creates a point light at pos whose influence falls off over
// the given radius.
func NewPointLight(pos mgl32.Vec3, radius float32) (*PointLight, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("point light: radius %g must be positive", radius)
	}
	l := &PointLight{
		Color:      mgl32.Vec3{1, 1, 1},
		Position:   pos,
		Intensity:  1,
		CastShadow: true,
		ShadowNear: 0.1,
		ShadowFar:  radius,
	}
	l.SetRadius(radius)
	return l, nil
}

// SetRadius rederives the attenuation coefficients from the falloff radius.
// A non-positive radius is an input-contract violation.
func (l *PointLight) SetRadius(r float32) {
	if r <= 0 {
		panic("lighting: point light radius must be positive")
	}
	l.radius = r
	l.constant = 1
	l.linear = attenuationLinearScale / r
	l.quadratic = attenuationQuadraticScale / (r * r)
}

// Radius returns the falloff radius set by SetRadius. The value is stored
// rather than recomputed from the linear coefficient, so the round-trip is
// exact in float32.
func (l *PointLight) Radius() float32 {
	return l.radius
}

// Attenuation returns the constant, linear, and quadratic falloff
// coefficients uploaded to the resolve shader.
func (l *PointLight) Attenuation() (constant, linear, quadratic float32) {
	return l.constant, l.linear, l.quadratic
}

// UpdateViewPosition caches the light position in view space for shading.
func (l *PointLight) UpdateViewPosition(view mgl32.Mat4) {
	l.ViewPosition = view.Mul4x1(l.Position.Vec4(1)).Vec3()
}
