package lighting

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// SpotLight is a cone light with a single perspective shadow map.
// The cutoffs are stored as cosines; the inner cone is strictly narrower
// than the outer one, so InnerCutoff > OuterCutoff.
type SpotLight struct {
	Color     mgl32.Vec3
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Intensity float32

	InnerCutoff float32 // cos(inner half-angle)
	OuterCutoff float32 // cos(outer half-angle)

	CastShadow bool
	ShadowNear float32
	Matrix     mgl32.Mat4 // light-space matrix, written by the perspective prepass

	radius    float32
	constant  float32
	linear    float32
	quadratic float32
}

// NewSpotLight creates a spot light. innerCos and outerCos are the cosines of
// the cone half-angles; an inner cone that is not strictly narrower than the
// outer cone would invert the penumbra falloff and is rejected.
func NewSpotLight(pos, dir mgl32.Vec3, innerCos, outerCos, radius float32) (*SpotLight, error) {
	if dir.LenSqr() < 1e-6 {
		return nil, fmt.Errorf("spot light: zero-length direction")
	}
	if innerCos <= outerCos {
		return nil, fmt.Errorf("spot light: inner cutoff cos %g must exceed outer cutoff cos %g", innerCos, outerCos)
	}
	if outerCos <= -1 || innerCos > 1 {
		return nil, fmt.Errorf("spot light: cutoffs (%g, %g) outside valid cosine range", innerCos, outerCos)
	}
	if radius <= 0 {
		return nil, fmt.Errorf("spot light: radius %g must be positive", radius)
	}
	l := &SpotLight{
		Color:       mgl32.Vec3{1, 1, 1},
		Position:    pos,
		Direction:   dir.Normalize(),
		Intensity:   1,
		InnerCutoff: innerCos,
		OuterCutoff: outerCos,
		CastShadow:  true,
		ShadowNear:  0.1,
		Matrix:      mgl32.Ident4(),
	}
	l.SetRadius(radius)
	return l, nil
}

// SetRadius rederives the attenuation coefficients, same curve as PointLight.
func (l *SpotLight) SetRadius(r float32) {
	if r <= 0 {
		panic("lighting: spot light radius must be positive")
	}
	l.radius = r
	l.constant = 1
	l.linear = attenuationLinearScale / r
	l.quadratic = attenuationQuadraticScale / (r * r)
}

// Radius returns the falloff radius set by SetRadius, stored so the
// round-trip is exact rather than recomputed through the coefficients.
func (l *SpotLight) Radius() float32 {
	return l.radius
}

// Attenuation returns the constant, linear, and quadratic falloff coefficients.
func (l *SpotLight) Attenuation() (constant, linear, quadratic float32) {
	return l.constant, l.linear, l.quadratic
}

// SetDirection renormalizes and stores a new cone axis.
func (l *SpotLight) SetDirection(d mgl32.Vec3) {
	if d.LenSqr() < 1e-6 {
		panic("lighting: spot light direction is zero")
	}
	l.Direction = d.Normalize()
}
