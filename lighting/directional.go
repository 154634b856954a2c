// Package lighting defines the light-source descriptors consumed by the
// shadow prepasses and the lighting-resolve shader.
package lighting

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// DirectionalLight is a sun-style light with cascaded shadow maps.
//
// CascadeSplits holds the interior cascade boundaries as view-space
// distances, strictly increasing and inside (camera near, ShadowFar). A light
// with N splits is rendered in N+1 cascade slices, so Matrices always has
// len(CascadeSplits)+1 entries once the directional prepass has run.
type DirectionalLight struct {
	Color     mgl32.Vec3
	Direction mgl32.Vec3 // world space, unit length; travel direction of the light
	Intensity float32

	CastShadow bool
	ShadowFar  float32 // end of the shadowed depth range, in view-space units

	CascadeSplits []float32
	Matrices      []mgl32.Mat4 // light-space matrix per cascade slice, written each frame

	// Fitting parameters for the orthographic light volume. ZMultiplier pads
	// the z extents asymmetrically (multiply when extending away from zero,
	// divide when compressing toward it); the offsets widen the box by a
	// constant amount on each end.
	ZMultiplier float32
	ZNearOffset float32
	ZFarOffset  float32
}

// NewDirectionalLight builds a shadow-casting directional light with the
// given travel direction and interior cascade split distances.
func NewDirectionalLight(direction mgl32.Vec3, splits []float32, shadowFar float32) (*DirectionalLight, error) {
	l := &DirectionalLight{
		Color:         mgl32.Vec3{1, 1, 1},
		Direction:     direction,
		Intensity:     1,
		CastShadow:    true,
		ShadowFar:     shadowFar,
		CascadeSplits: append([]float32(nil), splits...),
		Matrices:      make([]mgl32.Mat4, len(splits)+1),
		ZMultiplier:   10,
		ZNearOffset:   0,
		ZFarOffset:    0,
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	l.Direction = direction.Normalize()
	return l, nil
}

// Validate checks the structural invariants: a usable direction, strictly
// increasing splits inside the shadowed range, and a matrix slot per slice.
func (l *DirectionalLight) Validate() error {
	if l.Direction.LenSqr() < 1e-6 {
		return fmt.Errorf("directional light: zero-length direction")
	}
	if l.ShadowFar <= 0 {
		return fmt.Errorf("directional light: shadow far plane %g must be positive", l.ShadowFar)
	}
	prev := float32(0)
	for i, s := range l.CascadeSplits {
		if s <= prev {
			return fmt.Errorf("directional light: cascade splits must be strictly increasing, split[%d]=%g after %g", i, s, prev)
		}
		if s >= l.ShadowFar {
			return fmt.Errorf("directional light: split[%d]=%g is not inside the shadow range (far=%g)", i, s, l.ShadowFar)
		}
		prev = s
	}
	if len(l.Matrices) != len(l.CascadeSplits)+1 {
		return fmt.Errorf("directional light: %d matrices for %d splits, want %d",
			len(l.Matrices), len(l.CascadeSplits), len(l.CascadeSplits)+1)
	}
	if l.ZMultiplier <= 0 {
		return fmt.Errorf("directional light: z multiplier %g must be positive", l.ZMultiplier)
	}
	return nil
}

// CascadeCount returns the number of cascade slices (splits + 1).
func (l *DirectionalLight) CascadeCount() int {
	return len(l.CascadeSplits) + 1
}

// SetDirection renormalizes and stores a new travel direction. Directions are
// re-derived every frame from the sky model, so a zero vector here is an
// upstream bug, not a runtime condition.
func (l *DirectionalLight) SetDirection(d mgl32.Vec3) {
	if d.LenSqr() < 1e-6 {
		panic("lighting: directional light direction is zero")
	}
	l.Direction = d.Normalize()
}
