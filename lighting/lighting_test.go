package lighting

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointLightRadiusRoundTrip(t *testing.T) {
	// 30 and 250 are not exactly recoverable from 4.5/linear in float32,
	// so the round-trip only holds if the radius itself is stored.
	for _, r := range []float32{0.5, 1, 4.5, 7.3, 30, 250} {
		l, err := NewPointLight(mgl32.Vec3{}, r)
		require.NoError(t, err)
		assert.Equal(t, r, l.Radius(), "radius %g must round-trip exactly", r)

		l.SetRadius(r * 2)
		assert.Equal(t, r*2, l.Radius(), "radius %g must round-trip after SetRadius", r*2)
	}
}

func TestSpotLightRadiusRoundTrip(t *testing.T) {
	down := mgl32.Vec3{0, -1, 0}
	for _, r := range []float32{0.5, 7.3, 30, 250} {
		l, err := NewSpotLight(mgl32.Vec3{}, down, 0.9, 0.5, r)
		require.NoError(t, err)
		assert.Equal(t, r, l.Radius(), "radius %g must round-trip exactly", r)

		_, lin, quad := l.Attenuation()
		assert.Equal(t, 4.5/r, lin)
		assert.Equal(t, 75.0/(r*r), quad)
	}
}

func TestPointLightAttenuationCurve(t *testing.T) {
	l, err := NewPointLight(mgl32.Vec3{1, 2, 3}, 10)
	require.NoError(t, err)

	c, lin, quad := l.Attenuation()
	assert.Equal(t, float32(1), c)
	assert.Equal(t, float32(4.5/10.0), lin)
	assert.Equal(t, float32(75.0/100.0), quad)

	l.SetRadius(20)
	_, lin, quad = l.Attenuation()
	assert.Equal(t, float32(4.5/20.0), lin)
	assert.Equal(t, float32(75.0/400.0), quad)
}

func TestPointLightViewPositionDerivation(t *testing.T) {
	l, err := NewPointLight(mgl32.Vec3{1, 2, 3}, 10)
	require.NoError(t, err)

	l.UpdateViewPosition(mgl32.Translate3D(0, 0, -5))
	assert.Equal(t, mgl32.Vec3{1, 2, -2}, l.ViewPosition)

	// Moving the light and rederiving tracks the new world position.
	l.Position = mgl32.Vec3{-1, 0, 0}
	l.UpdateViewPosition(mgl32.Translate3D(0, 0, -5))
	assert.Equal(t, mgl32.Vec3{-1, 0, -5}, l.ViewPosition)
}

func TestPointLightRejectsBadRadius(t *testing.T) {
	_, err := NewPointLight(mgl32.Vec3{}, 0)
	assert.Error(t, err)

	l, err := NewPointLight(mgl32.Vec3{}, 5)
	require.NoError(t, err)
	assert.Panics(t, func() { l.SetRadius(-1) })
}

func TestSpotLightCutoffValidation(t *testing.T) {
	down := mgl32.Vec3{0, -1, 0}

	// inner wider than outer: inverted falloff, must be rejected
	_, err := NewSpotLight(mgl32.Vec3{}, down, 0.5, 0.9, 10)
	assert.Error(t, err)

	// equal cones: zero-width penumbra, also rejected
	_, err = NewSpotLight(mgl32.Vec3{}, down, 0.7, 0.7, 10)
	assert.Error(t, err)

	_, err = NewSpotLight(mgl32.Vec3{}, mgl32.Vec3{}, 0.9, 0.5, 10)
	assert.Error(t, err, "zero direction must be rejected")

	l, err := NewSpotLight(mgl32.Vec3{}, down, 0.9, 0.5, 10)
	require.NoError(t, err)
	assert.Greater(t, l.InnerCutoff, l.OuterCutoff)
	assert.Equal(t, float32(10), l.Radius())
}

func TestDirectionalLightValidation(t *testing.T) {
	dir := mgl32.Vec3{0.3, -1, 0.2}

	l, err := NewDirectionalLight(dir, []float32{50, 100, 250, 500}, 1000)
	require.NoError(t, err)
	assert.Len(t, l.Matrices, 5, "N splits need N+1 cascade matrices")
	assert.Equal(t, 5, l.CascadeCount())
	assert.InDelta(t, 1.0, float64(l.Direction.Len()), 1e-6)

	_, err = NewDirectionalLight(dir, []float32{100, 50}, 1000)
	assert.Error(t, err, "non-increasing splits must be rejected")

	_, err = NewDirectionalLight(dir, []float32{50, 50}, 1000)
	assert.Error(t, err, "duplicate splits must be rejected")

	_, err = NewDirectionalLight(dir, []float32{50, 2000}, 1000)
	assert.Error(t, err, "split beyond the shadow range must be rejected")

	_, err = NewDirectionalLight(mgl32.Vec3{}, nil, 1000)
	assert.Error(t, err, "zero direction must be rejected")
}

func TestDirectionalLightSetDirection(t *testing.T) {
	l, err := NewDirectionalLight(mgl32.Vec3{0, -1, 0}, nil, 100)
	require.NoError(t, err)

	l.SetDirection(mgl32.Vec3{2, -2, 0})
	assert.InDelta(t, 1.0, float64(l.Direction.Len()), 1e-6)

	assert.Panics(t, func() { l.SetDirection(mgl32.Vec3{}) })
}
