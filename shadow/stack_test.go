package shadow

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castlight/lighting"
)

// preparedStack builds a Stack in the prepared state without touching the
// GPU. Only usable for code paths that panic or skip before any GL call.
func preparedStack(cfg Config) *Stack {
	return &Stack{cfg: cfg, state: statePrepared}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero resolution", func(c *Config) { c.Resolution = 0 }},
		{"zero cascades", func(c *Config) { c.Cascades = 0 }},
		{"too many cascades", func(c *Config) { c.Cascades = MaxCascades + 1 }},
		{"too many directional", func(c *Config) { c.Directional = MaxDirectionalLights + 1 }},
		{"too many point", func(c *Config) { c.Point = MaxPointLights + 1 }},
		{"too many spot", func(c *Config) { c.Spot = MaxSpotLights + 1 }},
		{"negative spot", func(c *Config) { c.Spot = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPrepassPanicsOutsidePreparedState(t *testing.T) {
	s := &Stack{cfg: DefaultConfig(), state: stateIdle}
	cam := frustumTestCamera()

	assert.Panics(t, func() { s.DirectionalShadowPrepass(cam, nil, nil) })
	assert.Panics(t, func() { s.OmnidirectionalShadowPrepass(nil, nil) })
	assert.Panics(t, func() { s.PerspectiveShadowPrepass(nil, nil) })
	assert.Panics(t, func() { s.ResetState() })
}

func TestPrepassPanicsOverCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Directional = 1
	cfg.Point = 1
	cfg.Spot = 1
	s := preparedStack(cfg)
	cam := frustumTestCamera()

	sun1, err := lighting.NewDirectionalLight(mgl32.Vec3{0, -1, 0}, []float32{10, 20, 30}, 100)
	require.NoError(t, err)
	sun2, err := lighting.NewDirectionalLight(mgl32.Vec3{0, -1, 1}, []float32{10, 20, 30}, 100)
	require.NoError(t, err)
	assert.Panics(t, func() {
		s.DirectionalShadowPrepass(cam, []*lighting.DirectionalLight{sun1, sun2}, nil)
	})

	p1, err := lighting.NewPointLight(mgl32.Vec3{0, 1, 0}, 10)
	require.NoError(t, err)
	p2, err := lighting.NewPointLight(mgl32.Vec3{2, 1, 0}, 10)
	require.NoError(t, err)
	assert.Panics(t, func() {
		s.OmnidirectionalShadowPrepass([]*lighting.PointLight{p1, p2}, nil)
	})

	sp1, err := lighting.NewSpotLight(mgl32.Vec3{0, 3, 0}, mgl32.Vec3{0, -1, 0}, 0.95, 0.9, 15)
	require.NoError(t, err)
	sp2, err := lighting.NewSpotLight(mgl32.Vec3{1, 3, 0}, mgl32.Vec3{0, -1, 0}, 0.95, 0.9, 15)
	require.NoError(t, err)
	assert.Panics(t, func() {
		s.PerspectiveShadowPrepass([]*lighting.SpotLight{sp1, sp2}, nil)
	})
}

func TestPrepassPanicsOnCascadeCountMismatch(t *testing.T) {
	cfg := DefaultConfig() // 4 cascade layers
	s := preparedStack(cfg)
	cam := frustumTestCamera()

	sun, err := lighting.NewDirectionalLight(mgl32.Vec3{0, -1, 0}, []float32{10, 20}, 100)
	require.NoError(t, err) // 3 cascades, allocator has 4

	assert.Panics(t, func() {
		s.DirectionalShadowPrepass(cam, []*lighting.DirectionalLight{sun}, nil)
	})
}

func TestPrepassSkipsNonCastingLights(t *testing.T) {
	// A light with CastShadow = false must be skipped before any GPU work,
	// so these calls succeed even without a GL context.
	s := preparedStack(DefaultConfig())
	cam := frustumTestCamera()

	sun, err := lighting.NewDirectionalLight(mgl32.Vec3{0, -1, 0}, []float32{10, 20, 30}, 100)
	require.NoError(t, err)
	sun.CastShadow = false

	p, err := lighting.NewPointLight(mgl32.Vec3{0, 1, 0}, 10)
	require.NoError(t, err)
	p.CastShadow = false

	sp, err := lighting.NewSpotLight(mgl32.Vec3{0, 3, 0}, mgl32.Vec3{0, -1, 0}, 0.95, 0.9, 15)
	require.NoError(t, err)
	sp.CastShadow = false

	assert.NotPanics(t, func() {
		s.DirectionalShadowPrepass(cam, []*lighting.DirectionalLight{sun}, nil)
		s.OmnidirectionalShadowPrepass([]*lighting.PointLight{p}, nil)
		s.PerspectiveShadowPrepass([]*lighting.SpotLight{sp}, nil)
	})

	// Skipped lights keep whatever matrices they had.
	assert.Equal(t, mgl32.Ident4(), sp.Matrix)
}

func TestDoublePrepareStatePanics(t *testing.T) {
	s := preparedStack(DefaultConfig())
	assert.Panics(t, func() { s.PrepareState() })
}
