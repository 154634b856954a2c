// Package shadow implements the shadow-map prepasses that run before the
// lighting resolve: cascaded shadow maps for directional lights, cube maps
// for point lights, and single perspective maps for spot lights.
package shadow

import "fmt"

// Hard capacity ceilings. The lighting shader binds one sampler per shadow
// map slot, and the total (material units + shadow units) must stay within
// the 16 texture units guaranteed by OpenGL 4.1.
const (
	MaxDirectionalLights = 2
	MaxPointLights       = 4
	MaxSpotLights        = 4
	MaxCascades          = 5
)

// Config sizes the shadow map allocations made up front by NewAllocator.
// Capacities are fixed for the lifetime of the pipeline; the prepasses
// panic when a frame supplies more lights than were configured.
type Config struct {
	// Resolution is the width and height in texels of every shadow map.
	Resolution int32

	// Cascades is the number of cascade slices rendered per directional
	// light. It must equal len(light.CascadeSplits)+1 for every
	// shadow-casting directional light submitted.
	Cascades int

	// Per-type light capacities.
	Directional int
	Point       int
	Spot        int
}

// DefaultConfig returns the configuration used by the demo and tests:
// 2048x2048 maps, 4 cascade slices, full light capacity.
func DefaultConfig() Config {
	return Config{
		Resolution:  2048,
		Cascades:    4,
		Directional: MaxDirectionalLights,
		Point:       MaxPointLights,
		Spot:        MaxSpotLights,
	}
}

// Validate reports the first invalid field, or nil.
func (c Config) Validate() error {
	if c.Resolution <= 0 {
		return fmt.Errorf("shadow: resolution must be positive, got %d", c.Resolution)
	}
	if c.Cascades < 1 || c.Cascades > MaxCascades {
		return fmt.Errorf("shadow: cascades must be in [1, %d], got %d", MaxCascades, c.Cascades)
	}
	if c.Directional < 0 || c.Directional > MaxDirectionalLights {
		return fmt.Errorf("shadow: directional capacity must be in [0, %d], got %d", MaxDirectionalLights, c.Directional)
	}
	if c.Point < 0 || c.Point > MaxPointLights {
		return fmt.Errorf("shadow: point capacity must be in [0, %d], got %d", MaxPointLights, c.Point)
	}
	if c.Spot < 0 || c.Spot > MaxSpotLights {
		return fmt.Errorf("shadow: spot capacity must be in [0, %d], got %d", MaxSpotLights, c.Spot)
	}
	return nil
}
