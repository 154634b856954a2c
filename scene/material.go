package scene

import "castlight/core"

// Material describes surface appearance properties for a mesh.
// Supports both Phong shading and PBR (Cook-Torrance BRDF).
// Set UsePBR = true to use physically-based rendering.
type Material struct {
	Name      string
	Albedo    core.Color // base diffuse color (multiplied with albedo texture if set)
	Specular  core.Color // Phong specular highlight color (ignored when UsePBR = true)
	Shininess float32    // Phong shininess exponent (1–256+; ignored when UsePBR = true)
	Unlit     bool       // skip lighting calculation — output raw albedo/texture color

	// PBR parameters (used when UsePBR = true)
	UsePBR        bool
	Metallic      float32    // 0 = dielectric, 1 = fully metallic
	Roughness     float32    // 0 = perfectly smooth, 1 = fully rough
	EmissiveColor core.Color // self-emitted radiance (additive)

	// Optional textures. Upload via the renderer before drawing.
	AlbedoTexture            *Texture
	NormalTexture            *Texture
	MetallicRoughnessTexture *Texture // glTF convention: G=roughness, B=metallic
	EmissiveTexture          *Texture
}

// DefaultMaterial returns a plain white matte Phong material.
func DefaultMaterial() *Material {
	return &Material{
		Name:      "Default",
		Albedo:    core.ColorWhite,
		Specular:  core.Color{R: 0.3, G: 0.3, B: 0.3, A: 1},
		Shininess: 32,
		Roughness: 0.5,
	}
}

// NewMaterial creates a Phong material with the given albedo color.
func NewMaterial(name string, albedo core.Color) *Material {
	return &Material{
		Name:      name,
		Albedo:    albedo,
		Specular:  core.Color{R: 0.5, G: 0.5, B: 0.5, A: 1},
		Shininess: 32,
		Roughness: 0.5,
	}
}

// NewPBRMaterial creates a PBR material with the given albedo, metallic, and roughness.
func NewPBRMaterial(name string, albedo core.Color, metallic, roughness float32) *Material {
	return &Material{
		Name:      name,
		Albedo:    albedo,
		Metallic:  metallic,
		Roughness: roughness,
		UsePBR:    true,
	}
}
