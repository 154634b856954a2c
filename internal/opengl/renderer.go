// Package opengl is the OpenGL 4.1 backend: mesh upload, the lighting
// resolve shader, shadow-map binding, and the post-process/skybox passes.
package opengl

import (
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"castlight/core"
	"castlight/lighting"
	"castlight/scene"
	"castlight/shadow"
)

// Texture unit contract shared between BindShadowMaps and the resolve
// shader. Material textures use 0-4; shadow maps occupy 5-14. The total
// stays within the 16 units OpenGL 4.1 guarantees.
const (
	unitAlbedo            = 0
	unitNormal            = 2
	unitMetallicRoughness = 3
	unitEmissive          = 4
	unitCascadeBase       = 5  // 5-6: one array texture per directional light
	unitPointBase         = 7  // 7-10: one cube map per point light
	unitSpotBase          = 11 // 11-14: one 2D map per spot light
)

// GPUMesh holds the OpenGL buffer objects for an uploaded mesh.
type GPUMesh struct {
	VAO         uint32
	VBO         uint32
	EBO         uint32
	IndexCount  int32
	VertexCount int32
	HasIndices  bool
	InstanceVBO   uint32 // per-instance data VBO (0 = not yet allocated)
	InstanceCap   int    // capacity of InstanceVBO in instances
	InstanceCount int32  // instances resident from the last UploadInstances
}

// Renderer is the OpenGL rendering backend for the lighting resolve pass.
type Renderer struct {
	program uint32

	// Vertex transform uniforms
	mvpLoc   int32
	modelLoc int32
	viewLoc  int32

	ambientColorLoc int32
	cameraPosLoc    int32

	// Material uniforms — Phong
	matAlbedoLoc    int32
	matSpecularLoc  int32
	matShininessLoc int32

	// Material uniforms — PBR
	usePBRLoc       int32
	matMetallicLoc  int32
	matRoughnessLoc int32
	matEmissiveLoc  int32

	// Texture uniforms
	hasTextureLoc              int32
	hasNormalTexLoc            int32
	hasMetallicRoughnessTexLoc int32
	hasEmissiveTexLoc          int32

	// Fog
	fogEnabledLoc int32
	fogColorLoc   int32
	fogDensityLoc int32
	fogEnabled    bool
	fogColor      core.Color
	fogDensity    float32

	// IBL (sky-based irradiance)
	useIBLLoc     int32
	iblZenithLoc  int32
	iblHorizonLoc int32
	iblGroundLoc  int32
	iblEnabled    bool
	iblZenith     core.Color
	iblHorizon    core.Color
	iblGround     core.Color

	instancedLoc int32
	unlitLoc     int32

	// Shadow sampling
	shadowsEnabledLoc int32
	shadowTexelLoc    int32

	// Per-light uniform buffer (binding 0)
	lights *LightBlock

	// Post-processing FBO (nil if disabled)
	postProcess *PostProcessFBO

	// Skybox (nil if disabled)
	skybox *Skybox

	viewportW int32
	viewportH int32
	wireframe bool

	gpuMeshes map[*scene.Mesh]*GPUMesh
}

// ── Shaders ───────────────────────────────────────────────────────────────────

// vertex shader: MVP + model transform, world-space position/normal and
// view-space depth (cascade selection) to the fragment stage.
const vertSrc = `
#version 410 core
layout(location = 0) in vec3 inPosition;
layout(location = 1) in vec3 inNormal;
layout(location = 2) in vec2 inUV;
layout(location = 3) in vec4 inColor;
layout(location = 4) in vec3 inTangent;
layout(location = 5) in vec3 inBitangent;

// Per-instance data (active only when instanced == true)
// Each mat4 occupies 4 consecutive vec4 attribute slots (one per column).
layout(location = 6)  in vec4 instMVP0;
layout(location = 7)  in vec4 instMVP1;
layout(location = 8)  in vec4 instMVP2;
layout(location = 9)  in vec4 instMVP3;
layout(location = 10) in vec4 instModel0;
layout(location = 11) in vec4 instModel1;
layout(location = 12) in vec4 instModel2;
layout(location = 13) in vec4 instModel3;

uniform mat4 mvp;
uniform mat4 model;
uniform mat4 view;
uniform bool instanced;

out vec4 fragColor;
out vec3 fragNormal;
out vec2 fragUV;
out vec3 fragWorldPos;
out float fragViewDepth;
out vec3 fragTangent;
out vec3 fragBitangent;

void main() {
    mat4 effectiveMVP;
    mat3 normalMat;
    vec4 worldPos;

    if (instanced) {
        mat4 iMVP   = mat4(instMVP0,   instMVP1,   instMVP2,   instMVP3);
        mat4 iModel = mat4(instModel0, instModel1, instModel2, instModel3);
        effectiveMVP = iMVP;
        normalMat    = mat3(iModel);
        worldPos     = iModel * vec4(inPosition, 1.0);
    } else {
        effectiveMVP = mvp;
        normalMat    = mat3(model);
        worldPos     = model * vec4(inPosition, 1.0);
    }

    gl_Position   = effectiveMVP * vec4(inPosition, 1.0);
    fragColor     = inColor;
    fragNormal    = normalMat * inNormal;
    fragUV        = inUV;
    fragWorldPos  = worldPos.xyz;
    fragViewDepth = -(view * worldPos).z;
    fragTangent   = normalMat * inTangent;
    fragBitangent = normalMat * inBitangent;
}
` + "\x00"

// fragment shader: dual-path Phong + PBR (Cook-Torrance) resolve over the
// Lights uniform block. Directional lights sample cascaded shadow arrays
// selected by view-space depth; point lights compare distance against depth
// cube maps; spot lights project through their stored light matrix.
const fragSrc = `
#version 410 core
in vec4 fragColor;
in vec3 fragNormal;
in vec2 fragUV;
in vec3 fragWorldPos;
in float fragViewDepth;
in vec3 fragTangent;
in vec3 fragBitangent;

out vec4 outColor;

#define MAX_DIR_LIGHTS 2
#define MAX_POINT_LIGHTS 4
#define MAX_SPOT_LIGHTS 4
#define MAX_CASCADES 5

struct DirLight {
    vec4 direction;                  // xyz travel direction, w cast-shadow flag
    vec4 color;                      // rgb color, w intensity
    vec4 meta;                       // x shadow far, y cascade count
    vec4 splits[MAX_CASCADES - 1];   // interior boundaries, in .x
    mat4 matrices[MAX_CASCADES];     // light-space matrix per cascade
};

struct PointLight {
    vec4 position;  // xyz world position, w cast-shadow flag
    vec4 color;     // rgb color, w intensity
    vec4 atten;     // constant, linear, quadratic, radius
    vec4 meta;      // x shadow near, y shadow far
};

struct SpotLight {
    vec4 position;   // xyz world position, w cast-shadow flag
    vec4 direction;  // xyz travel direction, w inner cutoff cosine
    vec4 color;      // rgb color, w intensity
    vec4 atten;      // constant, linear, quadratic, outer cutoff cosine
    vec4 meta;       // x radius, y shadow near
    mat4 matrix;     // light-space matrix
};

layout(std140) uniform Lights {
    DirLight   dirLights[MAX_DIR_LIGHTS];
    PointLight pointLights[MAX_POINT_LIGHTS];
    SpotLight  spotLights[MAX_SPOT_LIGHTS];
    vec4       counts;  // x dir, y point, z spot (float-cast ints)
};

// Shadow maps, one sampler per light slot (units 5-14)
uniform sampler2DArrayShadow cascadeMaps[MAX_DIR_LIGHTS];
uniform samplerCube          pointShadowMaps[MAX_POINT_LIGHTS];
uniform sampler2DShadow      spotShadowMaps[MAX_SPOT_LIGHTS];
uniform bool  shadowsEnabled;
uniform float shadowTexel;   // 1.0 / shadow map resolution

// Camera
uniform vec3 cameraPos;
uniform vec3 ambientColor;

// Phong material
uniform vec3  matAlbedo;
uniform vec3  matSpecular;
uniform float matShininess;

// PBR material
uniform bool  usePBR;
uniform float matMetallic;
uniform float matRoughness;
uniform vec3  matEmissive;

// Material textures: albedo=0, normal=2, metallicRoughness=3, emissive=4
uniform sampler2D albedoTex;
uniform bool      hasTexture;
uniform sampler2D normalTex;
uniform bool      hasNormalTex;
uniform sampler2D metallicRoughnessTex;
uniform bool      hasMetallicRoughnessTex;
uniform sampler2D emissiveTex;
uniform bool      hasEmissiveTex;

// When true, skip all lighting and output raw base color
uniform bool unlit;

// Exponential depth fog
uniform bool  fogEnabled;
uniform vec3  fogColor;
uniform float fogDensity;

// Sky-based IBL: hemisphere gradient matching the procedural skybox
uniform bool useIBL;
uniform vec3 iblZenith;
uniform vec3 iblHorizon;
uniform vec3 iblGround;

// ── Shadow sampling ──────────────────────────────────────────────────────────

float calcDirShadow(int i, float NdL) {
    if (!shadowsEnabled || dirLights[i].direction.w < 0.5) return 1.0;
    if (fragViewDepth > dirLights[i].meta.x) return 1.0;

    int count = int(dirLights[i].meta.y);
    int cascade = count - 1;
    for (int c = 0; c < count - 1; c++) {
        if (fragViewDepth < dirLights[i].splits[c].x) { cascade = c; break; }
    }

    vec4 ls = dirLights[i].matrices[cascade] * vec4(fragWorldPos, 1.0);
    vec3 p = ls.xyz / ls.w * 0.5 + 0.5;
    if (p.z > 1.0) return 1.0;

    float bias = max(0.0015 * (1.0 - NdL), 0.0003);
    float shadow = 0.0;
    for (int x = -1; x <= 1; x++) {
        for (int y = -1; y <= 1; y++) {
            vec2 uv = p.xy + vec2(float(x), float(y)) * shadowTexel;
            shadow += texture(cascadeMaps[i], vec4(uv, float(cascade), p.z - bias));
        }
    }
    return shadow / 9.0;
}

float calcPointShadow(int i, vec3 toLight, float dist) {
    if (!shadowsEnabled || pointLights[i].position.w < 0.5) return 1.0;
    float far = pointLights[i].meta.y;
    if (dist > far) return 1.0;

    // Cube stores normalized light-to-fragment distance
    float closest = texture(pointShadowMaps[i], -toLight).r * far;
    float bias = max(0.05, dist * 0.02);
    return (dist - bias > closest) ? 0.0 : 1.0;
}

float calcSpotShadow(int i, float NdL) {
    if (!shadowsEnabled || spotLights[i].position.w < 0.5) return 1.0;

    vec4 ls = spotLights[i].matrix * vec4(fragWorldPos, 1.0);
    if (ls.w <= 0.0) return 1.0;
    vec3 p = ls.xyz / ls.w * 0.5 + 0.5;
    if (p.z > 1.0) return 1.0;

    float bias = max(0.002 * (1.0 - NdL), 0.0005);
    float shadow = 0.0;
    for (int x = -1; x <= 1; x++) {
        for (int y = -1; y <= 1; y++) {
            vec2 uv = p.xy + vec2(float(x), float(y)) * shadowTexel;
            shadow += texture(spotShadowMaps[i], vec3(uv, p.z - bias));
        }
    }
    return shadow / 9.0;
}

// Fixed empirical falloff: coefficients are derived from radius on the CPU
// (constant=1, linear=4.5/r, quadratic=75/r²) so the light's influence is
// approximately bounded by its radius without a hard cutoff.
float attenuate(vec4 a, float dist) {
    return 1.0 / (a.x + a.y * dist + a.z * dist * dist);
}

float spotCone(int i, vec3 L) {
    float theta = dot(L, normalize(-spotLights[i].direction.xyz));
    float inner = spotLights[i].direction.w;
    float outer = spotLights[i].atten.w;
    return clamp((theta - outer) / max(inner - outer, 0.0001), 0.0, 1.0);
}

// ── Phong helpers ────────────────────────────────────────────────────────────

vec3 calcSpecular(vec3 N, vec3 L, vec3 V) {
    vec3 H = normalize(L + V);
    return matSpecular * pow(max(dot(N, H), 0.0), matShininess);
}

// ── PBR helpers (Cook-Torrance BRDF) ─────────────────────────────────────────

const float PI = 3.14159265359;

float DistributionGGX(vec3 N, vec3 H, float roughness) {
    float a  = roughness * roughness;
    float a2 = a * a;
    float NdH = max(dot(N, H), 0.0);
    float d   = NdH * NdH * (a2 - 1.0) + 1.0;
    return a2 / (PI * d * d);
}

float GeometrySchlickGGX(float cosTheta, float roughness) {
    float r = roughness + 1.0;
    float k = (r * r) / 8.0;
    return cosTheta / (cosTheta * (1.0 - k) + k);
}

float GeometrySmith(float NdV, float NdL, float roughness) {
    return GeometrySchlickGGX(NdV, roughness) * GeometrySchlickGGX(NdL, roughness);
}

vec3 FresnelSchlick(float cosTheta, vec3 F0) {
    return F0 + (1.0 - F0) * pow(clamp(1.0 - cosTheta, 0.0, 1.0), 5.0);
}

vec3 FresnelSchlickRoughness(float cosTheta, vec3 F0, float roughness) {
    return F0 + (max(vec3(1.0 - roughness), F0) - F0) * pow(clamp(1.0 - cosTheta, 0.0, 1.0), 5.0);
}

// Sample the procedural sky gradient in direction dir (must be normalised).
vec3 sampleSkyGradient(vec3 dir) {
    float y = clamp(dir.y, -1.0, 1.0);
    if (y >= 0.0) return mix(iblHorizon, iblZenith, y);
    else          return mix(iblHorizon, iblGround, -y);
}

// Evaluate one Cook-Torrance lobe. L = unit vector toward light, rad = light radiance.
vec3 evalPBR(vec3 N, vec3 V, vec3 L, vec3 rad, vec3 albedo, float metallic, float roughness, vec3 F0) {
    float NdL = max(dot(N, L), 0.0);
    if (NdL <= 0.0) return vec3(0.0);

    vec3  H   = normalize(V + L);
    float NdV = max(dot(N, V), 0.0);

    float D = DistributionGGX(N, H, roughness);
    float G = GeometrySmith(NdV, NdL, roughness);
    vec3  F = FresnelSchlick(max(dot(H, V), 0.0), F0);

    vec3 kD       = (vec3(1.0) - F) * (1.0 - metallic);
    vec3 specular = D * G * F / max(4.0 * NdV * NdL, 0.001);

    return (kD * albedo / PI + specular) * rad * NdL;
}

// ── Main ─────────────────────────────────────────────────────────────────────

void main() {
    vec3 N;
    if (hasNormalTex) {
        vec3 T  = normalize(fragTangent);
        vec3 B  = normalize(fragBitangent);
        vec3 Nv = normalize(fragNormal);
        mat3 TBN = mat3(T, B, Nv);
        N = normalize(TBN * (texture(normalTex, fragUV).rgb * 2.0 - 1.0));
    } else {
        N = normalize(fragNormal);
    }
    vec3 V = normalize(cameraPos - fragWorldPos);

    vec4 baseColor = fragColor * vec4(matAlbedo, 1.0);
    if (hasTexture) {
        baseColor *= texture(albedoTex, fragUV);
    }

    if (unlit) {
        outColor = baseColor;
        return;
    }

    int dirCount   = int(counts.x);
    int pointCount = int(counts.y);
    int spotCount  = int(counts.z);

    // ── PBR path ─────────────────────────────────────────────────────────────
    if (usePBR) {
        float metallic  = matMetallic;
        float roughness = clamp(matRoughness, 0.04, 1.0);
        if (hasMetallicRoughnessTex) {
            vec4 mr   = texture(metallicRoughnessTex, fragUV);
            roughness = clamp(mr.g, 0.04, 1.0);
            metallic  = mr.b;
        }

        vec3 albedo = baseColor.rgb;
        vec3 F0     = mix(vec3(0.04), albedo, metallic);

        vec3 color;
        if (useIBL) {
            vec3 irradiance = sampleSkyGradient(N);
            vec3 F_ibl = FresnelSchlickRoughness(max(dot(N, V), 0.0), F0, roughness);
            vec3 kD    = (vec3(1.0) - F_ibl) * (1.0 - metallic);
            vec3 diffuseIBL = irradiance * albedo * kD;
            vec3 R = reflect(-V, N);
            vec3 specIrradiance = sampleSkyGradient(R);
            float specStrength  = 1.0 - roughness * roughness;
            vec3 specularIBL    = specIrradiance * F_ibl * specStrength;
            color = diffuseIBL + specularIBL;
        } else {
            color = ambientColor * albedo * (1.0 - 0.5 * metallic);
        }

        for (int i = 0; i < dirCount && i < MAX_DIR_LIGHTS; i++) {
            vec3  L      = normalize(-dirLights[i].direction.xyz);
            float shadow = calcDirShadow(i, max(dot(N, L), 0.0));
            vec3  rad    = dirLights[i].color.rgb * dirLights[i].color.w * shadow;
            color += evalPBR(N, V, L, rad, albedo, metallic, roughness, F0);
        }

        for (int i = 0; i < pointCount && i < MAX_POINT_LIGHTS; i++) {
            vec3  toLight = pointLights[i].position.xyz - fragWorldPos;
            float dist    = length(toLight);
            vec3  L       = toLight / max(dist, 0.0001);
            float atten   = attenuate(pointLights[i].atten, dist);
            float shadow  = calcPointShadow(i, L, dist);
            vec3  rad     = pointLights[i].color.rgb * pointLights[i].color.w * atten * shadow;
            color += evalPBR(N, V, L, rad, albedo, metallic, roughness, F0);
        }

        for (int i = 0; i < spotCount && i < MAX_SPOT_LIGHTS; i++) {
            vec3  toLight = spotLights[i].position.xyz - fragWorldPos;
            float dist    = length(toLight);
            vec3  L       = toLight / max(dist, 0.0001);
            float atten   = attenuate(spotLights[i].atten, dist) * spotCone(i, L);
            if (atten <= 0.0) continue;
            float shadow  = calcSpotShadow(i, max(dot(N, L), 0.0));
            vec3  rad     = spotLights[i].color.rgb * spotLights[i].color.w * atten * shadow;
            color += evalPBR(N, V, L, rad, albedo, metallic, roughness, F0);
        }

        vec3 emissive = matEmissive;
        if (hasEmissiveTex) {
            emissive *= texture(emissiveTex, fragUV).rgb;
        }
        color += emissive;

        if (fogEnabled) {
            float fogDist = length(fragWorldPos - cameraPos);
            float fogF    = clamp(exp(-fogDensity * fogDist), 0.0, 1.0);
            color = mix(fogColor, color, fogF);
        }
        outColor = vec4(color, baseColor.a);
        return;
    }

    // ── Phong path ───────────────────────────────────────────────────────────
    vec3 color;
    if (useIBL) {
        color = sampleSkyGradient(N) * baseColor.rgb * 0.35;
    } else {
        color = ambientColor * baseColor.rgb;
    }

    for (int i = 0; i < dirCount && i < MAX_DIR_LIGHTS; i++) {
        vec3  L      = normalize(-dirLights[i].direction.xyz);
        float NdL    = max(dot(N, L), 0.0);
        float shadow = calcDirShadow(i, NdL);
        vec3  rad    = dirLights[i].color.rgb * dirLights[i].color.w * shadow;
        color += rad * NdL * baseColor.rgb;
        if (NdL > 0.0) {
            color += rad * calcSpecular(N, L, V);
        }
    }

    for (int i = 0; i < pointCount && i < MAX_POINT_LIGHTS; i++) {
        vec3  toLight = pointLights[i].position.xyz - fragWorldPos;
        float dist    = length(toLight);
        vec3  L       = toLight / max(dist, 0.0001);
        float NdL     = max(dot(N, L), 0.0);
        float atten   = attenuate(pointLights[i].atten, dist);
        float shadow  = calcPointShadow(i, L, dist);
        vec3  rad     = pointLights[i].color.rgb * pointLights[i].color.w * atten * shadow;
        color += rad * NdL * baseColor.rgb;
        if (NdL > 0.0) {
            color += rad * calcSpecular(N, L, V);
        }
    }

    for (int i = 0; i < spotCount && i < MAX_SPOT_LIGHTS; i++) {
        vec3  toLight = spotLights[i].position.xyz - fragWorldPos;
        float dist    = length(toLight);
        vec3  L       = toLight / max(dist, 0.0001);
        float atten   = attenuate(spotLights[i].atten, dist) * spotCone(i, L);
        if (atten <= 0.0) continue;
        float NdL     = max(dot(N, L), 0.0);
        float shadow  = calcSpotShadow(i, NdL);
        vec3  rad     = spotLights[i].color.rgb * spotLights[i].color.w * atten * shadow;
        color += rad * NdL * baseColor.rgb;
        if (NdL > 0.0) {
            color += rad * calcSpecular(N, L, V);
        }
    }

    if (fogEnabled) {
        float fogDist = length(fragWorldPos - cameraPos);
        float fogF    = clamp(exp(-fogDensity * fogDist), 0.0, 1.0);
        color = mix(fogColor, color, fogF);
    }
    outColor = vec4(color, baseColor.a);
}
` + "\x00"

// ── NewRenderer ───────────────────────────────────────────────────────────────

// NewRenderer initialises OpenGL and compiles the resolve shader.
// Must be called after the GLFW window context is made current.
func NewRenderer() (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	fmt.Printf("OpenGL version: %s\n", version)

	prog, err := newProgram(vertSrc, fragSrc)
	if err != nil {
		return nil, fmt.Errorf("main shader compile: %w", err)
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)

	loc := func(name string) int32 {
		return gl.GetUniformLocation(prog, gl.Str(name+"\x00"))
	}

	r := &Renderer{
		program: prog,

		mvpLoc:   loc("mvp"),
		modelLoc: loc("model"),
		viewLoc:  loc("view"),

		ambientColorLoc: loc("ambientColor"),
		cameraPosLoc:    loc("cameraPos"),

		matAlbedoLoc:    loc("matAlbedo"),
		matSpecularLoc:  loc("matSpecular"),
		matShininessLoc: loc("matShininess"),

		usePBRLoc:       loc("usePBR"),
		matMetallicLoc:  loc("matMetallic"),
		matRoughnessLoc: loc("matRoughness"),
		matEmissiveLoc:  loc("matEmissive"),

		hasTextureLoc:              loc("hasTexture"),
		hasNormalTexLoc:            loc("hasNormalTex"),
		hasMetallicRoughnessTexLoc: loc("hasMetallicRoughnessTex"),
		hasEmissiveTexLoc:          loc("hasEmissiveTex"),

		instancedLoc: loc("instanced"),
		unlitLoc:     loc("unlit"),

		useIBLLoc:     loc("useIBL"),
		iblZenithLoc:  loc("iblZenith"),
		iblHorizonLoc: loc("iblHorizon"),
		iblGroundLoc:  loc("iblGround"),

		fogEnabledLoc: loc("fogEnabled"),
		fogColorLoc:   loc("fogColor"),
		fogDensityLoc: loc("fogDensity"),
		fogDensity:    0.03,
		fogColor:      core.Color{R: 0.7, G: 0.7, B: 0.75, A: 1},

		shadowsEnabledLoc: loc("shadowsEnabled"),
		shadowTexelLoc:    loc("shadowTexel"),

		gpuMeshes: make(map[*scene.Mesh]*GPUMesh),
	}

	gl.UseProgram(prog)

	// Wire the Lights uniform block to binding point 0. GLSL 410 cannot
	// declare the binding in the shader source.
	blockIdx := gl.GetUniformBlockIndex(prog, gl.Str("Lights\x00"))
	if blockIdx == gl.INVALID_INDEX {
		gl.DeleteProgram(prog)
		return nil, fmt.Errorf("main shader has no Lights uniform block")
	}
	gl.UniformBlockBinding(prog, blockIdx, LightBlockBinding)
	r.lights = NewLightBlock()

	// Material texture units
	gl.Uniform1i(loc("albedoTex"), unitAlbedo)
	gl.Uniform1i(loc("normalTex"), unitNormal)
	gl.Uniform1i(loc("metallicRoughnessTex"), unitMetallicRoughness)
	gl.Uniform1i(loc("emissiveTex"), unitEmissive)

	// Shadow sampler units, one per light slot
	for i := 0; i < shadow.MaxDirectionalLights; i++ {
		gl.Uniform1i(loc(fmt.Sprintf("cascadeMaps[%d]", i)), int32(unitCascadeBase+i))
	}
	for i := 0; i < shadow.MaxPointLights; i++ {
		gl.Uniform1i(loc(fmt.Sprintf("pointShadowMaps[%d]", i)), int32(unitPointBase+i))
	}
	for i := 0; i < shadow.MaxSpotLights; i++ {
		gl.Uniform1i(loc(fmt.Sprintf("spotShadowMaps[%d]", i)), int32(unitSpotBase+i))
	}

	return r, nil
}

// ── Viewport ──────────────────────────────────────────────────────────────────

// SetViewport resizes the OpenGL viewport and stores the dimensions for
// restoring after off-screen passes.
func (r *Renderer) SetViewport(width, height int) {
	r.viewportW = int32(width)
	r.viewportH = int32(height)
	gl.Viewport(0, 0, int32(width), int32(height))
}

// ── Skybox ────────────────────────────────────────────────────────────────────

// EnableSkybox compiles the gradient sky shader and uploads the cube geometry.
// Call once after NewRenderer, before the first frame.
func (r *Renderer) EnableSkybox() error {
	if r.skybox != nil {
		r.skybox.Destroy()
	}
	sb, err := NewSkybox()
	if err != nil {
		return err
	}
	r.skybox = sb
	return nil
}

// HasSkybox reports whether a skybox has been created.
func (r *Renderer) HasSkybox() bool { return r.skybox != nil }

// SkyboxRef returns the underlying Skybox so the caller can adjust colours.
// Returns nil when no skybox is active.
func (r *Renderer) SkyboxRef() *Skybox { return r.skybox }

// DrawSkybox renders the gradient sky. It strips the translation column from
// view so the sky appears infinitely far away. No-op when no skybox is active.
func (r *Renderer) DrawSkybox(view, proj mgl32.Mat4) {
	if r.skybox == nil {
		return
	}
	skyView := view
	skyView[12], skyView[13], skyView[14] = 0, 0, 0
	r.skybox.Draw(proj.Mul4(skyView))
}

// ── Post-processing ───────────────────────────────────────────────────────────

// EnablePostProcess creates the HDR FBO at the current viewport size.
// Call once after NewRenderer; re-create on resize via ResizePostProcess.
func (r *Renderer) EnablePostProcess(width, height int) error {
	if r.postProcess != nil {
		r.postProcess.Destroy()
	}
	pp, err := NewPostProcessFBO(width, height)
	if err != nil {
		return err
	}
	r.postProcess = pp
	return nil
}

// HasPostProcess reports whether the HDR FBO is active.
func (r *Renderer) HasPostProcess() bool {
	return r.postProcess != nil
}

// ResizePostProcess recreates the HDR FBO at new dimensions.
func (r *Renderer) ResizePostProcess(width, height int) {
	if r.postProcess != nil {
		r.postProcess.Resize(width, height)
	}
}

// SetExposure sets the tone-mapping exposure value (default 1.0).
func (r *Renderer) SetExposure(exp float32) {
	if r.postProcess != nil {
		r.postProcess.Exposure = exp
	}
}

// EnableBloom activates the bloom passes. EnablePostProcess must come first.
func (r *Renderer) EnableBloom() error {
	if r.postProcess == nil {
		return fmt.Errorf("bloom requires post-processing")
	}
	return r.postProcess.EnableBloom()
}

// SetBloomThreshold sets the luminance cut-off for bloom (default 1.0).
func (r *Renderer) SetBloomThreshold(t float32) {
	if r.postProcess != nil {
		r.postProcess.BloomThreshold = t
	}
}

// SetBloomStrength sets the additive bloom multiplier (default 0.6).
func (r *Renderer) SetBloomStrength(s float32) {
	if r.postProcess != nil {
		r.postProcess.BloomStrength = s
	}
}

// BlitPostProcess resolves the HDR FBO to the default framebuffer with tone
// mapping. A no-op when post-processing is disabled.
func (r *Renderer) BlitPostProcess() {
	if r.postProcess == nil {
		return
	}
	// The fullscreen pass draws a single triangle; wireframe mode would
	// rasterize it as 3 edges and leave the screen empty.
	if r.wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, r.viewportW, r.viewportH)
	r.postProcess.Blit()
	if r.wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	}
}

// ── Lighting resolve wiring ───────────────────────────────────────────────────

// UploadLights rewrites the Lights uniform block. Call once per frame,
// after the shadow prepasses have stored the light matrices and before any
// DrawMesh call.
func (r *Renderer) UploadLights(dirs []*lighting.DirectionalLight, points []*lighting.PointLight, spots []*lighting.SpotLight) {
	r.lights.Upload(dirs, points, spots)
}

// BindShadowMaps binds every allocator target to its fixed texture unit and
// tells the shader whether sampling them is allowed this frame.
func (r *Renderer) BindShadowMaps(alloc *shadow.Allocator, enabled bool) {
	gl.UseProgram(r.program)
	if alloc == nil || !enabled {
		gl.Uniform1i(r.shadowsEnabledLoc, 0)
		return
	}
	cfg := alloc.Config()
	for i := 0; i < cfg.Directional; i++ {
		gl.ActiveTexture(uint32(gl.TEXTURE0 + unitCascadeBase + i))
		gl.BindTexture(gl.TEXTURE_2D_ARRAY, alloc.CascadeTexture(i))
	}
	for i := 0; i < cfg.Point; i++ {
		gl.ActiveTexture(uint32(gl.TEXTURE0 + unitPointBase + i))
		gl.BindTexture(gl.TEXTURE_CUBE_MAP, alloc.CubeTexture(i))
	}
	for i := 0; i < cfg.Spot; i++ {
		gl.ActiveTexture(uint32(gl.TEXTURE0 + unitSpotBase + i))
		gl.BindTexture(gl.TEXTURE_2D, alloc.SpotTexture(i))
	}
	gl.ActiveTexture(gl.TEXTURE0)
	gl.Uniform1i(r.shadowsEnabledLoc, 1)
	gl.Uniform1f(r.shadowTexelLoc, 1/float32(cfg.Resolution))
}

// ── BeginFrame ────────────────────────────────────────────────────────────────

// BeginFrame clears the target framebuffer and sets the per-frame camera
// uniforms. Light data travels separately via UploadLights/BindShadowMaps.
func (r *Renderer) BeginFrame(sky core.Color, ambient core.Color, camPos mgl32.Vec3, view mgl32.Mat4) {
	// Render into the HDR FBO when post-processing is active.
	if r.postProcess != nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, r.postProcess.FBO)
		gl.Viewport(0, 0, r.postProcess.Width, r.postProcess.Height)
	} else {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	}
	gl.ClearColor(sky.R, sky.G, sky.B, sky.A)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	gl.UseProgram(r.program)

	gl.Uniform3f(r.ambientColorLoc, ambient.R, ambient.G, ambient.B)
	gl.Uniform3f(r.cameraPosLoc, camPos.X(), camPos.Y(), camPos.Z())
	gl.UniformMatrix4fv(r.viewLoc, 1, false, &view[0])

	if r.iblEnabled {
		gl.Uniform1i(r.useIBLLoc, 1)
		gl.Uniform3f(r.iblZenithLoc, r.iblZenith.R, r.iblZenith.G, r.iblZenith.B)
		gl.Uniform3f(r.iblHorizonLoc, r.iblHorizon.R, r.iblHorizon.G, r.iblHorizon.B)
		gl.Uniform3f(r.iblGroundLoc, r.iblGround.R, r.iblGround.G, r.iblGround.B)
	} else {
		gl.Uniform1i(r.useIBLLoc, 0)
	}

	if r.fogEnabled {
		gl.Uniform1i(r.fogEnabledLoc, 1)
		gl.Uniform3f(r.fogColorLoc, r.fogColor.R, r.fogColor.G, r.fogColor.B)
		gl.Uniform1f(r.fogDensityLoc, r.fogDensity)
	} else {
		gl.Uniform1i(r.fogEnabledLoc, 0)
	}
}

// ── Wireframe ─────────────────────────────────────────────────────────────────

// SetWireframe toggles wireframe rendering mode.
func (r *Renderer) SetWireframe(enabled bool) {
	r.wireframe = enabled
	if enabled {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
}

// IsWireframe returns whether wireframe mode is active.
func (r *Renderer) IsWireframe() bool {
	return r.wireframe
}

// ── DrawMesh ──────────────────────────────────────────────────────────────────

// DrawMesh draws a mesh with the given MVP and model matrices.
// Material properties are read from mesh.Material.
func (r *Renderer) DrawMesh(mesh *scene.Mesh, mvp, model mgl32.Mat4) {
	gpu := r.ensureUploaded(mesh)
	if gpu == nil {
		return
	}

	gl.UseProgram(r.program)
	gl.Uniform1i(r.instancedLoc, 0)
	gl.UniformMatrix4fv(r.mvpLoc, 1, false, &mvp[0])
	gl.UniformMatrix4fv(r.modelLoc, 1, false, &model[0])

	mat := mesh.Material
	if mat == nil {
		mat = scene.DefaultMaterial()
	}
	r.applyMaterial(mat)

	primitive := uint32(gl.TRIANGLES)
	switch mesh.DrawMode {
	case scene.DrawLines:
		primitive = gl.LINES
	case scene.DrawPoints:
		primitive = gl.POINTS
	}

	gl.BindVertexArray(gpu.VAO)
	if gpu.HasIndices {
		gl.DrawElements(primitive, gpu.IndexCount, gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(primitive, 0, gpu.VertexCount)
	}
	gl.BindVertexArray(0)
}

// ── Instanced rendering ───────────────────────────────────────────────────────

// UploadInstances streams the per-instance MVP/model matrices for mesh into
// its instance VBO, uploading the geometry itself on first use. The batch
// stays resident until the next upload, so the shadow prepasses and the main
// pass share a single upload per frame.
func (r *Renderer) UploadInstances(mesh *scene.Mesh, viewProj mgl32.Mat4, models []mgl32.Mat4) {
	if len(models) == 0 {
		return
	}
	gpu := r.ensureUploaded(mesh)
	if gpu == nil {
		return
	}

	// Flat instance buffer: 32 float32 per instance, column-major.
	//   [0..15]  MVP   = viewProj * model
	//   [16..31] Model
	n := len(models)
	buf := make([]float32, n*32)
	for i, m := range models {
		mvp := viewProj.Mul4(m)
		base := i * 32
		copy(buf[base:base+16], mvp[:])
		copy(buf[base+16:base+32], m[:])
	}

	r.uploadInstanceVBO(gpu, buf, n)
	gpu.InstanceCount = int32(n)
}

// DrawInstances draws the batch most recently streamed with UploadInstances.
// No-op when no batch is resident for the mesh.
func (r *Renderer) DrawInstances(mesh *scene.Mesh) {
	gpu, ok := r.gpuMeshes[mesh]
	if !ok || gpu.InstanceCount == 0 {
		return
	}

	gl.UseProgram(r.program)
	gl.Uniform1i(r.instancedLoc, 1)

	mat := mesh.Material
	if mat == nil {
		mat = scene.DefaultMaterial()
	}
	r.applyMaterial(mat)

	primitive := uint32(gl.TRIANGLES)
	switch mesh.DrawMode {
	case scene.DrawLines:
		primitive = gl.LINES
	case scene.DrawPoints:
		primitive = gl.POINTS
	}

	gl.BindVertexArray(gpu.VAO)
	if gpu.HasIndices {
		gl.DrawElementsInstanced(primitive, gpu.IndexCount, gl.UNSIGNED_INT, nil, gpu.InstanceCount)
	} else {
		gl.DrawArraysInstanced(primitive, 0, gpu.VertexCount, gpu.InstanceCount)
	}
	gl.BindVertexArray(0)

	// Reset so subsequent DrawMesh calls are unaffected.
	gl.Uniform1i(r.instancedLoc, 0)
}

// DrawMeshInstanced renders mesh len(models) times in a single GPU draw call.
// MVPs are computed on the CPU and streamed via a dynamic per-instance VBO
// bound to attrib locations 6-13.
func (r *Renderer) DrawMeshInstanced(mesh *scene.Mesh, viewProj mgl32.Mat4, models []mgl32.Mat4) {
	r.UploadInstances(mesh, viewProj, models)
	r.DrawInstances(mesh)
}

// ── Shadow pass integration ───────────────────────────────────────────────────

// ShadowItem converts a mesh into a depth-pass draw item, uploading it on
// first use. Returns false for meshes that do not cast shadows (flagged
// off, non-triangle draw modes, empty geometry).
func (r *Renderer) ShadowItem(mesh *scene.Mesh, model mgl32.Mat4) (shadow.DrawItem, bool) {
	if !mesh.CastShadow || mesh.DrawMode != scene.DrawTriangles {
		return shadow.DrawItem{}, false
	}
	gpu := r.ensureUploaded(mesh)
	if gpu == nil {
		return shadow.DrawItem{}, false
	}
	return shadow.DrawItem{
		VAO:         gpu.VAO,
		IndexCount:  gpu.IndexCount,
		VertexCount: gpu.VertexCount,
		Model:       model,
	}, true
}

// InstancedShadowItem converts the batch most recently streamed with
// UploadInstances into a single depth-pass draw item covering every
// instance; the depth shader reads the model matrices from the instance
// VBO's attributes. Returns false for meshes that do not cast shadows or
// have no resident batch.
func (r *Renderer) InstancedShadowItem(mesh *scene.Mesh) (shadow.DrawItem, bool) {
	if !mesh.CastShadow || mesh.DrawMode != scene.DrawTriangles {
		return shadow.DrawItem{}, false
	}
	gpu, ok := r.gpuMeshes[mesh]
	if !ok || gpu.InstanceCount == 0 {
		return shadow.DrawItem{}, false
	}
	return shadow.DrawItem{
		VAO:           gpu.VAO,
		IndexCount:    gpu.IndexCount,
		VertexCount:   gpu.VertexCount,
		Instanced:     true,
		InstanceCount: gpu.InstanceCount,
	}, true
}

// applyMaterial sets all material-related shader uniforms and binds textures.
// Must be called while r.program is active.
func (r *Renderer) applyMaterial(mat *scene.Material) {
	gl.Uniform3f(r.matAlbedoLoc, mat.Albedo.R, mat.Albedo.G, mat.Albedo.B)
	gl.Uniform3f(r.matSpecularLoc, mat.Specular.R, mat.Specular.G, mat.Specular.B)
	gl.Uniform1f(r.matShininessLoc, mat.Shininess)

	if mat.UsePBR {
		gl.Uniform1i(r.usePBRLoc, 1)
	} else {
		gl.Uniform1i(r.usePBRLoc, 0)
	}
	gl.Uniform1f(r.matMetallicLoc, mat.Metallic)
	gl.Uniform1f(r.matRoughnessLoc, mat.Roughness)
	gl.Uniform3f(r.matEmissiveLoc, mat.EmissiveColor.R, mat.EmissiveColor.G, mat.EmissiveColor.B)

	if mat.Unlit {
		gl.Uniform1i(r.unlitLoc, 1)
	} else {
		gl.Uniform1i(r.unlitLoc, 0)
	}

	if tex := mat.AlbedoTexture; tex != nil && tex.GLID != 0 {
		gl.ActiveTexture(gl.TEXTURE0 + unitAlbedo)
		gl.BindTexture(gl.TEXTURE_2D, tex.GLID)
		gl.Uniform1i(r.hasTextureLoc, 1)
	} else {
		gl.Uniform1i(r.hasTextureLoc, 0)
	}

	if nrm := mat.NormalTexture; nrm != nil && nrm.GLID != 0 {
		gl.ActiveTexture(gl.TEXTURE0 + unitNormal)
		gl.BindTexture(gl.TEXTURE_2D, nrm.GLID)
		gl.Uniform1i(r.hasNormalTexLoc, 1)
	} else {
		gl.Uniform1i(r.hasNormalTexLoc, 0)
	}

	if mr := mat.MetallicRoughnessTexture; mr != nil && mr.GLID != 0 {
		gl.ActiveTexture(gl.TEXTURE0 + unitMetallicRoughness)
		gl.BindTexture(gl.TEXTURE_2D, mr.GLID)
		gl.Uniform1i(r.hasMetallicRoughnessTexLoc, 1)
	} else {
		gl.Uniform1i(r.hasMetallicRoughnessTexLoc, 0)
	}

	if em := mat.EmissiveTexture; em != nil && em.GLID != 0 {
		gl.ActiveTexture(gl.TEXTURE0 + unitEmissive)
		gl.BindTexture(gl.TEXTURE_2D, em.GLID)
		gl.Uniform1i(r.hasEmissiveTexLoc, 1)
	} else {
		gl.Uniform1i(r.hasEmissiveTexLoc, 0)
	}
	gl.ActiveTexture(gl.TEXTURE0)
}

// uploadInstanceVBO uploads buf to the per-mesh instance VBO, creating it
// and wiring attrib locations 6-13 into the VAO on first call.
func (r *Renderer) uploadInstanceVBO(gpu *GPUMesh, buf []float32, count int) {
	const stride = int32(32 * 4) // 32 float32 * 4 bytes = 128 bytes

	if gpu.InstanceVBO == 0 {
		gl.GenBuffers(1, &gpu.InstanceVBO)
		gl.BindVertexArray(gpu.VAO)
		gl.BindBuffer(gl.ARRAY_BUFFER, gpu.InstanceVBO)

		// MVP columns at locations 6-9
		for i := uint32(0); i < 4; i++ {
			gl.EnableVertexAttribArray(6 + i)
			gl.VertexAttribPointer(6+i, 4, gl.FLOAT, false, stride, gl.PtrOffset(int(i)*16))
			gl.VertexAttribDivisor(6+i, 1)
		}
		// Model columns at locations 10-13 (64 bytes past MVP)
		for i := uint32(0); i < 4; i++ {
			gl.EnableVertexAttribArray(10 + i)
			gl.VertexAttribPointer(10+i, 4, gl.FLOAT, false, stride, gl.PtrOffset(64+int(i)*16))
			gl.VertexAttribDivisor(10+i, 1)
		}
		gl.BindVertexArray(0)
	}

	byteSize := len(buf) * 4
	gl.BindBuffer(gl.ARRAY_BUFFER, gpu.InstanceVBO)
	if count > gpu.InstanceCap {
		gl.BufferData(gl.ARRAY_BUFFER, byteSize, gl.Ptr(buf), gl.DYNAMIC_DRAW)
		gpu.InstanceCap = count
	} else {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, byteSize, gl.Ptr(buf))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// ── Resource management ───────────────────────────────────────────────────────

// ReleaseMesh frees GPU buffers for the given mesh.
func (r *Renderer) ReleaseMesh(mesh *scene.Mesh) {
	if gpu, ok := r.gpuMeshes[mesh]; ok {
		gl.DeleteVertexArrays(1, &gpu.VAO)
		gl.DeleteBuffers(1, &gpu.VBO)
		if gpu.HasIndices {
			gl.DeleteBuffers(1, &gpu.EBO)
		}
		if gpu.InstanceVBO != 0 {
			gl.DeleteBuffers(1, &gpu.InstanceVBO)
		}
		delete(r.gpuMeshes, mesh)
		mesh.GPUData = nil
	}
}

// Destroy releases all GPU resources.
func (r *Renderer) Destroy() {
	for mesh := range r.gpuMeshes {
		r.ReleaseMesh(mesh)
	}
	if r.lights != nil {
		r.lights.Destroy()
	}
	if r.postProcess != nil {
		r.postProcess.Destroy()
	}
	if r.skybox != nil {
		r.skybox.Destroy()
	}
	gl.DeleteProgram(r.program)
}

// SetFog configures and enables exponential depth fog.
// density: 0.01 = light haze, 0.05 = thick fog. color should match the horizon sky.
func (r *Renderer) SetFog(enabled bool, density float32, color core.Color) {
	r.fogEnabled = enabled
	r.fogDensity = density
	r.fogColor = color
}

// EnableIBL activates sky-based image-based lighting in the PBR and Phong shaders.
func (r *Renderer) EnableIBL() {
	r.iblEnabled = true
}

// SetIBLColors updates the sky gradient colours used for ambient irradiance.
func (r *Renderer) SetIBLColors(zenith, horizon, ground core.Color) {
	r.iblZenith = zenith
	r.iblHorizon = horizon
	r.iblGround = ground
}

// ── Internal helpers ──────────────────────────────────────────────────────────

// ensureUploaded uploads vertex/index data if not already done.
func (r *Renderer) ensureUploaded(mesh *scene.Mesh) *GPUMesh {
	if gpu, ok := r.gpuMeshes[mesh]; ok {
		return gpu
	}
	if len(mesh.Vertices) == 0 {
		return nil
	}

	stride := int32(unsafe.Sizeof(core.Vertex{}))

	gpu := &GPUMesh{
		IndexCount:  int32(len(mesh.Indices)),
		VertexCount: int32(len(mesh.Vertices)),
		HasIndices:  len(mesh.Indices) > 0,
	}

	gl.GenVertexArrays(1, &gpu.VAO)
	gl.GenBuffers(1, &gpu.VBO)
	gl.BindVertexArray(gpu.VAO)

	gl.BindBuffer(gl.ARRAY_BUFFER, gpu.VBO)
	gl.BufferData(gl.ARRAY_BUFFER,
		len(mesh.Vertices)*int(stride),
		gl.Ptr(mesh.Vertices),
		gl.STATIC_DRAW)

	var v core.Vertex
	posOff := int(unsafe.Offsetof(v.Position))
	normOff := int(unsafe.Offsetof(v.Normal))
	uvOff := int(unsafe.Offsetof(v.UV))
	colorOff := int(unsafe.Offsetof(v.Color))
	tangentOff := int(unsafe.Offsetof(v.Tangent))
	bitangentOff := int(unsafe.Offsetof(v.Bitangent))

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(posOff))

	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, gl.PtrOffset(normOff))

	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 2, gl.FLOAT, false, stride, gl.PtrOffset(uvOff))

	gl.EnableVertexAttribArray(3)
	gl.VertexAttribPointer(3, 4, gl.FLOAT, false, stride, gl.PtrOffset(colorOff))

	gl.EnableVertexAttribArray(4)
	gl.VertexAttribPointer(4, 3, gl.FLOAT, false, stride, gl.PtrOffset(tangentOff))

	gl.EnableVertexAttribArray(5)
	gl.VertexAttribPointer(5, 3, gl.FLOAT, false, stride, gl.PtrOffset(bitangentOff))

	if gpu.HasIndices {
		gl.GenBuffers(1, &gpu.EBO)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gpu.EBO)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER,
			len(mesh.Indices)*4,
			gl.Ptr(mesh.Indices),
			gl.STATIC_DRAW)
	}

	gl.BindVertexArray(0)

	r.gpuMeshes[mesh] = gpu
	mesh.GPUData = gpu
	return gpu
}
