package opengl

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castlight/lighting"
)

// The GLSL block declares these offsets implicitly via std140; the Go side
// must match them or every light past the first reads garbage.
func TestLightBlockLayoutConstants(t *testing.T) {
	assert.Equal(t, 108, dirLightFloats)
	assert.Equal(t, 0, dirBase)
	assert.Equal(t, 216, pointBase)
	assert.Equal(t, 280, spotBase)
	assert.Equal(t, 424, countsBase)
	assert.Equal(t, 428, lightBlockFloats)
	assert.Equal(t, 0, lightBlockBytes%16, "std140 block size must be 16-byte aligned")
}

func TestPackLightsCounts(t *testing.T) {
	sun, err := lighting.NewDirectionalLight(mgl32.Vec3{0, -1, 0}, []float32{10, 20, 30}, 100)
	require.NoError(t, err)
	p, err := lighting.NewPointLight(mgl32.Vec3{1, 2, 3}, 9)
	require.NoError(t, err)
	sp, err := lighting.NewSpotLight(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{0, -1, 0}, 0.95, 0.9, 30)
	require.NoError(t, err)

	var buf [lightBlockFloats]float32
	packLights(&buf, []*lighting.DirectionalLight{sun},
		[]*lighting.PointLight{p, p}, []*lighting.SpotLight{sp, sp, sp})

	assert.Equal(t, float32(1), buf[countsBase+0])
	assert.Equal(t, float32(2), buf[countsBase+1])
	assert.Equal(t, float32(3), buf[countsBase+2])
}

func TestPackDirectionalLight(t *testing.T) {
	sun, err := lighting.NewDirectionalLight(mgl32.Vec3{0, -1, 0}, []float32{10, 20, 30}, 100)
	require.NoError(t, err)
	sun.Intensity = 2.5
	sun.Matrices[0] = mgl32.Translate3D(1, 2, 3)

	var buf [lightBlockFloats]float32
	packLights(&buf, []*lighting.DirectionalLight{sun}, nil, nil)

	// direction + cast flag
	assert.Equal(t, float32(-1), buf[1])
	assert.Equal(t, float32(1), buf[3])
	// intensity rides in color.w
	assert.Equal(t, float32(2.5), buf[7])
	// shadow far + cascade count
	assert.Equal(t, float32(100), buf[8])
	assert.Equal(t, float32(4), buf[9])
	// splits land on vec4 boundaries
	assert.Equal(t, float32(10), buf[12])
	assert.Equal(t, float32(20), buf[16])
	assert.Equal(t, float32(30), buf[20])
	// first cascade matrix starts right after the 4 split slots
	matBase := 12 + 4*4
	assert.Equal(t, sun.Matrices[0][12], buf[matBase+12]) // translation column
}

func TestPackPointLightAttenuation(t *testing.T) {
	p, err := lighting.NewPointLight(mgl32.Vec3{1, 2, 3}, 9)
	require.NoError(t, err)
	p.CastShadow = false

	var buf [lightBlockFloats]float32
	packLights(&buf, nil, []*lighting.PointLight{p}, nil)

	assert.Equal(t, float32(1), buf[pointBase+0])
	assert.Equal(t, float32(0), buf[pointBase+3], "cast flag")
	assert.Equal(t, float32(1), buf[pointBase+8], "constant")
	assert.InDelta(t, 4.5/9.0, buf[pointBase+9], 1e-6, "linear")
	assert.InDelta(t, 75.0/81.0, buf[pointBase+10], 1e-6, "quadratic")
	assert.Equal(t, float32(9), buf[pointBase+11], "radius")
}

func TestPackSpotLightCutoffsAndMatrix(t *testing.T) {
	sp, err := lighting.NewSpotLight(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{0, -1, 0}, 0.95, 0.9, 30)
	require.NoError(t, err)
	sp.Matrix = mgl32.Scale3D(2, 2, 2)

	var buf [lightBlockFloats]float32
	packLights(&buf, nil, nil, []*lighting.SpotLight{sp})

	assert.Equal(t, float32(0.95), buf[spotBase+7], "inner cutoff in direction.w")
	assert.Equal(t, float32(0.9), buf[spotBase+15], "outer cutoff in atten.w")
	assert.Equal(t, float32(30), buf[spotBase+16], "radius")
	assert.Equal(t, float32(2), buf[spotBase+20], "matrix m00")
}

func TestPackLightsTruncatesOverCapacity(t *testing.T) {
	var points []*lighting.PointLight
	for i := 0; i < 6; i++ {
		p, err := lighting.NewPointLight(mgl32.Vec3{float32(i), 0, 0}, 5)
		require.NoError(t, err)
		points = append(points, p)
	}

	var buf [lightBlockFloats]float32
	packLights(&buf, nil, points, nil)
	assert.Equal(t, float32(4), buf[countsBase+1])
}
