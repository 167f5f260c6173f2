package filter

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenefx/internal/engine3D/shader"
	"scenefx/internal/engine3D/texture"
	"scenefx/internal/gpu"
	"scenefx/internal/gpu/gputest"
	"scenefx/internal/utils"
)

type fixture struct {
	dev   *gputest.Device
	env   Env
	input *gpu.RenderTarget
	frame *Frame
}

func newFixture(t *testing.T, settings shader.Settings) *fixture {
	t.Helper()

	var dither bytes.Buffer
	require.NoError(t, png.Encode(&dither, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	assets := utils.MapSource{
		"shaders/fog.program":       []byte("fullscreen.vs\nfog.fs\n"),
		"shaders/ssao.program":      []byte("fullscreen.vs\nssao.fs\n"),
		"shaders/ssao_blur.program": []byte("fullscreen.vs\nssao_blur.fs\n"),
		"shaders/fullscreen.vs":     []byte("void main() {}\n"),
		"shaders/fog.fs":            []byte("void main() {}\n"),
		"shaders/ssao.fs":           []byte("void main() {}\n"),
		"shaders/ssao_blur.fs":      []byte("void main() {}\n"),
		"textures/dither.png":       dither.Bytes(),
	}

	dev := gputest.New()
	compiler := shader.NewCompiler(dev, assets, "shaders", settings)
	env := Env{
		Device:   dev,
		Programs: shader.NewBuilder(compiler),
		Textures: texture.NewCache(dev, assets),
		Targets:  NewTargetPool(dev),
		Settings: settings,
	}

	scene := dev.CreateRenderTarget(640, 480, true)
	frame := &Frame{
		Camera: Camera{
			Origin:  mgl32.Vec3{10, 20, 30},
			Right:   mgl32.Vec3{1, 0, 0},
			Up:      mgl32.Vec3{0, 1, 0},
			Forward: mgl32.Vec3{0, 0, -1},
			FovX:    mgl32.DegToRad(90),
			FovY:    mgl32.DegToRad(73.74),
			Near:    4,
			Far:     4096,
		},
		Number:          1,
		Depth:           scene.Depth,
		ShadowMap:       dev.CreateTexture(image.NewRGBA(image.Rect(0, 0, 1, 1))),
		RadiosityVolume: dev.CreateTexture(image.NewRGBA(image.Rect(0, 0, 1, 1))),
		FogColor:        mgl32.Vec3{0.5, 0.5, 0.5},
		FogDistance:     1000,
	}
	dev.Reset()
	return &fixture{dev: dev, env: env, input: scene, frame: frame}
}

func TestFogCoefficients(t *testing.T) {
	s := FogCoefficients(mgl32.Vec3{0.5, 0.5, 0.5})
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 0.4545, s.Transmission[i], 1e-4)
		assert.InDelta(t, 0.2727, s.Sunlight[i], 1e-4)
		assert.InDelta(t, 0.2273, s.Ambient[i], 1e-4)
		assert.InDelta(t, 0.2673, s.Radiosity[i], 1e-4)
	}
}

func TestFogCoefficientsChannelsIndependent(t *testing.T) {
	mixed := FogCoefficients(mgl32.Vec3{0.1, 0.5, 0.9})
	for i, c := range []float32{0.1, 0.5, 0.9} {
		single := FogCoefficients(mgl32.Vec3{c, c, c})
		assert.InDelta(t, single.Transmission[0], mixed.Transmission[i], 1e-6)
		assert.InDelta(t, single.Sunlight[0], mixed.Sunlight[i], 1e-6)
		assert.InDelta(t, single.Ambient[0], mixed.Ambient[i], 1e-6)
		assert.InDelta(t, single.Radiosity[0], mixed.Radiosity[i], 1e-6)
	}

	// Changing one channel leaves the others untouched.
	other := FogCoefficients(mgl32.Vec3{0.1, 0.2, 0.9})
	assert.Equal(t, mixed.Sunlight[0], other.Sunlight[0])
	assert.Equal(t, mixed.Sunlight[2], other.Sunlight[2])
	assert.NotEqual(t, mixed.Sunlight[1], other.Sunlight[1])
}

func TestFogViewProjectionIgnoresTranslation(t *testing.T) {
	cam := newFixture(t, shader.Settings{}).frame.Camera
	moved := cam
	moved.Origin = mgl32.Vec3{-500, 3, 77}
	assert.Equal(t, FogViewProjection(cam), FogViewProjection(moved))

	// A point straight ahead lands in the middle of texture space.
	p := FogViewProjection(cam).Mul4x1(mgl32.Vec4{0, 0, -100, 1})
	assert.InDelta(t, 0.5, p[0]/p[3], 1e-5)
	assert.InDelta(t, 0.5, p[1]/p[3], 1e-5)

	// The horizontal edge of the field of view maps to u = 1.
	edge := float32(100 * math.Tan(float64(cam.FovX)/2))
	p = FogViewProjection(cam).Mul4x1(mgl32.Vec4{edge, 0, -100, 1})
	assert.InDelta(t, 1.0, p[0]/p[3], 1e-4)
}

func TestFogPassBindings(t *testing.T) {
	fx := newFixture(t, shader.Settings{})
	fog, err := NewFogFilter(fx.env)
	require.NoError(t, err)
	fx.dev.Reset()

	out := fog.Apply(fx.frame, fx.input)
	require.Len(t, fx.dev.Draws, 1)
	draw := fx.dev.Draws[0]

	assert.Same(t, out, draw.Target)
	assert.Equal(t, [2]int32{640, 480}, draw.Viewport)
	assert.Equal(t, fog.program.ID, draw.Program)
	assert.Equal(t, map[int]gpu.TextureID{
		UnitColor:  fx.input.Color,
		UnitDepth:  fx.frame.Depth,
		UnitDither: fog.dither.Get().ID,
		UnitNoise:  fog.noise,
	}, draw.Textures)

	assert.InDelta(t, float32(0.25), draw.Uniforms["fogColor"].(mgl32.Vec3)[0], 1e-6)
	assert.Equal(t, float32(1000), draw.Uniforms["fogDistance"])
	assert.Equal(t, fx.frame.Camera.Origin, draw.Uniforms["viewOrigin"])
	assert.Equal(t, mgl32.Vec2{4, 4096}, draw.Uniforms["zNearFar"])
	assert.Equal(t, int32(UnitNoise), draw.Uniforms["noiseTexture"])
	assert.Contains(t, draw.Uniforms, "viewProjectionMatrix")
	assert.Contains(t, draw.Uniforms, "sunlightScale")
	assert.Contains(t, draw.Uniforms, "ambientScale")
	assert.Contains(t, draw.Uniforms, "radiosityScale")
	assert.Contains(t, draw.Uniforms, "fov")

	// Units are restored after the draw.
	assert.Empty(t, fx.dev.BoundTextures())
	assert.Equal(t, 0, fx.dev.ActiveUnit())
}

func TestFogPassOptionalVolumes(t *testing.T) {
	fx := newFixture(t, shader.Settings{VolumetricFogShadows: true, Radiosity: 1})
	fog, err := NewFogFilter(fx.env)
	require.NoError(t, err)
	fx.dev.Reset()

	fog.Apply(fx.frame, fx.input)
	draw := fx.dev.Draws[0]
	assert.Equal(t, fx.frame.ShadowMap, draw.Textures[UnitShadowMap])
	assert.Equal(t, fx.frame.RadiosityVolume, draw.Textures[UnitRadiosity])
	assert.Len(t, draw.Textures, 6)
}

func TestPassOrder(t *testing.T) {
	fx := newFixture(t, shader.Settings{})
	fog, err := NewFogFilter(fx.env)
	require.NoError(t, err)
	fx.env.Targets.Put(fog.Apply(fx.frame, fx.input))
	fx.dev.Reset()

	fog.Apply(fx.frame, fx.input)

	var sequence []string
	for _, c := range fx.dev.Calls {
		if strings.HasPrefix(c, "Uniform") {
			continue
		}
		sequence = append(sequence, c)
	}
	out := fx.dev.Draws[0].Target
	dither := fog.dither.Get().ID
	assert.Equal(t, []string{
		bindCall(UnitColor, fx.input.Color),
		bindCall(UnitDepth, fx.frame.Depth),
		bindCall(UnitDither, dither),
		bindCall(UnitNoise, fog.noise),
		targetCall(out),
		programCall(fog.program.ID),
		"DrawFullscreenQuad",
		bindCall(UnitColor, 0),
		bindCall(UnitDepth, 0),
		bindCall(UnitDither, 0),
		bindCall(UnitNoise, 0),
		"SelectTextureUnit 0",
	}, sequence)
}

func TestFogNoiseOncePerFrame(t *testing.T) {
	fx := newFixture(t, shader.Settings{})
	fog, err := NewFogFilter(fx.env)
	require.NoError(t, err)

	fx.frame.Number = 7
	out := fog.Apply(fx.frame, fx.input)
	fx.env.Targets.Put(out)
	noise := fog.noise
	first := append([]byte(nil), fx.dev.Textures[noise].Pix...)

	// A mirror view of the same frame reuses the noise.
	fog.Apply(fx.frame, fx.input)
	assert.Equal(t, 0, fx.dev.TextureUpdates[noise])
	assert.Equal(t, first, fx.dev.Textures[noise].Pix)
	assert.Len(t, fx.dev.CallsWithPrefix("CreateTexture"), 2) // dither + noise

	fx.frame.Number = 8
	fog.Apply(fx.frame, fx.input)
	assert.Equal(t, 1, fx.dev.TextureUpdates[noise])
	assert.NotEqual(t, first, fx.dev.Textures[noise].Pix)

	fog.Apply(fx.frame, fx.input)
	assert.Equal(t, 1, fx.dev.TextureUpdates[noise])

	fog.Close()
	assert.Contains(t, fx.dev.DeletedTextures, noise)
}

func TestAOPassCounts(t *testing.T) {
	fx := newFixture(t, shader.Settings{SSAO: true})
	ao, err := NewAOFilter(fx.env)
	require.NoError(t, err)
	fx.dev.Reset()

	out := ao.Apply(fx.frame, fx.input)
	require.Len(t, fx.dev.Draws, 5)
	assert.Equal(t, ao.occlusion.ID, fx.dev.Draws[0].Program)
	for _, d := range fx.dev.Draws {
		assert.Equal(t, [2]int32{640, 480}, d.Viewport)
	}
	for _, d := range fx.dev.Draws[1:] {
		assert.Equal(t, ao.blur.ID, d.Program)
	}
	assert.Same(t, out, fx.dev.Draws[4].Target)
	assert.Equal(t, [2]int32{640, 480}, [2]int32{out.Width, out.Height})

	fx.dev.Reset()
	fx.frame.Mirror = true
	mirrored := ao.Apply(fx.frame, fx.input)
	require.Len(t, fx.dev.Draws, 3)
	assert.Equal(t, ao.occlusion.ID, fx.dev.Draws[0].Program)
	assert.Equal(t, [2]int32{320, 240}, fx.dev.Draws[0].Viewport)
	assert.Equal(t, [2]int32{320, 240}, fx.dev.Draws[1].Viewport)
	// The last blur upsamples to the input size.
	assert.Equal(t, [2]int32{640, 480}, fx.dev.Draws[2].Viewport)
	assert.Same(t, mirrored, fx.dev.Draws[2].Target)
}

func TestAOBlurAlternatesDirection(t *testing.T) {
	fx := newFixture(t, shader.Settings{SSAO: true})
	ao, err := NewAOFilter(fx.env)
	require.NoError(t, err)
	fx.dev.Reset()

	ao.Apply(fx.frame, fx.input)
	texel := mgl32.Vec2{1.0 / 640, 1.0 / 480}
	for i, d := range fx.dev.Draws[1:] {
		dir := d.Uniforms["blurDirection"].(mgl32.Vec2)
		if i%2 == 0 {
			assert.Equal(t, mgl32.Vec2{texel[0], 0}, dir, "pass %d", i)
		} else {
			assert.Equal(t, mgl32.Vec2{0, texel[1]}, dir, "pass %d", i)
		}
		// Each blur samples the previous pass's output.
		assert.Equal(t, fx.dev.Draws[i].Target.Color, d.Textures[UnitAmbientOcclusion])
	}
	assert.Equal(t, int32(0), fx.dev.Draws[1].Uniforms["composite"])
	assert.Equal(t, int32(1), fx.dev.Draws[4].Uniforms["composite"])
	assert.Equal(t, fx.input.Color, fx.dev.Draws[4].Textures[UnitColor])
}

func TestAOLowQualityHalvesResolution(t *testing.T) {
	fx := newFixture(t, shader.Settings{SSAO: true, LowQualitySSAO: true})
	ao, err := NewAOFilter(fx.env)
	require.NoError(t, err)
	fx.dev.Reset()

	ao.Apply(fx.frame, fx.input)
	require.Len(t, fx.dev.Draws, 5)
	assert.Equal(t, [2]int32{320, 240}, fx.dev.Draws[0].Viewport)
	assert.Equal(t, [2]int32{320, 240}, fx.dev.Draws[3].Viewport)
	assert.Equal(t, [2]int32{640, 480}, fx.dev.Draws[4].Viewport)
}

func TestAOReusesTargets(t *testing.T) {
	fx := newFixture(t, shader.Settings{SSAO: true})
	ao, err := NewAOFilter(fx.env)
	require.NoError(t, err)

	out := ao.Apply(fx.frame, fx.input)
	fx.env.Targets.Put(out)
	created := fx.dev.TargetsCreated

	out = ao.Apply(fx.frame, fx.input)
	fx.env.Targets.Put(out)
	assert.Equal(t, created, fx.dev.TargetsCreated)
}

func TestTargetPool(t *testing.T) {
	dev := gputest.New()
	pool := NewTargetPool(dev)

	a := pool.Get(64, 64, false)
	b := pool.Get(64, 64, true)
	assert.NotSame(t, a, b)

	pool.Put(a)
	pool.Put(a)
	assert.Equal(t, 1, pool.Idle())
	assert.Same(t, a, pool.Get(64, 64, false))
	assert.NotSame(t, a, pool.Get(32, 64, false))

	pool.Put(b)
	pool.Release()
	assert.Equal(t, 0, pool.Idle())
	assert.NotContains(t, dev.Targets, b.FBO)
}

func TestChain(t *testing.T) {
	fx := newFixture(t, shader.Settings{SSAO: true})
	ao, err := NewAOFilter(fx.env)
	require.NoError(t, err)
	fog, err := NewFogFilter(fx.env)
	require.NoError(t, err)
	chain := NewChain(fx.env.Targets, ao, fog)
	fx.dev.Reset()

	out := chain.Apply(fx.frame, fx.input)
	require.Len(t, fx.dev.Draws, 6)

	aoOut := fx.dev.Draws[4].Target
	assert.Equal(t, aoOut.Color, fx.dev.Draws[5].Textures[UnitColor])
	assert.Same(t, out, fx.dev.Draws[5].Target)
	assert.NotSame(t, fx.input, out)

	// The ambient occlusion result went back to the pool, the input did not.
	assert.Same(t, aoOut, fx.env.Targets.Get(640, 480, false))
	assert.NotContains(t, fx.env.Targets.free, fx.input)

	chain.Close()
}

func bindCall(unit int, tex gpu.TextureID) string {
	return fmt.Sprintf("BindTexture %d %d", unit, tex)
}

func targetCall(rt *gpu.RenderTarget) string {
	return fmt.Sprintf("BindRenderTarget %d %dx%d", rt.FBO, rt.Width, rt.Height)
}

func programCall(id gpu.ProgramID) string {
	return fmt.Sprintf("UseProgram %d", id)
}
