package filter

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"scenefx/internal/cache"
	"scenefx/internal/engine3D/shader"
	"scenefx/internal/engine3D/texture"
	"scenefx/internal/gpu"
	"scenefx/internal/utils"
)

const (
	fogProgram = "shaders/fog.program"

	sunlightBrightness  = 0.6
	ambientBrightness   = 1.0
	radiosityBrightness = 0.5
	radiosityOffset     = 0.04
)

// FogScales are the per-channel lighting factors of the fog medium.
type FogScales struct {
	Transmission mgl32.Vec3
	Sunlight     mgl32.Vec3
	Ambient      mgl32.Vec3
	Radiosity    mgl32.Vec3
}

// FogCoefficients derives the fog lighting factors from a linear fog color.
// Each channel depends only on the same channel of c.
func FogCoefficients(c mgl32.Vec3) FogScales {
	var s FogScales
	for i := 0; i < 3; i++ {
		t := c[i] / (sunlightBrightness + ambientBrightness*c[i])
		s.Transmission[i] = t
		s.Sunlight[i] = t * sunlightBrightness
		s.Ambient[i] = t * c[i] * ambientBrightness
		s.Radiosity[i] = t*radiosityBrightness + radiosityOffset
	}
	return s
}

// FogViewProjection returns the camera's view-projection without the
// translation, mapped from clip space to [0,1] texture space.
func FogViewProjection(cam Camera) mgl32.Mat4 {
	r, u, f := cam.Right, cam.Up, cam.Forward
	view := mgl32.Mat4{
		r[0], u[0], -f[0], 0,
		r[1], u[1], -f[1], 0,
		r[2], u[2], -f[2], 0,
		0, 0, 0, 1,
	}

	aspect := float32(math.Tan(float64(cam.FovX)/2) / math.Tan(float64(cam.FovY)/2))
	projection := mgl32.Perspective(cam.FovY, aspect, cam.Near, cam.Far)

	remap := mgl32.Translate3D(0.5, 0.5, 0.5).Mul4(mgl32.Scale3D(0.5, 0.5, 0.5))
	return remap.Mul4(projection).Mul4(view)
}

// FogFilter composites volumetric fog over the color buffer.
type FogFilter struct {
	env     Env
	program *shader.Program
	dither  cache.Handle[*texture.Image]

	noise      gpu.TextureID
	noiseFrame uint64
}

func NewFogFilter(env Env) (*FogFilter, error) {
	program, err := env.Programs.Program(fogProgram)
	if err != nil {
		return nil, fmt.Errorf("fog filter: %w", err)
	}
	dither, err := env.Textures.Acquire(ditherTexture)
	if err != nil {
		return nil, fmt.Errorf("fog filter: %w", err)
	}
	return &FogFilter{env: env, program: program, dither: dither}, nil
}

// updateNoise regenerates the noise texture when frame differs from the
// frame it was last generated for.
func (f *FogFilter) updateNoise(frame uint64) {
	if f.noise != 0 && f.noiseFrame == frame {
		return
	}
	img := generateNoise(frame)
	if f.noise == 0 {
		f.noise = f.env.Device.CreateTexture(img)
	} else {
		f.env.Device.UpdateTexture(f.noise, img)
	}
	f.noiseFrame = frame
	utils.Debug("Fog: Regenerated noise for frame %d", frame)
}

func (f *FogFilter) Apply(frame *Frame, input *gpu.RenderTarget) *gpu.RenderTarget {
	f.updateNoise(frame.Number)

	settings := f.env.Settings
	cam := frame.Camera
	color := mgl32.Vec3{
		frame.FogColor[0] * frame.FogColor[0],
		frame.FogColor[1] * frame.FogColor[1],
		frame.FogColor[2] * frame.FogColor[2],
	}
	scales := FogCoefficients(color)

	textures := []binding{
		{UnitColor, input.Color},
		{UnitDepth, frame.Depth},
		{UnitDither, f.dither.Get().ID},
		{UnitNoise, f.noise},
	}
	if settings.VolumetricFogShadows {
		textures = append(textures, binding{UnitShadowMap, frame.ShadowMap})
	}
	if settings.RadiosityLevel() >= 1 {
		textures = append(textures, binding{UnitRadiosity, frame.RadiosityVolume})
	}

	out := f.env.Targets.Get(input.Width, input.Height, false)
	runPass(f.env.Device, pass{
		program:  f.program,
		target:   out,
		textures: textures,
		uniforms: func(p *shader.Program) {
			p.SetMat4("viewProjectionMatrix", FogViewProjection(cam))
			p.SetVec3("viewOrigin", cam.Origin)
			p.SetFloat("fogDistance", frame.FogDistance)
			p.SetVec3("sunlightScale", scales.Sunlight)
			p.SetVec3("ambientScale", scales.Ambient)
			p.SetVec3("radiosityScale", scales.Radiosity)
			p.SetVec3("fogColor", color)
			p.SetVec2("zNearFar", mgl32.Vec2{cam.Near, cam.Far})
			p.SetVec2("fov", mgl32.Vec2{cam.FovX, cam.FovY})
		},
	})
	return out
}

// Close releases the dither texture and deletes the noise texture.
func (f *FogFilter) Close() {
	f.env.Textures.Release(f.dither)
	if f.noise != 0 {
		f.env.Device.DeleteTexture(f.noise)
		f.noise = 0
	}
}
