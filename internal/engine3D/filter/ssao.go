package filter

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"scenefx/internal/cache"
	"scenefx/internal/engine3D/shader"
	"scenefx/internal/engine3D/texture"
	"scenefx/internal/gpu"
)

const (
	ssaoProgram     = "shaders/ssao.program"
	ssaoBlurProgram = "shaders/ssao_blur.program"

	blurPasses       = 4
	mirrorBlurPasses = 2
)

// AOFilter darkens the color buffer by screen-space ambient occlusion. The
// occlusion term is estimated from depth, smoothed by a depth-aware blur
// alternating horizontal and vertical, and multiplied into the color during
// the last blur.
type AOFilter struct {
	env       Env
	occlusion *shader.Program
	blur      *shader.Program
	dither    cache.Handle[*texture.Image]
}

func NewAOFilter(env Env) (*AOFilter, error) {
	occlusion, err := env.Programs.Program(ssaoProgram)
	if err != nil {
		return nil, fmt.Errorf("ambient occlusion filter: %w", err)
	}
	blur, err := env.Programs.Program(ssaoBlurProgram)
	if err != nil {
		return nil, fmt.Errorf("ambient occlusion filter: %w", err)
	}
	dither, err := env.Textures.Acquire(ditherTexture)
	if err != nil {
		return nil, fmt.Errorf("ambient occlusion filter: %w", err)
	}
	return &AOFilter{env: env, occlusion: occlusion, blur: blur, dither: dither}, nil
}

// workingSize is the resolution occlusion is estimated at.
func (f *AOFilter) workingSize(frame *Frame, input *gpu.RenderTarget) (int32, int32) {
	w, h := input.Width, input.Height
	if frame.Mirror || f.env.Settings.LowQualitySSAO {
		w, h = max(w/2, 1), max(h/2, 1)
	}
	return w, h
}

func (f *AOFilter) Apply(frame *Frame, input *gpu.RenderTarget) *gpu.RenderTarget {
	cam := frame.Camera
	zNearFar := mgl32.Vec2{cam.Near, cam.Far}
	w, h := f.workingSize(frame, input)
	texel := mgl32.Vec2{1 / float32(w), 1 / float32(h)}

	passes := blurPasses
	if frame.Mirror {
		passes = mirrorBlurPasses
	}

	pool := f.env.Targets
	src := pool.Get(w, h, false)
	runPass(f.env.Device, pass{
		program: f.occlusion,
		target:  src,
		textures: []binding{
			{UnitDepth, frame.Depth},
			{UnitDither, f.dither.Get().ID},
		},
		uniforms: func(p *shader.Program) {
			p.SetVec2("zNearFar", zNearFar)
			p.SetVec2("fov", mgl32.Vec2{cam.FovX, cam.FovY})
			p.SetVec2("texelSize", texel)
		},
	})

	for i := 0; i < passes; i++ {
		last := i == passes-1

		var dst *gpu.RenderTarget
		if last {
			dst = pool.Get(input.Width, input.Height, false)
		} else {
			dst = pool.Get(w, h, false)
		}

		direction := mgl32.Vec2{texel[0], 0}
		if i%2 == 1 {
			direction = mgl32.Vec2{0, texel[1]}
		}

		textures := []binding{
			{UnitDepth, frame.Depth},
			{UnitAmbientOcclusion, src.Color},
		}
		composite := int32(0)
		if last {
			textures = append(textures, binding{UnitColor, input.Color})
			composite = 1
		}

		runPass(f.env.Device, pass{
			program:  f.blur,
			target:   dst,
			textures: textures,
			uniforms: func(p *shader.Program) {
				p.SetVec2("zNearFar", zNearFar)
				p.SetVec2("blurDirection", direction)
				p.SetInt("composite", composite)
			},
		})

		pool.Put(src)
		src = dst
	}
	return src
}

func (f *AOFilter) Close() {
	f.env.Textures.Release(f.dither)
}
