// Package filter implements the full-screen post-processing passes that run
// after the scene is drawn: volumetric fog and screen-space ambient
// occlusion.
package filter

import (
	"github.com/go-gl/mathgl/mgl32"

	"scenefx/internal/engine3D/shader"
	"scenefx/internal/engine3D/texture"
	"scenefx/internal/gpu"
)

// Texture units shared by every filter program.
const (
	UnitColor = iota
	UnitDepth
	UnitShadowMap
	UnitDither
	UnitAmbientOcclusion
	UnitRadiosity
	UnitNoise
)

var samplerNames = [...]string{
	UnitColor:            "colorTexture",
	UnitDepth:            "depthTexture",
	UnitShadowMap:        "shadowMapTexture",
	UnitDither:           "ditherTexture",
	UnitAmbientOcclusion: "ambientOcclusionTexture",
	UnitRadiosity:        "radiosityTexture",
	UnitNoise:            "noiseTexture",
}

const ditherTexture = "textures/dither.png"

// Camera describes the view a frame was rendered from. Axes are unit length
// and orthogonal; angles are in radians.
type Camera struct {
	Origin  mgl32.Vec3
	Right   mgl32.Vec3
	Up      mgl32.Vec3
	Forward mgl32.Vec3
	FovX    float32
	FovY    float32
	Near    float32
	Far     float32
}

// Frame carries the per-invocation inputs of a filter.
type Frame struct {
	Camera Camera
	Number uint64

	// Depth is the scene depth buffer matching the input color buffer.
	Depth gpu.TextureID
	// ShadowMap and RadiosityVolume are sampled only when the matching
	// quality setting is on.
	ShadowMap       gpu.TextureID
	RadiosityVolume gpu.TextureID

	FogColor    mgl32.Vec3
	FogDistance float32
	// Mirror is set while rendering a reflection.
	Mirror bool
}

// Filter turns a color buffer into a new one. The result comes from the
// target pool and belongs to the caller, who hands it back with Put.
type Filter interface {
	Apply(frame *Frame, input *gpu.RenderTarget) *gpu.RenderTarget
	Close()
}

// Env holds what filters share with the rest of the renderer.
type Env struct {
	Device   gpu.Device
	Programs *shader.Builder
	Textures *texture.Cache
	Targets  *TargetPool
	Settings shader.Settings
}
