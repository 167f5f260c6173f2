// Package gpu defines the small slice of a graphics API that the shader,
// texture and filter packages drive. The OpenGL implementation lives in
// gldevice; gputest provides a recording device for tests.
package gpu

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

type Stage int

const (
	StageVertex Stage = iota
	StageFragment
	StageGeometry
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageGeometry:
		return "geometry"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

type (
	ShaderID  uint32
	ProgramID uint32
	TextureID uint32
)

// RenderTarget is an offscreen framebuffer with a color attachment and an
// optional depth attachment. Its size never changes after creation.
type RenderTarget struct {
	FBO    uint32
	Color  TextureID
	Depth  TextureID
	Width  int32
	Height int32
}

func (rt *RenderTarget) HasDepth() bool { return rt.Depth != 0 }

func (rt *RenderTarget) String() string {
	return fmt.Sprintf("target#%d(%dx%d)", rt.FBO, rt.Width, rt.Height)
}

// Device is the render-thread-owned GPU context.
//
// CompileShader and LinkProgram return the driver's info log as the error
// text on failure. A nil target in BindRenderTarget selects the default
// framebuffer. BindTexture with texture 0 unbinds the unit.
type Device interface {
	CompileShader(stage Stage, source string) (ShaderID, error)
	DeleteShader(id ShaderID)
	LinkProgram(shaders []ShaderID) (ProgramID, error)
	DeleteProgram(id ProgramID)
	UniformLocation(program ProgramID, name string) int32
	AttribLocation(program ProgramID, name string) int32

	CreateTexture(img *image.RGBA) TextureID
	UpdateTexture(id TextureID, img *image.RGBA)
	DeleteTexture(id TextureID)

	CreateRenderTarget(width, height int32, depth bool) *RenderTarget
	DeleteRenderTarget(rt *RenderTarget)
	BindRenderTarget(rt *RenderTarget)

	UseProgram(id ProgramID)
	BindTexture(unit int, id TextureID)
	SelectTextureUnit(unit int)

	Uniform1i(location int32, v int32)
	Uniform1f(location int32, v float32)
	Uniform2f(location int32, v mgl32.Vec2)
	Uniform3f(location int32, v mgl32.Vec3)
	UniformMatrix4(location int32, m mgl32.Mat4)

	DrawFullscreenQuad()
}
