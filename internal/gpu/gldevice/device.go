// Package gldevice implements gpu.Device on OpenGL 3.3 core. The GL context
// is owned by the raylib window; New must run on the thread that opened it,
// after the window exists.
package gldevice

import (
	"errors"
	"fmt"
	"image"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"scenefx/internal/gpu"
	"scenefx/internal/utils"
)

type Device struct {
	quadVAO uint32
	quadVBO uint32
}

var _ gpu.Device = (*Device)(nil)

func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gl init: %w", err)
	}
	utils.Info("GL: %s (%s)", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))

	d := &Device{}

	// Two triangles covering clip space, position only. Texture coordinates
	// are derived from position in the vertex shader.
	quad := []float32{
		-1, -1, 1, -1, 1, 1,
		-1, -1, 1, 1, -1, 1,
	}
	gl.GenVertexArrays(1, &d.quadVAO)
	gl.BindVertexArray(d.quadVAO)
	gl.GenBuffers(1, &d.quadVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quad)*4, gl.Ptr(quad), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	return d, nil
}

func (d *Device) Close() {
	gl.DeleteBuffers(1, &d.quadVBO)
	gl.DeleteVertexArrays(1, &d.quadVAO)
}

func glStage(stage gpu.Stage) (uint32, error) {
	switch stage {
	case gpu.StageVertex:
		return gl.VERTEX_SHADER, nil
	case gpu.StageFragment:
		return gl.FRAGMENT_SHADER, nil
	case gpu.StageGeometry:
		return gl.GEOMETRY_SHADER, nil
	}
	return 0, fmt.Errorf("unsupported shader stage %v", stage)
}

func (d *Device) CompileShader(stage gpu.Stage, source string) (gpu.ShaderID, error) {
	kind, err := glStage(stage)
	if err != nil {
		return 0, err
	}

	shader := gl.CreateShader(kind)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := infoLog(logLength, func(buf *uint8) { gl.GetShaderInfoLog(shader, logLength, nil, buf) })
		gl.DeleteShader(shader)
		return 0, errors.New(log)
	}
	return gpu.ShaderID(shader), nil
}

func (d *Device) DeleteShader(id gpu.ShaderID) { gl.DeleteShader(uint32(id)) }

func (d *Device) LinkProgram(shaders []gpu.ShaderID) (gpu.ProgramID, error) {
	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, uint32(s))
	}
	// Attribute 0 is the quad position for every full-screen pass.
	gl.BindAttribLocation(program, 0, gl.Str("a_Position\x00"))
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := infoLog(logLength, func(buf *uint8) { gl.GetProgramInfoLog(program, logLength, nil, buf) })
		gl.DeleteProgram(program)
		return 0, errors.New(log)
	}
	for _, s := range shaders {
		gl.DetachShader(program, uint32(s))
	}
	return gpu.ProgramID(program), nil
}

func infoLog(length int32, read func(buf *uint8)) string {
	if length <= 1 {
		return "no diagnostic output"
	}
	buf := make([]uint8, length)
	read(&buf[0])
	return strings.TrimRight(string(buf), "\x00\n ")
}

func (d *Device) DeleteProgram(id gpu.ProgramID) { gl.DeleteProgram(uint32(id)) }

func (d *Device) UniformLocation(program gpu.ProgramID, name string) int32 {
	return gl.GetUniformLocation(uint32(program), gl.Str(name+"\x00"))
}

func (d *Device) AttribLocation(program gpu.ProgramID, name string) int32 {
	return gl.GetAttribLocation(uint32(program), gl.Str(name+"\x00"))
}

func (d *Device) CreateTexture(img *image.RGBA) gpu.TextureID {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	upload(img)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return gpu.TextureID(tex)
}

func upload(img *image.RGBA) {
	b := img.Bounds()
	if img.Stride != b.Dx()*4 {
		c := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			copy(c.Pix[y*c.Stride:(y+1)*c.Stride], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		img = c
	}
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(b.Dx()), int32(b.Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
}

func (d *Device) UpdateTexture(id gpu.TextureID, img *image.RGBA) {
	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
	upload(img)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (d *Device) DeleteTexture(id gpu.TextureID) {
	tex := uint32(id)
	gl.DeleteTextures(1, &tex)
}

func (d *Device) CreateRenderTarget(width, height int32, depth bool) *gpu.RenderTarget {
	rt := &gpu.RenderTarget{Width: width, Height: height}

	var color uint32
	gl.GenTextures(1, &color)
	gl.BindTexture(gl.TEXTURE_2D, color)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA16F, width, height, 0, gl.RGBA, gl.FLOAT, nil)
	rt.Color = gpu.TextureID(color)

	gl.GenFramebuffers(1, &rt.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, rt.FBO)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, color, 0)

	if depth {
		var depthTex uint32
		gl.GenTextures(1, &depthTex)
		gl.BindTexture(gl.TEXTURE_2D, depthTex)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT24, width, height, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, depthTex, 0)
		rt.Depth = gpu.TextureID(depthTex)
	}

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		utils.Error("GL: Framebuffer %dx%d incomplete (status 0x%x)", width, height, status)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	utils.Debug("GL: Created render target %v", rt)
	return rt
}

func (d *Device) DeleteRenderTarget(rt *gpu.RenderTarget) {
	gl.DeleteFramebuffers(1, &rt.FBO)
	textures := []uint32{uint32(rt.Color)}
	if rt.HasDepth() {
		textures = append(textures, uint32(rt.Depth))
	}
	gl.DeleteTextures(int32(len(textures)), &textures[0])
}

func (d *Device) BindRenderTarget(rt *gpu.RenderTarget) {
	if rt == nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.Viewport(0, 0, int32(rl.GetRenderWidth()), int32(rl.GetRenderHeight()))
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, rt.FBO)
	gl.Viewport(0, 0, rt.Width, rt.Height)
}

func (d *Device) UseProgram(id gpu.ProgramID) { gl.UseProgram(uint32(id)) }

func (d *Device) BindTexture(unit int, id gpu.TextureID) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
}

func (d *Device) SelectTextureUnit(unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
}

func (d *Device) Uniform1i(location int32, v int32)     { gl.Uniform1i(location, v) }
func (d *Device) Uniform1f(location int32, v float32)   { gl.Uniform1f(location, v) }
func (d *Device) Uniform2f(location int32, v mgl32.Vec2) { gl.Uniform2f(location, v[0], v[1]) }
func (d *Device) Uniform3f(location int32, v mgl32.Vec3) { gl.Uniform3f(location, v[0], v[1], v[2]) }

func (d *Device) UniformMatrix4(location int32, m mgl32.Mat4) {
	gl.UniformMatrix4fv(location, 1, false, &m[0])
}

func (d *Device) DrawFullscreenQuad() {
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.BLEND)
	gl.BindVertexArray(d.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
}
