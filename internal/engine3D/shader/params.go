package shader

import (
	"github.com/go-gl/mathgl/mgl32"

	"scenefx/internal/cache"
	"scenefx/internal/gpu"
)

// Program is a linked GPU program. Uniform and attribute locations are looked
// up on first use and remembered by the program itself.
type Program struct {
	Name string
	ID   gpu.ProgramID

	device     gpu.Device
	shaders    []cache.Handle[*Shader]
	uniforms   map[string]int32
	attributes map[string]int32
}

func newProgram(name string, id gpu.ProgramID, device gpu.Device, shaders []cache.Handle[*Shader]) *Program {
	return &Program{
		Name:       name,
		ID:         id,
		device:     device,
		shaders:    shaders,
		uniforms:   make(map[string]int32),
		attributes: make(map[string]int32),
	}
}

// Shaders lists the attached shader files in link order.
func (p *Program) Shaders() []string {
	names := make([]string, len(p.shaders))
	for i, h := range p.shaders {
		names[i] = h.Name()
	}
	return names
}

// Uniform returns the location of a uniform, -1 when the program has none.
func (p *Program) Uniform(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := p.device.UniformLocation(p.ID, name)
	p.uniforms[name] = loc
	return loc
}

// Attribute returns the location of a vertex attribute, -1 when absent.
func (p *Program) Attribute(name string) int32 {
	if loc, ok := p.attributes[name]; ok {
		return loc
	}
	loc := p.device.AttribLocation(p.ID, name)
	p.attributes[name] = loc
	return loc
}

func (p *Program) Use() { p.device.UseProgram(p.ID) }

// The setters below apply to the program currently in use and skip uniforms
// the program does not declare.

func (p *Program) SetInt(name string, v int32) {
	if loc := p.Uniform(name); loc != -1 {
		p.device.Uniform1i(loc, v)
	}
}

func (p *Program) SetFloat(name string, v float32) {
	if loc := p.Uniform(name); loc != -1 {
		p.device.Uniform1f(loc, v)
	}
}

func (p *Program) SetVec2(name string, v mgl32.Vec2) {
	if loc := p.Uniform(name); loc != -1 {
		p.device.Uniform2f(loc, v)
	}
}

func (p *Program) SetVec3(name string, v mgl32.Vec3) {
	if loc := p.Uniform(name); loc != -1 {
		p.device.Uniform3f(loc, v)
	}
}

func (p *Program) SetMat4(name string, m mgl32.Mat4) {
	if loc := p.Uniform(name); loc != -1 {
		p.device.UniformMatrix4(loc, m)
	}
}
