// Package gputest provides an in-memory gpu.Device that records every call,
// so pass ordering and bindings can be asserted without a GL context.
package gputest

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"scenefx/internal/gpu"
)

type Shader struct {
	Stage  gpu.Stage
	Source string
}

// Draw is a snapshot of the pipeline state taken at each DrawFullscreenQuad.
type Draw struct {
	Program  gpu.ProgramID
	Target   *gpu.RenderTarget
	Viewport [2]int32
	Textures map[int]gpu.TextureID
	Uniforms map[string]any
}

type Device struct {
	// CompileFailures maps a source substring to the info log returned when a
	// compiled source contains it.
	CompileFailures map[string]string
	// LinkFailure, when set, fails every link with this log.
	LinkFailure string

	Calls    []string
	Draws    []Draw
	Shaders  map[gpu.ShaderID]Shader
	Programs map[gpu.ProgramID][]gpu.ShaderID
	Textures map[gpu.TextureID]*image.RGBA
	Targets  map[uint32]*gpu.RenderTarget

	TextureUpdates  map[gpu.TextureID]int
	LocationQueries int
	DeletedShaders  []gpu.ShaderID
	DeletedPrograms []gpu.ProgramID
	DeletedTextures []gpu.TextureID
	TargetsCreated  int
	ScreenViewport  [2]int32

	nextID        uint32
	locations     map[gpu.ProgramID]map[string]int32
	locationNames map[int32]string
	program       gpu.ProgramID
	target        *gpu.RenderTarget
	activeUnit    int
	bound         map[int]gpu.TextureID
	uniforms      map[gpu.ProgramID]map[string]any
}

func New() *Device {
	return &Device{
		CompileFailures: make(map[string]string),
		Shaders:         make(map[gpu.ShaderID]Shader),
		Programs:        make(map[gpu.ProgramID][]gpu.ShaderID),
		Textures:        make(map[gpu.TextureID]*image.RGBA),
		Targets:         make(map[uint32]*gpu.RenderTarget),
		TextureUpdates:  make(map[gpu.TextureID]int),
		ScreenViewport:  [2]int32{1280, 720},
		locations:       make(map[gpu.ProgramID]map[string]int32),
		locationNames:   make(map[int32]string),
		bound:           make(map[int]gpu.TextureID),
		uniforms:        make(map[gpu.ProgramID]map[string]any),
	}
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *Device) record(format string, args ...any) {
	d.Calls = append(d.Calls, fmt.Sprintf(format, args...))
}

// CallsWithPrefix returns the recorded calls starting with prefix, in order.
func (d *Device) CallsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range d.Calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls and draws but keeps live objects.
func (d *Device) Reset() {
	d.Calls = nil
	d.Draws = nil
}

func (d *Device) CompileShader(stage gpu.Stage, source string) (gpu.ShaderID, error) {
	keys := make([]string, 0, len(d.CompileFailures))
	for k := range d.CompileFailures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(source, k) {
			d.record("CompileShader %s failed", stage)
			return 0, errors.New(d.CompileFailures[k])
		}
	}
	id := gpu.ShaderID(d.id())
	d.Shaders[id] = Shader{Stage: stage, Source: source}
	d.record("CompileShader %s %d", stage, id)
	return id, nil
}

func (d *Device) DeleteShader(id gpu.ShaderID) {
	delete(d.Shaders, id)
	d.DeletedShaders = append(d.DeletedShaders, id)
	d.record("DeleteShader %d", id)
}

func (d *Device) LinkProgram(shaders []gpu.ShaderID) (gpu.ProgramID, error) {
	if d.LinkFailure != "" {
		d.record("LinkProgram failed")
		return 0, errors.New(d.LinkFailure)
	}
	for _, s := range shaders {
		if _, ok := d.Shaders[s]; !ok {
			return 0, fmt.Errorf("shader %d is not a live shader object", s)
		}
	}
	id := gpu.ProgramID(d.id())
	d.Programs[id] = append([]gpu.ShaderID(nil), shaders...)
	d.locations[id] = make(map[string]int32)
	d.uniforms[id] = make(map[string]any)
	d.record("LinkProgram %d %v", id, shaders)
	return id, nil
}

func (d *Device) DeleteProgram(id gpu.ProgramID) {
	delete(d.Programs, id)
	d.DeletedPrograms = append(d.DeletedPrograms, id)
	d.record("DeleteProgram %d", id)
}

func (d *Device) location(program gpu.ProgramID, name string) int32 {
	d.LocationQueries++
	locs, ok := d.locations[program]
	if !ok {
		return -1
	}
	if loc, ok := locs[name]; ok {
		return loc
	}
	loc := int32(len(d.locationNames))
	locs[name] = loc
	d.locationNames[loc] = name
	return loc
}

func (d *Device) UniformLocation(program gpu.ProgramID, name string) int32 {
	return d.location(program, name)
}

func (d *Device) AttribLocation(program gpu.ProgramID, name string) int32 {
	return d.location(program, name)
}

func cloneRGBA(img *image.RGBA) *image.RGBA {
	c := image.NewRGBA(img.Bounds())
	copy(c.Pix, img.Pix)
	return c
}

func (d *Device) CreateTexture(img *image.RGBA) gpu.TextureID {
	id := gpu.TextureID(d.id())
	d.Textures[id] = cloneRGBA(img)
	d.record("CreateTexture %d %dx%d", id, img.Bounds().Dx(), img.Bounds().Dy())
	return id
}

func (d *Device) UpdateTexture(id gpu.TextureID, img *image.RGBA) {
	d.Textures[id] = cloneRGBA(img)
	d.TextureUpdates[id]++
	d.record("UpdateTexture %d", id)
}

func (d *Device) DeleteTexture(id gpu.TextureID) {
	delete(d.Textures, id)
	d.DeletedTextures = append(d.DeletedTextures, id)
	d.record("DeleteTexture %d", id)
}

func (d *Device) CreateRenderTarget(width, height int32, depth bool) *gpu.RenderTarget {
	rt := &gpu.RenderTarget{
		FBO:    d.id(),
		Color:  gpu.TextureID(d.id()),
		Width:  width,
		Height: height,
	}
	if depth {
		rt.Depth = gpu.TextureID(d.id())
	}
	d.Targets[rt.FBO] = rt
	d.TargetsCreated++
	d.record("CreateRenderTarget %d %dx%d", rt.FBO, width, height)
	return rt
}

func (d *Device) DeleteRenderTarget(rt *gpu.RenderTarget) {
	delete(d.Targets, rt.FBO)
	d.record("DeleteRenderTarget %d", rt.FBO)
}

func (d *Device) BindRenderTarget(rt *gpu.RenderTarget) {
	d.target = rt
	if rt == nil {
		d.record("BindRenderTarget screen")
		return
	}
	d.record("BindRenderTarget %d %dx%d", rt.FBO, rt.Width, rt.Height)
}

func (d *Device) UseProgram(id gpu.ProgramID) {
	d.program = id
	d.record("UseProgram %d", id)
}

func (d *Device) BindTexture(unit int, id gpu.TextureID) {
	if id == 0 {
		delete(d.bound, unit)
	} else {
		d.bound[unit] = id
	}
	d.activeUnit = unit
	d.record("BindTexture %d %d", unit, id)
}

func (d *Device) SelectTextureUnit(unit int) {
	d.activeUnit = unit
	d.record("SelectTextureUnit %d", unit)
}

// ActiveUnit returns the last selected texture unit.
func (d *Device) ActiveUnit() int { return d.activeUnit }

// BoundTextures returns a copy of the current unit bindings.
func (d *Device) BoundTextures() map[int]gpu.TextureID {
	out := make(map[int]gpu.TextureID, len(d.bound))
	for k, v := range d.bound {
		out[k] = v
	}
	return out
}

func (d *Device) setUniform(location int32, v any) {
	if location < 0 {
		return
	}
	name, ok := d.locationNames[location]
	if !ok {
		name = fmt.Sprintf("#%d", location)
	}
	if u, ok := d.uniforms[d.program]; ok {
		u[name] = v
	}
	d.record("Uniform %s", name)
}

func (d *Device) Uniform1i(location int32, v int32)          { d.setUniform(location, v) }
func (d *Device) Uniform1f(location int32, v float32)        { d.setUniform(location, v) }
func (d *Device) Uniform2f(location int32, v mgl32.Vec2)     { d.setUniform(location, v) }
func (d *Device) Uniform3f(location int32, v mgl32.Vec3)     { d.setUniform(location, v) }
func (d *Device) UniformMatrix4(location int32, m mgl32.Mat4) { d.setUniform(location, m) }

func (d *Device) DrawFullscreenQuad() {
	draw := Draw{
		Program:  d.program,
		Target:   d.target,
		Viewport: d.ScreenViewport,
		Textures: d.BoundTextures(),
		Uniforms: make(map[string]any),
	}
	if d.target != nil {
		draw.Viewport = [2]int32{d.target.Width, d.target.Height}
	}
	for k, v := range d.uniforms[d.program] {
		draw.Uniforms[k] = v
	}
	d.Draws = append(d.Draws, draw)
	d.record("DrawFullscreenQuad")
}

// ProgramShaderSources returns the sources attached to program, in link order.
func (d *Device) ProgramShaderSources(program gpu.ProgramID) []string {
	var out []string
	for _, s := range d.Programs[program] {
		out = append(out, d.Shaders[s].Source)
	}
	return out
}
