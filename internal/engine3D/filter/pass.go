package filter

import (
	"sort"

	"scenefx/internal/engine3D/shader"
	"scenefx/internal/gpu"
)

type binding struct {
	unit    int
	texture gpu.TextureID
}

// pass is one full-screen draw.
type pass struct {
	program  *shader.Program
	target   *gpu.RenderTarget
	textures []binding
	uniforms func(p *shader.Program)
}

// runPass draws p and leaves every texture unit it touched unbound, with
// unit 0 selected.
func runPass(device gpu.Device, p pass) {
	bound := make([]binding, 0, len(p.textures))
	for _, b := range p.textures {
		if b.texture != 0 {
			bound = append(bound, b)
		}
	}
	sort.SliceStable(bound, func(i, j int) bool { return bound[i].unit < bound[j].unit })

	// 1. Inputs
	for _, b := range bound {
		device.BindTexture(b.unit, b.texture)
	}

	// 2. Destination and viewport
	device.BindRenderTarget(p.target)

	// 3. Program and uniforms
	p.program.Use()
	for _, b := range bound {
		p.program.SetInt(samplerNames[b.unit], int32(b.unit))
	}
	if p.uniforms != nil {
		p.uniforms(p.program)
	}

	// 4. Draw
	device.DrawFullscreenQuad()

	// 5. Restore texture units
	for _, b := range bound {
		device.BindTexture(b.unit, 0)
	}
	device.SelectTextureUnit(0)
}
