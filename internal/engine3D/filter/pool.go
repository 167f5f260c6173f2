package filter

import (
	"scenefx/internal/gpu"
	"scenefx/internal/utils"
)

// TargetPool recycles render targets between passes and frames.
type TargetPool struct {
	device gpu.Device
	free   []*gpu.RenderTarget
}

func NewTargetPool(device gpu.Device) *TargetPool {
	return &TargetPool{device: device}
}

// Get returns an idle target of exactly this size and depth configuration,
// creating one when none is idle.
func (p *TargetPool) Get(width, height int32, depth bool) *gpu.RenderTarget {
	for i, rt := range p.free {
		if rt.Width == width && rt.Height == height && rt.HasDepth() == depth {
			p.free = append(p.free[:i], p.free[i+1:]...)
			return rt
		}
	}
	utils.Debug("Filter: Allocating %dx%d render target", width, height)
	return p.device.CreateRenderTarget(width, height, depth)
}

// Put returns rt to the pool.
func (p *TargetPool) Put(rt *gpu.RenderTarget) {
	if rt == nil {
		return
	}
	for _, idle := range p.free {
		if idle == rt {
			utils.Warn("Filter: Render target %v returned twice", rt)
			return
		}
	}
	p.free = append(p.free, rt)
}

// Idle returns the number of targets waiting for reuse.
func (p *TargetPool) Idle() int { return len(p.free) }

// Release deletes every idle target.
func (p *TargetPool) Release() {
	for _, rt := range p.free {
		p.device.DeleteRenderTarget(rt)
	}
	p.free = nil
}
