package main

import (
	"fmt"

	"scenefx/internal/config"
	"scenefx/internal/convert"
	"scenefx/internal/debug"
	"scenefx/internal/engine3D/filter"
	"scenefx/internal/engine3D/shader"
	"scenefx/internal/engine3D/texture"
	"scenefx/internal/gpu"
	"scenefx/internal/utils"
)

const shaderRoot = "shaders"

// openAssets returns the package archive, when configured, followed by the
// asset directories.
func openAssets(cfg config.Config) (utils.Source, error) {
	var sources utils.MultiSource
	if cfg.Package != "" {
		pkg, err := convert.OpenPkg(cfg.Package)
		if err != nil {
			return nil, fmt.Errorf("open package %s: %w", cfg.Package, err)
		}
		utils.Info("Assets: %s (%d entries)", cfg.Package, len(pkg.Names()))
		sources = append(sources, pkg)
	}
	if len(cfg.Assets) > 0 {
		utils.Info("Assets: %v", cfg.Assets)
		sources = append(sources, utils.NewDirSource(cfg.Assets...))
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no asset directories or package configured")
	}
	return sources, nil
}

// Pipeline owns the GPU resource caches and the filter chain built on them.
type Pipeline struct {
	cfg      config.Config
	device   gpu.Device
	compiler *shader.Compiler
	builder  *shader.Builder
	textures *texture.Cache
	targets  *filter.TargetPool
	chain    *filter.Chain
}

func NewPipeline(device gpu.Device, assets utils.Source, cfg config.Config) (*Pipeline, error) {
	settings := cfg.Quality.Settings()
	compiler := shader.NewCompiler(device, assets, shaderRoot, settings)
	p := &Pipeline{
		cfg:      cfg,
		device:   device,
		compiler: compiler,
		builder:  shader.NewBuilder(compiler),
		textures: texture.NewCache(device, assets),
		targets:  filter.NewTargetPool(device),
	}
	if err := p.build(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) env() filter.Env {
	return filter.Env{
		Device:   p.device,
		Programs: p.builder,
		Textures: p.textures,
		Targets:  p.targets,
		Settings: p.compiler.Settings(),
	}
}

func (p *Pipeline) build() error {
	for _, name := range p.cfg.Programs {
		if _, err := p.builder.Program(name); err != nil {
			return err
		}
	}

	var filters []filter.Filter
	if p.compiler.Settings().SSAO {
		ao, err := filter.NewAOFilter(p.env())
		if err != nil {
			return err
		}
		filters = append(filters, ao)
	}
	fog, err := filter.NewFogFilter(p.env())
	if err != nil {
		for _, f := range filters {
			f.Close()
		}
		return err
	}
	filters = append(filters, fog)

	p.chain = filter.NewChain(p.targets, filters...)
	stats := p.compiler.Stats()
	utils.Info("Pipeline: %d programs, %d shaders, %d textures", len(p.builder.Programs()), stats.Len, p.textures.Len())
	return nil
}

// Apply runs the filter chain. The result goes back with Recycle.
func (p *Pipeline) Apply(frame *filter.Frame, input *gpu.RenderTarget) *gpu.RenderTarget {
	if p.chain == nil {
		return input
	}
	return p.chain.Apply(frame, input)
}

// Stats collects the counters shown by the debug overlay.
func (p *Pipeline) Stats(frame uint64) debug.Stats {
	return debug.Stats{
		Frame:       frame,
		Programs:    len(p.builder.Programs()),
		Shaders:     p.compiler.Stats(),
		Textures:    p.textures.Len(),
		IdleTargets: p.targets.Idle(),
	}
}

func (p *Pipeline) Recycle(rt *gpu.RenderTarget, input *gpu.RenderTarget) {
	if rt != input {
		p.targets.Put(rt)
	}
}

// Reload drops every GPU resource the caches hold and builds them again
// from the current asset contents.
func (p *Pipeline) Reload() error {
	utils.Info("Pipeline: Reloading")
	p.teardown()
	return p.build()
}

func (p *Pipeline) teardown() {
	if p.chain != nil {
		p.chain.Close()
		p.chain = nil
	}
	p.builder.Reset()
	p.compiler.Reset()
	p.textures.Clear()
	p.targets.Release()
}

func (p *Pipeline) Close() {
	p.teardown()
}
