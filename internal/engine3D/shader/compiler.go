package shader

import (
	"fmt"
	"path"
	"strings"

	"scenefx/internal/cache"
	"scenefx/internal/gpu"
	"scenefx/internal/utils"
)

// Shader is one compiled stage. Source is exactly what the driver received.
type Shader struct {
	Name   string
	Stage  gpu.Stage
	Header string
	Body   string
	Source string
	ID     gpu.ShaderID
}

// Compiler loads shader files from the asset source, prefixes them with the
// settings macro header and compiles them. Results are shared by name.
type Compiler struct {
	device   gpu.Device
	assets   utils.Source
	root     string
	settings Settings
	shaders  *cache.Cache[*Shader]
}

// NewCompiler reads shader files from root inside assets.
func NewCompiler(device gpu.Device, assets utils.Source, root string, settings Settings) *Compiler {
	c := &Compiler{
		device:   device,
		assets:   assets,
		root:     root,
		settings: settings,
	}
	c.shaders = cache.New(c.load, func(name string, s *Shader) {
		utils.Debug("Shader: Deleting %s (ID: %d)", name, s.ID)
		c.device.DeleteShader(s.ID)
	})
	return c
}

func (c *Compiler) Settings() Settings { return c.settings }

func (c *Compiler) Device() gpu.Device { return c.device }

func (c *Compiler) Assets() utils.Source { return c.assets }

// Shader returns the compiled shader for name, compiling it on first use.
// Every successful call must be paired with Release.
func (c *Compiler) Shader(name string) (cache.Handle[*Shader], error) {
	return c.shaders.Acquire(utils.CleanName(name))
}

func (c *Compiler) Release(h cache.Handle[*Shader]) {
	c.shaders.Release(h)
}

// Reset deletes every compiled shader. Handles obtained earlier become stale.
func (c *Compiler) Reset() {
	utils.Debug("Shader: Clearing %d compiled shaders", c.shaders.Len())
	c.shaders.Clear()
}

func (c *Compiler) Stats() cache.Stats { return c.shaders.Stats() }

func (c *Compiler) path(name string) string {
	if c.root == "" {
		return name
	}
	return path.Join(c.root, name)
}

func (c *Compiler) load(name string) (*Shader, error) {
	stage, err := StageOf(name)
	if err != nil {
		return nil, err
	}

	data, err := c.assets.ReadFile(c.path(name))
	if err != nil {
		return nil, err
	}

	s := &Shader{
		Name:   name,
		Stage:  stage,
		Header: c.settings.MacroHeader(),
		Body:   strings.TrimPrefix(string(data), "\ufeff"),
	}
	s.Source, err = c.Preprocess(s.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	s.ID, err = c.device.CompileShader(stage, s.Source)
	if err != nil {
		return nil, &CompileError{Shader: name, Log: err.Error()}
	}
	utils.Info("Shader: %s - Compiled %s stage (ID: %d)", name, stage, s.ID)
	return s, nil
}

// Preprocess builds the final source for body: the macro header, the body,
// and every #include "file" expanded once. A leading #version line stays
// first.
func (c *Compiler) Preprocess(body string) (string, error) {
	var sb strings.Builder

	version, rest := splitVersion(body)
	if version != "" {
		sb.WriteString(version)
		sb.WriteString("\n")
	}
	sb.WriteString(c.settings.MacroHeader())

	included := make(map[string]bool)
	if err := c.expand(&sb, rest, included); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (c *Compiler) expand(sb *strings.Builder, source string, included map[string]bool) error {
	for _, line := range strings.Split(source, "\n") {
		file, ok := includeTarget(line)
		if !ok {
			sb.WriteString(line)
			sb.WriteString("\n")
			continue
		}

		file = utils.CleanName(file)
		if included[file] {
			continue
		}
		included[file] = true

		content, err := c.assets.ReadFile(c.path(file))
		if err != nil {
			return fmt.Errorf("include %s: %w", file, err)
		}
		utils.Debug("Shader: Including %s", file)
		if err := c.expand(sb, strings.TrimPrefix(string(content), "\ufeff"), included); err != nil {
			return err
		}
	}
	return nil
}

func includeTarget(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#include \"") || !strings.HasSuffix(trimmed, "\"") || len(trimmed) < len("#include \"\"") {
		return "", false
	}
	return strings.TrimSpace(trimmed[len("#include \"") : len(trimmed)-1]), true
}

// splitVersion returns the #version line of body, if it is the first
// non-empty line, and the remaining text.
func splitVersion(body string) (string, string) {
	rest := body
	for rest != "" {
		line, tail, _ := strings.Cut(rest, "\n")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			rest = tail
			continue
		}
		if strings.HasPrefix(trimmed, "#version") {
			return trimmed, tail
		}
		break
	}
	return "", body
}
