package shader

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"scenefx/internal/cache"
	"scenefx/internal/gpu"
	"scenefx/internal/utils"
)

// Reference is one entry of a program definition: a shader file, or a macro
// group directive when Directive is set.
type Reference struct {
	Line      int
	File      string
	Directive Directive
}

// Definition is the parsed form of a .program file.
type Definition struct {
	Name       string
	References []Reference
}

// ParseDefinition parses a program definition. Lines are trimmed; lines
// starting with # are comments; *name* lines are macro group directives;
// anything else names a shader file relative to the shader root.
//
// The first blank line ends the definition. Everything after it is ignored.
func ParseDefinition(name string, text []byte) (*Definition, error) {
	def := &Definition{Name: name}

	scanner := bufio.NewScanner(bytes.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			if dropped := countRemaining(scanner); dropped > 0 {
				utils.Debug("Program: %s - Blank line %d ends definition, %d later lines ignored", name, lineNo, dropped)
			}
			break
		}

		switch line[0] {
		case '#':
			continue
		case '*':
			directiveName := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, "*"), "*"))
			d, err := ParseDirective(directiveName)
			if err != nil {
				return nil, &ParseError{Program: name, Line: lineNo, Text: line, Err: err}
			}
			def.References = append(def.References, Reference{Line: lineNo, Directive: d})
		default:
			def.References = append(def.References, Reference{Line: lineNo, File: utils.CleanName(line)})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read program %s: %w", name, err)
	}
	return def, nil
}

func countRemaining(scanner *bufio.Scanner) int {
	n := 0
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			n++
		}
	}
	return n
}

// Resolve expands directives under s and returns the shader files in
// definition order.
func (d *Definition) Resolve(s Settings) []string {
	var files []string
	for _, ref := range d.References {
		if ref.Directive != DirectiveNone {
			files = append(files, ref.Directive.Expand(s)...)
			continue
		}
		files = append(files, ref.File)
	}
	return files
}

// Builder turns program definitions into linked programs. Programs are built
// once per name and kept until Reset.
type Builder struct {
	compiler *Compiler
	programs map[string]*Program
}

func NewBuilder(compiler *Compiler) *Builder {
	return &Builder{
		compiler: compiler,
		programs: make(map[string]*Program),
	}
}

// Program returns the linked program described by the definition file name,
// building it on first request.
func (b *Builder) Program(name string) (*Program, error) {
	name = utils.CleanName(name)
	if p, ok := b.programs[name]; ok {
		return p, nil
	}

	p, err := b.build(name)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", name, err)
	}
	b.programs[name] = p
	return p, nil
}

func (b *Builder) build(name string) (*Program, error) {
	text, err := b.compiler.Assets().ReadFile(name)
	if err != nil {
		return nil, err
	}

	def, err := ParseDefinition(name, text)
	if err != nil {
		return nil, err
	}

	files := def.Resolve(b.compiler.Settings())
	utils.Debug("Program: %s - Resolved %d shaders: %v", name, len(files), files)

	var (
		handles []cache.Handle[*Shader]
		ids     []gpu.ShaderID
		seen    = make(map[string]bool)
	)
	release := func() {
		for _, h := range handles {
			b.compiler.Release(h)
		}
	}

	for _, file := range files {
		if seen[file] {
			utils.Debug("Program: %s - Skipping repeated shader %s", name, file)
			continue
		}
		seen[file] = true

		h, err := b.compiler.Shader(file)
		if err != nil {
			release()
			return nil, err
		}
		handles = append(handles, h)
		ids = append(ids, h.Get().ID)
	}

	device := b.compiler.Device()
	id, err := device.LinkProgram(ids)
	if err != nil {
		release()
		return nil, &LinkError{Program: name, Log: err.Error()}
	}
	utils.Info("Program: %s - Linked %d shaders (ID: %d)", name, len(ids), id)

	return newProgram(name, id, device, handles), nil
}

// Programs returns the names of built programs.
func (b *Builder) Programs() []string {
	names := make([]string, 0, len(b.programs))
	for name := range b.programs {
		names = append(names, name)
	}
	return names
}

// Reset deletes every built program and releases its shaders.
func (b *Builder) Reset() {
	for name, p := range b.programs {
		utils.Debug("Program: Deleting %s (ID: %d)", name, p.ID)
		b.compiler.Device().DeleteProgram(p.ID)
		for _, h := range p.shaders {
			b.compiler.Release(h)
		}
	}
	b.programs = make(map[string]*Program)
}
