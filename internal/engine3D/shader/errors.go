package shader

import "fmt"

// ParseError reports a bad line in a program definition.
type ParseError struct {
	Program string
	Line    int
	Text    string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %q: %v", e.Program, e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type UnknownDirectiveError struct {
	Directive string
}

func (e *UnknownDirectiveError) Error() string {
	return fmt.Sprintf("unknown directive %q", e.Directive)
}

// UnknownStageError is returned for shader file names that carry none of
// the .vs, .fs or .gs markers.
type UnknownStageError struct {
	Shader string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("cannot infer shader stage of %q", e.Shader)
}

// CompileError carries the driver diagnostics for a rejected shader.
type CompileError struct {
	Shader string
	Log    string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s:\n%s", e.Shader, e.Log)
}

// LinkError carries the driver diagnostics for a rejected program.
type LinkError struct {
	Program string
	Log     string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link %s:\n%s", e.Program, e.Log)
}
