package shader

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenefx/internal/gpu"
	"scenefx/internal/gpu/gputest"
	"scenefx/internal/utils"
)

func newTestCompiler(assets utils.MapSource, s Settings) (*Compiler, *gputest.Device) {
	dev := gputest.New()
	return NewCompiler(dev, assets, "shaders", s), dev
}

func TestCompilerPrependsHeader(t *testing.T) {
	c, dev := newTestCompiler(utils.MapSource{
		"shaders/fog.fs": []byte("void main() {}\n"),
	}, Settings{SSAO: true})

	h, err := c.Shader("fog.fs")
	require.NoError(t, err)
	s := h.Get()

	assert.Equal(t, gpu.StageFragment, s.Stage)
	assert.True(t, strings.HasPrefix(s.Source, Settings{SSAO: true}.MacroHeader()))
	assert.Contains(t, s.Source, "void main() {}")
	assert.Equal(t, s.Source, dev.Shaders[s.ID].Source)
}

func TestCompilerKeepsVersionFirst(t *testing.T) {
	c, _ := newTestCompiler(utils.MapSource{
		"shaders/fog.fs": []byte("\n#version 330 core\nout vec4 color;\n"),
	}, Settings{})

	h, err := c.Shader("fog.fs")
	require.NoError(t, err)

	lines := strings.Split(h.Get().Source, "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Equal(t, "#version 330 core", lines[0])
	assert.Equal(t, "#define USE_HDR 0", lines[1])
	assert.Equal(t, "#define USE_RADIOSITY 0", lines[4])
	assert.Equal(t, "out vec4 color;", lines[5])
	assert.Equal(t, 1, strings.Count(h.Get().Source, "#version"))
}

func TestCompilerExpandsIncludesOnce(t *testing.T) {
	c, _ := newTestCompiler(utils.MapSource{
		"shaders/fog.fs":   []byte("#include \"common.h\"\n#include \"noise.h\"\nvoid main() {}\n"),
		"shaders/common.h": []byte("float saturate(float x) { return clamp(x, 0.0, 1.0); }\n"),
		"shaders/noise.h":  []byte("#include \"common.h\"\nfloat noise(vec2 p);\n"),
	}, Settings{})

	h, err := c.Shader("fog.fs")
	require.NoError(t, err)
	src := h.Get().Source

	assert.Equal(t, 1, strings.Count(src, "float saturate"))
	assert.Contains(t, src, "float noise(vec2 p);")
	assert.NotContains(t, src, "#include")
	assert.Less(t, strings.Index(src, "float saturate"), strings.Index(src, "float noise"))
}

func TestCompilerMissingInclude(t *testing.T) {
	c, _ := newTestCompiler(utils.MapSource{
		"shaders/fog.fs": []byte("#include \"absent.h\"\n"),
	}, Settings{})

	_, err := c.Shader("fog.fs")
	var missing *utils.MissingResourceError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "shaders/absent.h", missing.Name)
}

func TestCompilerErrors(t *testing.T) {
	c, dev := newTestCompiler(utils.MapSource{
		"shaders/broken.fs": []byte("syntax error here\n"),
		"shaders/fog.txt":   []byte(""),
	}, Settings{})
	dev.CompileFailures["syntax error"] = "0:1(1): error: syntax error, unexpected IDENTIFIER"

	_, err := c.Shader("absent.fs")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = c.Shader("fog.txt")
	var stageErr *UnknownStageError
	assert.ErrorAs(t, err, &stageErr)

	_, err = c.Shader("broken.fs")
	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "broken.fs", compileErr.Shader)
	assert.Contains(t, compileErr.Log, "unexpected IDENTIFIER")
	assert.Equal(t, 0, c.shaders.Len())
}

func TestCompilerSharesShaders(t *testing.T) {
	c, dev := newTestCompiler(utils.MapSource{
		"shaders/fog.vs": []byte("void main() {}\n"),
	}, Settings{})

	h1, err := c.Shader("fog.vs")
	require.NoError(t, err)
	h2, err := c.Shader("./fog.vs")
	require.NoError(t, err)

	id := h1.Get().ID
	assert.Equal(t, id, h2.Get().ID)
	assert.Len(t, dev.CallsWithPrefix("CompileShader"), 1)

	c.Release(h1)
	assert.Empty(t, dev.DeletedShaders)
	c.Release(h2)
	assert.Equal(t, []gpu.ShaderID{id}, dev.DeletedShaders)

	h3, err := c.Shader("fog.vs")
	require.NoError(t, err)
	assert.NotEqual(t, id, h3.Get().ID)
}

func TestCompilerReset(t *testing.T) {
	c, dev := newTestCompiler(utils.MapSource{
		"shaders/fog.vs": []byte("void main() {}\n"),
	}, Settings{})

	old, err := c.Shader("fog.vs")
	require.NoError(t, err)
	c.Reset()
	assert.False(t, old.Valid())
	assert.Len(t, dev.DeletedShaders, 1)

	fresh, err := c.Shader("fog.vs")
	require.NoError(t, err)
	assert.True(t, fresh.Valid())
	assert.Len(t, dev.CallsWithPrefix("CompileShader"), 2)
}
