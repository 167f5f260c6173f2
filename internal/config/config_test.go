package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenefx/internal/engine3D/shader"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"assets"}, cfg.Assets)
	assert.Contains(t, cfg.Programs, "shaders/fog.program")
	assert.Equal(t, shader.Settings{SSAO: true, ShadowMaps: true, Radiosity: 1}, cfg.Quality.Settings())
	assert.NoError(t, cfg.validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenefx.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
assets = ["/usr/share/game/base", "mods"]
log_level = "debug"

[window]
width = 800
height = 600

[quality]
hdr = true
volumetric_fog_shadows = true
radiosity = 2

[fog]
color = [0.2, 0.3, 0.4]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/usr/share/game/base", "mods"}, cfg.Assets)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int32(800), cfg.Window.Width)
	assert.Equal(t, "scenefx", cfg.Window.Title)
	assert.Equal(t, mgl32.Vec3{0.2, 0.3, 0.4}, cfg.Fog.ColorVec())
	assert.Equal(t, float32(2048), cfg.Fog.Distance)

	s := cfg.Quality.Settings()
	assert.True(t, s.HDR)
	assert.True(t, s.VolumetricFogShadows)
	assert.True(t, s.SSAO)
	assert.Equal(t, 2, s.Radiosity)
	assert.Equal(t, "#define USE_HDR 1\n#define USE_VOLUMETRIC_FOG 1\n#define USE_SSAO 1\n#define USE_RADIOSITY 2\n", s.MacroHeader())
}

func TestParseErrors(t *testing.T) {
	cfg := Default()
	err := Parse([]byte("[quality]\nbloom = true\n"), &cfg)
	var strict *toml.StrictMissingError
	assert.ErrorAs(t, err, &strict)

	cfg = Default()
	assert.Error(t, Parse([]byte("[fog]\ndistance = -5\n"), &cfg))

	cfg = Default()
	var decodeErr *toml.DecodeError
	assert.ErrorAs(t, Parse([]byte("assets = [\n"), &cfg), &decodeErr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
