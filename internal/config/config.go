// Package config loads the renderer settings file.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"

	"scenefx/internal/engine3D/shader"
	"scenefx/internal/utils"
)

type Window struct {
	Width  int32  `toml:"width"`
	Height int32  `toml:"height"`
	Title  string `toml:"title"`
	Hidden bool   `toml:"hidden"`
}

type Quality struct {
	HDR                  bool `toml:"hdr"`
	VolumetricFogShadows bool `toml:"volumetric_fog_shadows"`
	SSAO                 bool `toml:"ssao"`
	LowQualitySSAO       bool `toml:"low_quality_ssao"`
	ShadowMaps           bool `toml:"shadow_maps"`
	Radiosity            int  `toml:"radiosity"`
}

// Settings converts the quality section into shader settings.
func (q Quality) Settings() shader.Settings {
	return shader.Settings{
		HDR:                  q.HDR,
		VolumetricFogShadows: q.VolumetricFogShadows,
		SSAO:                 q.SSAO,
		Radiosity:            q.Radiosity,
		ShadowMaps:           q.ShadowMaps,
		LowQualitySSAO:       q.LowQualitySSAO,
	}
}

type Fog struct {
	Color    [3]float32 `toml:"color"`
	Distance float32    `toml:"distance"`
}

func (f Fog) ColorVec() mgl32.Vec3 { return mgl32.Vec3(f.Color) }

type Config struct {
	// Assets lists asset directories searched in order.
	Assets []string `toml:"assets"`
	// Package is an optional .pkg archive searched before Assets.
	Package  string   `toml:"package"`
	LogLevel string   `toml:"log_level"`
	Programs []string `toml:"programs"`

	Window  Window  `toml:"window"`
	Quality Quality `toml:"quality"`
	Fog     Fog     `toml:"fog"`
}

func Default() Config {
	return Config{
		Assets:   []string{"assets"},
		LogLevel: "warn",
		Programs: []string{
			"shaders/fog.program",
			"shaders/ssao.program",
			"shaders/ssao_blur.program",
		},
		Window: Window{Title: "scenefx"},
		Quality: Quality{
			SSAO:       true,
			ShadowMaps: true,
			Radiosity:  1,
		},
		Fog: Fog{
			Color:    [3]float32{0.5, 0.55, 0.6},
			Distance: 2048,
		},
	}
}

// Load reads a TOML file over the defaults. Keys absent from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	utils.Debug("Config: Loaded %s", path)
	return cfg, nil
}

// Parse decodes TOML into cfg, keeping fields the document does not set.
func Parse(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	return cfg.validate()
}

func (c *Config) validate() error {
	if c.Window.Width < 0 || c.Window.Height < 0 {
		return fmt.Errorf("window size %dx%d is negative", c.Window.Width, c.Window.Height)
	}
	if c.Fog.Distance <= 0 {
		return fmt.Errorf("fog distance must be positive, got %g", c.Fog.Distance)
	}
	return nil
}
