package shader

import (
	"fmt"
	"strings"
)

// Settings are the quality switches that shape every compiled shader.
type Settings struct {
	HDR                  bool
	VolumetricFogShadows bool
	SSAO                 bool
	// Radiosity is 0 (off), 1 or 2 (high). Larger values count as 2.
	Radiosity int

	// ShadowMaps selects real shadow map sampling in the shadow directives.
	ShadowMaps bool
	// LowQualitySSAO runs ambient occlusion at half resolution.
	LowQualitySSAO bool
}

// RadiosityLevel returns Radiosity clamped to 0..2.
func (s Settings) RadiosityLevel() int {
	switch {
	case s.Radiosity <= 0:
		return 0
	case s.Radiosity >= 2:
		return 2
	}
	return s.Radiosity
}

func boolDefine(b bool) int {
	if b {
		return 1
	}
	return 0
}

// MacroHeader returns the define block prepended to every shader body. It
// depends only on HDR, VolumetricFogShadows, SSAO and Radiosity.
func (s Settings) MacroHeader() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#define USE_HDR %d\n", boolDefine(s.HDR))
	fmt.Fprintf(&sb, "#define USE_VOLUMETRIC_FOG %d\n", boolDefine(s.VolumetricFogShadows))
	fmt.Fprintf(&sb, "#define USE_SSAO %d\n", boolDefine(s.SSAO))
	fmt.Fprintf(&sb, "#define USE_RADIOSITY %d\n", s.RadiosityLevel())
	return sb.String()
}
