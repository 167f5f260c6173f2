package shader

import (
	"strings"

	"scenefx/internal/gpu"
)

var stageMarkers = []struct {
	marker string
	stage  gpu.Stage
}{
	{".vs", gpu.StageVertex},
	{".fs", gpu.StageFragment},
	{".gs", gpu.StageGeometry},
}

// StageOf infers the pipeline stage from the file name. The marker may appear
// anywhere in the name, so "fog.fs.glsl" is a fragment shader.
func StageOf(name string) (gpu.Stage, error) {
	for _, m := range stageMarkers {
		if strings.Contains(name, m.marker) {
			return m.stage, nil
		}
	}
	return 0, &UnknownStageError{Shader: name}
}
