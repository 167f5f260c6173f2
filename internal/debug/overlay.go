// Package debug draws the preview's statistics overlay.
package debug

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"scenefx/internal/cache"
)

// Stats is one frame's worth of renderer counters.
type Stats struct {
	Frame       uint64
	Programs    int
	Shaders     cache.Stats
	Textures    int
	IdleTargets int
}

// Lines formats s for display, one counter group per line.
func (s Stats) Lines() []string {
	return []string{
		fmt.Sprintf("frame %d  fps %d", s.Frame, rl.GetFPS()),
		fmt.Sprintf("programs %d", s.Programs),
		fmt.Sprintf("shaders %d  (hits %d, misses %d, destroyed %d)", s.Shaders.Len, s.Shaders.Hits, s.Shaders.Misses, s.Shaders.Destroys),
		fmt.Sprintf("textures %d  idle targets %d", s.Textures, s.IdleTargets),
	}
}

// DebugOverlay toggles with F8.
type DebugOverlay struct {
	Visible    bool
	fontHeight int32
	padding    int32
}

func NewDebugOverlay() *DebugOverlay {
	return &DebugOverlay{fontHeight: 16, padding: 8}
}

func (d *DebugOverlay) Update() {
	if rl.IsKeyPressed(rl.KeyF8) {
		d.Visible = !d.Visible
	}
}

func (d *DebugOverlay) Draw(stats Stats) {
	if !d.Visible {
		return
	}
	lines := stats.Lines()

	width := int32(0)
	for _, line := range lines {
		width = max(width, rl.MeasureText(line, d.fontHeight))
	}
	height := int32(len(lines))*(d.fontHeight+4) + d.padding*2

	rl.DrawRectangle(10, 10, width+d.padding*2, height, rl.NewColor(0, 0, 0, 170))
	for i, line := range lines {
		rl.DrawText(line, 10+d.padding, 10+d.padding+int32(i)*(d.fontHeight+4), d.fontHeight, rl.White)
	}
}
