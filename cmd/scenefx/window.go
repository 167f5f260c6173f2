package main

import (
	"errors"
	"image"
	"image/color"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"scenefx/internal/config"
	"scenefx/internal/debug"
	"scenefx/internal/engine3D/filter"
	"scenefx/internal/gpu"
	"scenefx/internal/gpu/gldevice"
	"scenefx/internal/utils"
)

const (
	defaultWidth  = 1280
	defaultHeight = 720
)

type Window struct {
	cfg     config.Config
	device  *gldevice.Device
	changes <-chan string
	frame   uint64
	closed  bool
	overlay *debug.DebugOverlay
}

// windowSize picks the configured size, else the X11 screen size, else the
// built-in default.
func windowSize(cfg config.Config) (int32, int32) {
	if cfg.Window.Width > 0 && cfg.Window.Height > 0 {
		return cfg.Window.Width, cfg.Window.Height
	}
	if w, h, err := utils.GetScreenSize(); err == nil && w > 0 && h > 0 {
		utils.Debug("Window: Using X11 screen size %dx%d", w, h)
		return int32(w), int32(h)
	} else if err != nil {
		utils.Debug("Window: X11 unavailable (%v), using %dx%d", err, defaultWidth, defaultHeight)
	}
	return defaultWidth, defaultHeight
}

func NewWindow(cfg config.Config) (*Window, error) {
	width, height := windowSize(cfg)

	rl.SetTraceLogCallback(utils.RaylibLogCallback)
	var flags uint32 = rl.FlagWindowResizable
	if cfg.Window.Hidden {
		flags |= rl.FlagWindowHidden
	}
	rl.SetConfigFlags(flags)
	rl.InitWindow(width, height, cfg.Window.Title)
	if !rl.IsWindowReady() {
		return nil, errors.New("raylib could not create a window")
	}

	device, err := gldevice.New()
	if err != nil {
		rl.CloseWindow()
		return nil, err
	}
	return &Window{cfg: cfg, device: device, overlay: debug.NewDebugOverlay()}, nil
}

func (window *Window) Close() {
	if window.closed {
		return
	}
	window.closed = true
	window.device.Close()
	rl.CloseWindow()
	utils.CloseX11()
}

// sceneInput returns the preview scene color: the -image asset when given,
// else a checkerboard.
func (window *Window) sceneInput(pipeline *Pipeline, imageName string) (*gpu.RenderTarget, func(), error) {
	if imageName != "" {
		h, err := pipeline.textures.Acquire(imageName)
		if err != nil {
			return nil, nil, err
		}
		img := h.Get()
		input := &gpu.RenderTarget{Color: img.ID, Width: int32(img.Width), Height: int32(img.Height)}
		return input, func() { pipeline.textures.Release(h) }, nil
	}

	checker := rl.GenImageChecked(512, 512, 32, 32, rl.LightGray, rl.DarkGray)
	tex := rl.LoadTextureFromImage(checker)
	rl.UnloadImage(checker)
	input := &gpu.RenderTarget{Color: gpu.TextureID(tex.ID), Width: tex.Width, Height: tex.Height}
	return input, func() { rl.UnloadTexture(tex) }, nil
}

// camera orbits with time, or follows the global pointer when X11 is
// reachable.
func (window *Window) camera(aspect float32) filter.Camera {
	yaw := float32(rl.GetTime() * 0.2)
	if x, _, err := utils.GetGlobalMousePosition(); err == nil {
		if sw, _, err := utils.GetScreenSize(); err == nil && sw > 0 {
			yaw = (float32(x)/float32(sw)*2 - 1) * math.Pi
		}
	}

	forward := mgl32.Vec3{float32(math.Sin(float64(yaw))), 0, -float32(math.Cos(float64(yaw)))}
	up := mgl32.Vec3{0, 1, 0}
	right := forward.Cross(up).Normalize()

	fovY := mgl32.DegToRad(60)
	fovX := float32(2 * math.Atan(math.Tan(float64(fovY)/2)*float64(aspect)))
	return filter.Camera{
		Origin:  mgl32.Vec3{0, 64, 0},
		Right:   right,
		Up:      up,
		Forward: forward,
		FovX:    fovX,
		FovY:    fovY,
		Near:    4,
		Far:     8192,
	}
}

func (window *Window) Run(pipeline *Pipeline, imageName string) error {
	input, release, err := window.sceneInput(pipeline, imageName)
	if err != nil {
		return err
	}
	// Cache handles do not survive a reload; the release closure is swapped
	// whenever the input is rebuilt.
	defer func() { release() }()

	flat := image.NewRGBA(image.Rect(0, 0, 1, 1))
	flat.SetRGBA(0, 0, color.RGBA{255, 255, 255, 255})
	depth := window.device.CreateTexture(flat)
	defer window.device.DeleteTexture(depth)

	fog := window.cfg.Fog
	rl.SetTargetFPS(60)

	for !rl.WindowShouldClose() {
		select {
		case name, ok := <-window.changes:
			if !ok {
				window.changes = nil
				break
			}
			utils.Info("Window: %s changed", name)
			release()
			release = func() {}
			if err := pipeline.Reload(); err != nil {
				utils.Error("Reload failed: %v", err)
			}
			if next, rel, err := window.sceneInput(pipeline, imageName); err == nil {
				input, release = next, rel
			} else {
				utils.Error("Reload input failed: %v", err)
			}
		default:
		}

		window.frame++
		frame := &filter.Frame{
			Camera:      window.camera(float32(input.Width) / float32(input.Height)),
			Number:      window.frame,
			Depth:       depth,
			FogColor:    fog.ColorVec(),
			FogDistance: fog.Distance,
		}
		result := pipeline.Apply(frame, input)
		window.device.BindRenderTarget(nil)

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)
		texture := rl.Texture2D{
			ID:      uint32(result.Color),
			Width:   result.Width,
			Height:  result.Height,
			Mipmaps: 1,
			Format:  rl.UncompressedR8g8b8a8,
		}
		// Framebuffer contents are bottom-up.
		srcRec := rl.NewRectangle(0, 0, float32(result.Width), -float32(result.Height))
		if result == input {
			srcRec.Height = float32(result.Height)
		}
		dstRec := rl.NewRectangle(0, 0, float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight()))
		rl.DrawTexturePro(texture, srcRec, dstRec, rl.NewVector2(0, 0), 0, rl.White)
		window.overlay.Update()
		window.overlay.Draw(pipeline.Stats(window.frame))
		rl.EndDrawing()

		pipeline.Recycle(result, input)
	}
	return nil
}
