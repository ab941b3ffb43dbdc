// Package viewer implements the interactive height map viewer loop.
package viewer

import (
	"context"
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/heightfield/internal/config"
	"github.com/Faultbox/heightfield/internal/engine/camera"
	"github.com/Faultbox/heightfield/internal/engine/capture"
	"github.com/Faultbox/heightfield/internal/engine/elevation"
	"github.com/Faultbox/heightfield/internal/engine/gpu/glbackend"
	"github.com/Faultbox/heightfield/internal/engine/input"
	"github.com/Faultbox/heightfield/internal/engine/renderer"
	"github.com/Faultbox/heightfield/internal/engine/window"
	"github.com/Faultbox/heightfield/internal/logger"
	"github.com/Faultbox/heightfield/internal/mapgen"
	"github.com/Faultbox/heightfield/internal/mesh"
)

const title = "Heightfield"

// Tilt speed for the W/S keys, in degrees per second.
const tiltSpeed = 45

// Viewer is the main viewer instance.
type Viewer struct {
	cfg      *config.Config
	log      *zap.Logger
	running  bool
	window   *window.Window
	device   *glbackend.Device
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.MapCamera
	exporter *capture.Exporter

	// lastParams were most recently handed to the renderer.
	lastParams renderer.Params

	// dragging is set once the pointer moves with a button held, so the
	// release is not treated as a click.
	dragging bool

	reloads chan *config.Config
}

// New creates the window, generates the map and uploads it.
func New(cfg *config.Config) (*Viewer, error) {
	v := &Viewer{
		cfg:     cfg,
		log:     logger.Named("viewer"),
		input:   input.New(),
		camera:  camera.NewMapCamera(),
		reloads: make(chan *config.Config, 1),
	}
	v.log.Info("initializing viewer",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
	)

	precision, err := elevation.ParsePrecision(cfg.Graphics.Precision)
	if err != nil {
		return nil, err
	}

	// Create window (this also creates OpenGL context)
	v.window, err = window.New(window.Config{
		Title:      title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	dw, dh := v.window.DrawableSize()
	v.device, err = glbackend.New(dw, dh)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	n := cfg.Mesh.GridSize(mesh.MapSize)
	grid, err := mesh.NewGrid(n, n)
	if err != nil {
		v.Close()
		return nil, err
	}
	m := grid.Mesh()
	positions := make([]float32, 2*m.NumQuadVertices())
	if err := grid.SetMeshGeometry(positions); err != nil {
		v.Close()
		return nil, err
	}

	v.renderer, err = renderer.New(v.device, m, positions, renderer.Config{
		TextureSize: cfg.Graphics.TextureSize,
		Precision:   precision,
	})
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	rivers, err := mapgen.Generate(grid, positions, v.renderer.Map(), cfg)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("generating map: %w", err)
	}
	if err := v.renderer.UpdateMap(); err != nil {
		v.Close()
		return nil, err
	}
	v.log.Info("map generated",
		zap.Int("grid", n),
		zap.Int("rivers", rivers),
		zap.Int("river_triangles", v.renderer.Map().RiverTriangles()),
	)

	v.camera.SetView(mapgen.ViewFromConfig(cfg.Render))
	v.pushView(true)

	v.exporter = capture.NewExporter(cfg.Output.ScreenshotDir, "heightmap")
	v.exporter.Size = cfg.Output.ExportSize

	v.log.Info("viewer initialized successfully")
	return v, nil
}

// Run starts the main loop. It returns when the window is closed or ctx is
// cancelled. When configPath is not empty the file is watched and render
// settings are reapplied on change.
func (v *Viewer) Run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if configPath != "" {
		v.watch(ctx, configPath)
	}

	v.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting viewer loop")

	for v.running {
		if ctx.Err() != nil {
			break
		}

		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		if v.input.Update() {
			break
		}
		v.handleEvents(ctx)
		v.handleHeldKeys(dt)

		select {
		case cfg := <-v.reloads:
			v.applyConfig(cfg)
		default:
		}

		v.pushView(false)

		if _, err := v.renderer.Tick(); err != nil {
			return fmt.Errorf("render error: %w", err)
		}
		v.renderer.Present()
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.log.Debug("fps",
				zap.Int("count", frameCount),
				zap.Uint64("frames_drawn", v.renderer.Frames()),
			)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) handleEvents(ctx context.Context) {
	for _, e := range v.input.Events() {
		switch e.Type {
		case input.EventWindowResize:
			v.renderer.Resize(e.DrawableWidth, e.DrawableHeight)
		case input.EventKeyDown:
			switch e.Key {
			case sdl.SCANCODE_ESCAPE:
				v.running = false
			case sdl.SCANCODE_R:
				v.camera.Reset()
			case sdl.SCANCODE_F12:
				v.screenshot(ctx)
			}
		case input.EventMouseWheel:
			v.camera.HandleZoom(e.Wheel)
		case input.EventMouseDown:
			v.dragging = false
		case input.EventMouseMove:
			if held, _, _ := v.input.MouseButton(sdl.BUTTON_LEFT); held {
				v.dragging = true
				v.camera.HandleDrag(v.window.Normalize(e.DeltaX, e.DeltaY))
			} else if held, _, _ := v.input.MouseButton(sdl.BUTTON_RIGHT); held {
				v.dragging = true
				v.camera.HandleRotate(float32(e.DeltaX))
			}
		case input.EventMouseUp:
			if e.Button == sdl.BUTTON_LEFT && !v.dragging {
				x, y := v.renderer.ScreenToWorld(v.window.Normalize(e.MouseX, e.MouseY))
				v.log.Info("picked", zap.Float32("x", x), zap.Float32("y", y))
				v.window.SetTitle(fmt.Sprintf("%s (%.0f, %.0f)", title, x, y))
			}
		}
	}
}

func (v *Viewer) handleHeldKeys(dt float32) {
	if v.input.KeyHeld(sdl.SCANCODE_W) {
		v.camera.HandleTilt(tiltSpeed * dt)
	}
	if v.input.KeyHeld(sdl.SCANCODE_S) {
		v.camera.HandleTilt(-tiltSpeed * dt)
	}

	var right, down float32
	if v.input.KeyHeld(sdl.SCANCODE_LEFT) {
		right--
	}
	if v.input.KeyHeld(sdl.SCANCODE_RIGHT) {
		right++
	}
	if v.input.KeyHeld(sdl.SCANCODE_UP) {
		down--
	}
	if v.input.KeyHeld(sdl.SCANCODE_DOWN) {
		down++
	}
	if right != 0 || down != 0 {
		v.camera.HandleMovement(right, down)
	}
}

// pushView schedules a redraw when the camera or render settings changed.
func (v *Viewer) pushView(force bool) {
	p := mapgen.ParamsFor(v.camera.View(), v.cfg.Render)
	if !force && p == v.lastParams {
		return
	}
	v.lastParams = p
	v.renderer.UpdateView(p)
}

func (v *Viewer) applyConfig(cfg *config.Config) {
	v.cfg.Render = cfg.Render
	v.camera.SetView(mapgen.ViewFromConfig(cfg.Render))
	v.exporter.SetOutputDir(cfg.Output.ScreenshotDir)
	v.log.Info("render settings reloaded")
}

// watch reloads render settings from the config file until ctx is done.
func (v *Viewer) watch(ctx context.Context, path string) {
	w, err := config.NewWatcher(path)
	if err != nil {
		v.log.Warn("config watch disabled", zap.String("path", path), zap.Error(err))
		return
	}
	go func() {
		err := w.Run(ctx, func(cfg *config.Config) {
			// Keep only the newest pending config.
			select {
			case <-v.reloads:
			default:
			}
			v.reloads <- cfg
		})
		if err != nil {
			v.log.Warn("config watch stopped", zap.Error(err))
		}
	}()
}

// screenshot captures the next drawn frame and saves it in the background.
func (v *Viewer) screenshot(ctx context.Context) {
	ch, err := v.renderer.RequestScreenshot(ctx)
	if err != nil {
		v.log.Warn("screenshot not taken", zap.Error(err))
		return
	}
	// Capture happens on a drawn tick only.
	v.renderer.UpdateView(v.lastParams)
	path := v.exporter.Filename(time.Now())

	go func() {
		res, ok := <-ch
		if !ok {
			return
		}
		if res.Err != nil {
			v.log.Warn("screenshot failed", zap.Error(res.Err))
			return
		}
		if err := v.exporter.SaveAs(res.Image, path); err != nil {
			v.log.Error("failed to save screenshot", zap.Error(err))
			return
		}
		v.log.Info("screenshot saved", zap.String("path", path))
	}()
}

// Close cleans up viewer resources.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.renderer != nil {
		v.renderer.Close()
		v.renderer = nil
	}
	if v.window != nil {
		v.window.Close()
		v.window = nil
	}
}
