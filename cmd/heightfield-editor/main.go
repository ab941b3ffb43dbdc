// Heightfield Editor - tweak view settings and export height maps.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/AllenDang/cimgui-go/backend"
	"github.com/AllenDang/cimgui-go/backend/sdlbackend"
	"github.com/AllenDang/cimgui-go/imgui"
	"go.uber.org/zap"

	"github.com/Faultbox/heightfield/internal/config"
	"github.com/Faultbox/heightfield/internal/engine/camera"
	"github.com/Faultbox/heightfield/internal/engine/capture"
	"github.com/Faultbox/heightfield/internal/engine/elevation"
	"github.com/Faultbox/heightfield/internal/engine/gpu/glbackend"
	"github.com/Faultbox/heightfield/internal/engine/renderer"
	"github.com/Faultbox/heightfield/internal/logger"
	"github.com/Faultbox/heightfield/internal/mapgen"
	"github.com/Faultbox/heightfield/internal/mesh"
)

func main() {
	runtime.LockOSThread()

	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	app, err := NewApp(cfg)
	if err != nil {
		logger.Fatal("failed to start editor", zap.Error(err))
	}
	defer app.Close()

	app.Run()
}

// App represents the editor state.
type App struct {
	backend backend.Backend[sdlbackend.SDLWindowFlags]
	cfg     *config.Config
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc

	device   *glbackend.Device
	renderer *renderer.Renderer
	camera   *camera.MapCamera
	exporter *capture.Exporter

	outlineWater float32
	lastParams   renderer.Params

	// Pointer position over the preview during the previous frame
	lastMouse imgui.Vec2
	picked    [2]float32
	hasPick   bool

	// Export paths chosen in the file dialog, handled on the main thread
	exports chan string
	// Status messages from background saves
	notices    chan string
	statusMsg  string
	statusTime time.Time
	exportBusy bool
}

// NewApp creates the window and GL context, generates the map and uploads it.
func NewApp(cfg *config.Config) (*App, error) {
	precision, err := elevation.ParsePrecision(cfg.Graphics.Precision)
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:          cfg,
		log:          logger.Named("editor"),
		camera:       camera.NewMapCamera(),
		exporter:     capture.NewExporter(cfg.Output.ScreenshotDir, "heightmap"),
		outlineWater: cfg.Render.OutlineWater,
		exports:      make(chan string, 1),
		notices:      make(chan string, 8),
	}
	app.ctx, app.cancel = context.WithCancel(context.Background())
	app.exporter.Size = cfg.Output.ExportSize

	app.backend, err = backend.CreateBackend(sdlbackend.NewSDLBackend())
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}
	app.backend.SetBgColor(imgui.NewVec4(0.1, 0.1, 0.12, 1.0))
	app.backend.CreateWindow("Heightfield Editor", 1280, 800)

	app.device, err = glbackend.New(1280, 800)
	if err != nil {
		return nil, err
	}

	n := cfg.Mesh.GridSize(mesh.MapSize)
	grid, err := mesh.NewGrid(n, n)
	if err != nil {
		return nil, err
	}
	m := grid.Mesh()
	positions := make([]float32, 2*m.NumQuadVertices())
	if err := grid.SetMeshGeometry(positions); err != nil {
		return nil, err
	}

	app.renderer, err = renderer.New(app.device, m, positions, renderer.Config{
		TextureSize: cfg.Graphics.TextureSize,
		Precision:   precision,
	})
	if err != nil {
		return nil, err
	}
	if _, err := mapgen.Generate(grid, positions, app.renderer.Map(), cfg); err != nil {
		app.renderer.Close()
		return nil, err
	}
	if err := app.renderer.UpdateMap(); err != nil {
		app.renderer.Close()
		return nil, err
	}

	app.camera.SetView(mapgen.ViewFromConfig(cfg.Render))
	app.pushView(true)
	return app, nil
}

// Run starts the main application loop.
func (app *App) Run() {
	app.backend.Run(app.render)
}

// Close cleans up resources.
func (app *App) Close() {
	app.cancel()
	if app.renderer != nil {
		app.renderer.Close()
		app.renderer = nil
	}
}

// pushView schedules a redraw when any parameter changed.
func (app *App) pushView(force bool) {
	rc := app.cfg.Render
	rc.OutlineWater = app.outlineWater
	p := mapgen.ParamsFor(app.camera.View(), rc)
	if !force && p == app.lastParams {
		return
	}
	app.lastParams = p
	app.renderer.UpdateView(p)
}

func (app *App) showNotification(msg string) {
	app.statusMsg = msg
	app.statusTime = time.Now()
}

// render is called each frame to draw the UI.
func (app *App) render() {
	select {
	case path := <-app.exports:
		app.startExport(path)
	case msg := <-app.notices:
		app.exportBusy = false
		app.showNotification(msg)
	default:
	}

	if imgui.IsKeyChordPressed(imgui.KeyChord(imgui.KeyF12)) {
		app.startExport(app.exporter.Filename(time.Now()))
	}

	if _, err := app.renderer.Tick(); err != nil {
		app.log.Error("render failed", zap.Error(err))
	}
	// Drawing leaves an offscreen target bound; hand the window back to the UI.
	io := imgui.CurrentIO()
	displaySize := io.DisplaySize()
	fbScale := io.DisplayFramebufferScale()
	app.renderer.Resize(int(displaySize.X*fbScale.X), int(displaySize.Y*fbScale.Y))

	if imgui.BeginMainMenuBar() {
		if imgui.BeginMenu("File") {
			if imgui.MenuItemBool("Export Height Map...") {
				app.openExportDialog()
			}
			imgui.Separator()
			if imgui.MenuItemBool("Exit") {
				os.Exit(0)
			}
			imgui.EndMenu()
		}
		imgui.EndMainMenuBar()
	}

	viewport := imgui.MainViewport()
	workPos := viewport.WorkPos()
	workSize := viewport.WorkSize()

	controlsWidth := float32(300)
	statusBarHeight := float32(30)
	contentHeight := workSize.Y - statusBarHeight
	flags := imgui.WindowFlagsNoMove | imgui.WindowFlagsNoResize | imgui.WindowFlagsNoCollapse

	imgui.SetNextWindowPos(workPos)
	imgui.SetNextWindowSize(imgui.NewVec2(controlsWidth, contentHeight))
	if imgui.BeginV("Controls", nil, flags) {
		app.renderControls()
	}
	imgui.End()

	imgui.SetNextWindowPos(imgui.NewVec2(workPos.X+controlsWidth, workPos.Y))
	imgui.SetNextWindowSize(imgui.NewVec2(workSize.X-controlsWidth, contentHeight))
	if imgui.BeginV("Height Map", nil, flags|imgui.WindowFlagsNoScrollbar) {
		app.renderPreview()
	}
	imgui.End()

	imgui.SetNextWindowPos(imgui.NewVec2(workPos.X, workPos.Y+contentHeight))
	imgui.SetNextWindowSize(imgui.NewVec2(workSize.X, statusBarHeight))
	if imgui.BeginV("Status", nil, flags|imgui.WindowFlagsNoTitleBar|imgui.WindowFlagsNoScrollbar) {
		app.renderStatusBar()
	}
	imgui.End()

	app.pushView(false)
}
