package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/heightfield/internal/mesh"
)

// renderControls draws the view parameter sliders.
func (app *App) renderControls() {
	c := app.camera

	imgui.Text("View")
	imgui.Separator()
	imgui.SliderFloatV("Zoom", &c.Zoom, c.MinZoom, c.MaxZoom, "%.3f", imgui.SliderFlagsNone)
	imgui.SliderFloatV("Center X", &c.X, 0, mesh.MapSize, "%.0f", imgui.SliderFlagsNone)
	imgui.SliderFloatV("Center Y", &c.Y, 0, mesh.MapSize, "%.0f", imgui.SliderFlagsNone)
	imgui.SliderFloatV("Tilt", &c.TiltDeg, c.MinTilt, c.MaxTilt, "%.1f deg", imgui.SliderFlagsNone)
	imgui.SliderFloatV("Rotate", &c.RotateDeg, 0, 360, "%.1f deg", imgui.SliderFlagsNone)
	imgui.SliderFloatV("Mountain Height", &c.MountainHeight, 0, 250, "%.0f", imgui.SliderFlagsNone)
	if imgui.Button("Reset View") {
		c.Reset()
	}

	imgui.Spacing()
	imgui.Text("Rivers")
	imgui.Separator()
	imgui.SliderFloatV("Outline Water", &app.outlineWater, 0, 20, "%.1f", imgui.SliderFlagsNone)

	imgui.Spacing()
	imgui.Text("Output")
	imgui.Separator()
	imgui.TextDisabled(fmt.Sprintf("Precision: %s", app.cfg.Graphics.Precision))
	imgui.TextDisabled(fmt.Sprintf("Texture: %dpx", app.cfg.Graphics.TextureSize))
	imgui.TextDisabled(fmt.Sprintf("Frames drawn: %d", app.renderer.Frames()))

	if app.exportBusy {
		imgui.BeginDisabledV(true)
	}
	if imgui.ButtonV("Export PNG...", imgui.NewVec2(-1, 0)) {
		app.openExportDialog()
	}
	if app.exportBusy {
		imgui.EndDisabled()
	}

	if app.hasPick {
		imgui.Spacing()
		imgui.Text(fmt.Sprintf("Picked: (%.1f, %.1f)", app.picked[0], app.picked[1]))
	}
}

// renderPreview shows the latest height map and handles pan, zoom and
// picking over it.
func (app *App) renderPreview() {
	avail := imgui.ContentRegionAvail()
	size := min(avail.X, avail.Y)
	if size <= 0 {
		return
	}

	startX := imgui.CursorPosX()
	if size < avail.X {
		imgui.SetCursorPosX(startX + (avail.X-size)/2)
	}
	origin := imgui.CursorScreenPos()

	// Display rendered texture (flip V for OpenGL)
	tex := app.renderer.FinalTexture()
	texRef := imgui.NewTextureRefTextureID(imgui.TextureID(tex.ID))
	imgui.ImageWithBgV(
		*texRef,
		imgui.NewVec2(size, size),
		imgui.NewVec2(0, 1),
		imgui.NewVec2(1, 0),
		imgui.NewVec4(0.15, 0.15, 0.15, 1.0),
		imgui.NewVec4(1, 1, 1, 1),
	)

	mousePos := imgui.MousePos()
	if imgui.IsItemHovered() {
		if imgui.IsMouseDragging(imgui.MouseButtonLeft) {
			app.camera.HandleDrag((mousePos.X-app.lastMouse.X)/size, (mousePos.Y-app.lastMouse.Y)/size)
		}
		if imgui.IsMouseDragging(imgui.MouseButtonRight) {
			app.camera.HandleRotate(mousePos.X - app.lastMouse.X)
		}

		wheel := imgui.CurrentIO().MouseWheel()
		if wheel != 0 {
			app.camera.HandleZoom(wheel)
		}

		if imgui.IsItemClicked() {
			x, y := app.renderer.ScreenToWorld((mousePos.X-origin.X)/size, (mousePos.Y-origin.Y)/size)
			app.picked = [2]float32{x, y}
			app.hasPick = true
			app.log.Debug("picked", zap.Float32("x", x), zap.Float32("y", y))
		}
	}
	app.lastMouse = mousePos
}

func (app *App) renderStatusBar() {
	if app.statusMsg != "" && time.Since(app.statusTime) < 5*time.Second {
		imgui.Text(app.statusMsg)
		return
	}
	imgui.TextDisabled("Drag to pan, right-drag to rotate, scroll to zoom, F12 to export")
}

// openExportDialog shows a native save dialog.
func (app *App) openExportDialog() {
	// Run in goroutine to not block the UI; the path is picked up in render()
	go func() {
		filename, err := dialog.File().
			Filter("PNG Images", "png").
			Title("Export Height Map").
			SetStartDir(app.cfg.Output.ScreenshotDir).
			Save()
		if err != nil {
			if err != dialog.ErrCancelled {
				fmt.Fprintf(os.Stderr, "File dialog error: %v\n", err)
			}
			return
		}
		if filepath.Ext(filename) == "" {
			filename += ".png"
		}
		app.exports <- filename
	}()
}

// startExport captures the next drawn frame and writes it to path in the
// background.
func (app *App) startExport(path string) {
	ch, err := app.renderer.RequestScreenshot(app.ctx)
	if err != nil {
		app.showNotification(fmt.Sprintf("Export failed: %v", err))
		return
	}
	app.exportBusy = true
	app.renderer.UpdateView(app.lastParams)

	go func() {
		res, ok := <-ch
		switch {
		case !ok:
			app.notices <- "Export cancelled"
		case res.Err != nil:
			app.notices <- fmt.Sprintf("Export failed: %v", res.Err)
		default:
			if err := app.exporter.SaveAs(res.Image, path); err != nil {
				app.notices <- fmt.Sprintf("Export failed: %v", err)
				return
			}
			app.notices <- "Saved: " + path
		}
	}()
}
