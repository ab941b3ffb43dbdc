// Package renderer composes the height map: it owns the GPU resources, the
// two compositing passes, the projection and the screenshot capturer, and
// drives them from a once-per-refresh Tick.
package renderer

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/heightfield/internal/engine/capture"
	"github.com/Faultbox/heightfield/internal/engine/elevation"
	"github.com/Faultbox/heightfield/internal/engine/frame"
	"github.com/Faultbox/heightfield/internal/engine/gpu"
	"github.com/Faultbox/heightfield/internal/engine/projection"
	"github.com/Faultbox/heightfield/internal/engine/resources"
	"github.com/Faultbox/heightfield/internal/engine/river"
	"github.com/Faultbox/heightfield/internal/logger"
	"github.com/Faultbox/heightfield/internal/mesh"
)

// Clear colors applied after every drawn frame.
var (
	riverClear = gpu.ClearOp{Color: [4]float32{0, 0, 0, 0}}
	depthClear = gpu.ClearOp{Color: [4]float32{0, 0, 0, 1}, Depth: true}
	finalClear = gpu.ClearOp{Color: [4]float32{0.3, 0.3, 0.35, 1}, Depth: true}
)

// Config holds renderer configuration.
type Config struct {
	TextureSize int
	Precision   elevation.Precision
}

// Params are the per-frame render parameters.
type Params struct {
	View         projection.View
	OutlineWater float32
}

// DefaultParams returns a centred top-down view.
func DefaultParams() Params {
	return Params{View: projection.DefaultView(), OutlineWater: 10}
}

// Renderer handles all height map rendering for one mesh.
//
// Tick, UpdateMap, Resize, Present and Close touch the GPU and must run on
// the thread owning the graphics context. UpdateView, ScreenToWorld,
// WorldToScreen and RequestScreenshot may be called from any goroutine.
type Renderer struct {
	dev gpu.Device
	cfg Config
	log *zap.Logger

	res     *resources.Resources
	data    *resources.MapData
	rivers  *river.Compositor
	land    *elevation.Compositor
	proj    *projection.Engine
	capture *capture.Capturer

	// preview receives a copy of the final target before it is cleared.
	preview gpu.Target

	pending frame.Token[Params]
	frames  atomic.Uint64
	changed chan struct{}
}

// New allocates everything needed to render the mesh and clears the
// targets. positions holds 2*(regions+triangles) scalars and is uploaded
// once.
func New(dev gpu.Device, m mesh.Mesh, positions []float32, cfg Config) (*Renderer, error) {
	res, err := resources.New(dev, m, positions, cfg.TextureSize)
	if err != nil {
		return nil, fmt.Errorf("allocating resources: %w", err)
	}
	cfg.TextureSize = res.TextureSize()

	r := &Renderer{
		dev:     dev,
		cfg:     cfg,
		log:     logger.Named("renderer"),
		res:     res,
		data:    resources.NewMapData(res.Capacity),
		proj:    projection.NewEngine(),
		capture: capture.New(),
		changed: make(chan struct{}, 1),
	}

	if r.rivers, err = river.New(dev); err != nil {
		r.Close()
		return nil, err
	}
	if r.land, err = elevation.New(dev, cfg.Precision); err != nil {
		r.Close()
		return nil, err
	}
	if r.preview, err = dev.NewTarget(gpu.TargetDesc{Size: cfg.TextureSize, Filter: gpu.FilterLinear}); err != nil {
		r.Close()
		return nil, fmt.Errorf("preview target: %w", err)
	}

	r.clearTargets()
	dev.Clear(r.preview, finalClear)

	r.log.Info("renderer ready",
		zap.Int("regions", m.NumRegions),
		zap.Int("triangles", m.NumTriangles),
		zap.Int("texture_size", cfg.TextureSize),
		zap.Stringer("precision", cfg.Precision),
	)
	return r, nil
}

// Map returns the CPU arrays the generator fills before UpdateMap.
func (r *Renderer) Map() *resources.MapData {
	return r.data
}

// Capacity returns the buffer sizes derived from the mesh.
func (r *Renderer) Capacity() resources.Capacity {
	return r.res.Capacity
}

// UpdateMap uploads the current map arrays. It does not schedule a redraw;
// follow it with UpdateView.
func (r *Renderer) UpdateMap() error {
	return r.res.Upload(r.data)
}

// UpdateView schedules a redraw with p. Only the latest parameters set
// before a tick are drawn.
func (r *Renderer) UpdateView(p Params) {
	r.pending.Set(p)
}

// ScreenToWorld maps normalized screen coordinates to mesh coordinates
// using the most recently completed frame.
func (r *Renderer) ScreenToWorld(sx, sy float32) (x, y float32) {
	return r.proj.ScreenToWorld(sx, sy)
}

// WorldToScreen maps mesh coordinates to normalized screen coordinates.
func (r *Renderer) WorldToScreen(x, y float32) (sx, sy float32) {
	return r.proj.WorldToScreen(x, y)
}

// RequestScreenshot arms a readback of the next drawn frame.
func (r *Renderer) RequestScreenshot(ctx context.Context) (<-chan capture.Result, error) {
	return r.capture.Request(ctx)
}

// Tick runs one refresh. Without pending parameters it does nothing and
// reports false. If a pass fails the targets are cleared and the error is
// returned; an armed screenshot stays armed for the next drawn frame.
func (r *Renderer) Tick() (bool, error) {
	p, ok := r.pending.Take()
	if !ok {
		return false, nil
	}
	r.pending.Begin()
	defer r.pending.End()

	topdown := r.proj.Topdown()
	if _, err := r.rivers.Draw(r.res, topdown); err != nil {
		r.clearTargets()
		return false, fmt.Errorf("river pass: %w", err)
	}
	if err := r.land.Draw(r.res, topdown, p.OutlineWater); err != nil {
		r.clearTargets()
		return false, fmt.Errorf("elevation pass: %w", err)
	}

	if !r.proj.Update(p.View) {
		r.log.Warn("singular projection, keeping previous", zap.Float32("zoom", p.View.Zoom))
	}

	size := r.cfg.TextureSize
	r.capture.Capture(size, func(dst []byte) error {
		return r.dev.ReadPixels(r.res.FinalTarget, dst)
	})

	r.dev.Copy(r.res.FinalTarget, r.preview)
	r.clearTargets()

	r.frames.Add(1)
	select {
	case r.changed <- struct{}{}:
	default:
	}
	return true, nil
}

func (r *Renderer) clearTargets() {
	r.dev.Clear(r.res.RiverTarget, riverClear)
	r.dev.Clear(r.res.DepthTarget, depthClear)
	r.dev.Clear(r.res.FinalTarget, finalClear)
}

// Present shows the latest frame in the window.
func (r *Renderer) Present() {
	r.dev.Present(r.preview)
}

// Resize handles window resize. Per-mesh buffers and targets are kept.
func (r *Renderer) Resize(width, height int) {
	r.dev.Viewport(width, height)
	r.log.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// FinalTexture returns the height texture of the latest drawn frame.
func (r *Renderer) FinalTexture() gpu.Texture {
	return r.preview.Color
}

// MapChanged is signalled after every drawn frame. Signals coalesce while
// the receiver is busy.
func (r *Renderer) MapChanged() <-chan struct{} {
	return r.changed
}

// Frames returns the number of frames drawn.
func (r *Renderer) Frames() uint64 {
	return r.frames.Load()
}

// State reports whether a frame is being drawn.
func (r *Renderer) State() frame.State {
	return r.pending.State()
}

// Close releases all GPU objects.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	if r.rivers != nil {
		r.rivers.Close()
		r.rivers = nil
	}
	if r.land != nil {
		r.land.Close()
		r.land = nil
	}
	if r.preview.ID != 0 {
		r.dev.DestroyTarget(r.preview)
		r.preview = gpu.Target{}
	}
	r.res.Close()
}
