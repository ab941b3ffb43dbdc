package renderer

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Faultbox/heightfield/internal/engine/capture"
	"github.com/Faultbox/heightfield/internal/engine/elevation"
	"github.com/Faultbox/heightfield/internal/engine/gpu"
	"github.com/Faultbox/heightfield/internal/engine/gpu/gputest"
	"github.com/Faultbox/heightfield/internal/engine/projection"
	"github.com/Faultbox/heightfield/internal/engine/resources"
	"github.com/Faultbox/heightfield/internal/mesh"
)

const texSize = 16

func newRenderer(t *testing.T) (*Renderer, *gputest.Device, *mesh.Grid) {
	t.Helper()
	g, err := mesh.NewGrid(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	pos := make([]float32, resources.CapacityFor(g.Mesh()).Positions)
	if err := g.SetMeshGeometry(pos); err != nil {
		t.Fatal(err)
	}
	dev := gputest.New()
	r, err := New(dev, g.Mesh(), pos, Config{TextureSize: texSize, Precision: elevation.PrecisionRounded})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(r.Close)

	if err := g.SetQuadElements(r.Map().QuadElements); err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateMap(); err != nil {
		t.Fatalf("UpdateMap: %v", err)
	}
	dev.Reset()
	return r, dev, g
}

func TestNewClearsTargets(t *testing.T) {
	g, _ := mesh.NewGrid(2, 2)
	pos := make([]float32, resources.CapacityFor(g.Mesh()).Positions)
	dev := gputest.New()
	r, err := New(dev, g.Mesh(), pos, Config{TextureSize: texSize})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if got := dev.Count(gputest.OpClear); got != 4 {
		t.Errorf("clears at start = %d, want 4", got)
	}
	if r.FinalTexture().Width != texSize {
		t.Errorf("FinalTexture width = %d", r.FinalTexture().Width)
	}
}

func TestNewPipelineFailure(t *testing.T) {
	g, _ := mesh.NewGrid(2, 2)
	pos := make([]float32, resources.CapacityFor(g.Mesh()).Positions)
	dev := gputest.New()
	dev.FailPipeline = "land"

	if _, err := New(dev, g.Mesh(), pos, Config{TextureSize: texSize}); err == nil {
		t.Fatal("expected shader failure")
	}
	// Everything allocated before the failure is released.
	if dev.Count(gputest.OpDestroy) == 0 {
		t.Error("partial allocation leaked")
	}
}

func TestTickIdle(t *testing.T) {
	r, dev, _ := newRenderer(t)
	drew, err := r.Tick()
	if err != nil || drew {
		t.Fatalf("Tick = %v, %v; want idle", drew, err)
	}
	if len(dev.Calls) != 0 {
		t.Errorf("idle tick issued %v", dev.Ops())
	}
}

func TestTickWithoutRivers(t *testing.T) {
	r, dev, _ := newRenderer(t)
	r.UpdateView(DefaultParams())

	drew, err := r.Tick()
	if err != nil || !drew {
		t.Fatalf("Tick = %v, %v", drew, err)
	}

	want := []gputest.Op{gputest.OpDraw, gputest.OpCopy, gputest.OpClear, gputest.OpClear, gputest.OpClear}
	if got := dev.Ops(); !reflect.DeepEqual(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
	land := dev.Draws()[0]
	if land.Target != r.res.FinalTarget {
		t.Error("elevation pass did not draw into the final target")
	}

	// The river target is still cleared to zero alpha.
	c := dev.Calls[2]
	if c.Target != r.res.RiverTarget || c.Clear.Color != [4]float32{0, 0, 0, 0} {
		t.Errorf("first clear = %+v", c)
	}
	if final := dev.Calls[4]; final.Target != r.res.FinalTarget || final.Clear.Color != [4]float32{0.3, 0.3, 0.35, 1} || !final.Clear.Depth {
		t.Errorf("final clear = %+v", final)
	}
}

func TestTickPassFailureClearsTargets(t *testing.T) {
	r, dev, _ := newRenderer(t)
	if err := r.Map().SetRiverTriangles(4); err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateMap(); err != nil {
		t.Fatal(err)
	}
	ch, err := r.RequestScreenshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	dev.Reset()
	dev.FailDraw = "land"

	r.UpdateView(DefaultParams())
	if _, err := r.Tick(); err == nil {
		t.Fatal("expected elevation pass error")
	}

	want := []gputest.Op{gputest.OpDraw, gputest.OpDraw, gputest.OpClear, gputest.OpClear, gputest.OpClear}
	if got := dev.Ops(); !reflect.DeepEqual(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
	if r.Frames() != 0 {
		t.Errorf("failed tick counted as frame %d", r.Frames())
	}

	// The screenshot is taken by the next frame that draws.
	dev.FailDraw = ""
	r.UpdateView(DefaultParams())
	if _, err := r.Tick(); err != nil {
		t.Fatal(err)
	}
	if res := <-ch; res.Err != nil || res.Image == nil {
		t.Errorf("screenshot after recovery = %+v", res)
	}
}

func TestTickWithRivers(t *testing.T) {
	r, dev, _ := newRenderer(t)
	if err := r.Map().SetRiverTriangles(4); err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateMap(); err != nil {
		t.Fatal(err)
	}
	dev.Reset()

	r.UpdateView(DefaultParams())
	if _, err := r.Tick(); err != nil {
		t.Fatal(err)
	}

	draws := dev.Draws()
	if len(draws) != 2 {
		t.Fatalf("draws = %d, want 2", len(draws))
	}
	if draws[0].Target != r.res.RiverTarget || draws[0].Count != 12 {
		t.Errorf("river draw = target %+v count %d", draws[0].Target, draws[0].Count)
	}
	if draws[1].Target != r.res.FinalTarget {
		t.Error("land pass must follow the river pass")
	}
	topdown := projection.Topdown()
	for i, d := range draws {
		if d.Uniforms["u_projection"] != topdown {
			t.Errorf("draw %d does not use the top-down matrix", i)
		}
	}
}

func TestUpdateViewLastWriteWins(t *testing.T) {
	r, dev, _ := newRenderer(t)
	for _, ow := range []float32{1, 2, 3} {
		p := DefaultParams()
		p.OutlineWater = ow
		r.UpdateView(p)
	}

	if drew, _ := r.Tick(); !drew {
		t.Fatal("expected a frame")
	}
	if drew, _ := r.Tick(); drew {
		t.Error("parameters consumed twice")
	}

	draws := dev.Draws()
	if len(draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(draws))
	}
	if got := draws[0].Uniforms["u_outline_water"]; got != float32(3) {
		t.Errorf("u_outline_water = %v, want 3", got)
	}
	if r.Frames() != 1 {
		t.Errorf("Frames = %d, want 1", r.Frames())
	}
}

func TestScreenToWorldFollowsCompletedFrame(t *testing.T) {
	r, _, _ := newRenderer(t)

	p := DefaultParams()
	p.View.X, p.View.Y, p.View.Zoom = 250, 750, 200
	r.UpdateView(p)

	// Not drawn yet: matrices still identity.
	if x, y := r.ScreenToWorld(0.5, 0.5); x != 0 || y != 0 {
		t.Errorf("before tick ScreenToWorld = (%v, %v), want (0, 0)", x, y)
	}

	r.Tick()
	x, y := r.ScreenToWorld(0.5, 0.5)
	if abs(x-250) > 1e-2 || abs(y-750) > 1e-2 {
		t.Errorf("ScreenToWorld = (%v, %v), want (250, 750)", x, y)
	}
	sx, sy := r.WorldToScreen(250, 750)
	if abs(sx-0.5) > 1e-4 || abs(sy-0.5) > 1e-4 {
		t.Errorf("WorldToScreen = (%v, %v)", sx, sy)
	}
}

func TestScreenshot(t *testing.T) {
	r, dev, _ := newRenderer(t)
	dev.Pixels = func(tgt gpu.Target, dst []byte) {
		for i := range dst {
			dst[i] = 200
		}
	}

	ch, err := r.RequestScreenshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.RequestScreenshot(context.Background()); !errors.Is(err, capture.ErrCaptureArmed) {
		t.Errorf("re-arm = %v, want ErrCaptureArmed", err)
	}

	// An idle tick does not complete the capture.
	r.Tick()
	select {
	case <-ch:
		t.Fatal("captured without a drawn frame")
	default:
	}

	r.UpdateView(DefaultParams())
	r.Tick()
	res := <-ch
	if res.Err != nil {
		t.Fatalf("capture: %v", res.Err)
	}
	if b := res.Image.Bounds(); b.Dx() != texSize || b.Dy() != texSize {
		t.Errorf("image = %v", b)
	}

	// The read happens after drawing and before clearing.
	ops := dev.Ops()
	if !reflect.DeepEqual(ops[:3], []gputest.Op{gputest.OpDraw, gputest.OpRead, gputest.OpCopy}) {
		t.Errorf("ops = %v", ops)
	}
	if dev.Calls[1].Target != r.res.FinalTarget {
		t.Error("read from the wrong target")
	}

	r.UpdateView(DefaultParams())
	r.Tick()
	if got := dev.Count(gputest.OpRead); got != 1 {
		t.Errorf("reads = %d, want 1", got)
	}
}

func TestMapChangedCoalesces(t *testing.T) {
	r, _, _ := newRenderer(t)
	for i := 0; i < 3; i++ {
		r.UpdateView(DefaultParams())
		r.Tick()
	}

	select {
	case <-r.MapChanged():
	default:
		t.Fatal("MapChanged not signalled")
	}
	select {
	case <-r.MapChanged():
		t.Error("signals did not coalesce")
	default:
	}
}

func TestUpdateMapRejectsOverflow(t *testing.T) {
	r, _, _ := newRenderer(t)
	limit := r.Capacity().MaxRiverTriangles
	if err := r.Map().SetRiverTriangles(limit + 1); !errors.Is(err, resources.ErrRiverOverflow) {
		t.Errorf("SetRiverTriangles = %v, want ErrRiverOverflow", err)
	}
}

func TestUpdateMapSizeMismatch(t *testing.T) {
	r, _, _ := newRenderer(t)
	r.Map().QuadEM = r.Map().QuadEM[:10]
	if err := r.UpdateMap(); !errors.Is(err, resources.ErrSizeMismatch) {
		t.Errorf("UpdateMap = %v, want ErrSizeMismatch", err)
	}
}

func TestResizeKeepsBuffers(t *testing.T) {
	r, dev, _ := newRenderer(t)
	r.Resize(800, 600)

	if dev.ViewportW != 800 || dev.ViewportH != 600 {
		t.Errorf("viewport = %dx%d", dev.ViewportW, dev.ViewportH)
	}
	if n := dev.Count(gputest.OpNewBuffer) + dev.Count(gputest.OpNewTarget); n != 0 {
		t.Errorf("resize allocated %d objects", n)
	}
}

func TestPresentShowsPreview(t *testing.T) {
	r, dev, _ := newRenderer(t)
	r.Present()
	if dev.Calls[0].Op != gputest.OpPresent || dev.Calls[0].Target.Color != r.FinalTexture() {
		t.Errorf("present = %+v", dev.Calls[0])
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
