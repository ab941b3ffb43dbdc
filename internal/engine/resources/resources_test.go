package resources

import (
	"errors"
	"testing"

	"github.com/Faultbox/heightfield/internal/engine/gpu"
	"github.com/Faultbox/heightfield/internal/engine/gpu/gputest"
	"github.com/Faultbox/heightfield/internal/mesh"
)

func TestCapacityFor(t *testing.T) {
	tests := []struct {
		name string
		mesh mesh.Mesh
		want Capacity
	}{
		{
			name: "counts",
			mesh: mesh.Mesh{NumRegions: 100, NumTriangles: 200, NumSolidSides: 600, NumSolidTriangles: 200},
			want: Capacity{Positions: 600, Attributes: 600, Elements: 1800, River: 3600, MaxRiverTriangles: 300},
		},
		{
			name: "odd solid triangles round the bound down",
			mesh: mesh.Mesh{NumRegions: 4, NumTriangles: 3, NumSolidSides: 9, NumSolidTriangles: 3},
			want: Capacity{Positions: 14, Attributes: 14, Elements: 27, River: 54, MaxRiverTriangles: 4},
		},
		{
			name: "single solid triangle",
			mesh: mesh.Mesh{NumRegions: 3, NumTriangles: 1, NumSolidSides: 3, NumSolidTriangles: 1},
			want: Capacity{Positions: 8, Attributes: 8, Elements: 9, River: 18, MaxRiverTriangles: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CapacityFor(tt.mesh); got != tt.want {
				t.Errorf("CapacityFor = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRiverCapacityMatchesBudget(t *testing.T) {
	for n := range 12 {
		c := CapacityFor(mesh.Mesh{NumSolidTriangles: n})
		if want := int(1.5 * 3 * 4 * float64(n)); c.River != want {
			t.Errorf("n=%d: River = %d, want %d", n, c.River, want)
		}
		if 12*c.MaxRiverTriangles > c.River {
			t.Errorf("n=%d: %d river triangles do not fit %d floats", n, c.MaxRiverTriangles, c.River)
		}
	}
}

func TestRiverBudget(t *testing.T) {
	d := NewMapData(CapacityFor(mesh.Mesh{NumRegions: 10, NumTriangles: 10, NumSolidSides: 30, NumSolidTriangles: 10}))

	if err := d.SetRiverTriangles(15); err != nil {
		t.Fatalf("SetRiverTriangles(15): %v", err)
	}
	if err := d.SetRiverTriangles(16); !errors.Is(err, ErrRiverOverflow) {
		t.Errorf("SetRiverTriangles(16) = %v, want ErrRiverOverflow", err)
	}
	if d.RiverTriangles() != 15 {
		t.Errorf("count after rejected set = %d, want 15", d.RiverTriangles())
	}
	if err := d.SetRiverTriangles(-1); !errors.Is(err, ErrRiverOverflow) {
		t.Errorf("SetRiverTriangles(-1) = %v, want ErrRiverOverflow", err)
	}
}

func newGrid(t *testing.T) (*mesh.Grid, []float32) {
	t.Helper()
	g, err := mesh.NewGrid(4, 3)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	pos := make([]float32, CapacityFor(g.Mesh()).Positions)
	if err := g.SetMeshGeometry(pos); err != nil {
		t.Fatalf("SetMeshGeometry: %v", err)
	}
	return g, pos
}

func TestNewAllocates(t *testing.T) {
	g, pos := newGrid(t)
	dev := gputest.New()

	r, err := New(dev, g.Mesh(), pos, 256)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := dev.Count(gputest.OpNewBuffer); got != 4 {
		t.Errorf("buffers allocated = %d, want 4", got)
	}
	if got := dev.Count(gputest.OpNewTarget); got != 3 {
		t.Errorf("targets allocated = %d, want 3", got)
	}
	if r.Positions.Usage != gpu.UsageStatic {
		t.Error("position buffer should be static")
	}
	for _, b := range []gpu.Buffer{r.Attributes, r.Elements, r.River} {
		if b.Usage != gpu.UsageDynamic {
			t.Errorf("buffer %d should be dynamic", b.ID)
		}
	}
	if r.River.Len != r.Capacity.River {
		t.Errorf("river buffer len = %d, want %d", r.River.Len, r.Capacity.River)
	}
	if r.TextureSize() != 256 {
		t.Errorf("TextureSize = %d, want 256", r.TextureSize())
	}
	if !r.DepthTarget.Depth {
		t.Error("depth target has no depth attachment")
	}
	if got := dev.Vertices[r.Positions.ID]; got[2] != pos[2] {
		t.Errorf("positions not uploaded: %v", got[:4])
	}
}

func TestNewDefaultTextureSize(t *testing.T) {
	g, pos := newGrid(t)
	r, err := New(gputest.New(), g.Mesh(), pos, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.TextureSize() != DefaultTextureSize {
		t.Errorf("TextureSize = %d, want %d", r.TextureSize(), DefaultTextureSize)
	}
}

func TestNewRejectsWrongPositions(t *testing.T) {
	g, pos := newGrid(t)
	_, err := New(gputest.New(), g.Mesh(), pos[:len(pos)-2], 64)
	if !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("New = %v, want ErrSizeMismatch", err)
	}
}

func TestUploadWritesRiverPrefix(t *testing.T) {
	g, pos := newGrid(t)
	dev := gputest.New()
	r, err := New(dev, g.Mesh(), pos, 64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	d := NewMapData(r.Capacity)
	for i := range d.RiverXYUV {
		d.RiverXYUV[i] = 7
	}
	if err := d.SetRiverTriangles(2); err != nil {
		t.Fatal(err)
	}
	dev.Reset()
	if err := r.Upload(d); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	var riverWrite *gputest.Call
	for i := range dev.Calls {
		if dev.Calls[i].Op == gputest.OpWrite && dev.Calls[i].Buffer.ID == r.River.ID {
			riverWrite = &dev.Calls[i]
		}
	}
	if riverWrite == nil {
		t.Fatal("river buffer not written")
	}
	if riverWrite.Written != 24 {
		t.Errorf("river floats written = %d, want 24", riverWrite.Written)
	}
	if got := dev.Vertices[r.River.ID][24]; got != 0 {
		t.Errorf("river buffer past prefix = %v, want untouched", got)
	}
	if r.RiverVertices() != 6 {
		t.Errorf("RiverVertices = %d, want 6", r.RiverVertices())
	}
	if r.ElementCount() != r.Capacity.Elements {
		t.Errorf("ElementCount = %d, want %d", r.ElementCount(), r.Capacity.Elements)
	}
}

func TestUploadSkipsEmptyRivers(t *testing.T) {
	g, pos := newGrid(t)
	dev := gputest.New()
	r, _ := New(dev, g.Mesh(), pos, 64)
	dev.Reset()

	if err := r.Upload(NewMapData(r.Capacity)); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got := dev.Count(gputest.OpWrite); got != 2 {
		t.Errorf("writes = %d, want 2", got)
	}
}

func TestUploadSizeMismatch(t *testing.T) {
	g, pos := newGrid(t)
	r, _ := New(gputest.New(), g.Mesh(), pos, 64)

	tests := []struct {
		name   string
		mutate func(*MapData)
	}{
		{"short em", func(d *MapData) { d.QuadEM = d.QuadEM[:len(d.QuadEM)-1] }},
		{"long elements", func(d *MapData) { d.QuadElements = append(d.QuadElements, 0) }},
		{"short rivers", func(d *MapData) { d.RiverXYUV = d.RiverXYUV[:4] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewMapData(r.Capacity)
			tt.mutate(d)
			if err := r.Upload(d); !errors.Is(err, ErrSizeMismatch) {
				t.Errorf("Upload = %v, want ErrSizeMismatch", err)
			}
		})
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	g, pos := newGrid(t)
	dev := gputest.New()
	r, _ := New(dev, g.Mesh(), pos, 64)
	dev.Reset()

	r.Close()
	if got := dev.Count(gputest.OpDestroy); got != 7 {
		t.Errorf("destroyed = %d, want 7", got)
	}
	r.Close()
	if got := dev.Count(gputest.OpDestroy); got != 7 {
		t.Errorf("second Close destroyed more: %d", got)
	}
}
