package elevation

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/heightfield/internal/engine/gpu"
	"github.com/Faultbox/heightfield/internal/engine/gpu/gputest"
	"github.com/Faultbox/heightfield/internal/engine/resources"
	"github.com/Faultbox/heightfield/internal/mesh"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		name               string
		ve, river, outline float32
		want               float32
	}{
		{"sea level without outline", 0, 1, 0, 0.5},
		{"sea level ignores river alpha", 0, 0.3, 0, 0.5},
		{"deep water untouched by river", -0.6, 1, 10, 0.2},
		{"land without river gets bump", 0.5, 0, 25.6, 0.85},
		{"river near coast carves", 0.02, 1, 25.6, 0.6},
		{"river on high ground keeps bump", 0.5, 1, 25.6, 0.85},
		{"half river blends", 0.02, 0.5, 25.6, 0.605},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Level(tt.ve, tt.river, tt.outline)
			if d := got - tt.want; d > 1e-5 || d < -1e-5 {
				t.Errorf("Level(%v, %v, %v) = %v, want %v", tt.ve, tt.river, tt.outline, got, tt.want)
			}
		})
	}
}

func TestEncodeRounded(t *testing.T) {
	got := Encode(0, 1, 0, PrecisionRounded)
	want := [4]uint8{128, 128, 128, 255}
	if got != want {
		t.Errorf("Encode(sea level) = %v, want %v", got, want)
	}

	if got := Encode(-1, 0, 10, PrecisionRounded); got != [4]uint8{0, 0, 0, 255} {
		t.Errorf("Encode(-1) = %v", got)
	}
	if got := Encode(1, 0, 10, PrecisionRounded); got != [4]uint8{255, 255, 255, 255} {
		t.Errorf("Encode(1) clamps to %v", got)
	}
}

func TestEncodeSplit16(t *testing.T) {
	got := Encode(0, 0, 0, PrecisionSplit16)
	// 256 * 0.5 = 128: no fractional part, high byte 128/256.
	want := [4]uint8{0, 128, 0, 255}
	if got != want {
		t.Errorf("Encode(sea level, split16) = %v, want %v", got, want)
	}
}

func TestSplit16BeatsRounded(t *testing.T) {
	var worstRounded, worstSplit float32
	for i := 0; i <= 1000; i++ {
		ve := float32(i)/500 - 1
		e := Level(ve, 0, 0)

		r := Decode(Encode(ve, 0, 0, PrecisionRounded), PrecisionRounded)
		s := Decode(Encode(ve, 0, 0, PrecisionSplit16), PrecisionSplit16)
		worstRounded = max(worstRounded, abs(r-e))
		worstSplit = max(worstSplit, abs(s-e))
	}
	if worstRounded > 0.5/255+1e-6 {
		t.Errorf("rounded error %v exceeds half a step", worstRounded)
	}
	if worstSplit > 0.0025 {
		t.Errorf("split16 error %v too large", worstSplit)
	}
}

func TestParsePrecision(t *testing.T) {
	tests := []struct {
		in      string
		want    Precision
		wantErr bool
	}{
		{"", PrecisionRounded, false},
		{"rounded", PrecisionRounded, false},
		{" Split16 ", PrecisionSplit16, false},
		{"float", PrecisionRounded, true},
	}
	for _, tt := range tests {
		got, err := ParsePrecision(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePrecision(%q) = %v, %v", tt.in, got, err)
		}
	}
	if PrecisionSplit16.String() != "split16" {
		t.Errorf("String() = %q", PrecisionSplit16.String())
	}
}

func TestDraw(t *testing.T) {
	g, err := mesh.NewGrid(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	c := resources.CapacityFor(g.Mesh())
	pos := make([]float32, c.Positions)
	if err := g.SetMeshGeometry(pos); err != nil {
		t.Fatal(err)
	}
	dev := gputest.New()
	res, err := resources.New(dev, g.Mesh(), pos, 32)
	if err != nil {
		t.Fatal(err)
	}
	comp, err := New(dev, PrecisionSplit16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := comp.Draw(res, mgl32.Ident4(), 10); err != nil {
		t.Fatalf("Draw before upload: %v", err)
	}
	if dev.Count(gputest.OpDraw) != 0 {
		t.Fatal("drew before any map upload")
	}

	d := resources.NewMapData(c)
	if err := g.SetQuadElements(d.QuadElements); err != nil {
		t.Fatal(err)
	}
	if err := res.Upload(d); err != nil {
		t.Fatal(err)
	}
	if err := comp.Draw(res, mgl32.Ident4(), 10); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	draws := dev.Draws()
	if len(draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(draws))
	}
	dr := draws[0]
	if dr.Target != res.FinalTarget {
		t.Error("land pass must draw into the final target")
	}
	if dr.Elements == nil || dr.Elements.ID != res.Elements.ID || dr.Count != c.Elements {
		t.Errorf("indexed draw = %+v, count %d", dr.Elements, dr.Count)
	}
	if tex, ok := dr.Uniforms["u_water"].(gpu.Texture); !ok || tex != res.RiverTarget.Color {
		t.Error("river target not sampled")
	}
	if dr.Uniforms["u_outline_water"] != float32(10) {
		t.Errorf("u_outline_water = %v", dr.Uniforms["u_outline_water"])
	}
	if dr.Uniforms["u_precision"] != int32(PrecisionSplit16) {
		t.Errorf("u_precision = %v", dr.Uniforms["u_precision"])
	}
	if dr.Pipeline.Desc.Blend.Enabled || dr.Pipeline.Desc.DepthTest {
		t.Error("land pass must not blend or depth test")
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
