package mapgen

import (
	"slices"
	"testing"

	"github.com/Faultbox/heightfield/internal/config"
	"github.com/Faultbox/heightfield/internal/engine/resources"
	"github.com/Faultbox/heightfield/internal/mesh"
)

func generate(t *testing.T, cfg *config.Config) (*resources.MapData, int) {
	t.Helper()
	g, err := mesh.NewGrid(40, 40)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	m := g.Mesh()
	positions := make([]float32, 2*m.NumQuadVertices())
	if err := g.SetMeshGeometry(positions); err != nil {
		t.Fatalf("SetMeshGeometry: %v", err)
	}
	data := resources.NewMapData(resources.CapacityFor(m))
	rivers, err := Generate(g, positions, data, cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return data, rivers
}

func TestGenerateFillsMap(t *testing.T) {
	data, rivers := generate(t, config.Default())

	var land, water int
	for i := 0; i < len(data.QuadEM); i += 2 {
		if data.QuadEM[i] >= 0 {
			land++
		} else {
			water++
		}
	}
	if land == 0 || water == 0 {
		t.Errorf("island has %d land and %d water vertices, want both", land, water)
	}

	if slices.Max(data.QuadElements) == 0 {
		t.Error("quad elements not written")
	}

	n := data.RiverTriangles()
	if n%2 != 0 {
		t.Errorf("river triangles = %d, want whole quads", n)
	}
	if rivers == 0 && n != 0 {
		t.Errorf("%d river triangles without rivers", n)
	}
	for i := range 3 * n {
		u, v := data.RiverXYUV[4*i+2], data.RiverXYUV[4*i+3]
		if u != 0 && u != 1 {
			t.Fatalf("vertex %d: u = %v, want 0 or 1", i, u)
		}
		if v <= 0 || v >= 1 {
			t.Fatalf("vertex %d: v = %v, want inside (0, 1)", i, v)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, _ := generate(t, config.Default())
	b, _ := generate(t, config.Default())
	if !slices.Equal(a.QuadEM, b.QuadEM) || !slices.Equal(a.RiverXYUV, b.RiverXYUV) {
		t.Error("same seeds produced different maps")
	}
}

func TestGenerateMinFlowDropsRivers(t *testing.T) {
	cfg := config.Default()
	cfg.Rivers.LgMinFlow = 20

	data, rivers := generate(t, cfg)
	if rivers != 0 || data.RiverTriangles() != 0 {
		t.Errorf("rivers = %d, triangles = %d, want none", rivers, data.RiverTriangles())
	}
}

func TestParamsFromConfig(t *testing.T) {
	rc := config.Default().Render
	rc.TiltDeg = 20
	rc.RotateDeg = 45

	p := ParamsFor(ViewFromConfig(rc), rc)
	if p.View.Zoom != rc.Zoom || p.View.X != rc.X || p.View.Y != rc.Y {
		t.Errorf("view = %+v, want zoom %v at (%v, %v)", p.View, rc.Zoom, rc.X, rc.Y)
	}
	if p.View.TiltDeg != 20 || p.View.RotateDeg != 45 || p.View.MountainHeight != rc.MountainHeight {
		t.Errorf("view angles = %+v", p.View)
	}
	if p.OutlineWater != rc.OutlineWater {
		t.Errorf("OutlineWater = %v, want %v", p.OutlineWater, rc.OutlineWater)
	}
}
