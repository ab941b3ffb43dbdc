package mesh

import (
	"fmt"
	"math/rand/v2"
)

// Grid is a regular triangulated grid exposed as a dual mesh: grid points are
// regions, each cell is split into two triangles, and every triangle
// contributes three half-edge sides.
type Grid struct {
	cols, rows int

	// triangles holds three region indices per triangle.
	triangles []int32
	// opposite maps a side to its twin, or -1 on the boundary.
	opposite []int32
}

// NewGrid builds a cols x rows cell grid covering [0, MapSize]^2.
func NewGrid(cols, rows int) (*Grid, error) {
	if cols < 1 || rows < 1 {
		return nil, fmt.Errorf("grid must have at least one cell, got %dx%d", cols, rows)
	}

	g := &Grid{
		cols:      cols,
		rows:      rows,
		triangles: make([]int32, 0, 6*cols*rows),
	}

	for y := range rows {
		for x := range cols {
			a := g.region(x, y)
			b := g.region(x+1, y)
			c := g.region(x+1, y+1)
			d := g.region(x, y+1)
			g.triangles = append(g.triangles, a, b, c, a, c, d)
		}
	}

	numSides := len(g.triangles)
	g.opposite = make([]int32, numSides)
	edges := make(map[[2]int32]int32, numSides)
	for s := range numSides {
		edges[[2]int32{g.sideBegin(s), g.sideEnd(s)}] = int32(s)
	}
	for s := range numSides {
		twin, ok := edges[[2]int32{g.sideEnd(s), g.sideBegin(s)}]
		if !ok {
			twin = -1
		}
		g.opposite[s] = twin
	}

	return g, nil
}

func (g *Grid) region(x, y int) int32 {
	return int32(y*(g.cols+1) + x)
}

func (g *Grid) sideBegin(s int) int32 {
	return g.triangles[s]
}

func (g *Grid) sideEnd(s int) int32 {
	if s%3 == 2 {
		return g.triangles[s-2]
	}
	return g.triangles[s+1]
}

// Mesh returns the element counts. Every triangle of a grid is solid.
func (g *Grid) Mesh() Mesh {
	numTriangles := len(g.triangles) / 3
	return Mesh{
		NumRegions:        (g.cols + 1) * (g.rows + 1),
		NumTriangles:      numTriangles,
		NumSolidSides:     3 * numTriangles,
		NumSolidTriangles: numTriangles,
	}
}

// SetMeshGeometry writes region positions followed by triangle centroids.
func (g *Grid) SetMeshGeometry(positions []float32) error {
	m := g.Mesh()
	if want := 2 * m.NumQuadVertices(); len(positions) != want {
		return fmt.Errorf("position array has %d scalars, want %d", len(positions), want)
	}

	dx := float32(MapSize) / float32(g.cols)
	dy := float32(MapSize) / float32(g.rows)
	for y := range g.rows + 1 {
		for x := range g.cols + 1 {
			r := g.region(x, y)
			positions[2*r] = float32(x) * dx
			positions[2*r+1] = float32(y) * dy
		}
	}

	base := 2 * m.NumRegions
	for t := range m.NumTriangles {
		var cx, cy float32
		for i := range 3 {
			r := g.triangles[3*t+i]
			cx += positions[2*r]
			cy += positions[2*r+1]
		}
		positions[base+2*t] = cx / 3
		positions[base+2*t+1] = cy / 3
	}
	return nil
}

// SetQuadElements writes one triangle per side: the side's starting region,
// the triangle the side belongs to, and the triangle across the side.
// Boundary sides have no twin and collapse into a degenerate triangle.
func (g *Grid) SetQuadElements(elements []uint32) error {
	m := g.Mesh()
	if want := 3 * m.NumSolidSides; len(elements) != want {
		return fmt.Errorf("element array has %d indices, want %d", len(elements), want)
	}

	for s := range m.NumSolidSides {
		inner := s / 3
		outer := inner
		if twin := g.opposite[s]; twin >= 0 {
			outer = int(twin) / 3
		}
		elements[3*s] = uint32(g.sideBegin(s))
		elements[3*s+1] = uint32(m.NumRegions + inner)
		elements[3*s+2] = uint32(m.NumRegions + outer)
	}
	return nil
}

// TraceRivers walks downhill from up to count random land regions until each
// walk reaches water or a pit, and returns the walked region positions.
// em holds elevation and moisture per quad vertex; only the region prefix is
// read. Walks shorter than two points are dropped.
func (g *Grid) TraceRivers(positions, em []float32, count int, seed uint64) [][][2]float32 {
	numRegions := g.Mesh().NumRegions
	if len(em) < 2*numRegions || len(positions) < 2*numRegions {
		return nil
	}
	rng := rand.New(rand.NewPCG(seed, seed^0xa0761d6478bd642f))

	var paths [][][2]float32
	for range count {
		x, y := rng.IntN(g.cols+1), rng.IntN(g.rows+1)
		if em[2*g.region(x, y)] <= 0.2 {
			continue
		}

		var path [][2]float32
		for steps := 0; steps <= g.cols+g.rows; steps++ {
			r := g.region(x, y)
			path = append(path, [2]float32{positions[2*r], positions[2*r+1]})
			if em[2*r] < 0 {
				break
			}
			nx, ny, ok := g.lowestNeighbor(em, x, y)
			if !ok {
				break
			}
			x, y = nx, ny
		}
		if len(path) >= 2 {
			paths = append(paths, path)
		}
	}
	return paths
}

// lowestNeighbor returns the lowest of the eight neighbours of (x, y) if it
// is lower than (x, y) itself.
func (g *Grid) lowestNeighbor(em []float32, x, y int) (int, int, bool) {
	best := em[2*g.region(x, y)]
	bx, by, found := x, y, false
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if (dx == 0 && dy == 0) || nx < 0 || ny < 0 || nx > g.cols || ny > g.rows {
				continue
			}
			if e := em[2*g.region(nx, ny)]; e < best {
				best, bx, by, found = e, nx, ny, true
			}
		}
	}
	return bx, by, found
}
