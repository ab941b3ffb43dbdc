package mesh

import (
	"errors"
	"math"
	"math/rand/v2"
)

// ErrRibbonsFull is returned when a river ribbon does not fit the buffer.
var ErrRibbonsFull = errors.New("river ribbon buffer full")

// FillIsland writes a round island into an elevation/moisture array, two
// scalars per quad vertex. It is a stand-in for a real generator so the
// executables have something to draw.
func FillIsland(positions, em []float32, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	type wave struct{ fx, fy, phase, amp float64 }
	waves := make([]wave, 6)
	for i := range waves {
		octave := float64(int(1) << i)
		waves[i] = wave{
			fx:    (rng.Float64()*2 + 1) * octave / MapSize * math.Pi,
			fy:    (rng.Float64()*2 + 1) * octave / MapSize * math.Pi,
			phase: rng.Float64() * 2 * math.Pi,
			amp:   0.35 / octave,
		}
	}

	half := float64(MapSize) / 2
	for i := 0; 2*i+1 < len(positions) && 2*i+1 < len(em); i++ {
		x := float64(positions[2*i])
		y := float64(positions[2*i+1])
		nx := x/half - 1
		ny := y/half - 1
		d2 := nx*nx + ny*ny

		e := 0.6 - 1.4*d2
		for _, w := range waves {
			e += w.amp * math.Sin(w.fx*x+w.phase) * math.Cos(w.fy*y-w.phase)
		}
		em[2*i] = float32(max(-1, min(1, e)))
		em[2*i+1] = float32(max(0, min(1, 0.5+0.5*math.Sin(x/97+y/131))))
	}
}

// Ribbons appends river ribbon triangles (x, y, u, v per vertex) into a
// preallocated slice and tracks how many triangles are valid.
type Ribbons struct {
	dst       []float32
	triangles int
}

// NewRibbons wraps dst. Previous contents are ignored.
func NewRibbons(dst []float32) *Ribbons {
	return &Ribbons{dst: dst}
}

// Triangles returns the number of triangles written so far.
func (r *Ribbons) Triangles() int {
	return r.triangles
}

// Reset discards all ribbons.
func (r *Ribbons) Reset() {
	r.triangles = 0
}

// Add appends a ribbon following path. Each segment becomes a quad of two
// triangles; u runs across the ribbon and v is fixed to select a row of the
// river pattern texture.
func (r *Ribbons) Add(path [][2]float32, width, v float32) error {
	if len(path) < 2 {
		return nil
	}
	need := 12 * 2 * (len(path) - 1)
	if 12*r.triangles+need > len(r.dst) {
		return ErrRibbonsFull
	}

	half := width / 2
	for i := 0; i+1 < len(path); i++ {
		p0, p1 := path[i], path[i+1]
		dx, dy := p1[0]-p0[0], p1[1]-p0[1]
		l := float32(math.Hypot(float64(dx), float64(dy)))
		if l == 0 {
			continue
		}
		// Left-hand normal scaled to half width.
		nx, ny := -dy/l*half, dx/l*half

		a := [4]float32{p0[0] + nx, p0[1] + ny, 0, v}
		b := [4]float32{p0[0] - nx, p0[1] - ny, 1, v}
		c := [4]float32{p1[0] - nx, p1[1] - ny, 1, v}
		d := [4]float32{p1[0] + nx, p1[1] + ny, 0, v}
		r.put(a, b, c)
		r.put(a, c, d)
	}
	return nil
}

func (r *Ribbons) put(vs ...[4]float32) {
	off := 12 * r.triangles
	for i, vert := range vs {
		copy(r.dst[off+4*i:off+4*i+4], vert[:])
	}
	r.triangles++
}
