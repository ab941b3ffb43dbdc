// Package resources allocates the GPU buffers and render targets for one
// mesh and streams map data into them.
//
// Every capacity is computed once from the mesh counts. Uploads only ever
// overwrite a prefix of a pre-sized buffer; nothing is reallocated while a
// session runs.
package resources

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/heightfield/internal/engine/gpu"
	"github.com/Faultbox/heightfield/internal/logger"
	"github.com/Faultbox/heightfield/internal/mesh"
)

// DefaultTextureSize is the edge length of the off-screen targets.
const DefaultTextureSize = 2048

var (
	// ErrSizeMismatch is returned when an array does not have the length
	// derived from the mesh counts.
	ErrSizeMismatch = errors.New("array size does not match mesh")
	// ErrRiverOverflow is returned when more river triangles are requested
	// than the river buffer holds.
	ErrRiverOverflow = errors.New("river triangles exceed buffer capacity")
)

// floatsPerRiverVertex is x, y, u, v.
const floatsPerRiverVertex = 4

// Capacity holds the element counts of every buffer.
type Capacity struct {
	Positions         int // float32, two per quad vertex
	Attributes        int // float32, elevation and moisture per quad vertex
	Elements          int // uint32, three per solid side
	River             int // float32
	MaxRiverTriangles int
}

// CapacityFor derives buffer sizes from mesh counts. Rivers are budgeted at
// one and a half triangles per solid triangle: the buffer holds exactly
// 1.5*3*4 floats per solid triangle and the triangle bound rounds down.
func CapacityFor(m mesh.Mesh) Capacity {
	quad := m.NumQuadVertices()
	maxRiver := 3 * m.NumSolidTriangles / 2
	return Capacity{
		Positions:         2 * quad,
		Attributes:        2 * quad,
		Elements:          3 * m.NumSolidSides,
		River:             3 * 3 * floatsPerRiverVertex * m.NumSolidTriangles / 2,
		MaxRiverTriangles: maxRiver,
	}
}

// MapData is the CPU side of the per-update arrays. The generator fills the
// slices in place and reports how many river triangles are valid.
type MapData struct {
	QuadEM       []float32
	QuadElements []uint32
	RiverXYUV    []float32

	maxRiver       int
	riverTriangles int
}

// NewMapData allocates arrays of exactly the given capacity.
func NewMapData(c Capacity) *MapData {
	return &MapData{
		QuadEM:       make([]float32, c.Attributes),
		QuadElements: make([]uint32, c.Elements),
		RiverXYUV:    make([]float32, c.River),
		maxRiver:     c.MaxRiverTriangles,
	}
}

// SetRiverTriangles sets the number of valid river triangles. Values beyond
// the buffer budget are rejected and the previous count is kept.
func (d *MapData) SetRiverTriangles(n int) error {
	if n < 0 || n > d.maxRiver {
		return fmt.Errorf("%w: %d triangles, limit %d", ErrRiverOverflow, n, d.maxRiver)
	}
	d.riverTriangles = n
	return nil
}

// RiverTriangles returns the number of valid river triangles.
func (d *MapData) RiverTriangles() int {
	return d.riverTriangles
}

// Resources owns the GPU objects for one mesh.
type Resources struct {
	dev gpu.Device
	log *zap.Logger

	Capacity Capacity

	Positions  gpu.Buffer
	Attributes gpu.Buffer
	Elements   gpu.Buffer
	River      gpu.Buffer

	RiverTarget gpu.Target
	// DepthTarget is allocated and cleared every frame but no pass draws
	// into it.
	DepthTarget gpu.Target
	FinalTarget gpu.Target

	riverTriangles int
	elements       int
}

// New allocates all buffers and targets. positions is uploaded once into a
// static buffer and must hold exactly 2*(regions+triangles) scalars.
func New(dev gpu.Device, m mesh.Mesh, positions []float32, textureSize int) (*Resources, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSizeMismatch, err)
	}
	c := CapacityFor(m)
	if len(positions) != c.Positions {
		return nil, fmt.Errorf("%w: positions has %d scalars, want %d", ErrSizeMismatch, len(positions), c.Positions)
	}
	if textureSize <= 0 {
		textureSize = DefaultTextureSize
	}

	r := &Resources{dev: dev, log: logger.Named("resources"), Capacity: c}
	if err := r.allocate(positions, textureSize); err != nil {
		r.Close()
		return nil, err
	}

	r.log.Debug("allocated",
		zap.Int("positions", c.Positions),
		zap.Int("attributes", c.Attributes),
		zap.Int("elements", c.Elements),
		zap.Int("river", c.River),
		zap.Int("max_river_triangles", c.MaxRiverTriangles),
		zap.Int("texture_size", textureSize),
	)
	return r, nil
}

func (r *Resources) allocate(positions []float32, size int) error {
	var err error
	if r.Positions, err = r.dev.NewVertexBuffer(gpu.UsageStatic, r.Capacity.Positions, positions); err != nil {
		return fmt.Errorf("position buffer: %w", err)
	}
	if r.Attributes, err = r.dev.NewVertexBuffer(gpu.UsageDynamic, r.Capacity.Attributes, nil); err != nil {
		return fmt.Errorf("attribute buffer: %w", err)
	}
	if r.Elements, err = r.dev.NewIndexBuffer(gpu.UsageDynamic, r.Capacity.Elements); err != nil {
		return fmt.Errorf("element buffer: %w", err)
	}
	if r.River, err = r.dev.NewVertexBuffer(gpu.UsageDynamic, r.Capacity.River, nil); err != nil {
		return fmt.Errorf("river buffer: %w", err)
	}

	if r.RiverTarget, err = r.dev.NewTarget(gpu.TargetDesc{Size: size, Filter: gpu.FilterLinear}); err != nil {
		return fmt.Errorf("river target: %w", err)
	}
	if r.DepthTarget, err = r.dev.NewTarget(gpu.TargetDesc{Size: size, Filter: gpu.FilterNearest, Depth: true}); err != nil {
		return fmt.Errorf("depth target: %w", err)
	}
	if r.FinalTarget, err = r.dev.NewTarget(gpu.TargetDesc{Size: size, Filter: gpu.FilterLinear, Depth: true}); err != nil {
		return fmt.Errorf("final target: %w", err)
	}
	return nil
}

// Upload streams the map arrays into the dynamic buffers. Attribute and
// element arrays are written in full; only the valid river prefix is
// written.
func (r *Resources) Upload(d *MapData) error {
	c := r.Capacity
	switch {
	case len(d.QuadEM) != c.Attributes:
		return fmt.Errorf("%w: quad_em has %d scalars, want %d", ErrSizeMismatch, len(d.QuadEM), c.Attributes)
	case len(d.QuadElements) != c.Elements:
		return fmt.Errorf("%w: quad_elements has %d indices, want %d", ErrSizeMismatch, len(d.QuadElements), c.Elements)
	case len(d.RiverXYUV) != c.River:
		return fmt.Errorf("%w: river_xyuv has %d scalars, want %d", ErrSizeMismatch, len(d.RiverXYUV), c.River)
	case d.riverTriangles > c.MaxRiverTriangles:
		return fmt.Errorf("%w: %d triangles, limit %d", ErrRiverOverflow, d.riverTriangles, c.MaxRiverTriangles)
	}

	if err := r.dev.WriteVertices(r.Attributes, d.QuadEM); err != nil {
		return fmt.Errorf("upload attributes: %w", err)
	}
	if err := r.dev.WriteIndices(r.Elements, d.QuadElements); err != nil {
		return fmt.Errorf("upload elements: %w", err)
	}
	n := d.riverTriangles
	if n > 0 {
		if err := r.dev.WriteVertices(r.River, d.RiverXYUV[:3*floatsPerRiverVertex*n]); err != nil {
			return fmt.Errorf("upload rivers: %w", err)
		}
	}

	r.riverTriangles = n
	r.elements = len(d.QuadElements)
	r.log.Debug("uploaded map", zap.Int("river_triangles", n))
	return nil
}

// RiverVertices returns the number of valid river vertices on the GPU.
func (r *Resources) RiverVertices() int {
	return 3 * r.riverTriangles
}

// ElementCount returns the number of quad indices on the GPU. It is zero
// until the first upload.
func (r *Resources) ElementCount() int {
	return r.elements
}

// TextureSize returns the edge length of the targets.
func (r *Resources) TextureSize() int {
	return r.FinalTarget.Color.Width
}

// Close releases everything allocated by New. Zero handles are skipped, so
// Close is safe after a partial allocation.
func (r *Resources) Close() {
	for _, b := range []gpu.Buffer{r.Positions, r.Attributes, r.Elements, r.River} {
		if b.ID != 0 {
			r.dev.DestroyBuffer(b)
		}
	}
	for _, t := range []gpu.Target{r.RiverTarget, r.DepthTarget, r.FinalTarget} {
		if t.ID != 0 {
			r.dev.DestroyTarget(t)
		}
	}
	r.Positions, r.Attributes, r.Elements, r.River = gpu.Buffer{}, gpu.Buffer{}, gpu.Buffer{}, gpu.Buffer{}
	r.RiverTarget, r.DepthTarget, r.FinalTarget = gpu.Target{}, gpu.Target{}, gpu.Target{}
}
