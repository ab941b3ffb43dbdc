// Package mesh describes the dual terrain mesh consumed by the renderer and
// provides a reference grid adapter for the executables and tests.
//
// Mesh generation proper (noise, flow routing, erosion) lives outside this
// module; anything that can report counts and fill the arrays below can drive
// the renderer.
package mesh

import "fmt"

// MapSize is the extent of mesh space on both axes. Positions lie in
// [0, MapSize].
const MapSize = 1000

// Mesh holds the element counts of a dual mesh. The counts drive every
// buffer size computation and must not change for a render session.
type Mesh struct {
	NumRegions        int
	NumTriangles      int
	NumSolidSides     int
	NumSolidTriangles int
}

// NumQuadVertices returns the number of vertices in the quad mesh
// (regions followed by triangle centers).
func (m Mesh) NumQuadVertices() int {
	return m.NumRegions + m.NumTriangles
}

// Validate checks the counts for internal consistency.
func (m Mesh) Validate() error {
	switch {
	case m.NumRegions <= 0:
		return fmt.Errorf("mesh has %d regions", m.NumRegions)
	case m.NumTriangles <= 0:
		return fmt.Errorf("mesh has %d triangles", m.NumTriangles)
	case m.NumSolidTriangles > m.NumTriangles:
		return fmt.Errorf("mesh has %d solid triangles but only %d triangles", m.NumSolidTriangles, m.NumTriangles)
	case m.NumSolidSides > 3*m.NumTriangles:
		return fmt.Errorf("mesh has %d solid sides but only %d triangles", m.NumSolidSides, m.NumTriangles)
	}
	return nil
}

// Adapter converts a mesh into the flat arrays uploaded to the GPU.
type Adapter interface {
	// Mesh returns the element counts.
	Mesh() Mesh
	// SetMeshGeometry writes 2*(NumRegions+NumTriangles) position scalars.
	SetMeshGeometry(positions []float32) error
	// SetQuadElements writes 3*NumSolidSides quad-mesh indices.
	SetQuadElements(elements []uint32) error
}
