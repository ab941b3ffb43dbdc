// Package projection builds the hybrid orthographic and top-down oblique
// view transform, its inverse, and the fixed top-down transform used by the
// compositing passes.
package projection

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/heightfield/internal/mesh"
)

// obliqueElement is the index in column-major storage (column 2, row 1)
// that makes input z (elevation) also feed output y. An orthographic
// rotation only moves part of y into z; this copies z into y as a top-down
// oblique projection does. No rotate/scale/ortho helper produces it.
const obliqueElement = 9

// View holds the user-controlled view parameters. Zoom scales mesh units
// to clip units: at zoom z the screen spans 200/z mesh units.
type View struct {
	Zoom           float32
	X, Y           float32
	TiltDeg        float32
	RotateDeg      float32
	MountainHeight float32
}

// DefaultView looks straight down at the center of the map, showing about
// 960 mesh units across.
func DefaultView() View {
	return View{
		Zoom:           100.0 / 480,
		X:              mesh.MapSize / 2,
		Y:              mesh.MapSize / 2,
		MountainHeight: 1,
	}
}

// Topdown maps mesh space [0, MapSize]^2 onto clip space [-1, 1]^2.
func Topdown() mgl32.Mat4 {
	s := float32(2) / mesh.MapSize
	return mgl32.Translate3D(-1, -1, 0).Mul4(mgl32.Scale3D(s, s, 1))
}

// Hybrid builds the view transform. The order of operations is fixed:
// rotate about X by 180°+tilt (the extra half turn flips the map right side
// up after the y inversion of screen space), rotate about Z, apply the
// oblique element, scale, then translate.
func Hybrid(v View) mgl32.Mat4 {
	m := mgl32.Ident4()
	m = m.Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(180 + v.TiltDeg)))
	m = m.Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(v.RotateDeg)))

	m[obliqueElement] = 1

	s := v.Zoom / 100
	m = m.Mul4(mgl32.Scale3D(s, s, v.MountainHeight*s))
	m = m.Mul4(mgl32.Translate3D(-v.X, -v.Y, 0))
	return m
}

// Engine owns the per-frame matrices. Update is called by the frame loop;
// the query methods may be called from any goroutine and see the matrices
// of the most recently completed update.
type Engine struct {
	topdown mgl32.Mat4

	mu         sync.RWMutex
	projection mgl32.Mat4
	inverse    mgl32.Mat4
}

// NewEngine returns an engine with identity view matrices.
func NewEngine() *Engine {
	return &Engine{
		topdown:    Topdown(),
		projection: mgl32.Ident4(),
		inverse:    mgl32.Ident4(),
	}
}

// Topdown returns the fixed mesh-to-clip transform.
func (e *Engine) Topdown() mgl32.Mat4 {
	return e.topdown
}

// Update recomputes the projection and its inverse. A singular projection
// (zoom 0) is rejected and the previous matrices are kept.
func (e *Engine) Update(v View) bool {
	p := Hybrid(v)
	if p.Det() == 0 {
		return false
	}
	inv := p.Inv()

	e.mu.Lock()
	e.projection = p
	e.inverse = inv
	e.mu.Unlock()
	return true
}

// Projection returns the current view transform.
func (e *Engine) Projection() mgl32.Mat4 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.projection
}

// Inverse returns the inverse of the current view transform.
func (e *Engine) Inverse() mgl32.Mat4 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.inverse
}

// ScreenToWorld maps normalized screen coordinates (origin top-left, y down)
// to mesh coordinates. The clip-space z is taken as 0, which is exact only
// when tilt is 0.
// TODO: intersect the unprojected ray with the elevation surface once tilt
// picking needs to be exact.
func (e *Engine) ScreenToWorld(sx, sy float32) (x, y float32) {
	clip := mgl32.Vec4{2*sx - 1, 1 - 2*sy, 0, 1}
	w := e.Inverse().Mul4x1(clip)
	return w[0], w[1]
}

// WorldToScreen maps a point on the z=0 plane to normalized screen
// coordinates.
func (e *Engine) WorldToScreen(x, y float32) (sx, sy float32) {
	clip := e.Projection().Mul4x1(mgl32.Vec4{x, y, 0, 1})
	return (clip[0] + 1) / 2, (1 - clip[1]) / 2
}
