// Package camera turns mouse and keyboard deltas into map view parameters.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/heightfield/internal/engine/projection"
	"github.com/Faultbox/heightfield/internal/mesh"
)

// DefaultZoom shows slightly less than the whole map.
const DefaultZoom = 100.0 / 480

// MapCamera pans, zooms, tilts and rotates a top-down map view.
type MapCamera struct {
	// Center of the view in mesh coordinates
	X, Y float32

	Zoom           float32 // Clip units per 100 mesh units
	TiltDeg        float32
	RotateDeg      float32
	MountainHeight float32

	// Constraints
	MinZoom float32
	MaxZoom float32
	MinTilt float32
	MaxTilt float32

	// Sensitivity
	DragSensitivity   float32
	ZoomSensitivity   float32
	RotateSensitivity float32
}

// NewMapCamera creates a camera centred on the map with default settings.
func NewMapCamera() *MapCamera {
	return &MapCamera{
		X:                 mesh.MapSize / 2,
		Y:                 mesh.MapSize / 2,
		Zoom:              DefaultZoom,
		MountainHeight:    50,
		MinZoom:           100.0 / 1000,
		MaxZoom:           100.0 / 50,
		MinTilt:           -60,
		MaxTilt:           60,
		DragSensitivity:   1,
		ZoomSensitivity:   0.1,
		RotateSensitivity: 0.25,
	}
}

// View returns the projection parameters for the current state.
func (c *MapCamera) View() projection.View {
	return projection.View{
		Zoom:           c.Zoom,
		X:              c.X,
		Y:              c.Y,
		TiltDeg:        c.TiltDeg,
		RotateDeg:      c.RotateDeg,
		MountainHeight: c.MountainHeight,
	}
}

// SetView copies projection parameters into the camera, clamped to its
// constraints.
func (c *MapCamera) SetView(v projection.View) {
	c.X, c.Y = v.X, v.Y
	c.Zoom = clamp(v.Zoom, c.MinZoom, c.MaxZoom)
	c.TiltDeg = clamp(v.TiltDeg, c.MinTilt, c.MaxTilt)
	c.RotateDeg = wrapDegrees(v.RotateDeg)
	c.MountainHeight = v.MountainHeight
}

// HandleDrag pans by a drag of (deltaX, deltaY) in normalized screen units.
// The map follows the pointer: dragging right moves the view left, taking
// rotation and zoom into account.
func (c *MapCamera) HandleDrag(deltaX, deltaY float32) {
	scale := c.DragSensitivity * c.VisibleWidth()
	c.pan(-deltaX*scale, -deltaY*scale)
}

// HandleMovement pans by keyboard input. Speed scales with the visible area.
func (c *MapCamera) HandleMovement(right, down float32) {
	speed := 0.01 * c.VisibleWidth()
	c.pan(right*speed, down*speed)
}

// VisibleWidth returns how many mesh units span the screen at tilt 0.
func (c *MapCamera) VisibleWidth() float32 {
	return 2 * 100 / c.Zoom
}

// pan moves the centre by a screen-aligned offset, rotated into mesh space.
func (c *MapCamera) pan(dx, dy float32) {
	s, co := math32.Sincos(-c.RotateDeg * math32.Pi / 180)
	c.X += dx*co - dy*s
	c.Y += dx*s + dy*co
	c.X = clamp(c.X, 0, mesh.MapSize)
	c.Y = clamp(c.Y, 0, mesh.MapSize)
}

// HandleZoom updates zoom based on scroll wheel delta.
func (c *MapCamera) HandleZoom(delta float32) {
	c.Zoom = clamp(c.Zoom*(1+delta*c.ZoomSensitivity), c.MinZoom, c.MaxZoom)
}

// HandleRotate spins the map by a horizontal drag in pixels.
func (c *MapCamera) HandleRotate(deltaPixels float32) {
	c.RotateDeg = wrapDegrees(c.RotateDeg + deltaPixels*c.RotateSensitivity)
}

// HandleTilt changes the tilt in degrees.
func (c *MapCamera) HandleTilt(deltaDeg float32) {
	c.TiltDeg = clamp(c.TiltDeg+deltaDeg, c.MinTilt, c.MaxTilt)
}

// Reset centres the map and removes tilt and rotation.
func (c *MapCamera) Reset() {
	c.X, c.Y = mesh.MapSize/2, mesh.MapSize/2
	c.Zoom = DefaultZoom
	c.TiltDeg = 0
	c.RotateDeg = 0
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}

// wrapDegrees maps an angle into [0, 360).
func wrapDegrees(d float32) float32 {
	d = math32.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}
