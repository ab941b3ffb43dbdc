package camera

import (
	"testing"

	"github.com/Faultbox/heightfield/internal/engine/projection"
)

func near(a, b float32) bool {
	d := a - b
	return d < 1e-3 && d > -1e-3
}

func TestNewMapCameraMatchesDefaultView(t *testing.T) {
	c := NewMapCamera()
	v := c.View()
	if v.X != 500 || v.Y != 500 || v.Zoom != DefaultZoom || v.TiltDeg != 0 || v.RotateDeg != 0 {
		t.Errorf("View() = %+v", v)
	}
	if !near(c.VisibleWidth(), 960) {
		t.Errorf("VisibleWidth = %v, want 960", c.VisibleWidth())
	}
}

func TestHandleZoomClamps(t *testing.T) {
	c := NewMapCamera()
	c.Zoom = 0.2
	c.HandleZoom(1)
	if !near(c.Zoom, 0.22) {
		t.Errorf("zoom after +1 = %v, want 0.22", c.Zoom)
	}
	for i := 0; i < 200; i++ {
		c.HandleZoom(5)
	}
	if c.Zoom != c.MaxZoom {
		t.Errorf("zoom = %v, want clamped to %v", c.Zoom, c.MaxZoom)
	}
	for i := 0; i < 200; i++ {
		c.HandleZoom(-5)
	}
	if c.Zoom != c.MinZoom {
		t.Errorf("zoom = %v, want clamped to %v", c.Zoom, c.MinZoom)
	}
}

func TestHandleDragFollowsPointer(t *testing.T) {
	c := NewMapCamera()
	c.Zoom = 0.2
	// Dragging a quarter screen right moves the centre left by a quarter of
	// the visible width (1000 units at zoom 0.2).
	c.HandleDrag(0.25, 0)
	if !near(c.X, 250) || !near(c.Y, 500) {
		t.Errorf("after drag centre = (%v, %v), want (250, 500)", c.X, c.Y)
	}

	c = NewMapCamera()
	c.Zoom = 0.4
	c.HandleDrag(0, 0.25)
	if !near(c.X, 500) || !near(c.Y, 375) {
		t.Errorf("zoomed drag centre = (%v, %v), want (500, 375)", c.X, c.Y)
	}
}

func TestPanRespectsRotation(t *testing.T) {
	c := NewMapCamera()
	c.Zoom = 0.2
	c.RotateDeg = 90
	c.HandleMovement(1, 0)

	// Rotated a quarter turn, screen-right is a mesh-axis move along -Y.
	if !near(c.X, 500) || !near(c.Y, 490) {
		t.Errorf("centre = (%v, %v), want (500, 490)", c.X, c.Y)
	}
}

func TestPanStaysOnMap(t *testing.T) {
	c := NewMapCamera()
	for i := 0; i < 100; i++ {
		c.HandleMovement(-10, 10)
	}
	if c.X != 0 || c.Y != 1000 {
		t.Errorf("centre = (%v, %v), want clamped to (0, 1000)", c.X, c.Y)
	}
}

func TestRotateWraps(t *testing.T) {
	c := NewMapCamera()
	c.HandleRotate(-40) // -10 degrees
	if !near(c.RotateDeg, 350) {
		t.Errorf("rotate = %v, want 350", c.RotateDeg)
	}
	c.HandleRotate(80)
	if !near(c.RotateDeg, 10) {
		t.Errorf("rotate = %v, want 10", c.RotateDeg)
	}
}

func TestTiltClamps(t *testing.T) {
	c := NewMapCamera()
	c.HandleTilt(100)
	if c.TiltDeg != c.MaxTilt {
		t.Errorf("tilt = %v, want %v", c.TiltDeg, c.MaxTilt)
	}
}

func TestSetViewAndReset(t *testing.T) {
	c := NewMapCamera()
	c.SetView(projection.View{Zoom: 50, X: 10, Y: 20, TiltDeg: -90, RotateDeg: 370, MountainHeight: 3})
	if c.Zoom != c.MaxZoom || c.TiltDeg != c.MinTilt || !near(c.RotateDeg, 10) || c.MountainHeight != 3 {
		t.Errorf("SetView clamped to %+v", c.View())
	}

	c.Reset()
	v := c.View()
	if v.X != 500 || v.Y != 500 || v.Zoom != DefaultZoom || v.TiltDeg != 0 || v.RotateDeg != 0 {
		t.Errorf("after Reset = %+v", v)
	}
	if v.MountainHeight != 3 {
		t.Error("Reset should keep mountain height")
	}
}
