package mapgen

import (
	"github.com/Faultbox/heightfield/internal/config"
	"github.com/Faultbox/heightfield/internal/engine/projection"
	"github.com/Faultbox/heightfield/internal/engine/renderer"
)

// ViewFromConfig returns the view described by the render settings.
func ViewFromConfig(rc config.RenderConfig) projection.View {
	return projection.View{
		Zoom:           rc.Zoom,
		X:              rc.X,
		Y:              rc.Y,
		TiltDeg:        rc.TiltDeg,
		RotateDeg:      rc.RotateDeg,
		MountainHeight: rc.MountainHeight,
	}
}

// ParamsFor combines a view with the render settings that are not part of
// the camera.
func ParamsFor(v projection.View, rc config.RenderConfig) renderer.Params {
	return renderer.Params{View: v, OutlineWater: rc.OutlineWater}
}
