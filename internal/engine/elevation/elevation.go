// Package elevation draws the quad mesh into the final target, encoding
// elevation as grey levels and carving river channels near sea level.
package elevation

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/heightfield/internal/engine/gpu"
	"github.com/Faultbox/heightfield/internal/engine/resources"
	"github.com/Faultbox/heightfield/internal/engine/shaders"
	"github.com/Faultbox/heightfield/internal/logger"
)

const (
	attrXY = 0
	attrEM = 1
)

// Compositor is pass 2 of the pipeline.
type Compositor struct {
	dev       gpu.Device
	log       *zap.Logger
	pipeline  gpu.Pipeline
	precision Precision
}

// New compiles the land pipeline.
func New(dev gpu.Device, precision Precision) (*Compositor, error) {
	p, err := dev.NewPipeline(gpu.PipelineDesc{
		Label:    "land",
		Vertex:   shaders.LandVertexShader,
		Fragment: shaders.LandFragmentShader,
		Attributes: []gpu.Attribute{
			{Name: "a_xy", Location: attrXY, Components: 2},
			{Name: "a_em", Location: attrEM, Components: 2},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("land pipeline: %w", err)
	}
	return &Compositor{
		dev:       dev,
		log:       logger.Named("elevation"),
		pipeline:  p,
		precision: precision,
	}, nil
}

// Precision returns the active encoding.
func (c *Compositor) Precision() Precision {
	return c.precision
}

// Draw renders the quad mesh into the final target, sampling the river
// target. Nothing is drawn before the first map upload.
func (c *Compositor) Draw(res *resources.Resources, topdown mgl32.Mat4, outlineWater float32) error {
	n := res.ElementCount()
	if n == 0 {
		c.log.Debug("skipped, no map uploaded")
		return nil
	}

	elements := res.Elements
	err := c.dev.Draw(gpu.Draw{
		Pipeline: c.pipeline,
		Target:   res.FinalTarget,
		Vertices: []gpu.VertexBinding{
			{Location: attrXY, Buffer: res.Positions},
			{Location: attrEM, Buffer: res.Attributes},
		},
		Elements: &elements,
		Count:    n,
		Uniforms: map[string]any{
			"u_projection":    topdown,
			"u_water":         res.RiverTarget.Color,
			"u_outline_water": outlineWater,
			"u_precision":     int32(c.precision),
		},
	})
	if err != nil {
		return fmt.Errorf("draw land: %w", err)
	}
	return nil
}

// Close releases the pipeline.
func (c *Compositor) Close() {
	c.dev.DestroyPipeline(c.pipeline)
}
