// Package river draws river ribbons into the river target. The target's
// alpha is later sampled by the elevation pass to carve channels.
package river

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/heightfield/internal/engine/gpu"
	"github.com/Faultbox/heightfield/internal/engine/resources"
	"github.com/Faultbox/heightfield/internal/engine/shaders"
	"github.com/Faultbox/heightfield/internal/logger"
)

const attrXYUV = 0

// Blend accumulates premultiplied ribbons: overlapping rivers saturate
// rather than overwrite each other.
var Blend = gpu.Blend{
	Enabled:       true,
	Src:           gpu.BlendOne,
	Dst:           gpu.BlendOneMinusSrcAlpha,
	EquationRGB:   gpu.EquationAdd,
	EquationAlpha: gpu.EquationAdd,
}

// Compositor is pass 1 of the pipeline.
type Compositor struct {
	dev      gpu.Device
	log      *zap.Logger
	pipeline gpu.Pipeline
	pattern  gpu.Texture
}

// New compiles the river pipeline and uploads the pattern atlas.
func New(dev gpu.Device) (*Compositor, error) {
	p, err := dev.NewPipeline(gpu.PipelineDesc{
		Label:    "river",
		Vertex:   shaders.RiverVertexShader,
		Fragment: shaders.RiverFragmentShader,
		Attributes: []gpu.Attribute{
			{Name: "a_xyuv", Location: attrXYUV, Components: 4},
		},
		Blend: Blend,
	})
	if err != nil {
		return nil, fmt.Errorf("river pipeline: %w", err)
	}

	tex, err := dev.NewTexture(PatternBitmap(PatternSize, PatternLevels), gpu.FilterMipmap)
	if err != nil {
		dev.DestroyPipeline(p)
		return nil, fmt.Errorf("river pattern: %w", err)
	}

	return &Compositor{
		dev:      dev,
		log:      logger.Named("river"),
		pipeline: p,
		pattern:  tex,
	}, nil
}

// Draw renders the valid river prefix into the river target. It reports
// whether a draw call was issued; with no river triangles it does nothing.
func (c *Compositor) Draw(res *resources.Resources, topdown mgl32.Mat4) (bool, error) {
	n := res.RiverVertices()
	if n == 0 {
		c.log.Debug("skipped, no rivers")
		return false, nil
	}

	err := c.dev.Draw(gpu.Draw{
		Pipeline: c.pipeline,
		Target:   res.RiverTarget,
		Vertices: []gpu.VertexBinding{{Location: attrXYUV, Buffer: res.River}},
		Count:    n,
		Uniforms: map[string]any{
			"u_projection":      topdown,
			"u_rivertexturemap": c.pattern,
		},
	})
	if err != nil {
		return false, fmt.Errorf("draw rivers: %w", err)
	}
	return true, nil
}

// Close releases the pipeline and the pattern texture.
func (c *Compositor) Close() {
	c.dev.DestroyPipeline(c.pipeline)
	c.dev.DestroyTexture(c.pattern)
}
