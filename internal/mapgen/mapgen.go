// Package mapgen fills renderer map arrays with a demo island and derives
// render parameters from settings.
package mapgen

import (
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/heightfield/internal/config"
	"github.com/Faultbox/heightfield/internal/engine/resources"
	"github.com/Faultbox/heightfield/internal/engine/river"
	"github.com/Faultbox/heightfield/internal/mesh"
)

// Generate fills the renderer's map arrays with a demo island and its
// rivers. It returns the number of river ribbons written. The caller uploads
// the arrays with UpdateMap.
func Generate(g *mesh.Grid, positions []float32, data *resources.MapData, cfg *config.Config) (int, error) {
	mesh.FillIsland(positions, data.QuadEM, uint64(cfg.Elevation.Seed))
	if err := g.SetQuadElements(data.QuadElements); err != nil {
		return 0, fmt.Errorf("quad elements: %w", err)
	}

	minLength := int(math.Ceil(math.Exp2(float64(cfg.Rivers.LgMinFlow))))
	baseWidth := cfg.Mesh.Spacing * float32(math.Exp2(float64(cfg.Rivers.LgRiverWidth)+3))
	attempts := int(cfg.Rivers.Flow * 1000)

	ribbons := mesh.NewRibbons(data.RiverXYUV)
	written := 0
	for _, path := range g.TraceRivers(positions, data.QuadEM, attempts, uint64(cfg.Mesh.Seed)) {
		if len(path) < minLength {
			continue
		}
		level := min(river.PatternLevels-1, len(path)/8)
		width := baseWidth * (1 + float32(level)/river.PatternLevels)
		err := ribbons.Add(path, width, river.LevelV(level, river.PatternLevels))
		if errors.Is(err, mesh.ErrRibbonsFull) {
			break
		}
		if err != nil {
			return written, err
		}
		written++
	}

	if err := data.SetRiverTriangles(ribbons.Triangles()); err != nil {
		return written, err
	}
	return written, nil
}
