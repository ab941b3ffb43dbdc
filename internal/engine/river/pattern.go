package river

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
)

// Pattern atlas defaults.
const (
	PatternSize   = 256
	PatternLevels = 16
)

// edgeSoftness is the width, in u, of the antialiased ribbon border.
const edgeSoftness = 0.08

// PatternBitmap draws the river ribbon atlas. The image is split into
// horizontal bands, one per width level. Inside a band the ribbon is centred
// across u and tapers from the width of its level to that of the next one
// along v, so consecutive segments of a widening river join without a step.
// Colour is premultiplied white; only alpha carries the shape.
func PatternBitmap(size, levels int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	if size <= 0 || levels <= 0 {
		return img
	}

	for y := 0; y < size; y++ {
		v := (float32(y) + 0.5) / float32(size)
		band := math32.Floor(v * float32(levels))
		t := v*float32(levels) - band

		w0 := levelWidth(int(band), levels)
		w1 := levelWidth(int(band)+1, levels)
		half := (w0 + (w1-w0)*t) / 2

		for x := 0; x < size; x++ {
			u := (float32(x) + 0.5) / float32(size)
			d := math32.Abs(u - 0.5)
			a := 1 - smoothstep(half-edgeSoftness/2, half+edgeSoftness/2, d)
			c := uint8(math32.Round(255 * a))
			img.SetRGBA(x, y, color.RGBA{c, c, c, c})
		}
	}
	return img
}

// levelWidth returns the ribbon width of a level as a fraction of u.
func levelWidth(level, levels int) float32 {
	if level >= levels {
		level = levels - 1
	}
	return 0.1 + 0.8*float32(level)/float32(max(1, levels-1))
}

// LevelV returns the v coordinate that samples the middle of a level's band.
func LevelV(level, levels int) float32 {
	level = max(0, min(levels-1, level))
	return (float32(level) + 0.5) / float32(levels)
}

func smoothstep(e0, e1, x float32) float32 {
	t := math32.Max(0, math32.Min(1, (x-e0)/(e1-e0)))
	return t * t * (3 - 2*t)
}
