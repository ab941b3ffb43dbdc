package elevation

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
)

// Precision selects how elevation is written to the final target.
type Precision int

const (
	// PrecisionRounded writes e to R, G and B, rounded to 8 bits.
	PrecisionRounded Precision = iota
	// PrecisionSplit16 writes the low byte of 256e to R and the high byte
	// to G, for consumers that reassemble 16 bits.
	PrecisionSplit16
)

func (p Precision) String() string {
	switch p {
	case PrecisionRounded:
		return "rounded"
	case PrecisionSplit16:
		return "split16"
	}
	return fmt.Sprintf("Precision(%d)", int(p))
}

// ParsePrecision parses a precision mode name.
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rounded":
		return PrecisionRounded, nil
	case "split16":
		return PrecisionSplit16, nil
	}
	return PrecisionRounded, fmt.Errorf("unknown precision mode %q", s)
}

// Level computes the encoded elevation for one fragment. It mirrors the land
// fragment shader: ve is the mesh elevation in [-1, 1], river is the river
// target alpha at the fragment. Below sea level the river has no effect.
func Level(ve, river, outlineWater float32) float32 {
	e := 0.5 * (1 + ve)
	if e >= 0.5 {
		bump := outlineWater / 256
		l1 := e + bump
		l2 := (e-0.5)*(bump*100) + 0.5
		e = math32.Min(l1, l1+(l2-l1)*river)
	}
	return e
}

// Encode returns the RGBA8 texel the land pass writes for one fragment.
func Encode(ve, river, outlineWater float32, p Precision) [4]uint8 {
	e := Level(ve, river, outlineWater)
	if p == PrecisionSplit16 {
		hi := math32.Floor(256 * e)
		return [4]uint8{unorm8(256*e - hi), unorm8(hi / 256), 0, 255}
	}
	c := unorm8(e)
	return [4]uint8{c, c, c, 255}
}

// Decode recovers e from a texel written with the given precision.
func Decode(px [4]uint8, p Precision) float32 {
	if p == PrecisionSplit16 {
		return (float32(px[1])*256/255 + float32(px[0])/255) / 256
	}
	return float32(px[0]) / 255
}

// unorm8 converts like a fixed-point framebuffer: clamp then round.
func unorm8(x float32) uint8 {
	x = math32.Max(0, math32.Min(1, x))
	return uint8(math32.Round(x * 255))
}
