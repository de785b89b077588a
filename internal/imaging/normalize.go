package imaging

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Normalize maps a grid onto the 8-bit display range with min-max rescaling.
//
// Each sample v becomes round(255 * (v - min) / (max - min)), clamped to
// [0, 255]. A constant grid (max == min) normalizes to all zeros.
//
// Single-channel grids produce *image.Gray; three-channel grids produce
// *image.RGBA with opaque alpha. Min and max are taken over all channels
// together so color balance is preserved.
func Normalize(g *Grid) (image.Image, error) {
	if g == nil || g.Rows <= 0 || g.Cols <= 0 {
		return nil, fmt.Errorf("%w: empty pixel grid", ErrRange)
	}
	if len(g.Data) != g.Rows*g.Cols*g.Channels {
		return nil, fmt.Errorf("%w: grid has %d samples, shape %v needs %d",
			ErrRange, len(g.Data), g.Shape(), g.Rows*g.Cols*g.Channels)
	}

	lo := floats.Min(g.Data)
	hi := floats.Max(g.Data)
	span := hi - lo

	scale := func(v float64) uint8 {
		if span == 0 {
			return 0
		}
		return clampUint8(math.Round(255 * (v - lo) / span))
	}

	rect := image.Rect(0, 0, g.Cols, g.Rows)
	switch g.Channels {
	case 1:
		out := image.NewGray(rect)
		for y := 0; y < g.Rows; y++ {
			row := out.Pix[y*out.Stride : y*out.Stride+g.Cols]
			for x := range row {
				row[x] = scale(g.Data[y*g.Cols+x])
			}
		}
		return out, nil
	case 3:
		out := image.NewRGBA(rect)
		for y := 0; y < g.Rows; y++ {
			for x := 0; x < g.Cols; x++ {
				src := (y*g.Cols + x) * 3
				dst := out.PixOffset(x, y)
				out.Pix[dst+0] = scale(g.Data[src+0])
				out.Pix[dst+1] = scale(g.Data[src+1])
				out.Pix[dst+2] = scale(g.Data[src+2])
				out.Pix[dst+3] = 255
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrRange, g.Channels)
	}
}

// clampUint8 constrains a float to [0, 255] and converts it, truncating any
// fractional part. NaN maps to 0.
func clampUint8(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
