package imaging

import (
	"fmt"
	"image"
	"math"
)

// WindowLevel clips every channel of a display image to the band
// [level - window/2, level + window/2].
//
// Clipping restricts the existing 0-255 values; it does not rescale them.
// A clipped bound with a fractional part truncates toward zero, so the
// default window=255, level=127 band [-0.5, 254.5] maps 255 to 254. Bounds
// outside [0, 255] are clamped. Alpha is left untouched.
func WindowLevel(img image.Image, window, level float64) (image.Image, error) {
	if math.IsNaN(window) || math.IsInf(window, 0) || math.IsNaN(level) || math.IsInf(level, 0) {
		return nil, fmt.Errorf("%w: window and level must be finite", ErrRange)
	}
	if window < 0 {
		return nil, fmt.Errorf("%w: window must be >= 0, got %g", ErrRange, window)
	}

	low := level - window/2
	high := level + window/2

	var lookup [256]uint8
	for i := range lookup {
		v := float64(i)
		if v < low {
			v = low
		}
		if v > high {
			v = high
		}
		lookup[i] = clampUint8(math.Trunc(v))
	}

	switch src := img.(type) {
	case *image.Gray:
		out := image.NewGray(src.Rect)
		for i, v := range src.Pix {
			out.Pix[i] = lookup[v]
		}
		return out, nil
	default:
		rgba := toRGBA(img)
		for i := 0; i < len(rgba.Pix); i += 4 {
			rgba.Pix[i+0] = lookup[rgba.Pix[i+0]]
			rgba.Pix[i+1] = lookup[rgba.Pix[i+1]]
			rgba.Pix[i+2] = lookup[rgba.Pix[i+2]]
		}
		return rgba, nil
	}
}
