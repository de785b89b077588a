package imaging

import (
	"fmt"
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// HSLColor is a color in HSL space with hue in degrees and saturation and
// lightness as percentages.
type HSLColor struct {
	H int `json:"h"` // 0-360
	S int `json:"s"` // 0-100
	L int `json:"l"` // 0-100
}

// PixelSample describes the display value at one coordinate.
type PixelSample struct {
	X int `json:"x"`
	Y int `json:"y"`

	// Value is the gray level for grayscale images and the luma
	// approximation (mean of R, G, B) for color images.
	Value uint8 `json:"value"`

	// RGB is the pixel's 8-bit color components.
	RGB [3]uint8 `json:"rgb"`

	Hex string   `json:"hex"`
	HSL HSLColor `json:"hsl"`
}

// SamplePixel reads the display value at (x, y).
//
// Coordinates are 0-based; valid X is 0..width-1 and valid Y is 0..height-1.
func SamplePixel(img image.Image, x, y int) (*PixelSample, error) {
	bounds := img.Bounds()
	px, py := bounds.Min.X+x, bounds.Min.Y+y
	if x < 0 || y < 0 || px >= bounds.Max.X || py >= bounds.Max.Y {
		return nil, fmt.Errorf("%w: coordinates (%d,%d) outside image bounds %dx%d",
			ErrRange, x, y, bounds.Dx(), bounds.Dy())
	}

	c := img.At(px, py)
	r, g, b, _ := c.RGBA()
	r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)

	// Display images are always opaque, so MakeColor's alpha check cannot fail.
	cf, _ := colorful.MakeColor(c)
	h, s, l := cf.Hsl()
	if math.IsNaN(h) {
		h = 0
	}

	return &PixelSample{
		X:     x,
		Y:     y,
		Value: uint8((uint16(r8) + uint16(g8) + uint16(b8)) / 3),
		RGB:   [3]uint8{r8, g8, b8},
		Hex:   cf.Hex(),
		HSL: HSLColor{
			H: int(math.Round(h)),
			S: int(math.Round(s * 100)),
			L: int(math.Round(l * 100)),
		},
	}, nil
}
