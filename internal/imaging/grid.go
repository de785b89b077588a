package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// GridOptions configures GridOverlay.
type GridOptions struct {
	// Spacing is the distance in pixels between grid lines.
	Spacing int

	// Labels draws the "x,y" coordinate of every grid intersection.
	Labels bool

	// Color is the line color; its alpha blends the lines over the image.
	Color color.NRGBA
}

// DefaultGridColor is semi-transparent red.
var DefaultGridColor = color.NRGBA{R: 255, A: 128}

// ParseGridColor parses "#rrggbb" or "#rrggbbaa". The leading '#' is
// optional.
func ParseGridColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(s, "#")
	alpha := uint8(255)
	switch len(s) {
	case 6:
	case 8:
		a, err := strconv.ParseUint(s[6:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("%w: invalid alpha in grid color %q", ErrRange, s)
		}
		alpha = uint8(a)
		s = s[:6]
	default:
		return color.NRGBA{}, fmt.Errorf("%w: grid color %q must be #rrggbb or #rrggbbaa", ErrRange, s)
	}

	c, err := colorful.Hex("#" + s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: invalid grid color %q", ErrRange, s)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// GridOverlay returns a copy of img with a coordinate grid drawn over it.
// Lines sit at every multiple of Spacing, excluding 0. The input is not
// modified.
func GridOverlay(img image.Image, opts GridOptions) (*image.NRGBA, error) {
	if opts.Spacing <= 0 {
		return nil, fmt.Errorf("%w: grid spacing must be positive, got %d", ErrRange, opts.Spacing)
	}

	out := imaging.Clone(img)
	b := out.Bounds()
	line := image.NewUniform(opts.Color)

	for x := opts.Spacing; x < b.Dx(); x += opts.Spacing {
		draw.Draw(out, image.Rect(x, 0, x+1, b.Dy()), line, image.Point{}, draw.Over)
	}
	for y := opts.Spacing; y < b.Dy(); y += opts.Spacing {
		draw.Draw(out, image.Rect(0, y, b.Dx(), y+1), line, image.Point{}, draw.Over)
	}

	if opts.Labels {
		for y := opts.Spacing; y < b.Dy(); y += opts.Spacing {
			for x := opts.Spacing; x < b.Dx(); x += opts.Spacing {
				drawLabel(out, x+2, y+2, fmt.Sprintf("%d,%d", x, y))
			}
		}
	}
	return out, nil
}

// glyphs is a 3x5 bitmap font; each row is three bits, most significant
// bit leftmost.
var glyphs = map[rune][5]uint8{
	'0': {7, 5, 5, 5, 7},
	'1': {2, 6, 2, 2, 7},
	'2': {7, 1, 7, 4, 7},
	'3': {7, 1, 7, 1, 7},
	'4': {5, 5, 7, 1, 1},
	'5': {7, 4, 7, 1, 7},
	'6': {7, 4, 7, 5, 7},
	'7': {7, 1, 1, 1, 1},
	'8': {7, 5, 7, 5, 7},
	'9': {7, 5, 7, 1, 7},
	',': {0, 0, 0, 2, 2},
}

var (
	labelBackground = image.NewUniform(color.NRGBA{A: 180})
	labelForeground = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// drawLabel writes text with its top-left corner at (x, y) on a dark box.
// Pixels outside the image are skipped.
func drawLabel(img *image.NRGBA, x, y int, text string) {
	const advance = 4
	box := image.Rect(x-1, y-1, x+len(text)*advance, y+6)
	draw.Draw(img, box.Intersect(img.Bounds()), labelBackground, image.Point{}, draw.Over)

	for i, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			continue
		}
		cx := x + i*advance
		for row, bits := range glyph {
			for col := 0; col < 3; col++ {
				if bits&(4>>col) == 0 {
					continue
				}
				p := image.Pt(cx+col, y+row)
				if p.In(img.Bounds()) {
					img.SetNRGBA(p.X, p.Y, labelForeground)
				}
			}
		}
	}
}
