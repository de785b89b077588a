package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
)

// ImageOps is the set of operations the viewer applies to display images.
//
// Every method returns a new image of the same display type as its input
// (*image.Gray in, *image.Gray out) and leaves the input untouched.
type ImageOps interface {
	Normalize(g *Grid) (image.Image, error)
	EnhanceBrightness(img image.Image, factor float64) (image.Image, error)
	EnhanceContrast(img image.Image, factor float64) (image.Image, error)
	Crop(img image.Image, x, y, width, height int) (image.Image, error)
	Resize(img image.Image, factor float64) (image.Image, error)
	Translate(img image.Image, dx, dy float64) (image.Image, error)
	Clip(img image.Image, window, level float64) (image.Image, error)
}

// Ops implements ImageOps on top of bild and disintegration/imaging.
type Ops struct{}

var _ ImageOps = Ops{}

// Normalize delegates to the package-level Normalize.
func (Ops) Normalize(g *Grid) (image.Image, error) {
	return Normalize(g)
}

// EnhanceBrightness scales every channel by factor. A factor of 1 returns an
// identical copy; 0 produces black.
func (Ops) EnhanceBrightness(img image.Image, factor float64) (image.Image, error) {
	if err := checkFactor("brightness", factor); err != nil {
		return nil, err
	}
	if factor == 1 {
		return conform(img, img), nil
	}
	return conform(adjust.Brightness(img, factor-1), img), nil
}

// EnhanceContrast stretches every channel away from mid-gray by factor:
// v' = ((v/255 - 0.5) * factor + 0.5) * 255. A factor of 1 returns an
// identical copy; 0 produces uniform mid-gray.
func (Ops) EnhanceContrast(img image.Image, factor float64) (image.Image, error) {
	if err := checkFactor("contrast", factor); err != nil {
		return nil, err
	}
	if factor == 1 {
		return conform(img, img), nil
	}
	return conform(adjust.Contrast(img, factor-1), img), nil
}

// Crop extracts [x, x+width) x [y, y+height). The rectangle must be non-empty
// and lie entirely inside the image.
func (Ops) Crop(img image.Image, x, y, width, height int) (image.Image, error) {
	bounds := img.Bounds()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: crop size must be positive, got %dx%d", ErrRange, width, height)
	}
	rect := image.Rect(x, y, x+width, y+height).Add(bounds.Min)
	if x < 0 || y < 0 || !rect.In(bounds) {
		return nil, fmt.Errorf("%w: crop region (%d,%d)-(%d,%d) outside image bounds %dx%d",
			ErrRange, x, y, x+width, y+height, bounds.Dx(), bounds.Dy())
	}
	return conform(imaging.Crop(img, rect), img), nil
}

// MaxImagePixels bounds the size of any image a transform may produce.
const MaxImagePixels = 1 << 26

// Resize scales the image by factor with nearest-neighbor sampling. The
// target size is (round(W*factor), round(H*factor)); it must be at least 1x1
// and at most MaxImagePixels.
func (Ops) Resize(img image.Image, factor float64) (image.Image, error) {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 {
		return nil, fmt.Errorf("%w: zoom factor must be > 0, got %g", ErrRange, factor)
	}
	bounds := img.Bounds()
	fw := math.Round(float64(bounds.Dx()) * factor)
	fh := math.Round(float64(bounds.Dy()) * factor)
	if fw*fh > MaxImagePixels {
		return nil, fmt.Errorf("%w: zoom factor %g grows %dx%d image past %d pixels",
			ErrRange, factor, bounds.Dx(), bounds.Dy(), MaxImagePixels)
	}
	w, h := int(fw), int(fh)
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("%w: zoom factor %g shrinks %dx%d image to nothing",
			ErrRange, factor, bounds.Dx(), bounds.Dy())
	}
	return conform(imaging.Resize(img, w, h, imaging.NearestNeighbor), img), nil
}

// Translate pans the view by (dx, dy) pixels, rounded to the nearest
// integer: output pixel (x, y) takes input pixel (x+dx, y+dy), so positive
// dx moves content left and positive dy moves it up. The image keeps its
// size; uncovered pixels are black.
func (Ops) Translate(img image.Image, dx, dy float64) (image.Image, error) {
	if math.IsNaN(dx) || math.IsInf(dx, 0) || math.IsNaN(dy) || math.IsInf(dy, 0) {
		return nil, fmt.Errorf("%w: pan offsets must be finite", ErrRange)
	}
	ix := int(math.Round(dx))
	iy := int(math.Round(dy))
	if ix == 0 && iy == 0 {
		return conform(img, img), nil
	}
	// bild moves content right by its dx and up by its dy.
	return conform(transform.Translate(img, -ix, iy), img), nil
}

// Clip applies WindowLevel.
func (Ops) Clip(img image.Image, window, level float64) (image.Image, error) {
	return WindowLevel(img, window, level)
}

func checkFactor(name string, factor float64) error {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor < 0 {
		return fmt.Errorf("%w: %s factor must be >= 0, got %g", ErrRange, name, factor)
	}
	return nil
}

// conform copies out into a fresh display image with origin (0,0) whose type
// matches like: *image.Gray stays gray, anything else becomes opaque RGBA.
// Transparent pixels (e.g. the area exposed by a translation) become black.
func conform(out, like image.Image) image.Image {
	if _, ok := like.(*image.Gray); ok {
		return toGray(out)
	}
	return toRGBA(out)
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return out
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.SetGray(x, y, color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray))
		}
	}
	return out
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := out.PixOffset(x, y)
			out.Pix[i+0] = uint8(r >> 8)
			out.Pix[i+1] = uint8(g >> 8)
			out.Pix[i+2] = uint8(bl >> 8)
			out.Pix[i+3] = 255
		}
	}
	return out
}
