// Package session holds the viewer's single current image and applies
// transforms to it.
//
// A Session is either empty or loaded. Upload moves it to loaded; every other
// operation requires a loaded session and fails with ErrNotLoaded otherwise.
// Each transform replaces the current image with its result and writes that
// result to a fixed-name artifact. A transform whose computation or artifact
// write fails leaves the current image as it was.
//
// All methods are safe for concurrent use. One mutex is held for the whole
// of every operation, so transforms never interleave.
package session

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"

	humanize "github.com/dustin/go-humanize"
	"github.com/twinj/uuid"

	"github.com/ironsheep/dicom-viewer/internal/config"
	"github.com/ironsheep/dicom-viewer/internal/imaging"
)

// ErrNotLoaded is returned by operations that need an image before any
// upload has succeeded.
var ErrNotLoaded = errors.New("no image loaded")

// Session owns the current display image, its descriptive fields and its
// pixel spacing.
type Session struct {
	mu sync.Mutex

	ops       imaging.ImageOps
	store     *ArtifactStore
	uploadDir string

	current image.Image
	fields  imaging.Fields
	spacing []float64
}

// New returns an empty session. Raw uploads are kept under uploadDir, which
// is created if needed.
func New(ops imaging.ImageOps, store *ArtifactStore, uploadDir string) (*Session, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Session{ops: ops, store: store, uploadDir: uploadDir}, nil
}

// Loaded reports whether an image is currently held.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Upload stores the file read from r, decodes it and makes its normalized
// image current. name is the client's file name; only its base is kept, behind
// a random prefix so repeated uploads never collide.
//
// On any failure the previous state is kept and the stored file is removed.
func (s *Session) Upload(name string, r io.Reader) (imaging.Fields, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.uploadDir, uuid.NewV4().String()+"-"+uploadBase(name))
	n, err := saveUpload(path, r)
	if err != nil {
		return imaging.Fields{}, err
	}
	config.Infof("Stored upload %q as %s (%s)\n", name, filepath.Base(path), humanize.Bytes(uint64(n)))

	study, err := imaging.DecodeFile(path)
	if err != nil {
		discardUpload(name, path, err)
		return imaging.Fields{}, err
	}
	img, err := s.ops.Normalize(study.Grid)
	if err != nil {
		discardUpload(name, path, err)
		return imaging.Fields{}, err
	}
	if _, err := s.store.Write(Original, img); err != nil {
		discardUpload(name, path, err)
		return imaging.Fields{}, err
	}

	s.current = img
	s.fields = study.Fields
	s.spacing = study.PixelSpacing
	config.Debugf("Loaded %s study with dimensions %v, pixel spacing %v\n",
		study.Fields.Modality, study.Fields.Dimensions, study.PixelSpacing)
	return s.fields.Clone(), nil
}

// Metadata returns a copy of the fields of the loaded study.
func (s *Session) Metadata() (imaging.Fields, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return imaging.Fields{}, ErrNotLoaded
	}
	return s.fields.Clone(), nil
}

// Image returns the current image as PNG, also saving it as the current
// artifact.
func (s *Session) Image() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNotLoaded
	}
	return s.store.Write(Current, s.current)
}

// Adjust applies brightness and then contrast.
func (s *Session) Adjust(brightness, contrast float64) error {
	return s.apply(Adjusted, func(img image.Image) (image.Image, error) {
		out, err := s.ops.EnhanceBrightness(img, brightness)
		if err != nil {
			return nil, err
		}
		return s.ops.EnhanceContrast(out, contrast)
	})
}

// Crop keeps the rectangle [x, x+width) x [y, y+height).
func (s *Session) Crop(x, y, width, height int) error {
	return s.apply(Cropped, func(img image.Image) (image.Image, error) {
		return s.ops.Crop(img, x, y, width, height)
	})
}

// Zoom resizes the current image by factor. Pixel spacing, when known, is
// rescaled so measurements stay physical.
func (s *Session) Zoom(factor float64) error {
	return s.apply(Zoomed, func(img image.Image) (image.Image, error) {
		return s.ops.Resize(img, factor)
	})
}

// Pan shifts the image content by (dx, dy) pixels.
func (s *Session) Pan(dx, dy float64) error {
	return s.apply(Panned, func(img image.Image) (image.Image, error) {
		return s.ops.Translate(img, dx, dy)
	})
}

// WindowLevel clips the current image to the window centered on level.
func (s *Session) WindowLevel(window, level float64) error {
	return s.apply(WindowLeveled, func(img image.Image) (image.Image, error) {
		return s.ops.Clip(img, window, level)
	})
}

// Sample reads the current image at (x, y).
func (s *Session) Sample(x, y int) (*imaging.PixelSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNotLoaded
	}
	return imaging.SamplePixel(s.current, x, y)
}

// Measure measures the segment between two points of the current image.
func (s *Session) Measure(x1, y1, x2, y2 int) (*imaging.DistanceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNotLoaded
	}
	return imaging.MeasureDistance(s.current, s.spacing, x1, y1, x2, y2), nil
}

// GridImage renders the current image with a coordinate grid as PNG. The
// overlay is not kept: the current image and artifacts are unchanged.
func (s *Session) GridImage(opts imaging.GridOptions) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNotLoaded
	}
	out, err := imaging.GridOverlay(s.current, opts)
	if err != nil {
		return nil, err
	}
	return s.store.Encode(out)
}

// apply runs fn on the current image, saves the result as name and only then
// makes it current.
func (s *Session) apply(name Artifact, fn func(image.Image) (image.Image, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNotLoaded
	}

	out, err := fn(s.current)
	if err != nil {
		return err
	}
	if _, err := s.store.Write(name, out); err != nil {
		return err
	}

	s.spacing = rescaleSpacing(s.spacing, s.current.Bounds(), out.Bounds(), name)
	s.current = out
	config.Debugf("Applied %s, image is now %dx%d\n", name, out.Bounds().Dx(), out.Bounds().Dy())
	return nil
}

// rescaleSpacing adjusts [row, col] spacing after a zoom. Other operations
// keep the pixel pitch unchanged.
func rescaleSpacing(spacing []float64, before, after image.Rectangle, name Artifact) []float64 {
	if name != Zoomed || len(spacing) != 2 {
		return spacing
	}
	return []float64{
		spacing[0] * float64(before.Dy()) / float64(after.Dy()),
		spacing[1] * float64(before.Dx()) / float64(after.Dx()),
	}
}

// discardUpload removes the stored file of a rejected upload.
func discardUpload(name, path string, cause error) {
	config.Warningf("Rejected upload %q: %v\n", name, cause)
	if err := os.Remove(path); err != nil {
		config.Warningf("Could not remove rejected upload %s: %v\n", path, err)
	}
}

func uploadBase(name string) string {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." {
		return "upload.dcm"
	}
	return base
}

func saveUpload(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create upload file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to store upload: %w", err)
	}
	return n, nil
}
