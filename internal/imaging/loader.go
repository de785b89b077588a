package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder for encapsulated baseline frames
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

var (
	// ErrDecode is returned when a container cannot be read as a DICOM image.
	ErrDecode = errors.New("dicom decode failed")

	// ErrRange is returned when an operation parameter or region is invalid.
	ErrRange = errors.New("value out of range")
)

// Fields holds the descriptive values reported for a loaded study.
//
// The JSON keys match the metadata payload served over HTTP.
type Fields struct {
	PatientName string `json:"PatientName"`
	StudyDate   string `json:"StudyDate"`
	Modality    string `json:"Modality"`

	// Dimensions is the grid shape, row-major: [rows, cols] or
	// [rows, cols, channels].
	Dimensions []int `json:"Dimensions"`
}

// Clone returns a deep copy so callers cannot alias the Dimensions slice.
func (f Fields) Clone() Fields {
	f.Dimensions = append([]int(nil), f.Dimensions...)
	return f
}

// Grid is a raw pixel array in the source's native value domain.
//
// Data is row-major with channels interleaved, so the sample for channel c of
// pixel (x, y) lives at Data[(y*Cols+x)*Channels+c].
type Grid struct {
	Rows     int
	Cols     int
	Channels int
	Data     []float64
}

// Shape returns the grid dimensions in the same form as Fields.Dimensions.
func (g *Grid) Shape() []int {
	if g.Channels > 1 {
		return []int{g.Rows, g.Cols, g.Channels}
	}
	return []int{g.Rows, g.Cols}
}

// Study is everything extracted from one DICOM file.
type Study struct {
	Fields Fields
	Grid   *Grid

	// PixelSpacing is the physical distance between pixel centers in mm as
	// [row spacing, column spacing]. Nil when the file does not carry it.
	PixelSpacing []float64
}

// DecodeFile reads and decodes the DICOM file at path.
func DecodeFile(path string) (*Study, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dicom file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat dicom file: %w", err)
	}
	return Decode(f, stat.Size())
}

// Decode parses size bytes of DICOM Part 10 data from r.
//
// Only the first frame of multi-frame objects is returned. Text fields that
// are absent decode as empty strings; missing Rows, Columns or PixelData is a
// decode error. The parser can panic on some truncated inputs, so panics are
// converted to ErrDecode.
func Decode(r io.Reader, size int64) (study *Study, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			study = nil
			err = fmt.Errorf("%w: parser panic: %v", ErrDecode, rec)
		}
	}()

	ds, err := dicom.Parse(r, size, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	rows, err := intElement(&ds, tag.Rows)
	if err != nil {
		return nil, err
	}
	cols, err := intElement(&ds, tag.Columns)
	if err != nil {
		return nil, err
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: invalid image size %dx%d", ErrDecode, cols, rows)
	}

	channels := 1
	if spp, err := intElement(&ds, tag.SamplesPerPixel); err == nil && spp > 0 {
		channels = spp
	}
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("%w: unsupported samples per pixel: %d", ErrDecode, channels)
	}

	grid, err := readGrid(&ds, rows, cols, channels)
	if err != nil {
		return nil, err
	}

	study = &Study{
		Fields: Fields{
			PatientName: stringElement(&ds, tag.PatientName),
			StudyDate:   stringElement(&ds, tag.StudyDate),
			Modality:    stringElement(&ds, tag.Modality),
			Dimensions:  grid.Shape(),
		},
		Grid:         grid,
		PixelSpacing: spacingElement(&ds),
	}
	return study, nil
}

// readGrid extracts the first frame of PixelData into a Grid.
func readGrid(ds *dicom.Dataset, rows, cols, channels int) (*Grid, error) {
	elem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("%w: no pixel data: %v", ErrDecode, err)
	}
	info, ok := elem.Value.GetValue().(dicom.PixelDataInfo)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected pixel data value %T", ErrDecode, elem.Value.GetValue())
	}
	if len(info.Frames) == 0 {
		return nil, fmt.Errorf("%w: pixel data has no frames", ErrDecode)
	}

	fr := info.Frames[0]
	if fr.Encapsulated {
		return decodeEncapsulated(fr.EncapsulatedData.Data, rows, cols, channels)
	}

	native := fr.NativeData
	if native.Rows != rows || native.Cols != cols {
		return nil, fmt.Errorf("%w: frame is %dx%d, header says %dx%d",
			ErrDecode, native.Cols, native.Rows, cols, rows)
	}
	if len(native.Data) != rows*cols {
		return nil, fmt.Errorf("%w: frame has %d pixels, want %d", ErrDecode, len(native.Data), rows*cols)
	}

	signed := false
	if rep, err := intElement(ds, tag.PixelRepresentation); err == nil && rep == 1 {
		signed = true
	}
	bits := native.BitsPerSample

	grid := &Grid{Rows: rows, Cols: cols, Channels: channels, Data: make([]float64, 0, rows*cols*channels)}
	for i, px := range native.Data {
		if len(px) < channels {
			return nil, fmt.Errorf("%w: pixel %d has %d samples, want %d", ErrDecode, i, len(px), channels)
		}
		for c := 0; c < channels; c++ {
			grid.Data = append(grid.Data, sampleValue(px[c], bits, signed))
		}
	}
	return grid, nil
}

// sampleValue sign-extends a stored sample when the pixel representation is
// two's complement.
func sampleValue(v, bits int, signed bool) float64 {
	if !signed {
		return float64(v)
	}
	switch bits {
	case 8:
		return float64(int8(uint8(v)))
	case 16:
		return float64(int16(uint16(v)))
	case 32:
		return float64(int32(uint32(v)))
	}
	return float64(v)
}

// decodeEncapsulated handles compressed frames whose codec is registered with
// the image package.
func decodeEncapsulated(data []byte, rows, cols, channels int) (*Grid, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported encapsulated frame: %v", ErrDecode, err)
	}
	b := img.Bounds()
	if b.Dx() != cols || b.Dy() != rows {
		return nil, fmt.Errorf("%w: %s frame is %dx%d, header says %dx%d",
			ErrDecode, format, b.Dx(), b.Dy(), cols, rows)
	}

	grid := &Grid{Rows: rows, Cols: cols, Channels: channels, Data: make([]float64, 0, rows*cols*channels)}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if channels == 1 {
				// Grayscale JPEGs decode with r == g == b.
				grid.Data = append(grid.Data, float64(r>>8))
				continue
			}
			grid.Data = append(grid.Data, float64(r>>8), float64(g>>8), float64(bl>>8))
		}
	}
	return grid, nil
}

func intElement(ds *dicom.Dataset, t tag.Tag) (int, error) {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return 0, fmt.Errorf("%w: missing element %v", ErrDecode, t)
	}
	switch v := elem.Value.GetValue().(type) {
	case []int:
		if len(v) > 0 {
			return v[0], nil
		}
	case []string:
		if len(v) > 0 {
			n, err := strconv.Atoi(strings.TrimSpace(v[0]))
			if err == nil {
				return n, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: element %v is not an integer", ErrDecode, t)
}

func stringElement(ds *dicom.Dataset, t tag.Tag) string {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return ""
	}
	v, ok := elem.Value.GetValue().([]string)
	if !ok || len(v) == 0 {
		return ""
	}
	return strings.TrimRight(strings.Join(v, `\`), " \x00")
}

func spacingElement(ds *dicom.Dataset) []float64 {
	elem, err := ds.FindElementByTag(tag.PixelSpacing)
	if err != nil {
		return nil
	}
	v, ok := elem.Value.GetValue().([]string)
	if !ok || len(v) != 2 {
		return nil
	}
	spacing := make([]float64, 2)
	for i, s := range v {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || f <= 0 {
			return nil
		}
		spacing[i] = f
	}
	return spacing
}
