// Package dicomtest builds small DICOM Part 10 files for tests.
//
// Files are written in explicit VR little endian with just the elements the
// viewer reads, so fixtures stay readable and need no binary testdata.
package dicomtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

const explicitVRLittleEndian = "1.2.840.10008.1.2.1"

// Options describes the image to encode. Pixels holds Rows*Cols*Samples
// values, row-major with samples interleaved.
type Options struct {
	PatientName  string
	StudyDate    string
	Modality     string
	PixelSpacing string // e.g. `0.5\0.5`; omitted when empty

	Rows    int
	Cols    int
	Samples int // samples per pixel; 0 means 1
	Signed  bool
	Pixels  []int
}

// Grid returns Options for a single-channel image whose rows are given
// top to bottom.
func Grid(rows [][]int) Options {
	opts := Options{
		PatientName: "Doe^Jane",
		StudyDate:   "20240115",
		Modality:    "CT",
		Rows:        len(rows),
	}
	for _, row := range rows {
		opts.Cols = len(row)
		opts.Pixels = append(opts.Pixels, row...)
	}
	return opts
}

// Build encodes opts as a DICOM file with 16-bit samples.
func Build(opts Options) []byte {
	samples := opts.Samples
	if samples == 0 {
		samples = 1
	}
	if len(opts.Pixels) != opts.Rows*opts.Cols*samples {
		panic(fmt.Sprintf("dicomtest: %d pixels for %dx%dx%d image",
			len(opts.Pixels), opts.Rows, opts.Cols, samples))
	}

	var meta bytes.Buffer
	writeElement(&meta, 0x0002, 0x0010, "UI", padUID(explicitVRLittleEndian))

	var body bytes.Buffer
	if opts.StudyDate != "" {
		writeElement(&body, 0x0008, 0x0020, "DA", padText(opts.StudyDate))
	}
	if opts.Modality != "" {
		writeElement(&body, 0x0008, 0x0060, "CS", padText(opts.Modality))
	}
	if opts.PatientName != "" {
		writeElement(&body, 0x0010, 0x0010, "PN", padText(opts.PatientName))
	}
	writeElement(&body, 0x0028, 0x0002, "US", u16(samples))
	if samples == 3 {
		writeElement(&body, 0x0028, 0x0004, "CS", padText("RGB"))
		writeElement(&body, 0x0028, 0x0006, "US", u16(0))
	} else {
		writeElement(&body, 0x0028, 0x0004, "CS", padText("MONOCHROME2"))
	}
	writeElement(&body, 0x0028, 0x0010, "US", u16(opts.Rows))
	writeElement(&body, 0x0028, 0x0011, "US", u16(opts.Cols))
	if opts.PixelSpacing != "" {
		writeElement(&body, 0x0028, 0x0030, "DS", padText(opts.PixelSpacing))
	}
	writeElement(&body, 0x0028, 0x0100, "US", u16(16))
	writeElement(&body, 0x0028, 0x0101, "US", u16(16))
	writeElement(&body, 0x0028, 0x0102, "US", u16(15))
	rep := 0
	if opts.Signed {
		rep = 1
	}
	writeElement(&body, 0x0028, 0x0103, "US", u16(rep))

	pixels := make([]byte, 2*len(opts.Pixels))
	for i, v := range opts.Pixels {
		// Negative values wrap to their two's complement encoding.
		binary.LittleEndian.PutUint16(pixels[2*i:], uint16(v))
	}
	writeElement(&body, 0x7FE0, 0x0010, "OW", pixels)

	var out bytes.Buffer
	out.Write(make([]byte, 128))
	out.WriteString("DICM")
	groupLength := make([]byte, 4)
	binary.LittleEndian.PutUint32(groupLength, uint32(meta.Len()))
	writeElement(&out, 0x0002, 0x0000, "UL", groupLength)
	out.Write(meta.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}

// WriteFile builds opts into a file under t.TempDir and returns its path.
func WriteFile(t *testing.T, opts Options) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "study.dcm")
	if err := os.WriteFile(path, Build(opts), 0o644); err != nil {
		t.Fatalf("failed to write dicom fixture: %v", err)
	}
	return path
}

func writeElement(buf *bytes.Buffer, group, element uint16, vr string, value []byte) {
	_ = binary.Write(buf, binary.LittleEndian, group)
	_ = binary.Write(buf, binary.LittleEndian, element)
	buf.WriteString(vr)
	switch vr {
	case "OB", "OW", "OF", "SQ", "UT", "UN":
		buf.Write([]byte{0, 0})
		_ = binary.Write(buf, binary.LittleEndian, uint32(len(value)))
	default:
		_ = binary.Write(buf, binary.LittleEndian, uint16(len(value)))
	}
	buf.Write(value)
}

func u16(v int) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(v))
	return b
}

// padText pads string values to even length with a space.
func padText(s string) []byte {
	if len(s)%2 == 1 {
		s += " "
	}
	return []byte(s)
}

// padUID pads UIDs to even length with a NUL byte.
func padUID(s string) []byte {
	b := []byte(s)
	if len(b)%2 == 1 {
		b = append(b, 0)
	}
	return b
}
