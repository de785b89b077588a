package imaging

import (
	"errors"
	"image"
	"testing"
)

func TestNormalize(t *testing.T) {
	g := &Grid{Rows: 2, Cols: 2, Channels: 1, Data: []float64{0, 100, 200, 255}}

	img, err := Normalize(g)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("Normalize returned %T, want *image.Gray", img)
	}

	want := []uint8{0, 100, 200, 255}
	for i, v := range want {
		if gray.Pix[i] != v {
			t.Errorf("pixel %d: got %d, want %d", i, gray.Pix[i], v)
		}
	}
}

func TestNormalize_WideRange(t *testing.T) {
	g := &Grid{Rows: 1, Cols: 5, Channels: 1, Data: []float64{-1000, -500, 0, 500, 3000}}

	img, err := Normalize(g)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	gray := img.(*image.Gray)

	// round(255 * (v + 1000) / 4000)
	want := []uint8{0, 32, 64, 96, 255}
	for i, v := range want {
		if gray.Pix[i] != v {
			t.Errorf("pixel %d: got %d, want %d", i, gray.Pix[i], v)
		}
	}
}

func TestNormalize_MinMaxMapping(t *testing.T) {
	data := []float64{12, 4096, 37, 512, 4, 900, 1200, 8}
	g := &Grid{Rows: 2, Cols: 4, Channels: 1, Data: data}

	img, err := Normalize(g)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	gray := img.(*image.Gray)

	if gray.Pix[1] != 255 {
		t.Errorf("max element: got %d, want 255", gray.Pix[1])
	}
	if gray.Pix[4] != 0 {
		t.Errorf("min element: got %d, want 0", gray.Pix[4])
	}
}

func TestNormalize_ConstantGrid(t *testing.T) {
	g := &Grid{Rows: 3, Cols: 3, Channels: 1, Data: []float64{42, 42, 42, 42, 42, 42, 42, 42, 42}}

	img, err := Normalize(g)
	if err != nil {
		t.Fatalf("Normalize should not fail on a constant grid: %v", err)
	}
	for i, v := range img.(*image.Gray).Pix {
		if v != 0 {
			t.Errorf("pixel %d: got %d, want 0", i, v)
		}
	}
}

func TestNormalize_Color(t *testing.T) {
	g := &Grid{Rows: 1, Cols: 2, Channels: 3, Data: []float64{0, 510, 1020, 1020, 0, 255}}

	img, err := Normalize(g)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		t.Fatalf("Normalize returned %T, want *image.RGBA", img)
	}

	want := []uint8{0, 128, 255, 255, 255, 0, 64, 255}
	for i, v := range want {
		if rgba.Pix[i] != v {
			t.Errorf("byte %d: got %d, want %d", i, rgba.Pix[i], v)
		}
	}
}

func TestNormalize_Invalid(t *testing.T) {
	tests := []struct {
		name string
		grid *Grid
	}{
		{"nil", nil},
		{"empty", &Grid{Channels: 1}},
		{"short data", &Grid{Rows: 2, Cols: 2, Channels: 1, Data: []float64{1, 2}}},
		{"two channels", &Grid{Rows: 1, Cols: 1, Channels: 2, Data: []float64{1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.grid)
			if !errors.Is(err, ErrRange) {
				t.Errorf("expected ErrRange, got %v", err)
			}
		})
	}
}

func TestClampUint8(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{-5, 0},
		{0, 0},
		{127.9, 127},
		{255, 255},
		{300, 255},
	}
	for _, tt := range tests {
		if got := clampUint8(tt.in); got != tt.want {
			t.Errorf("clampUint8(%g): got %d, want %d", tt.in, got, tt.want)
		}
	}
}
