package session

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestArtifactStore_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	store, err := NewArtifactStore(dir)
	if err != nil {
		t.Fatalf("NewArtifactStore failed: %v", err)
	}

	img := image.NewGray(image.Rect(0, 0, 3, 2))
	img.SetGray(2, 1, color.Gray{Y: 200})

	data, err := store.Write(Cropped, img)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Write returned no bytes")
	}

	f, err := os.Open(filepath.Join(dir, string(Cropped)))
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("artifact is not a PNG: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("bounds: got %v, want %v", decoded.Bounds(), img.Bounds())
	}
	if g := color.GrayModel.Convert(decoded.At(2, 1)).(color.Gray); g.Y != 200 {
		t.Errorf("pixel (2,1): got %d, want 200", g.Y)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestArtifactStore_Overwrite(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewArtifactStore failed: %v", err)
	}

	if _, err := store.Write(Zoomed, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}
	if _, err := store.Write(Zoomed, image.NewGray(image.Rect(0, 0, 8, 2))); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	f, err := os.Open(filepath.Join(store.Dir(), string(Zoomed)))
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}
	if cfg.Width != 8 || cfg.Height != 2 {
		t.Errorf("artifact not overwritten: got %dx%d, want 8x2", cfg.Width, cfg.Height)
	}
}

func TestArtifactStore_Path(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewArtifactStore failed: %v", err)
	}

	for _, a := range Artifacts {
		path, err := store.Path(string(a))
		if err != nil {
			t.Errorf("Path(%s) failed: %v", a, err)
			continue
		}
		if path != filepath.Join(store.Dir(), string(a)) {
			t.Errorf("Path(%s): got %s", a, path)
		}
	}

	for _, name := range []string{"", "secret.txt", "../original_image.png", "output/cropped_image.png"} {
		if _, err := store.Path(name); !errors.Is(err, ErrUnknownArtifact) {
			t.Errorf("Path(%q): expected ErrUnknownArtifact, got %v", name, err)
		}
	}
}

func TestUploadBase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"scan.dcm", "scan.dcm"},
		{"dir/scan.dcm", "scan.dcm"},
		{"../../etc/passwd", "passwd"},
		{"..", "upload.dcm"},
		{"", "upload.dcm"},
		{"/", "upload.dcm"},
	}
	for _, tt := range tests {
		if got := uploadBase(tt.in); got != tt.want {
			t.Errorf("uploadBase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
