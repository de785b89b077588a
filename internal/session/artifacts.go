package session

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// Artifact is the fixed file name an operation writes its result to.
type Artifact string

const (
	Original      Artifact = "original_image.png"
	Current       Artifact = "current_image.png"
	Adjusted      Artifact = "adjusted_image.png"
	Cropped       Artifact = "cropped_image.png"
	Zoomed        Artifact = "zoomed_image.png"
	Panned        Artifact = "panned_image.png"
	WindowLeveled Artifact = "window_level_image.png"
)

// Artifacts lists every name the store will write or resolve.
var Artifacts = []Artifact{Original, Current, Adjusted, Cropped, Zoomed, Panned, WindowLeveled}

// ErrUnknownArtifact is returned by Path for names outside Artifacts.
var ErrUnknownArtifact = errors.New("unknown artifact")

// ArtifactStore writes operation results as PNG files under one directory.
// Each artifact is overwritten on every write and never partially visible:
// data goes to a temporary file in the same directory that is then renamed.
type ArtifactStore struct {
	dir     string
	encoder png.Encoder
}

// NewArtifactStore creates dir if needed and returns a store rooted there.
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &ArtifactStore{dir: dir}, nil
}

// Dir returns the directory artifacts are written to.
func (s *ArtifactStore) Dir() string { return s.dir }

// Encode returns img as PNG bytes without storing them.
func (s *ArtifactStore) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Write encodes img as PNG, stores it under name and returns the encoded bytes.
func (s *ArtifactStore) Write(name Artifact, img image.Image) ([]byte, error) {
	data, err := s.Encode(img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+string(name)+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, string(name))); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to save %s: %w", name, err)
	}
	return data, nil
}

// Path resolves an artifact name to its file path. Only names in Artifacts
// resolve; the file itself may not exist yet.
func (s *ArtifactStore) Path(name string) (string, error) {
	for _, a := range Artifacts {
		if string(a) == name {
			return filepath.Join(s.dir, name), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownArtifact, name)
}
