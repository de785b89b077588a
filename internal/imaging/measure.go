package imaging

import (
	"image"
	"math"
)

// DistanceResult describes the segment between two pixel coordinates.
type DistanceResult struct {
	DistancePixels float64 `json:"distance_pixels"`
	DeltaX         int     `json:"delta_x"`
	DeltaY         int     `json:"delta_y"`

	// AngleDegrees is measured from the positive X axis; 90 points down.
	AngleDegrees float64 `json:"angle_degrees"`

	// DistanceMM is the physical length, present only when pixel spacing is
	// known for the current image.
	DistanceMM *float64 `json:"distance_mm,omitempty"`

	DistancePercentWidth  float64 `json:"distance_percent_width"`
	DistancePercentHeight float64 `json:"distance_percent_height"`
}

// MeasureDistance measures the segment from (x1,y1) to (x2,y2).
//
// spacing is [row spacing, column spacing] in mm, or nil when unknown.
// Points may lie outside the image; the measurement is purely geometric.
func MeasureDistance(img image.Image, spacing []float64, x1, y1, x2, y2 int) *DistanceResult {
	bounds := img.Bounds()
	width := float64(bounds.Dx())
	height := float64(bounds.Dy())

	deltaX := x2 - x1
	deltaY := y2 - y1
	distance := math.Hypot(float64(deltaX), float64(deltaY))
	angle := math.Atan2(float64(deltaY), float64(deltaX)) * 180 / math.Pi

	result := &DistanceResult{
		DistancePixels:        math.Round(distance*100) / 100,
		DeltaX:                deltaX,
		DeltaY:                deltaY,
		AngleDegrees:          math.Round(angle*10) / 10,
		DistancePercentWidth:  math.Round(distance/width*1000) / 10,
		DistancePercentHeight: math.Round(distance/height*1000) / 10,
	}

	if len(spacing) == 2 {
		mm := math.Hypot(float64(deltaX)*spacing[1], float64(deltaY)*spacing[0])
		mm = math.Round(mm*100) / 100
		result.DistanceMM = &mm
	}
	return result
}
