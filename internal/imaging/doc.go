// Package imaging turns DICOM files into displayable rasters and implements
// the tonal and geometric operations applied to them.
//
// The package has three layers:
//
//   - Decoding: Decode and DecodeFile read a DICOM Part 10 container into a
//     Study, which carries the descriptive Fields and the raw pixel Grid.
//   - Display conversion: Normalize maps a Grid of arbitrary range onto an
//     8-bit image (*image.Gray or *image.RGBA).
//   - Operations: ImageOps (implemented by Ops) exposes brightness, contrast,
//     crop, resize, translate and window/level clipping over display images.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Rectangles are half-open:
// [x, x+width) x [y, y+height).
//
// # Thread Safety
//
// Every function in this package is stateless and returns a new image. The
// caller owns synchronization of any image it shares between goroutines.
//
// # Error Handling
//
// Errors wrap one of two sentinels so callers can map them with errors.Is:
//   - ErrDecode: the container is malformed or lacks required elements
//   - ErrRange: a parameter or geometry is outside the valid domain
package imaging
