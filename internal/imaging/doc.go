// Package imaging provides the image-facing stages of the connectivity pipeline.
//
// This package turns a decoded diagram into the binary structure the rest of
// the pipeline works on. It covers image loading (with a bounded LRU cache),
// intensity conversion into a RasterImage, the binary Mask type shared by the
// edge map and the skeleton, and the Canny-style edge map builder.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. RasterImage is immutable
// once built. Mask is a plain value owned by a single pipeline run and must
// not be shared between goroutines while it is being written.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Zero-size images (ErrEmptyImage)
//   - Inconsistent edge thresholds
//   - File I/O or decoding errors during image loading
package imaging
