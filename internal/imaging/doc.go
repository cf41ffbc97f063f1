// Package imaging loads signature scans and turns them into binarized images
// ready for feature extraction.
//
// The Preprocessor runs a fixed pipeline: optional resize, grayscale conversion,
// optional Laplacian sharpening, Gaussian smoothing, adaptive thresholding and an
// optional crop to the ink bounding box. Each step allocates a new image; inputs
// are never modified.
//
// For inspection, DetectEdges renders a Canny edge map, InkColors reports the
// pen color under the ink mask and DrawMarkers circles keypoints on a copy of
// an image.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Polarity
//
// Binarized images contain only 0 and 255. By default ink is black (0) on white
// paper (255). With Options.Invert the polarity is reversed; use
// Preprocessor.InkValue rather than assuming either.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Preprocessor and the standalone
// functions are stateless and may be called concurrently.
//
// # Error Handling
//
// Any failure to open or decode a scan is reported as *ImageLoadError, whether it
// came from a path (ImageCache.Load) or a stream (Decode). Invalid preprocessing
// options are rejected by NewPreprocessor before any pixel work.
package imaging
