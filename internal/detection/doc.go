// Package detection measures the connected ink strokes of a binarized
// signature.
//
// AnalyzeStrokes groups ink pixels into 8-connected components and reports,
// for each one, its area in pixels, the length of its traced outer boundary,
// the vertex count of that boundary after Ramer-Douglas-Peucker simplification
// and its bounding box. Components smaller than StrokeOptions.MinArea are
// treated as scanner noise and dropped.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
//
// Bounds are reported in the coordinates of the input image, so a sub-image
// yields boxes that line up with its parent.
//
// # Polarity
//
// The ink value is explicit (StrokeOptions.Ink); pass
// imaging.Preprocessor.InkValue so inverted pipelines are measured correctly.
package detection
