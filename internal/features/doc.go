// Package features extracts local keypoint descriptors from binarized signature images.
//
// A DescriptorSet is the unordered collection of fixed-length descriptor vectors
// (plus their pixel locations) that represents one signature. Extraction is done by
// an Extractor chosen by name from a small registry:
//
//   - gradient: pure Go Harris corners with rotated 128-component orientation
//     histograms. Always available and the default.
//   - sift: OpenCV SIFT via gocv. Registered only in builds with -tags gocv.
//
// # Empty Sets
//
// Finding no keypoints is not an error here. An empty set is returned and the
// operation that needs features (enrollment, matching) fails with
// ErrInsufficientFeatures.
//
// # Thread Safety
//
// Extractors hold only immutable options and may be shared between goroutines.
package features
