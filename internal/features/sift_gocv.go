//go:build gocv

package features

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// SIFT descriptors from OpenCV are 128 float32 components.
const siftDim = 128

func init() {
	Register("sift", func(opts Options) (Extractor, error) {
		return &SIFTExtractor{opts: opts}, nil
	})
}

// SIFTExtractor delegates keypoint detection and description to OpenCV SIFT.
//
// Only compiled with the gocv build tag, which requires OpenCV 4 development
// headers and a cgo toolchain.
type SIFTExtractor struct {
	opts Options
}

// Name returns "sift".
func (e *SIFTExtractor) Name() string {
	return "sift"
}

// Extract runs SIFT detectAndCompute on the image. Keypoints beyond MaxKeypoints
// (in detector order) are dropped.
func (e *SIFTExtractor) Extract(img *image.Gray) (*DescriptorSet, error) {
	if img == nil {
		return nil, errors.New("extract: nil image")
	}
	src, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to mat: %w", err)
	}
	defer src.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	sift := gocv.NewSIFT()
	defer sift.Close()

	keypoints, desc := sift.DetectAndCompute(src, mask)
	defer desc.Close()

	set := &DescriptorSet{}
	if desc.Empty() || len(keypoints) == 0 {
		return set, nil
	}
	if desc.Cols() != siftDim {
		return nil, fmt.Errorf("%w: sift returned %d columns", ErrDimensionMismatch, desc.Cols())
	}

	rows := desc.Rows()
	if e.opts.MaxKeypoints > 0 && rows > e.opts.MaxKeypoints {
		rows = e.opts.MaxKeypoints
	}
	bounds := img.Bounds()
	for r := 0; r < rows; r++ {
		d := make(Descriptor, siftDim)
		for c := 0; c < siftDim; c++ {
			d[c] = float64(desc.GetFloatAt(r, c))
		}
		kp := keypoints[r]
		set.Keypoints = append(set.Keypoints, Keypoint{
			X:        kp.X + float64(bounds.Min.X),
			Y:        kp.Y + float64(bounds.Min.Y),
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
		})
		set.Descriptors = append(set.Descriptors, d)
	}
	return set, nil
}
