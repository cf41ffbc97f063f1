package store

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ironsheep/signature-tools-mcp/internal/features"
	"gonum.org/v1/gonum/mat"
)

// Template file layout:
//
//	[0:4]  magic "SIGT"
//	[4]    format version
//	[5]    flags (bit 0: keypoint matrix follows)
//	...    descriptors as a gonum mat.Dense binary (N×D float64)
//	...    optional keypoints as a gonum mat.Dense binary (N×5: x, y, size, angle, response)
const (
	templateMagic   = "SIGT"
	templateVersion = 1
	headerSize      = 6

	flagKeypoints = 1 << 0

	keypointCols = 5
)

// encodeTemplate writes set in the template file layout. set must be non-empty and valid.
func encodeTemplate(w io.Writer, set *features.DescriptorSet) error {
	bw := bufio.NewWriter(w)

	var flags byte
	if len(set.Keypoints) > 0 {
		flags |= flagKeypoints
	}
	header := []byte{templateMagic[0], templateMagic[1], templateMagic[2], templateMagic[3], templateVersion, flags}
	if _, err := bw.Write(header); err != nil {
		return err
	}

	n, dim := set.Len(), set.Dim()
	desc := mat.NewDense(n, dim, nil)
	for i, d := range set.Descriptors {
		desc.SetRow(i, d)
	}
	if _, err := desc.MarshalBinaryTo(bw); err != nil {
		return fmt.Errorf("failed to encode descriptors: %w", err)
	}

	if flags&flagKeypoints != 0 {
		kps := mat.NewDense(n, keypointCols, nil)
		for i, kp := range set.Keypoints {
			kps.SetRow(i, []float64{kp.X, kp.Y, kp.Size, kp.Angle, kp.Response})
		}
		if _, err := kps.MarshalBinaryTo(bw); err != nil {
			return fmt.Errorf("failed to encode keypoints: %w", err)
		}
	}

	return bw.Flush()
}

// decodeTemplate reads a template written by encodeTemplate.
func decodeTemplate(r io.Reader) (*features.DescriptorSet, error) {
	br := bufio.NewReader(r)

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrCorruptTemplate, err)
	}
	if string(header[:4]) != templateMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptTemplate, header[:4])
	}
	if header[4] != templateVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptTemplate, header[4])
	}
	flags := header[5]

	var desc mat.Dense
	if _, err := desc.UnmarshalBinaryFrom(br); err != nil {
		return nil, fmt.Errorf("%w: descriptors: %v", ErrCorruptTemplate, err)
	}
	rows, cols := desc.Dims()
	set := &features.DescriptorSet{Descriptors: make([]features.Descriptor, rows)}
	for i := 0; i < rows; i++ {
		d := make(features.Descriptor, cols)
		copy(d, desc.RawRowView(i))
		set.Descriptors[i] = d
	}

	if flags&flagKeypoints != 0 {
		var kps mat.Dense
		if _, err := kps.UnmarshalBinaryFrom(br); err != nil {
			return nil, fmt.Errorf("%w: keypoints: %v", ErrCorruptTemplate, err)
		}
		kr, kc := kps.Dims()
		if kr != rows || kc != keypointCols {
			return nil, fmt.Errorf("%w: keypoint matrix is %dx%d, want %dx%d",
				ErrCorruptTemplate, kr, kc, rows, keypointCols)
		}
		set.Keypoints = make([]features.Keypoint, kr)
		for i := 0; i < kr; i++ {
			row := kps.RawRowView(i)
			set.Keypoints[i] = features.Keypoint{
				X: row[0], Y: row[1], Size: row[2], Angle: row[3], Response: row[4],
			}
		}
	}

	if set.Empty() {
		return nil, fmt.Errorf("%w: no descriptors", ErrCorruptTemplate)
	}
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptTemplate, err)
	}
	return set, nil
}
