package features

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInsufficientFeatures is returned when a descriptor set that an operation
	// depends on has no descriptors. It signals a capture-quality problem, never a mismatch.
	ErrInsufficientFeatures = errors.New("insufficient features: no usable descriptors")

	// ErrDimensionMismatch is returned when descriptors of different lengths are mixed.
	ErrDimensionMismatch = errors.New("descriptor dimension mismatch")

	// ErrNonFiniteDescriptor is returned when a descriptor holds NaN or an infinity.
	ErrNonFiniteDescriptor = errors.New("descriptor has a non-finite component")
)

// Keypoint is the pixel location of a detected local feature plus detector metadata.
type Keypoint struct {
	// X is the horizontal position in pixels (0 = leftmost).
	X float64 `json:"x"`

	// Y is the vertical position in pixels (0 = topmost).
	Y float64 `json:"y"`

	// Size is the diameter of the neighbourhood the descriptor was computed from.
	Size float64 `json:"size"`

	// Angle is the dominant orientation in degrees [0, 360), or -1 when not computed.
	Angle float64 `json:"angle"`

	// Response is the detector strength; larger is stronger.
	Response float64 `json:"response"`
}

// Descriptor is a fixed-length numeric summary of the appearance around a keypoint.
type Descriptor []float64

// DescriptorSet is the unordered collection of descriptors extracted from one signature.
//
// Keypoints is either empty or parallel to Descriptors (Keypoints[i] locates Descriptors[i]).
type DescriptorSet struct {
	Keypoints   []Keypoint   `json:"keypoints,omitempty"`
	Descriptors []Descriptor `json:"descriptors"`
}

// NewDescriptorSet builds a set from raw vectors without keypoint locations.
func NewDescriptorSet(vectors ...[]float64) *DescriptorSet {
	set := &DescriptorSet{Descriptors: make([]Descriptor, len(vectors))}
	for i, v := range vectors {
		set.Descriptors[i] = Descriptor(v)
	}
	return set
}

// Len returns the number of descriptors. A nil set has length 0.
func (s *DescriptorSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Descriptors)
}

// Empty reports whether the set holds no descriptors.
func (s *DescriptorSet) Empty() bool {
	return s.Len() == 0
}

// Dim returns the descriptor dimension, or 0 for an empty set.
func (s *DescriptorSet) Dim() int {
	if s.Empty() {
		return 0
	}
	return len(s.Descriptors[0])
}

// Validate checks that all descriptors share one non-zero dimension, hold only
// finite values, and that keypoints, when present, are parallel to the descriptors.
func (s *DescriptorSet) Validate() error {
	if s.Empty() {
		return nil
	}
	dim := s.Dim()
	if dim == 0 {
		return fmt.Errorf("%w: descriptor 0 has no components", ErrDimensionMismatch)
	}
	for i, d := range s.Descriptors {
		if len(d) != dim {
			return fmt.Errorf("%w: descriptor %d has %d components, want %d", ErrDimensionMismatch, i, len(d), dim)
		}
		for j, v := range d {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: descriptor %d component %d is %v", ErrNonFiniteDescriptor, i, j, v)
			}
		}
	}
	if len(s.Keypoints) != 0 && len(s.Keypoints) != len(s.Descriptors) {
		return fmt.Errorf("keypoint count %d does not match descriptor count %d", len(s.Keypoints), len(s.Descriptors))
	}
	return nil
}

// Clone returns a deep copy that shares no backing arrays with s.
func (s *DescriptorSet) Clone() *DescriptorSet {
	if s == nil {
		return nil
	}
	out := &DescriptorSet{}
	if s.Keypoints != nil {
		out.Keypoints = append([]Keypoint(nil), s.Keypoints...)
	}
	if s.Descriptors != nil {
		out.Descriptors = make([]Descriptor, len(s.Descriptors))
		for i, d := range s.Descriptors {
			out.Descriptors[i] = append(Descriptor(nil), d...)
		}
	}
	return out
}

// Equal reports whether both sets hold the same descriptors in the same order,
// compared element-wise with exact float equality. Keypoints are not compared.
func (s *DescriptorSet) Equal(other *DescriptorSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i := range s.Descriptors {
		a, b := s.Descriptors[i], other.Descriptors[i]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}
