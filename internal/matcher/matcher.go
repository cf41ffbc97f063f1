package matcher

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/signature-tools-mcp/internal/features"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultThreshold is the decision threshold used when configuration supplies none.
// It is uncalibrated; deployments should tune it for their extractor and image quality.
const DefaultThreshold = 0.7

// DefaultRatioThreshold is Lowe's distance ratio used by the ratio aggregation.
const DefaultRatioThreshold = 0.75

// Aggregation selects how pairwise similarities become one score.
type Aggregation string

const (
	// AggregateMean averages the cosine similarity of every (reference, candidate) pair.
	AggregateMean Aggregation = "mean"

	// AggregateRatio keeps, per candidate descriptor, its nearest reference descriptor
	// when it passes the distance ratio test, and averages over all candidates.
	AggregateRatio Aggregation = "ratio"
)

// ErrInvalidThreshold is returned for NaN or infinite thresholds.
var ErrInvalidThreshold = errors.New("threshold must be a finite number")

// Decision is the outcome of comparing a candidate against a reference.
type Decision struct {
	// Authentic is true when Score is strictly greater than Threshold.
	Authentic bool `json:"authentic"`

	// Score is the aggregated similarity in [-1, 1].
	Score float64 `json:"score"`

	// Threshold is the value Score was compared against.
	Threshold float64 `json:"threshold"`

	// Aggregation names the scoring scheme that produced Score.
	Aggregation Aggregation `json:"aggregation"`

	// CandidateCount and ReferenceCount are the descriptor set sizes.
	CandidateCount int `json:"candidate_count"`
	ReferenceCount int `json:"reference_count"`
}

// Options configures a Matcher.
type Options struct {
	Aggregation    Aggregation `yaml:"aggregation" json:"aggregation"`
	RatioThreshold float64     `yaml:"ratio_threshold" json:"ratio_threshold"`
}

// Matcher scores descriptor sets. It is stateless and safe for concurrent use.
type Matcher struct {
	aggregation    Aggregation
	ratioThreshold float64
}

// New returns a Matcher; zero options select mean aggregation.
func New(opts Options) (*Matcher, error) {
	m := &Matcher{aggregation: opts.Aggregation, ratioThreshold: opts.RatioThreshold}
	if m.aggregation == "" {
		m.aggregation = AggregateMean
	}
	if m.ratioThreshold == 0 {
		m.ratioThreshold = DefaultRatioThreshold
	}
	switch m.aggregation {
	case AggregateMean, AggregateRatio:
	default:
		return nil, fmt.Errorf("unknown aggregation %q (must be mean or ratio)", m.aggregation)
	}
	if m.ratioThreshold <= 0 || m.ratioThreshold > 1 {
		return nil, fmt.Errorf("ratio threshold %v out of range (0, 1]", m.ratioThreshold)
	}
	return m, nil
}

// Match scores candidate against reference with the default mean aggregation.
func Match(candidate, reference *features.DescriptorSet, threshold float64) (*Decision, error) {
	m := &Matcher{aggregation: AggregateMean, ratioThreshold: DefaultRatioThreshold}
	return m.Match(candidate, reference, threshold)
}

// Aggregation returns the configured scoring scheme.
func (m *Matcher) Aggregation() Aggregation {
	return m.aggregation
}

// Match scores candidate against reference and classifies it as authentic when
// the score is strictly greater than threshold.
//
// An empty candidate or reference fails with features.ErrInsufficientFeatures;
// that is a capture problem and never reported as a non-authentic Decision.
func (m *Matcher) Match(candidate, reference *features.DescriptorSet, threshold float64) (*Decision, error) {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, ErrInvalidThreshold
	}
	if candidate.Empty() {
		return nil, fmt.Errorf("candidate: %w", features.ErrInsufficientFeatures)
	}
	if reference.Empty() {
		return nil, fmt.Errorf("reference: %w", features.ErrInsufficientFeatures)
	}
	if err := candidate.Validate(); err != nil {
		return nil, fmt.Errorf("candidate: %w", err)
	}
	if err := reference.Validate(); err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	if candidate.Dim() != reference.Dim() {
		return nil, fmt.Errorf("%w: candidate has %d components, reference has %d",
			features.ErrDimensionMismatch, candidate.Dim(), reference.Dim())
	}

	var score float64
	switch m.aggregation {
	case AggregateRatio:
		score = ratioScore(vectors(candidate), vectors(reference), m.ratioThreshold)
	default:
		score = MeanPairwiseSimilarity(vectors(candidate), vectors(reference))
	}

	return &Decision{
		Authentic:      score > threshold,
		Score:          score,
		Threshold:      threshold,
		Aggregation:    m.aggregation,
		CandidateCount: candidate.Len(),
		ReferenceCount: reference.Len(),
	}, nil
}

// MeanPairwiseSimilarity returns the mean cosine similarity over the full cross
// product of a and b.
//
// The mean of r̂·ĉ over all pairs equals (Σ r̂)·(Σ ĉ) / (|a|·|b|), so the sum is
// taken once per side instead of once per pair. The result is identical when a
// and b are swapped. Both slices must be non-empty with equal dimensions.
func MeanPairwiseSimilarity(a, b [][]float64) float64 {
	dim := len(a[0])
	sumA := unitSum(a, dim)
	sumB := unitSum(b, dim)
	return clampUnit(floats.Dot(sumA, sumB) / float64(len(a)*len(b)))
}

// ratioScore accepts a candidate descriptor when its nearest reference is clearly
// closer than the second nearest (d1 < ratio·d2) and averages the cosine of the
// accepted matches over all candidates. With a single reference descriptor every
// candidate is accepted.
func ratioScore(candidates, references [][]float64, ratio float64) float64 {
	sims := make([]float64, len(candidates))
	for i, c := range candidates {
		best, second := math.Inf(1), math.Inf(1)
		bestIdx := -1
		for j, r := range references {
			d := floats.Distance(c, r, 2)
			if d < best {
				second = best
				best, bestIdx = d, j
			} else if d < second {
				second = d
			}
		}
		if math.IsInf(second, 1) || best < ratio*second {
			sims[i] = CosineSimilarity(c, references[bestIdx])
		}
	}
	return clampUnit(stat.Mean(sims, nil))
}

func vectors(set *features.DescriptorSet) [][]float64 {
	out := make([][]float64, len(set.Descriptors))
	for i, d := range set.Descriptors {
		out[i] = d
	}
	return out
}
