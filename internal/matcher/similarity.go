package matcher

import (
	"gonum.org/v1/gonum/floats"
)

// CosineSimilarity returns dot(a,b) / (|a|·|b|), a value in [-1, 1].
//
// It returns 0 when either vector has zero norm or when the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return clampUnit(floats.Dot(a, b) / (normA * normB))
}

// unitSum returns the sum of the unit-length versions of vectors.
// Zero vectors contribute nothing.
func unitSum(vectors [][]float64, dim int) []float64 {
	sum := make([]float64, dim)
	unit := make([]float64, dim)
	for _, v := range vectors {
		norm := floats.Norm(v, 2)
		if norm == 0 {
			continue
		}
		floats.ScaleTo(unit, 1/norm, v)
		floats.Add(sum, unit)
	}
	return sum
}

// clampUnit absorbs rounding that pushes a cosine slightly outside [-1, 1].
func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
