package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// CosineSimilarity returns the cosine of the angle between a and b. Two zero
// vectors are identical (1); a zero vector against a non-zero one scores 0.
func CosineSimilarity(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	switch {
	case na == 0 && nb == 0:
		return 1
	case na == 0 || nb == 0:
		return 0
	}

	// Rounding can push identical directions just past 1
	return math.Max(-1, math.Min(1, floats.Dot(a, b)/(na*nb)))
}

// PearsonSimilarity maps the Pearson correlation of a and b from [-1, 1]
// onto [0, 1]
func PearsonSimilarity(a, b []float64) float64 {
	return (PearsonCorrelation(a, b) + 1) / 2
}
