package stats

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// ErrEmptyData is returned when a statistic is requested over no values
var ErrEmptyData = errors.New("empty data")

// Summary describes the distribution of a set of values
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	P10    float64 `json:"p10"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	Max    float64 `json:"max"`
}

// Summarize computes the summary of data. data is not modified.
func Summarize(data []float64) (*Summary, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}

	values := slices.Clone(data)
	slices.Sort(values)

	mean, stdDev := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		stdDev = 0
	}

	return &Summary{
		Count:  len(values),
		Mean:   mean,
		StdDev: stdDev,
		Min:    values[0],
		P10:    linearInterpolation(values, 0.10),
		Median: linearInterpolation(values, 0.50),
		P90:    linearInterpolation(values, 0.90),
		Max:    values[len(values)-1],
	}, nil
}

// Percentile computes a single percentile (0-100) of data by linear
// interpolation between the closest ranks
func Percentile(data []float64, percentile float64) (float64, error) {
	if len(data) == 0 {
		return 0, ErrEmptyData
	}
	if percentile < 0 || percentile > 100 {
		return 0, fmt.Errorf("percentile must be between 0 and 100, got %g", percentile)
	}

	values := slices.Clone(data)
	slices.Sort(values)
	return linearInterpolation(values, percentile/100), nil
}

// linearInterpolation expects sorted data.
// Formula: h = (n-1) * q, interpolating between data[floor(h)] and data[ceil(h)]
func linearInterpolation(data []float64, q float64) float64 {
	n := len(data)
	h := float64(n-1) * q

	lower := int(h)
	if lower >= n-1 {
		return data[n-1]
	}

	fraction := h - float64(lower)
	return data[lower] + fraction*(data[lower+1]-data[lower])
}
