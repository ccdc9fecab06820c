package stats

import (
	"fmt"
	"math"
	"strings"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/sonido-harmony/algorithms/chroma"
)

// CorrelationMethod represents different computational approaches
type CorrelationMethod int

const (
	// Direct calculation: one Pearson correlation per rotation
	TimeDomain CorrelationMethod = iota

	// FFT-based circular cross-correlation, all rotations at once
	FrequencyDomain
)

func (m CorrelationMethod) String() string {
	switch m {
	case TimeDomain:
		return "time"
	case FrequencyDomain:
		return "frequency"
	default:
		return "unknown"
	}
}

// ParseCorrelationMethod accepts "time" / "time_domain" and
// "frequency" / "frequency_domain" / "fft"
func ParseCorrelationMethod(name string) (CorrelationMethod, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "time", "time_domain":
		return TimeDomain, nil
	case "frequency", "frequency_domain", "fft":
		return FrequencyDomain, nil
	default:
		return TimeDomain, fmt.Errorf("unknown correlation method %q", name)
	}
}

// CorrelationResult holds the Pearson correlation of a signal against every
// circular rotation of a template
type CorrelationResult struct {
	// Correlations[k] is the correlation with the template rotated by k
	Correlations []float64 `json:"correlations"`

	// Peak correlation information
	PeakCorrelation float64 `json:"peak_correlation"`
	PeakLag         int     `json:"peak_lag"`
	SecondPeak      float64 `json:"second_peak"`

	Method CorrelationMethod `json:"method"`
}

// CircularCorrelation correlates a fixed-length signal against all circular
// rotations of a template of the same length. Rotation k moves template[i]
// to position (i+k) mod n.
type CircularCorrelation struct {
	method CorrelationMethod

	// Numerical stability parameter
	minNorm float64
}

// NewCircularCorrelation creates a circular correlation calculator
func NewCircularCorrelation(method CorrelationMethod) *CircularCorrelation {
	return &CircularCorrelation{
		method:  method,
		minNorm: 1e-12,
	}
}

// Method returns the computational approach in use
func (cc *CircularCorrelation) Method() CorrelationMethod {
	return cc.method
}

// Compute correlates signal against every rotation of template.
// Degenerate inputs (zero variance) correlate as 0.
func (cc *CircularCorrelation) Compute(signal, template []float64) (*CorrelationResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if len(signal) != len(template) {
		return nil, fmt.Errorf("signal length %d does not match template length %d", len(signal), len(template))
	}

	var correlations []float64
	switch cc.method {
	case TimeDomain:
		correlations = cc.computeTimeDomain(signal, template)
	case FrequencyDomain:
		correlations = cc.computeFFT(signal, template)
	default:
		return nil, fmt.Errorf("unsupported correlation method: %d", cc.method)
	}

	peakLag := floats.MaxIdx(correlations)

	return &CorrelationResult{
		Correlations:    correlations,
		PeakCorrelation: correlations[peakLag],
		PeakLag:         peakLag,
		SecondPeak:      findSecondPeak(correlations, peakLag),
		Method:          cc.method,
	}, nil
}

// computeTimeDomain evaluates Pearson correlation for each rotation directly
func (cc *CircularCorrelation) computeTimeDomain(signal, template []float64) []float64 {
	n := len(signal)
	correlations := make([]float64, n)

	for lag := 0; lag < n; lag++ {
		correlations[lag] = PearsonCorrelation(signal, chroma.RotateProfile(template, lag))
	}

	return correlations
}

// computeFFT evaluates every rotation at once. With mean-centred inputs the
// circular cross-correlation IFFT(X * conj(Y)) holds the Pearson numerators,
// and the denominator is rotation invariant.
func (cc *CircularCorrelation) computeFFT(signal, template []float64) []float64 {
	n := len(signal)
	correlations := make([]float64, n)

	x := subtractMean(signal)
	y := subtractMean(template)

	denom := floats.Norm(x, 2) * floats.Norm(y, 2)
	if denom < cc.minNorm {
		return correlations
	}

	xf := fft.FFTReal(x)
	yf := fft.FFTReal(y)
	product := make([]complex128, n)
	for i := range product {
		product[i] = xf[i] * complex(real(yf[i]), -imag(yf[i]))
	}
	cross := fft.IFFT(product)

	for lag := 0; lag < n; lag++ {
		correlations[lag] = clampCorrelation(real(cross[lag]) / denom)
	}

	return correlations
}

// PearsonCorrelation returns the Pearson correlation of x and y, or 0 when
// either input has no variance
func PearsonCorrelation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Helper functions

func subtractMean(signal []float64) []float64 {
	mean := stat.Mean(signal, nil)
	centred := make([]float64, len(signal))
	for i, v := range signal {
		centred[i] = v - mean
	}
	return centred
}

func findSecondPeak(correlations []float64, peakIdx int) float64 {
	second := math.Inf(-1)
	for i, c := range correlations {
		if i != peakIdx && c > second {
			second = c
		}
	}
	if math.IsInf(second, -1) {
		return 0
	}
	return second
}

// clampCorrelation removes floating point overshoot outside [-1, 1]
func clampCorrelation(correlation float64) float64 {
	if math.IsNaN(correlation) {
		return 0
	}
	return math.Max(-1, math.Min(1, correlation))
}
