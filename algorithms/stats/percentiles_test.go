package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	summary, err := Summarize([]float64{0.5, 0.1, 0.9, 0.3, 0.7})
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Count)
	assert.InDelta(t, 0.5, summary.Mean, 1e-12)
	assert.InDelta(t, 0.1, summary.Min, 1e-12)
	assert.InDelta(t, 0.9, summary.Max, 1e-12)
	assert.InDelta(t, 0.5, summary.Median, 1e-12)
	assert.InDelta(t, 0.18, summary.P10, 1e-12)
	assert.InDelta(t, 0.82, summary.P90, 1e-12)
	assert.Greater(t, summary.StdDev, 0.0)

	single, err := Summarize([]float64{0.4})
	require.NoError(t, err)
	assert.Equal(t, 0.4, single.Median)
	assert.Equal(t, 0.0, single.StdDev)

	_, err = Summarize(nil)
	assert.ErrorIs(t, err, ErrEmptyData)
}

func TestPercentile(t *testing.T) {
	data := []float64{4, 1, 3, 2}

	p, err := Percentile(data, 50)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, p, 1e-12)

	p, err = Percentile(data, 100)
	require.NoError(t, err)
	assert.Equal(t, 4.0, p)
	assert.Equal(t, []float64{4, 1, 3, 2}, data, "input must stay unsorted")

	_, err = Percentile(data, 101)
	assert.Error(t, err)
	_, err = Percentile(nil, 50)
	assert.ErrorIs(t, err, ErrEmptyData)
}
