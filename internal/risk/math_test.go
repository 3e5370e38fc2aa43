package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
}

func TestStdDev(t *testing.T) {
	assert.Equal(t, 0.0, StdDev(nil))
	assert.Equal(t, 0.0, StdDev([]float64{5}))

	// Sample deviation of {2, 4, 4, 4, 5, 5, 7, 9} is sqrt(32/7).
	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, math.Sqrt(32.0/7.0), got, 1e-12)
}

func TestCovariance(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	assert.Equal(t, 0.0, Covariance(xs[:1], xs[:1]))
	assert.InDelta(t, Variance(xs), Covariance(xs, xs), 1e-12)

	inverted := []float64{4, 3, 2, 1}
	assert.InDelta(t, -Variance(xs), Covariance(xs, inverted), 1e-12)
}

func TestPercentile(t *testing.T) {
	xs := []float64{0.1, -0.1}

	assert.Equal(t, 0.0, Percentile(nil, 5))
	assert.InDelta(t, -0.09, Percentile(xs, 5), 1e-12)
	assert.Equal(t, -0.1, Percentile(xs, 0))
	assert.Equal(t, 0.1, Percentile(xs, 100))

	// Linear interpolation between closest ranks.
	assert.InDelta(t, 2.5, Percentile([]float64{1, 2, 3, 4}, 50), 1e-12)
	assert.InDelta(t, 1.15, Percentile([]float64{1, 2, 3, 4}, 5), 1e-12)
}

func TestPercentileDoesNotMutateInput(t *testing.T) {
	xs := []float64{3, 1, 2}
	Percentile(xs, 50)
	assert.Equal(t, []float64{3, 1, 2}, xs)
}

func TestSMA(t *testing.T) {
	xs := []float64{1, 2, 3, 4}

	got, ok := SMA(xs, 2)
	assert.True(t, ok)
	assert.Equal(t, 3.5, got)

	_, ok = SMA(xs, 5)
	assert.False(t, ok)
	_, ok = SMA(xs, 0)
	assert.False(t, ok)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(5, -1, 1))
	assert.Equal(t, -1.0, Clamp(-5, -1, 1))
	assert.Equal(t, 0.25, Clamp(0.25, -1, 1))
}

func TestAnnualize(t *testing.T) {
	assert.InDelta(t, math.Sqrt(252), Annualize(1), 1e-12)
}
