package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPearson_PerfectPositiveCorrelation(t *testing.T) {
	x := []float64{-70, -72, -68, -75, -71}
	y := []float64{-70, -72, -68, -75, -71}

	r, ok := Pearson(x, y, 3)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-9)
}

func TestPearson_PerfectNegativeCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{5, 4, 3, 2, 1}

	r, ok := Pearson(x, y, 3)
	assert.True(t, ok)
	assert.InDelta(t, -1.0, r, 1e-9)
}

func TestPearson_Symmetry(t *testing.T) {
	x := []float64{-70, -65, -72, -69, -74}
	y := []float64{-68, -71, -66, -73, -70}

	r1, ok1 := Pearson(x, y, 3)
	r2, ok2 := Pearson(y, x, 3)
	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.InDelta(t, r1, r2, 1e-12)
}

func TestPearson_Bounded(t *testing.T) {
	x := []float64{-70, -65, -72, -69, -74, -68}
	y := []float64{-68, -71, -66, -73, -70, -75}

	r, ok := Pearson(x, y, 3)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, r, -1.0)
	assert.LessOrEqual(t, r, 1.0)
}

func TestPearson_AlignsToShorterSeries(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7}
	y := []float64{1, 2, 3}

	r, ok := Pearson(x, y, 3)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-9)
}

func TestPearson_TooShort(t *testing.T) {
	x := []float64{1, 2}
	y := []float64{1, 2, 3}

	_, ok := Pearson(x, y, 3)
	assert.False(t, ok)
}

func TestPearson_MinLenBoundary(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}

	_, ok := Pearson(x[:4], y[:4], 5)
	assert.False(t, ok)

	r, ok := Pearson(x, y, 5)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-9)
}

func TestPearson_ZeroVariance(t *testing.T) {
	x := []float64{-70, -70, -70, -70}
	y := []float64{-60, -65, -62, -68}

	r, ok := Pearson(x, y, 3)
	assert.True(t, ok)
	assert.Equal(t, 0.0, r)
}

func TestJitter(t *testing.T) {
	assert.Equal(t, 0.0, Jitter(nil))
	assert.Equal(t, 0.0, Jitter([]float64{-70}))
	assert.InDelta(t, 2.0, Jitter([]float64{-70, -72}), 1e-9)
	assert.InDelta(t, 3.0, Jitter([]float64{-70, -72, -68}), 1e-9)
	assert.Equal(t, 0.0, Jitter([]float64{-70, -70, -70}))
}

func TestVariance(t *testing.T) {
	assert.Equal(t, 0.0, Variance(nil))
	assert.Equal(t, 0.0, Variance([]float64{-70, -70, -70}))
	assert.InDelta(t, 2.0, Variance([]float64{1, 2, 3, 4, 5}), 1e-9)
}
