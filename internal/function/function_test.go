package function

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstant(t *testing.T) {
	f := Constant(9.81)
	assert.Equal(t, 9.81, f(0))
	assert.Equal(t, 9.81, f(1e6))
}

func TestLinear(t *testing.T) {
	f := Linear(2, 0.5, 10)
	assert.InDelta(t, 2.0, f(10), 1e-12)
	assert.InDelta(t, 3.0, f(12), 1e-12)
	assert.InDelta(t, 1.0, f(8), 1e-12)
}

func TestSinusoid(t *testing.T) {
	f, err := Sinusoid(1, 2, 4, 1)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, f(1), 1e-12, "zero crossing at the shift")
	assert.InDelta(t, 3.0, f(2), 1e-12, "peak a quarter period later")
	assert.InDelta(t, 1.0, f(3), 1e-12)
	assert.InDelta(t, -1.0, f(4), 1e-12, "trough")

	_, err = Sinusoid(0, 1, 0, 0)
	assert.ErrorContains(t, err, "period must be positive")
	_, err = Sinusoid(0, 1, -3, 0)
	assert.Error(t, err)
}

func TestPolynomial(t *testing.T) {
	t.Run("quadratic plus quartic", func(t *testing.T) {
		f, err := Polynomial([]float64{1, 1}, []int{2, 4}, 0)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, f(0), 1e-12)
		assert.InDelta(t, 2.0, f(1), 1e-12)
		assert.InDelta(t, 90.0, f(3), 1e-12)
	})

	t.Run("negative exponents", func(t *testing.T) {
		f, err := Polynomial([]float64{3, 2}, []int{0, -1}, 0)
		require.NoError(t, err)
		assert.InDelta(t, 4.0, f(2), 1e-12)
		assert.InDelta(t, 7.0, f(0.5), 1e-12)
	})

	t.Run("reference point shifts the argument", func(t *testing.T) {
		f, err := Polynomial([]float64{1}, []int{2}, 5)
		require.NoError(t, err)
		assert.InDelta(t, 9.0, f(8), 1e-12)
	})

	t.Run("repeated exponents accumulate", func(t *testing.T) {
		f, err := Polynomial([]float64{1, 2}, []int{3, 3}, 0)
		require.NoError(t, err)
		assert.InDelta(t, 24.0, f(2), 1e-12)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := Polynomial(nil, nil, 0)
		assert.ErrorContains(t, err, "at least one term")
		_, err = Polynomial([]float64{1, 2}, []int{0}, 0)
		assert.ErrorContains(t, err, "2 coefficients for 1 exponents")
	})
}

func TestTabular(t *testing.T) {
	f, err := Tabular([]float64{0, 1, 3}, []float64{10, 20, 40})
	require.NoError(t, err)

	t.Run("knots and midpoints", func(t *testing.T) {
		assert.InDelta(t, 10.0, f(0), 1e-12)
		assert.InDelta(t, 20.0, f(1), 1e-12)
		assert.InDelta(t, 15.0, f(0.5), 1e-12)
		assert.InDelta(t, 30.0, f(2), 1e-12)
	})

	t.Run("constant extension outside the table", func(t *testing.T) {
		assert.InDelta(t, 10.0, f(-5), 1e-12)
		assert.InDelta(t, 40.0, f(100), 1e-12)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := Tabular([]float64{0, 1}, []float64{1})
		assert.ErrorContains(t, err, "2 times for 1 values")
		_, err = Tabular([]float64{0}, []float64{1})
		assert.ErrorContains(t, err, "at least two points")
		_, err = Tabular([]float64{0, 2, 1}, []float64{1, 2, 3})
		assert.ErrorContains(t, err, "strictly increase")
		_, err = Tabular([]float64{0, 0, 1}, []float64{1, 2, 3})
		assert.Error(t, err)
	})

	t.Run("input slices are not retained", func(t *testing.T) {
		ts := []float64{0, 1}
		vs := []float64{5, 6}
		g, err := Tabular(ts, vs)
		require.NoError(t, err)
		vs[0] = 999
		assert.InDelta(t, 5.0, g(0), 1e-12)
	})
}
