// Package function provides the library of scalar time functions that
// independent evaluators are built from. Each constructor validates its
// parameters once and returns a closure that is pure in t, so evaluator
// code can call it on every clock change without further checking.
package function

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/interp"
)

// Func evaluates a quantity at simulation time t.
type Func func(t float64) float64

// Constant returns f(t) = value.
func Constant(value float64) Func {
	return func(float64) float64 { return value }
}

// Linear returns f(t) = intercept + slope*(t - reference).
func Linear(intercept, slope, reference float64) Func {
	return func(t float64) float64 {
		return intercept + slope*(t-reference)
	}
}

// Sinusoid returns f(t) = mean + amplitude*sin(2pi*(t - shift)/period).
// The period must be positive.
func Sinusoid(mean, amplitude, period, shift float64) (Func, error) {
	if period <= 0 {
		return nil, fmt.Errorf("function: sinusoid period must be positive, got %v", period)
	}
	omega := 2 * math.Pi / period
	return func(t float64) float64 {
		return mean + amplitude*math.Sin(omega*(t-shift))
	}, nil
}

// Polynomial returns f(t) = sum c[i]*(t - reference)^p[i]. Exponents are
// integers and may be negative. Terms sharing an exponent are summed.
func Polynomial(coefficients []float64, exponents []int, reference float64) (Func, error) {
	if len(coefficients) == 0 {
		return nil, errors.New("function: polynomial needs at least one term")
	}
	if len(coefficients) != len(exponents) {
		return nil, fmt.Errorf("function: polynomial has %d coefficients for %d exponents",
			len(coefficients), len(exponents))
	}

	pmin, pmax := 0, 0
	for _, p := range exponents {
		pmin = min(pmin, p)
		pmax = max(pmax, p)
	}
	dense := make([]float64, pmax-pmin+1)
	for i, p := range exponents {
		dense[p-pmin] += coefficients[i]
	}

	return func(t float64) float64 {
		// Horner over the non-negative exponents.
		y := dense[pmax-pmin]
		if pmax > 0 {
			z := t - reference
			for j := pmax; j > 0; j-- {
				y = dense[j-1-pmin] + z*y
			}
		}
		// Horner in 1/(t - reference) over the negative exponents.
		if pmin < 0 {
			w := dense[0]
			z := 1 / (t - reference)
			for j := pmin; j < -1; j++ {
				w = dense[j+1-pmin] + z*w
			}
			y += z * w
		}
		return y
	}, nil
}

// Tabular returns the piecewise-linear interpolant through the given
// (time, value) pairs, with constant extension outside the table. Times
// must strictly increase and at least two points are required.
func Tabular(times, values []float64) (Func, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("function: table has %d times for %d values",
			len(times), len(values))
	}
	if len(times) < 2 {
		return nil, errors.New("function: table needs at least two points")
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, fmt.Errorf("function: table times must strictly increase, got %v after %v",
				times[i], times[i-1])
		}
	}

	ts := slices.Clone(times)
	vs := slices.Clone(values)
	var pl interp.PiecewiseLinear
	if err := pl.Fit(ts, vs); err != nil {
		return nil, fmt.Errorf("function: table: %w", err)
	}
	lo, hi := ts[0], ts[len(ts)-1]
	return func(t float64) float64 {
		return pl.Predict(min(max(t, lo), hi))
	}, nil
}
