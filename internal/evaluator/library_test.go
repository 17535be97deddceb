package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karst-sim/karst/internal/keys"
	"github.com/karst-sim/karst/internal/state"
	"github.com/karst-sim/karst/internal/vector"
)

// buildPair registers primaries x = 4 and y = 5 plus the evaluator
// under test and brings the state up.
func buildPair(t *testing.T, e state.Evaluator) *state.State {
	t.Helper()
	s := state.New(nil)
	require.NoError(t, s.SetEvaluator(NewPrimary[float64]("x", keys.Default)))
	require.NoError(t, s.SetEvaluator(NewPrimary[float64]("y", keys.Default)))
	require.NoError(t, s.SetEvaluator(e))
	state.SetInitialValue(s, "x", keys.Default, 4.0)
	state.SetInitialValue(s, "y", keys.Default, 5.0)
	require.NoError(t, s.Setup())
	require.NoError(t, s.Initialize())
	return s
}

func TestAdditive(t *testing.T) {
	add, err := NewAdditive(AdditiveConfig{
		Key:   "z",
		Terms: []Term{{Dep: kt("x"), Coef: 2}, {Dep: kt("y"), Coef: -1}},
		Shift: 10,
	})
	require.NoError(t, err)
	s := buildPair(t, add)

	assert.InDelta(t, 10+2*4-5.0, value(t, s, "z"), 1e-12)

	z, err := s.GetEvaluator("z", keys.Default)
	require.NoError(t, err)
	_, err = z.UpdateDerivative(s, kt("x"), driver)
	require.NoError(t, err)
	_, err = z.UpdateDerivative(s, kt("y"), driver)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, deriv(t, s, "z", "x"), 1e-12)
	assert.InDelta(t, -1.0, deriv(t, s, "z", "y"), 1e-12)
}

func TestMultiplicative(t *testing.T) {
	mul, err := NewMultiplicative(MultiplicativeConfig{
		Key:          "z",
		Dependencies: []keys.KeyTag{kt("x"), kt("y")},
		Coefficient:  3,
	})
	require.NoError(t, err)
	s := buildPair(t, mul)

	assert.InDelta(t, 3*4*5.0, value(t, s, "z"), 1e-12)

	z, err := s.GetEvaluator("z", keys.Default)
	require.NoError(t, err)
	_, err = z.UpdateDerivative(s, kt("x"), driver)
	require.NoError(t, err)

	assert.InDelta(t, 15.0, deriv(t, s, "z", "x"), 1e-12)
}

func TestMultiplicativeReciprocal(t *testing.T) {
	ratio, err := NewMultiplicative(MultiplicativeConfig{
		Key:          "ratio",
		Dependencies: []keys.KeyTag{kt("x"), kt("y")},
		Reciprocal:   []keys.KeyTag{kt("y")},
	})
	require.NoError(t, err)
	s := buildPair(t, ratio)

	assert.InDelta(t, 4.0/5.0, value(t, s, "ratio"), 1e-12)

	r, err := s.GetEvaluator("ratio", keys.Default)
	require.NoError(t, err)
	_, err = r.UpdateDerivative(s, kt("y"), driver)
	require.NoError(t, err)

	assert.InDelta(t, -4.0/25.0, deriv(t, s, "ratio", "y"), 1e-12,
		"d(x/y)/dy = -x/y^2")
}

func TestVectorAdditiveDAG(t *testing.T) {
	s := state.New(nil)
	sp := vector.NewSpace().With("cell", 3)

	require.NoError(t, s.SetEvaluator(NewPrimary[vector.Vector]("head", keys.Default)))
	sec, err := NewVectorAdditive(VectorAdditiveConfig{
		Key:   "storage",
		Space: sp,
		Terms: []Term{{Dep: kt("head"), Coef: 0.4}},
		Shift: 0.1,
	})
	require.NoError(t, err)
	require.NoError(t, s.SetEvaluator(sec))

	require.NoError(t, s.Setup())

	negotiated, ok := s.Space("head")
	require.True(t, ok, "structure propagates to dependencies")
	ic := negotiated.NewVector()
	require.NoError(t, ic.SetComponent("cell", []float64{1, 2, 3}))
	state.SetInitialValue(s, "head", keys.Default, ic)

	require.NoError(t, s.Initialize())

	v, err := state.Get[vector.Vector](s, "storage", keys.Default)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.9, 1.3}, v.Component("cell"), 1e-12)

	t.Run("entrywise chain rule", func(t *testing.T) {
		_, err := sec.UpdateDerivative(s, kt("head"), driver)
		require.NoError(t, err)

		d, err := state.GetDerivative[vector.Vector](s, "storage", keys.Default, kt("head"))
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{0.4, 0.4, 0.4}, d.Component("cell"), 1e-12)
	})

	t.Run("registry storage does not alias the staged value", func(t *testing.T) {
		ic.Component("cell")[0] = 99

		v, err := state.Get[vector.Vector](s, "head", keys.Default)
		require.NoError(t, err)
		assert.Equal(t, 1.0, v.Component("cell")[0])
	})
}

func TestElementwiseAlgebra(t *testing.T) {
	sp := vector.NewSpace().With("cell", 2)
	a := Elementwise(sp)

	x := a.Const(3)
	assert.Equal(t, []float64{3, 3}, x.Component("cell"))

	y := a.Const(2)
	a.AddScaled(&x, 2, y)
	assert.Equal(t, []float64{7, 7}, x.Component("cell"))

	z := a.Mul(x, y)
	assert.Equal(t, []float64{14, 14}, z.Component("cell"))
	assert.Equal(t, []float64{7, 7}, x.Component("cell"), "mul does not touch its operands")

	inv := a.Inv(y)
	assert.Equal(t, []float64{0.5, 0.5}, inv.Component("cell"))
}
