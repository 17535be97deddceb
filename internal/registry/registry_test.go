package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karst-sim/karst/internal/function"
	"github.com/karst-sim/karst/internal/keys"
	"github.com/karst-sim/karst/internal/state"
)

func kt(k keys.Key) keys.KeyTag { return keys.KeyTag{Key: k} }

func TestDefaultKinds(t *testing.T) {
	tbl := Default()
	assert.Equal(t, []string{"additive", "independent", "multiplicative", "primary"}, tbl.Kinds())
	assert.True(t, tbl.Has("additive"))
	assert.False(t, tbl.Has("tensor"))
}

func TestRegisterDuplicatePanics(t *testing.T) {
	tbl := Default()
	assert.Panics(t, func() {
		tbl.Register("primary", func(Spec) (state.Evaluator, error) { return nil, nil })
	})
}

func TestBuildUnknownKind(t *testing.T) {
	_, err := Default().Build("tensor", Spec{Key: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown evaluator kind "tensor"`)
	assert.Contains(t, err.Error(), "additive", "message lists the registered kinds")
}

func TestBuildPrimary(t *testing.T) {
	tbl := Default()

	e, err := tbl.Build("primary", Spec{Key: "pressure"})
	require.NoError(t, err)
	assert.Equal(t, state.KindPrimary, e.Kind())
	assert.Equal(t, keys.Key("pressure"), e.Key())

	_, err = tbl.Build("primary", Spec{Key: "pressure", Dependencies: []keys.KeyTag{kt("x")}})
	assert.ErrorContains(t, err, "take no dependencies")
}

func TestBuildIndependent(t *testing.T) {
	tbl := Default()

	e, err := tbl.Build("independent", Spec{Key: "recharge", Function: function.Constant(3)})
	require.NoError(t, err)
	assert.Equal(t, state.KindIndependent, e.Kind())

	_, err = tbl.Build("independent", Spec{Key: "recharge"})
	assert.ErrorContains(t, err, "needs a time function")
}

func TestBuildAdditive(t *testing.T) {
	tbl := Default()

	e, err := tbl.Build("additive", Spec{
		Key:          "storage",
		Dependencies: []keys.KeyTag{kt("head"), kt("recharge")},
		Coefficients: []float64{0.4, 1},
		Shift:        0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, state.KindSecondary, e.Kind())
	assert.Len(t, e.Dependencies(), 2)

	_, err = tbl.Build("additive", Spec{
		Key:          "storage",
		Dependencies: []keys.KeyTag{kt("head")},
		Coefficients: []float64{1, 2},
	})
	assert.ErrorContains(t, err, "2 coefficients for 1 dependencies")
}

func TestBuildMultiplicative(t *testing.T) {
	e, err := Default().Build("multiplicative", Spec{
		Key:          "flux",
		Dependencies: []keys.KeyTag{kt("conductivity"), kt("gradient")},
		Reciprocal:   []keys.KeyTag{kt("gradient")},
		Coefficient:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, state.KindSecondary, e.Kind())
}

func TestBuiltEvaluatorsRunInAState(t *testing.T) {
	tbl := Default()
	s := state.New(nil)

	head, err := tbl.Build("primary", Spec{Key: "head"})
	require.NoError(t, err)
	recharge, err := tbl.Build("independent", Spec{
		Key:            "recharge",
		Function:       function.Constant(2),
		ConstantInTime: true,
	})
	require.NoError(t, err)
	storage, err := tbl.Build("additive", Spec{
		Key:          "storage",
		Dependencies: []keys.KeyTag{kt("head"), kt("recharge")},
		Coefficients: []float64{0.5, 1},
	})
	require.NoError(t, err)

	require.NoError(t, s.SetEvaluator(head))
	require.NoError(t, s.SetEvaluator(recharge))
	require.NoError(t, s.SetEvaluator(storage))
	state.SetInitialValue(s, "head", keys.Default, 6.0)
	require.NoError(t, s.Setup())
	require.NoError(t, s.Initialize())

	v, err := state.Get[float64](s, "storage", keys.Default)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, v, 1e-12)
}
