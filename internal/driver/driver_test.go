package driver

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karst-sim/karst/internal/ctxlog"
	"github.com/karst-sim/karst/internal/evaluator"
	"github.com/karst-sim/karst/internal/function"
	"github.com/karst-sim/karst/internal/keys"
	"github.com/karst-sim/karst/internal/record"
	"github.com/karst-sim/karst/internal/state"
	"github.com/karst-sim/karst/internal/vector"
)

func testCtx() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))
}

func kt(k keys.Key) keys.KeyTag { return keys.KeyTag{Key: k} }

func value(t *testing.T, s *state.State, key keys.Key) float64 {
	t.Helper()
	v, err := state.Get[float64](s, key, keys.Default)
	require.NoError(t, err)
	return *v
}

// forcedGauge wires a time-driven independent field under an additive
// secondary, the smallest graph a cycle run exercises end to end.
func forcedGauge(t *testing.T, fn function.Func) *state.State {
	t.Helper()
	s := state.New(nil)
	ind := evaluator.NewIndependent("forcing", keys.Default, func(tm float64) (float64, error) {
		return fn(tm), nil
	})
	gauge, err := evaluator.NewAdditive(evaluator.AdditiveConfig{
		Key:   "gauge",
		Terms: []evaluator.Term{{Dep: kt("forcing"), Coef: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, s.SetEvaluator(ind))
	require.NoError(t, s.SetEvaluator(gauge))
	require.NoError(t, s.Setup())
	require.NoError(t, s.Initialize())
	return s
}

func TestRunTracksForcing(t *testing.T) {
	forcing, err := function.Sinusoid(2, 1, 8, 0)
	require.NoError(t, err)
	s := forcedGauge(t, forcing)

	d, err := New(s, Config{Start: 0, Stop: 4, Step: 1, Observed: []keys.KeyTag{kt("gauge")}})
	require.NoError(t, err)
	require.NoError(t, d.Run(testCtx()))

	assert.InDelta(t, forcing(4), value(t, s, "gauge"), 1e-12)

	cycle, err := s.Cycle()
	require.NoError(t, err)
	assert.Equal(t, 4, cycle)

	tm, err := s.Time(keys.Default)
	require.NoError(t, err)
	assert.Equal(t, 4.0, tm)
	assert.Equal(t, state.TimePeriodEnd, s.Position())
}

func TestRunRecomputesOncePerCycle(t *testing.T) {
	s := state.New(nil)
	ind := evaluator.NewIndependent("forcing", keys.Default, func(tm float64) (float64, error) {
		return tm, nil
	})
	count := 0
	echo, err := evaluator.NewSecondary(evaluator.SecondaryConfig[float64]{
		Key:          "echo",
		Dependencies: []keys.KeyTag{kt("forcing")},
		Compute: func(deps []float64) (float64, error) {
			count++
			return deps[0], nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.SetEvaluator(ind))
	require.NoError(t, s.SetEvaluator(echo))
	require.NoError(t, s.Setup())
	require.NoError(t, s.Initialize())
	count = 0

	// Observing the same field twice per cycle must not recompute it
	// twice.
	d, err := New(s, Config{
		Start:    0,
		Stop:     4,
		Step:     1,
		Observed: []keys.KeyTag{kt("echo"), kt("echo")},
	})
	require.NoError(t, err)
	require.NoError(t, d.Run(testCtx()))

	assert.Equal(t, 4, count, "one recompute per clock change, none for the start observation")
	assert.InDelta(t, 4.0, value(t, s, "echo"), 1e-12)
}

func TestRunCommitsWorkingCopies(t *testing.T) {
	s := state.New(nil)
	require.NoError(t, s.SetEvaluator(evaluator.NewPrimary[float64]("level", keys.Default)))
	require.NoError(t, state.Require[float64](s, "level", keys.Next, ""))
	twice, err := evaluator.NewAdditive(evaluator.AdditiveConfig{
		Key:   "twice",
		Terms: []evaluator.Term{{Dep: kt("level"), Coef: 2}},
	})
	require.NoError(t, err)
	require.NoError(t, s.SetEvaluator(twice))
	state.SetInitialValue(s, "level", keys.Default, 1.0)
	require.NoError(t, s.Setup())
	require.NoError(t, s.Initialize())

	d, err := New(s, Config{
		Start:    0,
		Stop:     2,
		Step:     1,
		Observed: []keys.KeyTag{kt("twice")},
		Advance: func(ctx context.Context, s *state.State, told, tnew float64) error {
			set, err := s.RecordSet("level")
			if err != nil {
				return err
			}
			return record.Store(set, keys.Next, 10*tnew)
		},
	})
	require.NoError(t, err)
	require.NoError(t, d.Run(testCtx()))

	assert.InDelta(t, 20.0, value(t, s, "level"), 1e-12, "committed from the working copy")
	assert.InDelta(t, 40.0, value(t, s, "twice"), 1e-12, "downstream saw the committed write")
}

func TestRunClampsTheFinalStep(t *testing.T) {
	s := forcedGauge(t, function.Linear(0, 1, 0))

	d, err := New(s, Config{Start: 0, Stop: 2.5, Step: 1, Observed: []keys.KeyTag{kt("gauge")}})
	require.NoError(t, err)
	require.NoError(t, d.Run(testCtx()))

	tm, err := s.Time(keys.Default)
	require.NoError(t, err)
	assert.Equal(t, 2.5, tm)

	cycle, err := s.Cycle()
	require.NoError(t, err)
	assert.Equal(t, 3, cycle)
	assert.InDelta(t, 2.5, value(t, s, "gauge"), 1e-12)
}

func TestRunCanceledContext(t *testing.T) {
	s := forcedGauge(t, function.Constant(1))

	d, err := New(s, Config{Start: 0, Stop: 10, Step: 1, Observed: []keys.KeyTag{kt("gauge")}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(testCtx())
	cancel()
	err = d.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	cycle, cerr := s.Cycle()
	require.NoError(t, cerr)
	assert.Equal(t, 0, cycle, "no cycle ran")
}

func TestRunUnknownObservedField(t *testing.T) {
	s := forcedGauge(t, function.Constant(1))

	d, err := New(s, Config{Start: 0, Stop: 1, Step: 1, Observed: []keys.KeyTag{kt("phantom")}})
	require.NoError(t, err)
	err = d.Run(testCtx())
	require.Error(t, err)
	assert.ErrorIs(t, err, state.ErrMissingEvaluator)
}

func TestRunHidesNonVisObservedFields(t *testing.T) {
	s := forcedGauge(t, function.Linear(0, 1, 0))

	r, err := s.Record("forcing", keys.Default)
	require.NoError(t, err)
	r.SetVis(false)

	var logs bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&logs, nil)))

	d, err := New(s, Config{
		Start:    0,
		Stop:     1,
		Step:     1,
		Observed: []keys.KeyTag{kt("gauge"), kt("forcing")},
	})
	require.NoError(t, err)
	require.NoError(t, d.Run(ctx))

	assert.Contains(t, logs.String(), "gauge=")
	assert.NotContains(t, logs.String(), "forcing=")
	assert.InDelta(t, 1.0, value(t, s, "forcing"), 1e-12, "hidden fields still update")
}

func TestNewValidatesConfig(t *testing.T) {
	s := state.New(nil)

	_, err := New(s, Config{Start: 0, Stop: 1, Step: 0})
	assert.ErrorContains(t, err, "step must be positive")

	_, err = New(s, Config{Start: 5, Stop: 1, Step: 1})
	assert.ErrorContains(t, err, "stop 1 precedes start 5")
}

func TestVectorObservedReportsStats(t *testing.T) {
	s := state.New(nil)
	sp := vector.NewSpace().With("cell", 2)
	require.NoError(t, s.SetEvaluator(evaluator.NewPrimary[vector.Vector]("head", keys.Default)))
	storage, err := evaluator.NewVectorAdditive(evaluator.VectorAdditiveConfig{
		Key:   "storage",
		Space: sp,
		Terms: []evaluator.Term{{Dep: kt("head"), Coef: 0.4}},
		Shift: 0.1,
	})
	require.NoError(t, err)
	require.NoError(t, s.SetEvaluator(storage))
	require.NoError(t, s.Setup())

	negotiated, ok := s.Space("head")
	require.True(t, ok)
	ic := negotiated.NewVector()
	require.NoError(t, ic.SetComponent("cell", []float64{1, 3}))
	state.SetInitialValue(s, "head", keys.Default, ic)
	require.NoError(t, s.Initialize())

	d, err := New(s, Config{Start: 0, Stop: 1, Step: 1, Observed: []keys.KeyTag{kt("storage")}})
	require.NoError(t, err)
	require.NoError(t, d.Run(testCtx()))

	got, ok := d.describe(kt("storage")).(vector.Stats)
	require.True(t, ok)
	assert.InDelta(t, 0.5, got.Min, 1e-12)
	assert.InDelta(t, 1.3, got.Max, 1e-12)
	assert.InDelta(t, 0.9, got.Mean, 1e-12)
}
