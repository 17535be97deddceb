package evaluator

import (
	"fmt"

	"github.com/karst-sim/karst/internal/keys"
	"github.com/karst-sim/karst/internal/state"
)

// Func produces an independent node's value at a given time.
type Func[T any] func(t float64) (T, error)

// Independent is a graph leaf computed from an explicit function of
// the simulation time at its own tag. It has no field dependencies
// and recomputes exactly when its clock moves.
type Independent[T any] struct {
	node
	fn             Func[T]
	constantInTime bool
	computedOnce   bool
	lastTime       float64
}

// NewIndependent builds an independent node for (key, tag) driven by
// fn.
func NewIndependent[T any](key keys.Key, tag keys.Tag, fn Func[T]) *Independent[T] {
	if fn == nil {
		panic(fmt.Sprintf("evaluator: independent %s constructed without a function",
			keys.KeyTag{Key: key, Tag: tag}))
	}
	return &Independent[T]{node: newNode(key, tag), fn: fn}
}

// ConstantInTime marks the node as time-invariant: it computes once
// and never again.
func (e *Independent[T]) ConstantInTime() *Independent[T] {
	e.constantInTime = true
	return e
}

func (e *Independent[T]) Kind() state.EvaluatorKind   { return state.KindIndependent }
func (e *Independent[T]) Dependencies() []keys.KeyTag { return nil }

// Update recomputes when the node has never computed or its tag's
// clock moved since the last computation.
func (e *Independent[T]) Update(s *state.State, requester keys.KeyTag) (bool, error) {
	t, err := s.Time(e.tag)
	if err != nil {
		return false, fmt.Errorf("evaluator %s: %w", e.me(), err)
	}
	if !e.computedOnce || (!e.constantInTime && t != e.lastTime) {
		v, err := e.fn(t)
		if err != nil {
			return false, fmt.Errorf("evaluator %s: %w", e.me(), err)
		}
		if err := state.Set(s, e.key, e.tag, e.key, v); err != nil {
			return false, err
		}
		e.computedOnce = true
		e.lastTime = t
		e.resetRequests(requester)
		return true, nil
	}
	if !e.serviced(requester) {
		e.recordRequest(requester)
		return true, nil
	}
	return false, nil
}

// UpdateDerivative fails: independent nodes are opaque functions of
// time, not differentiable graph structure.
func (e *Independent[T]) UpdateDerivative(s *state.State, wrt, requester keys.KeyTag) (bool, error) {
	return false, fmt.Errorf("evaluator %s: independent nodes are not differentiable", e.me())
}

func (e *Independent[T]) IsDifferentiableWRT(s *state.State, wrt keys.KeyTag) bool { return false }

// EnsureCompatibility claims the node's field and its tag's clock.
func (e *Independent[T]) EnsureCompatibility(s *state.State) error {
	if err := state.Require[T](s, e.key, e.tag, e.key); err != nil {
		return err
	}
	return s.RequireTimeTag(e.tag)
}
