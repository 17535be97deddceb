package evaluator

import (
	"errors"
	"fmt"

	"github.com/karst-sim/karst/internal/keys"
	"github.com/karst-sim/karst/internal/state"
)

// Compute produces a node's value from its dependencies' current
// values, ordered as declared. Implementations must not mutate the
// slice or the values.
type Compute[T any] func(deps []T) (T, error)

// Partial produces the exact partial derivative of the node with
// respect to its i'th dependency, evaluated at the dependencies'
// current values.
type Partial[T any] func(deps []T, i int) (T, error)

// SecondaryConfig describes a computed node. Compute is mandatory;
// Partial is needed only if derivatives of the node will be queried.
// Ensure runs after the standard storage requirements during Setup,
// for nodes with extra structural needs. A nil Algebra means the
// canonical algebra for T, which exists only for float64.
type SecondaryConfig[T any] struct {
	Key          keys.Key
	Tag          keys.Tag
	Dependencies []keys.KeyTag
	Compute      Compute[T]
	Partial      Partial[T]
	Ensure       func(*state.State) error
	Algebra      *Algebra[T]
}

// Secondary is a computed graph node: its value is a function of
// other fields, kept fresh lazily and differentiable by the chain
// rule when partials are supplied.
type Secondary[T any] struct {
	node
	deps         []keys.KeyTag
	compute      Compute[T]
	partial      Partial[T]
	ensure       func(*state.State) error
	algebra      Algebra[T]
	computedOnce bool
}

// NewSecondary validates cfg and builds the node.
func NewSecondary[T any](cfg SecondaryConfig[T]) (*Secondary[T], error) {
	if cfg.Key == "" {
		return nil, errors.New("evaluator: secondary needs a key")
	}
	kt := keys.KeyTag{Key: cfg.Key, Tag: cfg.Tag}
	if len(cfg.Dependencies) == 0 {
		return nil, fmt.Errorf("evaluator: secondary %s needs at least one dependency", kt)
	}
	if cfg.Compute == nil {
		return nil, fmt.Errorf("evaluator: secondary %s needs a compute function", kt)
	}
	e := &Secondary[T]{
		node:    newNode(cfg.Key, cfg.Tag),
		deps:    cfg.Dependencies,
		compute: cfg.Compute,
		partial: cfg.Partial,
		ensure:  cfg.Ensure,
	}
	if cfg.Algebra != nil {
		e.algebra = *cfg.Algebra
	} else if a, ok := defaultAlgebra[T](); ok {
		e.algebra = a
	}
	return e, nil
}

func (e *Secondary[T]) Kind() state.EvaluatorKind   { return state.KindSecondary }
func (e *Secondary[T]) Dependencies() []keys.KeyTag { return e.deps }

// setAlgebra is for construction helpers that can only finish the
// algebra once structure is negotiated during Setup.
func (e *Secondary[T]) setAlgebra(a Algebra[T]) { e.algebra = a }

// Update walks the dependencies first, letting each answer on behalf
// of this node, then recomputes if anything underneath moved. Change
// is reported per requester: a requester that has not seen the
// current value gets true even when no recompute happened.
func (e *Secondary[T]) Update(s *state.State, requester keys.KeyTag) (bool, error) {
	me := e.me()
	if err := s.BeginUpdate(me); err != nil {
		return false, err
	}
	defer s.EndUpdate(me)

	changed := false
	for _, dep := range e.deps {
		de, err := s.GetEvaluator(dep.Key, dep.Tag)
		if err != nil {
			return false, fmt.Errorf("evaluator %s: dependency %s: %w", me, dep, err)
		}
		ch, err := de.Update(s, me)
		if err != nil {
			return false, err
		}
		changed = changed || ch
	}

	if changed || !e.computedOnce {
		if err := e.recompute(s); err != nil {
			return false, err
		}
		e.computedOnce = true
		e.resetRequests(requester)
		e.clearDerivRequests()
		return true, nil
	}
	if !e.serviced(requester) {
		e.recordRequest(requester)
		return true, nil
	}
	return false, nil
}

func (e *Secondary[T]) depValues(s *state.State) ([]T, error) {
	vals := make([]T, len(e.deps))
	for i, dep := range e.deps {
		p, err := state.Get[T](s, dep.Key, dep.Tag)
		if err != nil {
			return nil, fmt.Errorf("evaluator %s: dependency %s: %w", e.me(), dep, err)
		}
		vals[i] = *p
	}
	return vals, nil
}

func (e *Secondary[T]) recompute(s *state.State) error {
	vals, err := e.depValues(s)
	if err != nil {
		return err
	}
	out, err := e.compute(vals)
	if err != nil {
		return fmt.Errorf("evaluator %s: %w", e.me(), err)
	}
	return state.Set(s, e.key, e.tag, e.key, out)
}

// UpdateDerivative brings d(this)/d(wrt) up to date. The node's own
// value updates first, since partials are evaluated at current
// dependency values; then every dependency that can reach wrt
// refreshes its derivative; then contributions accumulate by the
// chain rule. A wrt that no dependency reaches yields zero.
func (e *Secondary[T]) UpdateDerivative(s *state.State, wrt, requester keys.KeyTag) (bool, error) {
	me := e.me()
	if err := s.BeginUpdateDerivative(me, wrt); err != nil {
		return false, err
	}
	defer s.EndUpdateDerivative(me, wrt)

	// The forward pass requests on behalf of this derivative, not
	// this node, so a value already fresh for the node still counts
	// as new input to a derivative that has never computed.
	forward := keys.KeyTag{Key: keys.DerivName(e.key, wrt), Tag: e.tag}
	changed, err := e.Update(s, forward)
	if err != nil {
		return false, err
	}

	for _, dep := range e.deps {
		de, err := s.GetEvaluator(dep.Key, dep.Tag)
		if err != nil {
			return false, fmt.Errorf("evaluator %s: dependency %s: %w", me, dep, err)
		}
		if dep == wrt {
			ch, err := de.Update(s, me)
			if err != nil {
				return false, err
			}
			changed = changed || ch
		} else if de.IsDifferentiableWRT(s, wrt) {
			ch, err := de.UpdateDerivative(s, wrt, me)
			if err != nil {
				return false, err
			}
			changed = changed || ch
		}
	}

	if changed || e.derivRequestCount() == 0 {
		if err := e.recomputeDerivative(s, wrt); err != nil {
			return false, err
		}
		e.resetDerivRequests(wrt, requester)
		return true, nil
	}
	if !e.derivServiced(wrt, requester) {
		e.recordDerivRequest(wrt, requester)
		return true, nil
	}
	return false, nil
}

func (e *Secondary[T]) recomputeDerivative(s *state.State, wrt keys.KeyTag) error {
	if e.partial == nil {
		return fmt.Errorf("evaluator %s: no partial derivatives defined", e.me())
	}
	if e.algebra.Const == nil {
		return fmt.Errorf("evaluator %s: no algebra for derivatives", e.me())
	}
	vals, err := e.depValues(s)
	if err != nil {
		return err
	}

	acc := e.algebra.Const(0)
	for i, dep := range e.deps {
		if dep == wrt {
			p, err := e.partial(vals, i)
			if err != nil {
				return fmt.Errorf("evaluator %s: partial %s: %w", e.me(), dep, err)
			}
			e.algebra.Add(&acc, p)
			continue
		}
		de, err := s.GetEvaluator(dep.Key, dep.Tag)
		if err != nil {
			return fmt.Errorf("evaluator %s: dependency %s: %w", e.me(), dep, err)
		}
		if !de.IsDifferentiableWRT(s, wrt) {
			continue
		}
		p, err := e.partial(vals, i)
		if err != nil {
			return fmt.Errorf("evaluator %s: partial %s: %w", e.me(), dep, err)
		}
		g, err := state.GetDerivative[T](s, dep.Key, dep.Tag, wrt)
		if err != nil {
			return fmt.Errorf("evaluator %s: %w", e.me(), err)
		}
		e.algebra.Add(&acc, e.algebra.Mul(p, *g))
	}
	return state.SetDerivative(s, e.key, e.tag, wrt, acc)
}

// IsDifferentiableWRT reports whether wrt is reachable from this node
// through dependencies, directly or through other differentiable
// nodes.
func (e *Secondary[T]) IsDifferentiableWRT(s *state.State, wrt keys.KeyTag) bool {
	if wrt == e.me() {
		return false
	}
	for _, dep := range e.deps {
		if dep == wrt {
			return true
		}
		de, err := s.GetEvaluator(dep.Key, dep.Tag)
		if err == nil && de.IsDifferentiableWRT(s, wrt) {
			return true
		}
	}
	return false
}

// EnsureCompatibility claims the node's field, requires storage for
// every dependency, and insists each dependency has an evaluator.
// A dependency with no registered evaluator is constructed through
// the state's factory when one is installed; nodes born that way get
// their own compatibility check here, since Setup's sweep has
// already passed them by.
func (e *Secondary[T]) EnsureCompatibility(s *state.State) error {
	if err := state.Require[T](s, e.key, e.tag, e.key); err != nil {
		return err
	}
	for _, dep := range e.deps {
		if !s.HasEvaluator(dep.Key, dep.Tag) {
			de, err := s.RequireEvaluator(dep.Key, dep.Tag)
			if err != nil {
				return fmt.Errorf("evaluator %s: dependency %s: %w", e.me(), dep, err)
			}
			if err := de.EnsureCompatibility(s); err != nil {
				return err
			}
		}
		if err := state.Require[T](s, dep.Key, dep.Tag, ""); err != nil {
			return err
		}
	}
	if e.ensure != nil {
		return e.ensure(s)
	}
	return nil
}
