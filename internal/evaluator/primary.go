package evaluator

import (
	"fmt"

	"github.com/karst-sim/karst/internal/keys"
	"github.com/karst-sim/karst/internal/state"
)

// Primary is a graph leaf whose value is written from outside the
// graph. The writer calls SetChanged after mutating the field so
// downstream nodes recompute on their next update.
type Primary[T any] struct {
	node
	algebra Algebra[T]
}

// NewPrimary builds a primary node for (key, tag). The node claims
// ownership of its field during Setup.
func NewPrimary[T any](key keys.Key, tag keys.Tag) *Primary[T] {
	a, _ := defaultAlgebra[T]()
	return &Primary[T]{node: newNode(key, tag), algebra: a}
}

// WithAlgebra sets the arithmetic used for identity derivatives.
// Structured nodes need this; float64 nodes have it already.
func (e *Primary[T]) WithAlgebra(a Algebra[T]) *Primary[T] {
	e.algebra = a
	return e
}

func (e *Primary[T]) Kind() state.EvaluatorKind   { return state.KindPrimary }
func (e *Primary[T]) Dependencies() []keys.KeyTag { return nil }

// SetChanged invalidates every cached answer this node has given.
func (e *Primary[T]) SetChanged() {
	e.clearRequests()
	e.clearDerivRequests()
}

// Update reports whether the value changed since requester last
// asked. A primary never recomputes; change means an intervening
// SetChanged.
func (e *Primary[T]) Update(s *state.State, requester keys.KeyTag) (bool, error) {
	if e.serviced(requester) {
		return false, nil
	}
	e.recordRequest(requester)
	return true, nil
}

// UpdateDerivative stores the identity: one with respect to the node
// itself, zero with respect to anything else.
func (e *Primary[T]) UpdateDerivative(s *state.State, wrt, requester keys.KeyTag) (bool, error) {
	if e.derivServiced(wrt, requester) {
		return false, nil
	}
	if e.algebra.Const == nil {
		return false, fmt.Errorf("evaluator %s: no algebra for derivatives", e.me())
	}
	x := 0.0
	if wrt == e.me() {
		x = 1.0
	}
	if err := state.SetDerivative(s, e.key, e.tag, wrt, e.algebra.Const(x)); err != nil {
		return false, err
	}
	e.recordDerivRequest(wrt, requester)
	return true, nil
}

// IsDifferentiableWRT is always false: differentiation terminates at
// primaries, whose contribution enters through the direct-dependency
// case of the chain rule.
func (e *Primary[T]) IsDifferentiableWRT(s *state.State, wrt keys.KeyTag) bool { return false }

// EnsureCompatibility claims the node's field.
func (e *Primary[T]) EnsureCompatibility(s *state.State) error {
	return state.Require[T](s, e.key, e.tag, e.key)
}

// changeable is the invalidation capability of primary nodes.
type changeable interface {
	SetChanged()
}

// MarkChanged flags the primary node at (key, tag) so downstream
// nodes recompute on their next update. Collaborators call this
// after writing a new value into a primary field.
func MarkChanged(s *state.State, key keys.Key, tag keys.Tag) error {
	e, err := s.GetEvaluator(key, tag)
	if err != nil {
		return err
	}
	c, ok := e.(changeable)
	if !ok {
		return fmt.Errorf("evaluator %s is not a primary", keys.KeyTag{Key: key, Tag: tag})
	}
	c.SetChanged()
	return nil
}
