package state

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/karst-sim/karst/internal/keys"
	"github.com/karst-sim/karst/internal/record"
	"github.com/karst-sim/karst/internal/vector"
)

// EvaluatorKind classifies graph nodes by how their value is
// produced.
type EvaluatorKind int

const (
	// KindPrimary marks a node whose value is set directly by an
	// outside collaborator.
	KindPrimary EvaluatorKind = iota
	// KindIndependent marks a node computed from an explicit
	// function of time, with no field dependencies.
	KindIndependent
	// KindSecondary marks a node computed from other fields.
	KindSecondary
)

func (k EvaluatorKind) String() string {
	switch k {
	case KindPrimary:
		return "primary"
	case KindIndependent:
		return "independent"
	case KindSecondary:
		return "secondary"
	}
	return fmt.Sprintf("EvaluatorKind(%d)", int(k))
}

// Evaluator is one node of the dependency graph. Implementations keep
// their value at (Key, Tag) fresh and answer derivative queries.
type Evaluator interface {
	Key() keys.Key
	Tag() keys.Tag
	Kind() EvaluatorKind

	// Dependencies returns the upstream nodes in declaration order.
	Dependencies() []keys.KeyTag

	// Update brings the node's value up to date on behalf of
	// requester. It reports whether the value may have changed since
	// this requester last asked.
	Update(s *State, requester keys.KeyTag) (bool, error)

	// UpdateDerivative brings the derivative of this node with
	// respect to wrt up to date on behalf of requester, reporting
	// change the same way Update does.
	UpdateDerivative(s *State, wrt, requester keys.KeyTag) (bool, error)

	// IsDifferentiableWRT reports whether wrt is reachable from this
	// node through differentiable structure.
	IsDifferentiableWRT(s *State, wrt keys.KeyTag) bool

	// EnsureCompatibility declares the node's storage requirements.
	// Called exactly once per node during Setup.
	EnsureCompatibility(s *State) error
}

type derivID struct {
	kt  keys.KeyTag
	wrt keys.KeyTag
}

// State is the registry of fields, derivatives, and evaluators, and
// the entry point for the Setup/Initialize lifecycle. It is not safe
// for concurrent use; exactly one logical thread drives the graph.
type State struct {
	log *slog.Logger

	data   map[keys.Key]*record.Set
	spaces map[keys.Key]*vector.Space
	derivs map[keys.Key]*record.Set

	evals   map[keys.KeyTag]Evaluator
	factory func(keys.KeyTag) (Evaluator, error)

	ics map[keys.KeyTag]func() error

	updating    map[keys.KeyTag]struct{}
	updateStack []keys.KeyTag
	derivating  map[derivID]struct{}
	derivStack  []derivID

	position  Position
	setupDone bool
}

// New returns an empty State. Time and cycle exist from birth as
// ordinary records at the default tag, initialized to zero. A nil
// logger discards.
func New(log *slog.Logger) *State {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &State{
		log:        log,
		data:       map[keys.Key]*record.Set{},
		spaces:     map[keys.Key]*vector.Space{},
		derivs:     map[keys.Key]*record.Set{},
		evals:      map[keys.KeyTag]Evaluator{},
		ics:        map[keys.KeyTag]func() error{},
		updating:   map[keys.KeyTag]struct{}{},
		derivating: map[derivID]struct{}{},
	}
	mustInitScalar(s, KeyTime, keys.Default, 0.0)
	mustInitScalar(s, KeyCycle, keys.Default, 0)
	return s
}

// Log returns the state's logger.
func (s *State) Log() *slog.Logger { return s.log }

// mustInitScalar creates and fills a built-in bookkeeping record.
// Only called on a fresh State, where failure is impossible short of
// a bug.
func mustInitScalar[T any](s *State, key keys.Key, tag keys.Tag, v T) {
	if err := Require[T](s, key, tag, ""); err != nil {
		panic(fmt.Sprintf("state: init %q: %v", key, err))
	}
	set := s.data[key]
	if err := set.CreateData(); err != nil {
		panic(fmt.Sprintf("state: init %q: %v", key, err))
	}
	if err := record.Store(set, tag, v); err != nil {
		panic(fmt.Sprintf("state: init %q: %v", key, err))
	}
}

// SetEvaluator registers e under its own (Key, Tag). Registering two
// evaluators for one node is a wiring defect.
func (s *State) SetEvaluator(e Evaluator) error {
	kt := keys.KeyTag{Key: e.Key(), Tag: e.Tag()}
	if _, ok := s.evals[kt]; ok {
		return fmt.Errorf("state: evaluator %s already registered", kt)
	}
	s.evals[kt] = e
	return nil
}

// GetEvaluator returns the evaluator at (key, tag).
func (s *State) GetEvaluator(key keys.Key, tag keys.Tag) (Evaluator, error) {
	kt := keys.KeyTag{Key: key, Tag: tag}
	e, ok := s.evals[kt]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingEvaluator, kt)
	}
	return e, nil
}

// HasEvaluator reports whether (key, tag) has an evaluator.
func (s *State) HasEvaluator(key keys.Key, tag keys.Tag) bool {
	_, ok := s.evals[keys.KeyTag{Key: key, Tag: tag}]
	return ok
}

// SetEvaluatorFactory installs a hook that constructs evaluators on
// demand for RequireEvaluator. Configuration loaders use this so
// dependencies referenced before their own declaration still
// resolve.
func (s *State) SetEvaluatorFactory(f func(keys.KeyTag) (Evaluator, error)) {
	s.factory = f
}

// RequireEvaluator returns the evaluator at (key, tag), constructing
// and registering it through the factory when one is installed.
func (s *State) RequireEvaluator(key keys.Key, tag keys.Tag) (Evaluator, error) {
	kt := keys.KeyTag{Key: key, Tag: tag}
	if e, ok := s.evals[kt]; ok {
		return e, nil
	}
	if s.factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingEvaluator, kt)
	}
	e, err := s.factory(kt)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingEvaluator, kt, err)
	}
	if err := s.SetEvaluator(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *State) sortedEvaluators() []Evaluator {
	kts := make([]keys.KeyTag, 0, len(s.evals))
	for kt := range s.evals {
		kts = append(kts, kt)
	}
	sort.Slice(kts, func(i, j int) bool { return kts[i].String() < kts[j].String() })
	es := make([]Evaluator, len(kts))
	for i, kt := range kts {
		es[i] = s.evals[kt]
	}
	return es
}

// BeginUpdate enters kt's value recomputation, failing fast if kt is
// already on the walk. Callers pair it with EndUpdate.
func (s *State) BeginUpdate(kt keys.KeyTag) error {
	if _, ok := s.updating[kt]; ok {
		return fmt.Errorf("%w: %s", ErrCyclicDependency, cyclePath(s.updateStack, kt))
	}
	s.updating[kt] = struct{}{}
	s.updateStack = append(s.updateStack, kt)
	return nil
}

// EndUpdate leaves kt's value recomputation.
func (s *State) EndUpdate(kt keys.KeyTag) {
	delete(s.updating, kt)
	s.updateStack = s.updateStack[:len(s.updateStack)-1]
}

// BeginUpdateDerivative enters the derivative walk for d(kt)/d(wrt).
// The derivative walk is guarded independently of the value walk,
// since a node's derivative legitimately updates its own value.
func (s *State) BeginUpdateDerivative(kt, wrt keys.KeyTag) error {
	id := derivID{kt: kt, wrt: wrt}
	if _, ok := s.derivating[id]; ok {
		stack := make([]keys.KeyTag, len(s.derivStack))
		for i, d := range s.derivStack {
			stack[i] = d.kt
		}
		return fmt.Errorf("%w: %s (differentiating with respect to %s)",
			ErrCyclicDependency, cyclePath(stack, kt), wrt)
	}
	s.derivating[id] = struct{}{}
	s.derivStack = append(s.derivStack, id)
	return nil
}

// EndUpdateDerivative leaves the derivative walk for d(kt)/d(wrt).
func (s *State) EndUpdateDerivative(kt, wrt keys.KeyTag) {
	delete(s.derivating, derivID{kt: kt, wrt: wrt})
	s.derivStack = s.derivStack[:len(s.derivStack)-1]
}

func cyclePath(stack []keys.KeyTag, repeat keys.KeyTag) string {
	start := 0
	for i, kt := range stack {
		if kt == repeat {
			start = i
			break
		}
	}
	parts := make([]string, 0, len(stack)-start+1)
	for _, kt := range stack[start:] {
		parts = append(parts, kt.String())
	}
	parts = append(parts, repeat.String())
	return strings.Join(parts, " -> ")
}
