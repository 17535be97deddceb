package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/karst-sim/karst/internal/evaluator"
	"github.com/karst-sim/karst/internal/function"
	"github.com/karst-sim/karst/internal/keys"
	"github.com/karst-sim/karst/internal/state"
)

// Spec is the declarative description of one evaluator, decoded from
// scenario config. Each factory reads the subset of fields its kind
// understands and rejects what it cannot use.
type Spec struct {
	Key          keys.Key
	Tag          keys.Tag
	Dependencies []keys.KeyTag

	// Additive parameters.
	Coefficients []float64
	Shift        float64

	// Multiplicative parameters.
	Coefficient float64
	Reciprocal  []keys.KeyTag

	// Independent parameters.
	Function       function.Func
	ConstantInTime bool
}

// Factory builds an evaluator from its spec.
type Factory func(spec Spec) (state.Evaluator, error)

// Table holds the registered evaluator factories for one application
// instance.
type Table struct {
	factories map[string]Factory
}

// New creates an empty Table.
func New() *Table {
	return &Table{factories: make(map[string]Factory)}
}

// Register adds a factory under a kind name. Registering the same name
// twice is a programming error and panics.
func (t *Table) Register(kind string, f Factory) {
	if _, exists := t.factories[kind]; exists {
		panic(fmt.Sprintf("evaluator kind '%s' already registered", kind))
	}
	slog.Debug("Registering evaluator kind.", "kind", kind)
	t.factories[kind] = f
}

// Has reports whether a kind name is registered.
func (t *Table) Has(kind string) bool {
	_, ok := t.factories[kind]
	return ok
}

// Kinds returns the registered kind names in sorted order.
func (t *Table) Kinds() []string {
	names := make([]string, 0, len(t.factories))
	for name := range t.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs an evaluator of the named kind from spec.
func (t *Table) Build(kind string, spec Spec) (state.Evaluator, error) {
	f, ok := t.factories[kind]
	if !ok {
		return nil, fmt.Errorf("registry: unknown evaluator kind %q (have %v)", kind, t.Kinds())
	}
	e, err := f(spec)
	if err != nil {
		return nil, fmt.Errorf("registry: %s %s: %w", kind, keys.KeyTag{Key: spec.Key, Tag: spec.Tag}, err)
	}
	return e, nil
}

// Default returns a Table with the stock scalar kinds registered.
func Default() *Table {
	t := New()
	t.Register("primary", buildPrimary)
	t.Register("independent", buildIndependent)
	t.Register("additive", buildAdditive)
	t.Register("multiplicative", buildMultiplicative)
	return t
}

func buildPrimary(spec Spec) (state.Evaluator, error) {
	if len(spec.Dependencies) > 0 {
		return nil, fmt.Errorf("primary evaluators take no dependencies, got %d", len(spec.Dependencies))
	}
	return evaluator.NewPrimary[float64](spec.Key, spec.Tag), nil
}

func buildIndependent(spec Spec) (state.Evaluator, error) {
	if spec.Function == nil {
		return nil, fmt.Errorf("independent evaluator needs a time function")
	}
	fn := spec.Function
	e := evaluator.NewIndependent(spec.Key, spec.Tag, func(t float64) (float64, error) {
		return fn(t), nil
	})
	if spec.ConstantInTime {
		e.ConstantInTime()
	}
	return e, nil
}

func buildAdditive(spec Spec) (state.Evaluator, error) {
	if len(spec.Coefficients) != len(spec.Dependencies) {
		return nil, fmt.Errorf("additive evaluator has %d coefficients for %d dependencies",
			len(spec.Coefficients), len(spec.Dependencies))
	}
	terms := make([]evaluator.Term, len(spec.Dependencies))
	for i, dep := range spec.Dependencies {
		terms[i] = evaluator.Term{Dep: dep, Coef: spec.Coefficients[i]}
	}
	return evaluator.NewAdditive(evaluator.AdditiveConfig{
		Key:   spec.Key,
		Tag:   spec.Tag,
		Terms: terms,
		Shift: spec.Shift,
	})
}

func buildMultiplicative(spec Spec) (state.Evaluator, error) {
	return evaluator.NewMultiplicative(evaluator.MultiplicativeConfig{
		Key:          spec.Key,
		Tag:          spec.Tag,
		Dependencies: spec.Dependencies,
		Reciprocal:   spec.Reciprocal,
		Coefficient:  spec.Coefficient,
	})
}
