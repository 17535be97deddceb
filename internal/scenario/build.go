package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/karst-sim/karst/internal/ctxlog"
	"github.com/karst-sim/karst/internal/keys"
	"github.com/karst-sim/karst/internal/registry"
	"github.com/karst-sim/karst/internal/state"
)

// Scenario is a fully wired simulation: a state with every field,
// evaluator, and initial condition declared, plus the run parameters
// the driver needs. Setup and Initialize remain the caller's calls, so
// inspection flows (graph export) can stop before initial conditions
// are applied.
type Scenario struct {
	State    *state.State
	Time     TimeBlock
	Observed []keys.KeyTag
}

// Load reads, validates, and builds the scenario at path.
func Load(ctx context.Context, tbl *registry.Table, path string) (*Scenario, error) {
	doc, err := LoadDocument(ctx, path)
	if err != nil {
		return nil, err
	}
	return Build(ctx, tbl, doc)
}

// Build validates a document and constructs the scenario. Validation
// collects every defect before failing, so one round trip surfaces
// them all.
func Build(ctx context.Context, tbl *registry.Table, doc *Document) (*Scenario, error) {
	logger := ctxlog.FromContext(ctx)

	if err := validate(tbl, doc); err != nil {
		return nil, err
	}

	s := state.New(logger)

	for _, fb := range doc.Fields {
		if err := declareField(s, fb); err != nil {
			return nil, err
		}
	}

	for _, eb := range doc.Evaluators {
		spec, err := toSpec(eb)
		if err != nil {
			return nil, err
		}
		e, err := tbl.Build(eb.Kind, spec)
		if err != nil {
			return nil, err
		}
		if err := s.SetEvaluator(e); err != nil {
			return nil, err
		}
	}

	for _, ib := range doc.Initials {
		v, err := icValue(ib)
		if err != nil {
			return nil, err
		}
		state.SetInitialValue(s, keys.Key(ib.Field), keys.Tag(ib.Tag), v)
	}

	// The clock starts at the period start so Initialize evaluates
	// independent fields at the right time.
	if err := s.SetTime(keys.Default, doc.Time.Start); err != nil {
		return nil, err
	}
	s.SetPosition(state.TimePeriodStart)

	observed := make([]keys.KeyTag, len(doc.Observed))
	for i, o := range doc.Observed {
		observed[i] = keys.Parse(o)
	}

	logger.Debug("Scenario built.",
		"fields", len(doc.Fields),
		"evaluators", len(doc.Evaluators),
		"observed", len(observed),
	)
	return &Scenario{State: s, Time: *doc.Time, Observed: observed}, nil
}

// validate checks the aggregated document for every static defect it
// can find and reports them together.
func validate(tbl *registry.Table, doc *Document) error {
	var errs *multierror.Error

	if doc.Time == nil {
		errs = multierror.Append(errs, errors.New("scenario: missing time block"))
	} else {
		if doc.Time.Step <= 0 {
			errs = multierror.Append(errs, fmt.Errorf("scenario: time step must be positive, got %v", doc.Time.Step))
		}
		if doc.Time.Stop < doc.Time.Start {
			errs = multierror.Append(errs, fmt.Errorf("scenario: time stop %v precedes start %v", doc.Time.Stop, doc.Time.Start))
		}
	}

	fields := make(map[keys.KeyTag]bool)
	for _, fb := range doc.Fields {
		key := keys.Key(fb.Name)
		if fields[keys.KeyTag{Key: key}] {
			errs = multierror.Append(errs, fmt.Errorf("scenario: field %q declared more than once", fb.Name))
			continue
		}
		fields[keys.KeyTag{Key: key}] = true
		for _, tag := range fb.Tags {
			fields[keys.KeyTag{Key: key, Tag: keys.Tag(tag)}] = true
		}
	}

	evaluators := make(map[keys.KeyTag]bool)
	for _, eb := range doc.Evaluators {
		id := keys.KeyTag{Key: keys.Key(eb.Name), Tag: keys.Tag(eb.Tag)}
		if evaluators[id] {
			errs = multierror.Append(errs, fmt.Errorf("scenario: evaluator %s declared more than once", id))
			continue
		}
		evaluators[id] = true
		if !tbl.Has(eb.Kind) {
			errs = multierror.Append(errs, fmt.Errorf("scenario: evaluator %s: unknown kind %q (have %v)", id, eb.Kind, tbl.Kinds()))
		}
		if eb.Function != nil {
			if _, err := buildFunction(eb.Function); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("scenario: evaluator %s: %w", id, err))
			}
		}
	}

	// Dependencies may reference evaluator blocks in any file, so they
	// resolve against the full set.
	for _, eb := range doc.Evaluators {
		id := keys.KeyTag{Key: keys.Key(eb.Name), Tag: keys.Tag(eb.Tag)}
		for _, dep := range eb.Dependencies {
			if !evaluators[keys.Parse(dep)] {
				errs = multierror.Append(errs, fmt.Errorf("scenario: evaluator %s: dependency %s has no evaluator", id, dep))
			}
		}
	}

	for _, ib := range doc.Initials {
		id := keys.KeyTag{Key: keys.Key(ib.Field), Tag: keys.Tag(ib.Tag)}
		if !fields[id] && !evaluators[id] {
			errs = multierror.Append(errs, fmt.Errorf("scenario: initial condition for undeclared field %s", id))
			continue
		}
		if _, err := icValue(ib); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	for _, o := range doc.Observed {
		if !evaluators[keys.Parse(o)] {
			errs = multierror.Append(errs, fmt.Errorf("scenario: observed field %s has no evaluator", o))
		}
	}

	return errs.ErrorOrNil()
}

// declareField requires the field's records and applies its IO flags.
// Scenario fields are scalar; structured fields are wired through the
// library API.
func declareField(s *state.State, fb *FieldBlock) error {
	key := keys.Key(fb.Name)
	tags := make([]keys.Tag, 0, len(fb.Tags)+1)
	tags = append(tags, keys.Default)
	for _, t := range fb.Tags {
		tags = append(tags, keys.Tag(t))
	}
	for _, tag := range tags {
		if err := state.Require[float64](s, key, tag, ""); err != nil {
			return fmt.Errorf("field %q: %w", fb.Name, err)
		}
		r, err := s.Record(key, tag)
		if err != nil {
			return err
		}
		if fb.Vis != nil {
			r.SetVis(*fb.Vis)
		}
		if fb.Checkpoint != nil {
			r.SetCheckpoint(*fb.Checkpoint)
		}
	}
	return nil
}

// toSpec lowers an evaluator block into the factory spec.
func toSpec(eb *EvaluatorBlock) (registry.Spec, error) {
	spec := registry.Spec{
		Key:            keys.Key(eb.Name),
		Tag:            keys.Tag(eb.Tag),
		Coefficients:   eb.Coefficients,
		Shift:          eb.Shift,
		Coefficient:    eb.Coefficient,
		ConstantInTime: eb.ConstantInTime,
	}
	for _, dep := range eb.Dependencies {
		spec.Dependencies = append(spec.Dependencies, keys.Parse(dep))
	}
	for _, dep := range eb.Reciprocal {
		spec.Reciprocal = append(spec.Reciprocal, keys.Parse(dep))
	}
	if eb.Function != nil {
		fn, err := buildFunction(eb.Function)
		if err != nil {
			return registry.Spec{}, fmt.Errorf("evaluator %q: %w", eb.Name, err)
		}
		spec.Function = fn
	}
	return spec, nil
}

// icValue converts an initial-condition value to the scalar the
// registry stores.
func icValue(ib *InitialBlock) (float64, error) {
	id := keys.KeyTag{Key: keys.Key(ib.Field), Tag: keys.Tag(ib.Tag)}
	converted, err := convert.Convert(ib.Value, cty.Number)
	if err != nil {
		return 0, fmt.Errorf("scenario: initial condition %s: %w", id, err)
	}
	var f float64
	if err := gocty.FromCtyValue(converted, &f); err != nil {
		return 0, fmt.Errorf("scenario: initial condition %s: %w", id, err)
	}
	return f, nil
}
