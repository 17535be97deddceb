package state

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/karst-sim/karst/internal/keys"
	"github.com/karst-sim/karst/internal/record"
)

// initRequester names the lifecycle itself as the requester for the
// first update of computed fields.
var initRequester = keys.KeyTag{Key: "state"}

// Setup finalizes the registry's shapes and types. Each evaluator
// declares its requirements exactly once; compatibility checks are
// idempotent and consult only already-known information, so no
// topological order is needed. All storage materializes afterwards.
func (s *State) Setup() error {
	for _, e := range s.sortedEvaluators() {
		if err := e.EnsureCompatibility(s); err != nil {
			return fmt.Errorf("setup %s: %w", keys.KeyTag{Key: e.Key(), Tag: e.Tag()}, err)
		}
	}
	for _, key := range s.sortedKeys() {
		if err := s.data[key].CreateData(); err != nil {
			return err
		}
	}
	for _, name := range s.sortedDerivKeys() {
		if err := s.derivs[name].CreateData(); err != nil {
			return err
		}
	}
	s.setupDone = true
	s.log.Debug("state setup complete",
		"fields", len(s.data),
		"evaluators", len(s.evals),
		"derivatives", len(s.derivs))
	return nil
}

// Initialize fills the graph's roots and verifies the registry is
// ready for queries.
func (s *State) Initialize() error {
	if err := s.InitializeFields(); err != nil {
		return err
	}
	if err := s.InitializeEvaluators(); err != nil {
		return err
	}
	if err := s.InitializeFieldCopies(); err != nil {
		return err
	}
	if err := s.CheckAllFieldsInitialized(); err != nil {
		return err
	}
	s.log.Debug("state initialized")
	return nil
}

// InitializeFields applies every staged initial condition. All
// failures are collected so a misconfigured run reports the full
// list at once.
func (s *State) InitializeFields() error {
	kts := make([]keys.KeyTag, 0, len(s.ics))
	for kt := range s.ics {
		kts = append(kts, kt)
	}
	sort.Slice(kts, func(i, j int) bool { return kts[i].String() < kts[j].String() })

	var errs *multierror.Error
	for _, kt := range kts {
		if err := s.ics[kt](); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("initial condition %s: %w", kt, err))
		}
	}
	return errs.ErrorOrNil()
}

// InitializeEvaluators brings every computed field up to date once.
// Primary nodes are skipped; their values come from initial
// conditions, and a primary without one stays uninitialized so the
// final check can name it.
func (s *State) InitializeEvaluators() error {
	for _, e := range s.sortedEvaluators() {
		if e.Kind() == KindPrimary {
			continue
		}
		if _, err := e.Update(s, initRequester); err != nil {
			return fmt.Errorf("initialize %s: %w", keys.KeyTag{Key: e.Key(), Tag: e.Tag()}, err)
		}
	}
	return nil
}

// InitializeFieldCopies fills still-uninitialized non-default records
// from their field's initialized default record, so alternate tags
// start as copies of the accepted value.
func (s *State) InitializeFieldCopies() error {
	for _, key := range s.sortedKeys() {
		set := s.data[key]
		if !set.HasRecord(keys.Default) {
			continue
		}
		def, err := set.Record(keys.Default)
		if err != nil || !def.Initialized() || !def.HasValue() {
			continue
		}
		for _, tag := range set.Tags() {
			if tag == keys.Default {
				continue
			}
			r, err := set.Record(tag)
			if err != nil || r.Initialized() || !r.HasValue() {
				continue
			}
			if err := s.Assign(key, tag, keys.Default); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckAllFieldsInitialized scans every record and reports every
// uninitialized one, rather than stopping at the first.
func (s *State) CheckAllFieldsInitialized() error {
	var errs *multierror.Error
	_ = s.Records(func(key keys.Key, tag keys.Tag, r *record.Record) error {
		if !r.Initialized() {
			errs = multierror.Append(errs,
				fmt.Errorf("field %q tag %q not initialized (owner %q)", key, tag, r.Owner()))
		}
		return nil
	})
	return errs.ErrorOrNil()
}
