package state

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/karst-sim/karst/internal/keys"
	"github.com/karst-sim/karst/internal/record"
	"github.com/karst-sim/karst/internal/vector"
)

func (s *State) ensureSet(key keys.Key) *record.Set {
	set, ok := s.data[key]
	if !ok {
		set = record.NewSet(key)
		s.data[key] = set
	}
	return set
}

// installVectorAlloc points a structured set's allocator at the
// negotiated space. The closure holds the space, so later structural
// extensions are picked up when storage materializes.
func installVectorAlloc(sp *vector.Space, set *record.Set) {
	if set.Type() != reflect.TypeFor[vector.Vector]() {
		return
	}
	set.SetAlloc(func() any {
		v := sp.NewVector()
		return &v
	})
}

// Require declares that (key, tag) must exist holding a T, claiming
// ownership when owner is non-empty. The first caller binds the
// field's type; later callers must agree. Storage materializes at
// Setup.
func Require[T any](s *State, key keys.Key, tag keys.Tag, owner keys.Key) error {
	set := s.ensureSet(key)
	if err := record.Bind[T](set); err != nil {
		return err
	}
	if sp, ok := s.spaces[key]; ok {
		installVectorAlloc(sp, set)
	}
	if !set.HasAlloc() {
		set.SetAlloc(func() any { return new(T) })
	}
	_, err := set.RequireRecord(tag, owner)
	return err
}

// RequireSpace folds req into the structure negotiated for key and
// returns the merged space. Every structured collaborator declares
// its needs this way; the union is what materializes.
func (s *State) RequireSpace(key keys.Key, req *vector.Space) (*vector.Space, error) {
	sp, ok := s.spaces[key]
	if !ok {
		sp = vector.NewSpace()
		s.spaces[key] = sp
	}
	if err := sp.Extend(req); err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	if set, ok := s.data[key]; ok {
		installVectorAlloc(sp, set)
	}
	return sp, nil
}

// Space returns the structure negotiated for key, if any.
func (s *State) Space(key keys.Key) (*vector.Space, bool) {
	sp, ok := s.spaces[key]
	return sp, ok
}

// Get returns a read-only view of (key, tag). Reads are not gated on
// initialization; collaborators that need semantic validity check it
// at the right lifecycle point instead.
func Get[T any](s *State, key keys.Key, tag keys.Tag) (*T, error) {
	set, err := s.RecordSet(key)
	if err != nil {
		return nil, err
	}
	return record.ValueOf[T](set, tag)
}

// GetW returns a mutable view of (key, tag) for its owner. Obtaining
// the view marks the record initialized.
func GetW[T any](s *State, key keys.Key, tag keys.Tag, owner keys.Key) (*T, error) {
	set, err := s.RecordSet(key)
	if err != nil {
		return nil, err
	}
	return record.Mutable[T](set, tag, owner)
}

// Set writes v to (key, tag) through the ownership check.
func Set[T any](s *State, key keys.Key, tag keys.Tag, owner keys.Key, v T) error {
	set, err := s.RecordSet(key)
	if err != nil {
		return err
	}
	return record.SetValue(set, tag, owner, v)
}

// RecordSet returns the set of records stored under key.
func (s *State) RecordSet(key keys.Key) (*record.Set, error) {
	set, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: field %q", record.ErrMissingField, key)
	}
	return set, nil
}

// HasRecordSet reports whether any record exists under key.
func (s *State) HasRecordSet(key keys.Key) bool {
	_, ok := s.data[key]
	return ok
}

// HasRecord reports whether (key, tag) exists.
func (s *State) HasRecord(key keys.Key, tag keys.Tag) bool {
	set, ok := s.data[key]
	return ok && set.HasRecord(tag)
}

// Record returns the record at (key, tag).
func (s *State) Record(key keys.Key, tag keys.Tag) (*record.Record, error) {
	set, err := s.RecordSet(key)
	if err != nil {
		return nil, err
	}
	return set.Record(tag)
}

func (s *State) sortedKeys() []keys.Key {
	ks := make([]keys.Key, 0, len(s.data))
	for k := range s.data {
		ks = append(ks, k)
	}
	sort.Slice(ks, func(i, j int) bool { return ks[i] < ks[j] })
	return ks
}

// Records visits every field record in sorted (key, tag) order.
// Checkpoint and visualization collaborators discover their working
// set this way; the time and cycle scalars appear like any other
// field. A non-nil error from visit stops the walk and is returned.
func (s *State) Records(visit func(key keys.Key, tag keys.Tag, r *record.Record) error) error {
	for _, key := range s.sortedKeys() {
		set := s.data[key]
		for _, tag := range set.Tags() {
			r, err := set.Record(tag)
			if err != nil {
				continue
			}
			if err := visit(key, tag, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetInitialValue stages v as the initial condition of (key, tag).
// Staged values are applied by InitializeFields once storage exists;
// the last value staged for a record wins. Staging claims no
// ownership.
func SetInitialValue[T any](s *State, key keys.Key, tag keys.Tag, v T) {
	kt := keys.KeyTag{Key: key, Tag: tag}
	s.ics[kt] = func() error {
		set, err := s.RecordSet(key)
		if err != nil {
			return err
		}
		return record.Store(set, tag, v)
	}
}

// Assign deep-copies the value at (key, src) into (key, dst). A copy
// of an initialized value is itself initialized.
func (s *State) Assign(key keys.Key, dst, src keys.Tag) error {
	set, err := s.RecordSet(key)
	if err != nil {
		return err
	}
	dr, err := set.Record(dst)
	if err != nil {
		return err
	}
	sr, err := set.Record(src)
	if err != nil {
		return err
	}
	if err := dr.Assign(sr); err != nil {
		return fmt.Errorf("field %q: assign %q from %q: %w", key, dst, src, err)
	}
	if sr.Initialized() {
		dr.SetInitialized(true)
	}
	return nil
}
