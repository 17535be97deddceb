package record

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/karst-sim/karst/internal/keys"
)

// Set holds every Record of one Key, indexed by Tag. All records in a
// set share one bound value type; the first binder wins and later
// binders must agree.
type Set struct {
	key     keys.Key
	vtype   reflect.Type // element type T, not *T
	alloc   func() any   // returns *T
	records map[keys.Tag]*Record
}

// NewSet creates an empty set for key with no bound type.
func NewSet(key keys.Key) *Set {
	return &Set{key: key, records: map[keys.Tag]*Record{}}
}

// Key returns the field key this set stores.
func (s *Set) Key() keys.Key { return s.key }

// BindType fixes the element type stored by this set. Rebinding to
// the same type is a no-op; a conflicting type is an error.
func (s *Set) BindType(t reflect.Type) error {
	if s.vtype == nil {
		s.vtype = t
		return nil
	}
	if s.vtype != t {
		return fmt.Errorf("%w: field %q bound to %v, requested %v",
			ErrTypeMismatch, s.key, s.vtype, t)
	}
	return nil
}

// Type returns the bound element type, or nil before the first bind.
func (s *Set) Type() reflect.Type { return s.vtype }

// SetAlloc installs the factory that materializes storage for this
// set's records. The factory must return a pointer to the bound type.
func (s *Set) SetAlloc(alloc func() any) { s.alloc = alloc }

// HasAlloc reports whether an allocator is installed.
func (s *Set) HasAlloc() bool { return s.alloc != nil }

// RequireRecord returns the record at tag, creating it if absent, and
// applies the ownership claim rules. An empty owner never claims. A
// non-empty owner claims an unowned record; a second distinct owner
// is an error.
func (s *Set) RequireRecord(tag keys.Tag, owner keys.Key) (*Record, error) {
	r, ok := s.records[tag]
	if !ok {
		r = newRecord()
		s.records[tag] = r
	}
	if owner == "" {
		return r, nil
	}
	if r.owner == "" {
		r.owner = owner
		return r, nil
	}
	if r.owner != owner {
		return nil, fmt.Errorf("%w: field %q tag %q owned by %q, claimed by %q",
			ErrOwnershipViolation, s.key, tag, r.owner, owner)
	}
	return r, nil
}

// Record returns the record at tag or ErrMissingField.
func (s *Set) Record(tag keys.Tag) (*Record, error) {
	r, ok := s.records[tag]
	if !ok {
		return nil, fmt.Errorf("%w: field %q tag %q", ErrMissingField, s.key, tag)
	}
	return r, nil
}

// HasRecord reports whether a record exists at tag.
func (s *Set) HasRecord(tag keys.Tag) bool {
	_, ok := s.records[tag]
	return ok
}

// Tags returns the set's tags in sorted order.
func (s *Set) Tags() []keys.Tag {
	tags := make([]keys.Tag, 0, len(s.records))
	for tag := range s.records {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// CreateData materializes storage for every record in the set that
// does not yet hold a value. Requires a bound type and an installed
// factory.
func (s *Set) CreateData() error {
	if s.vtype == nil {
		return fmt.Errorf("%w: field %q has no bound type", ErrUninitialized, s.key)
	}
	if s.alloc == nil {
		return fmt.Errorf("%w: field %q has no allocator", ErrUninitialized, s.key)
	}
	for tag, r := range s.records {
		if r.value != nil {
			continue
		}
		v := s.alloc()
		if got := reflect.TypeOf(v); got == nil || got.Kind() != reflect.Pointer || got.Elem() != s.vtype {
			return fmt.Errorf("%w: field %q tag %q allocator returned %T, want *%v",
				ErrTypeMismatch, s.key, tag, v, s.vtype)
		}
		r.value = v
	}
	return nil
}
