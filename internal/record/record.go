// Package record implements the owned, typed storage slots of the
// field registry. A Record is the single slot for one (Key,Tag); a
// Set groups all Records of one Key across Tags under one bound value
// type. Values are boxed as pointers to the bound type and accessed
// through the generic helpers, which check the type on every use.
package record

import (
	"fmt"
	"reflect"

	"github.com/karst-sim/karst/internal/keys"
)

// Record is one owned storage slot. Mutable access goes through the
// owner check; read access does not.
type Record struct {
	owner       keys.Key
	value       any // *T once materialized
	initialized bool
	vis         bool
	checkpoint  bool
}

func newRecord() *Record {
	return &Record{vis: true, checkpoint: true}
}

// Owner returns the identity allowed to mutate this record.
func (r *Record) Owner() keys.Key { return r.owner }

// Initialized reports whether a writer has produced a semantically
// valid value for this record.
func (r *Record) Initialized() bool { return r.initialized }

// SetInitialized marks the record initialized. Owners call this after
// writing an initial value; the Initialize lifecycle phase calls it
// for computed fields.
func (r *Record) SetInitialized(v bool) { r.initialized = v }

// Vis reports whether visualization collaborators should include this
// record when iterating the registry.
func (r *Record) Vis() bool { return r.vis }

// SetVis controls inclusion in visualization output.
func (r *Record) SetVis(v bool) { r.vis = v }

// Checkpoint reports whether checkpoint collaborators should include
// this record when iterating the registry.
func (r *Record) Checkpoint() bool { return r.checkpoint }

// SetCheckpoint controls inclusion in checkpoint output.
func (r *Record) SetCheckpoint(v bool) { r.checkpoint = v }

// HasValue reports whether storage has been materialized for this
// record.
func (r *Record) HasValue() bool { return r.value != nil }

// assigner lets container values control their own deep copy.
type assigner interface {
	AssignFrom(src any) error
}

// Assign deep-copies src's value into r. Both records must hold
// materialized values of the same type.
func (r *Record) Assign(src *Record) error {
	if r.value == nil || src.value == nil {
		return fmt.Errorf("%w: assign requires materialized values", ErrUninitialized)
	}
	if reflect.TypeOf(r.value) != reflect.TypeOf(src.value) {
		return fmt.Errorf("%w: assign %T from %T", ErrTypeMismatch, r.value, src.value)
	}
	if a, ok := r.value.(assigner); ok {
		return a.AssignFrom(src.value)
	}
	reflect.ValueOf(r.value).Elem().Set(reflect.ValueOf(src.value).Elem())
	return nil
}
